package trips

import "errors"

var (
	// ErrDuplicateTrip means a trip with the same bus number, route, date and
	// timing already exists.
	ErrDuplicateTrip = errors.New("trip already exists")

	// ErrTripNotFound means no trip exists with the given ID.
	ErrTripNotFound = errors.New("trip not found")

	// ErrCapacityBelowReserved means the requested capacity is smaller than
	// the number of seats currently held by reservations.
	ErrCapacityBelowReserved = errors.New("capacity below reserved seat count")
)
