package reservations

import "errors"

// Sentinel errors for the reservation path. Controllers map these to HTTP
// statuses; everything else is treated as a 500.
var (
	// ErrInvalidSeat means the seat number is outside 1..totalSeats.
	ErrInvalidSeat = errors.New("seat number out of range")

	// ErrSeatAlreadyHeld means another reservation already holds the seat.
	ErrSeatAlreadyHeld = errors.New("seat already held")

	// ErrReservationNotFound means no reservation exists with the given ID.
	// A second release of the same reservation also reports this.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrTripMismatch means the reservation belongs to a different trip.
	ErrTripMismatch = errors.New("reservation does not belong to the given trip")

	// ErrTripNotFound means the trip does not exist or has been deleted.
	ErrTripNotFound = errors.New("trip not found")

	// ErrReservationTimeout means the per-trip guard could not be acquired
	// within the configured bound.
	ErrReservationTimeout = errors.New("reservation timed out acquiring trip lock")

	// ErrStorageUnavailable is a transient storage failure; callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
