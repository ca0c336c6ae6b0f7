package notifications

import (
	"encoding/json"
	"time"
)

// EventType distinguishes rider-reservation list updates.
type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationCancelled EventType = "reservation.cancelled"
)

// CancelReason records why a reservation was cancelled. The rider-facing
// reservation list shows different copy for each.
type CancelReason string

const (
	ReasonRiderRequest    CancelReason = "rider_request"
	ReasonTripDeleted     CancelReason = "trip_deleted"
	ReasonRecurrenceReset CancelReason = "recurrence_reset"
)

// ReservationEvent is the message published to the rider-reservation-list
// collaborator on every successful reserve and every cancellation.
type ReservationEvent struct {
	Type          EventType    `json:"type"`
	ReservationID string       `json:"reservation_id"`
	TripID        string       `json:"trip_id"`
	RiderID       string       `json:"rider_id"`
	SeatNumber    int          `json:"seat_number"`
	Reason        CancelReason `json:"reason,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

func (e *ReservationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey routes all events for one rider to the same partition so the
// rider's reservation list sees them in order.
func (e *ReservationEvent) PartitionKey() string {
	return e.RiderID
}
