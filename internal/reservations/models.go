package reservations

import (
	"time"

	"github.com/google/uuid"
)

// Reservation binds one seat of one trip to one rider. Route details are
// snapshotted at booking time so a later trip update does not rewrite
// tickets that were already issued.
type Reservation struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	TripID     uuid.UUID `json:"trip_id" gorm:"type:uuid;not null;uniqueIndex:idx_trip_seat"`
	RiderID    uuid.UUID `json:"rider_id" gorm:"type:uuid;not null;index"`
	SeatNumber int       `json:"seat_number" gorm:"not null;check:seat_number >= 1;uniqueIndex:idx_trip_seat"`

	// Route snapshot at booking time.
	BusName     string    `json:"bus_name" gorm:"not null;size:255"`
	Origin      string    `json:"origin" gorm:"not null;size:255"`
	Destination string    `json:"destination" gorm:"not null;size:255"`
	DepartDate  time.Time `json:"depart_date" gorm:"not null"`
	Timing      string    `json:"timing" gorm:"not null;size:16"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (Reservation) TableName() string {
	return "reservations"
}

type ReservationResponse struct {
	ID          string    `json:"id"`
	TripID      string    `json:"trip_id"`
	RiderID     string    `json:"rider_id"`
	SeatNumber  int       `json:"seat_number"`
	BusName     string    `json:"bus_name"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartDate  time.Time `json:"depart_date"`
	Timing      string    `json:"timing"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *Reservation) ToResponse() ReservationResponse {
	return ReservationResponse{
		ID:          r.ID.String(),
		TripID:      r.TripID.String(),
		RiderID:     r.RiderID.String(),
		SeatNumber:  r.SeatNumber,
		BusName:     r.BusName,
		Origin:      r.Origin,
		Destination: r.Destination,
		DepartDate:  r.DepartDate,
		Timing:      r.Timing,
		CreatedAt:   r.CreatedAt,
	}
}

type ReserveSeatRequest struct {
	SeatNumber int `json:"seat_number" binding:"required,min=1"`
}

// SeatMapResponse is the display view of one trip's inventory. It may be
// served from a short-TTL cache; the booking path never reads it.
type SeatMapResponse struct {
	TripID         string `json:"trip_id"`
	TotalSeats     int    `json:"total_seats"`
	HeldSeats      []int  `json:"held_seats"`
	AvailableCount int    `json:"available_count"`
}

type FreeSeatsResponse struct {
	TripID    string `json:"trip_id"`
	FreeSeats []int  `json:"free_seats"`
}
