package trips

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Trip is a scheduled bus departure. AvailableSeats is deliberately absent:
// availability is always derived from the reservations table, never stored.
type Trip struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	BusName      string    `json:"bus_name" gorm:"not null;size:255"`
	BusNumber    string    `json:"bus_number" gorm:"not null;size:64;uniqueIndex:idx_trip_identity"`
	OperatorName string    `json:"operator_name" gorm:"not null;size:255"`
	Fare         float64   `json:"fare" gorm:"not null;check:fare >= 0"`
	Origin       string    `json:"origin" gorm:"not null;size:255;uniqueIndex:idx_trip_identity"`
	Destination  string    `json:"destination" gorm:"not null;size:255;uniqueIndex:idx_trip_identity"`
	DepartDate   time.Time `json:"depart_date" gorm:"not null;uniqueIndex:idx_trip_identity"`
	Timing       string    `json:"timing" gorm:"not null;size:16;uniqueIndex:idx_trip_identity"`
	TotalSeats   int       `json:"total_seats" gorm:"not null;check:total_seats >= 1"`

	// RecurrenceDays is the reset interval for repeating trips. Nil means a
	// one-off trip that the scheduler never touches.
	RecurrenceDays *int `json:"recurrence_days" gorm:"check:recurrence_days > 0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Trip) TableName() string {
	return "trips"
}

// NormalizeRoute lower-cases and trims route endpoints so that searches and
// duplicate checks are case-insensitive.
func NormalizeRoute(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type TripResponse struct {
	ID             string    `json:"id"`
	BusName        string    `json:"bus_name"`
	BusNumber      string    `json:"bus_number"`
	OperatorName   string    `json:"operator_name"`
	Fare           float64   `json:"fare"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartDate     time.Time `json:"depart_date"`
	Timing         string    `json:"timing"`
	TotalSeats     int       `json:"total_seats"`
	RecurrenceDays *int      `json:"recurrence_days,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (t *Trip) ToResponse() TripResponse {
	return TripResponse{
		ID:             t.ID.String(),
		BusName:        t.BusName,
		BusNumber:      t.BusNumber,
		OperatorName:   t.OperatorName,
		Fare:           t.Fare,
		Origin:         t.Origin,
		Destination:    t.Destination,
		DepartDate:     t.DepartDate,
		Timing:         t.Timing,
		TotalSeats:     t.TotalSeats,
		RecurrenceDays: t.RecurrenceDays,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

type CreateTripRequest struct {
	BusName        string    `json:"bus_name" binding:"required,min=1,max=255"`
	BusNumber      string    `json:"bus_number" binding:"required,min=1,max=64"`
	OperatorName   string    `json:"operator_name" binding:"required,min=1,max=255"`
	Fare           float64   `json:"fare" binding:"required,min=0"`
	Origin         string    `json:"origin" binding:"required,min=1,max=255"`
	Destination    string    `json:"destination" binding:"required,min=1,max=255"`
	DepartDate     time.Time `json:"depart_date" binding:"required"`
	Timing         string    `json:"timing" binding:"required,timing"`
	TotalSeats     int       `json:"total_seats" binding:"required,min=1,max=200"`
	RecurrenceDays *int      `json:"recurrence_days" binding:"omitempty,min=1"`
}

// UpdateTripRequest covers everything except capacity, which has its own
// endpoint so the reserved-seat guard cannot be bypassed.
type UpdateTripRequest struct {
	BusName      *string    `json:"bus_name" binding:"omitempty,min=1,max=255"`
	OperatorName *string    `json:"operator_name" binding:"omitempty,min=1,max=255"`
	Fare         *float64   `json:"fare" binding:"omitempty,min=0"`
	Origin       *string    `json:"origin" binding:"omitempty,min=1,max=255"`
	Destination  *string    `json:"destination" binding:"omitempty,min=1,max=255"`
	DepartDate   *time.Time `json:"depart_date"`
	Timing       *string    `json:"timing" binding:"omitempty,timing"`

	// RecurrenceDays: absent leaves the interval unchanged, zero clears
	// it, turning the trip back into a one-off.
	RecurrenceDays *int `json:"recurrence_days" binding:"omitempty,min=0"`
}

type UpdateCapacityRequest struct {
	TotalSeats int `json:"total_seats" binding:"required,min=1,max=200"`
}

type TripListQuery struct {
	Origin      string `form:"origin"`
	Destination string `form:"destination"`
	Date        string `form:"date"`
}
