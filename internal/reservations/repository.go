package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the only writer of the reservations table. Every mutation
// for one trip runs inside a transaction that first locks the trip row, so
// all mutations of one trip's inventory are totally ordered while different
// trips proceed in parallel.
type Repository interface {
	// ReserveSeat atomically checks and inserts a reservation for (trip, seat).
	ReserveSeat(ctx context.Context, tripID uuid.UUID, seatNumber int, riderID uuid.UUID) (*Reservation, error)

	// ReleaseSeat atomically deletes the reservation and returns the deleted
	// record for notification purposes.
	ReleaseSeat(ctx context.Context, tripID, reservationID uuid.UUID) (*Reservation, error)

	// ResetTrip deletes every reservation of a trip and returns the deleted
	// records. Used by the recurrence scheduler and the trip-delete cascade.
	ResetTrip(ctx context.Context, tripID uuid.UUID) ([]Reservation, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	GetByRider(ctx context.Context, riderID uuid.UUID) ([]Reservation, error)

	// HeldSeats returns the held seat numbers of a trip in ascending order.
	HeldSeats(ctx context.Context, tripID uuid.UUID) ([]int, error)

	// TripCapacity returns the trip's total seat count without locking it.
	TripCapacity(ctx context.Context, tripID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// lockedTrip is the subset of the trips row read under FOR UPDATE. The
// snapshot fields come from the same locked read that validates capacity.
type lockedTrip struct {
	ID         uuid.UUID `gorm:"column:id"`
	BusName    string    `gorm:"column:bus_name"`
	Origin     string    `gorm:"column:origin"`
	Destination string   `gorm:"column:destination"`
	DepartDate time.Time `gorm:"column:depart_date"`
	Timing     string    `gorm:"column:timing"`
	TotalSeats int       `gorm:"column:total_seats"`
}

func (r *repository) ReserveSeat(ctx context.Context, tripID uuid.UUID, seatNumber int, riderID uuid.UUID) (*Reservation, error) {
	var created *Reservation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the trip row. This serializes all seat mutations for the
		// trip; concurrent reservations for other trips are unaffected.
		trip, err := lockTrip(tx, tripID)
		if err != nil {
			return err
		}

		// 2. Validate the seat against the locked capacity.
		if seatNumber < 1 || seatNumber > trip.TotalSeats {
			return ErrInvalidSeat
		}

		// 3. Check-and-insert in the same transaction. The unique index on
		// (trip_id, seat_number) backs this up at the storage layer.
		var existing Reservation
		err = tx.Where("trip_id = ? AND seat_number = ?", tripID, seatNumber).
			First(&existing).Error
		if err == nil {
			return ErrSeatAlreadyHeld
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check seat: %w", err)
		}

		reservation := &Reservation{
			ID:          uuid.New(),
			TripID:      tripID,
			RiderID:     riderID,
			SeatNumber:  seatNumber,
			BusName:     trip.BusName,
			Origin:      trip.Origin,
			Destination: trip.Destination,
			DepartDate:  trip.DepartDate,
			Timing:      trip.Timing,
		}
		if err := tx.Create(reservation).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSeatAlreadyHeld
			}
			return fmt.Errorf("failed to create reservation: %w", err)
		}

		created = reservation
		return nil
	})
	if err != nil {
		return nil, translateTxError(ctx, err)
	}
	return created, nil
}

func (r *repository) ReleaseSeat(ctx context.Context, tripID, reservationID uuid.UUID) (*Reservation, error) {
	var released *Reservation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockTrip(tx, tripID); err != nil {
			return err
		}

		var reservation Reservation
		err := tx.Where("id = ?", reservationID).First(&reservation).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return fmt.Errorf("failed to load reservation: %w", err)
		}

		if reservation.TripID != tripID {
			return ErrTripMismatch
		}

		if err := tx.Delete(&Reservation{}, "id = ?", reservationID).Error; err != nil {
			return fmt.Errorf("failed to delete reservation: %w", err)
		}

		released = &reservation
		return nil
	})
	if err != nil {
		return nil, translateTxError(ctx, err)
	}
	return released, nil
}

func (r *repository) ResetTrip(ctx context.Context, tripID uuid.UUID) ([]Reservation, error) {
	var removed []Reservation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockTrip(tx, tripID); err != nil {
			return err
		}

		if err := tx.Where("trip_id = ?", tripID).Find(&removed).Error; err != nil {
			return fmt.Errorf("failed to load reservations: %w", err)
		}
		if len(removed) == 0 {
			return nil
		}

		if err := tx.Where("trip_id = ?", tripID).Delete(&Reservation{}).Error; err != nil {
			return fmt.Errorf("failed to delete reservations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, translateTxError(ctx, err)
	}
	return removed, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, translateTxError(ctx, err)
	}
	return &reservation, nil
}

func (r *repository) GetByRider(ctx context.Context, riderID uuid.UUID) ([]Reservation, error) {
	var list []Reservation
	err := r.db.WithContext(ctx).
		Where("rider_id = ?", riderID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, translateTxError(ctx, err)
	}
	return list, nil
}

func (r *repository) HeldSeats(ctx context.Context, tripID uuid.UUID) ([]int, error) {
	var seats []int
	err := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("trip_id = ?", tripID).
		Order("seat_number ASC").
		Pluck("seat_number", &seats).Error
	if err != nil {
		return nil, translateTxError(ctx, err)
	}
	return seats, nil
}

func (r *repository) TripCapacity(ctx context.Context, tripID uuid.UUID) (int, error) {
	var trip struct {
		TotalSeats int `gorm:"column:total_seats"`
	}
	err := r.db.WithContext(ctx).
		Table("trips").
		Select("total_seats").
		Where("id = ?", tripID).
		First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrTripNotFound
		}
		return 0, translateTxError(ctx, err)
	}
	return trip.TotalSeats, nil
}

// lockTrip reads the trip row under FOR UPDATE inside tx.
func lockTrip(tx *gorm.DB, tripID uuid.UUID) (*lockedTrip, error) {
	var trip lockedTrip
	err := tx.Table("trips").
		Select("id, bus_name, origin, destination, depart_date, timing, total_seats").
		Where("id = ?", tripID).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to lock trip: %w", err)
	}
	return &trip, nil
}

// translateTxError maps transaction failures to the reservation error
// taxonomy. Sentinels pass through, a blown deadline on the trip lock
// becomes ErrReservationTimeout, anything else is a storage fault. The
// deadline is checked on ctx as well as on err: the driver may report a
// cancelled query as its own error without wrapping the context error.
func translateTxError(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidSeat),
		errors.Is(err, ErrSeatAlreadyHeld),
		errors.Is(err, ErrReservationNotFound),
		errors.Is(err, ErrTripMismatch),
		errors.Is(err, ErrTripNotFound):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrReservationTimeout
	default:
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
}
