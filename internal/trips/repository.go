package trips

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemovedReservation is the slice of a reservation row the delete cascade
// returns so the service can notify each affected rider.
type RemovedReservation struct {
	ID         uuid.UUID `gorm:"column:id"`
	RiderID    uuid.UUID `gorm:"column:rider_id"`
	SeatNumber int       `gorm:"column:seat_number"`
}

type Repository interface {
	Create(ctx context.Context, trip *Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*Trip, error)
	GetAll(ctx context.Context, query TripListQuery) ([]Trip, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Trip, error)

	// UpdateCapacity rejects any total below the current held-seat count,
	// checked and applied under the trip row lock.
	UpdateCapacity(ctx context.Context, id uuid.UUID, newTotal int) error

	// DeleteCascade removes the trip's reservations and the trip itself in
	// one transaction, returning the removed reservations.
	DeleteCascade(ctx context.Context, id uuid.UUID) ([]RemovedReservation, error)

	// ListRecurring returns all trips with a recurrence interval set.
	ListRecurring(ctx context.Context) ([]Trip, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, trip *Trip) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Trip
		err := tx.Where(
			"bus_number = ? AND origin = ? AND destination = ? AND depart_date = ? AND timing = ?",
			trip.BusNumber, trip.Origin, trip.Destination, trip.DepartDate, trip.Timing,
		).First(&existing).Error
		if err == nil {
			return ErrDuplicateTrip
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check for duplicate trip: %w", err)
		}

		if err := tx.Create(trip).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateTrip
			}
			return fmt.Errorf("failed to create trip: %w", err)
		}
		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Trip, error) {
	var trip Trip
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return &trip, nil
}

func (r *repository) GetAll(ctx context.Context, query TripListQuery) ([]Trip, error) {
	db := r.db.WithContext(ctx).Model(&Trip{})

	if query.Origin != "" {
		db = db.Where("origin = ?", NormalizeRoute(query.Origin))
	}
	if query.Destination != "" {
		db = db.Where("destination = ?", NormalizeRoute(query.Destination))
	}
	if query.Date != "" {
		if date, err := time.Parse("2006-01-02", query.Date); err == nil {
			db = db.Where("depart_date >= ? AND depart_date < ?", date, date.Add(24*time.Hour))
		}
	}

	var trips []Trip
	if err := db.Order("depart_date ASC, timing ASC").Find(&trips).Error; err != nil {
		return nil, err
	}
	return trips, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Trip, error) {
	var trip Trip

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&trip).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTripNotFound
			}
			return err
		}

		if err := tx.Model(&trip).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateTrip
			}
			return fmt.Errorf("failed to update trip: %w", err)
		}

		return tx.Where("id = ?", id).First(&trip).Error
	})
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *repository) UpdateCapacity(ctx context.Context, id uuid.UUID, newTotal int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trip Trip
		err := tx.Where("id = ?", id).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&trip).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTripNotFound
			}
			return fmt.Errorf("failed to lock trip: %w", err)
		}

		var heldCount int64
		err = tx.Table("reservations").
			Where("trip_id = ?", id).
			Count(&heldCount).Error
		if err != nil {
			return fmt.Errorf("failed to count held seats: %w", err)
		}

		if int64(newTotal) < heldCount {
			return ErrCapacityBelowReserved
		}

		return tx.Model(&Trip{}).
			Where("id = ?", id).
			Update("total_seats", newTotal).Error
	})
}

func (r *repository) DeleteCascade(ctx context.Context, id uuid.UUID) ([]RemovedReservation, error) {
	var removed []RemovedReservation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trip Trip
		err := tx.Where("id = ?", id).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&trip).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTripNotFound
			}
			return fmt.Errorf("failed to lock trip: %w", err)
		}

		err = tx.Table("reservations").
			Select("id, rider_id, seat_number").
			Where("trip_id = ?", id).
			Find(&removed).Error
		if err != nil {
			return fmt.Errorf("failed to load reservations: %w", err)
		}

		if len(removed) > 0 {
			if err := tx.Exec("DELETE FROM reservations WHERE trip_id = ?", id).Error; err != nil {
				return fmt.Errorf("failed to delete reservations: %w", err)
			}
		}

		if err := tx.Where("id = ?", id).Delete(&Trip{}).Error; err != nil {
			return fmt.Errorf("failed to delete trip: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *repository) ListRecurring(ctx context.Context) ([]Trip, error) {
	var trips []Trip
	err := r.db.WithContext(ctx).
		Where("recurrence_days IS NOT NULL").
		Order("created_at ASC").
		Find(&trips).Error
	if err != nil {
		return nil, err
	}
	return trips, nil
}
