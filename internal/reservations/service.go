package reservations

import (
	"context"
	"log/slog"
	"time"

	"busline/internal/notifications"
	"busline/pkg/logger"

	"github.com/google/uuid"
)

// Service is the reservation engine: the single entry point for seat
// mutations plus the rider-facing read operations.
type Service interface {
	// Reserve books one seat for a rider. Exactly one of two concurrent
	// calls for the same (trip, seat) succeeds; the other gets
	// ErrSeatAlreadyHeld.
	Reserve(ctx context.Context, tripID uuid.UUID, seatNumber int, riderID uuid.UUID) (*Reservation, error)

	// Release cancels a reservation. A repeated release reports
	// ErrReservationNotFound and changes nothing.
	Release(ctx context.Context, tripID, reservationID uuid.UUID) error

	// ResetTrip cancels every reservation of a trip, notifying each rider.
	// Returns the number of reservations removed.
	ResetTrip(ctx context.Context, tripID uuid.UUID, reason notifications.CancelReason) (int, error)

	GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error)
	ListForRider(ctx context.Context, riderID uuid.UUID) ([]Reservation, error)

	// Inventory exposes the read side for seat maps and free-seat queries.
	Inventory() *Inventory
}

type service struct {
	repo         Repository
	inventory    *Inventory
	producer     notifications.Producer
	log          *logger.Logger
	guardTimeout time.Duration
}

func NewService(repo Repository, inventory *Inventory, producer notifications.Producer, log *logger.Logger, guardTimeout time.Duration) Service {
	if guardTimeout <= 0 {
		guardTimeout = 5 * time.Second
	}
	return &service{
		repo:         repo,
		inventory:    inventory,
		producer:     producer,
		log:          log,
		guardTimeout: guardTimeout,
	}
}

func (s *service) Reserve(ctx context.Context, tripID uuid.UUID, seatNumber int, riderID uuid.UUID) (*Reservation, error) {
	if seatNumber < 1 {
		return nil, ErrInvalidSeat
	}

	// Bound the wait on the per-trip lock so a contended trip cannot hang
	// the caller indefinitely.
	reserveCtx, cancel := context.WithTimeout(ctx, s.guardTimeout)
	defer cancel()

	reservation, err := s.repo.ReserveSeat(reserveCtx, tripID, seatNumber, riderID)
	if err != nil {
		return nil, err
	}

	s.log.LogReservationCreated(ctx, reservation.ID.String(), tripID.String(), riderID.String(), seatNumber)
	s.inventory.Invalidate(ctx, tripID)
	s.notify(ctx, reservation, notifications.EventReservationCreated, "")

	return reservation, nil
}

func (s *service) Release(ctx context.Context, tripID, reservationID uuid.UUID) error {
	releaseCtx, cancel := context.WithTimeout(ctx, s.guardTimeout)
	defer cancel()

	released, err := s.repo.ReleaseSeat(releaseCtx, tripID, reservationID)
	if err != nil {
		return err
	}

	s.log.LogReservationReleased(ctx, released.ID.String(), tripID.String(), released.SeatNumber)
	s.inventory.Invalidate(ctx, tripID)
	s.notify(ctx, released, notifications.EventReservationCancelled, notifications.ReasonRiderRequest)

	return nil
}

func (s *service) ResetTrip(ctx context.Context, tripID uuid.UUID, reason notifications.CancelReason) (int, error) {
	removed, err := s.repo.ResetTrip(ctx, tripID)
	if err != nil {
		return 0, err
	}
	if len(removed) == 0 {
		return 0, nil
	}

	s.inventory.Invalidate(ctx, tripID)

	// A reset is a mass cancellation: every affected rider's reservation
	// list must hear about it.
	for idx := range removed {
		s.notify(ctx, &removed[idx], notifications.EventReservationCancelled, reason)
	}
	return len(removed), nil
}

func (s *service) GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListForRider(ctx context.Context, riderID uuid.UUID) ([]Reservation, error) {
	return s.repo.GetByRider(ctx, riderID)
}

func (s *service) Inventory() *Inventory {
	return s.inventory
}

// notify publishes a rider-reservation event. Failures are logged, never
// propagated: the reservation itself already committed.
func (s *service) notify(ctx context.Context, r *Reservation, eventType notifications.EventType, reason notifications.CancelReason) {
	event := &notifications.ReservationEvent{
		Type:          eventType,
		ReservationID: r.ID.String(),
		TripID:        r.TripID.String(),
		RiderID:       r.RiderID.String(),
		SeatNumber:    r.SeatNumber,
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.producer.Publish(ctx, event); err != nil {
		s.log.Error("failed to publish reservation event",
			slog.String("type", string(eventType)),
			slog.String("reservation_id", event.ReservationID),
			slog.Any("error", err),
		)
	}
}
