package trips

import (
	"context"
	"log/slog"
	"time"

	"busline/internal/notifications"
	"busline/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	CreateTrip(ctx context.Context, req CreateTripRequest) (*Trip, error)
	GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error)
	ListTrips(ctx context.Context, query TripListQuery) ([]Trip, error)
	UpdateTrip(ctx context.Context, id uuid.UUID, req UpdateTripRequest) (*Trip, error)
	UpdateCapacity(ctx context.Context, id uuid.UUID, newTotal int) error
	DeleteTrip(ctx context.Context, id uuid.UUID) error
	ListRecurring(ctx context.Context) ([]Trip, error)
}

// SeatMapInvalidator drops the cached seat-map snapshot of one trip.
// Satisfied by the reservation inventory; nil disables invalidation.
type SeatMapInvalidator interface {
	Invalidate(ctx context.Context, tripID uuid.UUID)
}

type service struct {
	repo     Repository
	producer notifications.Producer
	log      *logger.Logger
	seatMaps SeatMapInvalidator
}

func NewService(repo Repository, producer notifications.Producer, log *logger.Logger, seatMaps SeatMapInvalidator) Service {
	return &service{
		repo:     repo,
		producer: producer,
		log:      log,
		seatMaps: seatMaps,
	}
}

func (s *service) CreateTrip(ctx context.Context, req CreateTripRequest) (*Trip, error) {
	trip := &Trip{
		ID:             uuid.New(),
		BusName:        req.BusName,
		BusNumber:      req.BusNumber,
		OperatorName:   req.OperatorName,
		Fare:           req.Fare,
		Origin:         NormalizeRoute(req.Origin),
		Destination:    NormalizeRoute(req.Destination),
		DepartDate:     req.DepartDate,
		Timing:         req.Timing,
		TotalSeats:     req.TotalSeats,
		RecurrenceDays: req.RecurrenceDays,
	}

	if err := s.repo.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.log.Info("trip created",
		slog.String("trip_id", trip.ID.String()),
		slog.String("bus_number", trip.BusNumber),
		slog.String("origin", trip.Origin),
		slog.String("destination", trip.Destination),
		slog.Int("total_seats", trip.TotalSeats),
	)
	return trip, nil
}

func (s *service) GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListTrips(ctx context.Context, query TripListQuery) ([]Trip, error) {
	return s.repo.GetAll(ctx, query)
}

func (s *service) UpdateTrip(ctx context.Context, id uuid.UUID, req UpdateTripRequest) (*Trip, error) {
	updates := make(map[string]interface{})

	if req.BusName != nil {
		updates["bus_name"] = *req.BusName
	}
	if req.OperatorName != nil {
		updates["operator_name"] = *req.OperatorName
	}
	if req.Fare != nil {
		updates["fare"] = *req.Fare
	}
	if req.Origin != nil {
		updates["origin"] = NormalizeRoute(*req.Origin)
	}
	if req.Destination != nil {
		updates["destination"] = NormalizeRoute(*req.Destination)
	}
	if req.DepartDate != nil {
		updates["depart_date"] = *req.DepartDate
	}
	if req.Timing != nil {
		updates["timing"] = *req.Timing
	}
	if req.RecurrenceDays != nil {
		if *req.RecurrenceDays == 0 {
			updates["recurrence_days"] = nil
		} else {
			updates["recurrence_days"] = *req.RecurrenceDays
		}
	}

	if len(updates) == 0 {
		return s.repo.GetByID(ctx, id)
	}
	updates["updated_at"] = time.Now().UTC()

	return s.repo.Update(ctx, id, updates)
}

func (s *service) UpdateCapacity(ctx context.Context, id uuid.UUID, newTotal int) error {
	if err := s.repo.UpdateCapacity(ctx, id, newTotal); err != nil {
		return err
	}
	s.invalidateSeatMap(ctx, id)
	s.log.Info("trip capacity updated",
		slog.String("trip_id", id.String()),
		slog.Int("total_seats", newTotal),
	)
	return nil
}

func (s *service) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	removed, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		return err
	}
	s.invalidateSeatMap(ctx, id)

	s.log.Info("trip deleted",
		slog.String("trip_id", id.String()),
		slog.Int("reservations_cancelled", len(removed)),
	)

	// Cascade cancellations go out after the commit; a publish failure is
	// logged and must not undo the deletion.
	for _, r := range removed {
		event := &notifications.ReservationEvent{
			Type:          notifications.EventReservationCancelled,
			ReservationID: r.ID.String(),
			TripID:        id.String(),
			RiderID:       r.RiderID.String(),
			SeatNumber:    r.SeatNumber,
			Reason:        notifications.ReasonTripDeleted,
			OccurredAt:    time.Now().UTC(),
		}
		if err := s.producer.Publish(ctx, event); err != nil {
			s.log.Error("failed to publish cascade cancellation",
				slog.String("reservation_id", event.ReservationID),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

func (s *service) ListRecurring(ctx context.Context) ([]Trip, error) {
	return s.repo.ListRecurring(ctx)
}

func (s *service) invalidateSeatMap(ctx context.Context, id uuid.UUID) {
	if s.seatMaps != nil {
		s.seatMaps.Invalidate(ctx, id)
	}
}
