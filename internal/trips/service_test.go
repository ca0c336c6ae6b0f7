package trips

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"busline/internal/notifications"
	"busline/pkg/logger"

	"github.com/google/uuid"
)

type fakeTripRepo struct {
	mu       sync.Mutex
	trips    map[uuid.UUID]*Trip
	held     map[uuid.UUID][]RemovedReservation
	failWith error
}

func newFakeTripRepo() *fakeTripRepo {
	return &fakeTripRepo{
		trips: make(map[uuid.UUID]*Trip),
		held:  make(map[uuid.UUID][]RemovedReservation),
	}
}

func (f *fakeTripRepo) Create(_ context.Context, trip *Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	for _, existing := range f.trips {
		if existing.BusNumber == trip.BusNumber &&
			existing.Origin == trip.Origin &&
			existing.Destination == trip.Destination &&
			existing.DepartDate.Equal(trip.DepartDate) &&
			existing.Timing == trip.Timing {
			return ErrDuplicateTrip
		}
	}
	copied := *trip
	copied.CreatedAt = time.Now().UTC()
	f.trips[trip.ID] = &copied
	return nil
}

func (f *fakeTripRepo) GetByID(_ context.Context, id uuid.UUID) (*Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	copied := *trip
	return &copied, nil
}

func (f *fakeTripRepo) GetAll(_ context.Context, query TripListQuery) ([]Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []Trip
	for _, trip := range f.trips {
		if query.Origin != "" && trip.Origin != NormalizeRoute(query.Origin) {
			continue
		}
		if query.Destination != "" && trip.Destination != NormalizeRoute(query.Destination) {
			continue
		}
		list = append(list, *trip)
	}
	return list, nil
}

func (f *fakeTripRepo) Update(_ context.Context, id uuid.UUID, updates map[string]interface{}) (*Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	if v, ok := updates["bus_name"]; ok {
		trip.BusName = v.(string)
	}
	if v, ok := updates["origin"]; ok {
		trip.Origin = v.(string)
	}
	if v, ok := updates["destination"]; ok {
		trip.Destination = v.(string)
	}
	if v, ok := updates["fare"]; ok {
		trip.Fare = v.(float64)
	}
	if v, ok := updates["recurrence_days"]; ok {
		if v == nil {
			trip.RecurrenceDays = nil
		} else {
			days := v.(int)
			trip.RecurrenceDays = &days
		}
	}
	copied := *trip
	return &copied, nil
}

func (f *fakeTripRepo) UpdateCapacity(_ context.Context, id uuid.UUID, newTotal int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return ErrTripNotFound
	}
	if newTotal < len(f.held[id]) {
		return ErrCapacityBelowReserved
	}
	trip.TotalSeats = newTotal
	return nil
}

func (f *fakeTripRepo) DeleteCascade(_ context.Context, id uuid.UUID) ([]RemovedReservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.trips[id]; !ok {
		return nil, ErrTripNotFound
	}
	removed := f.held[id]
	delete(f.held, id)
	delete(f.trips, id)
	return removed, nil
}

func (f *fakeTripRepo) ListRecurring(_ context.Context) ([]Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []Trip
	for _, trip := range f.trips {
		if trip.RecurrenceDays != nil {
			list = append(list, *trip)
		}
	}
	return list, nil
}

type recordingProducer struct {
	mu     sync.Mutex
	events []notifications.ReservationEvent
}

func (p *recordingProducer) Publish(_ context.Context, event *notifications.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func sampleRequest() CreateTripRequest {
	return CreateTripRequest{
		BusName:      "Night Express",
		BusNumber:    "MH-12-4821",
		OperatorName: "Deccan Travels",
		Fare:         450,
		Origin:       "Pune",
		Destination:  "Mumbai",
		DepartDate:   time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		Timing:       "22:30",
		TotalSeats:   40,
	}
}

func TestCreateTripNormalizesRoute(t *testing.T) {
	repo := newFakeTripRepo()
	svc := NewService(repo, &recordingProducer{}, logger.New(), nil)

	trip, err := svc.CreateTrip(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if trip.Origin != "pune" || trip.Destination != "mumbai" {
		t.Fatalf("route not normalized: %q -> %q", trip.Origin, trip.Destination)
	}
	if trip.ID == uuid.Nil {
		t.Fatal("trip ID not assigned")
	}
}

func TestCreateTripRejectsDuplicate(t *testing.T) {
	repo := newFakeTripRepo()
	svc := NewService(repo, &recordingProducer{}, logger.New(), nil)

	if _, err := svc.CreateTrip(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	// Same identity with different casing must still collide.
	req := sampleRequest()
	req.Origin = "  PUNE "
	req.Destination = "Mumbai"
	_, err := svc.CreateTrip(context.Background(), req)
	if !errors.Is(err, ErrDuplicateTrip) {
		t.Fatalf("expected ErrDuplicateTrip, got %v", err)
	}
}

func TestUpdateTripPatchesOnlyProvidedFields(t *testing.T) {
	repo := newFakeTripRepo()
	svc := NewService(repo, &recordingProducer{}, logger.New(), nil)

	trip, err := svc.CreateTrip(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	fare := 500.0
	origin := " Nashik "
	updated, err := svc.UpdateTrip(context.Background(), trip.ID, UpdateTripRequest{
		Fare:   &fare,
		Origin: &origin,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Fare != 500 {
		t.Fatalf("fare not updated: %v", updated.Fare)
	}
	if updated.Origin != "nashik" {
		t.Fatalf("origin not normalized on update: %q", updated.Origin)
	}
	if updated.BusName != "Night Express" {
		t.Fatalf("untouched field changed: %q", updated.BusName)
	}
}

func TestUpdateTripClearsRecurrence(t *testing.T) {
	repo := newFakeTripRepo()
	svc := NewService(repo, &recordingProducer{}, logger.New(), nil)

	interval := 7
	req := sampleRequest()
	req.RecurrenceDays = &interval
	trip, err := svc.CreateTrip(context.Background(), req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	noRecurrence := 0
	updated, err := svc.UpdateTrip(context.Background(), trip.ID, UpdateTripRequest{
		RecurrenceDays: &noRecurrence,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.RecurrenceDays != nil {
		t.Fatalf("recurrence should be cleared, got %d", *updated.RecurrenceDays)
	}

	list, err := svc.ListRecurring(context.Background())
	if err != nil {
		t.Fatalf("list recurring failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("cleared trip must not be swept, got %d recurring trips", len(list))
	}
}

func TestUpdateCapacityBelowReserved(t *testing.T) {
	repo := newFakeTripRepo()
	svc := NewService(repo, &recordingProducer{}, logger.New(), nil)

	trip, err := svc.CreateTrip(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	repo.held[trip.ID] = []RemovedReservation{
		{ID: uuid.New(), RiderID: uuid.New(), SeatNumber: 1},
		{ID: uuid.New(), RiderID: uuid.New(), SeatNumber: 2},
		{ID: uuid.New(), RiderID: uuid.New(), SeatNumber: 3},
	}

	err = svc.UpdateCapacity(context.Background(), trip.ID, 2)
	if !errors.Is(err, ErrCapacityBelowReserved) {
		t.Fatalf("expected ErrCapacityBelowReserved, got %v", err)
	}

	if err := svc.UpdateCapacity(context.Background(), trip.ID, 3); err != nil {
		t.Fatalf("shrinking to exactly the held count must succeed: %v", err)
	}
}

func TestDeleteTripNotifiesEveryRider(t *testing.T) {
	repo := newFakeTripRepo()
	producer := &recordingProducer{}
	svc := NewService(repo, producer, logger.New(), nil)

	trip, err := svc.CreateTrip(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	riderA, riderB := uuid.New(), uuid.New()
	repo.held[trip.ID] = []RemovedReservation{
		{ID: uuid.New(), RiderID: riderA, SeatNumber: 4},
		{ID: uuid.New(), RiderID: riderB, SeatNumber: 9},
	}

	if err := svc.DeleteTrip(context.Background(), trip.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if len(producer.events) != 2 {
		t.Fatalf("expected 2 cascade cancellations, got %d", len(producer.events))
	}
	riders := map[string]bool{}
	for _, e := range producer.events {
		if e.Type != notifications.EventReservationCancelled {
			t.Fatalf("wrong event type: %s", e.Type)
		}
		if e.Reason != notifications.ReasonTripDeleted {
			t.Fatalf("wrong cancellation reason: %s", e.Reason)
		}
		riders[e.RiderID] = true
	}
	if !riders[riderA.String()] || !riders[riderB.String()] {
		t.Fatalf("not every rider was notified: %v", riders)
	}

	if _, err := svc.GetTrip(context.Background(), trip.ID); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("trip should be gone, got %v", err)
	}
}

type fakeInvalidator struct {
	mu    sync.Mutex
	trips []uuid.UUID
}

func (f *fakeInvalidator) Invalidate(_ context.Context, tripID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trips = append(f.trips, tripID)
}

func TestDeleteAndCapacityInvalidateSeatMap(t *testing.T) {
	repo := newFakeTripRepo()
	invalidator := &fakeInvalidator{}
	svc := NewService(repo, &recordingProducer{}, logger.New(), invalidator)

	trip, err := svc.CreateTrip(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.UpdateCapacity(context.Background(), trip.ID, 30); err != nil {
		t.Fatalf("capacity update failed: %v", err)
	}
	if err := svc.DeleteTrip(context.Background(), trip.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if len(invalidator.trips) != 2 {
		t.Fatalf("expected 2 seat-map invalidations, got %d", len(invalidator.trips))
	}
	for _, id := range invalidator.trips {
		if id != trip.ID {
			t.Fatalf("wrong trip invalidated: %s", id)
		}
	}

	// A rejected capacity change must not touch the cache.
	trip2, err := svc.CreateTrip(context.Background(), func() CreateTripRequest {
		req := sampleRequest()
		req.BusNumber = "MH-12-7777"
		return req
	}())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	repo.held[trip2.ID] = []RemovedReservation{{ID: uuid.New(), RiderID: uuid.New(), SeatNumber: 1}}
	if err := svc.UpdateCapacity(context.Background(), trip2.ID, 0); !errors.Is(err, ErrCapacityBelowReserved) {
		t.Fatalf("expected ErrCapacityBelowReserved, got %v", err)
	}
	if len(invalidator.trips) != 2 {
		t.Fatalf("failed capacity update must not invalidate, got %d", len(invalidator.trips))
	}
}

func TestListTripsMatchesMixedCaseOrigin(t *testing.T) {
	repo := newFakeTripRepo()
	svc := NewService(repo, &recordingProducer{}, logger.New(), nil)

	if _, err := svc.CreateTrip(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	list, err := svc.ListTrips(context.Background(), TripListQuery{Origin: "PuNe"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("mixed-case origin should match, got %d trips", len(list))
	}

	list, err = svc.ListTrips(context.Background(), TripListQuery{Origin: "Delhi"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("non-matching origin should filter everything, got %d trips", len(list))
	}
}

func TestListRecurringFiltersOneOffs(t *testing.T) {
	repo := newFakeTripRepo()
	svc := NewService(repo, &recordingProducer{}, logger.New(), nil)

	if _, err := svc.CreateTrip(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	interval := 7
	recurring := sampleRequest()
	recurring.BusNumber = "MH-12-9034"
	recurring.RecurrenceDays = &interval
	if _, err := svc.CreateTrip(context.Background(), recurring); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	list, err := svc.ListRecurring(context.Background())
	if err != nil {
		t.Fatalf("list recurring failed: %v", err)
	}
	if len(list) != 1 || list[0].BusNumber != "MH-12-9034" {
		t.Fatalf("expected only the recurring trip, got %+v", list)
	}
}
