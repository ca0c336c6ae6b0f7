package reservations

import (
	"context"
	"fmt"
	"time"

	"busline/pkg/cache"

	"github.com/google/uuid"
)

// Inventory answers read-only questions about one trip's seat occupancy.
// The available count is always recomputed from the held-seat set; it is
// never stored, so it cannot drift under concurrent updates.
//
// SeatMap may serve a short-TTL cached snapshot for display. Every other
// method reads the database directly, and the reservation write path never
// consults the cache.
type Inventory struct {
	repo       Repository
	cache      cache.Service // nil when Redis is disabled
	seatMapTTL time.Duration
}

func NewInventory(repo Repository, cacheService cache.Service, seatMapTTL time.Duration) *Inventory {
	return &Inventory{
		repo:       repo,
		cache:      cacheService,
		seatMapTTL: seatMapTTL,
	}
}

// IsHeld reports whether the seat is currently bound to a reservation.
func (i *Inventory) IsHeld(ctx context.Context, tripID uuid.UUID, seatNumber int) (bool, error) {
	held, err := i.repo.HeldSeats(ctx, tripID)
	if err != nil {
		return false, err
	}
	for _, s := range held {
		if s == seatNumber {
			return true, nil
		}
	}
	return false, nil
}

// HeldSeats returns the held seat numbers in ascending order.
func (i *Inventory) HeldSeats(ctx context.Context, tripID uuid.UUID) ([]int, error) {
	return i.repo.HeldSeats(ctx, tripID)
}

// AvailableCount derives the free-seat count from capacity and the held set.
func (i *Inventory) AvailableCount(ctx context.Context, tripID uuid.UUID) (int, error) {
	total, err := i.repo.TripCapacity(ctx, tripID)
	if err != nil {
		return 0, err
	}
	held, err := i.repo.HeldSeats(ctx, tripID)
	if err != nil {
		return 0, err
	}
	return total - len(held), nil
}

// FreeSeats returns the seat numbers not currently held, ascending. The
// result is recomputed on every call.
func (i *Inventory) FreeSeats(ctx context.Context, tripID uuid.UUID) ([]int, error) {
	total, err := i.repo.TripCapacity(ctx, tripID)
	if err != nil {
		return nil, err
	}
	held, err := i.repo.HeldSeats(ctx, tripID)
	if err != nil {
		return nil, err
	}

	heldSet := make(map[int]struct{}, len(held))
	for _, s := range held {
		heldSet[s] = struct{}{}
	}

	free := make([]int, 0, total-len(held))
	for seat := 1; seat <= total; seat++ {
		if _, ok := heldSet[seat]; !ok {
			free = append(free, seat)
		}
	}
	return free, nil
}

// SeatMap builds the display view of the trip's inventory, cache-aside.
func (i *Inventory) SeatMap(ctx context.Context, tripID uuid.UUID) (*SeatMapResponse, error) {
	if i.cache == nil {
		return i.buildSeatMap(ctx, tripID)
	}

	var cached SeatMapResponse
	err := i.cache.GetOrSet(ctx, seatMapKey(tripID), i.seatMapTTL, func() (interface{}, error) {
		return i.buildSeatMap(ctx, tripID)
	}, &cached)
	if err != nil {
		// Cache trouble should not break the seat map; fall back to the DB.
		return i.buildSeatMap(ctx, tripID)
	}
	return &cached, nil
}

func (i *Inventory) buildSeatMap(ctx context.Context, tripID uuid.UUID) (*SeatMapResponse, error) {
	total, err := i.repo.TripCapacity(ctx, tripID)
	if err != nil {
		return nil, err
	}
	held, err := i.repo.HeldSeats(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return &SeatMapResponse{
		TripID:         tripID.String(),
		TotalSeats:     total,
		HeldSeats:      held,
		AvailableCount: total - len(held),
	}, nil
}

// Invalidate drops the cached seat map after a mutation.
func (i *Inventory) Invalidate(ctx context.Context, tripID uuid.UUID) {
	if i.cache == nil {
		return
	}
	// Best effort; the entry also ages out by TTL.
	_ = i.cache.Delete(ctx, seatMapKey(tripID))
}

func seatMapKey(tripID uuid.UUID) string {
	return fmt.Sprintf("seat_map:%s", tripID)
}
