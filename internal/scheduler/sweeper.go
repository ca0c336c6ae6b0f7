package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"busline/internal/notifications"
	"busline/internal/trips"
	"busline/pkg/logger"

	"github.com/google/uuid"
)

// State of the sweeper. It is Idle between wake-ups and Sweeping while a
// sweep runs; a wake-up that arrives mid-sweep is skipped.
type State int32

const (
	StateIdle State = iota
	StateSweeping
)

// TripSource lists the trips eligible for recurrence resets.
type TripSource interface {
	ListRecurring(ctx context.Context) ([]trips.Trip, error)
}

// InventoryResetter clears one trip's inventory as a mass cancellation.
type InventoryResetter interface {
	ResetTrip(ctx context.Context, tripID uuid.UUID, reason notifications.CancelReason) (int, error)
}

// Config contains sweeper tunables.
type Config struct {
	// SweepInterval is the wall-clock period between wake-ups.
	SweepInterval time.Duration

	// TripTimeout bounds the reset of a single trip so one stuck trip
	// cannot stall the whole sweep.
	TripTimeout time.Duration
}

// DefaultConfig returns the production cadence: one sweep per day.
func DefaultConfig() *Config {
	return &Config{
		SweepInterval: 24 * time.Hour,
		TripTimeout:   30 * time.Second,
	}
}

// Sweeper periodically resets inventory for recurring trips.
type Sweeper struct {
	trips    TripSource
	resetter InventoryResetter
	config   *Config
	log      *logger.Logger
	done     chan struct{}
	state    atomic.Int32

	// lastReset maps a trip to the daysSinceCreation value of its most
	// recent reset, so a sub-daily sweep cadence cannot reset the same
	// trip twice within one due day and cancel bookings made after the
	// first reset. Touched only inside Sweep, which the state CAS
	// serializes.
	lastReset map[uuid.UUID]int

	// now is replaceable so tests can pin the clock.
	now func() time.Time
}

func NewSweeper(tripSource TripSource, resetter InventoryResetter, config *Config, log *logger.Logger) *Sweeper {
	if config == nil {
		config = DefaultConfig()
	}
	return &Sweeper{
		trips:     tripSource,
		resetter:  resetter,
		config:    config,
		log:       log,
		done:      make(chan struct{}),
		lastReset: make(map[uuid.UUID]int),
		now:       time.Now,
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info("recurrence sweeper started",
		slog.Duration("interval", s.config.SweepInterval),
	)
	go s.run(ctx)
}

// Stop stops the sweep loop. A sweep in progress finishes.
func (s *Sweeper) Stop() {
	close(s.done)
	s.log.Info("recurrence sweeper stopped")
}

// CurrentState reports whether the sweeper is idle or mid-sweep.
func (s *Sweeper) CurrentState() State {
	return State(s.state.Load())
}

// run wakes at wall-clock interval boundaries rather than a fixed period
// after process start. With the default 24h interval that is midnight UTC,
// so a frequently restarted service still sweeps once a day.
func (s *Sweeper) run(ctx context.Context) {
	for {
		now := s.now()
		timer := time.NewTimer(nextWake(now, s.config.SweepInterval).Sub(now))

		select {
		case <-timer.C:
			s.Sweep(ctx)
		case <-s.done:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// nextWake returns the next wall-clock boundary of the interval.
func nextWake(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval)
}

// Sweep walks every recurring trip once and resets those that are due.
// A failed trip is logged and skipped; it gets another chance at the next
// wake-up, never an immediate retry.
func (s *Sweeper) Sweep(ctx context.Context) (reset, failed int) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateSweeping)) {
		s.log.Warn("sweep still in progress, skipping wake-up")
		return 0, 0
	}
	defer s.state.Store(int32(StateIdle))

	start := s.now()

	recurring, err := s.trips.ListRecurring(ctx)
	if err != nil {
		s.log.Error("failed to list recurring trips", slog.Any("error", err))
		return 0, 0
	}

	for i := range recurring {
		trip := &recurring[i]
		day, due := resetDay(trip, start)
		if !due {
			delete(s.lastReset, trip.ID)
			continue
		}
		if last, ok := s.lastReset[trip.ID]; ok && last == day {
			continue
		}

		tripCtx, cancel := context.WithTimeout(ctx, s.config.TripTimeout)
		removed, err := s.resetter.ResetTrip(tripCtx, trip.ID, notifications.ReasonRecurrenceReset)
		cancel()
		if err != nil {
			failed++
			s.log.Warn("failed to reset trip inventory",
				slog.String("trip_id", trip.ID.String()),
				slog.Any("error", err),
			)
			continue
		}

		reset++
		s.lastReset[trip.ID] = day
		s.log.Info("trip inventory reset",
			slog.String("trip_id", trip.ID.String()),
			slog.String("bus_number", trip.BusNumber),
			slog.Int("reservations_cancelled", removed),
		)
	}

	s.log.LogSweepResult(ctx, reset, failed, time.Since(start))
	return reset, failed
}

// resetDay reports whether a trip is due and on which day: the whole days
// elapsed since its creation are a multiple of its recurrence interval.
// The anchor is the creation timestamp, so trips created mid-cycle reset
// at offsets relative to their own creation time, not the calendar day.
func resetDay(trip *trips.Trip, now time.Time) (int, bool) {
	if trip.RecurrenceDays == nil || *trip.RecurrenceDays <= 0 {
		return 0, false
	}
	daysSinceCreation := int(now.Sub(trip.CreatedAt).Hours() / 24)
	if daysSinceCreation < 0 {
		return 0, false
	}
	return daysSinceCreation, daysSinceCreation%*trip.RecurrenceDays == 0
}
