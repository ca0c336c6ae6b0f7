package reservations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}

	return NewRepository(gormDB), mock
}

func tripRow(tripID uuid.UUID, totalSeats int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "bus_name", "origin", "destination", "depart_date", "timing", "total_seats"}).
		AddRow(tripID.String(), "Night Express", "pune", "mumbai", time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), "22:30", totalSeats)
}

func TestReserveSeatTripNotFoundRollsBack(t *testing.T) {
	repo, mock := setupMockRepo(t)
	tripID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, bus_name, .* FROM "trips" .* FOR UPDATE`).
		WithArgs(tripID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.ReserveSeat(context.Background(), tripID, 1, uuid.New())
	if !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReserveSeatOutOfRangeRollsBack(t *testing.T) {
	repo, mock := setupMockRepo(t)
	tripID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, bus_name, .* FROM "trips" .* FOR UPDATE`).
		WithArgs(tripID, 1).
		WillReturnRows(tripRow(tripID, 10))
	mock.ExpectRollback()

	_, err := repo.ReserveSeat(context.Background(), tripID, 11, uuid.New())
	if !errors.Is(err, ErrInvalidSeat) {
		t.Fatalf("expected ErrInvalidSeat for seat beyond capacity, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReserveSeatAlreadyHeldRollsBack(t *testing.T) {
	repo, mock := setupMockRepo(t)
	tripID := uuid.New()
	holder := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, bus_name, .* FROM "trips" .* FOR UPDATE`).
		WithArgs(tripID, 1).
		WillReturnRows(tripRow(tripID, 40))
	mock.ExpectQuery(`SELECT \* FROM "reservations" WHERE trip_id = .* AND seat_number = .*`).
		WithArgs(tripID, 12, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "rider_id", "seat_number"}).
			AddRow(uuid.New().String(), tripID.String(), holder.String(), 12))
	mock.ExpectRollback()

	_, err := repo.ReserveSeat(context.Background(), tripID, 12, uuid.New())
	if !errors.Is(err, ErrSeatAlreadyHeld) {
		t.Fatalf("expected ErrSeatAlreadyHeld, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReserveSeatGuardTimeout(t *testing.T) {
	repo, mock := setupMockRepo(t)
	tripID := uuid.New()

	// The trip lock takes longer than the caller's deadline allows.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, bus_name, .* FROM "trips" .* FOR UPDATE`).
		WithArgs(tripID, 1).
		WillDelayFor(300 * time.Millisecond).
		WillReturnRows(tripRow(tripID, 10))
	mock.ExpectRollback()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := repo.ReserveSeat(ctx, tripID, 1, uuid.New())
	if !errors.Is(err, ErrReservationTimeout) {
		t.Fatalf("expected ErrReservationTimeout, got %v", err)
	}
}

func TestHeldSeatsAscending(t *testing.T) {
	repo, mock := setupMockRepo(t)
	tripID := uuid.New()

	mock.ExpectQuery(`SELECT "seat_number" FROM "reservations" WHERE trip_id = .* ORDER BY seat_number`).
		WithArgs(tripID).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).
			AddRow(2).AddRow(5).AddRow(9))

	seats, err := repo.HeldSeats(context.Background(), tripID)
	if err != nil {
		t.Fatalf("held seats failed: %v", err)
	}
	want := []int{2, 5, 9}
	if len(seats) != len(want) {
		t.Fatalf("held seats = %v, want %v", seats, want)
	}
	for i := range want {
		if seats[i] != want[i] {
			t.Fatalf("held seats = %v, want %v", seats, want)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTripCapacity(t *testing.T) {
	repo, mock := setupMockRepo(t)
	tripID := uuid.New()

	mock.ExpectQuery(`SELECT "?total_seats"? FROM "trips" WHERE id = .*`).
		WithArgs(tripID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"total_seats"}).AddRow(40))

	total, err := repo.TripCapacity(context.Background(), tripID)
	if err != nil {
		t.Fatalf("trip capacity failed: %v", err)
	}
	if total != 40 {
		t.Fatalf("total seats = %d, want 40", total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTripCapacityUnknownTrip(t *testing.T) {
	repo, mock := setupMockRepo(t)
	tripID := uuid.New()

	mock.ExpectQuery(`SELECT "?total_seats"? FROM "trips" WHERE id = .*`).
		WithArgs(tripID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"total_seats"}))

	_, err := repo.TripCapacity(context.Background(), tripID)
	if !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
