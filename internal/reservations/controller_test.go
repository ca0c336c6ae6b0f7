package reservations

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"busline/internal/shared/middleware"
	"busline/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(repo *fakeRepo) *gin.Engine {
	svc := NewService(repo, NewInventory(repo, nil, time.Second), &fakeProducer{}, logger.New(), time.Second)
	controller := NewController(svc)

	router := gin.New()
	api := router.Group("/api/v1")
	SetupReservationRoutes(api, controller, nil)
	return router
}

func postReserve(router *gin.Engine, tripID string, riderID uuid.UUID, seat int) *httptest.ResponseRecorder {
	body := bytes.NewBufferString(fmt.Sprintf(`{"seat_number": %d}`, seat))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/trips/"+tripID+"/reservations", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RiderIDHeader, riderID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestReserveEndpointStatusCodes(t *testing.T) {
	repo := newFakeRepo()
	tripID := repo.addTrip(10)
	router := setupTestRouter(repo)
	rider := uuid.New()

	if rec := postReserve(router, tripID.String(), rider, 3); rec.Code != http.StatusCreated {
		t.Fatalf("fresh seat should give 201, got %d: %s", rec.Code, rec.Body)
	}
	if rec := postReserve(router, tripID.String(), uuid.New(), 3); rec.Code != http.StatusConflict {
		t.Fatalf("held seat should give 409, got %d", rec.Code)
	}
	if rec := postReserve(router, tripID.String(), rider, 0); rec.Code != http.StatusBadRequest {
		t.Fatalf("seat 0 should give 400, got %d", rec.Code)
	}
	if rec := postReserve(router, tripID.String(), rider, 11); rec.Code != http.StatusBadRequest {
		t.Fatalf("seat beyond capacity should give 400, got %d", rec.Code)
	}
	if rec := postReserve(router, uuid.NewString(), rider, 1); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown trip should give 404, got %d", rec.Code)
	}
	if rec := postReserve(router, "not-a-uuid", rider, 1); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed trip id should give 400, got %d", rec.Code)
	}
}

func TestReserveEndpointRequiresRider(t *testing.T) {
	repo := newFakeRepo()
	tripID := repo.addTrip(10)
	router := setupTestRouter(repo)

	body := bytes.NewBufferString(`{"seat_number": 1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/trips/"+tripID.String()+"/reservations", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing rider header should give 401, got %d", rec.Code)
	}
}

func TestReleaseEndpointStatusCodes(t *testing.T) {
	repo := newFakeRepo()
	tripID := repo.addTrip(10)
	otherTrip := repo.addTrip(10)
	router := setupTestRouter(repo)
	rider := uuid.New()

	reservation, err := repo.ReserveSeat(context.Background(), tripID, 5, rider)
	if err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	release := func(trip, res string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/trips/"+trip+"/reservations/"+res, nil)
		req.Header.Set(middleware.RiderIDHeader, rider.String())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	if rec := release(otherTrip.String(), reservation.ID.String()); rec.Code != http.StatusBadRequest {
		t.Fatalf("trip mismatch should give 400, got %d", rec.Code)
	}
	if rec := release(tripID.String(), reservation.ID.String()); rec.Code != http.StatusOK {
		t.Fatalf("release should give 200, got %d", rec.Code)
	}
	if rec := release(tripID.String(), reservation.ID.String()); rec.Code != http.StatusNotFound {
		t.Fatalf("repeated release should give 404, got %d", rec.Code)
	}
}

func TestSeatMapEndpoint(t *testing.T) {
	repo := newFakeRepo()
	tripID := repo.addTrip(4)
	router := setupTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips/"+tripID.String()+"/seats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("seat map should give 200, got %d", rec.Code)
	}
}
