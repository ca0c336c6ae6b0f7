package reservations

import (
	"errors"
	"net/http"

	"busline/internal/shared/middleware"
	"busline/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// Reserve handles POST /api/v1/trips/:id/reservations
func (c *Controller) Reserve(ctx *gin.Context) {
	tripID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid trip ID", nil)
		return
	}

	riderID, ok := middleware.RiderID(ctx)
	if !ok {
		response.Error(ctx, http.StatusUnauthorized, "Rider not identified", nil)
		return
	}

	var req ReserveSeatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	reservation, err := c.service.Reserve(ctx.Request.Context(), tripID, req.SeatNumber, riderID)
	if err != nil {
		respondReservationError(ctx, err)
		return
	}

	response.Success(ctx, http.StatusCreated, "Seat reserved successfully", reservation.ToResponse())
}

// Release handles DELETE /api/v1/trips/:id/reservations/:reservationId
func (c *Controller) Release(ctx *gin.Context) {
	tripID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid trip ID", nil)
		return
	}

	reservationID, err := uuid.Parse(ctx.Param("reservationId"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid reservation ID", nil)
		return
	}

	if err := c.service.Release(ctx.Request.Context(), tripID, reservationID); err != nil {
		respondReservationError(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Reservation released successfully", nil)
}

// SeatMap handles GET /api/v1/trips/:id/seats
func (c *Controller) SeatMap(ctx *gin.Context) {
	tripID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid trip ID", nil)
		return
	}

	seatMap, err := c.service.Inventory().SeatMap(ctx.Request.Context(), tripID)
	if err != nil {
		respondReservationError(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Seat map fetched successfully", seatMap)
}

// FreeSeats handles GET /api/v1/trips/:id/free-seats
func (c *Controller) FreeSeats(ctx *gin.Context) {
	tripID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid trip ID", nil)
		return
	}

	free, err := c.service.Inventory().FreeSeats(ctx.Request.Context(), tripID)
	if err != nil {
		respondReservationError(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Free seats fetched successfully", FreeSeatsResponse{
		TripID:    tripID.String(),
		FreeSeats: free,
	})
}

// ListMine handles GET /api/v1/reservations
func (c *Controller) ListMine(ctx *gin.Context) {
	riderID, ok := middleware.RiderID(ctx)
	if !ok {
		response.Error(ctx, http.StatusUnauthorized, "Rider not identified", nil)
		return
	}

	list, err := c.service.ListForRider(ctx.Request.Context(), riderID)
	if err != nil {
		respondReservationError(ctx, err)
		return
	}

	responses := make([]ReservationResponse, 0, len(list))
	for i := range list {
		responses = append(responses, list[i].ToResponse())
	}
	response.Success(ctx, http.StatusOK, "Reservations fetched successfully", responses)
}

// Get handles GET /api/v1/reservations/:reservationId
func (c *Controller) Get(ctx *gin.Context) {
	reservationID, err := uuid.Parse(ctx.Param("reservationId"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid reservation ID", nil)
		return
	}

	reservation, err := c.service.GetReservation(ctx.Request.Context(), reservationID)
	if err != nil {
		respondReservationError(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Reservation fetched successfully", reservation.ToResponse())
}

// respondReservationError maps taxonomy sentinels to HTTP statuses.
func respondReservationError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidSeat):
		response.Error(ctx, http.StatusBadRequest, "Seat number out of range", nil)
	case errors.Is(err, ErrSeatAlreadyHeld):
		response.Error(ctx, http.StatusConflict, "Seat already held", nil)
	case errors.Is(err, ErrReservationNotFound):
		response.Error(ctx, http.StatusNotFound, "Reservation not found", nil)
	case errors.Is(err, ErrTripMismatch):
		response.Error(ctx, http.StatusBadRequest, "Reservation does not belong to the given trip", nil)
	case errors.Is(err, ErrTripNotFound):
		response.Error(ctx, http.StatusNotFound, "Trip not found", nil)
	case errors.Is(err, ErrReservationTimeout):
		response.Error(ctx, http.StatusRequestTimeout, "Reservation timed out, please retry", nil)
	case errors.Is(err, ErrStorageUnavailable):
		response.Error(ctx, http.StatusServiceUnavailable, "Storage temporarily unavailable", nil)
	default:
		response.Error(ctx, http.StatusInternalServerError, "Internal server error", nil)
	}
}
