package trips

import (
	"errors"
	"net/http"

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

// Create handles POST /api/v1/trips
func (c *Controller) Create(ctx *gin.Context) {
	var req CreateTripRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	trip, err := c.service.CreateTrip(ctx.Request.Context(), req)
	if err != nil {
		respondTripError(ctx, err)
		return
	}

	response.Success(ctx, http.StatusCreated, "Trip created successfully", trip.ToResponse())
}

// Get handles GET /api/v1/trips/:id
func (c *Controller) Get(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid trip ID", nil)
		return
	}

	trip, err := c.service.GetTrip(ctx.Request.Context(), id)
	if err != nil {
		respondTripError(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Trip fetched successfully", trip.ToResponse())
}

// List handles GET /api/v1/trips with optional origin/destination/date filters
func (c *Controller) List(ctx *gin.Context) {
	var query TripListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	trips, err := c.service.ListTrips(ctx.Request.Context(), query)
	if err != nil {
		respondTripError(ctx, err)
		return
	}

	responses := make([]TripResponse, 0, len(trips))
	for i := range trips {
		responses = append(responses, trips[i].ToResponse())
	}
	response.Success(ctx, http.StatusOK, "Trips fetched successfully", responses)
}

// Update handles PUT /api/v1/trips/:id
func (c *Controller) Update(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid trip ID", nil)
		return
	}

	var req UpdateTripRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	trip, err := c.service.UpdateTrip(ctx.Request.Context(), id, req)
	if err != nil {
		respondTripError(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Trip updated successfully", trip.ToResponse())
}

// UpdateCapacity handles PUT /api/v1/trips/:id/capacity
func (c *Controller) UpdateCapacity(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid trip ID", nil)
		return
	}

	var req UpdateCapacityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if err := c.service.UpdateCapacity(ctx.Request.Context(), id, req.TotalSeats); err != nil {
		respondTripError(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Trip capacity updated successfully", nil)
}

// Delete handles DELETE /api/v1/trips/:id
func (c *Controller) Delete(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid trip ID", nil)
		return
	}

	if err := c.service.DeleteTrip(ctx.Request.Context(), id); err != nil {
		respondTripError(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Trip deleted successfully", nil)
}

func respondTripError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrDuplicateTrip):
		response.Error(ctx, http.StatusConflict, "Trip already exists", nil)
	case errors.Is(err, ErrTripNotFound):
		response.Error(ctx, http.StatusNotFound, "Trip not found", nil)
	case errors.Is(err, ErrCapacityBelowReserved):
		response.Error(ctx, http.StatusConflict, "Capacity below reserved seat count", nil)
	default:
		response.Error(ctx, http.StatusInternalServerError, "Internal server error", nil)
	}
}
