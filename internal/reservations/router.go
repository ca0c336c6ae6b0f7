package reservations

import (
	"busline/internal/shared/middleware"
	"busline/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// SetupReservationRoutes configures the rider-facing reservation routes.
func SetupReservationRoutes(rg *gin.RouterGroup, controller *Controller, limiter *ratelimit.RateLimiter) {
	trips := rg.Group("/trips")
	{
		// Seat-map reads are public display data.
		trips.GET("/:id/seats",
			middleware.RateLimit(limiter, ratelimit.RateLimitTypePublic),
			controller.SeatMap)
		trips.GET("/:id/free-seats",
			middleware.RateLimit(limiter, ratelimit.RateLimitTypePublic),
			controller.FreeSeats)

		// Mutations require an identified rider and tighter limits.
		trips.POST("/:id/reservations",
			middleware.RequireRider(),
			middleware.RateLimit(limiter, ratelimit.RateLimitTypeBooking),
			controller.Reserve)
		trips.DELETE("/:id/reservations/:reservationId",
			middleware.RequireRider(),
			middleware.RateLimit(limiter, ratelimit.RateLimitTypeBooking),
			controller.Release)
	}

	reservations := rg.Group("/reservations")
	reservations.Use(middleware.RequireRider())
	{
		reservations.GET("", controller.ListMine)
		reservations.GET("/:reservationId", controller.Get)
	}
}
