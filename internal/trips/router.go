package trips

import (
	"busline/internal/shared/middleware"
	"busline/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// SetupTripRoutes configures trip browsing and operator management routes.
func SetupTripRoutes(rg *gin.RouterGroup, controller *Controller, limiter *ratelimit.RateLimiter) {
	trips := rg.Group("/trips")
	{
		// Public browsing for riders.
		trips.GET("",
			middleware.RateLimit(limiter, ratelimit.RateLimitTypePublic),
			controller.List)
		trips.GET("/:id",
			middleware.RateLimit(limiter, ratelimit.RateLimitTypePublic),
			controller.Get)

		// Operator-managed CRUD. Capacity has a dedicated endpoint so the
		// reserved-seat guard always applies.
		operator := trips.Group("")
		operator.Use(
			middleware.RequireOperator(),
			middleware.RateLimit(limiter, ratelimit.RateLimitTypeAdmin),
		)
		{
			operator.POST("", controller.Create)
			operator.PUT("/:id", controller.Update)
			operator.PUT("/:id/capacity", controller.UpdateCapacity)
			operator.DELETE("/:id", controller.Delete)
		}
	}
}
