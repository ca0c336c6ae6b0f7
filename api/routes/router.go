// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"busline/internal/notifications"
	"busline/internal/reservations"
	"busline/internal/shared/config"
	"busline/internal/shared/database"
	"busline/internal/shared/middleware"
	"busline/internal/trips"
	"busline/pkg/cache"
	"busline/pkg/logger"
	"busline/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	producer notifications.Producer
	limiter  *ratelimit.RateLimiter
	log      *logger.Logger

	// TripService is exposed so the recurrence sweeper can share it.
	TripService trips.Service

	// ReservationService is exposed for the same reason.
	ReservationService reservations.Service
}

// NewRouter creates a new router instance and wires the domain services.
func NewRouter(cfg *config.Config, db *database.DB, producer notifications.Producer, limiter *ratelimit.RateLimiter, log *logger.Logger) *Router {
	r := &Router{
		config:   cfg,
		db:       db,
		producer: producer,
		limiter:  limiter,
		log:      log,
	}

	var cacheService cache.Service
	if db.GetRedis() != nil {
		cacheService = cache.NewService(db.GetRedis())
	}

	reservationRepo := reservations.NewRepository(db.GetPostgreSQL())
	inventory := reservations.NewInventory(reservationRepo, cacheService, cfg.Redis.SeatMapTTL)
	r.ReservationService = reservations.NewService(
		reservationRepo, inventory, producer, log, cfg.Reservation.GuardTimeout)

	tripRepo := trips.NewRepository(db.GetPostgreSQL())
	r.TripService = trips.NewService(tripRepo, producer, log, inventory)

	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		trips.SetupTripRoutes(api, trips.NewController(r.TripService), r.limiter)
		reservations.SetupReservationRoutes(api, reservations.NewController(r.ReservationService), r.limiter)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "busline-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "busline-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}

// SetupMiddleware attaches the global middleware chain.
func (r *Router) SetupMiddleware(engine *gin.Engine) {
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.log))
}
