package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busline/api/routes"
	"busline/internal/notifications"
	"busline/internal/scheduler"
	"busline/internal/shared/config"
	"busline/internal/shared/database"
	"busline/internal/shared/validation"
	"busline/pkg/logger"
	"busline/pkg/ratelimit"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		appLogger.Info("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	if err := validation.Register(); err != nil {
		appLogger.Error("failed to register validators", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect to storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Reservation-event producer; falls back to log-only when Kafka is off.
	var producer notifications.Producer
	if cfg.Kafka.Enabled {
		producer, err = notifications.NewKafkaProducer(&notifications.KafkaProducerConfig{
			Brokers:          cfg.Kafka.Brokers,
			Topic:            cfg.Kafka.Topic,
			DeadLetterTopic:  cfg.Kafka.DeadLetterTopic,
			RetryMax:         cfg.Kafka.RetryMax,
			Timeout:          cfg.Kafka.Timeout,
			RequiredAcks:     sarama.WaitForAll,
			IdempotentWrites: true,
		}, appLogger)
		if err != nil {
			appLogger.Error("failed to create Kafka producer, falling back to log producer", slog.Any("error", err))
			producer = notifications.NewLogProducer(appLogger)
		}
	} else {
		producer = notifications.NewLogProducer(appLogger)
	}
	defer producer.Close()

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.GetRedis() != nil {
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedis(), &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			PublicRequests:  cfg.RateLimit.PublicRequests,
			BookingRequests: cfg.RateLimit.BookingRequests,
			AdminRequests:   cfg.RateLimit.AdminRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("booking_requests", cfg.RateLimit.BookingRequests),
		)
	}

	router := routes.NewRouter(cfg, db, producer, rateLimiter, appLogger)

	engine := gin.New()
	router.SetupMiddleware(engine)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Rider-ID", "X-Operator-ID"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))
	router.SetupRoutes(engine)

	// Recurrence sweeper runs independently of the HTTP surface.
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()

	var sweeper *scheduler.Sweeper
	if cfg.Scheduler.Enabled {
		sweeper = scheduler.NewSweeper(router.TripService, router.ReservationService, &scheduler.Config{
			SweepInterval: cfg.Scheduler.SweepInterval,
			TripTimeout:   cfg.Scheduler.TripTimeout,
		}, appLogger)
		sweeper.Start(schedulerCtx)
		defer sweeper.Stop()
	}

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("busline backend listening",
			slog.String("port", cfg.Port),
			slog.String("version", Version),
			slog.String("build_time", BuildTime),
			slog.String("git_commit", GitCommit),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("forced shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Println("server exited")
}
