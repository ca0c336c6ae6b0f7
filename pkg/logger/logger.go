package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text handler in development, JSON in production.
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRiderID adds rider ID to logger context
func (l *Logger) WithRiderID(riderID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("rider_id", riderID)),
	}
}

// WithTripID adds trip ID to logger context
func (l *Logger) WithTripID(tripID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("trip_id", tripID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
	)
}

// LogReservationCreated logs a successful seat reservation
func (l *Logger) LogReservationCreated(ctx context.Context, reservationID, tripID, riderID string, seat int) {
	l.Logger.InfoContext(ctx,
		"Reservation Created",
		slog.String("reservation_id", reservationID),
		slog.String("trip_id", tripID),
		slog.String("rider_id", riderID),
		slog.Int("seat_number", seat),
	)
}

// LogReservationReleased logs a released seat reservation
func (l *Logger) LogReservationReleased(ctx context.Context, reservationID, tripID string, seat int) {
	l.Logger.InfoContext(ctx,
		"Reservation Released",
		slog.String("reservation_id", reservationID),
		slog.String("trip_id", tripID),
		slog.Int("seat_number", seat),
	)
}

// LogSweepResult logs the outcome of one recurrence sweep
func (l *Logger) LogSweepResult(ctx context.Context, reset, failed int, duration time.Duration) {
	l.Logger.InfoContext(ctx,
		"Recurrence Sweep Completed",
		slog.Int("trips_reset", reset),
		slog.Int("trips_failed", failed),
		slog.Duration("duration", duration),
	)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
