package middleware

import (
	"net/http"
	"strconv"
	"time"

	"busline/internal/shared/utils/response"
	"busline/pkg/logger"
	"busline/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header names supplied by the identity collaborator. The values are opaque
// identifiers already verified upstream; routing trusts them as-is.
const (
	RiderIDHeader    = "X-Rider-ID"
	OperatorIDHeader = "X-Operator-ID"
)

// RequireRider extracts the verified rider identifier and stores it in the
// request context under "rider_id".
func RequireRider() gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID, err := uuid.Parse(c.GetHeader(RiderIDHeader))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "Missing or invalid rider identifier", nil)
			c.Abort()
			return
		}
		c.Set("rider_id", riderID)
		c.Next()
	}
}

// RequireOperator extracts the verified operator identifier and stores it in
// the request context under "operator_id".
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		operatorID, err := uuid.Parse(c.GetHeader(OperatorIDHeader))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "Missing or invalid operator identifier", nil)
			c.Abort()
			return
		}
		c.Set("operator_id", operatorID)
		c.Next()
	}
}

// RiderID returns the rider identifier set by RequireRider.
func RiderID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("rider_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// RequestLogger logs every request with method, path, status and duration.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.LogHTTPRequest(c, time.Since(start))
	}
}

// RateLimit enforces the given limit type per client IP. When the limiter
// itself fails the request is allowed through: rate limiting is protective,
// not load-bearing.
func RateLimit(limiter *ratelimit.RateLimiter, limitType ratelimit.RateLimitType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		result, err := limiter.IsAllowed(c.Request.Context(), c.ClientIP(), limitType)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
