package middleware

import (
	"math"

	"github.com/gin-gonic/gin"

	"fuelops/internal/core/apperror"
	"fuelops/internal/infrastructure/ratelimit"
	"fuelops/pkg/logger"
)

// RateLimit throttles requests per client IP. Limiter failures let the
// request through.
func RateLimit(limiter ratelimit.Limiter, bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bucket + ":" + c.ClientIP()
		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "bucket", bucket, "error", err)
			c.Next()
			return
		}
		if !allowed {
			_ = c.Error(apperror.NewRateLimited(int(math.Ceil(retryAfter.Seconds()))))
			c.Abort()
			return
		}
		c.Next()
	}
}
