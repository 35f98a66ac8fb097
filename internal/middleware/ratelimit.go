package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/ratelimit"
)

// Limiter is the part of ratelimit.Limiter the middleware needs.
type Limiter interface {
	Allow(key string) ratelimit.Result
}

// RateLimit throttles requests per client IP. Every response carries the
// RateLimit-* headers; rejected ones also get Retry-After and message.
func RateLimit(limiter Limiter, message string) gin.HandlerFunc {
	rejected := apperrors.WithMessage(apperrors.ErrRateLimited, message)
	if message == "" {
		rejected = apperrors.ErrRateLimited
	}

	return func(c *gin.Context) {
		res := limiter.Allow(c.ClientIP())

		h := c.Writer.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
		h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(ceilSeconds(time.Until(res.ResetAt))))

		if !res.Allowed {
			h.Set("Retry-After", strconv.Itoa(ceilSeconds(res.RetryAfter)))
			logger.Get().Warnw("rate limit exceeded",
				"client_ip", c.ClientIP(),
				"path", c.Request.URL.Path,
			)
			abortWithError(c, rejected)
			return
		}
		c.Next()
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
