package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"sulestate/internal/infrastructure/ratelimit"
	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
	"sulestate/pkg/response"
)

// RateLimit throttles an action per client IP. Rejections carry Retry-After
// in whole seconds.
func RateLimit(limiter ratelimit.Limiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}

			ip := c.RealIP()
			allowed, retryAfter := limiter.Allow(ip, action)
			if !allowed {
				logger.Warn("RATE LIMIT: %s blocked for %s (retry in %v)", action, ip, retryAfter)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retrySeconds(retryAfter)))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded, please try again later"))
			}

			return next(c)
		}
	}
}

func retrySeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
