package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/finvault/affiliate/common/config"
	"github.com/finvault/affiliate/common/ratelimit"
)

// RateLimit enforces the global and per-user fixed-window limits. It runs
// after RequireUID so the per-user check can key on the uid. A limiter
// failure (redis down) fails open: read availability beats strictness here.
func RateLimit(limiter *ratelimit.RateLimiter, cfg config.RateLimitConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Enabled || limiter == nil {
				return next(c)
			}

			ctx := c.Request().Context()

			result, err := limiter.CheckGlobalLimit(ctx, cfg.GlobalLimit, cfg.WindowSec)
			if err == nil && !result.Allowed {
				return tooManyRequests(c, result)
			}

			if uid := GetUID(c); uid > 0 {
				result, err = limiter.CheckUserLimit(ctx, uid, cfg.UserLimit, cfg.WindowSec)
				if err == nil && !result.Allowed {
					return tooManyRequests(c, result)
				}
			}

			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, result *ratelimit.Result) error {
	c.Response().Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
	return c.JSON(http.StatusTooManyRequests, map[string]any{
		"error":       "RATE_LIMITED",
		"message":     "too many requests",
		"retry_after": result.RetryAfterSeconds,
	})
}
