package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/finvault/affiliate/common/apperr"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UIDKey is the context key for storing the authenticated user id
	UIDKey ContextKey = "uid"
)

// RequireUID extracts the X-User-ID header as an int64 uid and stores it
// in the request context. The gateway in front of this service resolves
// the session; by the time a request arrives here the header is trusted.
//
// Requests without a parseable uid are rejected with 401.
func RequireUID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get("X-User-ID")
			if raw == "" {
				return apperr.Unauthorized("X-User-ID header is required")
			}

			uid, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || uid < 1 {
				return apperr.Unauthorized("X-User-ID header is not a valid user id")
			}

			c.Set(string(UIDKey), uid)
			return next(c)
		}
	}
}

// GetUID retrieves the authenticated uid from the request context.
// Returns 0 if RequireUID did not run.
func GetUID(c echo.Context) int64 {
	uid := c.Get(string(UIDKey))
	if uid == nil {
		return 0
	}
	return uid.(int64)
}
