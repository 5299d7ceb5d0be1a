package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/finvault/affiliate/cmd/affiliate/container"
	"github.com/finvault/affiliate/cmd/affiliate/middleware"
	"github.com/finvault/affiliate/cmd/affiliate/routes"
	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/bootstrap"
	"github.com/finvault/affiliate/common/db"
	"github.com/finvault/affiliate/common/logger"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (DB, logger, redis, cache, telemetry).
	// The API never consumes the signup stream, so no queue here.
	components, err := bootstrap.Setup(ctx, "affiliate",
		bootstrap.WithoutQueue(),
		bootstrap.WithDBInitHook(func(database *db.DB) error {
			return database.InitSchema(ctx)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap affiliate: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	e := setupEcho(components.Logger)
	setupMiddleware(e)
	setupHealthCheck(e, components)
	registerRoutes(e, serviceContainer)

	startServer(e, components)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho(log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpErrorHandler(log)
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "affiliate",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	api := e.Group("/api/v1")
	api.Use(middleware.RequireUID())
	api.Use(middleware.RateLimit(
		serviceContainer.RateLimiter,
		serviceContainer.Components.Config.RateLimit,
	))

	routes.RegisterReflinkRoutes(api, serviceContainer)
	routes.RegisterSettlementRoutes(api, serviceContainer)
}

// startServer starts the Echo server on the configured port
func startServer(e *echo.Echo, components *bootstrap.Components) {
	port := components.Config.Service.Port
	components.Logger.Info("starting affiliate API", "port", port)

	if err := e.Start(fmt.Sprintf(":%d", port)); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// httpErrorHandler maps the error taxonomy to fixed status/code pairs
func httpErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		// Echo's own errors (404 on unknown route, 405, bad binds)
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			_ = c.JSON(httpErr.Code, map[string]any{
				"error":   http.StatusText(httpErr.Code),
				"message": fmt.Sprintf("%v", httpErr.Message),
			})
			return
		}

		kind := apperr.KindOf(err)
		status := statusForKind(kind)

		message := "internal error"
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			message = appErr.Message
		}

		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err)
			// Storage details stay out of responses
			message = "temporarily unavailable, retry later"
		}

		_ = c.JSON(status, map[string]any{
			"error":   string(kind),
			"message": message,
		})
	}
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}
