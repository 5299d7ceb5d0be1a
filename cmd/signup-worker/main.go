package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/finvault/affiliate/cmd/signup-worker/consumer"
	"github.com/finvault/affiliate/cmd/signup-worker/registrar"
	"github.com/finvault/affiliate/common/bootstrap"
	"github.com/finvault/affiliate/common/db"
	"github.com/finvault/affiliate/common/repository"
	"github.com/finvault/affiliate/common/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap service components (DB, redis, stream queue)
	components, err := bootstrap.Setup(ctx, "signup-worker",
		bootstrap.WithoutCache(),
		bootstrap.WithDBInitHook(func(database *db.DB) error {
			return database.InitSchema(ctx)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup service: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	components.Logger.Info("signup-worker starting")

	reflinkRepo := repository.NewReflinkRepository(components.DB)
	affiliationRepo := repository.NewAffiliationRepository(components.DB)

	reg := registrar.New(reflinkRepo, affiliationRepo, components.Logger)

	signupConsumer := consumer.New(
		components.Queue,
		components.Redis,
		reg,
		components.Config.Queue.SignupStream,
		components.Config.Queue.DedupTTL,
		components.Logger,
	)

	// Start consumer in goroutine
	errChan := make(chan error, 2)
	go func() {
		if err := signupConsumer.Run(ctx); err != nil && err != context.Canceled {
			errChan <- fmt.Errorf("signup consumer error: %w", err)
		}
	}()

	// Health endpoint for liveness probes
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := components.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unhealthy"}`)
			return
		}
		server.HealthHandler()(w, r)
	})

	healthServer := server.New("signup-worker", components.Config.Service.Port, mux, components.Logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil {
			errChan <- fmt.Errorf("health server error: %w", err)
		}
	}()

	components.Logger.Info("signup-worker started successfully",
		"stream", components.Config.Queue.SignupStream,
		"group", components.Config.Queue.SignupGroup)

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		components.Logger.Error("worker failed", "error", err)
		cancel()
		os.Exit(1)
	case sig := <-sigChan:
		components.Logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}

	components.Logger.Info("signup-worker shutting down gracefully")
}
