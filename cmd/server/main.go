package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/praxis/server/internal/app"
	"github.com/praxis/server/internal/shared/logger"
)

func main() {
	log := logger.New(nil)

	// Load configuration
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}
	log = logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	application, err := app.New(cfg)
	if err != nil {
		log.Error("failed to initialize application", logger.Err(err))
		os.Exit(1)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      application.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("starting server", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", logger.Err(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Drain in-flight requests before closing the pools they use.
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("server forced to shutdown", logger.Err(err))
	}
	application.Stop()

	log.Info("server exited")
}
