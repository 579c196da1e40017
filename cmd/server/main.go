// Package main is the entry point for the QuantumLab circuit workbench.
// The service executes educational quantum circuits on a local state-vector
// simulator, records run history, and exposes a REST plus websocket API
// for the frontend.
//
// The application follows clean architecture principles:
// - Dependency injection via DI container
// - Repository pattern for data access
// - Service layer for business logic
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/quantumlab/internal/config"
	"github.com/aristath/quantumlab/internal/di"
	"github.com/aristath/quantumlab/internal/server"
	"github.com/aristath/quantumlab/pkg/logger"
)

// main orchestrates the startup sequence:
// 1. Loads configuration from environment variables
// 2. Initializes logging
// 3. Wires all dependencies via DI container (databases, repositories, services)
// 4. Starts the maintenance scheduler
// 5. Starts the HTTP server
// 6. Waits for shutdown signal and performs graceful shutdown
//
// The application uses a 3-database architecture:
// - config.db: Application configuration (settings)
// - results.db: Run history (exercise and ad-hoc executions)
// - cache.db: Result cache, rebuildable at any time
func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.PrettyLogs,
	})

	log.Info().Msg("Starting QuantumLab")

	// Wire all dependencies using DI container
	// Databases are opened and migrated first, then repositories, services,
	// and finally the scheduler with its maintenance jobs.
	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Closing flushes WAL checkpoints, so this must run even on panic.
	defer container.Close()

	// Start maintenance scheduler (retention, cache sweep, WAL checkpoint, vacuum)
	container.Scheduler.Start()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})

	// Register job instances for manual triggering via /api/system/jobs/*
	srv.SetJobs(jobs.RunsRetention, jobs.CacheSweep, jobs.DBVacuum)

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("max_qubits", cfg.MaxQubits).
		Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop the scheduler first so no maintenance job races the shutdown.
	// Stop blocks until running jobs finish.
	container.Scheduler.Stop()

	// Graceful shutdown with up to 10 seconds for in-flight requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
