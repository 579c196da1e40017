// Package di provides dependency injection type definitions.
//
// The Container is the single source of truth for all service instances
// and is passed to the HTTP server for handler access.
package di

import (
	"github.com/aristath/quantumlab/internal/backends"
	"github.com/aristath/quantumlab/internal/database"
	"github.com/aristath/quantumlab/internal/events"
	"github.com/aristath/quantumlab/internal/modules/circuits"
	"github.com/aristath/quantumlab/internal/modules/exercises"
	"github.com/aristath/quantumlab/internal/modules/runs"
	"github.com/aristath/quantumlab/internal/modules/settings"
	"github.com/aristath/quantumlab/internal/scheduler"
)

// Container holds all dependencies for the application.
//
// Created by Wire() in dependency order: databases first, then
// repositories, services, and finally the scheduler with its jobs.
type Container struct {
	// Databases (3-database architecture)
	// Each database uses SQLite with WAL mode and profile-specific PRAGMAs
	ConfigDB  *database.DB // Application configuration (settings)
	ResultsDB *database.DB // Run history (one row per execution, msgpack payload)
	CacheDB   *database.DB // Ephemeral result cache (keyed by circuit hash)

	// Events - pub/sub backbone
	EventBus     *events.Bus
	EventManager *events.Manager

	// Backends - circuit executors
	Registry *backends.Registry

	// Repositories - data access layer
	SettingsRepo *settings.Repository
	RunsRepo     *runs.Repository
	CacheRepo    *circuits.CacheRepository

	// Services - business logic layer
	SettingsService *settings.Service
	CircuitService  *circuits.Service
	ExerciseService *exercises.Service

	// Scheduler - cron-driven maintenance jobs
	Scheduler *scheduler.Scheduler
}

// Close releases every database connection. Safe to call on a partially
// wired container.
func (c *Container) Close() {
	for _, db := range []*database.DB{c.CacheDB, c.ResultsDB, c.ConfigDB} {
		if db != nil {
			db.Close()
		}
	}
}
