// Package di provides dependency injection for service implementations.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/backends"
	"github.com/aristath/quantumlab/internal/config"
	"github.com/aristath/quantumlab/internal/events"
	"github.com/aristath/quantumlab/internal/modules/circuits"
	"github.com/aristath/quantumlab/internal/modules/exercises"
	"github.com/aristath/quantumlab/internal/modules/settings"
)

// InitializeServices creates all services and stores them in the container
// Services are created in dependency order to ensure all dependencies exist
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Event bus and manager (pub/sub backbone, used by every emitting service)
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	// Settings service (needs settings repository)
	container.SettingsService = settings.NewService(container.SettingsRepo, log)

	// Settings DB values take precedence over environment variables.
	cfg.UpdateFromSettings(container.SettingsService)

	// Backend registry with the local state-vector simulator
	container.Registry = backends.NewRegistry()
	container.Registry.Register(backends.NewStateVectorBackend(cfg.MaxQubits, log))

	if err := container.Registry.SetDefault(container.SettingsService.DefaultBackend()); err != nil {
		log.Warn().Err(err).Msg("Configured default backend unknown, keeping first registered")
	}

	// Circuit service (ad-hoc execution, metrics, QASM export, result cache)
	container.CircuitService = circuits.NewService(
		container.Registry,
		container.SettingsService,
		container.RunsRepo,
		container.CacheRepo,
		container.EventManager,
		log,
	)

	// Exercise service (catalog, verification, optimization targets)
	container.ExerciseService = exercises.NewService(
		container.Registry,
		container.SettingsService,
		container.RunsRepo,
		container.EventManager,
		log,
	)

	log.Info().
		Int("max_qubits", cfg.MaxQubits).
		Str("default_backend", container.Registry.DefaultName()).
		Msg("Services initialized")

	return nil
}
