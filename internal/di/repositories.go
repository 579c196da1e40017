// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/modules/circuits"
	"github.com/aristath/quantumlab/internal/modules/runs"
	"github.com/aristath/quantumlab/internal/modules/settings"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Settings repository (needs configDB)
	container.SettingsRepo = settings.NewRepository(
		container.ConfigDB.Conn(),
		log,
	)

	// Runs repository (needs resultsDB)
	container.RunsRepo = runs.NewRepository(
		container.ResultsDB.Conn(),
		log,
	)

	// Result cache repository (needs cacheDB)
	container.CacheRepo = circuits.NewCacheRepository(
		container.CacheDB.Conn(),
		log,
	)

	log.Debug().Msg("Repositories initialized")

	return nil
}
