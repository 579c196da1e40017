// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/config"
	"github.com/aristath/quantumlab/internal/database"
)

// InitializeDatabases opens all 3 databases and applies schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. config.db - Application configuration (settings)
	configDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "config.db"),
		Profile: database.ProfileStandard,
		Name:    "config",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config database: %w", err)
	}
	container.ConfigDB = configDB

	// 2. results.db - Run history (exercise and ad-hoc executions)
	resultsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "results.db"),
		Profile: database.ProfileStandard,
		Name:    "results",
	})
	if err != nil {
		configDB.Close()
		return nil, fmt.Errorf("failed to initialize results database: %w", err)
	}
	container.ResultsDB = resultsDB

	// 3. cache.db - Result cache, rebuildable at any time
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache, // Maximum speed for ephemeral data
		Name:    "cache",
	})
	if err != nil {
		configDB.Close()
		resultsDB.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	// Apply schemas to all databases (single source of truth)
	for _, db := range []*database.DB{configDB, resultsDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Msg("All databases initialized and schemas applied")

	return container, nil
}
