package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/modules/circuits"
	"github.com/aristath/quantumlab/internal/modules/settings"
)

// CacheSweepJob evicts stale and excess entries from the result cache.
// Runs daily; limits come from the cache_max_age_days and
// cache_max_entries settings, either can be disabled by setting it to zero.
type CacheSweepJob struct {
	log      zerolog.Logger
	cache    *circuits.CacheRepository
	settings *settings.Service
}

// NewCacheSweepJob creates a new cache sweep job
func NewCacheSweepJob(
	log zerolog.Logger,
	cache *circuits.CacheRepository,
	settingsService *settings.Service,
) *CacheSweepJob {
	return &CacheSweepJob{
		log:      log.With().Str("job", "cache_sweep").Logger(),
		cache:    cache,
		settings: settingsService,
	}
}

// Name returns the job name
func (j *CacheSweepJob) Name() string {
	return "cache_sweep"
}

// Run sweeps the result cache
func (j *CacheSweepJob) Run() error {
	maxAge := j.settings.CacheMaxAgeDays()
	maxEntries := j.settings.CacheMaxEntries()

	removed, err := j.cache.Sweep(maxAge, maxEntries)
	if err != nil {
		return fmt.Errorf("cache sweep failed: %w", err)
	}

	j.log.Info().
		Int64("removed", removed).
		Int("max_age_days", maxAge).
		Int("max_entries", maxEntries).
		Msg("Cache sweep completed")

	return nil
}
