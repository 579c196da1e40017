package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/events"
	"github.com/aristath/quantumlab/internal/modules/runs"
	"github.com/aristath/quantumlab/internal/modules/settings"
)

// RunsRetentionJob purges run history older than the configured retention
// window. Runs daily; the window is the runs_retention_days setting.
type RunsRetentionJob struct {
	log      zerolog.Logger
	runs     *runs.Repository
	settings *settings.Service
	events   *events.Manager
}

// NewRunsRetentionJob creates a new run retention job
func NewRunsRetentionJob(
	log zerolog.Logger,
	runsRepo *runs.Repository,
	settingsService *settings.Service,
	eventManager *events.Manager,
) *RunsRetentionJob {
	return &RunsRetentionJob{
		log:      log.With().Str("job", "runs_retention").Logger(),
		runs:     runsRepo,
		settings: settingsService,
		events:   eventManager,
	}
}

// Name returns the job name
func (j *RunsRetentionJob) Name() string {
	return "runs_retention"
}

// Run purges runs past the retention window. A window of zero or less
// means history is kept forever.
func (j *RunsRetentionJob) Run() error {
	days := j.settings.RetentionDays()
	if days <= 0 {
		j.log.Debug().Msg("Retention disabled, keeping all runs")
		return nil
	}

	removed, err := j.runs.PurgeOlderThan(days)
	if err != nil {
		return fmt.Errorf("retention purge failed: %w", err)
	}

	if removed > 0 {
		j.events.EmitTyped(events.RunsPurged, "scheduler", &events.RunsPurgedData{
			Removed:       int(removed),
			RetentionDays: days,
		})
	}

	j.log.Info().
		Int64("removed", removed).
		Int("retention_days", days).
		Msg("Run retention completed")

	return nil
}
