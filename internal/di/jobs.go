// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/scheduler"
)

// JobInstances holds job references for manual triggering via API
type JobInstances struct {
	RunsRetention *scheduler.RunsRetentionJob
	CacheSweep    *scheduler.CacheSweepJob
	WALCheckpoint *scheduler.WALCheckpointJob
	DBVacuum      *scheduler.DBVacuumJob
}

// Maintenance schedules. Six-field cron expressions, seconds first.
// Retention and sweep run in the small hours; the WAL checkpoint keeps
// the write-ahead logs bounded between them.
const (
	scheduleRunsRetention = "0 10 3 * * *"   // 03:10 daily
	scheduleCacheSweep    = "0 30 3 * * *"   // 03:30 daily
	scheduleWALCheckpoint = "@hourly"        // Every hour
	scheduleDBVacuum      = "0 0 4 * * SUN"  // 04:00 Sundays
)

// RegisterJobs creates the maintenance jobs and registers them with the
// scheduler. Returns JobInstances for manual triggering via API.
func RegisterJobs(container *Container, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(log)

	instances := &JobInstances{
		RunsRetention: scheduler.NewRunsRetentionJob(log, container.RunsRepo, container.SettingsService, container.EventManager),
		CacheSweep:    scheduler.NewCacheSweepJob(log, container.CacheRepo, container.SettingsService),
		WALCheckpoint: scheduler.NewWALCheckpointJob(log, container.ConfigDB, container.ResultsDB, container.CacheDB),
		DBVacuum:      scheduler.NewDBVacuumJob(log, container.ConfigDB, container.ResultsDB, container.CacheDB),
	}

	for _, reg := range []struct {
		schedule string
		job      scheduler.Job
	}{
		{scheduleRunsRetention, instances.RunsRetention},
		{scheduleCacheSweep, instances.CacheSweep},
		{scheduleWALCheckpoint, instances.WALCheckpoint},
		{scheduleDBVacuum, instances.DBVacuum},
	} {
		if err := container.Scheduler.AddJob(reg.schedule, reg.job); err != nil {
			return nil, fmt.Errorf("failed to register %s job: %w", reg.job.Name(), err)
		}
	}

	return instances, nil
}
