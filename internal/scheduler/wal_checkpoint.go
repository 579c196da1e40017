package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/database"
)

// WALCheckpointJob runs a passive WAL checkpoint on every application
// database. Runs hourly as a safety net behind SQLite's autocheckpoint,
// and warns when a WAL file keeps growing past it.
type WALCheckpointJob struct {
	log       zerolog.Logger
	databases []*database.DB
}

// NewWALCheckpointJob creates a new WAL checkpoint job
func NewWALCheckpointJob(log zerolog.Logger, databases ...*database.DB) *WALCheckpointJob {
	return &WALCheckpointJob{
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
		databases: databases,
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints each database. Checkpoint failures are logged rather
// than returned so one locked database does not skip the others.
func (j *WALCheckpointJob) Run() error {
	for _, db := range j.databases {
		if db == nil {
			continue
		}

		var busy, frames, checkpointed int
		err := db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
		if err != nil {
			j.log.Warn().
				Err(err).
				Str("database", db.Name()).
				Msg("Failed to checkpoint WAL")
			continue
		}

		if frames > 1000 {
			j.log.Warn().
				Str("database", db.Name()).
				Int("wal_frames", frames).
				Int("checkpointed", checkpointed).
				Msg("WAL file is large")
		} else {
			j.log.Debug().
				Str("database", db.Name()).
				Int("wal_frames", frames).
				Msg("WAL checkpoint OK")
		}
	}

	return nil
}
