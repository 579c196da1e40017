package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/database"
)

// DBVacuumJob performs weekly deep maintenance: an integrity check
// followed by VACUUM and ANALYZE on every application database.
//
// Corruption in config.db or results.db is critical and reported as a
// job failure. The result cache holds only recomputable data, so a
// corrupt cache.db is logged and left for the operator to delete.
type DBVacuumJob struct {
	log      zerolog.Logger
	configDB *database.DB
	resultDB *database.DB
	cacheDB  *database.DB
}

// NewDBVacuumJob creates a new database vacuum job
func NewDBVacuumJob(log zerolog.Logger, configDB, resultDB, cacheDB *database.DB) *DBVacuumJob {
	return &DBVacuumJob{
		log:      log.With().Str("job", "db_vacuum").Logger(),
		configDB: configDB,
		resultDB: resultDB,
		cacheDB:  cacheDB,
	}
}

// Name returns the job name
func (j *DBVacuumJob) Name() string {
	return "db_vacuum"
}

// Run executes the maintenance pass
func (j *DBVacuumJob) Run() error {
	j.log.Info().Msg("Starting database maintenance")
	startTime := time.Now()

	for _, db := range []*database.DB{j.configDB, j.resultDB} {
		if db == nil {
			continue
		}

		if err := j.checkIntegrity(db); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Database integrity check failed")
			return fmt.Errorf("database %s is corrupted: %w", db.Name(), err)
		}

		j.vacuum(db)
	}

	if j.cacheDB != nil {
		if err := j.checkIntegrity(j.cacheDB); err != nil {
			j.log.Warn().
				Err(err).
				Str("database", j.cacheDB.Name()).
				Str("path", j.cacheDB.Path()).
				Msg("Result cache is corrupted, delete the file to rebuild it")
		} else {
			j.vacuum(j.cacheDB)
		}
	}

	j.log.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Database maintenance completed")

	return nil
}

// checkIntegrity runs SQLite's PRAGMA integrity_check
func (j *DBVacuumJob) checkIntegrity(db *database.DB) error {
	var result string
	if err := db.Conn().QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}

	return nil
}

// vacuum reclaims space and refreshes the query planner statistics.
// Failures are logged only, a skipped VACUUM costs disk space, not data.
func (j *DBVacuumJob) vacuum(db *database.DB) {
	start := time.Now()

	if _, err := db.Conn().Exec("VACUUM"); err != nil {
		j.log.Warn().Err(err).Str("database", db.Name()).Msg("VACUUM failed")
		return
	}

	if _, err := db.Conn().Exec("ANALYZE"); err != nil {
		j.log.Warn().Err(err).Str("database", db.Name()).Msg("ANALYZE failed")
		return
	}

	j.log.Debug().
		Str("database", db.Name()).
		Dur("duration", time.Since(start)).
		Msg("Database vacuumed")
}
