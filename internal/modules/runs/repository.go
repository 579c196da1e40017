package runs

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// runsColumns is the list of columns for the runs table, minus the blob.
// Listings never decode payloads; Get adds result_blob separately.
const runsColumns = `id, source, backend, qubits, ops, shots, depth, t_count, t_depth, readout, duration_ms, created_at`

// Repository handles run history database operations on results.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new runs repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

// Create inserts a run row. A missing ID gets a fresh UUID and a zero
// CreatedAt gets the current time; both are written back to the struct.
func (r *Repository) Create(run *Run, payload *ResultPayload) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	var blob []byte
	if payload != nil {
		encoded, err := msgpack.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode result payload: %w", err)
		}
		blob = encoded
	}

	query := `
		INSERT INTO runs
		(id, source, backend, qubits, ops, shots, depth, t_count, t_depth,
		 readout, duration_ms, result_blob, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.Source,
		run.Backend,
		run.Qubits,
		run.Ops,
		run.Shots,
		run.Depth,
		run.TCount,
		run.TDepth,
		run.Readout,
		run.DurationMs,
		blob,
		run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	r.log.Debug().
		Str("run_id", run.ID).
		Str("source", run.Source).
		Int("qubits", run.Qubits).
		Msg("Run recorded")

	return nil
}

// List retrieves run summaries, most recent first. An empty source
// matches everything; limit <= 0 falls back to 50.
func (r *Repository) List(source string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + runsColumns + " FROM runs"
	args := []interface{}{}
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var result []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		result = append(result, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return result, nil
}

// Get retrieves one run with its decoded result payload.
// Returns nil if the run doesn't exist (not an error).
func (r *Repository) Get(id string) (*Run, error) {
	query := "SELECT " + runsColumns + ", result_blob FROM runs WHERE id = ?"

	var (
		run       Run
		createdAt int64
		blob      []byte
	)
	err := r.db.QueryRow(query, id).Scan(
		&run.ID, &run.Source, &run.Backend, &run.Qubits, &run.Ops,
		&run.Shots, &run.Depth, &run.TCount, &run.TDepth, &run.Readout,
		&run.DurationMs, &createdAt, &blob,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	run.CreatedAt = time.Unix(createdAt, 0)

	if len(blob) > 0 {
		var payload ResultPayload
		if err := msgpack.Unmarshal(blob, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode result payload for run %s: %w", id, err)
		}
		run.Result = &payload
	}

	return &run, nil
}

// Delete removes a run. Reports whether a row was actually deleted.
func (r *Repository) Delete(id string) (bool, error) {
	result, err := r.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete run %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted rows: %w", err)
	}

	return affected > 0, nil
}

// PurgeOlderThan deletes runs created before the cutoff and returns how
// many rows went away. Used by the retention job.
func (r *Repository) PurgeOlderThan(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()

	result, err := r.db.Exec("DELETE FROM runs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge runs: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged rows: %w", err)
	}

	if removed > 0 {
		r.log.Info().
			Int64("removed", removed).
			Int("retention_days", retentionDays).
			Msg("Purged old runs")
	}

	return removed, nil
}

// Stats aggregates the run history.
func (r *Repository) Stats() (*RunStats, error) {
	stats := &RunStats{
		BySource:  make(map[string]int),
		ByBackend: make(map[string]int),
	}

	err := r.db.QueryRow("SELECT COUNT(*), COALESCE(AVG(duration_ms), 0) FROM runs").
		Scan(&stats.TotalRuns, &stats.AvgDurationMs)
	if err != nil {
		return nil, fmt.Errorf("failed to get run totals: %w", err)
	}

	rows, err := r.db.Query("SELECT source, COUNT(*) FROM runs GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to get runs by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		stats.BySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source counts: %w", err)
	}

	backendRows, err := r.db.Query("SELECT backend, COUNT(*) FROM runs GROUP BY backend")
	if err != nil {
		return nil, fmt.Errorf("failed to get runs by backend: %w", err)
	}
	defer backendRows.Close()

	for backendRows.Next() {
		var backend string
		var count int
		if err := backendRows.Scan(&backend, &count); err != nil {
			return nil, fmt.Errorf("failed to scan backend count: %w", err)
		}
		stats.ByBackend[backend] = count
	}
	if err := backendRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backend counts: %w", err)
	}

	return stats, nil
}

// scanRun reads one summary row (no blob column).
func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run       Run
		createdAt int64
	)
	err := rows.Scan(
		&run.ID, &run.Source, &run.Backend, &run.Qubits, &run.Ops,
		&run.Shots, &run.Depth, &run.TCount, &run.TDepth, &run.Readout,
		&run.DurationMs, &createdAt,
	)
	if err != nil {
		return Run{}, err
	}

	run.CreatedAt = time.Unix(createdAt, 0)
	return run, nil
}
