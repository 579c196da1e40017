package circuits

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/quantumlab/internal/modules/runs"
)

// CacheRepository stores memoized execution results in cache.db. Entries
// are disposable; the database runs a throughput-over-durability profile
// and may be wiped at any time.
type CacheRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCacheRepository creates a result cache repository backed by cache.db.
func NewCacheRepository(db *sql.DB, log zerolog.Logger) *CacheRepository {
	return &CacheRepository{
		db:  db,
		log: log.With().Str("repository", "result_cache").Logger(),
	}
}

// Get returns the cached payload for a key and bumps its hit counters.
// A corrupt entry is dropped and reported as a miss.
func (r *CacheRepository) Get(key string) (*runs.ResultPayload, bool, error) {
	var blob []byte
	err := r.db.QueryRow("SELECT payload FROM result_cache WHERE cache_key = ?", key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up cache entry: %w", err)
	}

	var payload runs.ResultPayload
	if err := msgpack.Unmarshal(blob, &payload); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Dropping undecodable cache entry")
		if _, delErr := r.db.Exec("DELETE FROM result_cache WHERE cache_key = ?", key); delErr != nil {
			r.log.Error().Err(delErr).Str("key", key).Msg("Failed to drop cache entry")
		}
		return nil, false, nil
	}

	if _, err := r.db.Exec(
		"UPDATE result_cache SET hits = hits + 1, last_hit_at = ? WHERE cache_key = ?",
		time.Now().Unix(), key,
	); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Failed to bump cache hit counter")
	}

	return &payload, true, nil
}

// Put stores a payload under the given key, replacing any previous entry.
func (r *CacheRepository) Put(key string, qubits int, payload *runs.ResultPayload) error {
	blob, err := msgpack.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode cache payload: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO result_cache (cache_key, qubits, payload, hits, created_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			qubits = excluded.qubits,
			payload = excluded.payload,
			created_at = excluded.created_at
	`, key, qubits, blob, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// Sweep evicts entries not hit within maxAgeDays and, when maxEntries > 0,
// trims the least recently used entries beyond that count. Either limit
// can be disabled with a non-positive value.
func (r *CacheRepository) Sweep(maxAgeDays, maxEntries int) (int64, error) {
	var removed int64

	if maxAgeDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -maxAgeDays).Unix()
		result, err := r.db.Exec("DELETE FROM result_cache WHERE COALESCE(last_hit_at, created_at) < ?", cutoff)
		if err != nil {
			return removed, fmt.Errorf("failed to evict stale cache entries: %w", err)
		}
		n, _ := result.RowsAffected()
		removed += n
	}

	if maxEntries > 0 {
		result, err := r.db.Exec(`
			DELETE FROM result_cache WHERE cache_key IN (
				SELECT cache_key FROM result_cache
				ORDER BY COALESCE(last_hit_at, created_at) DESC
				LIMIT -1 OFFSET ?
			)
		`, maxEntries)
		if err != nil {
			return removed, fmt.Errorf("failed to trim cache: %w", err)
		}
		n, _ := result.RowsAffected()
		removed += n
	}

	if removed > 0 {
		r.log.Info().Int64("removed", removed).Msg("Swept result cache")
	}

	return removed, nil
}

// Clear drops every cache entry.
func (r *CacheRepository) Clear() (int64, error) {
	result, err := r.db.Exec("DELETE FROM result_cache")
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return result.RowsAffected()
}

// Stats reports entry and hit totals.
func (r *CacheRepository) Stats() (*CacheStats, error) {
	stats := &CacheStats{}

	var oldest sql.NullInt64
	err := r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(hits), 0), MIN(created_at)
		FROM result_cache
	`).Scan(&stats.Entries, &stats.TotalHits, &oldest)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestAt = oldest.Int64
	}

	return stats, nil
}
