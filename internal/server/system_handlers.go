// Package server provides the HTTP server and routing for QuantumLab.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/quantumlab/internal/backends"
	"github.com/aristath/quantumlab/internal/database"
	"github.com/aristath/quantumlab/internal/modules/runs"
	"github.com/aristath/quantumlab/internal/modules/settings"
	"github.com/aristath/quantumlab/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	configDB  *database.DB
	resultsDB *database.DB
	cacheDB   *database.DB
	registry  *backends.Registry
	settings  *settings.Service
	runs      *runs.Repository
	sched     *scheduler.Scheduler
	startedAt time.Time

	// Jobs (set after job registration in main.go)
	retentionJob  scheduler.Job
	cacheSweepJob scheduler.Job
	dbVacuumJob   scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	configDB, resultsDB, cacheDB *database.DB,
	registry *backends.Registry,
	settingsService *settings.Service,
	runsRepo *runs.Repository,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		configDB:  configDB,
		resultsDB: resultsDB,
		cacheDB:   cacheDB,
		registry:  registry,
		settings:  settingsService,
		runs:      runsRepo,
		sched:     sched,
		startedAt: time.Now(),
	}
}

// SetJobs registers job instances for manual triggering via API
func (h *SystemHandlers) SetJobs(retention, cacheSweep, dbVacuum scheduler.Job) {
	h.retentionJob = retention
	h.cacheSweepJob = cacheSweep
	h.dbVacuumJob = dbVacuum
}

// DBInfo describes one database file.
type DBInfo struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
}

// SystemStatusResponse is the body of GET /api/system/status.
type SystemStatusResponse struct {
	Status         string            `json:"status"`
	UptimeSeconds  float64           `json:"uptime_seconds"`
	GoVersion      string            `json:"go_version"`
	NumGoroutines  int               `json:"num_goroutines"`
	CPUPercent     float64           `json:"cpu_percent"`
	MemoryPercent  float64           `json:"memory_percent"`
	Backends       []string          `json:"backends"`
	DefaultBackend string            `json:"default_backend"`
	MaxQubits      int               `json:"max_qubits"`
	Runs           *runs.RunStats    `json:"runs,omitempty"`
	Databases      []DBInfo          `json:"databases"`
	TotalDBSizeMB  float64           `json:"total_db_size_mb"`
	Jobs           []scheduler.Entry `json:"jobs"`
}

// GetSystemStatusSnapshot collects the status response. Collection
// keeps going past individual failures; the first error is returned so
// the caller can log it, with Status downgraded to "degraded".
func (h *SystemHandlers) GetSystemStatusSnapshot() (SystemStatusResponse, error) {
	if h == nil {
		return SystemStatusResponse{}, fmt.Errorf("system handlers not initialized")
	}

	var firstErr error
	recordErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	runStats, err := h.runs.Stats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query run stats")
		recordErr(err)
	}

	databases, totalSizeMB := h.databaseStats()
	cpuPercent, memPercent := h.getSystemStats()

	status := "healthy"
	if firstErr != nil {
		status = "degraded"
	}

	response := SystemStatusResponse{
		Status:         status,
		UptimeSeconds:  time.Since(h.startedAt).Seconds(),
		GoVersion:      runtime.Version(),
		NumGoroutines:  runtime.NumGoroutine(),
		CPUPercent:     cpuPercent,
		MemoryPercent:  memPercent,
		Backends:       h.registry.Names(),
		DefaultBackend: h.settings.DefaultBackend(),
		MaxQubits:      h.settings.MaxQubits(),
		Runs:           runStats,
		Databases:      databases,
		TotalDBSizeMB:  totalSizeMB,
		Jobs:           h.sched.Entries(),
	}

	return response, firstErr
}

// HandleSystemStatus returns comprehensive system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response, err := h.GetSystemStatusSnapshot()
	if err != nil {
		h.log.Warn().Err(err).Msg("System status collected with warnings")
	}

	h.writeJSON(w, response)
}

// HandleSystemHealth reports whether every database answers a ping.
func (h *SystemHandlers) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	for _, db := range []*database.DB{h.configDB, h.resultsDB, h.cacheDB} {
		if db == nil {
			continue
		}

		if err := db.Conn().Ping(); err != nil {
			checks[db.Name()] = err.Error()
			healthy = false
			continue
		}
		checks[db.Name()] = "ok"
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    status,
			"databases": checks,
		})
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"status":    status,
		"databases": checks,
	})
}

// CheckpointResult reports one database's manual checkpoint outcome.
type CheckpointResult struct {
	Busy         int `json:"busy"`
	LogFrames    int `json:"log_frames"`
	Checkpointed int `json:"checkpointed"`
}

// HandleCheckpoint runs a truncating WAL checkpoint on every database.
// POST /api/system/checkpoint
func (h *SystemHandlers) HandleCheckpoint(w http.ResponseWriter, r *http.Request) {
	h.log.Info().Msg("Manual WAL checkpoint triggered")

	results := map[string]CheckpointResult{}

	for _, db := range []*database.DB{h.configDB, h.resultsDB, h.cacheDB} {
		if db == nil {
			continue
		}

		var res CheckpointResult
		err := db.Conn().QueryRow("PRAGMA wal_checkpoint(TRUNCATE)").
			Scan(&res.Busy, &res.LogFrames, &res.Checkpointed)
		if err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Checkpoint failed")
			http.Error(w, fmt.Sprintf("checkpoint failed for %s: %v", db.Name(), err), http.StatusInternalServerError)
			return
		}

		results[db.Name()] = res
	}

	h.writeJSON(w, map[string]interface{}{
		"status":    "success",
		"databases": results,
	})
}

// handleTriggerJob runs a registered job immediately via the scheduler.
func (h *SystemHandlers) handleTriggerJob(w http.ResponseWriter, job scheduler.Job, label string) {
	if job == nil {
		h.log.Warn().Str("job", label).Msg("Job not registered yet")
		h.writeJSON(w, map[string]string{
			"status":  "error",
			"message": fmt.Sprintf("%s job not registered", label),
		})
		return
	}

	h.log.Info().Str("job", job.Name()).Msg("Manual job trigger")

	if err := h.sched.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", job.Name()).Msg("Manual job run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("%s completed", job.Name()),
	})
}

// HandleTriggerRetention triggers the run retention job immediately
// POST /api/system/jobs/runs-retention
func (h *SystemHandlers) HandleTriggerRetention(w http.ResponseWriter, r *http.Request) {
	h.handleTriggerJob(w, h.retentionJob, "runs_retention")
}

// HandleTriggerCacheSweep triggers the cache sweep job immediately
// POST /api/system/jobs/cache-sweep
func (h *SystemHandlers) HandleTriggerCacheSweep(w http.ResponseWriter, r *http.Request) {
	h.handleTriggerJob(w, h.cacheSweepJob, "cache_sweep")
}

// HandleTriggerVacuum triggers the database vacuum job immediately
// POST /api/system/jobs/db-vacuum
func (h *SystemHandlers) HandleTriggerVacuum(w http.ResponseWriter, r *http.Request) {
	h.handleTriggerJob(w, h.dbVacuumJob, "db_vacuum")
}

// databaseStats sizes the database files on disk, WAL included.
func (h *SystemHandlers) databaseStats() ([]DBInfo, float64) {
	infos := []DBInfo{}
	totalSizeMB := 0.0

	for _, db := range []*database.DB{h.configDB, h.resultsDB, h.cacheDB} {
		if db == nil {
			continue
		}

		sizeMB := 0.0
		for _, path := range []string{db.Path(), db.Path() + "-wal"} {
			if info, err := os.Stat(path); err == nil {
				sizeMB += float64(info.Size()) / 1024 / 1024
			}
		}

		totalSizeMB += sizeMB
		infos = append(infos, DBInfo{
			Name:   db.Name(),
			Path:   db.Path(),
			SizeMB: sizeMB,
		})
	}

	return infos, totalSizeMB
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short interval (100ms) so the status endpoint stays responsive
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// RegisterRoutes registers system routes on the given router
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/health", h.HandleSystemHealth)
		r.Post("/checkpoint", h.HandleCheckpoint)

		// Manual job triggers
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/runs-retention", h.HandleTriggerRetention)
			r.Post("/cache-sweep", h.HandleTriggerCacheSweep)
			r.Post("/db-vacuum", h.HandleTriggerVacuum)
		})
	})
}
