// Package handlers provides HTTP handlers for the run history.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/quantumlab/internal/modules/runs"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for run history endpoints
type Handler struct {
	repo *runs.Repository
	log  zerolog.Logger
}

// NewHandler creates a new runs handler
func NewHandler(repo *runs.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "runs").Logger(),
	}
}

// HandleList handles GET /api/runs?source=&limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	list, err := h.repo.List(source, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"runs":  list,
			"count": len(list),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGet handles GET /api/runs/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.repo.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get run")
		http.Error(w, "Failed to get run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": run,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDelete handles DELETE /api/runs/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.repo.Delete(id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to delete run")
		http.Error(w, "Failed to delete run", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"deleted": id},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleStats handles GET /api/runs/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get run stats")
		http.Error(w, "Failed to get run stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": stats,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
