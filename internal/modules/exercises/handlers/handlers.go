// Package handlers provides HTTP handlers for the exercise catalog.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aristath/quantumlab/internal/modules/exercises"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for exercise endpoints
type Handler struct {
	service *exercises.Service
	log     zerolog.Logger
}

// NewHandler creates a new exercises handler
func NewHandler(service *exercises.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "exercises").Logger(),
	}
}

// RunRequest is the body of POST /api/exercises/{slug}/run. State is a
// pointer so an explicit state on a fixed-input exercise can be rejected.
type RunRequest struct {
	State   *int   `json:"state,omitempty"`
	Variant string `json:"variant,omitempty"`
}

// HandleList handles GET /api/exercises
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	catalog := exercises.Catalog()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"exercises": catalog,
			"count":     len(catalog),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGet handles GET /api/exercises/{slug}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	ex := exercises.Get(slug)
	if ex == nil {
		http.Error(w, "Exercise not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": ex,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleRun handles POST /api/exercises/{slug}/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	ex := exercises.Get(slug)
	if ex == nil {
		http.Error(w, "Exercise not found", http.StatusNotFound)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	params := exercises.Params{Variant: req.Variant}
	if req.State != nil {
		if !ex.TakesState {
			http.Error(w, "Exercise does not take an initial state", http.StatusBadRequest)
			return
		}
		params.State = *req.State
	}

	outcome, err := h.service.Run(r.Context(), slug, params)
	if err != nil {
		switch {
		case errors.Is(err, exercises.ErrNotFound):
			http.Error(w, "Exercise not found", http.StatusNotFound)
		case errors.Is(err, exercises.ErrInvalidParams):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.log.Error().Err(err).Str("slug", slug).Msg("Failed to run exercise")
			http.Error(w, "Failed to run exercise", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": outcome,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleVerify handles POST /api/exercises/{slug}/verify
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	report, err := h.service.Verify(r.Context(), slug)
	if err != nil {
		if errors.Is(err, exercises.ErrNotFound) {
			http.Error(w, "Exercise not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("slug", slug).Msg("Failed to verify exercise")
		http.Error(w, "Failed to verify exercise", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": report,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response with the given status code
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
