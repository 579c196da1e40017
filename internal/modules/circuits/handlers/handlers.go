// Package handlers provides HTTP handlers for the circuit workbench.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/circuit"
	"github.com/aristath/quantumlab/internal/events"
	"github.com/aristath/quantumlab/internal/modules/circuits"
	"github.com/aristath/quantumlab/internal/modules/settings"
)

// Handler provides HTTP handlers for circuit endpoints
type Handler struct {
	service  *circuits.Service
	settings *settings.Service
	events   *events.Manager
	log      zerolog.Logger
}

// NewHandler creates a new circuits handler
func NewHandler(service *circuits.Service, settingsService *settings.Service, eventManager *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		settings: settingsService,
		events:   eventManager,
		log:      log.With().Str("handler", "circuits").Logger(),
	}
}

// HandleRun handles POST /api/circuits/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req circuits.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Run(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, circuits.ErrInvalidCircuit), errors.Is(err, circuits.ErrUnknownBackend):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.log.Error().Err(err).Msg("Failed to run circuit")
			http.Error(w, "Failed to run circuit", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": resp,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleMetrics handles POST /api/circuits/metrics
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	var req circuits.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, metrics, err := h.service.Describe(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"qubits":  c.NumQubits,
			"ops":     len(c.Ops),
			"metrics": metrics,
			"hash":    c.Hash(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleQASM handles POST /api/circuits/qasm
func (h *Handler) HandleQASM(w http.ResponseWriter, r *http.Request) {
	var req circuits.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, _, err := h.service.Describe(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	text, err := c.ToQASM()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"qasm": text,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// ParseRequest is the body of POST /api/circuits/parse.
type ParseRequest struct {
	QASM string `json:"qasm"`
}

// HandleParse handles POST /api/circuits/parse
func (h *Handler) HandleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := circuit.ParseQASM(req.QASM)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"num_qubits": c.NumQubits,
			"ops":        c.Ops,
			"metrics":    circuit.Compute(c),
			"hash":       c.Hash(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCacheStats handles GET /api/circuits/cache
func (h *Handler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CacheStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read cache stats")
		http.Error(w, "Failed to read cache stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": stats,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCacheClear handles DELETE /api/circuits/cache
func (h *Handler) HandleCacheClear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.ClearCache()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to clear cache")
		http.Error(w, "Failed to clear cache", http.StatusInternalServerError)
		return
	}

	h.log.Info().Int64("removed", removed).Msg("Result cache cleared")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"removed": removed,
		},
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

// RegisterRoutes registers circuit routes on the given router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/circuits", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Post("/metrics", h.HandleMetrics)
		r.Post("/qasm", h.HandleQASM)
		r.Post("/parse", h.HandleParse)
		r.Get("/cache", h.HandleCacheStats)
		r.Delete("/cache", h.HandleCacheClear)
		r.Get("/session", h.HandleSession)
	})
}
