// Package handlers provides HTTP handlers for settings management.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/quantumlab/internal/events"
	"github.com/aristath/quantumlab/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for settings endpoints
type Handler struct {
	service      *settings.Service
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(service *settings.Service, eventManager *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		service:      service,
		eventManager: eventManager,
		log:          log.With().Str("handler", "settings").Logger(),
	}
}

// HandleGetAll handles GET /api/settings
func (h *Handler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get all settings")
		http.Error(w, "Failed to get settings", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"settings":     all,
			"descriptions": settings.SettingDescriptions,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleUpdate handles POST /api/settings
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update settings.SettingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if update.Key == "" {
		http.Error(w, "Key is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Set(update.Key, update.Value); err != nil {
		h.log.Error().
			Err(err).
			Str("key", update.Key).
			Interface("value", update.Value).
			Msg("Failed to update setting")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.eventManager != nil {
		h.eventManager.EmitTyped(events.SettingsChanged, "settings", &events.SettingsChangedData{
			Key:   update.Key,
			Value: update.Value,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{update.Key: update.Value},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDelete handles DELETE /api/settings/{key}
// Removes the stored override so reads fall back to the default value.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		http.Error(w, "Key is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(key); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to delete setting")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.eventManager != nil {
		h.eventManager.EmitTyped(events.SettingsChanged, "settings", &events.SettingsChangedData{
			Key:     key,
			Deleted: true,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"deleted": key},
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
