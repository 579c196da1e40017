// Package server provides the HTTP server and routing for QuantumLab.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/events"
)

// EventsStreamHandler handles unified Server-Sent Events (SSE) streaming for all system events.
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new unified events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Get flusher for streaming
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Parse query parameters
	typesFilter := r.URL.Query().Get("types")

	var allowedTypes map[events.EventType]bool
	if typesFilter != "" {
		allowedTypes = make(map[events.EventType]bool)
		for _, t := range strings.Split(typesFilter, ",") {
			allowedTypes[events.EventType(strings.TrimSpace(t))] = true
		}
	}

	h.log.Info().
		Str("types_filter", typesFilter).
		Msg("Client connected to event stream")

	// Create event channel for this connection
	eventChan := make(chan *events.Event, 100) // Buffer to prevent blocking

	// The bus has no unsubscribe, so the handler stays registered after the
	// client leaves. The disconnected flag turns it into a no-op.
	var disconnected atomic.Bool

	eventHandler := func(event *events.Event) {
		if disconnected.Load() {
			return
		}

		// Apply type filter if specified
		if allowedTypes != nil && !allowedTypes[event.Type] {
			return
		}

		// Non-blocking send (drop if channel full)
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	// Subscribe to all event types (or just the ones in filter)
	if allowedTypes == nil {
		for _, eventType := range []events.EventType{
			events.ExerciseRun,
			events.ExerciseVerified,
			events.CircuitExecuted,
			events.SessionStarted,
			events.SessionClosed,
			events.RunsPurged,
			events.SettingsChanged,
			events.ErrorOccurred,
		} {
			h.eventBus.Subscribe(eventType, eventHandler)
		}
	} else {
		for eventType := range allowedTypes {
			h.eventBus.Subscribe(eventType, eventHandler)
		}
	}

	// Create done channel to detect client disconnect
	done := r.Context().Done()

	// Send initial connection message
	fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	}))
	flusher.Flush()

	// Heartbeat ticker to keep connection alive
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			// Client disconnected
			disconnected.Store(true)
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			h.log.Debug().
				Str("event_type", string(event.Type)).
				Msg("Sending event to client")

			eventJSON := h.encodeEvent(map[string]interface{}{
				"type":      string(event.Type),
				"module":    event.Module,
				"timestamp": event.Timestamp.Format(time.RFC3339),
				"data":      event.Data,
			})

			// Send SSE event (default message event)
			fmt.Fprintf(w, "data: %s\n\n", eventJSON)
			flusher.Flush()

		case <-heartbeat.C:
			// Send periodic heartbeat to keep connection alive
			fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}))
			flusher.Flush()
		}
	}
}

// encodeEvent encodes an event map to JSON string.
func (h *EventsStreamHandler) encodeEvent(event map[string]interface{}) string {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}
