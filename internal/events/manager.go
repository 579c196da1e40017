// Package events provides event emission and subscription for QuantumLab.
package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	ExerciseRun      EventType = "EXERCISE_RUN"
	ExerciseVerified EventType = "EXERCISE_VERIFIED"
	CircuitExecuted  EventType = "CIRCUIT_EXECUTED"
	SessionStarted   EventType = "SESSION_STARTED"
	SessionClosed    EventType = "SESSION_CLOSED"
	RunsPurged       EventType = "RUNS_PURGED"
	SettingsChanged  EventType = "SETTINGS_CHANGED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Manager handles event emission: every event goes to the bus for live
// subscribers and to the structured log.
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Emit emits an event with loose map data
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	m.bus.Publish(&event)

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// EmitTyped emits an event with typed data
func (m *Manager) EmitTyped(eventType EventType, module string, data EventData) {
	m.Emit(eventType, module, convertEventDataToMap(data))
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	}
	m.EmitTyped(ErrorOccurred, module, data)
}

// convertEventDataToMap flattens typed event data through JSON so bus
// subscribers always see the same shape.
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}

	return result
}
