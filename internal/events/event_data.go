package events

// EventData is the interface that all typed event payloads implement.
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// ExerciseRunData contains data for ExerciseRun events
type ExerciseRunData struct {
	Slug       string  `json:"slug"`
	RunID      string  `json:"run_id"`
	Backend    string  `json:"backend"`
	Qubits     int     `json:"qubits"`
	Depth      int     `json:"depth"`
	TCount     int     `json:"t_count"`
	DurationMs float64 `json:"duration_ms"`
}

// EventType returns the event type for ExerciseRunData
func (d *ExerciseRunData) EventType() EventType {
	return ExerciseRun
}

// ExerciseVerifiedData contains data for ExerciseVerified events
type ExerciseVerifiedData struct {
	Slug   string `json:"slug"`
	Passed bool   `json:"passed"`
	Checks int    `json:"checks"`
}

// EventType returns the event type for ExerciseVerifiedData
func (d *ExerciseVerifiedData) EventType() EventType {
	return ExerciseVerified
}

// CircuitExecutedData contains data for CircuitExecuted events
type CircuitExecutedData struct {
	RunID      string  `json:"run_id"`
	Backend    string  `json:"backend"`
	Qubits     int     `json:"qubits"`
	Ops        int     `json:"ops"`
	Shots      int     `json:"shots"`
	CacheHit   bool    `json:"cache_hit"`
	DurationMs float64 `json:"duration_ms"`
}

// EventType returns the event type for CircuitExecutedData
func (d *CircuitExecutedData) EventType() EventType {
	return CircuitExecuted
}

// SessionData contains data for SessionStarted and SessionClosed events
type SessionData struct {
	SessionID string `json:"session_id"`
	Qubits    int    `json:"qubits"`
	Ops       int    `json:"ops,omitempty"`
}

// EventType returns the event type for SessionData
func (d *SessionData) EventType() EventType {
	return SessionStarted
}

// RunsPurgedData contains data for RunsPurged events
type RunsPurgedData struct {
	Removed       int `json:"removed"`
	RetentionDays int `json:"retention_days"`
}

// EventType returns the event type for RunsPurgedData
func (d *RunsPurgedData) EventType() EventType {
	return RunsPurged
}

// SettingsChangedData contains data for SettingsChanged events
type SettingsChangedData struct {
	Key     string      `json:"key"`
	Value   interface{} `json:"value"`
	Deleted bool        `json:"deleted,omitempty"`
}

// EventType returns the event type for SettingsChangedData
func (d *SettingsChangedData) EventType() EventType {
	return SettingsChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
