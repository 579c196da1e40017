// Package circuits is the ad-hoc workbench: clients submit arbitrary gate
// circuits for execution, inspect their cost metrics, convert them to and
// from OpenQASM, and drive a live register over a websocket session. Exact
// execution results are memoized in cache.db keyed by circuit fingerprint.
package circuits

import (
	"github.com/aristath/quantumlab/internal/circuit"
	"github.com/aristath/quantumlab/internal/modules/runs"
)

// RunRequest describes one circuit execution.
type RunRequest struct {
	NumQubits   int              `json:"num_qubits"`
	Ops         []circuit.GateOp `json:"ops"`
	Shots       int              `json:"shots,omitempty"`
	ReturnState bool             `json:"return_state,omitempty"`
	Seed        int64            `json:"seed,omitempty"`
	Backend     string           `json:"backend,omitempty"`
}

// Circuit assembles the submitted register and op list.
func (req *RunRequest) Circuit() *circuit.Circuit {
	return &circuit.Circuit{NumQubits: req.NumQubits, Ops: req.Ops}
}

// RunResponse is the outcome of one workbench execution.
type RunResponse struct {
	Backend       string           `json:"backend"`
	Qubits        int              `json:"qubits"`
	State         []runs.Amplitude `json:"state,omitempty"`
	Probabilities []float64        `json:"probabilities,omitempty"`
	Counts        map[string]int   `json:"counts,omitempty"`
	Metrics       circuit.Metrics  `json:"metrics"`
	CacheHit      bool             `json:"cache_hit"`
	RunID         string           `json:"run_id,omitempty"`
	DurationMs    float64          `json:"duration_ms"`
}

// CacheStats summarizes the result cache.
type CacheStats struct {
	Entries   int   `json:"entries"`
	TotalHits int   `json:"total_hits"`
	OldestAt  int64 `json:"oldest_at,omitempty"`
}
