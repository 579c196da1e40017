// Package runs persists the execution history: one row per exercise or
// ad-hoc circuit run, with the readout payload msgpack-encoded alongside
// the metric columns used for listing and stats.
package runs

import (
	"time"

	"github.com/aristath/quantumlab/internal/backends"
)

// SourceAdhoc marks runs submitted through the circuits API rather than
// an exercise from the catalog.
const SourceAdhoc = "adhoc"

// Readout kinds stored on a run.
const (
	ReadoutState         = "state"
	ReadoutProbabilities = "probabilities"
	ReadoutCounts        = "counts"
)

// Run is one recorded execution.
type Run struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Backend    string    `json:"backend"`
	Qubits     int       `json:"qubits"`
	Ops        int       `json:"ops"`
	Shots      int       `json:"shots"`
	Depth      int       `json:"depth"`
	TCount     int       `json:"t_count"`
	TDepth     int       `json:"t_depth"`
	Readout    string    `json:"readout"`
	DurationMs float64   `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`

	// Result is decoded from the stored blob on single-run reads and
	// omitted from listings.
	Result *ResultPayload `json:"result,omitempty"`
}

// Amplitude is one complex amplitude split into real and imaginary parts
// for serialization.
type Amplitude struct {
	Real float64 `json:"real" msgpack:"r"`
	Imag float64 `json:"imaginary" msgpack:"i"`
}

// ResultPayload is the readout stored with a run.
type ResultPayload struct {
	State         []Amplitude    `json:"state,omitempty" msgpack:"state,omitempty"`
	Probabilities []float64      `json:"probabilities,omitempty" msgpack:"probabilities,omitempty"`
	Counts        map[string]int `json:"counts,omitempty" msgpack:"counts,omitempty"`
}

// PayloadFromResult converts a backend result into the storable payload.
func PayloadFromResult(res *backends.Result) *ResultPayload {
	payload := &ResultPayload{
		Probabilities: res.Probabilities,
		Counts:        res.Counts,
	}

	if res.State != nil {
		payload.State = make([]Amplitude, len(res.State))
		for i, amp := range res.State {
			payload.State[i] = Amplitude{Real: real(amp), Imag: imag(amp)}
		}
	}

	return payload
}

// RunStats aggregates the run history.
type RunStats struct {
	TotalRuns     int            `json:"total_runs"`
	AvgDurationMs float64        `json:"avg_duration_ms"`
	BySource      map[string]int `json:"by_source"`
	ByBackend     map[string]int `json:"by_backend"`
}
