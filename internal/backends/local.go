package backends

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/circuit"
	"github.com/aristath/quantumlab/internal/quantum"
)

// LocalBackendName identifies the built-in state-vector simulator.
const LocalBackendName = "statevec"

// StateVectorBackend runs circuits on the in-process dense simulator.
type StateVectorBackend struct {
	maxQubits int
	log       zerolog.Logger
}

// NewStateVectorBackend creates the local simulator backend. maxQubits
// caps accepted register sizes; values outside the engine's own range are
// clamped.
func NewStateVectorBackend(maxQubits int, log zerolog.Logger) *StateVectorBackend {
	if maxQubits < 1 || maxQubits > quantum.MaxWires {
		maxQubits = quantum.MaxWires
	}
	return &StateVectorBackend{
		maxQubits: maxQubits,
		log:       log.With().Str("backend", LocalBackendName).Logger(),
	}
}

// Name returns the backend identifier.
func (b *StateVectorBackend) Name() string { return LocalBackendName }

// MaxQubits returns the largest accepted register size.
func (b *StateVectorBackend) MaxQubits() int { return b.maxQubits }

// IsSimulator reports true; this backend only ever simulates.
func (b *StateVectorBackend) IsSimulator() bool { return true }

// Execute validates the circuit, applies every op to a fresh register, and
// reads out probabilities, optional amplitudes, and optional sampled counts.
func (b *StateVectorBackend) Execute(ctx context.Context, c *circuit.Circuit, opts Options) (*Result, error) {
	start := time.Now()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit: %w", err)
	}
	if c.NumQubits > b.maxQubits {
		return nil, fmt.Errorf("circuit uses %d qubits, backend accepts at most %d", c.NumQubits, b.maxQubits)
	}
	if opts.Shots < 0 {
		return nil, fmt.Errorf("shots must not be negative, got %d", opts.Shots)
	}

	state, err := quantum.NewStateVector(c.NumQubits)
	if err != nil {
		return nil, err
	}

	for i, op := range c.Ops {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("execution cancelled at op %d: %w", i, err)
		}
		if err := b.applyOp(state, op); err != nil {
			return nil, fmt.Errorf("op %d (%s): %w", i, op.Name, err)
		}
	}

	result := &Result{
		Backend:       LocalBackendName,
		NumQubits:     c.NumQubits,
		Probabilities: state.Probabilities(),
		Metrics:       circuit.Compute(c),
		Duration:      time.Since(start),
	}
	if opts.ReturnState {
		result.State = state.Amplitudes
	}
	if opts.Shots > 0 {
		result.Counts = sampleCounts(result.Probabilities, c.NumQubits, opts.Shots, opts.Seed)
	}

	b.log.Debug().
		Int("qubits", c.NumQubits).
		Int("ops", len(c.Ops)).
		Int("shots", opts.Shots).
		Dur("duration", result.Duration).
		Msg("Circuit executed")

	return result, nil
}

func (b *StateVectorBackend) applyOp(state *quantum.StateVector, op circuit.GateOp) error {
	switch op.Name {
	case quantum.GateCX:
		return state.ApplyCX(op.Qubits[0], op.Qubits[1])
	case quantum.GateCZ:
		return state.ApplyCZ(op.Qubits[0], op.Qubits[1])
	case quantum.GateSwap:
		return state.ApplySwap(op.Qubits[0], op.Qubits[1])
	case quantum.GateU:
		return state.ApplySingle(op.Qubits[0], op.Matrix)
	default:
		m, err := quantum.Matrix(op.Name, op.Params)
		if err != nil {
			return err
		}
		return state.ApplySingle(op.Qubits[0], m)
	}
}

// sampleCounts draws shots basis states from the exact distribution.
func sampleCounts(probs []float64, numQubits, shots int, seed int64) map[string]int {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	counts := make(map[string]int)
	for s := 0; s < shots; s++ {
		r := rng.Float64()
		acc := 0.0
		idx := len(probs) - 1
		for i, p := range probs {
			acc += p
			if r < acc {
				idx = i
				break
			}
		}
		counts[bitstring(idx, numQubits)]++
	}

	return counts
}

// bitstring renders a basis index with wire 0 as the leftmost character.
func bitstring(index, numQubits int) string {
	var sb strings.Builder
	for q := numQubits - 1; q >= 0; q-- {
		if index&(1<<q) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
