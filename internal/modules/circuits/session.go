package circuits

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aristath/quantumlab/internal/circuit"
	"github.com/aristath/quantumlab/internal/modules/runs"
	"github.com/aristath/quantumlab/internal/quantum"
)

// Session is one live workbench register: a state vector advanced gate by
// gate, plus the op log that produced it. A session is owned by a single
// connection; methods are not safe for concurrent use.
type Session struct {
	ID string

	circuit *circuit.Circuit
	state   *quantum.StateVector
}

// NewSession creates a live register of the given size in |0...0>.
func NewSession(numQubits int) (*Session, error) {
	state, err := quantum.NewStateVector(numQubits)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:      uuid.New().String(),
		circuit: circuit.New(numQubits),
		state:   state,
	}, nil
}

// NumQubits returns the register size.
func (s *Session) NumQubits() int { return s.circuit.NumQubits }

// Ops returns the number of applied gates.
func (s *Session) Ops() int { return len(s.circuit.Ops) }

// Apply validates one gate against the register, applies it to the live
// state and appends it to the op log.
func (s *Session) Apply(op circuit.GateOp) error {
	probe := circuit.Circuit{NumQubits: s.circuit.NumQubits, Ops: []circuit.GateOp{op}}
	if err := probe.Validate(); err != nil {
		return err
	}
	if err := applyOp(s.state, op); err != nil {
		return err
	}
	s.circuit.Ops = append(s.circuit.Ops, op)
	return nil
}

// Reset returns the register to |0...0> and clears the op log.
func (s *Session) Reset() {
	s.ground()
	s.circuit.Ops = nil
}

// Undo removes the most recent gate and rebuilds the state by replaying
// the remaining ops.
func (s *Session) Undo() error {
	if len(s.circuit.Ops) == 0 {
		return errors.New("nothing to undo")
	}
	s.circuit.Ops = s.circuit.Ops[:len(s.circuit.Ops)-1]

	s.ground()
	for _, op := range s.circuit.Ops {
		if err := applyOp(s.state, op); err != nil {
			return fmt.Errorf("replay failed at %s: %w", op.Name, err)
		}
	}
	return nil
}

// QASM renders the session's op log as OpenQASM.
func (s *Session) QASM() (string, error) {
	return s.circuit.ToQASM()
}

// Snapshot is the observable session state pushed to the client.
type Snapshot struct {
	SessionID     string           `json:"session_id"`
	Qubits        int              `json:"qubits"`
	Ops           int              `json:"ops"`
	Metrics       circuit.Metrics  `json:"metrics"`
	Probabilities []float64        `json:"probabilities"`
	Marginals     [][2]float64     `json:"marginals"`
	State         []runs.Amplitude `json:"state,omitempty"`
}

// Snapshot captures the current register for a client push.
func (s *Session) Snapshot(includeState bool) *Snapshot {
	snap := &Snapshot{
		SessionID:     s.ID,
		Qubits:        s.circuit.NumQubits,
		Ops:           len(s.circuit.Ops),
		Metrics:       circuit.Compute(s.circuit),
		Probabilities: s.state.Probabilities(),
		Marginals:     s.state.MarginalProbabilities(),
	}
	if includeState {
		snap.State = make([]runs.Amplitude, len(s.state.Amplitudes))
		for i, a := range s.state.Amplitudes {
			snap.State[i] = runs.Amplitude{Real: real(a), Imag: imag(a)}
		}
	}
	return snap
}

func (s *Session) ground() {
	for i := range s.state.Amplitudes {
		s.state.Amplitudes[i] = 0
	}
	s.state.Amplitudes[0] = 1
}

func applyOp(state *quantum.StateVector, op circuit.GateOp) error {
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
