// Package circuit describes gate circuits for the workbench: an ordered op
// list over a fixed register, with validation, cost metrics, a deterministic
// fingerprint, and an OpenQASM 2.0 codec. Execution lives elsewhere; this
// package only describes.
package circuit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/quantumlab/internal/quantum"
)

// unitaryTol bounds the allowed deviation from unitarity for
// caller-supplied matrices.
const unitaryTol = 1e-9

// GateOp is one gate application. Matrix is only set for custom unitaries
// (Name == quantum.GateU) and never serializes to JSON directly.
type GateOp struct {
	Name   string      `json:"name"`
	Qubits []int       `json:"qubits"`
	Params []float64   `json:"params,omitempty"`
	Matrix *mat.CDense `json:"-"`
}

// Circuit is an ordered gate sequence over NumQubits wires.
type Circuit struct {
	NumQubits int      `json:"num_qubits"`
	Ops       []GateOp `json:"ops"`
}

// New creates an empty circuit over the given number of wires.
func New(numQubits int) *Circuit {
	return &Circuit{NumQubits: numQubits}
}

// Add appends an op verbatim.
func (c *Circuit) Add(op GateOp) *Circuit {
	c.Ops = append(c.Ops, op)
	return c
}

// H appends a Hadamard on the given wire.
func (c *Circuit) H(wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateH, Qubits: []int{wire}})
}

// X appends a Pauli-X on the given wire.
func (c *Circuit) X(wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateX, Qubits: []int{wire}})
}

// Y appends a Pauli-Y on the given wire.
func (c *Circuit) Y(wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateY, Qubits: []int{wire}})
}

// Z appends a Pauli-Z on the given wire.
func (c *Circuit) Z(wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateZ, Qubits: []int{wire}})
}

// S appends a phase-quarter-turn on the given wire.
func (c *Circuit) S(wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateS, Qubits: []int{wire}})
}

// Sdg appends the adjoint of S on the given wire.
func (c *Circuit) Sdg(wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateSdg, Qubits: []int{wire}})
}

// T appends a phase-eighth-turn on the given wire.
func (c *Circuit) T(wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateT, Qubits: []int{wire}})
}

// Tdg appends the adjoint of T on the given wire.
func (c *Circuit) Tdg(wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateTdg, Qubits: []int{wire}})
}

// RX appends an X-axis rotation on the given wire.
func (c *Circuit) RX(theta float64, wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateRX, Qubits: []int{wire}, Params: []float64{theta}})
}

// RY appends a Y-axis rotation on the given wire.
func (c *Circuit) RY(theta float64, wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateRY, Qubits: []int{wire}, Params: []float64{theta}})
}

// RZ appends a Z-axis rotation on the given wire.
func (c *Circuit) RZ(theta float64, wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateRZ, Qubits: []int{wire}, Params: []float64{theta}})
}

// Phase appends a diag(1, e^{i theta}) gate on the given wire.
func (c *Circuit) Phase(theta float64, wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GatePhase, Qubits: []int{wire}, Params: []float64{theta}})
}

// Unitary appends a caller-supplied 2x2 gate on the given wire.
func (c *Circuit) Unitary(u *mat.CDense, wire int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateU, Qubits: []int{wire}, Matrix: u})
}

// CX appends a controlled-X.
func (c *Circuit) CX(control, target int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateCX, Qubits: []int{control, target}})
}

// CZ appends a controlled-Z.
func (c *Circuit) CZ(a, b int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateCZ, Qubits: []int{a, b}})
}

// Swap appends a wire exchange.
func (c *Circuit) Swap(a, b int) *Circuit {
	return c.Add(GateOp{Name: quantum.GateSwap, Qubits: []int{a, b}})
}

// Validate checks the whole op list: register size, wire ranges, gate
// arity, required rotation angles, and unitarity of custom matrices.
func (c *Circuit) Validate() error {
	if c.NumQubits < 1 || c.NumQubits > quantum.MaxWires {
		return fmt.Errorf("qubit count %d outside supported range 1..%d", c.NumQubits, quantum.MaxWires)
	}

	for i, op := range c.Ops {
		if err := c.validateOp(op); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, op.Name, err)
		}
	}

	return nil
}

func (c *Circuit) validateOp(op GateOp) error {
	for _, q := range op.Qubits {
		if q < 0 || q >= c.NumQubits {
			return fmt.Errorf("wire %d out of range for %d-qubit circuit", q, c.NumQubits)
		}
	}

	switch {
	case op.Name == quantum.GateU:
		if len(op.Qubits) != 1 {
			return fmt.Errorf("custom unitary takes 1 wire, got %d", len(op.Qubits))
		}
		if op.Matrix == nil {
			return fmt.Errorf("custom unitary requires a matrix")
		}
		if r, cc := op.Matrix.Dims(); r != 2 || cc != 2 {
			return fmt.Errorf("custom unitary must be 2x2, got %dx%d", r, cc)
		}
		if !quantum.IsUnitary(op.Matrix, unitaryTol) {
			return fmt.Errorf("custom matrix is not unitary")
		}

	case quantum.IsTwoQubit(op.Name):
		if len(op.Qubits) != 2 {
			return fmt.Errorf("gate takes 2 wires, got %d", len(op.Qubits))
		}
		if op.Qubits[0] == op.Qubits[1] {
			return fmt.Errorf("wires must differ, both are %d", op.Qubits[0])
		}

	default:
		if len(op.Qubits) != 1 {
			return fmt.Errorf("gate takes 1 wire, got %d", len(op.Qubits))
		}
		// Resolving the matrix covers unknown names and missing angles.
		if _, err := quantum.Matrix(op.Name, op.Params); err != nil {
			return err
		}
	}

	return nil
}

// Clone returns a deep copy. Custom matrices are shared, not copied; they
// are treated as immutable once attached.
func (c *Circuit) Clone() *Circuit {
	ops := make([]GateOp, len(c.Ops))
	for i, op := range c.Ops {
		qubits := make([]int, len(op.Qubits))
		copy(qubits, op.Qubits)
		var params []float64
		if op.Params != nil {
			params = make([]float64, len(op.Params))
			copy(params, op.Params)
		}
		ops[i] = GateOp{Name: op.Name, Qubits: qubits, Params: params, Matrix: op.Matrix}
	}
	return &Circuit{NumQubits: c.NumQubits, Ops: ops}
}

// Hash returns a deterministic fingerprint of the circuit, used as a cache
// key for execution results. Two circuits with identical registers and op
// lists hash identically.
func (c *Circuit) Hash() string {
	var b strings.Builder
	fmt.Fprintf(&b, "q%d;", c.NumQubits)
	for _, op := range c.Ops {
		b.WriteString(op.Name)
		for _, q := range op.Qubits {
			fmt.Fprintf(&b, ",%d", q)
		}
		for _, p := range op.Params {
			fmt.Fprintf(&b, ",%.12g", p)
		}
		if op.Matrix != nil {
			for i := 0; i < 2; i++ {
				for j := 0; j < 2; j++ {
					v := op.Matrix.At(i, j)
					fmt.Fprintf(&b, ",%.12g%+.12gi", real(v), imag(v))
				}
			}
		}
		b.WriteByte(';')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
