// Package quantum implements a dense state-vector engine for small qubit
// registers. It is intentionally minimal: just enough single- and two-qubit
// gate application for the exercise catalog and the circuit workbench to
// call. Wire 0 is the most significant bit of the basis-state index, so the
// probability vector of a 3-wire register orders outcomes as
// |000>, |001>, ..., |111> with wire 0 leftmost.
package quantum

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// MaxWires bounds register size. 2^20 amplitudes is already 16 MiB of
// complex128 values, far beyond anything the workbench needs.
const MaxWires = 20

// StateVector holds the amplitudes of an n-qubit register.
type StateVector struct {
	Amplitudes []complex128
	NumQubits  int
}

// NewStateVector creates an n-qubit register initialized to |0...0>.
func NewStateVector(numQubits int) (*StateVector, error) {
	if numQubits < 1 || numQubits > MaxWires {
		return nil, fmt.Errorf("qubit count %d outside supported range 1..%d", numQubits, MaxWires)
	}

	amps := make([]complex128, 1<<numQubits)
	amps[0] = 1

	return &StateVector{
		Amplitudes: amps,
		NumQubits:  numQubits,
	}, nil
}

// Clone returns a deep copy of the state.
func (s *StateVector) Clone() *StateVector {
	amps := make([]complex128, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

// bitFor returns the basis-index bitmask of a wire. Wire 0 maps to the
// highest-order bit.
func (s *StateVector) bitFor(wire int) int {
	return 1 << (s.NumQubits - 1 - wire)
}

func (s *StateVector) checkWire(wire int) error {
	if wire < 0 || wire >= s.NumQubits {
		return fmt.Errorf("wire %d out of range for %d-qubit register", wire, s.NumQubits)
	}
	return nil
}

// ApplySingle applies a 2x2 unitary to one wire. The matrix is consumed
// through the gonum complex-matrix interface so both table gates and
// caller-supplied unitaries go through the same path.
func (s *StateVector) ApplySingle(wire int, u mat.CMatrix) error {
	if err := s.checkWire(wire); err != nil {
		return err
	}
	if r, c := u.Dims(); r != 2 || c != 2 {
		return fmt.Errorf("single-qubit gate must be 2x2, got %dx%d", r, c)
	}

	u00 := u.At(0, 0)
	u01 := u.At(0, 1)
	u10 := u.At(1, 0)
	u11 := u.At(1, 1)

	bit := s.bitFor(wire)
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			a0 := s.Amplitudes[i]
			a1 := s.Amplitudes[j]
			s.Amplitudes[i] = u00*a0 + u01*a1
			s.Amplitudes[j] = u10*a0 + u11*a1
		}
	}

	return nil
}

// ApplyCX applies a controlled-X with the given control and target wires.
func (s *StateVector) ApplyCX(control, target int) error {
	if err := s.checkWire(control); err != nil {
		return err
	}
	if err := s.checkWire(target); err != nil {
		return err
	}
	if control == target {
		return fmt.Errorf("control and target must differ, both are %d", control)
	}

	cbit := s.bitFor(control)
	tbit := s.bitFor(target)
	for i := range s.Amplitudes {
		if i&cbit != 0 && i&tbit == 0 {
			j := i | tbit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}

	return nil
}

// ApplyCZ applies a controlled-Z between two wires.
func (s *StateVector) ApplyCZ(a, b int) error {
	if err := s.checkWire(a); err != nil {
		return err
	}
	if err := s.checkWire(b); err != nil {
		return err
	}
	if a == b {
		return fmt.Errorf("control and target must differ, both are %d", a)
	}

	abit := s.bitFor(a)
	bbit := s.bitFor(b)
	for i := range s.Amplitudes {
		if i&abit != 0 && i&bbit != 0 {
			s.Amplitudes[i] = -s.Amplitudes[i]
		}
	}

	return nil
}

// ApplySwap exchanges the states of two wires.
func (s *StateVector) ApplySwap(a, b int) error {
	if err := s.checkWire(a); err != nil {
		return err
	}
	if err := s.checkWire(b); err != nil {
		return err
	}
	if a == b {
		return nil
	}

	abit := s.bitFor(a)
	bbit := s.bitFor(b)
	for i := range s.Amplitudes {
		// Swap amplitude pairs where exactly one of the two bits is set.
		if i&abit != 0 && i&bbit == 0 {
			j := (i &^ abit) | bbit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}

	return nil
}

// Probabilities returns the Born-rule distribution over all basis states.
func (s *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(s.Amplitudes))
	for i, a := range s.Amplitudes {
		m := cmplx.Abs(a)
		probs[i] = m * m
	}
	return probs
}

// MarginalProbabilities returns per-wire [P(0), P(1)] pairs.
func (s *StateVector) MarginalProbabilities() [][2]float64 {
	marginals := make([][2]float64, s.NumQubits)
	for i, a := range s.Amplitudes {
		m := cmplx.Abs(a)
		p := m * m
		for q := 0; q < s.NumQubits; q++ {
			if i&s.bitFor(q) == 0 {
				marginals[q][0] += p
			} else {
				marginals[q][1] += p
			}
		}
	}
	return marginals
}

// Norm returns the squared 2-norm of the amplitude vector. A healthy state
// stays at 1 within floating-point error.
func (s *StateVector) Norm() float64 {
	var sum float64
	for _, a := range s.Amplitudes {
		m := cmplx.Abs(a)
		sum += m * m
	}
	return sum
}

// EqualUpToGlobalPhase reports whether two states describe the same physical
// state, ignoring an overall phase factor.
func EqualUpToGlobalPhase(a, b *StateVector, tol float64) bool {
	if a.NumQubits != b.NumQubits {
		return false
	}

	// Find the largest amplitude of a to anchor the phase.
	ref := -1
	var refMag float64
	for i, amp := range a.Amplitudes {
		if m := cmplx.Abs(amp); m > refMag {
			refMag = m
			ref = i
		}
	}
	if ref == -1 || refMag < tol {
		return false
	}
	if cmplx.Abs(b.Amplitudes[ref]) < tol {
		return false
	}

	phase := b.Amplitudes[ref] / a.Amplitudes[ref]
	if d := cmplx.Abs(phase) - 1; d > tol || d < -tol {
		return false
	}

	for i := range a.Amplitudes {
		if cmplx.Abs(a.Amplitudes[i]*phase-b.Amplitudes[i]) > tol {
			return false
		}
	}

	return true
}
