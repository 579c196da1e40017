package quantum

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Canonical gate names, matching OpenQASM spelling so circuit JSON and QASM
// share one vocabulary.
const (
	GateH     = "h"
	GateX     = "x"
	GateY     = "y"
	GateZ     = "z"
	GateS     = "s"
	GateSdg   = "sdg"
	GateT     = "t"
	GateTdg   = "tdg"
	GateRX    = "rx"
	GateRY    = "ry"
	GateRZ    = "rz"
	GatePhase = "p"
	GateU     = "u"
	GateCX    = "cx"
	GateCZ    = "cz"
	GateSwap  = "swap"
)

// IsTType reports whether a gate name counts toward T-cost metrics.
func IsTType(name string) bool {
	return name == GateT || name == GateTdg
}

// IsTwoQubit reports whether a gate name takes two wires.
func IsTwoQubit(name string) bool {
	return name == GateCX || name == GateCZ || name == GateSwap
}

// TakesParam reports whether a gate name requires a rotation angle.
func TakesParam(name string) bool {
	return name == GateRX || name == GateRY || name == GateRZ || name == GatePhase
}

// Hadamard returns the H matrix (1/sqrt2)[[1,1],[1,-1]].
func Hadamard() *mat.CDense {
	f := complex(1/math.Sqrt2, 0)
	return mat.NewCDense(2, 2, []complex128{f, f, f, -f})
}

// PauliX returns the X (bit flip) matrix.
func PauliX() *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{0, 1, 1, 0})
}

// PauliY returns the Y matrix.
func PauliY() *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{0, -1i, 1i, 0})
}

// PauliZ returns the Z (phase flip) matrix.
func PauliZ() *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{1, 0, 0, -1})
}

// SGate returns diag(1, i), a quarter turn about the Z axis.
func SGate() *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{1, 0, 0, 1i})
}

// SdgGate returns the adjoint of S.
func SdgGate() *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{1, 0, 0, -1i})
}

// TGate returns diag(1, e^{i pi/4}), an eighth turn about the Z axis.
func TGate() *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{1, 0, 0, cmplx.Exp(complex(0, math.Pi/4))})
}

// TdgGate returns the adjoint of T.
func TdgGate() *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{1, 0, 0, cmplx.Exp(complex(0, -math.Pi/4))})
}

// RX returns a rotation of theta about the X axis.
func RX(theta float64) *mat.CDense {
	c := complex(math.Cos(theta/2), 0)
	s := complex(0, -math.Sin(theta/2))
	return mat.NewCDense(2, 2, []complex128{c, s, s, c})
}

// RY returns a rotation of theta about the Y axis.
func RY(theta float64) *mat.CDense {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return mat.NewCDense(2, 2, []complex128{c, -s, s, c})
}

// RZ returns diag(e^{-i theta/2}, e^{+i theta/2}). RZ(pi) therefore equals
// Z times the global phase -i, which is the point of the rz-as-z exercise.
func RZ(theta float64) *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{
		cmplx.Exp(complex(0, -theta/2)), 0,
		0, cmplx.Exp(complex(0, theta/2)),
	})
}

// Phase returns diag(1, e^{i theta}).
func Phase(theta float64) *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{1, 0, 0, cmplx.Exp(complex(0, theta))})
}

// Matrix resolves a named single-qubit gate to its 2x2 form. Parameterized
// gates take their angle from params[0].
func Matrix(name string, params []float64) (*mat.CDense, error) {
	if TakesParam(name) && len(params) < 1 {
		return nil, fmt.Errorf("gate %q requires a rotation angle", name)
	}

	switch name {
	case GateH:
		return Hadamard(), nil
	case GateX:
		return PauliX(), nil
	case GateY:
		return PauliY(), nil
	case GateZ:
		return PauliZ(), nil
	case GateS:
		return SGate(), nil
	case GateSdg:
		return SdgGate(), nil
	case GateT:
		return TGate(), nil
	case GateTdg:
		return TdgGate(), nil
	case GateRX:
		return RX(params[0]), nil
	case GateRY:
		return RY(params[0]), nil
	case GateRZ:
		return RZ(params[0]), nil
	case GatePhase:
		return Phase(params[0]), nil
	default:
		return nil, fmt.Errorf("unknown single-qubit gate %q", name)
	}
}

// IsUnitary checks U * U^H = I within tol.
func IsUnitary(u mat.CMatrix, tol float64) bool {
	r, c := u.Dims()
	if r != c {
		return false
	}

	var prod mat.CDense
	prod.Mul(u, u.H())

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			want := complex128(0)
			if i == j {
				want = 1
			}
			if cmplx.Abs(prod.At(i, j)-want) > tol {
				return false
			}
		}
	}

	return true
}

// Compose multiplies a gate sequence into a single matrix. Gates are given
// in application order (first applied first), so the product is built
// right-to-left.
func Compose(gates ...*mat.CDense) *mat.CDense {
	if len(gates) == 0 {
		return mat.NewCDense(2, 2, []complex128{1, 0, 0, 1})
	}

	result := mat.NewCDense(2, 2, nil)
	result.Copy(gates[len(gates)-1])
	for i := len(gates) - 2; i >= 0; i-- {
		var next mat.CDense
		next.Mul(result, gates[i])
		result.Copy(&next)
	}

	return result
}

// MatricesEqualUpToGlobalPhase compares two 2x2 unitaries modulo an overall
// phase factor.
func MatricesEqualUpToGlobalPhase(a, b mat.CMatrix, tol float64) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}

	// Anchor the phase on the largest entry of a.
	var phase complex128
	var refMag float64
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			if m := cmplx.Abs(a.At(i, j)); m > refMag {
				refMag = m
				phase = b.At(i, j) / a.At(i, j)
			}
		}
	}
	if refMag < tol {
		return false
	}

	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			if cmplx.Abs(a.At(i, j)*phase-b.At(i, j)) > tol {
				return false
			}
		}
	}

	return true
}
