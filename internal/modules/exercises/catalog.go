// Package exercises carries the built-in circuit exercise catalog: small
// fixed gate sequences with known outcomes, from single-qubit state
// preparation up to a three-wire T-count optimization study. Each entry
// knows how to build its circuit and what a correct execution produces,
// so every exercise can be run and verified through the API.
package exercises

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/quantumlab/internal/circuit"
)

// Readout kinds an exercise can produce.
const (
	ReadoutState         = "state"
	ReadoutProbabilities = "probabilities"
)

// Params are the runtime inputs an exercise accepts.
type Params struct {
	// State selects the initial basis state (0 or 1) for exercises that
	// take one.
	State int `json:"state"`
	// Variant picks a circuit variant by name; empty selects the default.
	Variant string `json:"variant,omitempty"`
}

// Expectation is what a correct execution should produce.
type Expectation struct {
	// State holds expected amplitudes for state readouts.
	State []complex128
	// Probabilities holds the expected distribution for probability readouts.
	Probabilities []float64
	// UpToGlobalPhase relaxes state comparison to ignore a global phase.
	UpToGlobalPhase bool
}

// Variant is one buildable form of an exercise's circuit. Exercises with
// several variants (the optimization study) pair each with metric targets.
type Variant struct {
	Name    string           `json:"name"`
	Targets *circuit.Metrics `json:"targets,omitempty"`

	build func(p Params) *circuit.Circuit
}

// Exercise is one catalog entry. The first variant is the default.
type Exercise struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Wires       int       `json:"wires"`
	TakesState  bool      `json:"takes_state"`
	Readout     string    `json:"readout"`
	Variants    []Variant `json:"variants"`

	expect func(p Params) Expectation
}

// Variant resolves a variant by name; empty resolves the default.
func (e *Exercise) Variant(name string) *Variant {
	if name == "" {
		return &e.Variants[0]
	}
	for i := range e.Variants {
		if e.Variants[i].Name == name {
			return &e.Variants[i]
		}
	}
	return nil
}

// Build constructs the circuit for the given params. The caller is
// expected to have validated the variant name via Variant.
func (v *Variant) Build(p Params) *circuit.Circuit {
	return v.build(p)
}

// Expected returns the outcome a correct execution produces.
func (e *Exercise) Expected(p Params) Expectation {
	return e.expect(p)
}

// Catalog returns all exercises in presentation order.
func Catalog() []*Exercise {
	return catalog
}

// Get resolves an exercise by slug, nil if unknown.
func Get(slug string) *Exercise {
	return bySlug[slug]
}

func single(build func(p Params) *circuit.Circuit) []Variant {
	return []Variant{{Name: "default", build: build}}
}

// prepare flips the wire into |1⟩ when the state param asks for it.
func prepare(c *circuit.Circuit, p Params) *circuit.Circuit {
	if p.State == 1 {
		c.X(0)
	}
	return c
}

var catalog = []*Exercise{
	{
		Slug:        "superposition-of-basis",
		Title:       "Superposition from a raw unitary",
		Description: "Prepare |0⟩ or |1⟩, then apply the matrix (1/√2)[[1,1],[1,-1]] supplied as a raw unitary rather than a named gate.",
		Wires:       1,
		TakesState:  true,
		Readout:     ReadoutState,
		Variants: single(func(p Params) *circuit.Circuit {
			u := mat.NewCDense(2, 2, []complex128{
				complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0),
				complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0),
			})
			return prepare(circuit.New(1), p).Unitary(u, 0)
		}),
		expect: func(p Params) Expectation {
			if p.State == 1 {
				return Expectation{State: []complex128{invSqrt2, -invSqrt2}}
			}
			return Expectation{State: []complex128{invSqrt2, invSqrt2}}
		},
	},
	{
		Slug:        "hadamard",
		Title:       "A single Hadamard",
		Description: "Apply H to |0⟩ and read the resulting equal superposition.",
		Wires:       1,
		Readout:     ReadoutState,
		Variants: single(func(p Params) *circuit.Circuit {
			return circuit.New(1).H(0)
		}),
		expect: func(p Params) Expectation {
			return Expectation{State: []complex128{invSqrt2, invSqrt2}}
		},
	},
	{
		Slug:        "hadamard-on-basis",
		Title:       "Hadamard on either basis state",
		Description: "Prepare |0⟩ or |1⟩, then apply H, landing on |+⟩ or |−⟩.",
		Wires:       1,
		TakesState:  true,
		Readout:     ReadoutState,
		Variants: single(func(p Params) *circuit.Circuit {
			return prepare(circuit.New(1), p).H(0)
		}),
		expect: func(p Params) Expectation {
			if p.State == 1 {
				return Expectation{State: []complex128{invSqrt2, -invSqrt2}}
			}
			return Expectation{State: []complex128{invSqrt2, invSqrt2}}
		},
	},
	{
		Slug:        "hxh-sandwich",
		Title:       "H·X·H acts as Z",
		Description: "Prepare |0⟩ or |1⟩, then apply H, X, H. The sandwich equals a Pauli-Z: |0⟩ is untouched, |1⟩ picks up a sign.",
		Wires:       1,
		TakesState:  true,
		Readout:     ReadoutState,
		Variants: single(func(p Params) *circuit.Circuit {
			return prepare(circuit.New(1), p).H(0).X(0).H(0)
		}),
		expect: func(p Params) Expectation {
			if p.State == 1 {
				return Expectation{State: []complex128{0, -1}}
			}
			return Expectation{State: []complex128{1, 0}}
		},
	},
	{
		Slug:        "z-on-plus",
		Title:       "Pauli-Z on |+⟩",
		Description: "Apply H then Z, turning |+⟩ into |−⟩.",
		Wires:       1,
		Readout:     ReadoutState,
		Variants: single(func(p Params) *circuit.Circuit {
			return circuit.New(1).H(0).Z(0)
		}),
		expect: func(p Params) Expectation {
			return Expectation{State: []complex128{invSqrt2, -invSqrt2}}
		},
	},
	{
		Slug:        "rz-as-z",
		Title:       "RZ(π) mimics Z up to global phase",
		Description: "Apply H then RZ(3.14159265359). The result matches z-on-plus up to a global phase of −i.",
		Wires:       1,
		Readout:     ReadoutState,
		Variants: single(func(p Params) *circuit.Circuit {
			return circuit.New(1).H(0).RZ(3.14159265359, 0)
		}),
		expect: func(p Params) Expectation {
			return Expectation{
				State:           []complex128{invSqrt2, -invSqrt2},
				UpToGlobalPhase: true,
			}
		},
	},
	{
		Slug:        "phase-parade",
		Title:       "Stacked Z-axis rotations",
		Description: "Apply H, S, T†, RZ(0.3), S† in order. Every phase op composes on the Z axis, leaving both amplitudes at magnitude 1/√2.",
		Wires:       1,
		Readout:     ReadoutState,
		Variants: single(func(p Params) *circuit.Circuit {
			return circuit.New(1).H(0).S(0).Tdg(0).RZ(0.3, 0).Sdg(0)
		}),
		expect: func(p Params) Expectation {
			return Expectation{State: []complex128{
				phaseAmp(-0.15),
				phaseAmp(0.15 - math.Pi/4),
			}}
		},
	},
	{
		Slug:        "just-enough-ts",
		Title:       "Trimming the T count",
		Description: "A three-wire phase circuit in two state-equivalent forms: a reference that spells S gates as T·T pairs, and an optimized form that needs only three T-type gates in two T layers.",
		Wires:       3,
		Readout:     ReadoutProbabilities,
		Variants: []Variant{
			{
				Name:    "optimized",
				Targets: &circuit.Metrics{Depth: 6, TCount: 3, TDepth: 2, CliffordCount: 14},
				build: func(p Params) *circuit.Circuit {
					c := circuit.New(3)
					c.H(0).S(0).H(0).Sdg(0).H(0)
					c.H(1).T(1).H(1).S(1).S(1).H(1)
					c.H(2).Tdg(2).H(2).Sdg(2).Tdg(2).H(2)
					return c
				},
			},
			{
				Name:    "reference",
				Targets: &circuit.Metrics{Depth: 8, TCount: 13, TDepth: 6, CliffordCount: 9},
				build: func(p Params) *circuit.Circuit {
					c := circuit.New(3)
					c.H(0).T(0).T(0).H(0).Tdg(0).Tdg(0).H(0)
					c.H(1).T(1).H(1).T(1).T(1).T(1).T(1).H(1)
					c.H(2).Tdg(2).H(2).Tdg(2).Tdg(2).Tdg(2).H(2)
					return c
				},
			},
		},
		expect: func(p Params) Expectation {
			return Expectation{Probabilities: []float64{0, 0, 0, 0, 0.375, 0.125, 0.375, 0.125}}
		},
	},
}

var bySlug = func() map[string]*Exercise {
	index := make(map[string]*Exercise, len(catalog))
	for _, e := range catalog {
		index[e.Slug] = e
	}
	return index
}()

var invSqrt2 = complex(1/math.Sqrt2, 0)

// phaseAmp returns e^{iφ}/√2.
func phaseAmp(phi float64) complex128 {
	amp := cmplx.Exp(complex(0, phi))
	return complex(real(amp)/math.Sqrt2, imag(amp)/math.Sqrt2)
}
