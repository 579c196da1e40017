package exercises

import (
	"context"
	"math"
	"math/cmplx"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantumlab/internal/backends"
	"github.com/aristath/quantumlab/internal/circuit"
	"github.com/aristath/quantumlab/internal/quantum"
)

func executeExercise(t *testing.T, slug string, p Params) *backends.Result {
	t.Helper()

	ex := Get(slug)
	require.NotNil(t, ex, "exercise %s missing from catalog", slug)

	v := ex.Variant(p.Variant)
	require.NotNil(t, v, "variant %q missing on %s", p.Variant, slug)

	b := backends.NewStateVectorBackend(8, zerolog.New(nil).Level(zerolog.Disabled))
	res, err := b.Execute(context.Background(), v.Build(p), backends.Options{ReturnState: true})
	require.NoError(t, err)
	return res
}

func assertAmplitudes(t *testing.T, got, want []complex128) {
	t.Helper()

	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, real(want[i]), real(got[i]), 1e-9, "amplitude %d real part", i)
		assert.InDelta(t, imag(want[i]), imag(got[i]), 1e-9, "amplitude %d imag part", i)
	}
}

func TestCatalogEntries(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, 8)

	for _, ex := range catalog {
		assert.NotEmpty(t, ex.Slug)
		assert.NotEmpty(t, ex.Title)
		assert.NotEmpty(t, ex.Description)
		assert.GreaterOrEqual(t, ex.Wires, 1)
		assert.Contains(t, []string{ReadoutState, ReadoutProbabilities}, ex.Readout)
		assert.NotEmpty(t, ex.Variants)
		assert.Same(t, ex, Get(ex.Slug))
	}
}

func TestVariantResolution(t *testing.T) {
	ex := Get("just-enough-ts")
	require.NotNil(t, ex)

	assert.Equal(t, "optimized", ex.Variant("").Name)
	assert.Equal(t, "reference", ex.Variant("reference").Name)
	assert.Nil(t, ex.Variant("handwavy"))
}

func TestSuperpositionOfBasis(t *testing.T) {
	inv := complex(1/math.Sqrt2, 0)

	res := executeExercise(t, "superposition-of-basis", Params{State: 0})
	assertAmplitudes(t, res.State, []complex128{inv, inv})

	res = executeExercise(t, "superposition-of-basis", Params{State: 1})
	assertAmplitudes(t, res.State, []complex128{inv, -inv})
}

func TestHadamard(t *testing.T) {
	res := executeExercise(t, "hadamard", Params{})

	inv := complex(1/math.Sqrt2, 0)
	assertAmplitudes(t, res.State, []complex128{inv, inv})
	assert.InDelta(t, 0.5, res.Probabilities[0], 1e-9)
	assert.InDelta(t, 0.5, res.Probabilities[1], 1e-9)
}

func TestHadamardOnBasis(t *testing.T) {
	inv := complex(1/math.Sqrt2, 0)

	res := executeExercise(t, "hadamard-on-basis", Params{State: 0})
	assertAmplitudes(t, res.State, []complex128{inv, inv})

	res = executeExercise(t, "hadamard-on-basis", Params{State: 1})
	assertAmplitudes(t, res.State, []complex128{inv, -inv})
}

func TestHXHSandwich(t *testing.T) {
	res := executeExercise(t, "hxh-sandwich", Params{State: 0})
	assertAmplitudes(t, res.State, []complex128{1, 0})

	// The sandwich equals Z, so |1> picks up a minus sign.
	res = executeExercise(t, "hxh-sandwich", Params{State: 1})
	assertAmplitudes(t, res.State, []complex128{0, -1})
}

func TestZOnPlus(t *testing.T) {
	res := executeExercise(t, "z-on-plus", Params{})

	inv := complex(1/math.Sqrt2, 0)
	assertAmplitudes(t, res.State, []complex128{inv, -inv})
}

func TestRZAsZ(t *testing.T) {
	res := executeExercise(t, "rz-as-z", Params{})

	// RZ(theta) leaves e^{-i theta/2}/sqrt2 and e^{+i theta/2}/sqrt2.
	theta := 3.14159265359
	want := []complex128{
		cmplx.Exp(complex(0, -theta/2)) / complex(math.Sqrt2, 0),
		cmplx.Exp(complex(0, theta/2)) / complex(math.Sqrt2, 0),
	}
	assertAmplitudes(t, res.State, want)

	// Physically this is |->, the z-on-plus outcome, up to a global phase.
	inv := complex(1/math.Sqrt2, 0)
	got := &quantum.StateVector{Amplitudes: res.State, NumQubits: 1}
	minus := &quantum.StateVector{Amplitudes: []complex128{inv, -inv}, NumQubits: 1}
	assert.True(t, quantum.EqualUpToGlobalPhase(minus, got, 1e-9))
}

func TestPhaseParade(t *testing.T) {
	res := executeExercise(t, "phase-parade", Params{})

	want := []complex128{
		cmplx.Exp(complex(0, -0.15)) / complex(math.Sqrt2, 0),
		cmplx.Exp(complex(0, 0.15-math.Pi/4)) / complex(math.Sqrt2, 0),
	}
	assertAmplitudes(t, res.State, want)

	// Z-axis rotations never move probability off the equator.
	assert.InDelta(t, 0.5, res.Probabilities[0], 1e-9)
	assert.InDelta(t, 0.5, res.Probabilities[1], 1e-9)
}

func TestJustEnoughTs_Probabilities(t *testing.T) {
	want := []float64{0, 0, 0, 0, 0.375, 0.125, 0.375, 0.125}

	for _, variant := range []string{"optimized", "reference"} {
		res := executeExercise(t, "just-enough-ts", Params{Variant: variant})
		require.Len(t, res.Probabilities, 8, variant)
		for i := range want {
			assert.InDelta(t, want[i], res.Probabilities[i], 1e-9, "%s outcome %d", variant, i)
		}
	}
}

func TestJustEnoughTs_VariantsMatchState(t *testing.T) {
	opt := executeExercise(t, "just-enough-ts", Params{Variant: "optimized"})
	ref := executeExercise(t, "just-enough-ts", Params{Variant: "reference"})

	// T.T spelled as S and its relatives are exact identities, so the two
	// forms agree amplitude for amplitude, not just up to phase.
	assertAmplitudes(t, ref.State, opt.State)
}

func TestJustEnoughTs_MetricTargets(t *testing.T) {
	ex := Get("just-enough-ts")
	require.NotNil(t, ex)

	opt := circuit.Compute(ex.Variant("optimized").Build(Params{}))
	assert.Equal(t, 6, opt.Depth)
	assert.Equal(t, 3, opt.TCount)
	assert.Equal(t, 2, opt.TDepth)

	ref := circuit.Compute(ex.Variant("reference").Build(Params{}))
	assert.Equal(t, 8, ref.Depth)
	assert.Equal(t, 13, ref.TCount)
	assert.Equal(t, 6, ref.TDepth)

	// The optimization keeps the unitary while cutting ten T gates.
	assert.Equal(t, ref.TCount-10, opt.TCount)
}

func TestJustEnoughTs_TargetsStoredOnVariants(t *testing.T) {
	ex := Get("just-enough-ts")
	require.NotNil(t, ex)

	for _, v := range ex.Variants {
		require.NotNil(t, v.Targets, v.Name)
		m := circuit.Compute(v.Build(Params{}))
		assert.Equal(t, *v.Targets, m, v.Name)
	}
}

func TestExpectationsMatchExecution(t *testing.T) {
	for _, ex := range Catalog() {
		states := []int{0}
		if ex.TakesState {
			states = []int{0, 1}
		}
		for _, v := range ex.Variants {
			for _, st := range states {
				p := Params{State: st, Variant: v.Name}
				res := executeExercise(t, ex.Slug, p)
				want := ex.Expected(p)

				switch {
				case want.State != nil && want.UpToGlobalPhase:
					got := &quantum.StateVector{Amplitudes: res.State, NumQubits: res.NumQubits}
					exp := &quantum.StateVector{Amplitudes: want.State, NumQubits: res.NumQubits}
					assert.True(t, quantum.EqualUpToGlobalPhase(exp, got, 1e-9),
						"%s %s state %d", ex.Slug, v.Name, st)
				case want.State != nil:
					assertAmplitudes(t, res.State, want.State)
				case want.Probabilities != nil:
					require.Len(t, res.Probabilities, len(want.Probabilities), ex.Slug)
					for i := range want.Probabilities {
						assert.InDelta(t, want.Probabilities[i], res.Probabilities[i], 1e-9,
							"%s %s outcome %d", ex.Slug, v.Name, i)
					}
				default:
					t.Fatalf("%s declares no expectation", ex.Slug)
				}
			}
		}
	}
}
