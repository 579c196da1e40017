package circuit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestToQASM_RendersHeaderAndGates(t *testing.T) {
	c := New(2)
	c.H(0).Tdg(1).RZ(0.3, 0).CX(0, 1)

	qasm, err := c.ToQASM()
	require.NoError(t, err)

	assert.Contains(t, qasm, "OPENQASM 2.0;")
	assert.Contains(t, qasm, "include \"qelib1.inc\";")
	assert.Contains(t, qasm, "qreg q[2];")
	assert.Contains(t, qasm, "creg c[2];")
	assert.Contains(t, qasm, "h q[0];")
	assert.Contains(t, qasm, "tdg q[1];")
	assert.Contains(t, qasm, "rz(0.3) q[0];")
	assert.Contains(t, qasm, "cx q[0],q[1];")
}

func TestToQASM_PhaseGateSpelledU1(t *testing.T) {
	c := New(1)
	c.Phase(0.5, 0)

	qasm, err := c.ToQASM()
	require.NoError(t, err)
	assert.Contains(t, qasm, "u1(0.5) q[0];")
}

func TestToQASM_RejectsCustomUnitary(t *testing.T) {
	f := complex(1/math.Sqrt2, 0)
	c := New(1)
	c.Unitary(mat.NewCDense(2, 2, []complex128{f, f, f, -f}), 0)

	_, err := c.ToQASM()
	assert.Error(t, err)
}

func TestParseQASM_ReadsProgram(t *testing.T) {
	src := `OPENQASM 2.0;
include "qelib1.inc";
// prepare and rotate
qreg q[3];
creg c[3];
h q[0];
t q[1];
tdg q[2];
rz(0.3) q[0];
cx q[0],q[1];
measure q[0] -> c[0];
`

	c, err := ParseQASM(src)
	require.NoError(t, err)

	assert.Equal(t, 3, c.NumQubits)
	require.Len(t, c.Ops, 5)
	assert.Equal(t, "h", c.Ops[0].Name)
	assert.Equal(t, "t", c.Ops[1].Name)
	assert.Equal(t, "tdg", c.Ops[2].Name)
	assert.Equal(t, "rz", c.Ops[3].Name)
	assert.InDelta(t, 0.3, c.Ops[3].Params[0], 1e-12)
	assert.Equal(t, "cx", c.Ops[4].Name)
}

func TestParseQASM_AcceptsU1AndP(t *testing.T) {
	for _, spelling := range []string{"u1", "p"} {
		src := "qreg q[1];\n" + spelling + "(0.25) q[0];\n"
		c, err := ParseQASM(src)
		require.NoError(t, err, "spelling %s", spelling)
		require.Len(t, c.Ops, 1)
		assert.Equal(t, "p", c.Ops[0].Name)
	}
}

func TestParseQASM_PiAngles(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"pi", math.Pi},
		{"pi/4", math.Pi / 4},
		{"-pi/2", -math.Pi / 2},
		{"3*pi/4", 3 * math.Pi / 4},
		{"2*pi", 2 * math.Pi},
		{"0.25", 0.25},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			c, err := ParseQASM("qreg q[1];\nrz(" + tc.expr + ") q[0];\n")
			require.NoError(t, err)
			require.Len(t, c.Ops, 1)
			assert.InDelta(t, tc.want, c.Ops[0].Params[0], 1e-12)
		})
	}

	_, err := ParseQASM("qreg q[1];\nrz(tau/4) q[0];\n")
	assert.Error(t, err)
}

func TestParseQASM_RoundTrip(t *testing.T) {
	orig := New(3)
	orig.H(0).H(1).H(2).S(0).T(1).Tdg(2).RZ(0.3, 0).CX(1, 2)

	qasm, err := orig.ToQASM()
	require.NoError(t, err)

	parsed, err := ParseQASM(qasm)
	require.NoError(t, err)

	assert.Equal(t, orig.NumQubits, parsed.NumQubits)
	require.Equal(t, len(orig.Ops), len(parsed.Ops))
	assert.Equal(t, orig.Hash(), parsed.Hash())
}

func TestParseQASM_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"no qreg", "h q[0];\n"},
		{"unknown gate", "qreg q[1];\nwarp q[0];\n"},
		{"bad wire", "qreg q[1];\nh q[4];\n"},
		{"garbage line", "qreg q[1];\nthis is not qasm\n"},
		{"zero register", "qreg q[0];\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseQASM(tc.src)
			assert.Error(t, err)
		})
	}
}
