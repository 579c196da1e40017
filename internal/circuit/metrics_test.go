package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_EmptyCircuit(t *testing.T) {
	m := Compute(New(3))
	assert.Equal(t, Metrics{}, m)
}

func TestCompute_DepthIsPerWireForSingleQubitGates(t *testing.T) {
	c := New(2)
	c.H(0).H(0).H(0).X(1)

	m := Compute(c)
	assert.Equal(t, 3, m.Depth)
	assert.Equal(t, 4, m.CliffordCount)
	assert.Equal(t, 0, m.TCount)
}

func TestCompute_TwoQubitGatesMergeLayers(t *testing.T) {
	// Wire 0 is three layers deep before the CX, so the CX lands on layer 4
	// and drags wire 1 along with it.
	c := New(2)
	c.H(0).H(0).H(0).CX(0, 1).X(1)

	m := Compute(c)
	assert.Equal(t, 5, m.Depth)
	assert.Equal(t, 1, m.TwoQubitCount)
}

func TestCompute_ParallelTsShareALayer(t *testing.T) {
	c := New(3)
	c.T(0).T(1).Tdg(2)

	m := Compute(c)
	assert.Equal(t, 3, m.TCount)
	assert.Equal(t, 1, m.TDepth)
	assert.Equal(t, 1, m.Depth)
}

func TestCompute_SequentialTsStackLayers(t *testing.T) {
	c := New(1)
	c.T(0).T(0).Tdg(0)

	m := Compute(c)
	assert.Equal(t, 3, m.TCount)
	assert.Equal(t, 3, m.TDepth)
}

func TestCompute_TDepthCountsTLayersNotTGates(t *testing.T) {
	// Layer 1 holds two T gates, layer 2 one more. Three T gates, two
	// T-bearing layers.
	c := New(2)
	c.T(0).T(1).T(0)

	m := Compute(c)
	assert.Equal(t, 3, m.TCount)
	assert.Equal(t, 2, m.TDepth)
	assert.Equal(t, 2, m.Depth)
}

func TestCompute_MixedCircuit(t *testing.T) {
	c := New(2)
	c.H(0).T(0).H(1).CX(0, 1).Tdg(1)

	m := Compute(c)
	assert.Equal(t, 4, m.Depth)         // h,t on wire 0; cx at layer 3; tdg at 4
	assert.Equal(t, 2, m.TCount)        // t + tdg
	assert.Equal(t, 2, m.TDepth)        // layers 2 and 4
	assert.Equal(t, 3, m.CliffordCount) // h, h, cx
	assert.Equal(t, 1, m.TwoQubitCount)
}
