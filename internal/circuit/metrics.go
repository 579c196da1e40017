package circuit

import "github.com/aristath/quantumlab/internal/quantum"

// Metrics summarizes the cost structure of a circuit. Depth counts gate
// layers, T-depth counts layers containing at least one T-type gate, and
// T-count counts T and T-dagger applications. These are the quantities the
// T-optimization exercise compares across circuit variants.
type Metrics struct {
	Depth         int `json:"depth"`
	TCount        int `json:"t_count"`
	TDepth        int `json:"t_depth"`
	CliffordCount int `json:"clifford_count"`
	TwoQubitCount int `json:"two_qubit_count"`
}

// Compute walks the op list once, assigning each op to the earliest layer
// after the last use of every wire it touches.
func Compute(c *Circuit) Metrics {
	var m Metrics

	qubitLayer := make([]int, c.NumQubits)
	tLayers := make(map[int]bool)

	for _, op := range c.Ops {
		layer := 0
		for _, q := range op.Qubits {
			if q < 0 || q >= c.NumQubits {
				continue
			}
			if qubitLayer[q] > layer {
				layer = qubitLayer[q]
			}
		}
		layer++
		for _, q := range op.Qubits {
			if q >= 0 && q < c.NumQubits {
				qubitLayer[q] = layer
			}
		}
		if layer > m.Depth {
			m.Depth = layer
		}

		if quantum.IsTType(op.Name) {
			m.TCount++
			tLayers[layer] = true
		}

		switch op.Name {
		case quantum.GateH, quantum.GateX, quantum.GateY, quantum.GateZ,
			quantum.GateS, quantum.GateSdg:
			m.CliffordCount++
		case quantum.GateCX, quantum.GateCZ, quantum.GateSwap:
			m.CliffordCount++
			m.TwoQubitCount++
		}
	}

	m.TDepth = len(tLayers)
	return m
}
