// Package backends defines the execution surface the workbench runs
// circuits on. A backend takes a validated circuit description and produces
// amplitudes, probabilities, and optional sampled counts. Only a local
// state-vector simulator ships; the registry keeps the seam where other
// executors would plug in.
package backends

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/quantumlab/internal/circuit"
)

// Options controls a single execution.
type Options struct {
	// Shots samples the outcome distribution this many times. Zero means
	// exact readout only.
	Shots int
	// ReturnState includes the raw amplitudes in the result.
	ReturnState bool
	// Seed fixes the sampling source; zero seeds from the clock.
	Seed int64
}

// Result is the outcome of one circuit execution.
type Result struct {
	Backend       string          `json:"backend"`
	NumQubits     int             `json:"num_qubits"`
	State         []complex128    `json:"-"`
	Probabilities []float64       `json:"probabilities"`
	Counts        map[string]int  `json:"counts,omitempty"`
	Metrics       circuit.Metrics `json:"metrics"`
	Duration      time.Duration   `json:"-"`
}

// Backend executes circuits.
type Backend interface {
	Name() string
	MaxQubits() int
	IsSimulator() bool
	Execute(ctx context.Context, c *circuit.Circuit, opts Options) (*Result, error)
}

// Registry holds the available backends by name.
type Registry struct {
	mu          sync.RWMutex
	backends    map[string]Backend
	defaultName string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds a backend. The first registered backend becomes the default.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backends[b.Name()] = b
	if r.defaultName == "" {
		r.defaultName = b.Name()
	}
}

// SetDefault selects the default backend by name.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.backends[name]; !ok {
		return fmt.Errorf("unknown backend %q", name)
	}
	r.defaultName = name
	return nil
}

// Get resolves a backend by name. An empty name resolves the default.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultName
	}
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", name)
	}
	return b, nil
}

// Names lists registered backends in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultName returns the current default backend name.
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}
