package circuits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/backends"
	"github.com/aristath/quantumlab/internal/circuit"
	"github.com/aristath/quantumlab/internal/events"
	"github.com/aristath/quantumlab/internal/modules/runs"
	"github.com/aristath/quantumlab/internal/modules/settings"
)

var (
	// ErrInvalidCircuit is returned when a submitted circuit fails validation.
	ErrInvalidCircuit = errors.New("invalid circuit")
	// ErrUnknownBackend is returned when a request names a backend that is
	// not registered.
	ErrUnknownBackend = errors.New("unknown backend")
)

// Service executes ad-hoc circuits with result memoization.
type Service struct {
	registry *backends.Registry
	settings *settings.Service
	runs     *runs.Repository
	cache    *CacheRepository
	events   *events.Manager
	log      zerolog.Logger
}

// NewService creates a circuit execution service.
func NewService(registry *backends.Registry, settingsService *settings.Service, runsRepo *runs.Repository, cache *CacheRepository, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		settings: settingsService,
		runs:     runsRepo,
		cache:    cache,
		events:   eventManager,
		log:      log.With().Str("service", "circuits").Logger(),
	}
}

// Run validates and executes one submitted circuit. Exact runs (zero shots)
// are served from the result cache when enabled; sampled runs always
// execute.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResponse, error) {
	c := req.Circuit()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCircuit, err)
	}
	if max := s.settings.MaxQubits(); c.NumQubits > max {
		return nil, fmt.Errorf("%w: circuit uses %d qubits, limit is %d", ErrInvalidCircuit, c.NumQubits, max)
	}
	if req.Shots == 0 {
		req.Shots = s.settings.DefaultShots()
	}
	if req.Shots < 0 {
		return nil, fmt.Errorf("%w: shots must not be negative, got %d", ErrInvalidCircuit, req.Shots)
	}

	backendName := req.Backend
	if backendName == "" {
		backendName = s.settings.DefaultBackend()
	}
	backend, err := s.registry.Get(backendName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backendName)
	}

	start := time.Now()
	metrics := circuit.Compute(c)

	cacheable := req.Shots == 0 && s.settings.CacheResults()
	key := cacheKey(c, req.ReturnState)

	if cacheable {
		payload, hit, err := s.cache.Get(key)
		if err != nil {
			s.log.Warn().Err(err).Msg("Cache lookup failed, executing instead")
		} else if hit {
			s.log.Debug().Str("key", key[:12]).Msg("Cache hit")
			return s.finish(c, req, backend.Name(), metrics, payload, true, start), nil
		}
	}

	res, err := backend.Execute(ctx, c, backends.Options{
		Shots:       req.Shots,
		ReturnState: req.ReturnState,
		Seed:        req.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("execute circuit: %w", err)
	}

	payload := runs.PayloadFromResult(res)
	if cacheable {
		if err := s.cache.Put(key, c.NumQubits, payload); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache result")
		}
	}

	return s.finish(c, req, res.Backend, res.Metrics, payload, false, start), nil
}

// Describe computes metrics, fingerprint, and OpenQASM for a circuit
// without executing it.
func (s *Service) Describe(req RunRequest) (*circuit.Circuit, circuit.Metrics, error) {
	c := req.Circuit()
	if err := c.Validate(); err != nil {
		return nil, circuit.Metrics{}, fmt.Errorf("%w: %v", ErrInvalidCircuit, err)
	}
	return c, circuit.Compute(c), nil
}

// ClearCache drops all memoized results.
func (s *Service) ClearCache() (int64, error) {
	return s.cache.Clear()
}

// CacheStats reports the state of the result cache.
func (s *Service) CacheStats() (*CacheStats, error) {
	return s.cache.Stats()
}

func (s *Service) finish(c *circuit.Circuit, req RunRequest, backendName string, metrics circuit.Metrics, payload *runs.ResultPayload, cacheHit bool, start time.Time) *RunResponse {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0

	run := &runs.Run{
		Source:     runs.SourceAdhoc,
		Backend:    backendName,
		Qubits:     c.NumQubits,
		Ops:        len(c.Ops),
		Shots:      req.Shots,
		Depth:      metrics.Depth,
		TCount:     metrics.TCount,
		TDepth:     metrics.TDepth,
		Readout:    readoutFor(req),
		DurationMs: durationMs,
	}
	runID := ""
	if err := s.runs.Create(run, payload); err != nil {
		s.log.Error().Err(err).Msg("Failed to record circuit run")
	} else {
		runID = run.ID
	}

	s.events.EmitTyped(events.CircuitExecuted, "circuits", &events.CircuitExecutedData{
		RunID:      runID,
		Backend:    backendName,
		Qubits:     c.NumQubits,
		Ops:        len(c.Ops),
		Shots:      req.Shots,
		CacheHit:   cacheHit,
		DurationMs: durationMs,
	})

	resp := &RunResponse{
		Backend:       backendName,
		Qubits:        c.NumQubits,
		Probabilities: payload.Probabilities,
		Counts:        payload.Counts,
		Metrics:       metrics,
		CacheHit:      cacheHit,
		RunID:         runID,
		DurationMs:    durationMs,
	}
	if req.ReturnState {
		resp.State = payload.State
	}
	return resp
}

func readoutFor(req RunRequest) string {
	switch {
	case req.Shots > 0:
		return runs.ReadoutCounts
	case req.ReturnState:
		return runs.ReadoutState
	default:
		return runs.ReadoutProbabilities
	}
}

// cacheKey derives the memoization key. State-bearing payloads are stored
// separately from probability-only ones.
func cacheKey(c *circuit.Circuit, withState bool) string {
	if withState {
		return c.Hash() + ":state"
	}
	return c.Hash()
}
