package exercises

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/backends"
	"github.com/aristath/quantumlab/internal/circuit"
	"github.com/aristath/quantumlab/internal/events"
	"github.com/aristath/quantumlab/internal/modules/runs"
	"github.com/aristath/quantumlab/internal/modules/settings"
	"github.com/aristath/quantumlab/internal/quantum"
)

// verifyTol bounds the amplitude and probability error Verify accepts.
const verifyTol = 1e-9

var (
	// ErrNotFound is returned for unknown exercise slugs.
	ErrNotFound = errors.New("exercise not found")
	// ErrInvalidParams is returned when params do not fit the exercise.
	ErrInvalidParams = errors.New("invalid exercise params")
)

// Service runs and verifies catalog exercises against the configured backend,
// recording every execution in the run history.
type Service struct {
	registry *backends.Registry
	settings *settings.Service
	runs     *runs.Repository
	events   *events.Manager
	log      zerolog.Logger
}

// NewService creates an exercise service.
func NewService(registry *backends.Registry, settingsService *settings.Service, runsRepo *runs.Repository, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		settings: settingsService,
		runs:     runsRepo,
		events:   eventManager,
		log:      log.With().Str("service", "exercises").Logger(),
	}
}

// Outcome is the observable result of one exercise run.
type Outcome struct {
	Slug          string           `json:"slug"`
	Variant       string           `json:"variant,omitempty"`
	Backend       string           `json:"backend"`
	Readout       string           `json:"readout"`
	State         []runs.Amplitude `json:"state,omitempty"`
	Probabilities []float64        `json:"probabilities,omitempty"`
	Metrics       circuit.Metrics  `json:"metrics"`
	RunID         string           `json:"run_id,omitempty"`
	DurationMs    float64          `json:"duration_ms"`
}

// Check is one verification step of a report.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report collects the verification checks for one exercise.
type Report struct {
	Slug   string  `json:"slug"`
	Passed bool    `json:"passed"`
	Checks []Check `json:"checks"`
}

// Run builds the exercise circuit for the given params, executes it on the
// configured backend and records the run.
func (s *Service) Run(ctx context.Context, slug string, p Params) (*Outcome, error) {
	ex := Get(slug)
	if ex == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	if err := validateParams(ex, p); err != nil {
		return nil, err
	}

	variant := ex.Variant(p.Variant)
	c := variant.Build(p)

	backend, err := s.registry.Get(s.settings.DefaultBackend())
	if err != nil {
		return nil, fmt.Errorf("resolve backend: %w", err)
	}

	res, err := backend.Execute(ctx, c, backends.Options{ReturnState: true})
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", slug, err)
	}

	durationMs := float64(res.Duration.Microseconds()) / 1000.0
	payload := runs.PayloadFromResult(res)

	run := &runs.Run{
		Source:     ex.Slug,
		Backend:    res.Backend,
		Qubits:     res.NumQubits,
		Ops:        len(c.Ops),
		Depth:      res.Metrics.Depth,
		TCount:     res.Metrics.TCount,
		TDepth:     res.Metrics.TDepth,
		Readout:    ex.Readout,
		DurationMs: durationMs,
	}
	runID := ""
	if err := s.runs.Create(run, payload); err != nil {
		s.log.Error().Err(err).Str("slug", ex.Slug).Msg("Failed to record exercise run")
	} else {
		runID = run.ID
	}

	s.events.EmitTyped(events.ExerciseRun, "exercises", &events.ExerciseRunData{
		Slug:       ex.Slug,
		RunID:      runID,
		Backend:    res.Backend,
		Qubits:     res.NumQubits,
		Depth:      res.Metrics.Depth,
		TCount:     res.Metrics.TCount,
		DurationMs: durationMs,
	})

	out := &Outcome{
		Slug:       ex.Slug,
		Backend:    res.Backend,
		Readout:    ex.Readout,
		Metrics:    res.Metrics,
		RunID:      runID,
		DurationMs: durationMs,
	}
	if len(ex.Variants) > 1 {
		out.Variant = variant.Name
	}
	switch ex.Readout {
	case ReadoutState:
		out.State = payload.State
	case ReadoutProbabilities:
		out.Probabilities = res.Probabilities
	}
	return out, nil
}

// Verify executes the exercise in every configuration it declares and checks
// the results against the catalog expectations: readouts per initial state and
// variant, metric targets where a variant carries them, and cross-variant
// state agreement for exercises with more than one form.
func (s *Service) Verify(ctx context.Context, slug string) (*Report, error) {
	ex := Get(slug)
	if ex == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}

	backend, err := s.registry.Get(s.settings.DefaultBackend())
	if err != nil {
		return nil, fmt.Errorf("resolve backend: %w", err)
	}

	report := &Report{Slug: slug, Passed: true}
	record := func(c Check) {
		if !c.Passed {
			report.Passed = false
		}
		report.Checks = append(report.Checks, c)
	}

	states := []int{0}
	if ex.TakesState {
		states = []int{0, 1}
	}

	variantStates := make(map[string]*quantum.StateVector)

	for vi := range ex.Variants {
		v := &ex.Variants[vi]
		for _, st := range states {
			p := Params{State: st, Variant: v.Name}
			res, err := backend.Execute(ctx, v.Build(p), backends.Options{ReturnState: true})
			if err != nil {
				return nil, fmt.Errorf("execute %s: %w", slug, err)
			}
			if st == 0 {
				variantStates[v.Name] = &quantum.StateVector{Amplitudes: res.State, NumQubits: res.NumQubits}
			}
			record(expectationCheck(ex, v, p, res))
		}
		if v.Targets != nil {
			record(metricsCheck(v))
		}
	}

	if len(ex.Variants) > 1 {
		record(equivalenceCheck(ex, variantStates))
	}

	s.events.EmitTyped(events.ExerciseVerified, "exercises", &events.ExerciseVerifiedData{
		Slug:   slug,
		Passed: report.Passed,
		Checks: len(report.Checks),
	})

	s.log.Info().
		Str("slug", slug).
		Bool("passed", report.Passed).
		Int("checks", len(report.Checks)).
		Msg("Exercise verified")

	return report, nil
}

func validateParams(ex *Exercise, p Params) error {
	if p.State != 0 && p.State != 1 {
		return fmt.Errorf("%w: state must be 0 or 1, got %d", ErrInvalidParams, p.State)
	}
	if p.State == 1 && !ex.TakesState {
		return fmt.Errorf("%w: %s does not take an initial state", ErrInvalidParams, ex.Slug)
	}
	if p.Variant != "" && ex.Variant(p.Variant) == nil {
		return fmt.Errorf("%w: %s has no variant %q", ErrInvalidParams, ex.Slug, p.Variant)
	}
	return nil
}

func expectationCheck(ex *Exercise, v *Variant, p Params, res *backends.Result) Check {
	name := "readout"
	if len(ex.Variants) > 1 {
		name = v.Name + " readout"
	}
	if ex.TakesState {
		name = fmt.Sprintf("%s from |%d>", name, p.State)
	}

	want := ex.Expected(p)
	switch {
	case want.State != nil:
		if len(res.State) != len(want.State) {
			return Check{Name: name, Detail: fmt.Sprintf("state has %d amplitudes, want %d", len(res.State), len(want.State))}
		}
		if want.UpToGlobalPhase {
			got := &quantum.StateVector{Amplitudes: res.State, NumQubits: res.NumQubits}
			exp := &quantum.StateVector{Amplitudes: want.State, NumQubits: res.NumQubits}
			if !quantum.EqualUpToGlobalPhase(exp, got, verifyTol) {
				return Check{Name: name, Detail: "state differs beyond a global phase"}
			}
			return Check{Name: name, Passed: true}
		}
		for i := range want.State {
			if cmplx.Abs(res.State[i]-want.State[i]) > verifyTol {
				return Check{Name: name, Detail: fmt.Sprintf(
					"amplitude %d is %.6f%+.6fi, want %.6f%+.6fi",
					i, real(res.State[i]), imag(res.State[i]), real(want.State[i]), imag(want.State[i]))}
			}
		}
		return Check{Name: name, Passed: true}

	case want.Probabilities != nil:
		if len(res.Probabilities) != len(want.Probabilities) {
			return Check{Name: name, Detail: fmt.Sprintf("distribution has %d outcomes, want %d", len(res.Probabilities), len(want.Probabilities))}
		}
		for i := range want.Probabilities {
			if math.Abs(res.Probabilities[i]-want.Probabilities[i]) > verifyTol {
				return Check{Name: name, Detail: fmt.Sprintf(
					"outcome %0*b has probability %.6f, want %.6f",
					res.NumQubits, i, res.Probabilities[i], want.Probabilities[i])}
			}
		}
		return Check{Name: name, Passed: true}
	}

	return Check{Name: name, Passed: true}
}

func metricsCheck(v *Variant) Check {
	name := v.Name + " metrics"
	m := circuit.Compute(v.Build(Params{Variant: v.Name}))
	if m != *v.Targets {
		return Check{Name: name, Detail: fmt.Sprintf(
			"depth %d, T count %d, T depth %d, want depth %d, T count %d, T depth %d",
			m.Depth, m.TCount, m.TDepth, v.Targets.Depth, v.Targets.TCount, v.Targets.TDepth)}
	}
	return Check{Name: name, Passed: true, Detail: fmt.Sprintf(
		"depth %d, T count %d, T depth %d", m.Depth, m.TCount, m.TDepth)}
}

func equivalenceCheck(ex *Exercise, states map[string]*quantum.StateVector) Check {
	base := ex.Variants[0].Name
	for _, v := range ex.Variants[1:] {
		if !quantum.EqualUpToGlobalPhase(states[base], states[v.Name], verifyTol) {
			return Check{Name: "variants agree", Detail: fmt.Sprintf("%s diverges from %s", v.Name, base)}
		}
	}
	return Check{Name: "variants agree", Passed: true}
}
