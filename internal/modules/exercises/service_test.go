package exercises

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantumlab/internal/backends"
	"github.com/aristath/quantumlab/internal/events"
	"github.com/aristath/quantumlab/internal/modules/runs"
	"github.com/aristath/quantumlab/internal/modules/settings"
)

func newTestService(t *testing.T) (*Service, *runs.Repository, *events.Bus) {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)

	configDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { configDB.Close() })

	_, err = configDB.Exec(`
		CREATE TABLE settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			description TEXT,
			updated_at INTEGER NOT NULL DEFAULT 0
		)
	`)
	require.NoError(t, err)

	resultsDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { resultsDB.Close() })

	_, err = resultsDB.Exec(`
		CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			backend TEXT NOT NULL,
			qubits INTEGER NOT NULL,
			ops INTEGER NOT NULL,
			shots INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			t_count INTEGER NOT NULL,
			t_depth INTEGER NOT NULL,
			readout TEXT NOT NULL,
			duration_ms REAL NOT NULL,
			result_blob BLOB,
			created_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	registry := backends.NewRegistry()
	registry.Register(backends.NewStateVectorBackend(8, log))

	bus := events.NewBus()
	manager := events.NewManager(bus, log)

	settingsService := settings.NewService(settings.NewRepository(configDB, log), log)
	runsRepo := runs.NewRepository(resultsDB, log)

	return NewService(registry, settingsService, runsRepo, manager, log), runsRepo, bus
}

func TestServiceRun_StateReadout(t *testing.T) {
	svc, _, _ := newTestService(t)

	outcome, err := svc.Run(context.Background(), "hadamard", Params{})
	require.NoError(t, err)

	assert.Equal(t, "hadamard", outcome.Slug)
	assert.Equal(t, backends.LocalBackendName, outcome.Backend)
	assert.Equal(t, ReadoutState, outcome.Readout)
	assert.Empty(t, outcome.Variant)
	require.Len(t, outcome.State, 2)
	assert.InDelta(t, 0.70710678, outcome.State[0].Real, 1e-6)
	assert.InDelta(t, 0.70710678, outcome.State[1].Real, 1e-6)
	assert.Equal(t, 1, outcome.Metrics.Depth)
	assert.NotEmpty(t, outcome.RunID)
}

func TestServiceRun_PersistsRun(t *testing.T) {
	svc, repo, _ := newTestService(t)

	outcome, err := svc.Run(context.Background(), "hxh-sandwich", Params{State: 1})
	require.NoError(t, err)

	stored, err := repo.Get(outcome.RunID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, "hxh-sandwich", stored.Source)
	assert.Equal(t, 1, stored.Qubits)
	assert.Equal(t, 4, stored.Ops)
	assert.Equal(t, ReadoutState, stored.Readout)
	require.NotNil(t, stored.Result)
	require.Len(t, stored.Result.State, 2)
	assert.InDelta(t, -1.0, stored.Result.State[1].Real, 1e-9)
}

func TestServiceRun_ProbabilityReadout(t *testing.T) {
	svc, _, _ := newTestService(t)

	outcome, err := svc.Run(context.Background(), "just-enough-ts", Params{})
	require.NoError(t, err)

	assert.Equal(t, "optimized", outcome.Variant)
	assert.Nil(t, outcome.State)
	require.Len(t, outcome.Probabilities, 8)
	assert.InDelta(t, 0.375, outcome.Probabilities[4], 1e-9)
	assert.InDelta(t, 0.125, outcome.Probabilities[7], 1e-9)
	assert.Equal(t, 3, outcome.Metrics.TCount)
}

func TestServiceRun_ReferenceVariant(t *testing.T) {
	svc, _, _ := newTestService(t)

	outcome, err := svc.Run(context.Background(), "just-enough-ts", Params{Variant: "reference"})
	require.NoError(t, err)

	assert.Equal(t, "reference", outcome.Variant)
	assert.Equal(t, 13, outcome.Metrics.TCount)
	assert.Equal(t, 6, outcome.Metrics.TDepth)
}

func TestServiceRun_UnknownSlug(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Run(context.Background(), "no-such-exercise", Params{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceRun_RejectsBadParams(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Run(context.Background(), "hadamard-on-basis", Params{State: 2})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = svc.Run(context.Background(), "hadamard", Params{State: 1})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = svc.Run(context.Background(), "just-enough-ts", Params{Variant: "handwavy"})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestServiceRun_EmitsEvent(t *testing.T) {
	svc, _, bus := newTestService(t)

	var got *events.Event
	bus.Subscribe(events.ExerciseRun, func(e *events.Event) { got = e })

	outcome, err := svc.Run(context.Background(), "z-on-plus", Params{})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "z-on-plus", got.Data["slug"])
	assert.Equal(t, outcome.RunID, got.Data["run_id"])
}

func TestServiceVerify_WholeCatalogPasses(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, ex := range Catalog() {
		report, err := svc.Verify(context.Background(), ex.Slug)
		require.NoError(t, err, ex.Slug)
		assert.True(t, report.Passed, "%s report: %+v", ex.Slug, report.Checks)
	}
}

func TestServiceVerify_CheckBreakdown(t *testing.T) {
	svc, _, _ := newTestService(t)

	// Two initial states, one variant, no targets.
	report, err := svc.Verify(context.Background(), "hxh-sandwich")
	require.NoError(t, err)
	require.Len(t, report.Checks, 2)

	// Two variants with targets plus the cross-variant comparison.
	report, err = svc.Verify(context.Background(), "just-enough-ts")
	require.NoError(t, err)
	require.Len(t, report.Checks, 5)

	names := make([]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		names = append(names, c.Name)
		assert.True(t, c.Passed, c.Name)
	}
	assert.Contains(t, names, "optimized readout")
	assert.Contains(t, names, "optimized metrics")
	assert.Contains(t, names, "reference readout")
	assert.Contains(t, names, "reference metrics")
	assert.Contains(t, names, "variants agree")
}

func TestServiceVerify_UnknownSlug(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Verify(context.Background(), "no-such-exercise")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceVerify_EmitsEvent(t *testing.T) {
	svc, _, bus := newTestService(t)

	var got *events.Event
	bus.Subscribe(events.ExerciseVerified, func(e *events.Event) { got = e })

	_, err := svc.Verify(context.Background(), "rz-as-z")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "rz-as-z", got.Data["slug"])
	assert.Equal(t, true, got.Data["passed"])
}

func TestServiceRun_RespectsConfiguredBackend(t *testing.T) {
	svc, _, _ := newTestService(t)

	// Pointing the default-backend setting at a missing backend surfaces
	// a resolution error instead of silently falling back.
	require.NoError(t, svc.settings.Set("default_backend", "offsite"))

	_, err := svc.Run(context.Background(), "hadamard", Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offsite")
}
