package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantumlab/internal/backends"
	"github.com/aristath/quantumlab/internal/events"
	"github.com/aristath/quantumlab/internal/modules/exercises"
	"github.com/aristath/quantumlab/internal/modules/runs"
	"github.com/aristath/quantumlab/internal/modules/settings"
)

func setupTestRouter(t *testing.T) chi.Router {
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

	service := exercises.NewService(
		registry,
		settings.NewService(settings.NewRepository(configDB, log), log),
		runs.NewRepository(resultsDB, log),
		events.NewManager(events.NewBus(), log),
		log,
	)

	handler := NewHandler(service, log)
	router := chi.NewRouter()
	router.Route("/api", func(api chi.Router) {
		handler.RegisterRoutes(api)
	})
	return router
}

func doRequest(t *testing.T, router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "data")
	require.Contains(t, body, "metadata")
	return body
}

func TestHandleList(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/exercises", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(8), data["count"])

	list := data["exercises"].([]interface{})
	require.Len(t, list, 8)

	first := list[0].(map[string]interface{})
	assert.Equal(t, "superposition-of-basis", first["slug"])
	assert.NotEmpty(t, first["title"])
}

func TestHandleList_ExposesVariantTargets(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/exercises", "")
	body := decodeEnvelope(t, rec)

	list := body["data"].(map[string]interface{})["exercises"].([]interface{})
	last := list[len(list)-1].(map[string]interface{})
	require.Equal(t, "just-enough-ts", last["slug"])

	variants := last["variants"].([]interface{})
	require.Len(t, variants, 2)

	optimized := variants[0].(map[string]interface{})
	assert.Equal(t, "optimized", optimized["name"])
	targets := optimized["targets"].(map[string]interface{})
	assert.Equal(t, float64(3), targets["t_count"])
	assert.Equal(t, float64(2), targets["t_depth"])
}

func TestHandleGet(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/exercises/hadamard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "hadamard", data["slug"])
	assert.Equal(t, float64(1), data["wires"])
	assert.Equal(t, "state", data["readout"])
}

func TestHandleGet_NotFound(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/exercises/no-such", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRun(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/exercises/hadamard/run", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "hadamard", data["slug"])
	assert.NotEmpty(t, data["run_id"])

	state := data["state"].([]interface{})
	require.Len(t, state, 2)
	first := state[0].(map[string]interface{})
	assert.InDelta(t, 0.70710678, first["real"].(float64), 1e-6)
}

func TestHandleRun_WithState(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/exercises/hxh-sandwich/run", `{"state": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeEnvelope(t, rec)
	state := body["data"].(map[string]interface{})["state"].([]interface{})
	require.Len(t, state, 2)

	second := state[1].(map[string]interface{})
	assert.InDelta(t, -1.0, second["real"].(float64), 1e-9)
	assert.InDelta(t, 0.0, second["imaginary"].(float64), 1e-9)
}

func TestHandleRun_StateOnFixedInputExercise(t *testing.T) {
	router := setupTestRouter(t)

	// Even state 0 is rejected when the exercise takes no initial state.
	rec := doRequest(t, router, http.MethodPost, "/api/exercises/hadamard/run", `{"state": 0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_BadState(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/exercises/hadamard-on-basis/run", `{"state": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_BadVariant(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/exercises/just-enough-ts/run", `{"variant": "handwavy"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_BadBody(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/exercises/hadamard/run", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_NotFound(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/exercises/no-such/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRun_VariantReadout(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/exercises/just-enough-ts/run", `{"variant": "reference"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "reference", data["variant"])

	probs := data["probabilities"].([]interface{})
	require.Len(t, probs, 8)
	assert.InDelta(t, 0.375, probs[4].(float64), 1e-9)

	metrics := data["metrics"].(map[string]interface{})
	assert.Equal(t, float64(13), metrics["t_count"])
}

func TestHandleVerify(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/exercises/just-enough-ts/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["passed"])

	checks := data["checks"].([]interface{})
	require.Len(t, checks, 5)
	for _, raw := range checks {
		check := raw.(map[string]interface{})
		assert.Equal(t, true, check["passed"], check["name"])
	}
}

func TestHandleVerify_NotFound(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/exercises/no-such/verify", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterRoutes(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(nil, log)

	assert.NotPanics(t, func() {
		router := chi.NewRouter()
		handler.RegisterRoutes(router)
	})
}
