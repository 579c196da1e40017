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
	"github.com/aristath/quantumlab/internal/modules/circuits"
	"github.com/aristath/quantumlab/internal/modules/runs"
	"github.com/aristath/quantumlab/internal/modules/settings"
)

func setupCircuitsRouter(t *testing.T) (chi.Router, *events.Bus, *settings.Service) {
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

	cacheDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cacheDB.Close() })

	_, err = cacheDB.Exec(`
		CREATE TABLE result_cache (
			cache_key TEXT PRIMARY KEY,
			qubits INTEGER NOT NULL,
			payload BLOB NOT NULL,
			hits INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			last_hit_at INTEGER
		)
	`)
	require.NoError(t, err)

	registry := backends.NewRegistry()
	registry.Register(backends.NewStateVectorBackend(8, log))

	bus := events.NewBus()
	manager := events.NewManager(bus, log)
	settingsService := settings.NewService(settings.NewRepository(configDB, log), log)

	service := circuits.NewService(
		registry,
		settingsService,
		runs.NewRepository(resultsDB, log),
		circuits.NewCacheRepository(cacheDB, log),
		manager,
		log,
	)

	handler := NewHandler(service, settingsService, manager, log)
	router := chi.NewRouter()
	router.Route("/api", func(api chi.Router) {
		handler.RegisterRoutes(api)
	})
	return router, bus, settingsService
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

const bellBody = `{
	"num_qubits": 2,
	"ops": [
		{"name": "h", "qubits": [0]},
		{"name": "cx", "qubits": [0, 1]}
	]
}`

func TestHandleRun(t *testing.T) {
	router, _, _ := setupCircuitsRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/circuits/run", bellBody)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "statevec", data["backend"])
	assert.Equal(t, false, data["cache_hit"])
	assert.NotEmpty(t, data["run_id"])

	probs := data["probabilities"].([]interface{})
	require.Len(t, probs, 4)
	assert.InDelta(t, 0.5, probs[0].(float64), 1e-9)
	assert.InDelta(t, 0.5, probs[3].(float64), 1e-9)

	metrics := data["metrics"].(map[string]interface{})
	assert.Equal(t, float64(2), metrics["depth"])
}

func TestHandleRun_SecondCallHitsCache(t *testing.T) {
	router, _, _ := setupCircuitsRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/circuits/run", bellBody)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/circuits/run", bellBody)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, true, data["cache_hit"])
}

func TestHandleRun_ReturnState(t *testing.T) {
	router, _, _ := setupCircuitsRouter(t)

	body := `{"num_qubits": 1, "ops": [{"name": "h", "qubits": [0]}], "return_state": true}`
	rec := doRequest(t, router, http.MethodPost, "/api/circuits/run", body)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	state := data["state"].([]interface{})
	require.Len(t, state, 2)
	first := state[0].(map[string]interface{})
	assert.InDelta(t, 0.70710678, first["real"].(float64), 1e-6)
}

func TestHandleRun_Shots(t *testing.T) {
	router, _, _ := setupCircuitsRouter(t)

	body := `{"num_qubits": 1, "ops": [{"name": "x", "qubits": [0]}], "shots": 25, "seed": 3}`
	rec := doRequest(t, router, http.MethodPost, "/api/circuits/run", body)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	counts := data["counts"].(map[string]interface{})
	assert.Equal(t, float64(25), counts["1"])
}

func TestHandleRun_BadRequests(t *testing.T) {
	router, _, _ := setupCircuitsRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/circuits/run", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/circuits/run",
		`{"num_qubits": 1, "ops": [{"name": "h", "qubits": [7]}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/circuits/run",
		`{"num_qubits": 1, "ops": [{"name": "h", "qubits": [0]}], "backend": "offsite"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMetrics(t *testing.T) {
	router, _, _ := setupCircuitsRouter(t)

	body := `{
		"num_qubits": 1,
		"ops": [
			{"name": "h", "qubits": [0]},
			{"name": "t", "qubits": [0]},
			{"name": "t", "qubits": [0]}
		]
	}`
	rec := doRequest(t, router, http.MethodPost, "/api/circuits/metrics", body)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["qubits"])
	assert.Equal(t, float64(3), data["ops"])
	assert.NotEmpty(t, data["hash"])

	metrics := data["metrics"].(map[string]interface{})
	assert.Equal(t, float64(3), metrics["depth"])
	assert.Equal(t, float64(2), metrics["t_count"])
	assert.Equal(t, float64(2), metrics["t_depth"])
}

func TestHandleQASM(t *testing.T) {
	router, _, _ := setupCircuitsRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/circuits/qasm", bellBody)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	text := data["qasm"].(string)
	assert.Contains(t, text, "OPENQASM 2.0;")
	assert.Contains(t, text, "qreg q[2];")
	assert.Contains(t, text, "h q[0];")
	assert.Contains(t, text, "cx q[0],q[1];")
}

func TestHandleParse(t *testing.T) {
	router, _, _ := setupCircuitsRouter(t)

	qasm := "OPENQASM 2.0;\ninclude \"qelib1.inc\";\nqreg q[2];\ncreg c[2];\nh q[0];\ncx q[0],q[1];\nmeasure q -> c;"
	payload, err := json.Marshal(map[string]string{"qasm": qasm})
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/api/circuits/parse", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["num_qubits"])

	ops := data["ops"].([]interface{})
	require.Len(t, ops, 2)
	first := ops[0].(map[string]interface{})
	assert.Equal(t, "h", first["name"])
}

func TestHandleParse_BadProgram(t *testing.T) {
	router, _, _ := setupCircuitsRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/circuits/parse", `{"qasm": "qreg q[1];\nwarp q[0];"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCacheStatsAndClear(t *testing.T) {
	router, _, _ := setupCircuitsRouter(t)

	doRequest(t, router, http.MethodPost, "/api/circuits/run", bellBody)

	rec := doRequest(t, router, http.MethodGet, "/api/circuits/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["entries"])

	rec = doRequest(t, router, http.MethodDelete, "/api/circuits/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["removed"])

	rec = doRequest(t, router, http.MethodGet, "/api/circuits/cache", "")
	data = decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["entries"])
}

func TestHandleSession_RejectsBadQubits(t *testing.T) {
	router, _, _ := setupCircuitsRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/circuits/session?qubits=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/circuits/session?qubits=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/circuits/session?qubits=99", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterRoutes(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(nil, nil, nil, log)

	assert.NotPanics(t, func() {
		router := chi.NewRouter()
		handler.RegisterRoutes(router)
	})
}
