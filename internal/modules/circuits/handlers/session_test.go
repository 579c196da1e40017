package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/quantumlab/internal/events"
)

func readPush(ctx context.Context, t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, msgType)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func sendCommand(ctx context.Context, t *testing.T, conn *websocket.Conn, command string) {
	t.Helper()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(command)))
}

func TestHandleSession(t *testing.T) {
	router, bus, _ := setupCircuitsRouter(t)

	started := make(chan *events.Event, 1)
	closed := make(chan *events.Event, 1)
	bus.Subscribe(events.SessionStarted, func(e *events.Event) { started <- e })
	bus.Subscribe(events.SessionClosed, func(e *events.Event) { closed <- e })

	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, server.URL+"/api/circuits/session?qubits=2", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	// The greeting snapshot describes the ground state.
	msg := readPush(ctx, t, conn)
	assert.Equal(t, "state", msg["type"])
	assert.NotEmpty(t, msg["session_id"])
	assert.Equal(t, float64(2), msg["qubits"])
	assert.Equal(t, float64(0), msg["ops"])

	probs := msg["probabilities"].([]interface{})
	require.Len(t, probs, 4)
	assert.InDelta(t, 1.0, probs[0].(float64), 1e-9)

	amps := msg["state"].([]interface{})
	require.Len(t, amps, 4)
	first := amps[0].(map[string]interface{})
	assert.InDelta(t, 1.0, first["real"].(float64), 1e-9)

	select {
	case e := <-started:
		assert.Equal(t, msg["session_id"], e.Data["session_id"])
		assert.Equal(t, float64(2), e.Data["qubits"])
	case <-ctx.Done():
		t.Fatal("no session started event")
	}

	// Hadamard on wire 0 splits the top qubit.
	sendCommand(ctx, t, conn, `{"op":"gate","name":"h","qubits":[0]}`)
	msg = readPush(ctx, t, conn)
	assert.Equal(t, "state", msg["type"])
	assert.Equal(t, float64(1), msg["ops"])

	probs = msg["probabilities"].([]interface{})
	assert.InDelta(t, 0.5, probs[0].(float64), 1e-9)
	assert.InDelta(t, 0.5, probs[2].(float64), 1e-9)

	// Bad commands report an error without killing the session.
	sendCommand(ctx, t, conn, `{"op":"gate","name":"warp","qubits":[0]}`)
	msg = readPush(ctx, t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.NotEmpty(t, msg["error"])

	sendCommand(ctx, t, conn, `not json`)
	msg = readPush(ctx, t, conn)
	assert.Equal(t, "error", msg["type"])

	sendCommand(ctx, t, conn, `{"op":"qasm"}`)
	msg = readPush(ctx, t, conn)
	assert.Equal(t, "qasm", msg["type"])
	assert.Contains(t, msg["qasm"], "qreg q[2];")
	assert.Contains(t, msg["qasm"], "h q[0];")

	sendCommand(ctx, t, conn, `{"op":"gate","name":"cx","qubits":[0,1]}`)
	msg = readPush(ctx, t, conn)
	assert.Equal(t, float64(2), msg["ops"])

	probs = msg["probabilities"].([]interface{})
	assert.InDelta(t, 0.5, probs[0].(float64), 1e-9)
	assert.InDelta(t, 0.5, probs[3].(float64), 1e-9)

	sendCommand(ctx, t, conn, `{"op":"undo"}`)
	msg = readPush(ctx, t, conn)
	assert.Equal(t, float64(1), msg["ops"])

	sendCommand(ctx, t, conn, `{"op":"reset"}`)
	msg = readPush(ctx, t, conn)
	assert.Equal(t, float64(0), msg["ops"])

	probs = msg["probabilities"].([]interface{})
	assert.InDelta(t, 1.0, probs[0].(float64), 1e-9)

	sendCommand(ctx, t, conn, `{"op":"gate","name":"x","qubits":[1]}`)
	msg = readPush(ctx, t, conn)
	assert.Equal(t, float64(1), msg["ops"])

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))

	select {
	case e := <-closed:
		assert.Equal(t, msg["session_id"], e.Data["session_id"])
		assert.Equal(t, float64(1), e.Data["ops"])
	case <-ctx.Done():
		t.Fatal("no session closed event")
	}
}

func TestHandleSession_StatePushesDisabled(t *testing.T) {
	router, _, settingsService := setupCircuitsRouter(t)
	require.NoError(t, settingsService.Set("session_state_pushes", false))

	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, server.URL+"/api/circuits/session?qubits=1", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	msg := readPush(ctx, t, conn)
	assert.Equal(t, "state", msg["type"])
	assert.Contains(t, msg, "probabilities")
	assert.NotContains(t, msg, "state")

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}
