package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"nhooyr.io/websocket"

	"github.com/aristath/quantumlab/internal/circuit"
	"github.com/aristath/quantumlab/internal/events"
	"github.com/aristath/quantumlab/internal/modules/circuits"
)

// Session command ops.
const (
	cmdGate  = "gate"
	cmdReset = "reset"
	cmdUndo  = "undo"
	cmdQASM  = "qasm"
)

// SessionCommand is one client message on a session socket.
type SessionCommand struct {
	Op     string    `json:"op"`
	Name   string    `json:"name,omitempty"`
	Qubits []int     `json:"qubits,omitempty"`
	Params []float64 `json:"params,omitempty"`
}

// HandleSession handles GET /api/circuits/session?qubits=n, upgrading to a
// websocket. The server pushes a register snapshot after every accepted
// command; command errors are reported without closing the session.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	qubits := 1
	if raw := r.URL.Query().Get("qubits"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "qubits must be a positive integer", http.StatusBadRequest)
			return
		}
		qubits = parsed
	}
	if max := h.settings.MaxQubits(); qubits > max {
		http.Error(w, fmt.Sprintf("qubits must not exceed %d", max), http.StatusBadRequest)
		return
	}

	session, err := circuits.NewSession(qubits)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.CloseNow()

	includeState := h.settings.GetBool("session_state_pushes", true)

	h.log.Info().Str("session_id", session.ID).Int("qubits", qubits).Msg("Session opened")
	h.events.EmitTyped(events.SessionStarted, "circuits", &events.SessionData{
		SessionID: session.ID,
		Qubits:    qubits,
	})
	defer func() {
		h.events.EmitTyped(events.SessionClosed, "circuits", &events.SessionData{
			SessionID: session.ID,
			Qubits:    qubits,
			Ops:       session.Ops(),
		})
		h.log.Info().Str("session_id", session.ID).Int("ops", session.Ops()).Msg("Session closed")
	}()

	// The socket outlives the request timeout middleware, so reads and
	// writes run against their own context.
	ctx := context.Background()

	// Greet with the empty register so the client can render immediately.
	if err := h.pushState(ctx, conn, session, includeState); err != nil {
		return
	}

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				h.log.Debug().Str("session_id", session.ID).Msg("Session closed by client")
			} else if ctx.Err() == nil {
				h.log.Warn().Err(err).Str("session_id", session.ID).Msg("Session read failed")
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var cmd SessionCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			if err := h.pushError(ctx, conn, "malformed command"); err != nil {
				return
			}
			continue
		}

		switch cmd.Op {
		case cmdGate:
			op := circuit.GateOp{Name: cmd.Name, Qubits: cmd.Qubits, Params: cmd.Params}
			if err := session.Apply(op); err != nil {
				if err := h.pushError(ctx, conn, err.Error()); err != nil {
					return
				}
				continue
			}

		case cmdReset:
			session.Reset()

		case cmdUndo:
			if err := session.Undo(); err != nil {
				if err := h.pushError(ctx, conn, err.Error()); err != nil {
					return
				}
				continue
			}

		case cmdQASM:
			text, err := session.QASM()
			if err != nil {
				if err := h.pushError(ctx, conn, err.Error()); err != nil {
					return
				}
				continue
			}
			if err := h.pushJSON(ctx, conn, map[string]interface{}{"type": "qasm", "qasm": text}); err != nil {
				return
			}
			continue

		default:
			if err := h.pushError(ctx, conn, fmt.Sprintf("unknown op %q", cmd.Op)); err != nil {
				return
			}
			continue
		}

		if err := h.pushState(ctx, conn, session, includeState); err != nil {
			return
		}
	}
}

func (h *Handler) pushState(ctx context.Context, conn *websocket.Conn, session *circuits.Session, includeState bool) error {
	return h.pushJSON(ctx, conn, struct {
		Type string `json:"type"`
		*circuits.Snapshot
	}{Type: "state", Snapshot: session.Snapshot(includeState)})
}

func (h *Handler) pushError(ctx context.Context, conn *websocket.Conn, msg string) error {
	return h.pushJSON(ctx, conn, map[string]interface{}{"type": "error", "error": msg})
}

func (h *Handler) pushJSON(ctx context.Context, conn *websocket.Conn, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode session message")
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		h.log.Debug().Err(err).Msg("Session write failed")
		return err
	}
	return nil
}
