package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/laserhockey/competition-server/internal/auth"
	"github.com/laserhockey/competition-server/internal/model"
	"github.com/laserhockey/competition-server/internal/server"
)

// pingInterval matches the read deadline DefaultSetupConn installs, with
// margin for one missed ping.
const pingInterval = 20 * time.Second

// Envelope is the wire frame for every call in both directions: a call
// name plus its JSON-encoded argument/result payload.
type Envelope struct {
	Call string          `json:"call"`
	Data json.RawMessage `json:"data,omitempty"`
}

func encode(call string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transport: encode %s: %w", call, err)
	}
	return json.Marshal(Envelope{Call: call, Data: data})
}

// Client->server call names.
const (
	callCheckCompatibility = "check_compatibility"
	callRequestStats       = "request_stats"
	callStartQueuing       = "start_queuing"
	callStopQueuing        = "stop_queuing"
	callReceiveAction      = "receive_action"
)

// Server->client call names.
const (
	callGameStarts         = "game_starts"
	callReceiveObservation = "receive_observation"
	callGameDone           = "game_done"
	callGameAborted        = "game_aborted"
	callStats              = "stats" // response to request_stats
)

type checkCompatibilityPayload struct {
	ClientVersion string `json:"client_version"`
}

// receiveActionPayload decodes the action array leniently: each element
// is kept raw so a non-numeric entry fails per-element in decodeAction
// rather than failing json.Unmarshal for the whole envelope, which would
// otherwise swallow the call before Game.Step ever sees it and drop the
// corrective echo spec.md §8 requires.
type receiveActionPayload struct {
	Action []json.RawMessage `json:"action"`
}

type gameStartsPayload struct {
	Obs  model.Observation `json:"obs"`
	Info model.Info        `json:"info"`
}

type receiveObservationPayload struct {
	Obs    model.Observation `json:"obs"`
	Reward float64           `json:"reward"`
	Done   bool              `json:"done"`
	Info   model.Info        `json:"info"`
}

type gameDonePayload struct {
	Obs    model.Observation `json:"obs"`
	Reward float64           `json:"reward"`
	Done   bool              `json:"done"`
	Info   model.Info        `json:"info"`
	Result model.GameResult  `json:"result"`
}

type gameAbortedPayload struct {
	Msg string `json:"msg"`
}

// remoteAdapter implements model.Remote by framing each call as an
// Envelope and handing it to the underlying Conn's serialized writer.
// It also tracks connection liveness for the maintenance task's reaper
// (spec.md's broker.disconnected check, generalized to push rather than
// poll: WriteForever/ReadForever mark it dead via onDestroy).
type remoteAdapter struct {
	conn Conn
	dead atomic.Bool
}

func (r *remoteAdapter) send(call string, payload any) error {
	if r.dead.Load() {
		return model.ErrTransportDead
	}
	raw, err := encode(call, payload)
	if err != nil {
		return err
	}
	if _, err := r.conn.Write(raw); err != nil {
		r.dead.Store(true)
		return model.ErrTransportDead
	}
	return nil
}

func (r *remoteAdapter) GameStarts(obs model.Observation, info model.Info) error {
	return r.send(callGameStarts, gameStartsPayload{Obs: obs, Info: info})
}

func (r *remoteAdapter) SendObservation(obs model.Observation, reward float64, done bool, info model.Info) error {
	return r.send(callReceiveObservation, receiveObservationPayload{Obs: obs, Reward: reward, Done: done, Info: info})
}

func (r *remoteAdapter) GameDone(obs model.Observation, reward float64, done bool, info model.Info, result model.GameResult) error {
	return r.send(callGameDone, gameDonePayload{Obs: obs, Reward: reward, Done: done, Info: info, Result: result})
}

func (r *remoteAdapter) GameAborted(msg string) error {
	return r.send(callGameAborted, gameAbortedPayload{Msg: msg})
}

func (r *remoteAdapter) Alive() bool { return !r.dead.Load() }

// Handler wires incoming WebSocket connections to the runtime: it
// authenticates the HTTP upgrade request, attaches a model.Client, and
// dispatches each decoded Envelope to the matching Client method on the
// runtime goroutine.
type Handler struct {
	runtime  *server.Runtime
	checker  *auth.PasswordFile
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(rt *server.Runtime, checker *auth.PasswordFile, log *slog.Logger) *Handler {
	return &Handler{runtime: rt, checker: checker, log: log, upgrader: DefaultUpgrader()}
}

// session is the per-connection state threaded through onCreate, the
// message handler, and onDestroy via a closure instead of a registry,
// since each ServeHTTP call serves exactly one connection.
type session struct {
	client  *model.Client
	adapter *remoteAdapter
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="laser-hockey"`)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	if err := h.checker.Authenticate(username, password); err != nil {
		h.log.Warn("authentication failed", "username", username)
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	sess := &session{}

	onCreate := func(_ context.Context, _ context.CancelFunc, conn Conn) {
		sess.adapter = &remoteAdapter{conn: conn}
		sess.client = server.Call(h.runtime, func() *model.Client {
			return h.runtime.AttachAs(username, sess.adapter)
		})
		h.log.Info("client attached", "username", username, "client", sess.client.ID)
	}

	onDestroy := func(Conn) {
		sess.adapter.dead.Store(true)
		if sess.client == nil {
			return
		}
		h.runtime.Submit(func() {
			sess.client.Detach()
		})
		h.log.Info("client detached", "username", username, "client", sess.client.ID)
	}

	dispatch := func(conn Conn, raw []byte) {
		h.dispatch(sess, conn, raw)
	}

	ServeWS(
		h.upgrader,
		DefaultSetupConn,
		func(raw *websocket.Conn) Conn { return NewConn(raw, h.log) },
		onCreate,
		onDestroy,
		pingInterval,
		[]MessageHandler{dispatch},
	)(w, r)
}

func (h *Handler) dispatch(sess *session, conn Conn, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.log.Warn("malformed envelope", "error", err)
		return
	}
	if sess.client == nil {
		return
	}
	client := sess.client

	switch env.Call {
	case callCheckCompatibility:
		var p checkCompatibilityPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		err := server.Call(h.runtime, func() error {
			return client.CheckCompatibility(p.ClientVersion)
		})
		if err != nil {
			_ = conn.Close()
		}

	case callRequestStats:
		stats := server.Call(h.runtime, func() map[string]any {
			return client.RequestStats()
		})
		raw, err := encode(callStats, stats)
		if err != nil {
			return
		}
		_, _ = conn.Write(raw)

	case callStartQueuing:
		h.runtime.Submit(client.StartQueuing)

	case callStopQueuing:
		h.runtime.Submit(client.StopQueuing)

	case callReceiveAction:
		var p receiveActionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		action := decodeAction(p.Action)
		h.runtime.Submit(func() {
			client.ReceiveAction(action)
		})

	default:
		h.log.Warn("unknown call", "call", env.Call)
	}
}

// decodeAction converts the raw per-element JSON values into the fixed
// 4-real vector model.ValidateAction expects, marking the result invalid
// (rather than erroring) on a wrong length or a non-numeric element, so
// the call still reaches Game.Step and its corrective echo (spec.md §4.2,
// §7, §8).
func decodeAction(raw []json.RawMessage) model.Action {
	values := make([]float64, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &values[i]); err != nil {
			return model.Action{Valid: false}
		}
	}
	return model.ValidateAction(values)
}
