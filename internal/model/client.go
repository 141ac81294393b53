package model

import "fmt"

// ClientState is the Client lifecycle state machine from spec.md §4.1:
// IDLE -> WAITING_FOR_GAME (StartQueuing) -> PLAYING (GameStarts) -> IDLE
// (GameDone), or WAITING_FOR_GAME -> IDLE (StopQueuing). DETACHED is
// terminal.
type ClientState int

const (
	ClientIdle ClientState = iota
	ClientWaitingForGame
	ClientPlaying
	ClientDetached
	ClientError
)

func (s ClientState) String() string {
	switch s {
	case ClientIdle:
		return "idle"
	case ClientWaitingForGame:
		return "waiting_for_game"
	case ClientPlaying:
		return "playing"
	case ClientDetached:
		return "detached"
	case ClientError:
		return "error"
	default:
		return "unknown"
	}
}

// Client is a state machine bound to one authenticated transport
// connection. Its Avatar and Game references are non-owning back-refs;
// the server's registries and game↔client maps are authoritative for
// teardown (see spec.md §9).
type Client struct {
	ID     string
	Avatar *Avatar
	Remote Remote
	State  ClientState
	Game   *Game

	hub Hub
}

// NewClient attaches a new Client to avatar and remote, in the IDLE state.
func NewClient(id string, avatar *Avatar, remote Remote, hub Hub) *Client {
	return &Client{
		ID:     id,
		Avatar: avatar,
		Remote: remote,
		State:  ClientIdle,
		hub:    hub,
	}
}

// CheckCompatibility fails with ErrVersionMismatch if clientVersion does
// not match ServerVersion.
func (c *Client) CheckCompatibility(clientVersion string) error {
	if clientVersion != ServerVersion {
		return fmt.Errorf("%w: client=%s server=%s", ErrVersionMismatch, clientVersion, ServerVersion)
	}
	return nil
}

// RequestStats returns the subset of Avatar fields exposed to clients.
func (c *Client) RequestStats() map[string]any {
	return c.Avatar.Stats()
}

// StartQueuing transitions IDLE -> WAITING_FOR_GAME and asks the hub's
// matchmaker to place this client. Re-queuing an already queuing or
// playing client is a silent no-op (design decision, see spec.md §4.1).
func (c *Client) StartQueuing() {
	if c.State != ClientIdle {
		return
	}
	c.State = ClientWaitingForGame
	c.hub.EnqueueForMatch(c)
}

// StopQueuing aborts whatever Game this client is currently attached to
// (waiting or already started) and returns it to IDLE. A client with no
// Game (including one that never queued) is a no-op; this guards against
// the spurious stop_queuing the original source doesn't (spec.md §9).
func (c *Client) StopQueuing() {
	if c.Game == nil {
		c.State = ClientIdle
		return
	}
	c.Game.Abort("Stop queuing")
}

// ReceiveAction forwards a half-action to this client's Game. A client
// with no Game (race between detach and an in-flight action) is ignored.
func (c *Client) ReceiveAction(action Action) {
	if c.Game == nil {
		return
	}
	c.Game.Step(c, action)
}

// GameStarts transitions to PLAYING and delivers the match-start
// observation. Called by Game, never directly by the transport.
func (c *Client) GameStarts(obs Observation, info Info) {
	c.State = ClientPlaying
	if err := c.Remote.GameStarts(obs, info); err != nil {
		c.Detach()
	}
}

// SendObservation delivers a mid-match observation. Remote delivery only;
// no state change.
func (c *Client) SendObservation(obs Observation, reward float64, done bool, info Info) {
	if err := c.Remote.SendObservation(obs, reward, done, info); err != nil {
		c.Detach()
	}
}

// GameDone delivers the terminal observation and per-client result,
// updates this client's Avatar counters, and returns to IDLE.
func (c *Client) GameDone(gameID string, obs Observation, reward float64, done bool, info Info, outcomes []WinnerCode, slot int) {
	result := SummarizeOutcomes(outcomes, slot)
	if err := c.Remote.GameDone(obs, reward, done, info, result); err != nil {
		c.Detach()
		return
	}
	c.Avatar.RecordMatchResult(gameID, outcomes, slot)
	c.Game = nil
	c.State = ClientIdle
}

// GameAborted delivers the abort notice and returns to IDLE. A client
// that has already detached (e.g. the one whose disconnect triggered the
// abort) is left alone.
func (c *Client) GameAborted(msg string) {
	if c.State == ClientDetached {
		return
	}
	if err := c.Remote.GameAborted(msg); err != nil {
		c.Detach()
		return
	}
	c.Game = nil
	c.State = ClientIdle
}

// Detach transitions to DETACHED, removes this client from all lifecycle
// bookkeeping via the hub, and — if it was attached to a Game — aborts
// that Game, notifying the opponent.
func (c *Client) Detach() {
	if c.State == ClientDetached {
		return
	}
	c.State = ClientDetached

	game := c.Game
	if game != nil {
		game.Abort(fmt.Sprintf("Player %s left the game", c.Avatar.Username))
	}
	c.hub.ClientDetached(c)
}
