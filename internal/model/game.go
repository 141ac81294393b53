package model

import (
	"time"

	"github.com/laserhockey/competition-server/internal/env"
)

// GameState is the Game lifecycle: WAITING_FOR_PLAYER -> GAME_RUNNING on
// the second AddPlayer, then either ABORTED or a normal finalize and
// teardown. ERROR is reserved for unrecoverable environment faults.
type GameState int

const (
	GameWaitingForPlayer GameState = iota
	GameRunning
	GameAbortedState
	GameError
)

func (s GameState) String() string {
	switch s {
	case GameWaitingForPlayer:
		return "waiting_for_player"
	case GameRunning:
		return "running"
	case GameAbortedState:
		return "aborted"
	case GameError:
		return "error"
	default:
		return "unknown"
	}
}

// episodesCap is the fixed number of episodes per match.
const episodesCap = 4

// Transition is one persisted step record.
type Transition struct {
	ObsBefore Observation
	Joint     env.JointAction
	ObsAfter  Observation
	Reward    float64
	Done      bool
	Info      Info
}

// Game is a per-match state machine coordinating two Clients across a
// fixed number of episodes. It exclusively owns its Environment and
// transition buffer; its Client slots are non-owning back-references
// (spec.md §3).
type Game struct {
	ID      string
	Clients [2]*Client

	Env        env.Environment
	envFactory func() env.Environment

	LastObs        [2]Observation
	pending        [2]*Action
	LastOpTimestamp time.Time

	State           GameState
	EpisodesPlayed  int
	EpisodeOutcomes []WinnerCode
	Transitions     []Transition

	hub Hub
}

// NewGame creates a Game waiting for its first player. envFactory is
// invoked once, lazily, when the second player arrives.
func NewGame(id string, envFactory func() env.Environment, hub Hub) *Game {
	return &Game{
		ID:              id,
		envFactory:      envFactory,
		State:           GameWaitingForPlayer,
		LastOpTimestamp: time.Now(),
		hub:             hub,
	}
}

// PlayerCount returns how many of the two slots are filled.
func (g *Game) PlayerCount() int {
	n := 0
	for _, c := range g.Clients {
		if c != nil {
			n++
		}
	}
	return n
}

// AddPlayer fills the first free slot and, once both are filled, starts
// the match.
func (g *Game) AddPlayer(c *Client) error {
	switch {
	case g.Clients[0] == nil:
		g.Clients[0] = c
	case g.Clients[1] == nil:
		g.Clients[1] = c
	default:
		return ErrGameFull
	}
	c.Game = g
	g.LastOpTimestamp = time.Now()

	if g.Clients[0] != nil && g.Clients[1] != nil {
		g.start()
	}
	return nil
}

func (g *Game) start() {
	g.State = GameRunning
	g.Env = g.envFactory()

	obs0 := g.Env.Reset(g.EpisodesPlayed % 2)
	obs1 := g.Env.ObsForSide(1)
	g.LastObs[0], g.LastObs[1] = obs0, obs1

	info := Info{
		"id":      g.ID,
		"players": [2]string{g.Clients[0].Avatar.Username, g.Clients[1].Avatar.Username},
	}

	g.Clients[0].GameStarts(obs0, info)
	g.Clients[1].GameStarts(obs1, info)

	g.LastOpTimestamp = time.Now()
}

// slotOf returns the slot index of c, or -1 if c is not a participant.
func (g *Game) slotOf(c *Client) int {
	switch c {
	case g.Clients[0]:
		return 0
	case g.Clients[1]:
		return 1
	default:
		return -1
	}
}

// Step handles one half-action arriving from c. An invalid action is a
// corrective echo: the last known observation/reward/done/info is resent
// to the sender only, no tick advances, and LastOpTimestamp is not
// refreshed (spec.md §4.2). Unknown clients are silently ignored.
// Step applies one side's half-action. A Client that is not one of this
// Game's two slots returns ErrUnknownClientInGame; callers ignore it
// (spec.md §7: "a step from a Client not equal to either slot is
// silently ignored").
func (g *Game) Step(c *Client, action Action) error {
	slot := g.slotOf(c)
	if slot == -1 {
		return ErrUnknownClientInGame
	}
	if g.State != GameRunning {
		return nil
	}

	if !action.Valid {
		g.echo(slot)
		return nil
	}

	a := action
	g.pending[slot] = &a
	g.LastOpTimestamp = time.Now()

	if g.pending[0] == nil || g.pending[1] == nil {
		return nil
	}

	g.advance()
	return nil
}

func (g *Game) echo(slot int) {
	reward, done, info := g.lastStepResult()
	g.Clients[slot].SendObservation(g.LastObs[slot], reward, done, info)
}

// lastStepResult reads the most recent step's reward/done/info from the
// transition buffer so an invalid-action echo can resend it verbatim.
var zeroInfo = Info{}

func (g *Game) lastStepResult() (float64, bool, Info) {
	if len(g.Transitions) == 0 {
		return 0, false, zeroInfo
	}
	last := g.Transitions[len(g.Transitions)-1]
	return last.Reward, last.Done, last.Info
}

func (g *Game) advance() {
	var joint env.JointAction
	copy(joint[0:4], g.pending[0].Values[:])
	copy(joint[4:8], g.pending[1].Values[:])

	obsPrimary, reward, done, info := g.Env.Step(joint)
	obsSecondary := g.Env.ObsForSide(1)

	g.Transitions = append(g.Transitions, Transition{
		ObsBefore: g.LastObs[0],
		Joint:     joint,
		ObsAfter:  obsPrimary,
		Reward:    reward,
		Done:      done,
		Info:      info,
	})

	g.LastObs[0], g.LastObs[1] = obsPrimary, obsSecondary
	g.pending[0], g.pending[1] = nil, nil

	resetHappened := false
	if done {
		winner := WinnerDraw
		if w, ok := info["winner"]; ok {
			if wi, ok := w.(int); ok {
				winner = WinnerCode(wi)
			} else if wc, ok := w.(WinnerCode); ok {
				winner = wc
			}
		}
		g.EpisodeOutcomes = append(g.EpisodeOutcomes, winner)
		g.EpisodesPlayed++

		if g.EpisodesPlayed >= episodesCap {
			g.finalize(obsPrimary, obsSecondary, reward, done, info)
			return
		}

		obs0 := g.Env.Reset(g.EpisodesPlayed % 2)
		obs1 := g.Env.ObsForSide(1)
		g.LastObs[0], g.LastObs[1] = obs0, obs1
		resetHappened = true
	}

	if !done || resetHappened {
		g.Clients[0].SendObservation(g.LastObs[0], reward, done, info)
		g.Clients[1].SendObservation(g.LastObs[1], reward, done, info)
	}
}

// finalize delivers terminal results to both clients, hands off to the
// hub for persistence and rating/leaderboard updates, then tears down.
func (g *Game) finalize(obs0, obs1 Observation, reward float64, done bool, info Info) {
	g.Clients[0].GameDone(g.ID, obs0, reward, done, info, g.EpisodeOutcomes, 0)
	g.Clients[1].GameDone(g.ID, obs1, reward, done, info, g.EpisodeOutcomes, 1)

	g.hub.GameFinished(g)

	if g.Env != nil {
		_ = g.Env.Close()
	}
}

// Abort is idempotent: it informs every still-attached client, hands off
// to the hub for deregistration, and closes the environment. No replay is
// persisted.
func (g *Game) Abort(msg string) {
	if g.State == GameAbortedState {
		return
	}
	g.State = GameAbortedState

	for _, c := range g.Clients {
		if c != nil {
			c.GameAborted(msg)
		}
	}

	g.hub.GameAborted(g)

	if g.Env != nil {
		_ = g.Env.Close()
	}
}
