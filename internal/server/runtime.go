// Package server hosts the single-goroutine event loop that owns every
// piece of server-wide mutable state: the client and game registries, the
// avatar store, the leaderboard, the stats series, and persistence. Every
// mutation — client RPCs, game steps, matchmaking, rating updates,
// maintenance — runs inside that one goroutine; callers on other
// goroutines (the transport's per-connection readers, the admin console)
// reach it only through Submit/Call, never by touching fields directly.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/laserhockey/competition-server/internal/env"
	"github.com/laserhockey/competition-server/internal/matchmaker"
	"github.com/laserhockey/competition-server/internal/model"
	"github.com/laserhockey/competition-server/internal/persistence"
	"github.com/laserhockey/competition-server/internal/skill"
)

const (
	maintenanceInterval = 10 * time.Second
	gameTimeout         = 2 * time.Minute
	drawBlendWeight     = 0.1
)

// Runtime is the server core: registries plus the rating/leaderboard/
// persistence logic that runs at game completion and on the maintenance
// tick. It implements model.Hub.
type Runtime struct {
	log        *slog.Logger
	store      *persistence.Store
	mm         *matchmaker.Matchmaker
	envFactory func() env.Environment

	clients       map[string]*model.Client
	games         map[string]*model.Game
	avatars       map[string]*model.Avatar
	avatarClients map[string]int

	leaderboard      model.Leaderboard
	stats            model.StatsSeries
	totalGamesPlayed int

	submit chan func()
	quit   bool
}

// New loads persisted state from store and returns a Runtime ready to Run.
func New(log *slog.Logger, store *persistence.Store, mm *matchmaker.Matchmaker, envFactory func() env.Environment) (*Runtime, error) {
	if err := store.EnsureDirs(); err != nil {
		return nil, err
	}

	avatars, err := store.LoadAvatars()
	if err != nil {
		return nil, fmt.Errorf("server: load avatars: %w", err)
	}
	leaderboard, err := store.LoadLeaderboard()
	if err != nil {
		return nil, fmt.Errorf("server: load leaderboard: %w", err)
	}
	stats, err := store.LoadStats()
	if err != nil {
		return nil, fmt.Errorf("server: load stats: %w", err)
	}
	misc, err := store.LoadMisc()
	if err != nil {
		return nil, fmt.Errorf("server: load misc: %w", err)
	}

	return &Runtime{
		log:              log,
		store:            store,
		mm:               mm,
		envFactory:       envFactory,
		clients:          make(map[string]*model.Client),
		games:            make(map[string]*model.Game),
		avatars:          avatars,
		avatarClients:    make(map[string]int),
		leaderboard:      leaderboard,
		stats:            stats,
		totalGamesPlayed: misc.TotalGamesPlayed,
		submit:           make(chan func(), 64),
	}, nil
}

// Submit hands a closure to the runtime goroutine; it is the only
// thread-safe way for another goroutine to touch server state.
func (r *Runtime) Submit(fn func()) {
	r.submit <- fn
}

// Call submits fn and blocks until it has run on the runtime goroutine,
// returning its result. Used for synchronous queries (request_stats, the
// admin console) that need a value back.
func Call[T any](r *Runtime, fn func() T) T {
	resultCh := make(chan T, 1)
	r.Submit(func() { resultCh <- fn() })
	return <-resultCh
}

// Run is the event loop. It returns once a quit has been processed or ctx
// is cancelled, persisting everything on the way out.
func (r *Runtime) Run(ctx context.Context) error {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case fn := <-r.submit:
			fn()
			if r.quit {
				r.persistAll()
				r.log.Info("server stopped")
				return nil
			}
		case <-ticker.C:
			r.maintenance()
		case <-ctx.Done():
			r.persistAll()
			r.log.Info("server stopped", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RequestShutdown asks the runtime to stop after its current work. Safe to
// call from any goroutine (the admin console's "quit" command uses it);
// the actual shutdown happens on the runtime goroutine, never here.
func (r *Runtime) RequestShutdown() {
	r.Submit(func() { r.quit = true })
}

func (r *Runtime) persistAll() {
	now := time.Now()
	ranking := make(map[string]persistence.RankingEntry, len(r.avatars))
	for username, a := range r.avatars {
		if err := r.store.SaveAvatar(a, now); err != nil {
			r.log.Error("save avatar failed", "username", username, "error", err)
			continue
		}
		a.LastSaved = now
		ranking[username] = persistence.RankingEntry{Mu: a.Rating.Mu, Sigma: a.Rating.Sigma}
	}
	if err := r.store.SaveRanking(ranking); err != nil {
		r.log.Error("save ranking failed", "error", err)
	}
	if err := r.store.SaveLeaderboard(r.leaderboard); err != nil {
		r.log.Error("save leaderboard failed", "error", err)
	}
	if err := r.store.SaveStats(r.stats); err != nil {
		r.log.Error("save stats failed", "error", err)
	}
	if err := r.store.SaveMisc(persistence.Misc{TotalGamesPlayed: r.totalGamesPlayed}); err != nil {
		r.log.Error("save misc failed", "error", err)
	}
}

// newID returns an 8-hex-character identifier prefixed for readability in
// logs and the admin console, e.g. "game-3f2a9c10".
func newID(kind string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s", kind, raw[:8])
}

// GetOrCreateAvatar returns the avatar for username, creating a fresh one
// (with the default rating prior) on first authentication under that
// name. Username is treated case-sensitively as its own key (spec.md §9).
func (r *Runtime) GetOrCreateAvatar(username string) *model.Avatar {
	if a, ok := r.avatars[username]; ok {
		return a
	}
	a := model.NewAvatar(username)
	r.avatars[username] = a
	return a
}

// AttachAs registers remote under the given (already-authenticated)
// username and returns the new Client the transport should route RPCs
// through.
func (r *Runtime) AttachAs(username string, remote model.Remote) *model.Client {
	avatar := r.GetOrCreateAvatar(username)
	c := model.NewClient(newID("client"), avatar, remote, r)
	r.clients[c.ID] = c
	r.avatarClients[avatar.Username]++
	return c
}

func (r *Runtime) waitingGames() []*model.Game {
	var waiting []*model.Game
	for _, g := range r.games {
		if g.State == model.GameWaitingForPlayer {
			waiting = append(waiting, g)
		}
	}
	return waiting
}

// EnqueueForMatch implements model.Hub.
func (r *Runtime) EnqueueForMatch(c *model.Client) {
	if chosen := r.mm.Select(c, r.waitingGames(), len(r.clients)); chosen != nil {
		if err := chosen.AddPlayer(c); err != nil {
			r.log.Warn("matchmaker offered a full game, opening a fresh one instead", "game", chosen.ID, "error", err)
		} else {
			return
		}
	}

	g := model.NewGame(newID("game"), r.envFactory, r)
	r.games[g.ID] = g
	_ = g.AddPlayer(c)
}

// ClientDetached implements model.Hub.
func (r *Runtime) ClientDetached(c *model.Client) {
	delete(r.clients, c.ID)
	if n := r.avatarClients[c.Avatar.Username]; n > 0 {
		r.avatarClients[c.Avatar.Username] = n - 1
	}
}

// GameFinished implements model.Hub: apply ratings/leaderboard, persist
// the replay, bump the play counter, then deregister the game (spec.md
// §3: Game is "destroyed on finalize or abort").
func (r *Runtime) GameFinished(g *model.Game) {
	r.applyOutcomes(g)
	if err := r.saveReplay(g); err != nil {
		r.log.Error("save replay failed", "game", g.ID, "error", err)
	}
	r.totalGamesPlayed++
	delete(r.games, g.ID)
}

// GameAborted implements model.Hub: no rating/leaderboard/replay effects,
// just deregistration.
func (r *Runtime) GameAborted(g *model.Game) {
	delete(r.games, g.ID)
}

func blend(oldRating, newRating skill.Rating, weight float64) skill.Rating {
	return skill.Rating{
		Mu:    weight*newRating.Mu + (1-weight)*oldRating.Mu,
		Sigma: weight*newRating.Sigma + (1-weight)*oldRating.Sigma,
	}
}

// applyOutcomes folds every episode outcome of a finished game into the
// two avatars' ratings and the leaderboard matrix, in the original's
// per-episode order. Draws are blended at 10% strength since they carry
// little rating information; decisive episodes apply the full update.
func (r *Runtime) applyOutcomes(g *model.Game) {
	one, two := g.Clients[0].Avatar, g.Clients[1].Avatar

	for _, winner := range g.EpisodeOutcomes {
		r.leaderboard.RecordOutcome(one.Username, two.Username, winner)

		switch winner {
		case model.WinnerDraw:
			newOne, newTwo := skill.Rate1v1Draw(one.Rating, two.Rating)
			one.Rating = blend(one.Rating, newOne, drawBlendWeight)
			two.Rating = blend(two.Rating, newTwo, drawBlendWeight)
		case model.WinnerSideOne:
			one.Rating, two.Rating = skill.Rate1v1(one.Rating, two.Rating)
		default: // model.WinnerSideTwo
			two.Rating, one.Rating = skill.Rate1v1(two.Rating, one.Rating)
		}
	}
}

func (r *Runtime) saveReplay(g *model.Game) error {
	transitions := make([]persistence.ReplayTransition, len(g.Transitions))
	for i, t := range g.Transitions {
		transitions[i] = persistence.ReplayTransition{
			ObsBefore: t.ObsBefore,
			Action:    t.Joint,
			ObsAfter:  t.ObsAfter,
			Reward:    t.Reward,
			Done:      t.Done,
			Info:      t.Info,
		}
	}
	return r.store.SaveReplay(persistence.Replay{
		Identifier:  g.ID,
		PlayerOne:   g.Clients[0].Avatar.Username,
		PlayerTwo:   g.Clients[1].Avatar.Username,
		Timestamp:   time.Now(),
		Transitions: transitions,
	})
}

// maintenance runs every tick on the runtime goroutine: it times out
// stalled games, reaps clients whose transport died without a clean
// detach, samples the stats series, and persists everything.
func (r *Runtime) maintenance() {
	now := time.Now()

	for _, g := range r.games {
		if g.State == model.GameRunning && now.Sub(g.LastOpTimestamp) > gameTimeout {
			g.Abort("Game aborted due to timeout (2 min)")
		}
	}

	for _, c := range r.clients {
		if !c.Remote.Alive() {
			c.Detach()
		}
	}

	r.sampleStats(now)
	r.persistAll()
}

func (r *Runtime) sampleStats(now time.Time) {
	t := now.Unix()

	waiting, running := 0, 0
	for _, g := range r.games {
		switch g.State {
		case model.GameWaitingForPlayer:
			waiting++
		case model.GameRunning:
			running++
		}
	}

	r.stats.Append("games", "total", t, float64(r.totalGamesPlayed))
	r.stats.Append("games", "total_open", t, float64(len(r.games)))
	r.stats.Append("games", "waiting", t, float64(waiting))
	r.stats.Append("games", "running", t, float64(running))

	idle, queuing, playing := 0, 0, 0
	for _, c := range r.clients {
		switch c.State {
		case model.ClientIdle:
			idle++
		case model.ClientWaitingForGame:
			queuing++
		case model.ClientPlaying:
			playing++
		}
	}

	r.stats.Append("player", "active_player", t, float64(len(r.avatars)))
	r.stats.Append("player", "total_clients", t, float64(len(r.clients)))
	r.stats.Append("player", "idle_clients", t, float64(idle))
	r.stats.Append("player", "waiting_clients", t, float64(queuing))
	r.stats.Append("player", "playing_clients", t, float64(playing))
}
