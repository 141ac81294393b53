package server

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/laserhockey/competition-server/internal/env"
	"github.com/laserhockey/competition-server/internal/matchmaker"
	"github.com/laserhockey/competition-server/internal/model"
	"github.com/laserhockey/competition-server/internal/persistence"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubRemote struct {
	alive            bool
	startsCalls      int
	observationCalls int
	doneCalls        int
	abortedCalls     int
	lastResult       model.GameResult
}

func newStubRemote() *stubRemote { return &stubRemote{alive: true} }

func (s *stubRemote) GameStarts(model.Observation, model.Info) error {
	s.startsCalls++
	return nil
}

func (s *stubRemote) SendObservation(model.Observation, float64, bool, model.Info) error {
	s.observationCalls++
	return nil
}

func (s *stubRemote) GameDone(_ model.Observation, _ float64, _ bool, _ model.Info, result model.GameResult) error {
	s.doneCalls++
	s.lastResult = result
	return nil
}

func (s *stubRemote) GameAborted(string) error {
	s.abortedCalls++
	return nil
}

func (s *stubRemote) Alive() bool { return s.alive }

// stubEnv plays out a fixed number of one-tick draw episodes, then a final
// episode won by side 0, so tests have deterministic rating/leaderboard
// material to assert on.
type stubEnv struct {
	episodesDone int
}

func (e *stubEnv) Reset(int) model.Observation { return model.Observation{} }

func (e *stubEnv) Step(env.JointAction) (model.Observation, float64, bool, model.Info) {
	e.episodesDone++
	winner := 0
	if e.episodesDone == 4 {
		winner = 1
	}
	return model.Observation{}, 0, true, model.Info{"winner": winner}
}

func (e *stubEnv) ObsForSide(int) model.Observation { return model.Observation{} }
func (e *stubEnv) Close() error                     { return nil }

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	store := persistence.NewStore(t.TempDir())
	mm := matchmaker.New(1)
	rt, err := New(testLogger(), store, mm, func() env.Environment { return &stubEnv{} })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rt
}

func TestAttachAsCreatesAvatarOnFirstAuthAndReusesIt(t *testing.T) {
	rt := newTestRuntime(t)

	c1 := rt.AttachAs("alice", newStubRemote())
	c2 := rt.AttachAs("alice", newStubRemote())

	if c1.Avatar != c2.Avatar {
		t.Fatalf("expected the same avatar across two sessions for the same username")
	}
	if len(rt.avatars) != 1 {
		t.Fatalf("expected exactly one avatar created, got %d", len(rt.avatars))
	}
	if rt.avatarClients["alice"] != 2 {
		t.Fatalf("expected 2 connected clients for alice, got %d", rt.avatarClients["alice"])
	}
}

func TestEnqueueForMatchPairsTwoClientsAndStartsGame(t *testing.T) {
	rt := newTestRuntime(t)

	r1, r2 := newStubRemote(), newStubRemote()
	c1 := rt.AttachAs("alice", r1)
	c2 := rt.AttachAs("bob", r2)

	c1.StartQueuing()
	c2.StartQueuing()

	if len(rt.games) != 1 {
		t.Fatalf("expected exactly one game to exist, got %d", len(rt.games))
	}
	if r1.startsCalls != 1 || r2.startsCalls != 1 {
		t.Fatalf("expected both clients notified of game start")
	}
}

func TestGameFinishedUpdatesRatingsAndLeaderboardAndDeregisters(t *testing.T) {
	rt := newTestRuntime(t)

	c1 := rt.AttachAs("alice", newStubRemote())
	c2 := rt.AttachAs("bob", newStubRemote())
	c1.StartQueuing()
	c2.StartQueuing()

	if len(rt.games) != 1 {
		t.Fatalf("expected a game to have been opened")
	}

	for i := 0; i < 4; i++ {
		c1.ReceiveAction(model.Action{Valid: true, Values: [4]float64{1, 0, 0, 1}})
		c2.ReceiveAction(model.Action{Valid: true, Values: [4]float64{0, 1, 0, 1}})
	}

	if len(rt.games) != 0 {
		t.Fatalf("expected the finished game to be deregistered, got %d remaining", len(rt.games))
	}
	if rt.totalGamesPlayed != 1 {
		t.Fatalf("expected total played games to be 1, got %d", rt.totalGamesPlayed)
	}

	row := rt.leaderboard["alice"]["bob"]
	if row == nil || row.Wins != 1 || row.Draws != 3 {
		t.Fatalf("unexpected leaderboard entry for alice vs bob: %+v", row)
	}

	if c1.Avatar.Rating.Mu == 25.0 && c1.Avatar.Rating.Sigma == 25.0/3.0 {
		t.Fatalf("expected alice's rating to have moved off the default prior")
	}
}

func TestMaintenanceAbortsTimedOutRunningGame(t *testing.T) {
	rt := newTestRuntime(t)

	r1, r2 := newStubRemote(), newStubRemote()
	c1 := rt.AttachAs("alice", r1)
	c2 := rt.AttachAs("bob", r2)
	c1.StartQueuing()
	c2.StartQueuing()

	var g *model.Game
	for _, gg := range rt.games {
		g = gg
	}
	g.LastOpTimestamp = time.Now().Add(-3 * time.Minute)

	rt.maintenance()

	if g.State != model.GameAbortedState {
		t.Fatalf("expected the stalled game to be aborted, got %v", g.State)
	}
	if len(rt.games) != 0 {
		t.Fatalf("expected the aborted game to be deregistered")
	}
}

func TestMaintenanceReapsClientsWithDeadTransport(t *testing.T) {
	rt := newTestRuntime(t)

	remote := newStubRemote()
	c := rt.AttachAs("alice", remote)
	remote.alive = false

	rt.maintenance()

	if c.State != model.ClientDetached {
		t.Fatalf("expected dead-transport client to be detached, got %v", c.State)
	}
	if len(rt.clients) != 0 {
		t.Fatalf("expected the detached client to be removed from the registry")
	}
}

func TestRequestShutdownPersistsStateAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	store := persistence.NewStore(dir)
	mm := matchmaker.New(1)
	rt, err := New(testLogger(), store, mm, func() env.Environment { return &stubEnv{} })
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rt.AttachAs("alice", newStubRemote())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	rt.RequestShutdown()

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	reloaded, err := New(testLogger(), persistence.NewStore(dir), mm, func() env.Environment { return &stubEnv{} })
	if err != nil {
		t.Fatalf("reload New: %v", err)
	}
	if _, ok := reloaded.avatars["alice"]; !ok {
		t.Fatalf("expected alice's avatar to survive a save/reload cycle")
	}
}
