package persistence

import (
	"testing"
	"time"

	"github.com/laserhockey/competition-server/internal/model"
)

func TestAvatarSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}

	a := model.NewAvatar("alice")
	a.RecordMatchResult("game-1", []model.WinnerCode{model.WinnerSideOne, model.WinnerDraw}, 0)

	if err := store.SaveAvatar(a, time.Now()); err != nil {
		t.Fatalf("SaveAvatar: %v", err)
	}

	loaded, err := store.LoadAvatars()
	if err != nil {
		t.Fatalf("LoadAvatars: %v", err)
	}
	got, ok := loaded["alice"]
	if !ok {
		t.Fatalf("expected alice to be loaded")
	}
	if got.FinishedGames != a.FinishedGames || got.GamesWon != a.GamesWon || got.GamesDrawn != a.GamesDrawn {
		t.Fatalf("loaded avatar counters mismatch: got %+v, want %+v", got, a)
	}
	if got.Rating.Mu != a.Rating.Mu || got.Rating.Sigma != a.Rating.Sigma {
		t.Fatalf("loaded rating mismatch: got %+v, want %+v", got.Rating, a.Rating)
	}
}

func TestLoadAvatarsOnEmptyDirReturnsEmptyMap(t *testing.T) {
	store := NewStore(t.TempDir())
	avatars, err := store.LoadAvatars()
	if err != nil {
		t.Fatalf("LoadAvatars: %v", err)
	}
	if len(avatars) != 0 {
		t.Fatalf("expected no avatars, got %d", len(avatars))
	}
}

func TestLeaderboardSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}

	lb := make(model.Leaderboard)
	lb.RecordOutcome("alice", "bob", model.WinnerSideOne)
	lb.RecordOutcome("alice", "bob", model.WinnerDraw)

	if err := store.SaveLeaderboard(lb); err != nil {
		t.Fatalf("SaveLeaderboard: %v", err)
	}
	loaded, err := store.LoadLeaderboard()
	if err != nil {
		t.Fatalf("LoadLeaderboard: %v", err)
	}
	entry := loaded["alice"]["bob"]
	if entry == nil || entry.Wins != 1 || entry.Draws != 1 {
		t.Fatalf("unexpected loaded leaderboard entry: %+v", entry)
	}
}

func TestReplaySaveWritesDateBucketedJSON(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}

	replay := Replay{
		Identifier: "game-abc123",
		PlayerOne:  "alice",
		PlayerTwo:  "bob",
		Timestamp:  time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
		Transitions: []ReplayTransition{
			{Reward: 1, Done: true, Info: map[string]any{"winner": 1}},
		},
	}
	if err := store.SaveReplay(replay); err != nil {
		t.Fatalf("SaveReplay: %v", err)
	}

	path := store.gamesDir() + "/2026/03/05/game-abc123.json"
	if _, err := decodeGob(path, new(struct{})); err == nil {
		t.Fatalf("expected gob decode of a JSON file to fail")
	}
}

func TestMiscSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	if err := store.SaveMisc(Misc{TotalGamesPlayed: 42}); err != nil {
		t.Fatalf("SaveMisc: %v", err)
	}
	loaded, err := store.LoadMisc()
	if err != nil {
		t.Fatalf("LoadMisc: %v", err)
	}
	if loaded.TotalGamesPlayed != 42 {
		t.Fatalf("expected 42, got %d", loaded.TotalGamesPlayed)
	}
}
