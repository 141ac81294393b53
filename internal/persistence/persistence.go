// Package persistence reads and writes the server's on-disk state:
// per-avatar snapshots, the trueskill ranking cache, the leaderboard
// matrix, the stats series, and miscellaneous counters, all via
// encoding/gob (the direct analogue of the original's pickle files), plus
// per-game JSON replays.
package persistence

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/laserhockey/competition-server/internal/model"
)

// Store roots every persisted artifact under one working directory,
// mirroring the original's working_dir layout.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) avatarsDir() string { return filepath.Join(s.dir, "avatars") }
func (s *Store) gamesDir() string   { return filepath.Join(s.dir, "games") }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// EnsureDirs creates the working directory tree, matching the original's
// os.makedirs(self.working_dir, exist_ok=True) plus the subdirectories
// this implementation additionally needs.
func (s *Store) EnsureDirs() error {
	for _, d := range []string{s.dir, s.avatarsDir(), s.gamesDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("persistence: create %s: %w", d, err)
		}
	}
	return nil
}

func encodeGob(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(v)
}

func decodeGob(path string, v any) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return false, err
	}
	return true, nil
}

// SaveAvatar persists one avatar's snapshot to avatars/<username>.gob.
func (s *Store) SaveAvatar(a *model.Avatar, savedAt time.Time) error {
	path := filepath.Join(s.avatarsDir(), a.Username+".gob")
	return encodeGob(path, a.ToSnapshot(savedAt))
}

// LoadAvatars reconstructs every avatar found under avatars/*.gob.
func (s *Store) LoadAvatars() (map[string]*model.Avatar, error) {
	entries, err := os.ReadDir(s.avatarsDir())
	if os.IsNotExist(err) {
		return map[string]*model.Avatar{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: read avatars dir: %w", err)
	}

	avatars := make(map[string]*model.Avatar, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".gob") {
			continue
		}
		var snap model.Snapshot
		ok, err := decodeGob(filepath.Join(s.avatarsDir(), e.Name()), &snap)
		if err != nil {
			return nil, fmt.Errorf("persistence: decode avatar %s: %w", e.Name(), err)
		}
		if !ok {
			continue
		}
		avatars[snap.Username] = model.AvatarFromSnapshot(snap)
	}
	return avatars, nil
}

// RankingEntry is the cached (mu, sigma) pair written alongside the
// avatar snapshots, matching the original's separate trueskill-ranking.pkl.
type RankingEntry struct {
	Mu    float64
	Sigma float64
}

func (s *Store) SaveRanking(ranking map[string]RankingEntry) error {
	return encodeGob(s.path("trueskill-ranking.gob"), ranking)
}

func (s *Store) LoadRanking() (map[string]RankingEntry, error) {
	ranking := make(map[string]RankingEntry)
	_, err := decodeGob(s.path("trueskill-ranking.gob"), &ranking)
	return ranking, err
}

func (s *Store) SaveLeaderboard(lb model.Leaderboard) error {
	return encodeGob(s.path("leaderboard.gob"), lb)
}

func (s *Store) LoadLeaderboard() (model.Leaderboard, error) {
	lb := make(model.Leaderboard)
	_, err := decodeGob(s.path("leaderboard.gob"), &lb)
	return lb, err
}

func (s *Store) SaveStats(stats model.StatsSeries) error {
	return encodeGob(s.path("stats.gob"), stats)
}

func (s *Store) LoadStats() (model.StatsSeries, error) {
	stats := make(model.StatsSeries)
	_, err := decodeGob(s.path("stats.gob"), &stats)
	return stats, err
}

// Misc holds the miscellaneous counters the original stores as a bare
// dict merged onto the server object (misc.pkl).
type Misc struct {
	TotalGamesPlayed int
}

func (s *Store) SaveMisc(m Misc) error {
	return encodeGob(s.path("misc.gob"), m)
}

func (s *Store) LoadMisc() (Misc, error) {
	var m Misc
	_, err := decodeGob(s.path("misc.gob"), &m)
	return m, err
}

// ReplayTransition is one persisted step of a finished match.
type ReplayTransition struct {
	ObsBefore [16]float64    `json:"obs_before"`
	Action    [8]float64     `json:"action"`
	ObsAfter  [16]float64    `json:"obs_after"`
	Reward    float64        `json:"reward"`
	Done      bool           `json:"done"`
	Info      map[string]any `json:"info"`
}

// Replay is the JSON-native replacement for the original's per-game .npz
// artifact: same field names, a portable container instead of a numpy
// archive.
type Replay struct {
	Identifier  string             `json:"identifier"`
	PlayerOne   string             `json:"player_one"`
	PlayerTwo   string             `json:"player_two"`
	Timestamp   time.Time          `json:"timestamp"`
	Transitions []ReplayTransition `json:"transitions"`
}

// SaveReplay writes r to games/<yyyy>/<mm>/<dd>/<id>.json, bucketed by the
// replay's own timestamp just like the original's glob-friendly layout.
func (s *Store) SaveReplay(r Replay) error {
	dir := filepath.Join(s.gamesDir(),
		fmt.Sprintf("%04d", r.Timestamp.Year()),
		fmt.Sprintf("%02d", r.Timestamp.Month()),
		fmt.Sprintf("%02d", r.Timestamp.Day()),
	)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persistence: create replay dir: %w", err)
	}

	path := filepath.Join(dir, r.Identifier+".json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persistence: create replay file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
