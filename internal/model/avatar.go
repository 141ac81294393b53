package model

import (
	"time"

	"github.com/laserhockey/competition-server/internal/skill"
)

// Avatar is the persistent per-username player identity. It is created on
// first authentication under a new username, mutated only by the server at
// match completion or save, and never destroyed.
//
// Invariant: GamesWon + GamesLost + GamesDrawn == FinishedGames.
type Avatar struct {
	Username         string
	FinishedGames    int
	GamesWon         int
	GamesLost        int
	GamesDrawn       int
	FinishedGameIDs  []string
	Rating           skill.Rating
	LastSaved        time.Time
}

// NewAvatar returns a freshly created Avatar with the default rating
// prior, as happens on first authentication under a new username.
func NewAvatar(username string) *Avatar {
	return &Avatar{
		Username: username,
		Rating:   skill.NewRating(),
	}
}

// Stats returns the subset of fields exposed by request_stats.
func (a *Avatar) Stats() map[string]any {
	return map[string]any{
		"username":       a.Username,
		"finished_games": a.FinishedGames,
		"games_won":      a.GamesWon,
		"games_lost":     a.GamesLost,
		"games_drawn":    a.GamesDrawn,
	}
}

// RecordMatchResult folds one completed match's episode outcomes into the
// avatar's counters (one increment of FinishedGames per episode, draws included,
// per the won/lost/drawn invariant) and appends the match id once.
func (a *Avatar) RecordMatchResult(gameID string, outcomes []WinnerCode, slot int) {
	for _, w := range outcomes {
		won, lost, drawn := outcomeForSlot(w, slot)
		a.FinishedGames++
		switch {
		case won:
			a.GamesWon++
		case lost:
			a.GamesLost++
		case drawn:
			a.GamesDrawn++
		}
	}
	a.FinishedGameIDs = append(a.FinishedGameIDs, gameID)
}

// Snapshot is the schema-versioned, explicit persisted form of an Avatar.
// Loading rebuilds the Rating field from (Mu, Sigma) instead of merging a
// decoded dict onto a live object (see spec.md §9).
type Snapshot struct {
	SchemaVersion   int
	Username        string
	FinishedGames   int
	GamesWon        int
	GamesLost       int
	GamesDrawn      int
	FinishedGameIDs []string
	RatingMu        float64
	RatingSigma     float64
	LastSaved       time.Time
}

const currentSnapshotSchema = 1

// ToSnapshot converts the live Avatar into its persisted form.
func (a *Avatar) ToSnapshot(savedAt time.Time) Snapshot {
	return Snapshot{
		SchemaVersion:   currentSnapshotSchema,
		Username:        a.Username,
		FinishedGames:   a.FinishedGames,
		GamesWon:        a.GamesWon,
		GamesLost:       a.GamesLost,
		GamesDrawn:      a.GamesDrawn,
		FinishedGameIDs: append([]string(nil), a.FinishedGameIDs...),
		RatingMu:        a.Rating.Mu,
		RatingSigma:     a.Rating.Sigma,
		LastSaved:       savedAt,
	}
}

// AvatarFromSnapshot reconstructs a live Avatar from its persisted form,
// explicitly rebuilding the derived Rating field.
func AvatarFromSnapshot(s Snapshot) *Avatar {
	return &Avatar{
		Username:        s.Username,
		FinishedGames:   s.FinishedGames,
		GamesWon:        s.GamesWon,
		GamesLost:       s.GamesLost,
		GamesDrawn:      s.GamesDrawn,
		FinishedGameIDs: append([]string(nil), s.FinishedGameIDs...),
		Rating:          skill.Rating{Mu: s.RatingMu, Sigma: s.RatingSigma},
		LastSaved:       s.LastSaved,
	}
}
