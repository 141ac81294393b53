package model

import "github.com/laserhockey/competition-server/internal/env"

// Observation is the 16-real per-side state vector (see env.Observation).
type Observation = env.Observation

// Info carries at least "winner" on an episode's terminal tick.
type Info = env.Info

// Action is one side's half-action for a single tick. Valid reports
// whether the wire payload decoded into exactly 4 real numbers; an
// invalid Action never advances the environment (see Game.Step).
type Action struct {
	Values [4]float64
	Valid  bool
}

// WinnerCode is the outcome of one episode: +1 side 0 wins, -1 side 1
// wins, 0 draw.
type WinnerCode int

const (
	WinnerSideTwo WinnerCode = -1
	WinnerDraw    WinnerCode = 0
	WinnerSideOne WinnerCode = 1
)

// GameResult is the per-client summary delivered alongside the terminal
// observation at match finalization, computed from a Game's
// episode outcomes relative to that client's slot index.
type GameResult struct {
	EpisodesPlayed int `json:"episodes_played"`
	GamesWon       int `json:"games_won"`
	GamesLost      int `json:"games_lost"`
	GamesDrawn     int `json:"games_drawn"`
}

// outcomeForSlot folds a raw winner code into win/loss/draw relative to
// the given slot index (0 or 1).
func outcomeForSlot(winner WinnerCode, slot int) (won, lost, drawn bool) {
	switch {
	case winner == WinnerDraw:
		return false, false, true
	case (winner == WinnerSideOne && slot == 0) || (winner == WinnerSideTwo && slot == 1):
		return true, false, false
	default:
		return false, true, false
	}
}

// SummarizeOutcomes computes a GameResult for the given slot from a
// sequence of per-episode winner codes.
func SummarizeOutcomes(outcomes []WinnerCode, slot int) GameResult {
	result := GameResult{EpisodesPlayed: len(outcomes)}
	for _, w := range outcomes {
		won, lost, drawn := outcomeForSlot(w, slot)
		switch {
		case won:
			result.GamesWon++
		case lost:
			result.GamesLost++
		case drawn:
			result.GamesDrawn++
		}
	}
	return result
}
