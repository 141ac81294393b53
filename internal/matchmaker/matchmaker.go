// Package matchmaker selects a waiting Game for a newly queuing Client
// using a skill-quality-plus-wait-bonus weighted random choice, falling
// back to opening a fresh game when the waiting pool is too thin to be
// worth scoring (spec.md §4.3).
package matchmaker

import (
	"math/rand"
	"strings"
	"time"

	"github.com/laserhockey/competition-server/internal/model"
	"github.com/laserhockey/competition-server/internal/skill"
)

const (
	// eligibleFractionDenominator gates quality-weighted matching behind
	// having a large enough waiting pool: only run it once
	// |eligible| > totalConnected/6.
	eligibleFractionDenominator = 6

	// waitBonusSaturation is the wait time, in seconds, past which the
	// additive quality bonus saturates at 1.0.
	waitBonusSaturation = 300.0

	basicOpponentMarker = "BasicOpponent"
)

// Matchmaker holds the PRNG used for the weighted draw. It carries no
// other state; the waiting-game pool lives in the server's registries.
type Matchmaker struct {
	rng *rand.Rand
}

// New returns a Matchmaker seeded for reproducible test runs.
func New(seed int64) *Matchmaker {
	return &Matchmaker{rng: rand.New(rand.NewSource(seed))}
}

// eligible reports whether waiting game g may be offered to candidate c:
// g must have exactly one client, that client must belong to a different
// avatar than c, and the pairing must not be two BasicOpponent bots.
func eligible(g *model.Game, c *model.Client) bool {
	if g.PlayerCount() != 1 {
		return false
	}
	occupant := g.Clients[0]
	if occupant == nil {
		return false
	}
	if occupant.Avatar == c.Avatar {
		return false
	}
	if strings.Contains(occupant.Avatar.Username, basicOpponentMarker) &&
		strings.Contains(c.Avatar.Username, basicOpponentMarker) {
		return false
	}
	return true
}

// EligibleGames filters waitingGames down to those c may be matched into.
func EligibleGames(waitingGames []*model.Game, c *model.Client) []*model.Game {
	var result []*model.Game
	for _, g := range waitingGames {
		if eligible(g, c) {
			result = append(result, g)
		}
	}
	return result
}

// Select picks a waiting game for c out of waitingGames, or returns nil if
// the eligible pool is too thin (the caller should open a fresh game in
// that case) or if c should be matched but waitingGames contains nothing
// usable. totalConnected is the server's total connected-client count.
func (m *Matchmaker) Select(c *model.Client, waitingGames []*model.Game, totalConnected int) *model.Game {
	eligibleGames := EligibleGames(waitingGames, c)
	if len(eligibleGames) <= totalConnected/eligibleFractionDenominator {
		return nil
	}

	weights := quoteWeights(c, eligibleGames, time.Now())
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return eligibleGames[0]
	}

	draw := m.rng.Float64() * total
	cursor := 0.0
	for i, w := range weights {
		cursor += w
		if draw <= cursor {
			return eligibleGames[i]
		}
	}
	return eligibleGames[len(eligibleGames)-1]
}

// quoteWeights computes the quality-plus-wait-bonus weight for each
// eligible game, split out from Select so the scoring rule can be unit
// tested without depending on the PRNG draw.
func quoteWeights(c *model.Client, eligibleGames []*model.Game, now time.Time) []float64 {
	weights := make([]float64, len(eligibleGames))
	for i, g := range eligibleGames {
		opponentRating := g.Clients[0].Avatar.Rating
		quality := skill.Quality1v1(c.Avatar.Rating, opponentRating)
		waitSeconds := now.Sub(g.LastOpTimestamp).Seconds()
		bonus := waitSeconds / waitBonusSaturation
		if bonus > 1.0 {
			bonus = 1.0
		}
		if bonus < 0 {
			bonus = 0
		}
		weights[i] = quality + bonus
	}
	return weights
}
