package model

// LeaderboardEntry is a head-to-head (or "total") win/loss/draw tally.
type LeaderboardEntry struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// Leaderboard is keyed by username, then by opponent username (plus the
// synthetic "total" key for a player's aggregate record), mirroring the
// original's nested leaderboard_matrix.
type Leaderboard map[string]map[string]*LeaderboardEntry

const totalKey = "total"

func (lb Leaderboard) ensure(username string) map[string]*LeaderboardEntry {
	row, ok := lb[username]
	if !ok {
		row = map[string]*LeaderboardEntry{totalKey: {}}
		lb[username] = row
	}
	return row
}

func (lb Leaderboard) entry(username, opponent string) *LeaderboardEntry {
	row := lb.ensure(username)
	e, ok := row[opponent]
	if !ok {
		e = &LeaderboardEntry{}
		row[opponent] = e
	}
	return e
}

// RecordOutcome folds one episode's winner (relative to playerOne, slot 0)
// into both players' head-to-head entries and their "total" rows.
func (lb Leaderboard) RecordOutcome(playerOne, playerTwo string, winner WinnerCode) {
	one := lb.entry(playerOne, playerTwo)
	two := lb.entry(playerTwo, playerOne)
	oneTotal := lb.entry(playerOne, totalKey)
	twoTotal := lb.entry(playerTwo, totalKey)

	switch winner {
	case WinnerDraw:
		one.Draws++
		two.Draws++
		oneTotal.Draws++
		twoTotal.Draws++
	case WinnerSideOne:
		one.Wins++
		two.Losses++
		oneTotal.Wins++
		twoTotal.Losses++
	default: // WinnerSideTwo
		one.Losses++
		two.Wins++
		oneTotal.Losses++
		twoTotal.Wins++
	}
}

// StatsPoint is one timestamped sample of a gauge.
type StatsPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// StatsSeries groups timestamped gauges into the two namespaces the
// maintenance task samples: "games" and "player".
type StatsSeries map[string]map[string][]StatsPoint

// Append records one sample of namespace/metric at t.
func (s StatsSeries) Append(namespace, metric string, t int64, value float64) {
	group, ok := s[namespace]
	if !ok {
		group = make(map[string][]StatsPoint)
		s[namespace] = group
	}
	group[metric] = append(group[metric], StatsPoint{Timestamp: t, Value: value})
}
