package server

import "time"

// GameView is a read-only snapshot of one Game for the admin console.
type GameView struct {
	ID              string
	PlayerOne       string
	PlayerTwo       string
	LastOpTimestamp time.Time
}

// ListGames returns a snapshot of every currently registered game.
func (r *Runtime) ListGames() []GameView {
	views := make([]GameView, 0, len(r.games))
	for _, g := range r.games {
		v := GameView{ID: g.ID, LastOpTimestamp: g.LastOpTimestamp}
		if g.Clients[0] != nil {
			v.PlayerOne = g.Clients[0].Avatar.Username
		}
		if g.Clients[1] != nil {
			v.PlayerTwo = g.Clients[1].Avatar.Username
		}
		views = append(views, v)
	}
	return views
}

// AvatarView is a read-only snapshot of one Avatar plus the live
// connected-client count the original's list_avatars additionally prints
// (see SPEC_FULL.md → Supplemented features).
type AvatarView struct {
	Username          string
	ConnectedClients  int
	FinishedGames     int
	GamesWon          int
	GamesLost         int
	GamesDrawn        int
}

// ListAvatars returns a snapshot of every known avatar.
func (r *Runtime) ListAvatars() []AvatarView {
	views := make([]AvatarView, 0, len(r.avatars))
	for _, a := range r.avatars {
		views = append(views, AvatarView{
			Username:         a.Username,
			ConnectedClients: r.avatarClients[a.Username],
			FinishedGames:    a.FinishedGames,
			GamesWon:         a.GamesWon,
			GamesLost:        a.GamesLost,
			GamesDrawn:       a.GamesDrawn,
		})
	}
	return views
}

// LeaderboardSnapshot returns a deep copy of the leaderboard matrix, safe
// for the caller to read after Call returns.
func (r *Runtime) LeaderboardSnapshot() map[string]map[string]struct{ Wins, Losses, Draws int } {
	out := make(map[string]map[string]struct{ Wins, Losses, Draws int }, len(r.leaderboard))
	for username, row := range r.leaderboard {
		outRow := make(map[string]struct{ Wins, Losses, Draws int }, len(row))
		for opponent, e := range row {
			outRow[opponent] = struct{ Wins, Losses, Draws int }{e.Wins, e.Losses, e.Draws}
		}
		out[username] = outRow
	}
	return out
}
