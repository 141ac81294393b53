// Package admin implements the line-oriented textual inspector over the
// server core described in spec.md §4.5: list_all_games, list_avatars,
// show_leaderboard_matrix, quit. It runs on its own goroutine because it
// blocks on stdin, and never touches runtime state directly — every
// effect, including quit, crosses through server.Call/Submit.
package admin

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/laserhockey/competition-server/internal/server"
)

// Console reads commands from in and writes results to out until in is
// closed or a "quit" is received.
type Console struct {
	runtime *server.Runtime
	in      io.Reader
	out     io.Writer
	log     *slog.Logger
}

func New(rt *server.Runtime, in io.Reader, out io.Writer, log *slog.Logger) *Console {
	return &Console{runtime: rt, in: in, out: out, log: log}
}

// Run blocks, processing one line at a time, until stdin closes or quit
// is entered. Every command reads through server.Call; quit is the one
// exception, since RequestShutdown is itself safe to call from any
// goroutine and schedules its own effect on the runtime goroutine.
func (c *Console) Run() {
	scanner := bufio.NewScanner(c.in)
	fmt.Fprintln(c.out, "admin console ready (list_all_games, list_avatars, show_leaderboard_matrix, quit)")
	for scanner.Scan() {
		cmd := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if cmd == "" {
			continue
		}
		switch cmd {
		case "list_all_games":
			c.listAllGames()
		case "list_avatars":
			c.listAvatars()
		case "show_leaderboard_matrix":
			c.showLeaderboardMatrix()
		case "quit":
			fmt.Fprintln(c.out, "shutting down")
			c.runtime.RequestShutdown()
			return
		default:
			fmt.Fprintf(c.out, "unknown command: %s\n", cmd)
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Warn("admin console read error", "error", err)
	}
}

func (c *Console) listAllGames() {
	games := server.Call(c.runtime, c.runtime.ListGames)
	if len(games) == 0 {
		fmt.Fprintln(c.out, "no games in progress")
		return
	}
	now := time.Now()
	for _, g := range games {
		fmt.Fprintf(c.out, "%s: %s vs %s, last op %s ago\n",
			g.ID, orDash(g.PlayerOne), orDash(g.PlayerTwo), formatSince(now, g.LastOpTimestamp))
	}
}

func (c *Console) listAvatars() {
	avatars := server.Call(c.runtime, c.runtime.ListAvatars)
	sort.Slice(avatars, func(i, j int) bool { return avatars[i].Username < avatars[j].Username })
	for _, a := range avatars {
		fmt.Fprintf(c.out, "%s: connected=%d finished=%d won=%d lost=%d drawn=%d\n",
			a.Username, a.ConnectedClients, a.FinishedGames, a.GamesWon, a.GamesLost, a.GamesDrawn)
	}
}

func (c *Console) showLeaderboardMatrix() {
	matrix := server.Call(c.runtime, c.runtime.LeaderboardSnapshot)
	usernames := make([]string, 0, len(matrix))
	for username := range matrix {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	for _, username := range usernames {
		row := matrix[username]
		opponents := make([]string, 0, len(row))
		for opponent := range row {
			opponents = append(opponents, opponent)
		}
		sort.Strings(opponents)
		for _, opponent := range opponents {
			e := row[opponent]
			fmt.Fprintf(c.out, "%s vs %s: %d-%d-%d (w-l-d)\n", username, opponent, e.Wins, e.Losses, e.Draws)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatSince renders the time since t as its largest non-zero unit
// followed by the next smaller unit (which may be zero), e.g. "2h 3m",
// "1d 0h" or "45s".
func formatSince(now, t time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
