package model

// Hub is the server-side callback surface a Client or Game uses to reach
// back into shared, server-wide state (the matchmaking queue, lifecycle
// registries, rating/leaderboard updates, persistence) without either of
// them owning that state directly. It is implemented by
// internal/server.Runtime and injected as a non-owning reference.
type Hub interface {
	// EnqueueForMatch asks the matchmaker to place c into a waiting Game
	// or open a fresh one. Called once per StartQueuing.
	EnqueueForMatch(c *Client)

	// ClientDetached is called once a Client transitions to Detached so
	// the hub can drop it from its registries.
	ClientDetached(c *Client)

	// GameFinished is called once a Game reaches its episode cap and has
	// delivered terminal results to both clients; the hub persists the
	// replay, applies rating/leaderboard updates, and deregisters it.
	GameFinished(g *Game)

	// GameAborted is called once a Game has notified its remaining
	// clients of an abort; the hub deregisters it without persisting a
	// replay or touching ratings.
	GameAborted(g *Game)
}

// Remote is the outbound call surface toward one authenticated transport
// connection. Every method is best-effort: a non-nil error means the
// transport is considered dead and the caller must detach the Client.
type Remote interface {
	GameStarts(obs Observation, info Info) error
	SendObservation(obs Observation, reward float64, done bool, info Info) error
	GameDone(obs Observation, reward float64, done bool, info Info, result GameResult) error
	GameAborted(msg string) error

	// Alive reports whether the underlying transport is still connected.
	// The maintenance task polls this to reap clients whose connection
	// dropped without a clean close (the original's broker.disconnected
	// check).
	Alive() bool
}
