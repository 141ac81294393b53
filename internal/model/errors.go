package model

import "errors"

// Error kinds from the server's error-handling design. Each is absorbed or
// handled at a specific boundary; none propagate past a Client or Game
// handler to the runtime loop.
var (
	// ErrVersionMismatch is returned by CheckCompatibility when the
	// client reports a version other than ServerVersion.
	ErrVersionMismatch = errors.New("client and server versions are incompatible")

	// ErrGameFull is returned by Game.AddPlayer once both slots are taken.
	ErrGameFull = errors.New("game already has two players")

	// ErrUnknownClientInGame is returned by Game.Step when the submitting
	// Client is not one of the Game's two slots; callers silently ignore
	// it (spec.md §7).
	ErrUnknownClientInGame = errors.New("client is not a participant of this game")

	// ErrTransportDead signals that a remote call could not be delivered
	// because the underlying connection is gone.
	ErrTransportDead = errors.New("client transport is no longer reachable")

	// ErrAuthenticationFailure is returned by the password checker when a
	// username is unknown or its password does not match.
	ErrAuthenticationFailure = errors.New("authentication failed")
)

// ServerVersion is the protocol version clients must match in
// CheckCompatibility.
const ServerVersion = "1.0"
