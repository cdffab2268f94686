package model

import "errors"

// Common errors used across the application.
//
// Per the protocol's error policy, most of these are handled by silently
// dropping the offending event; only ErrNameCollision and ErrLobbyFull
// produce a direct rejection to the caller.
var (
	// Registration errors
	ErrNameCollision = errors.New("name is already taken by another device")
	ErrLobbyFull     = errors.New("lobby is full")

	// Identity / routing errors
	ErrInvalidIdentity = errors.New("event from an unregistered connection")
	ErrNotPaired       = errors.New("player has no active match session")

	// Match errors
	ErrNotYourTurn         = errors.New("player does not hold the turn")
	ErrMalformedPayload    = errors.New("payload is not a valid 4-distinct-symbol code")
	ErrSecretAlreadyLocked = errors.New("player has already locked a secret")
	ErrMatchNotActive      = errors.New("match session is not in the required state")
)
