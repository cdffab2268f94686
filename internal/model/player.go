package model

import (
	"time"

	"github.com/bancbannas/bulls-and-cows-server/internal/timer"
)

// PlayerName is the stable identity key for a player.
// It survives reconnects; connections do not.
type PlayerName string

// Presence tracks whether a player currently has a live connection
type Presence string

const (
	PresenceConnected Presence = "connected"
	PresenceGrace     Presence = "grace_period"
	PresenceRemoved   Presence = "removed"
)

// Player is an identity-scoped record owned by the registry.
//
// Conn is nil while no live channel exists. MatchID is non-empty iff the
// player participates in a session that has not yet terminated. Secret is
// only mutated while the owning session is awaiting secrets.
type Player struct {
	Name        PlayerName
	DeviceToken string
	Conn        Conn
	Presence    Presence
	MatchID     MatchID
	Secret      string
	HasTurn     bool

	// GraceDeadline is set while Presence is PresenceGrace, zero otherwise
	GraceDeadline time.Time

	// GraceGen guards this player's disconnect grace timer; GraceTimer is
	// the currently scheduled handle, if any
	GraceGen   timer.Token
	GraceTimer *timer.Handle

	RegisteredAt time.Time
}

// InMatch reports whether the player is currently paired
func (p *Player) InMatch() bool {
	return p.MatchID != ""
}

// Connected reports whether the player has a live connection
func (p *Player) Connected() bool {
	return p.Conn != nil
}

// Notify sends an event to the player if they are connected, and is a no-op
// otherwise
func (p *Player) Notify(ev Event) {
	if p.Conn != nil {
		p.Conn.Send(ev)
	}
}

// LobbyEntry is one row of the lobby snapshot projection
type LobbyEntry struct {
	Name   PlayerName `json:"name"`
	InGame bool       `json:"inGame"`
}
