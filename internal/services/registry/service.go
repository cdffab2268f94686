package registry

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bancbannas/bulls-and-cows-server/internal/model"
	"github.com/bancbannas/bulls-and-cows-server/internal/timer"
)

// CollisionPolicy selects how a registration for a taken name (from a
// different device) is resolved
type CollisionPolicy string

const (
	// PolicyReject refuses the registration with a nameTaken rejection
	PolicyReject CollisionPolicy = "reject"
	// PolicySuffix binds a disambiguated name ("name (2)", "name (3)", ...)
	PolicySuffix CollisionPolicy = "suffix"
)

// Config holds registry settings
type Config struct {
	// MaxPlayers bounds the number of registered identities; 0 means
	// unlimited
	MaxPlayers int
	// Collision is the name collision policy; applied consistently for the
	// lifetime of the process
	Collision CollisionPolicy
}

// DefaultConfig returns the default registry configuration
func DefaultConfig() Config {
	return Config{
		MaxPlayers: 100,
		Collision:  PolicyReject,
	}
}

// Service maps stable player names to live connection handles and presence
// state. All methods must be called on the coordinator's serialized event
// path; the registry does no locking of its own.
type Service struct {
	cfg     Config
	clock   timer.Clock
	logger  *slog.Logger
	players map[model.PlayerName]*model.Player
}

// New creates a new registry Service
func New(cfg Config, clock timer.Clock, logger *slog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		clock:   clock,
		logger:  logger.With(slog.String("component", "registry")),
		players: make(map[model.PlayerName]*model.Player),
	}
}

// Register binds a name to a connection.
//
// A free name is bound directly. A name held by a record with a matching
// device token is reclaimed: a prior connection, if it is a different one,
// is told to disconnect and closed, and the record is rebound without
// touching match state; a retry on the same connection rebinds in place. A
// name held by a different device is resolved per the collision policy.
// The returned bool reports whether this was a reclamation.
//
// An empty device token means a first-time client; the registry mints one
// and returns it on the player record.
func (s *Service) Register(requestedName, deviceToken string, conn model.Conn) (*model.Player, bool, error) {
	name := model.PlayerName(strings.TrimSpace(requestedName))
	if name == "" {
		return nil, false, model.ErrMalformedPayload
	}

	if existing, ok := s.players[name]; ok {
		if deviceToken != "" && existing.DeviceToken == deviceToken {
			return s.reclaim(existing, conn), true, nil
		}

		switch s.cfg.Collision {
		case PolicySuffix:
			name = s.disambiguate(name)
		default:
			return nil, false, model.ErrNameCollision
		}
	}

	if s.cfg.MaxPlayers > 0 && len(s.players) >= s.cfg.MaxPlayers {
		return nil, false, model.ErrLobbyFull
	}

	if deviceToken == "" {
		deviceToken = uuid.NewString()
	}

	player := &model.Player{
		Name:         name,
		DeviceToken:  deviceToken,
		Conn:         conn,
		Presence:     model.PresenceConnected,
		RegisteredAt: s.clock.Now(),
	}
	s.players[name] = player

	s.logger.Info("player registered",
		slog.String("name", string(name)),
		slog.String("conn_id", conn.ID()),
	)

	return player, false, nil
}

// reclaim rebinds an existing record to a new connection
func (s *Service) reclaim(player *model.Player, conn model.Conn) *model.Player {
	if prior := player.Conn; prior != nil && prior.ID() != conn.ID() {
		prior.Send(model.Event{Type: model.EventForceDisconnect})
		prior.Close()
	}

	player.Conn = conn
	player.Presence = model.PresenceConnected
	player.GraceDeadline = time.Time{}

	s.logger.Info("player reclaimed",
		slog.String("name", string(player.Name)),
		slog.String("conn_id", conn.ID()),
		slog.Bool("in_match", player.InMatch()),
	)

	return player
}

// disambiguate finds the first free "name (n)" variant
func (s *Service) disambiguate(name model.PlayerName) model.PlayerName {
	for n := 2; ; n++ {
		candidate := model.PlayerName(fmt.Sprintf("%s (%d)", name, n))
		if _, taken := s.players[candidate]; !taken {
			return candidate
		}
	}
}

// Get returns the player bound to a name
func (s *Service) Get(name model.PlayerName) (*model.Player, bool) {
	p, ok := s.players[name]
	return p, ok
}

// Unbind handles a dropped connection for a registered player. A player
// with no active match is deleted outright; a match participant is
// retained in grace-period presence so the session's grace timer can give
// them a chance to reclaim. Returns true if the record was removed.
func (s *Service) Unbind(name model.PlayerName) bool {
	player, ok := s.players[name]
	if !ok {
		return false
	}

	player.Conn = nil

	if !player.InMatch() {
		s.Remove(name)
		return true
	}

	player.Presence = model.PresenceGrace
	s.logger.Info("player entered grace period", slog.String("name", string(name)))
	return false
}

// Remove deletes a record from the registry
func (s *Service) Remove(name model.PlayerName) {
	player, ok := s.players[name]
	if !ok {
		return
	}
	player.Presence = model.PresenceRemoved
	delete(s.players, name)
	s.logger.Info("player removed", slog.String("name", string(name)))
}

// Snapshot projects the current lobby state. Order is not significant.
func (s *Service) Snapshot() []model.LobbyEntry {
	entries := make([]model.LobbyEntry, 0, len(s.players))
	for _, p := range s.players {
		entries = append(entries, model.LobbyEntry{
			Name:   p.Name,
			InGame: p.InMatch(),
		})
	}
	return entries
}

// Broadcast sends an event to every connected player
func (s *Service) Broadcast(ev model.Event) {
	for _, p := range s.players {
		p.Notify(ev)
	}
}

// Len returns the number of registered players
func (s *Service) Len() int {
	return len(s.players)
}
