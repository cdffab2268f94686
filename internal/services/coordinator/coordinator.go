// Package coordinator serializes every game event onto a single lock and
// routes it to the owning service: registration to the registry, pairing
// and play to match sessions, chat to the chat service. Timer expiries are
// scheduled through the same lock, so services below the coordinator never
// see concurrent calls.
package coordinator

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bancbannas/bulls-and-cows-server/internal/dependencies/random"
	"github.com/bancbannas/bulls-and-cows-server/internal/model"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/chat"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/leaderboard"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/match"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/registry"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/scoring"
	"github.com/bancbannas/bulls-and-cows-server/internal/timer"
)

// Coordinator owns the serialized event path. All exported methods acquire
// the coordinator lock; fired timers re-enter through the same lock via the
// scheduler's run function.
type Coordinator struct {
	mu sync.Mutex

	registry    *registry.Service
	chat        chat.ServiceInterface
	leaderboard *leaderboard.Client
	scorer      *scoring.Service
	random      random.Random
	logger      *slog.Logger

	sched    *timer.Scheduler
	matchCfg match.Config

	// conns maps live connection IDs to the player name they are bound to.
	// Entries for superseded connections are dropped lazily when the old
	// connection's read loop reports its disconnect.
	conns    map[string]model.PlayerName
	sessions map[model.MatchID]*match.Session
}

// New creates a coordinator. The scheduler it builds routes every timer
// expiry through the coordinator lock.
func New(
	reg *registry.Service,
	chatService chat.ServiceInterface,
	lb *leaderboard.Client,
	clock timer.Clock,
	scorer *scoring.Service,
	rnd random.Random,
	matchCfg match.Config,
	logger *slog.Logger,
) *Coordinator {
	c := &Coordinator{
		registry:    reg,
		chat:        chatService,
		leaderboard: lb,
		scorer:      scorer,
		random:      rnd,
		matchCfg:    matchCfg,
		logger:      logger.With(slog.String("component", "coordinator")),
		conns:       make(map[string]model.PlayerName),
		sessions:    make(map[model.MatchID]*match.Session),
	}
	c.sched = timer.NewScheduler(clock, c.locked)
	return c
}

// locked runs fn while holding the coordinator lock
func (c *Coordinator) locked(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// Register binds a connection to a player name. A connection already bound
// to a name may only retry its own reclaim. Rejections are reported to
// the connection as nameTaken or lobbyFull events; success emits
// nameRegistered, the chat history and a lobby broadcast. A reclaiming
// registration that lands mid-session also resyncs the session.
func (c *Coordinator) Register(ctx context.Context, conn model.Conn, requestedName, deviceToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A bound connection may only retry its own reclaim. Letting it take a
	// second name would overwrite its conns entry and leave the first record
	// holding a live Conn that no disconnect can ever unbind.
	if boundName, bound := c.conns[conn.ID()]; bound {
		existing, ok := c.registry.Get(boundName)
		if !ok || model.PlayerName(strings.TrimSpace(requestedName)) != boundName ||
			deviceToken == "" || deviceToken != existing.DeviceToken {
			conn.Send(model.Event{Type: model.EventNameTaken})
			return
		}
	}

	player, reclaimed, err := c.registry.Register(requestedName, deviceToken, conn)
	switch {
	case err == nil:
	case err == model.ErrLobbyFull:
		conn.Send(model.Event{Type: model.EventLobbyFull})
		return
	default:
		conn.Send(model.Event{Type: model.EventNameTaken})
		return
	}

	c.conns[conn.ID()] = player.Name

	conn.Send(model.Event{Type: model.EventNameRegistered, Data: model.NameRegisteredPayload{
		Name:        player.Name,
		DeviceToken: player.DeviceToken,
	}})

	if history, err := c.chat.History(ctx); err != nil {
		c.logger.Warn("failed to load chat history", slog.String("error", err.Error()))
	} else {
		conn.Send(model.Event{Type: model.EventChatHistory, Data: model.ChatHistoryPayload{
			Messages: history,
		}})
	}

	if reclaimed && player.InMatch() {
		if session, ok := c.sessions[player.MatchID]; ok {
			session.Reconnect(player)
		}
	}

	c.broadcastLobby()
}

// Challenge delivers a challenge notification to the target. It mutates
// nothing: acceptance revalidates everything, so a challenge can go stale
// harmlessly.
func (c *Coordinator) Challenge(ctx context.Context, conn model.Conn, target model.PlayerName) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	challenger, err := c.boundPlayer(conn)
	if err != nil {
		return err
	}
	if challenger.InMatch() {
		return model.ErrNotPaired
	}

	targetPlayer, ok := c.registry.Get(target)
	if !ok || targetPlayer == challenger || targetPlayer.InMatch() || !targetPlayer.Connected() {
		return model.ErrMalformedPayload
	}

	targetPlayer.Notify(model.Event{Type: model.EventChallengeReceived, Data: model.ChallengeReceivedPayload{
		From: challenger.Name,
	}})
	return nil
}

// Accept pairs the accepting player with the named challenger, creating a
// match session. Both participants must be registered, connected and
// unpaired at acceptance time.
func (c *Coordinator) Accept(ctx context.Context, conn model.Conn, challengerName model.PlayerName) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	accepter, err := c.boundPlayer(conn)
	if err != nil {
		return err
	}
	if accepter.InMatch() {
		return model.ErrNotPaired
	}

	challenger, ok := c.registry.Get(challengerName)
	if !ok || challenger == accepter || challenger.InMatch() || !challenger.Connected() {
		return model.ErrMalformedPayload
	}

	id := model.MatchID(uuid.NewString())
	session := match.New(
		id,
		challenger, accepter,
		c.matchCfg,
		c.sched,
		c.scorer,
		c.random,
		c.logger,
		c.sessionEnded,
	)
	c.sessions[id] = session

	challenger.Notify(model.Event{Type: model.EventRedirectToMatch, Data: model.RedirectToMatchPayload{
		MatchID:  id,
		Opponent: accepter.Name,
	}})
	accepter.Notify(model.Event{Type: model.EventRedirectToMatch, Data: model.RedirectToMatchPayload{
		MatchID:  id,
		Opponent: challenger.Name,
	}})

	c.broadcastLobby()
	return nil
}

// LockSecret forwards a secret commitment to the player's session
func (c *Coordinator) LockSecret(ctx context.Context, conn model.Conn, secret string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	player, session, err := c.boundSession(conn)
	if err != nil {
		return err
	}
	return session.LockSecret(player, secret)
}

// SubmitGuess forwards a guess to the player's session
func (c *Coordinator) SubmitGuess(ctx context.Context, conn model.Conn, guess string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	player, session, err := c.boundSession(conn)
	if err != nil {
		return err
	}
	return session.SubmitGuess(player, guess)
}

// Chat persists a message and fans it out to every connected player
func (c *Coordinator) Chat(ctx context.Context, conn model.Conn, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	player, err := c.boundPlayer(conn)
	if err != nil {
		return err
	}

	msg, err := c.chat.Post(ctx, player.Name, text)
	if err != nil {
		return err
	}

	c.registry.Broadcast(model.Event{Type: model.EventChatMessage, Data: msg})
	return nil
}

// Disconnect handles a connection's read loop ending. Stale reports from
// superseded connections only clear their map entry; the live binding is
// untouched.
func (c *Coordinator) Disconnect(conn model.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name, ok := c.conns[conn.ID()]
	if !ok {
		return
	}
	delete(c.conns, conn.ID())

	player, ok := c.registry.Get(name)
	if !ok || !player.Connected() || player.Conn.ID() != conn.ID() {
		return
	}

	removed := c.registry.Unbind(name)
	if !removed {
		if session, ok := c.sessions[player.MatchID]; ok {
			session.Disconnect(player)
		}
	}

	c.broadcastLobby()
}

// Snapshot returns the lobby projection for the read-only HTTP surface
func (c *Coordinator) Snapshot() []model.LobbyEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Snapshot()
}

// ChatHistory returns the retained chat log for the read-only HTTP surface
func (c *Coordinator) ChatHistory(ctx context.Context) ([]model.ChatMessage, error) {
	return c.chat.History(ctx)
}

// boundPlayer resolves a connection to its registered player
func (c *Coordinator) boundPlayer(conn model.Conn) (*model.Player, error) {
	name, ok := c.conns[conn.ID()]
	if !ok {
		return nil, model.ErrInvalidIdentity
	}
	player, ok := c.registry.Get(name)
	if !ok || !player.Connected() || player.Conn.ID() != conn.ID() {
		return nil, model.ErrInvalidIdentity
	}
	return player, nil
}

// boundSession resolves a connection to its player and that player's live
// session
func (c *Coordinator) boundSession(conn model.Conn) (*model.Player, *match.Session, error) {
	player, err := c.boundPlayer(conn)
	if err != nil {
		return nil, nil, err
	}
	session, ok := c.sessions[player.MatchID]
	if !ok {
		return nil, nil, model.ErrNotPaired
	}
	return player, session, nil
}

// sessionEnded runs inside the coordinator lock when a session terminates:
// it drops the session, evicts participants who are no longer connected and
// reports decided outcomes to the leaderboard.
func (c *Coordinator) sessionEnded(session *match.Session) {
	delete(c.sessions, session.ID())

	reasons := session.Reasons()
	var winner, loser model.PlayerName
	for name, reason := range reasons {
		if reason.IsWin() {
			winner = name
		}
	}

	for _, p := range session.Players() {
		if winner != "" && p.Name != winner {
			loser = p.Name
		}
		if !p.Connected() {
			c.registry.Remove(p.Name)
		}
	}

	if winner != "" {
		c.leaderboard.SubmitMatchAsync(winner, loser)
	}

	c.broadcastLobby()
}

// broadcastLobby pushes the lobby snapshot to every connected player
func (c *Coordinator) broadcastLobby() {
	c.registry.Broadcast(model.Event{Type: model.EventUpdateLobby, Data: model.UpdateLobbyPayload{
		Players: c.registry.Snapshot(),
	}})
}
