package match

import (
	"log/slog"
	"time"

	"github.com/bancbannas/bulls-and-cows-server/internal/dependencies/random"
	"github.com/bancbannas/bulls-and-cows-server/internal/model"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/scoring"
	"github.com/bancbannas/bulls-and-cows-server/internal/timer"
)

// Config holds the session timer durations
type Config struct {
	// StartupGrace bounds how long both players have to lock their secrets
	StartupGrace time.Duration
	// TurnTimeout bounds how long the turn-holder has to submit a guess
	TurnTimeout time.Duration
	// DisconnectGrace is how long a dropped participant may reconnect
	// before forfeiting the session
	DisconnectGrace time.Duration
}

// DefaultConfig returns the default session timer durations
func DefaultConfig() Config {
	return Config{
		StartupGrace:    45 * time.Second,
		TurnTimeout:     60 * time.Second,
		DisconnectGrace: 30 * time.Second,
	}
}

// Session is the state machine owning one pairing: roles, secrets, turn
// order and termination. It exclusively owns the pairing relationship;
// players hold only a MatchID back-reference.
//
// All methods and timer callbacks run on the coordinator's serialized
// event path. The central hazard is timer staleness: every scheduled
// callback captures a generation token and re-checks it before acting, and
// every transition that invalidates a pending timer bumps the owning token.
type Session struct {
	id        model.MatchID
	state     model.MatchState
	players   [2]*model.Player
	turn      model.PlayerName
	startedAt time.Time
	reasons   map[model.PlayerName]model.GameOverReason
	history   []model.GuessRecord

	startGen   timer.Token
	turnGen    timer.Token
	startTimer *timer.Handle
	turnTimer  *timer.Handle

	cfg    Config
	sched  *timer.Scheduler
	scorer *scoring.Service
	random random.Random
	logger *slog.Logger

	// onTerminated runs exactly once, after outcomes are emitted and both
	// player records are reset
	onTerminated func(*Session)
}

// New creates a session for two distinct, unpaired players and starts the
// startup grace timer. The session binds both players' MatchID.
func New(
	id model.MatchID,
	a, b *model.Player,
	cfg Config,
	sched *timer.Scheduler,
	scorer *scoring.Service,
	rnd random.Random,
	logger *slog.Logger,
	onTerminated func(*Session),
) *Session {
	s := &Session{
		id:           id,
		state:        model.MatchAwaitingSecrets,
		players:      [2]*model.Player{a, b},
		startedAt:    sched.Now(),
		cfg:          cfg,
		sched:        sched,
		scorer:       scorer,
		random:       rnd,
		logger:       logger.With(slog.String("match_id", string(id))),
		onTerminated: onTerminated,
	}

	a.MatchID = id
	b.MatchID = id

	gen := s.startGen.Bump()
	s.startTimer = sched.Schedule(cfg.StartupGrace, func() { s.onStartupExpired(gen) })

	s.logger.Info("match created",
		slog.String("player_a", string(a.Name)),
		slog.String("player_b", string(b.Name)),
	)

	return s
}

// ID returns the session identifier
func (s *Session) ID() model.MatchID {
	return s.id
}

// State returns the current session state
func (s *Session) State() model.MatchState {
	return s.state
}

// TurnHolder returns the name of the player currently allowed to guess
func (s *Session) TurnHolder() model.PlayerName {
	return s.turn
}

// Players returns both participants
func (s *Session) Players() [2]*model.Player {
	return s.players
}

// Reasons returns the per-player termination reasons; nil before the
// session terminates
func (s *Session) Reasons() map[model.PlayerName]model.GameOverReason {
	return s.reasons
}

// Has reports whether the player participates in this session
func (s *Session) Has(p *model.Player) bool {
	return s.players[0] == p || s.players[1] == p
}

func (s *Session) opponentOf(p *model.Player) *model.Player {
	if s.players[0] == p {
		return s.players[1]
	}
	return s.players[0]
}

// LockSecret stores a player's secret commitment. The first submission
// notifies the opponent; the second transitions the session to active play.
func (s *Session) LockSecret(p *model.Player, secret string) error {
	if s.state != model.MatchAwaitingSecrets {
		return model.ErrMatchNotActive
	}
	if p.Secret != "" {
		return model.ErrSecretAlreadyLocked
	}
	if err := s.scorer.ValidateCode(secret); err != nil {
		return err
	}

	p.Secret = secret

	opponent := s.opponentOf(p)
	if opponent.Secret == "" {
		opponent.Notify(model.Event{Type: model.EventOpponentLocked})
		return nil
	}

	s.begin()
	return nil
}

// begin transitions to active play once both secrets are locked
func (s *Session) begin() {
	s.startGen.Bump()
	s.startTimer.Stop()
	s.startTimer = nil

	s.state = model.MatchActive

	// First turn is chosen uniformly at random
	first := s.players[s.random.Intn(2)]
	first.HasTurn = true
	s.turn = first.Name

	for _, p := range s.players {
		p.Notify(model.Event{Type: model.EventStartGame, Data: model.StartGamePayload{
			IsYourTurn:  p.HasTurn,
			TurnSeconds: int(s.cfg.TurnTimeout / time.Second),
		}})
	}

	s.scheduleTurn()

	s.logger.Info("match started", slog.String("first_turn", string(s.turn)))
}

// scheduleTurn restarts the turn timer for the current turn-holder,
// invalidating any previously scheduled turn expiry
func (s *Session) scheduleTurn() {
	gen := s.turnGen.Bump()
	s.turnTimer.Stop()
	s.turnTimer = s.sched.Schedule(s.cfg.TurnTimeout, func() { s.onTurnExpired(gen) })
}

// SubmitGuess scores a guess from the turn-holder against the opponent's
// secret. Malformed or out-of-turn guesses are rejected with no state
// change and no emission.
func (s *Session) SubmitGuess(p *model.Player, guess string) error {
	if s.state != model.MatchActive {
		return model.ErrMatchNotActive
	}
	if !p.HasTurn {
		return model.ErrNotYourTurn
	}
	if err := s.scorer.ValidateCode(guess); err != nil {
		return err
	}

	opponent := s.opponentOf(p)
	result := s.scorer.Evaluate(guess, opponent.Secret)

	s.history = append(s.history, model.GuessRecord{
		Name:  p.Name,
		Guess: guess,
		Bulls: result.Bulls,
		Cows:  result.Cows,
	})

	payload := model.GuessResultPayload{Guess: guess, Bulls: result.Bulls, Cows: result.Cows}
	p.Notify(model.Event{Type: model.EventGuessResult, Data: payload})
	opponent.Notify(model.Event{Type: model.EventOpponentGuess, Data: payload})

	if result.Bulls == scoring.CodeLength {
		s.terminate(map[model.PlayerName]model.GameOverReason{
			p.Name:        model.ReasonWin,
			opponent.Name: model.ReasonLose,
		})
		return nil
	}

	p.HasTurn = false
	opponent.HasTurn = true
	s.turn = opponent.Name
	s.scheduleTurn()

	return nil
}

// Disconnect pauses the session for a participant whose connection
// dropped, starting their disconnect grace timer. The turn timer keeps
// running: a turn-holder who drops can still forfeit on time.
func (s *Session) Disconnect(p *model.Player) {
	if s.state == model.MatchTerminated {
		return
	}

	gen := p.GraceGen.Bump()
	p.GraceTimer.Stop()
	p.GraceTimer = s.sched.Schedule(s.cfg.DisconnectGrace, func() { s.onGraceExpired(p, gen) })
	p.GraceDeadline = s.sched.Now().Add(s.cfg.DisconnectGrace)

	s.logger.Info("participant disconnected",
		slog.String("name", string(p.Name)),
		slog.Time("grace_deadline", p.GraceDeadline),
	)
}

// Reconnect resumes a participant who came back inside the grace window.
// Both sides receive a full state resync so the reconnecting client can
// rebuild its view without replaying the event history.
func (s *Session) Reconnect(p *model.Player) {
	if s.state == model.MatchTerminated {
		return
	}

	p.GraceGen.Bump()
	p.GraceTimer.Stop()
	p.GraceTimer = nil
	p.GraceDeadline = time.Time{}

	for _, participant := range s.players {
		participant.Notify(model.Event{
			Type: model.EventSyncState,
			Data: s.syncPayload(participant),
		})
	}

	s.logger.Info("participant reconnected", slog.String("name", string(p.Name)))
}

// syncPayload builds the full-state resync from one participant's
// perspective
func (s *Session) syncPayload(p *model.Player) model.SyncStatePayload {
	opponent := s.opponentOf(p)

	payload := model.SyncStatePayload{
		MatchID:        s.id,
		State:          s.state,
		Opponent:       opponent.Name,
		YouLocked:      p.Secret != "",
		OpponentLocked: opponent.Secret != "",
		IsYourTurn:     p.HasTurn,
		History:        append([]model.GuessRecord(nil), s.history...),
	}

	if opponent.Presence == model.PresenceGrace && !opponent.GraceDeadline.IsZero() {
		remaining := opponent.GraceDeadline.Sub(s.sched.Now())
		if remaining > 0 {
			payload.OpponentGraceSeconds = int(remaining / time.Second)
		}
	}

	return payload
}

// onStartupExpired fires when the startup grace timer elapses with at
// least one secret missing
func (s *Session) onStartupExpired(gen uint64) {
	if s.state != model.MatchAwaitingSecrets || !s.startGen.Matches(gen) {
		return
	}

	s.logger.Info("match canceled before start")

	for _, p := range s.players {
		p.Notify(model.Event{Type: model.EventGameCanceled})
	}
	s.terminate(map[model.PlayerName]model.GameOverReason{
		s.players[0].Name: model.ReasonGameCanceled,
		s.players[1].Name: model.ReasonGameCanceled,
	})
}

// onTurnExpired fires when the turn timer elapses while its owner still
// holds the turn
func (s *Session) onTurnExpired(gen uint64) {
	if s.state != model.MatchActive || !s.turnGen.Matches(gen) {
		return
	}

	holder := s.players[0]
	if !holder.HasTurn {
		holder = s.players[1]
	}
	opponent := s.opponentOf(holder)

	s.logger.Info("turn timer expired", slog.String("holder", string(holder.Name)))

	s.terminate(map[model.PlayerName]model.GameOverReason{
		holder.Name:   model.ReasonForfeitLose,
		opponent.Name: model.ReasonForfeitWin,
	})
}

// onGraceExpired fires when a disconnected participant's grace window
// elapses without reclamation
func (s *Session) onGraceExpired(p *model.Player, gen uint64) {
	if s.state == model.MatchTerminated || !p.GraceGen.Matches(gen) {
		return
	}

	opponent := s.opponentOf(p)

	s.logger.Info("disconnect grace expired",
		slog.String("name", string(p.Name)),
		slog.Bool("opponent_connected", opponent.Connected()),
	)

	if !opponent.Connected() {
		// Both sides gone: tear down without declaring a winner
		s.terminate(map[model.PlayerName]model.GameOverReason{
			p.Name:        model.ReasonOpponentDisconnected,
			opponent.Name: model.ReasonOpponentDisconnected,
		})
		return
	}

	s.terminate(map[model.PlayerName]model.GameOverReason{
		p.Name:        model.ReasonLose,
		opponent.Name: model.ReasonOpponentDisconnected,
	})
}

// terminate moves the session to its final state: emits gameOver to each
// side, cancels every outstanding timer owned by the session or its
// players, resets both player records and hands off to the coordinator.
// Safe to call at most once; subsequent events are rejected by state
// checks.
func (s *Session) terminate(reasons map[model.PlayerName]model.GameOverReason) {
	if s.state == model.MatchTerminated {
		return
	}
	s.state = model.MatchTerminated
	s.reasons = reasons

	s.startGen.Bump()
	s.turnGen.Bump()
	s.startTimer.Stop()
	s.turnTimer.Stop()
	s.startTimer = nil
	s.turnTimer = nil

	for _, p := range s.players {
		p.GraceGen.Bump()
		p.GraceTimer.Stop()
		p.GraceTimer = nil
		p.GraceDeadline = time.Time{}

		p.Notify(model.Event{Type: model.EventGameOver, Data: model.GameOverPayload{
			Reason: reasons[p.Name],
		}})

		p.MatchID = ""
		p.Secret = ""
		p.HasTurn = false
	}

	s.logger.Info("match terminated",
		slog.String("reason_a", string(reasons[s.players[0].Name])),
		slog.String("reason_b", string(reasons[s.players[1].Name])),
	)

	if s.onTerminated != nil {
		s.onTerminated(s)
	}
}
