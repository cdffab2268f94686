package model

// MatchID uniquely identifies a match session
type MatchID string

// MatchState represents the current phase of a match session
type MatchState string

const (
	// MatchAwaitingSecrets is the initial state: both players must lock a
	// secret before play begins
	MatchAwaitingSecrets MatchState = "awaiting_secrets"
	// MatchActive means both secrets are locked and turns alternate
	MatchActive MatchState = "active"
	// MatchTerminated is final; no further events affect the session
	MatchTerminated MatchState = "terminated"
)

// GameOverReason is the per-player outcome delivered with gameOver
type GameOverReason string

const (
	ReasonWin                  GameOverReason = "win"
	ReasonLose                 GameOverReason = "lose"
	ReasonForfeitWin           GameOverReason = "forfeit_win"
	ReasonForfeitLose          GameOverReason = "forfeit_lose"
	ReasonOpponentDisconnected GameOverReason = "opponent_disconnected"
	ReasonGameCanceled         GameOverReason = "game_canceled"
)

// IsWin reports whether the reason counts as a victory for leaderboard
// purposes
func (r GameOverReason) IsWin() bool {
	return r == ReasonWin || r == ReasonForfeitWin
}

// GuessResult is the feedback computed for one guess.
// Bulls are position matches; cows are symbol matches at other positions,
// counted with multiset semantics.
type GuessResult struct {
	Bulls int `json:"bulls"`
	Cows  int `json:"cows"`
}

// GuessRecord is one entry of a session's guess history, kept so a
// reconnecting client can rebuild its view without replaying live events
type GuessRecord struct {
	Name  PlayerName `json:"name"`
	Guess string     `json:"guess"`
	Bulls int        `json:"bulls"`
	Cows  int        `json:"cows"`
}
