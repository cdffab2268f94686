package model

// EventType identifies a wire event in either direction
type EventType string

// Inbound event types (client to server)
const (
	EventRegisterName    EventType = "registerName"
	EventChallengePlayer EventType = "challengePlayer"
	EventAcceptChallenge EventType = "acceptChallenge"
	EventLockSecret      EventType = "lockSecret"
	EventSubmitGuess     EventType = "submitGuess"
	EventChatMessage     EventType = "chatMessage"
)

// Outbound event types (server to client)
const (
	EventNameRegistered    EventType = "nameRegistered"
	EventNameTaken         EventType = "nameTaken"
	EventLobbyFull         EventType = "lobbyFull"
	EventUpdateLobby       EventType = "updateLobby"
	EventChallengeReceived EventType = "challengeReceived"
	EventRedirectToMatch   EventType = "redirectToMatch"
	EventOpponentLocked    EventType = "opponentLocked"
	EventGameCanceled      EventType = "gameCanceled"
	EventStartGame         EventType = "startGame"
	EventGuessResult       EventType = "guessResult"
	EventOpponentGuess     EventType = "opponentGuess"
	EventGameOver          EventType = "gameOver"
	EventForceDisconnect   EventType = "forceDisconnect"
	EventSyncState         EventType = "syncState"
	EventChatHistory       EventType = "chatHistory"
)

// Event is a single outbound message to a client
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// NameRegisteredPayload confirms a registration with the resolved name
// (which may carry a disambiguating suffix) and the device token to present
// on reconnect
type NameRegisteredPayload struct {
	Name        PlayerName `json:"name"`
	DeviceToken string     `json:"deviceToken"`
}

// UpdateLobbyPayload carries the lobby snapshot pushed after every
// state-affecting event
type UpdateLobbyPayload struct {
	Players []LobbyEntry `json:"players"`
}

// ChallengeReceivedPayload notifies a player they have been challenged
type ChallengeReceivedPayload struct {
	From PlayerName `json:"from"`
}

// RedirectToMatchPayload tells both participants a session now exists
type RedirectToMatchPayload struct {
	MatchID  MatchID    `json:"matchId"`
	Opponent PlayerName `json:"opponent"`
}

// StartGamePayload signals transition to active play.
// Exactly one participant receives IsYourTurn = true.
type StartGamePayload struct {
	IsYourTurn  bool `json:"isYourTurn"`
	TurnSeconds int  `json:"turnSeconds"`
}

// GuessResultPayload is delivered to the guesser; OpponentGuessPayload is
// the same shape delivered to the other side
type GuessResultPayload struct {
	Guess string `json:"guess"`
	Bulls int    `json:"bulls"`
	Cows  int    `json:"cows"`
}

// GameOverPayload carries the per-player termination reason
type GameOverPayload struct {
	Reason GameOverReason `json:"reason"`
}

// SyncStatePayload is a full state resync for a client that reconnected
// mid-session
type SyncStatePayload struct {
	MatchID              MatchID       `json:"matchId"`
	State                MatchState    `json:"state"`
	Opponent             PlayerName    `json:"opponent"`
	YouLocked            bool          `json:"youLocked"`
	OpponentLocked       bool          `json:"opponentLocked"`
	IsYourTurn           bool          `json:"isYourTurn"`
	History              []GuessRecord `json:"history"`
	OpponentGraceSeconds int           `json:"opponentGraceSeconds,omitempty"`
}

// ChatHistoryPayload carries the last N chat messages for a newly
// registered client
type ChatHistoryPayload struct {
	Messages []ChatMessage `json:"messages"`
}
