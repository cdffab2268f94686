// Package chat validates and persists lobby chat messages. Fan-out to
// connected clients is the coordinator's job; this service owns the log.
package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bancbannas/bulls-and-cows-server/internal/model"
	"github.com/bancbannas/bulls-and-cows-server/internal/storage"
	"github.com/bancbannas/bulls-and-cows-server/internal/timer"
)

// MaxMessageLength bounds a single chat message in runes
const MaxMessageLength = 500

// Service manages the lobby chat log
type Service struct {
	log          storage.ChatLog
	clock        timer.Clock
	logger       *slog.Logger
	historyLimit int
}

// NewService creates a chat service. historyLimit bounds how many messages
// History returns; a non-positive value falls back to 100.
func NewService(log storage.ChatLog, clock timer.Clock, logger *slog.Logger, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &Service{
		log:          log,
		clock:        clock,
		logger:       logger.With(slog.String("component", "chat")),
		historyLimit: historyLimit,
	}
}

// Post validates and persists a message, returning the stored record
func (s *Service) Post(ctx context.Context, name model.PlayerName, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, model.ErrMalformedPayload
	}
	if len([]rune(text)) > MaxMessageLength {
		return model.ChatMessage{}, model.ErrMalformedPayload
	}

	msg := model.ChatMessage{
		Name:    name,
		Message: text,
		SentAt:  s.clock.Now(),
	}
	if err := s.log.Append(ctx, msg); err != nil {
		return model.ChatMessage{}, err
	}
	return msg, nil
}

// History returns the retained chat log, oldest first
func (s *Service) History(ctx context.Context) ([]model.ChatMessage, error) {
	return s.log.Recent(ctx, s.historyLimit)
}

// ServiceInterface defines the chat operations
type ServiceInterface interface {
	Post(ctx context.Context, name model.PlayerName, text string) (model.ChatMessage, error)
	History(ctx context.Context) ([]model.ChatMessage, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
