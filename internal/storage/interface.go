package storage

import (
	"context"

	"github.com/bancbannas/bulls-and-cows-server/internal/model"
)

// ChatLog defines the interface for lobby chat persistence.
// Messages are ordered oldest-first wherever they are returned.
type ChatLog interface {
	// Append stores a message, evicting the oldest entries beyond the
	// implementation's retention limit
	Append(ctx context.Context, msg model.ChatMessage) error

	// Recent returns up to limit of the most recent messages, oldest first.
	// limit <= 0 returns everything retained.
	Recent(ctx context.Context, limit int) ([]model.ChatMessage, error)

	// Close releases any underlying resources
	Close() error
}
