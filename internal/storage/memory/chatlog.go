package memory

import (
	"context"
	"sync"

	"github.com/bancbannas/bulls-and-cows-server/internal/model"
	"github.com/bancbannas/bulls-and-cows-server/internal/storage"
)

// ChatLog is an in-memory chat log bounded to a fixed number of messages
type ChatLog struct {
	mu       sync.RWMutex
	capacity int
	messages []model.ChatMessage
}

// NewChatLog creates an in-memory chat log retaining at most capacity
// messages. A non-positive capacity falls back to 100.
func NewChatLog(capacity int) *ChatLog {
	if capacity <= 0 {
		capacity = 100
	}
	return &ChatLog{capacity: capacity}
}

// Ensure ChatLog implements the interface
var _ storage.ChatLog = (*ChatLog)(nil)

func (c *ChatLog) Append(ctx context.Context, msg model.ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, msg)
	if len(c.messages) > c.capacity {
		c.messages = c.messages[len(c.messages)-c.capacity:]
	}
	return nil
}

func (c *ChatLog) Recent(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs := c.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]model.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (c *ChatLog) Close() error {
	return nil
}
