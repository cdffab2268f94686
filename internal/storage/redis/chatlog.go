package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bancbannas/bulls-and-cows-server/internal/model"
	"github.com/bancbannas/bulls-and-cows-server/internal/storage"
)

// Key prefix for all server data
const keyPrefix = "bullscows"

// chatLogKey returns the Redis key for the chat log list.
// Messages are LPUSHed, so index 0 is the newest message.
func chatLogKey() string {
	return keyPrefix + ":chat"
}

// ChatLog is a Redis-backed chat log, bounded via LTRIM on every append
type ChatLog struct {
	client *redis.Client
	cfg    Config
}

// NewChatLog creates a Redis chat log, verifying the connection
func NewChatLog(cfg Config) (*ChatLog, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &ChatLog{client: client, cfg: cfg}, nil
}

// NewChatLogWithClient creates a Redis chat log with an existing client
// (for testing)
func NewChatLogWithClient(client *redis.Client, cfg Config) *ChatLog {
	return &ChatLog{client: client, cfg: cfg}
}

// Ensure ChatLog implements the interface
var _ storage.ChatLog = (*ChatLog)(nil)

func (c *ChatLog) Append(ctx context.Context, msg model.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := chatLogKey()
	if err := c.client.LPush(ctx, key, data).Err(); err != nil {
		return err
	}
	return c.client.LTrim(ctx, key, 0, int64(c.cfg.ChatHistory)-1).Err()
}

func (c *ChatLog) Recent(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > c.cfg.ChatHistory {
		limit = c.cfg.ChatHistory
	}

	raw, err := c.client.LRange(ctx, chatLogKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	// LRange returns newest first; reverse into chronological order
	msgs := make([]model.ChatMessage, len(raw))
	for i, item := range raw {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, err
		}
		msgs[len(raw)-1-i] = msg
	}
	return msgs, nil
}

// Close closes the Redis connection
func (c *ChatLog) Close() error {
	return c.client.Close()
}
