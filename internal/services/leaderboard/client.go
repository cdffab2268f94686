// Package leaderboard reports per-player results to an external leaderboard
// service. Reporting is fire-and-forget: a failure is logged and never
// affects match outcomes.
package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bancbannas/bulls-and-cows-server/internal/model"
)

// Record is the per-player increment POSTed after a decided match. Matches
// that end without a winner (cancellation, mutual disconnect) produce no
// records.
type Record struct {
	Name  model.PlayerName `json:"name"`
	Games int              `json:"games"`
	Wins  int              `json:"wins"`
}

// Client posts records to a leaderboard endpoint. A nil Client or an empty
// URL disables reporting.
type Client struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a leaderboard client. Returns nil when url is empty,
// which callers treat as reporting disabled.
func NewClient(url string, logger *slog.Logger) *Client {
	if url == "" {
		return nil
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With(slog.String("component", "leaderboard")),
	}
}

// Submit posts one record. Errors are returned for logging but carry no
// game-state consequence.
func (c *Client) Submit(ctx context.Context, record Record) error {
	if c == nil {
		return nil
	}

	body, err := json.Marshal(record)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("leaderboard returned status %d", resp.StatusCode)
	}

	c.logger.Debug("record submitted",
		slog.String("name", string(record.Name)),
		slog.Int("wins", record.Wins),
	)
	return nil
}

// SubmitMatchAsync reports a decided match off the caller's goroutine: one
// game played for each side, one win for the winner. Failures are logged.
func (c *Client) SubmitMatchAsync(winner, loser model.PlayerName) {
	if c == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		records := []Record{
			{Name: winner, Games: 1, Wins: 1},
			{Name: loser, Games: 1, Wins: 0},
		}
		for _, record := range records {
			if err := c.Submit(ctx, record); err != nil {
				c.logger.Warn("failed to submit record",
					slog.String("name", string(record.Name)),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
}
