package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/bancbannas/bulls-and-cows-server/internal/dependencies/mocks"
	"github.com/bancbannas/bulls-and-cows-server/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(Config{})
}

// NewTestAppWithConfig creates a test App with config overrides applied
func NewTestAppWithConfig(cfg Config) *TestApp {
	chatLog := memory.NewChatLog(cfg.ChatHistory)
	mockClock := mocks.NewMockClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	app := newWithDependencies(chatLog, mockClock, mockRandom, cfg, logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
