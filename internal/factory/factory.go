package factory

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/bancbannas/bulls-and-cows-server/internal/api"
	"github.com/bancbannas/bulls-and-cows-server/internal/dependencies/random"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/chat"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/coordinator"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/leaderboard"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/match"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/registry"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/scoring"
	"github.com/bancbannas/bulls-and-cows-server/internal/storage"
	"github.com/bancbannas/bulls-and-cows-server/internal/storage/memory"
	redisstorage "github.com/bancbannas/bulls-and-cows-server/internal/storage/redis"
	"github.com/bancbannas/bulls-and-cows-server/internal/timer"
	"github.com/bancbannas/bulls-and-cows-server/internal/transport/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	ChatLog storage.ChatLog

	// External dependencies
	Clock  timer.Clock
	Random random.Random

	// Services
	ScoringService *scoring.Service
	Registry       *registry.Service
	ChatService    *chat.Service
	Leaderboard    *leaderboard.Client
	Coordinator    *coordinator.Coordinator

	// Transport
	WSHandler *ws.Handler
	Router    http.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the chat log backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// RegistryConfig holds lobby registration settings
	// If zero value, defaults to registry.DefaultConfig()
	RegistryConfig registry.Config
	// MatchConfig holds the session timer durations
	// If zero value, defaults to match.DefaultConfig()
	MatchConfig match.Config
	// WSConfig holds websocket transport settings
	// If zero value, defaults to ws.DefaultConfig()
	WSConfig ws.Config
	// ChatHistory bounds how many chat messages are retained and replayed
	ChatHistory int
	// LeaderboardURL enables result reporting when non-empty
	LeaderboardURL string
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var chatLog storage.ChatLog
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		chatLog = memory.NewChatLog(cfg.ChatHistory)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisLog, err := redisstorage.NewChatLog(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		chatLog = redisLog
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	clk := clockwork.NewRealClock()
	rnd := random.New()

	return newWithDependencies(chatLog, clk, rnd, cfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	chatLog storage.ChatLog,
	clk timer.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) *App {
	registryCfg := cfg.RegistryConfig
	if registryCfg.MaxPlayers == 0 && registryCfg.Collision == "" {
		registryCfg = registry.DefaultConfig()
	}

	matchCfg := cfg.MatchConfig
	if matchCfg.StartupGrace == 0 {
		matchCfg = match.DefaultConfig()
	}

	wsCfg := cfg.WSConfig
	if wsCfg.PingInterval == 0 {
		wsCfg = ws.DefaultConfig()
	}

	scoringService := scoring.New()
	reg := registry.New(registryCfg, clk, logger)
	chatService := chat.NewService(chatLog, clk, logger, cfg.ChatHistory)
	lb := leaderboard.NewClient(cfg.LeaderboardURL, logger)
	coord := coordinator.New(reg, chatService, lb, clk, scoringService, rnd, matchCfg, logger)
	wsHandler := ws.NewHandler(coord, wsCfg, logger)

	router := api.NewRouter(api.RouterConfig{
		Logger:    logger,
		WSHandler: wsHandler,
		Lobby:     coord,
	})

	return &App{
		ChatLog:        chatLog,
		Clock:          clk,
		Random:         rnd,
		ScoringService: scoringService,
		Registry:       reg,
		ChatService:    chatService,
		Leaderboard:    lb,
		Coordinator:    coord,
		WSHandler:      wsHandler,
		Router:         router,
	}
}
