package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bancbannas/bulls-and-cows-server/internal/api"
	"github.com/bancbannas/bulls-and-cows-server/internal/factory"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/match"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/registry"
	redisstorage "github.com/bancbannas/bulls-and-cows-server/internal/storage/redis"
)

const (
	releaseVersion = "0.1.0"
)

func main() {
	log.SetFlags(0)
	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func run(ctx context.Context, cfg *Config) error {
	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:      logger,
		StorageType: cfg.storage,
		RegistryConfig: registry.Config{
			MaxPlayers: cfg.maxPlayers,
			Collision:  registry.CollisionPolicy(cfg.nameCollision),
		},
		MatchConfig: match.Config{
			StartupGrace:    cfg.startupGrace,
			TurnTimeout:     cfg.turnTimeout,
			DisconnectGrace: cfg.disconnectGrace,
		},
		ChatHistory:    cfg.chatHistory,
		LeaderboardURL: cfg.leaderboardURL,
	}

	if cfg.storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.redisURL
		redisCfg.ChatHistory = cfg.chatHistory
		factoryCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.ChatLog.Close(); err != nil {
			logger.Warn("failed to close chat log", slog.String("error", err.Error()))
		}
	}()

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.bind
	serverConfig.Port = cfg.port
	server := api.NewServer(app.Router, serverConfig, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			logger.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}
