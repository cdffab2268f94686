package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bancbannas/bulls-and-cows-server/internal/services/registry"
)

type Config struct {
	bind            string
	port            int
	storage         string
	redisURL        string
	startupGrace    time.Duration
	turnTimeout     time.Duration
	disconnectGrace time.Duration
	maxPlayers      int
	nameCollision   string
	chatHistory     int
	leaderboardURL  string
	verbose         bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.storage != "memory" && c.storage != "redis" {
		return fmt.Errorf("invalid storage backend (must be memory or redis): %s", c.storage)
	}
	if c.storage == "redis" && c.redisURL == "" {
		return errors.New("--redis-url required when --storage=redis")
	}
	switch registry.CollisionPolicy(c.nameCollision) {
	case registry.PolicyReject, registry.PolicySuffix:
	default:
		return fmt.Errorf("invalid name-collision policy (must be reject or suffix): %s", c.nameCollision)
	}
	if c.startupGrace <= 0 || c.turnTimeout <= 0 || c.disconnectGrace <= 0 {
		return errors.New("timer durations must be positive")
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BULLSCOWS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "A turn-based code-breaking duel server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: BULLSCOWS_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: BULLSCOWS_PORT)")
	fs.StringVar(&cfg.storage, "storage", "memory", "chat log backend, memory or redis (env: BULLSCOWS_STORAGE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis connection url (env: BULLSCOWS_REDIS_URL)")
	fs.DurationVar(&cfg.startupGrace, "startup-grace", 45*time.Second, "time for both players to lock secrets (env: BULLSCOWS_STARTUP_GRACE)")
	fs.DurationVar(&cfg.turnTimeout, "turn-timeout", 60*time.Second, "time allowed per turn (env: BULLSCOWS_TURN_TIMEOUT)")
	fs.DurationVar(&cfg.disconnectGrace, "disconnect-grace", 30*time.Second, "time a dropped player may reconnect (env: BULLSCOWS_DISCONNECT_GRACE)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 100, "maximum registered players, 0 for unlimited (env: BULLSCOWS_MAX_PLAYERS)")
	fs.StringVar(&cfg.nameCollision, "name-collision", "reject", "duplicate name policy, reject or suffix (env: BULLSCOWS_NAME_COLLISION)")
	fs.IntVar(&cfg.chatHistory, "chat-history", 100, "chat messages retained and replayed (env: BULLSCOWS_CHAT_HISTORY)")
	fs.StringVar(&cfg.leaderboardURL, "leaderboard-url", "", "endpoint for match result reporting (env: BULLSCOWS_LEADERBOARD_URL)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "enable debug logging (env: BULLSCOWS_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("bulls-and-cows-server v{{.Version}}\n")

	return cmd
}
