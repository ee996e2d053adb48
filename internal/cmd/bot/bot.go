// Package bot parses bot command flags and starts the dispatcher runtime.
package bot

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	entrypoint "github.com/lpoto/discord-utility-bot/internal/platform/cmd"

	"github.com/lpoto/discord-utility-bot/internal/commands/games"
	"github.com/lpoto/discord-utility-bot/internal/commands/poll"
	"github.com/lpoto/discord-utility-bot/internal/commands/purge"
	"github.com/lpoto/discord-utility-bot/internal/commands/roles"
	"github.com/lpoto/discord-utility-bot/internal/commands/rolesconfig"
	"github.com/lpoto/discord-utility-bot/internal/dispatch"
	"github.com/lpoto/discord-utility-bot/internal/games/connectfour"
	"github.com/lpoto/discord-utility-bot/internal/games/hangman"
	"github.com/lpoto/discord-utility-bot/internal/games/rps"
	"github.com/lpoto/discord-utility-bot/internal/metrics"
	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/storage/sqlite"
	"github.com/lpoto/discord-utility-bot/internal/sweeper"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

// Config holds bot command configuration.
type Config struct {
	DatabasePath  string `env:"UTILITY_BOT_DB_PATH" envDefault:"utility-bot.db"`
	MetricsAddr   string `env:"UTILITY_BOT_METRICS_ADDR"`
	SweepSchedule string `env:"UTILITY_BOT_SWEEP_SCHEDULE" envDefault:"0 * * * *"`
	Version       string `env:"UTILITY_BOT_VERSION" envDefault:"dev"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "Path to the SQLite database file")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus listen address (empty disables)")
	fs.StringVar(&cfg.SweepSchedule, "sweep", cfg.SweepSchedule, "Cron schedule for the expired-record sweep (empty disables)")
	fs.StringVar(&cfg.Version, "version", cfg.Version, "Version stamped into screen footers")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run wires the storage, registry, sweeper and metrics around gw and consumes
// its event stream until ctx is canceled or the stream closes.
func Run(ctx context.Context, cfg Config, gw transport.Gateway) error {
	if gw == nil {
		return errors.New("transport gateway is required")
	}

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: err=%v", err)
		}
	}()

	met, err := metrics.New()
	if err != nil {
		return fmt.Errorf("build metrics: %w", err)
	}

	connectFour := connectfour.New(gw, store, cfg.Version)
	hangmanGame := hangman.New(gw, store, cfg.Version)
	rpsGame := rps.New(gw, store, cfg.Version)
	hub := games.New(gw, store, cfg.Version, []games.Entry{
		{Name: connectfour.ScreenType, Description: connectFour.Description(), Starter: connectFour},
		{Name: hangman.ScreenType, Description: hangmanGame.Description(), Starter: hangmanGame},
		{Name: rps.ScreenType, Description: rpsGame.Description(), Starter: rpsGame},
	})
	gated := []string{
		poll.ScreenType,
		roles.ScreenType,
		games.ScreenType,
		connectfour.ScreenType,
		hangman.ScreenType,
		rps.ScreenType,
	}

	reg, err := registry.NewBuilder().
		Add(poll.New(gw, store, cfg.Version)).
		Add(rolesconfig.New(gw, store, cfg.Version, gated)).
		Add(roles.New(gw, store, cfg.Version)).
		Add(hub).
		AddGame(connectFour).
		AddGame(hangmanGame).
		AddGame(rpsGame).
		Build()
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	sweep, err := sweeper.New(gw, store, cfg.SweepSchedule)
	if err != nil {
		return fmt.Errorf("build sweeper: %w", err)
	}
	go func() {
		if err := sweep.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("sweeper: err=%v", err)
		}
	}()
	go func() {
		if err := met.Serve(ctx, cfg.MetricsAddr); err != nil {
			log.Printf("metrics: err=%v", err)
		}
	}()

	d := dispatch.New(dispatch.Options{
		Gateway:  gw,
		Store:    store,
		Registry: reg,
		Metrics:  met,
		Purger:   purge.New(gw),
		Version:  cfg.Version,
	})
	log.Printf("bot running version=%s db=%s", cfg.Version, cfg.DatabasePath)
	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
