// Command simulate plays random games through the bot in-process and
// checks the resulting league table.
package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/catanbot/internal/simulate"
	"github.com/okian/catanbot/pkg/logger"
)

// Default configuration constants.
const (
	defaultGames       = 200
	defaultPlayers     = 12
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultWait        = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &simulate.Config{}
	var logFormat string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play random Catan games through the bot and verify the ladder",
		Example: `  simulate --games 500 --workers 16
  simulate --storage sqlite --sqlite-path /tmp/sim.db --seed 42`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat)); err != nil {
				return err
			}
			level := "info"
			if cfg.Verbose {
				level = "debug"
			}
			_ = logger.SetLevelString(level)

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTestTimeout)
			defer cancel()
			_, err := simulate.Run(ctx, cfg)
			return err
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.Games, "games", defaultGames, "Number of games to play")
	f.IntVar(&cfg.Players, "players", defaultPlayers, "Size of the player pool")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of games played concurrently")
	f.Uint64Var(&cfg.Seed, "seed", 0, "Random seed; 0 picks one")
	f.StringVar(&cfg.Storage, "storage", "memory", "Result storage: memory or sqlite")
	f.StringVar(&cfg.SQLitePath, "sqlite-path", "", "SQLite database file for sqlite storage")
	f.DurationVar(&cfg.Wait, "wait", defaultWait, "How long recorded games may take to persist")
	f.BoolVar(&cfg.Verbose, "verbose", false, "Log every game")
	f.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	return cmd
}
