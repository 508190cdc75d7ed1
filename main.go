// main.go
//
// Entry point for the Math Wordle server and its maintenance commands.
//   - serve (default): HTTP API with SQLite accounts/history, Badger score
//     records, and an in-memory or Redis round store.
//   - synth:           print a synthesized secret for a tier and target.
//   - modes:           list the loaded difficulty tiers.
//
// A .env file in the working directory is loaded first when present.

package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/mathle/internal/config"
	"github.com/robalobadob/mathle/internal/database"
	"github.com/robalobadob/mathle/internal/httpserver"
	"github.com/robalobadob/mathle/internal/modes"
	"github.com/robalobadob/mathle/internal/scores"
	"github.com/robalobadob/mathle/internal/store"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("mathle exited")
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mathle",
		Short: "Math Wordle: guess the hidden seven-tile equation",
		Long: `Math Wordle serves rounds where players guess a hidden equation of the
form NUM OP NUM OP NUM OP NUM that evaluates to a shown target.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
		},
		RunE: runServe,
	}
	root.PersistentFlags().String("modes-file", os.Getenv("MODES_FILE"), "YAML file overriding the embedded tiers")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	})
	root.AddCommand(newSynthCmd(), newModesCmd())
	return root
}

// setupLogging applies LOG_LEVEL and switches to the console writer for
// LOG_FORMAT=console.
func setupLogging(level, format string) {
	if level == "" {
		level = "info"
	}
	if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if strings.EqualFold(format, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if f, _ := cmd.Flags().GetString("modes-file"); f != "" {
		cfg.ModesFile = f
	}
	setupLogging(cfg.LogLevel, cfg.LogFormat)

	db, err := database.OpenMigrated(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, err := modes.Init(cfg.ModesFile)
	if err != nil {
		return err
	}
	if _, err := reg.Get(cfg.DailyMode); err != nil {
		return err
	}

	tracker, err := scores.Open(scores.Config{Path: cfg.ScoresDir, InMemory: cfg.ScoresInMemory})
	if err != nil {
		return err
	}
	defer tracker.Close()

	st := store.NewMemoryStore(store.DefaultRoundTTL)
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		client, err := store.OpenRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			return err
		}
		defer client.Close()
		st = store.NewRedisStore(client, store.DefaultRoundTTL)
		log.Info().Msg("using redis round store")
	}

	srv := httpserver.New(httpserver.Deps{
		Config: cfg,
		Store:  st,
		DB:     db,
		Modes:  reg,
		Scores: tracker,
	})
	log.Info().Str("addr", cfg.Addr()).Strs("modes", reg.Names()).Msg("starting mathle server")
	return srv.Start(cfg.Addr())
}
