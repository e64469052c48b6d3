package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/emontero/opphunter/internal/app"
	"github.com/emontero/opphunter/internal/config"
	"github.com/emontero/opphunter/internal/storage"
)

func main() {
	mode := flag.String("mode", "all", "Service mode (worker, feedback, seed, all)")
	seedFile := flag.String("seed-file", "", "Labeled examples JSON file (seed mode)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load hunting profile")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := storage.New(ctx, cfg.PostgresDSN, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application, err := app.New(ctx, cfg, profile, database, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build application")
	}

	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode, *seedFile); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")

			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func runMode(ctx context.Context, application *app.App, mode, seedFile string) error {
	switch mode {
	case "worker":
		return application.RunWorker(ctx)
	case "feedback":
		return application.RunFeedback(ctx)
	case "seed":
		if seedFile == "" {
			return errors.New("seed mode requires -seed-file")
		}

		return application.RunSeed(ctx, seedFile)
	case "all":
		return application.RunAll(ctx)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
