package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"

	"github.com/trunov/mediashrink/internal/app"
	"github.com/trunov/mediashrink/internal/config"
	"github.com/trunov/mediashrink/internal/logging"
)

const defaultConfigFile = "config.json"

var version = "dev"

func initSentry(cfg *config.SentryConfig, version string) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     version,
	})
}

func configPath() string {
	file := defaultConfigFile
	if env := os.Getenv("CONFIG_FILE"); env != "" {
		file = env
	}
	flag.StringVar(&file, "config", file, "path to the JSON config file")
	flag.Parse()
	return file
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.NewConfig()
	if err := cfg.Read(configPath()); err != nil {
		log.Fatal().Err(err).Msg("failed to read config")
	}
	if err := cfg.ReadEnv(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to read env")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	if err := initSentry(&cfg.Sentry, version); err != nil {
		log.Fatal().Err(err).Msg("sentry.Init")
	}
	// Flush buffered events before the program terminates.
	defer sentry.Flush(2 * time.Second)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to build app")
		return
	}

	if err := a.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
