package main

import (
	"fmt"
	"os"

	"github.com/sysmanager-dev/sysmanager/internal/config"
	"github.com/sysmanager-dev/sysmanager/internal/logger"
	"github.com/sysmanager-dev/sysmanager/internal/sandbox"
)

var version = "dev" // set with -ldflags at build time

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	srv, err := sandbox.New(sandbox.Options{
		DatabaseURL: cfg.Sandbox.DatabaseURL,
		JWTSecret:   cfg.Sandbox.JWTSecret,

		CleanupSchedule: cfg.Sandbox.CleanupSchedule,
	}, *log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sandbox")
	}
	defer srv.Close()

	seeded, err := srv.Seed(sandbox.SeedOptions{APIKey: cfg.Sandbox.APIKey})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed sandbox")
	}

	// Generated keys are only shown once
	if seeded.APIKey != "" && cfg.Sandbox.APIKey == "" {
		fmt.Printf("Super user API key: %s\n", seeded.APIKey)
	}

	log.Info().
		Str("version", version).
		Str("address", cfg.Sandbox.ListenAddress).
		Str("organization", seeded.Organization.Slug).
		Msg("Starting System Manager sandbox...")

	if err := srv.Start(cfg.Sandbox.ListenAddress); err != nil {
		log.Fatal().Err(err).Msg("Sandbox failed to start")
	}
}
