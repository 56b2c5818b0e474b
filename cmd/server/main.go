// Package main implements the entry point for the taskward API server,
// which tracks tasks through their lifecycle, archives completed work on a
// schedule and prints task tickets on demand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/phrazzld/taskward-api/internal/config"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command instead of serving: up, down or status")
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		log.Fatalf("taskward-api: %v", err)
	}
}

// run loads configuration, applies migrations when requested, and otherwise
// assembles and starts the server.
func run(migrateCmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"printer_backend", cfg.Printer.Backend)

	if migrateCmd != "" {
		return runMigrations(cfg, logger, migrateCmd)
	}

	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, logger, db)
	if err != nil {
		// Close what we opened before bailing out.
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database connection", "error", closeErr)
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
