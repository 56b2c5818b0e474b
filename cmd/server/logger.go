package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskward-api/internal/config"
	"github.com/phrazzld/taskward-api/internal/platform/logger"
)

// setupAppLogger configures the process logger from the server config.
func setupAppLogger(cfg *config.Config) (*slog.Logger, error) {
	l, err := logger.Setup(logger.LoggerConfig{
		Level: cfg.Server.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return l, nil
}
