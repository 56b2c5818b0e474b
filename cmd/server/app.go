package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/taskward-api/internal/config"
	"github.com/phrazzld/taskward-api/internal/events"
	"github.com/phrazzld/taskward-api/internal/platform/postgres"
	"github.com/phrazzld/taskward-api/internal/printing"
	"github.com/phrazzld/taskward-api/internal/service"
	"github.com/phrazzld/taskward-api/internal/service/auth"
	"github.com/phrazzld/taskward-api/internal/store"
	"github.com/phrazzld/taskward-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	taskStore store.TaskStore
	userStore store.UserStore

	// Service interfaces
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	printer          printing.Printer
	taskService      service.TaskService

	// Event system
	eventEmitter events.EventEmitter

	// Background scheduling
	scheduler *task.Scheduler
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger and
// database connection that must be established before assembly.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize JWT service
	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Initialize password verifier
	app.passwordVerifier = auth.NewBcryptVerifier()

	// Initialize stores
	bcryptCost := cfg.Auth.BcryptCost
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	app.userStore = postgres.NewPostgresUserStore(db, bcryptCost)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	// Initialize the printer backend selected by configuration
	app.printer, err = printing.NewPrinter(cfg.Printer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize printer backend: %w", err)
	}
	logger.Info("printer backend initialized", "backend", app.printer.Name())

	// Initialize event emitter
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	// Initialize the maintenance scheduler
	app.scheduler = task.NewScheduler(
		app.taskStore,
		app.eventEmitter,
		task.SystemClock{},
		task.SchedulerConfig{
			Interval:            cfg.Task.SchedulerInterval,
			ArchivalRetention:   cfg.Task.ArchivalRetention,
			DueSoonWindow:       cfg.Task.DueSoonWindow,
			ShutdownGracePeriod: cfg.Task.ShutdownGracePeriod,
		},
		logger,
	)

	// Wire the due-task handler so due events print tickets and
	// auto-start waiting tasks.
	dueHandler := task.NewDueTaskHandler(app.taskStore, app.printer, task.SystemClock{}, logger)
	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(dueHandler)
	} else {
		return nil, fmt.Errorf("unexpected event emitter type, cannot register due-task handler")
	}

	// Initialize task service
	app.taskService, err = service.NewTaskService(
		app.taskStore,
		app.printer,
		app.scheduler,
		task.SystemClock{},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	// Start the background scheduler
	app.scheduler.Start()
	logger.Info("maintenance scheduler started",
		"interval", cfg.Task.SchedulerInterval.String(),
		"archival_retention", cfg.Task.ArchivalRetention.String())

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop the scheduler first so no tick runs against a closed pool
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
