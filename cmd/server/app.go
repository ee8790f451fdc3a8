package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/hearth-api/internal/config"
	"github.com/phrazzld/hearth-api/internal/events"
	"github.com/phrazzld/hearth-api/internal/platform/postgres"
	"github.com/phrazzld/hearth-api/internal/service"
	"github.com/phrazzld/hearth-api/internal/service/auth"
	"github.com/phrazzld/hearth-api/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	letterStore    store.LetterStore
	memoryStore    store.MemoryStore
	viewStore      store.ParallelViewStore
	resonanceStore store.ResonanceStore
	directory      store.UserDirectory
	families       store.FamilyDirectory

	// Service interfaces
	jwtService       auth.JWTService
	letterService    service.LetterService
	memoryService    service.MemoryService
	viewService      service.ParallelViewService
	resonanceService service.ResonanceService

	// Event system
	emitter events.Emitter
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
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
	logger.Info("JWT authentication service initialized")

	// Initialize stores
	app.letterStore = postgres.NewPostgresLetterStore(db, logger)
	app.memoryStore = postgres.NewPostgresMemoryStore(db, logger)
	app.viewStore = postgres.NewPostgresParallelViewStore(db, logger)
	app.resonanceStore = postgres.NewPostgresResonanceStore(db, logger)

	directoryStore := postgres.NewPostgresDirectoryStore(db, logger)
	app.directory = directoryStore
	app.families = directoryStore

	// Initialize notification fanout; the log handler stands in for
	// the admin dashboard delivery channel.
	emitter := events.NewFanoutEmitter(logger)
	emitter.RegisterHandler(events.NewLogHandler(logger))
	app.emitter = emitter

	// Initialize letter service
	app.letterService, err = service.NewLetterService(
		app.letterStore,
		app.directory,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create letter service: %w", err)
	}

	// Initialize memory service
	app.memoryService, err = service.NewMemoryService(
		db,
		app.memoryStore,
		app.viewStore,
		app.resonanceStore,
		app.directory,
		app.families,
		app.emitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory service: %w", err)
	}

	// Initialize parallel view service
	app.viewService, err = service.NewParallelViewService(
		app.memoryStore,
		app.viewStore,
		app.directory,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parallel view service: %w", err)
	}

	// Initialize resonance service
	app.resonanceService, err = service.NewResonanceService(
		db,
		app.resonanceStore,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resonance service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
