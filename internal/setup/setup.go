package setup

import (
	"context"
	"log"

	"github.com/pathofhideout/vouchbot/internal/database"
	"github.com/pathofhideout/vouchbot/internal/events"
	"github.com/pathofhideout/vouchbot/internal/notifier"
	"github.com/pathofhideout/vouchbot/internal/setup/config"
	"go.uber.org/zap"
)

// App bundles all core dependencies needed by the bot process.
type App struct {
	Config   *config.Config  // Application configuration
	Logger   *zap.Logger     // Main application logger
	DBLogger *zap.Logger     // Database-specific logger
	DB       database.Client // Database connection pool
	Bus      *events.Bus     // Domain event bus
}

// InitializeApp bootstraps all application dependencies in the correct
// order: configuration, logging, database, event subscribers.
func InitializeApp(ctx context.Context) (*App, error) {
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, dbLogger, err := NewLoggers(&cfg.Debug)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration", zap.String("dir", configDir))

	db, err := database.NewConnection(ctx, &cfg.PostgreSQL, dbLogger.Named("database"), cfg.PostgreSQL.AutoMigrate)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(logger)

	// Outbound webhook integration is optional; when configured it follows
	// the ledger through the event bus
	if cfg.Webhook.Enabled() {
		notifier.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Token, logger).Register(bus)
		logger.Info("Outbound vouch webhook enabled")
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		DBLogger: dbLogger,
		DB:       db,
		Bus:      bus,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse
// initialization order. Errors are logged, not propagated, so every
// component gets a cleanup attempt.
func (a *App) Cleanup() {
	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := a.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	if err := a.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}
}
