package setup

import (
	"fmt"

	"github.com/pathofhideout/vouchbot/internal/setup/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLoggers builds the main application logger and a separate database
// logger. The database logger stays at warn level unless debug logging is
// requested, since query tracing is noisy.
func NewLoggers(cfg *config.Debug) (*zap.Logger, *zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	dbLevel := zapcore.WarnLevel
	if level == zapcore.DebugLevel {
		dbLevel = zapcore.DebugLevel
	}

	dbCfg := zap.NewProductionConfig()
	dbCfg.Level = zap.NewAtomicLevelAt(dbLevel)

	dbLogger, err := dbCfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build database logger: %w", err)
	}

	return logger, dbLogger, nil
}
