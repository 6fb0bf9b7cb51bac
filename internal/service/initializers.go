// File: internal/service/initializers.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/store"
)

// InitializeHistory opens the configured history store. Commands that only
// read or clear history use it without touching the device.
func InitializeHistory(ctx context.Context, cfg config.HistoryConfig, logger *zap.Logger) (schemas.HistoryStore, func(), error) {
	if cfg.Backend == config.HistoryBackendMemory {
		logger.Warn("Using in-memory command history; entries are lost on exit.")
	}
	logger.Debug("Opening command history.", zap.String("backend", cfg.Backend))

	history, closeFn, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize history store: %w", err)
	}
	return history, closeFn, nil
}

// InitializePlanner creates the planner client for the configured provider.
func InitializePlanner(cfg config.PlannerConfig, logger *zap.Logger) (schemas.PlannerClient, error) {
	planner, err := llmclient.NewClient(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize planner client.", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize planner client: %w", err)
	}
	return planner, nil
}
