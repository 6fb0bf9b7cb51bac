// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/host"
	"github.com/xkilldash9x/droidpilot/internal/host/adb"
	"github.com/xkilldash9x/droidpilot/internal/orchestrator"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

const trackerBufferSize = 8

// ComponentFactory builds the set of components needed to process commands.
// It exists so cmd can be tested without a device.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
}

// HostBuilder creates the device host.
type HostBuilder func(cfg config.HostConfig, logger *zap.Logger) schemas.ActionHost

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct {
	speaker schemas.Speaker
	newHost HostBuilder
}

// NewComponentFactory creates a factory for an adb-attached device. speaker
// may be nil.
func NewComponentFactory(speaker schemas.Speaker) ComponentFactory {
	return &concreteFactory{
		speaker: speaker,
		newHost: func(cfg config.HostConfig, logger *zap.Logger) schemas.ActionHost {
			return adb.New(cfg, logger)
		},
	}
}

// NewComponentFactoryWithHost is NewComponentFactory with a custom host.
func NewComponentFactoryWithHost(speaker schemas.Speaker, newHost HostBuilder) ComponentFactory {
	return &concreteFactory{speaker: speaker, newHost: newHost}
}

// Create wires the components. Nothing runs until Components.Start.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	components := &Components{logger: logger}

	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. Planner
	planner, err := InitializePlanner(cfg.Planner(), logger)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	logger.Debug("Planner client initialized.", zap.String("provider", string(cfg.Planner().Provider)))

	// 2. History
	history, closeHistory, err := InitializeHistory(ctx, cfg.History(), logger)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	components.History = history
	components.closeHistory = closeHistory

	// 3. Device host and screen tracking
	components.Host = f.newHost(cfg.Host(), logger)
	components.Tracker = screen.NewTracker(logger, trackerBufferSize)
	components.Poller = host.NewPoller(logger, components.Host, components.Tracker, cfg.Host().PollInterval)
	logger.Debug("Device host initialized.", zap.String("serial", cfg.Host().Serial))

	// 4. Orchestrator
	orch, err := orchestrator.New(orchestrator.Deps{
		Settings:  cfg,
		Snapshots: components.Tracker,
		Planner:   planner,
		Host:      components.Host,
		Speaker:   f.speaker,
		History:   history,
		Engine:    cfg.Engine(),
	}, logger)
	if err != nil {
		initializationErr = fmt.Errorf("failed to create orchestrator: %w", err)
		return nil, initializationErr
	}
	components.Orchestrator = orch

	logger.Info("All components initialized successfully.")
	return components, nil
}
