// File: internal/service/components.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/host"
	"github.com/xkilldash9x/droidpilot/internal/orchestrator"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// Components holds every service a command session needs and owns their
// lifecycle.
type Components struct {
	Tracker      *screen.Tracker
	Host         schemas.ActionHost
	Poller       *host.Poller
	History      schemas.HistoryStore
	Orchestrator *orchestrator.Orchestrator

	logger       *zap.Logger
	closeHistory func()

	group  *errgroup.Group
	cancel context.CancelFunc
}

// Start runs the screen poller in the background until Shutdown or until
// ctx is cancelled.
func (c *Components) Start(ctx context.Context) {
	if c.group != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.group, ctx = errgroup.WithContext(ctx)
	c.group.Go(func() error {
		return c.Poller.Run(ctx)
	})
}

// WaitForScreen blocks until the first snapshot is published or timeout
// elapses. A non-positive timeout waits on ctx alone.
func (c *Components) WaitForScreen(ctx context.Context, timeout time.Duration) (*screen.Snapshot, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	snap, err := c.Tracker.WaitForFirst(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: device did not report a screen within %s", schemas.ErrNoSnapshot, timeout)
	}
	return snap, err
}

// Shutdown stops the poller and releases resources in reverse order of
// creation. Safe on partially initialized components.
func (c *Components) Shutdown() {
	logger := c.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("Beginning components shutdown sequence.")

	if c.cancel != nil {
		c.cancel()
		if err := c.group.Wait(); err != nil {
			logger.Warn("Background service exited with error.", zap.Error(err))
		}
		logger.Debug("Screen poller stopped.")
	}

	if c.Orchestrator != nil {
		c.Orchestrator.Shutdown()
	}
	if c.Tracker != nil {
		c.Tracker.Shutdown()
	}
	if c.closeHistory != nil {
		c.closeHistory()
		logger.Debug("History store closed.")
	}

	logger.Info("All components shut down.")
}
