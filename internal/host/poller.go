// internal/host/poller.go
package host

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// Publisher receives freshly captured screen states.
type Publisher interface {
	Publish(ctx context.Context, state schemas.ScreenState) *screen.Snapshot
}

// Poller captures the screen on a fixed interval and publishes a new snapshot
// whenever the serialized content changes. It stands in for UI change
// notifications on hosts that cannot push them.
type Poller struct {
	logger    *zap.Logger
	host      schemas.ActionHost
	publisher Publisher
	interval  time.Duration

	last string
}

// NewPoller creates a Poller. A non-positive interval defaults to one second.
func NewPoller(logger *zap.Logger, host schemas.ActionHost, publisher Publisher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{
		logger:    logger.Named("screen_poller"),
		host:      host,
		publisher: publisher,
		interval:  interval,
	}
}

// Run polls until ctx is cancelled. Capture errors are logged and the loop
// continues. It returns nil on cancellation.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Screen poller started.", zap.Duration("interval", p.interval))
	defer p.logger.Info("Screen poller stopped.")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("Screen capture failed.", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce captures the screen and publishes it when it differs from the last
// published capture. It reports whether a snapshot was published.
func (p *Poller) PollOnce(ctx context.Context) (bool, error) {
	state, err := p.host.CurrentSnapshot(ctx)
	if err != nil {
		return false, err
	}
	if state == nil {
		return false, errors.New("host returned no screen state")
	}

	digest := screen.Serialize(*state)
	if digest == p.last {
		return false, nil
	}
	p.last = digest

	snap := p.publisher.Publish(ctx, *state)
	p.logger.Debug("Published screen snapshot.",
		zap.String("package", state.PackageName),
		zap.Int("elements", snap.Len()),
	)
	return true, nil
}
