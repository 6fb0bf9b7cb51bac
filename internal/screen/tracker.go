package screen

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/bus"
)

// Tracker holds the most recently published snapshot and broadcasts every new
// one. The host side is the single producer.
type Tracker struct {
	logger *zap.Logger
	latest atomic.Pointer[Snapshot]
	bus    *bus.Bus[*Snapshot]
}

// NewTracker creates a tracker whose subscribers buffer up to bufferSize
// snapshots (at least one).
func NewTracker(logger *zap.Logger, bufferSize int) *Tracker {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Tracker{
		logger: logger.Named("screen_tracker"),
		bus:    bus.New[*Snapshot](logger, "snapshot_bus", bufferSize),
	}
}

// Publish indexes state, swaps it in as the latest snapshot and broadcasts it.
// Subscribers with full buffers miss the broadcast but can always read Latest.
func (t *Tracker) Publish(_ context.Context, state schemas.ScreenState) *Snapshot {
	snap := NewSnapshot(state)
	t.latest.Store(snap)
	dropped := t.bus.Offer(snap)

	t.logger.Debug("Snapshot published.",
		zap.String("package", state.PackageName),
		zap.Int("elements", snap.Len()),
		zap.Int("dropped", dropped),
	)
	return snap
}

// Latest returns the current snapshot, or nil before the first publish.
func (t *Tracker) Latest() *Snapshot {
	return t.latest.Load()
}

// Subscribe attaches a consumer to the snapshot broadcast.
func (t *Tracker) Subscribe() (<-chan *Snapshot, func()) {
	return t.bus.Subscribe()
}

// WaitForFirst blocks until a snapshot is available or ctx ends.
func (t *Tracker) WaitForFirst(ctx context.Context) (*Snapshot, error) {
	if snap := t.Latest(); snap != nil {
		return snap, nil
	}
	ch, unsubscribe := t.Subscribe()
	defer unsubscribe()

	// A publish may have landed between Latest and Subscribe.
	if snap := t.Latest(); snap != nil {
		return snap, nil
	}
	select {
	case snap, ok := <-ch:
		if !ok {
			return nil, schemas.ErrNoSnapshot
		}
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown closes all subscriber channels.
func (t *Tracker) Shutdown() {
	t.bus.Shutdown()
}
