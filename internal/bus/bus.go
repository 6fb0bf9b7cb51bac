// internal/bus/bus.go
package bus

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// subscriber pairs a delivery channel with a signal that its reader is gone.
type subscriber[T any] struct {
	ch   chan T
	done chan struct{}
}

// Bus is a single-producer, multi-consumer broadcast with bounded per-subscriber
// buffers. Post blocks when a subscriber buffer is full; Offer drops instead.
type Bus[T any] struct {
	logger *zap.Logger

	subscribers []*subscriber[T]
	mu          sync.RWMutex
	bufferSize  int

	// activePostsWg tracks in-flight Post/Offer calls so Shutdown can close
	// channels without racing a send.
	activePostsWg sync.WaitGroup

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	isShutdown   bool
	shutdownMu   sync.Mutex
}

// New creates a bus. A negative bufferSize is treated as unbuffered.
func New[T any](logger *zap.Logger, name string, bufferSize int) *Bus[T] {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Bus[T]{
		logger:       logger.Named(name),
		bufferSize:   bufferSize,
		shutdownChan: make(chan struct{}),
	}
}

// beginPost registers an in-flight send, failing once the bus is shut down.
func (b *Bus[T]) beginPost() error {
	b.shutdownMu.Lock()
	defer b.shutdownMu.Unlock()
	if b.isShutdown {
		return fmt.Errorf("cannot post message: bus is shut down")
	}
	b.activePostsWg.Add(1)
	return nil
}

func (b *Bus[T]) snapshotSubscribers() []*subscriber[T] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := make([]*subscriber[T], len(b.subscribers))
	copy(subs, b.subscribers)
	return subs
}

// Post delivers msg to every current subscriber, waiting for buffer space.
// It returns early on context cancellation or shutdown.
func (b *Bus[T]) Post(ctx context.Context, msg T) error {
	if err := b.beginPost(); err != nil {
		return err
	}
	defer b.activePostsWg.Done()

	for _, sub := range b.snapshotSubscribers() {
		select {
		case sub.ch <- msg:
		case <-sub.done:
			// Unsubscribed while we were waiting.
		case <-ctx.Done():
			return ctx.Err()
		case <-b.shutdownChan:
			return fmt.Errorf("failed to post message: bus is shutting down")
		}
	}
	return nil
}

// Offer delivers msg without blocking and reports how many subscribers were
// skipped because their buffer was full.
func (b *Bus[T]) Offer(msg T) (dropped int) {
	if err := b.beginPost(); err != nil {
		return 0
	}
	defer b.activePostsWg.Done()

	for _, sub := range b.snapshotSubscribers() {
		select {
		case sub.ch <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.logger.Debug("Slow subscribers skipped.", zap.Int("dropped", dropped))
	}
	return dropped
}

// Subscribe returns a receive channel and a function that detaches it. The
// channel is closed by Shutdown, not by the unsubscribe function.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.shutdownMu.Lock()
	closed := b.isShutdown
	b.shutdownMu.Unlock()
	if closed {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	sub := &subscriber[T]{ch: make(chan T, b.bufferSize), done: make(chan struct{})}
	b.subscribers = append(b.subscribers, sub)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			close(sub.done)
			for i, s := range b.subscribers {
				if s == sub {
					b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
					break
				}
			}
		})
	}
	return sub.ch, unsubscribe
}

// Shutdown stops accepting posts, waits for in-flight ones and closes every
// remaining subscriber channel. Safe to call more than once.
func (b *Bus[T]) Shutdown() {
	b.shutdownOnce.Do(func() {
		b.logger.Debug("Shutting down bus.")

		b.shutdownMu.Lock()
		b.isShutdown = true
		b.shutdownMu.Unlock()

		close(b.shutdownChan)
		b.activePostsWg.Wait()

		b.mu.Lock()
		for _, sub := range b.subscribers {
			close(sub.ch)
		}
		b.subscribers = nil
		b.mu.Unlock()
	})
}
