// internal/store/memory.go
package store

import (
	"context"
	"sync"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

const defaultLimit = schemas.DefaultHistoryLimit

// MemoryStore keeps history in process. It is used for tests and for runs
// that should leave nothing behind.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    []schemas.HistoryEntry
	maxEntries int
}

var _ schemas.HistoryStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store that retains at most maxEntries entries. A
// non-positive maxEntries keeps everything.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{maxEntries: maxEntries}
}

func (s *MemoryStore) Append(_ context.Context, entry schemas.HistoryEntry) error {
	entry.Actions = append([]string(nil), entry.Actions...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = trim(append(s.entries, entry), s.maxEntries)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]schemas.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.entries, normalizeLimit(limit)), nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

// trim drops the oldest entries beyond max.
func trim(entries []schemas.HistoryEntry, max int) []schemas.HistoryEntry {
	if max <= 0 || len(entries) <= max {
		return entries
	}
	kept := make([]schemas.HistoryEntry, max)
	copy(kept, entries[len(entries)-max:])
	return kept
}

// newestFirst returns up to limit entries from an append-ordered slice,
// most recent first. The result does not alias entries.
func newestFirst(entries []schemas.HistoryEntry, limit int) []schemas.HistoryEntry {
	n := len(entries)
	if limit < n {
		n = limit
	}
	out := make([]schemas.HistoryEntry, 0, n)
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		e := entries[i]
		e.Actions = append([]string(nil), e.Actions...)
		out = append(out, e)
	}
	return out
}
