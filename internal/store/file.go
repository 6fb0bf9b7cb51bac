// internal/store/file.go
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fileRow is the persisted shape of a history entry. Actions are flattened
// into a single string column.
type fileRow struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Actions   string    `json:"actions"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

func toRow(e schemas.HistoryEntry) fileRow {
	return fileRow{ID: e.ID, Command: e.Command, Actions: JoinActions(e.Actions), Success: e.Success, Timestamp: e.Timestamp}
}

func (r fileRow) entry() schemas.HistoryEntry {
	return schemas.HistoryEntry{ID: r.ID, Command: r.Command, Actions: SplitActions(r.Actions), Success: r.Success, Timestamp: r.Timestamp}
}

// FileStore keeps history as a JSON array on disk. The whole file is
// rewritten on every change.
type FileStore struct {
	mu         sync.RWMutex
	path       string
	maxEntries int
}

var _ schemas.HistoryStore = (*FileStore)(nil)

// NewFileStore creates a store at path. The file and its directory are
// created on the first append.
func NewFileStore(path string, maxEntries int) *FileStore {
	return &FileStore{path: path, maxEntries: maxEntries}
}

func (s *FileStore) Append(_ context.Context, entry schemas.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	return s.save(trim(append(entries, entry), s.maxEntries))
}

func (s *FileStore) Recent(_ context.Context, limit int) ([]schemas.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	return newestFirst(entries, normalizeLimit(limit)), nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear history file: %w", err)
	}
	return nil
}

// load reads entries in append order. A missing file is an empty history.
func (s *FileStore) load() ([]schemas.HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var rows []fileRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode history file %s: %w", s.path, err)
	}
	entries := make([]schemas.HistoryEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry()
	}
	return entries, nil
}

// save writes through a temp file so readers never see a partial array.
func (s *FileStore) save(entries []schemas.HistoryEntry) error {
	rows := make([]fileRow, len(entries))
	for i, e := range entries {
		rows[i] = toRow(e)
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
