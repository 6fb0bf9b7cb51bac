package schemas

import "time"

// HistoryEntry records one completed command. Entries are never mutated
// after they are appended.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Actions   []string  `json:"actions"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultHistoryLimit is the size of the visible history window.
const DefaultHistoryLimit = 100
