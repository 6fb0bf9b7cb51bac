// internal/store/codec.go
package store

import "strings"

// ActionDelimiter separates action summaries in a persisted history row.
// A summary that itself contains the delimiter is split apart on reload.
const ActionDelimiter = "|||"

// JoinActions flattens summaries into a single column value.
func JoinActions(actions []string) string {
	return strings.Join(actions, ActionDelimiter)
}

// SplitActions reverses JoinActions, dropping blank segments.
func SplitActions(joined string) []string {
	parts := strings.Split(joined, ActionDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeLimit applies the default window size to non-positive limits.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
