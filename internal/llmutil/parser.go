// internal/llmutil/parser.go
package llmutil

import (
	"regexp"
	"strings"
)

// fencePattern captures the body of a response wrapped in a markdown code
// fence, with or without a language tag. \x60 is a backtick.
var fencePattern = regexp.MustCompile("(?s)^\x60\x60\x60[a-zA-Z]*\\s*(.*?)\\s*\x60\x60\x60$")

// StripCodeFence removes surrounding whitespace and, when present, a
// surrounding ``` or ```json fence. Fences inside the body are left alone.
func StripCodeFence(response string) string {
	response = strings.TrimSpace(response)
	if m := fencePattern.FindStringSubmatch(response); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	// An opening fence without a closing one still gets its marker removed.
	if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimPrefix(response, "json")
	}
	return strings.TrimSpace(strings.TrimSuffix(response, "```"))
}

// Truncate shortens s to maxLen bytes for log output, marking the cut.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
