package llmclient

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// setupTestLogger returns a logger backed by an observer, along with the
// observed entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// getValidPlannerConfig returns a valid PlannerConfig for testing purposes.
func getValidPlannerConfig() config.PlannerConfig {
	return config.PlannerConfig{
		Provider:    config.ProviderOpenAI,
		Timeout:     5 * time.Second,
		Temperature: 0.1,
		MaxTokens:   2048,
	}
}

// createTestMessages provides a standard system + user conversation.
func createTestMessages() []schemas.Message {
	return []schemas.Message{
		{Role: schemas.RoleSystem, Content: "System prompt instructions."},
		{Role: schemas.RoleUser, Content: "USER COMMAND: open settings"},
	}
}
