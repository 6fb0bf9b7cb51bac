// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// NewClient creates the planner client for the configured provider.
func NewClient(cfg config.PlannerConfig, logger *zap.Logger) (schemas.PlannerClient, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewChatClient(cfg, logger), nil
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]", cfg.Provider, config.ProviderOpenAI, config.ProviderGemini)
	}
}
