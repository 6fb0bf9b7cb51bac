// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// GeminiClient implements schemas.PlannerClient on the Gemini API through the
// genai SDK. A new SDK client is created per call because the API key is
// supplied per call.
type GeminiClient struct {
	httpClient *http.Client
	logger     *zap.Logger
	config     config.PlannerConfig
	limiter    *rate.Limiter
}

var _ schemas.PlannerClient = (*GeminiClient)(nil)

// NewGeminiClient initializes the client. cfg.Endpoint, when set, replaces
// the SDK's base URL.
func NewGeminiClient(cfg config.PlannerConfig, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("llm_client.gemini"),
		limiter:    newLimiter(cfg.RequestsPerMinute),
	}
}

// Plan sends the conversation to generateContent and returns the text of the
// first candidate.
func (c *GeminiClient) Plan(ctx context.Context, apiKey, model string, messages []schemas.Message) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", fmt.Errorf("%w: API key is not set", schemas.ErrConfiguration)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("planner rate limiter: %w", err)
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.config.Endpoint},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	system, contents := toGeminiContents(messages)
	startTime := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, contents, c.generationConfig(system))
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Error("Gemini API call failed", zap.String("model", model), zap.Error(err))
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini API returned no candidates", schemas.ErrEmptyResponse)
	}

	fields := []zap.Field{
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.String("finish_reason", string(resp.Candidates[0].FinishReason)),
	}
	if usage := resp.UsageMetadata; usage != nil {
		fields = append(fields,
			zap.Int32("prompt_tokens", usage.PromptTokenCount),
			zap.Int32("completion_tokens", usage.CandidatesTokenCount),
			zap.Int32("total_tokens", usage.TotalTokenCount),
		)
	}
	c.logger.Info("Planner generation complete.", fields...)

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: gemini candidate has no text", schemas.ErrEmptyResponse)
	}
	return text, nil
}

func (c *GeminiClient) generationConfig(system *genai.Content) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(c.config.Temperature),
		MaxOutputTokens:   int32(c.config.MaxTokens),
		ResponseMIMEType:  "application/json",
	}
}

// toGeminiContents moves system messages into a single system instruction and
// maps the remaining turns onto Gemini roles.
func toGeminiContents(messages []schemas.Message) (*genai.Content, []*genai.Content) {
	var systemParts []*genai.Part
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case schemas.RoleSystem:
			systemParts = append(systemParts, genai.NewPartFromText(m.Content))
		case schemas.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	if len(systemParts) == 0 {
		return nil, contents
	}
	return &genai.Content{Parts: systemParts}, contents
}
