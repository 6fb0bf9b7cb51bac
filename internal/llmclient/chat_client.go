// internal/llmclient/chat_client.go
package llmclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/llmutil"
)

// DefaultChatEndpoint is Groq's OpenAI-compatible chat completions URL.
const DefaultChatEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// ChatClient implements schemas.PlannerClient against an OpenAI-compatible
// chat completions API.
type ChatClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	config     config.PlannerConfig
	limiter    *rate.Limiter
}

var _ schemas.PlannerClient = (*ChatClient)(nil)

// -- Chat Completions Request/Response Structures --

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatRequestPayload struct {
	Model          string             `json:"model"`
	Messages       []schemas.Message  `json:"messages"`
	Temperature    float32            `json:"temperature"`
	MaxTokens      int                `json:"max_tokens"`
	ResponseFormat chatResponseFormat `json:"response_format"`
}

type chatChoice struct {
	Index        int             `json:"index"`
	Message      schemas.Message `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponsePayload struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

// NewChatClient initializes the client. The endpoint falls back to
// DefaultChatEndpoint.
func NewChatClient(cfg config.PlannerConfig, logger *zap.Logger) *ChatClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultChatEndpoint
	}

	return &ChatClient{
		endpoint: endpoint,
		config:   cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:  logger.Named("llm_client.chat"),
		limiter: newLimiter(cfg.RequestsPerMinute),
	}
}

// Plan sends one chat completion request and returns the first choice's content.
func (c *ChatClient) Plan(ctx context.Context, apiKey, model string, messages []schemas.Message) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", fmt.Errorf("%w: API key is not set", schemas.ErrConfiguration)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("planner rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(c.buildRequestPayload(model, messages))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	c.logger.Debug("Sending planner request.", zap.String("model", model), zap.Int("messages", len(messages)))

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)
	if err != nil {
		return "", fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.handleAPIError(resp.StatusCode, respBody)
	}

	var payload chatResponsePayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", fmt.Errorf("failed to decode response payload: %w", err)
	}

	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response %q", schemas.ErrEmptyResponse, payload.ID)
	}

	fields := []zap.Field{
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.String("finish_reason", payload.Choices[0].FinishReason),
	}
	if payload.Usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", payload.Usage.PromptTokens),
			zap.Int("completion_tokens", payload.Usage.CompletionTokens),
			zap.Int("total_tokens", payload.Usage.TotalTokens),
		)
	}
	c.logger.Info("Planner generation complete.", fields...)

	return payload.Choices[0].Message.Content, nil
}

func (c *ChatClient) buildRequestPayload(model string, messages []schemas.Message) chatRequestPayload {
	return chatRequestPayload{
		Model:          model,
		Messages:       messages,
		Temperature:    c.config.Temperature,
		MaxTokens:      c.config.MaxTokens,
		ResponseFormat: chatResponseFormat{Type: "json_object"},
	}
}

func (c *ChatClient) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("Planner API returned error status",
		zap.Int("status", statusCode),
		zap.String("response", llmutil.Truncate(string(body), 1000)),
	)
	return fmt.Errorf("planner API error: status %d, body: %s", statusCode, llmutil.Truncate(string(body), 500))
}

// newLimiter returns nil (unlimited) for a non-positive rate.
func newLimiter(requestsPerMinute float64) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(requestsPerMinute/60), 1)
}
