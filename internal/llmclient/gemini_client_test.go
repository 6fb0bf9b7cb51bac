package llmclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// -- Test Setup Helpers --

func setupGeminiClient(t *testing.T, handler http.HandlerFunc) (*GeminiClient, *observer.ObservedLogs) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, logs := setupTestLogger(t)
	cfg := getValidPlannerConfig()
	cfg.Provider = config.ProviderGemini
	cfg.Endpoint = server.URL + "/"

	return NewGeminiClient(cfg, logger), logs
}

// -- Test Cases: Message Mapping --

func TestToGeminiContents(t *testing.T) {
	messages := []schemas.Message{
		{Role: schemas.RoleSystem, Content: "rules"},
		{Role: schemas.RoleUser, Content: "open settings"},
		{Role: schemas.RoleAssistant, Content: "{}"},
		{Role: "tool", Content: "odd"},
	}

	system, contents := toGeminiContents(messages)

	require.NotNil(t, system)
	require.Len(t, system.Parts, 1)
	assert.Equal(t, "rules", system.Parts[0].Text)

	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, "open settings", contents[0].Parts[0].Text)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, genai.RoleUser, contents[2].Role, "unknown roles are sent as user turns")
}

func TestToGeminiContents_NoSystem(t *testing.T) {
	system, contents := toGeminiContents([]schemas.Message{{Role: schemas.RoleUser, Content: "hi"}})
	assert.Nil(t, system)
	assert.Len(t, contents, 1)
}

func TestGeminiGenerationConfig(t *testing.T) {
	logger, _ := setupTestLogger(t)
	client := NewGeminiClient(getValidPlannerConfig(), logger)

	gc := client.generationConfig(nil)
	require.NotNil(t, gc.Temperature)
	assert.InDelta(t, 0.1, *gc.Temperature, 0.0001)
	assert.Equal(t, int32(2048), gc.MaxOutputTokens)
	assert.Equal(t, "application/json", gc.ResponseMIMEType)
}

// -- Test Cases: Plan --

func TestGeminiClient_Plan_BlankKeyNeverCallsNetwork(t *testing.T) {
	var calls int32
	client, _ := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := client.Plan(context.Background(), " ", "gemini-2.0-flash", createTestMessages())
	assert.ErrorIs(t, err, schemas.ErrConfiguration)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGeminiClient_Plan_Success(t *testing.T) {
	client, logs := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.0-flash:generateContent"), r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-goog-api-key"))

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Contains(t, payload, "systemInstruction")
		assert.Contains(t, payload, "contents")

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"actions\":[]}"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 100, "candidatesTokenCount": 50, "totalTokenCount": 150}
		}`)
	})

	text, err := client.Plan(context.Background(), "test-api-key", "gemini-2.0-flash", createTestMessages())
	require.NoError(t, err)
	assert.Equal(t, `{"actions":[]}`, text)

	entries := logs.FilterMessage("Planner generation complete.").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 100, entries[0].ContextMap()["prompt_tokens"])
	assert.EqualValues(t, 50, entries[0].ContextMap()["completion_tokens"])
}

func TestGeminiClient_Plan_NoCandidates(t *testing.T) {
	client, _ := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates": []}`)
	})

	_, err := client.Plan(context.Background(), "test-api-key", "gemini-2.0-flash", createTestMessages())
	assert.ErrorIs(t, err, schemas.ErrEmptyResponse)
}

func TestGeminiClient_Plan_CandidateWithoutText(t *testing.T) {
	client, _ := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates": [{"content": {"role": "model", "parts": []}, "finishReason": "SAFETY"}]}`)
	})

	text, err := client.Plan(context.Background(), "test-api-key", "gemini-2.0-flash", createTestMessages())
	assert.Empty(t, text)
	assert.ErrorIs(t, err, schemas.ErrEmptyResponse)
}

func TestGeminiClient_Plan_APIError(t *testing.T) {
	client, logs := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`)
	})

	_, err := client.Plan(context.Background(), "bad-key", "gemini-2.0-flash", createTestMessages())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini API error")
	assert.Equal(t, 1, logs.FilterMessage("Gemini API call failed").Len())
}
