package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/mocks"
	"github.com/xkilldash9x/droidpilot/internal/service"
)

var sendButton = schemas.UIElement{
	ID:        "send",
	ClassName: "android.widget.Button",
	Text:      "Send",
	Bounds:    schemas.Bounds{Right: 200, Bottom: 100},
	Clickable: true,
}

func chatScreen() *schemas.ScreenState {
	return &schemas.ScreenState{
		PackageName: "com.example.chat",
		Elements:    []schemas.UIElement{sendButton},
		Timestamp:   time.Now(),
	}
}

// fakePlanner serves a fixed chat completion and counts requests.
type fakePlanner struct {
	*httptest.Server
	hits atomic.Int32
}

func newFakePlanner(t *testing.T, content string) *fakePlanner {
	t.Helper()
	p := &fakePlanner{}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{
			"id": "chatcmpl-test",
			"choices": []any{map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(p.Close)
	return p
}

// writeTestConfig writes a config file that points the planner at endpoint,
// disables settling and keeps history in memory. extra must not repeat a
// top-level section.
func writeTestConfig(t *testing.T, endpoint string, extra string) string {
	t.Helper()
	return writeConfigFile(t, endpoint, "0s", extra)
}

func writeConfigFile(t *testing.T, endpoint, settle, extra string) string {
	t.Helper()
	t.Setenv("DROIDPILOT_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`logger:
  level: error
planner:
  provider: openai
  endpoint: %q
engine:
  settle_interval: %s
host:
  poll_interval: 5ms
  startup_timeout: 2s
history:
  backend: memory
%s`, endpoint, settle, extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// newTestRoot builds a root command whose factory uses host instead of adb.
func newTestRoot(host schemas.ActionHost) (*cobra.Command, *bytes.Buffer) {
	root := newRootCommand(func(speaker schemas.Speaker) service.ComponentFactory {
		return service.NewComponentFactoryWithHost(speaker, func(config.HostConfig, *zap.Logger) schemas.ActionHost {
			return host
		})
	})
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(out)
	return root, out
}

func screenHost() *mocks.MockActionHost {
	host := new(mocks.MockActionHost)
	host.On("CurrentSnapshot", mock.Anything).Return(chatScreen(), nil)
	return host
}
