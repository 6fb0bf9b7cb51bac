// internal/host/adb/host.go
package adb

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

const (
	longPressDuration = 1000 * time.Millisecond
	defaultRetryPause = 500 * time.Millisecond
)

// Android key codes used for global navigation and text clearing.
const (
	keyBack      = 4
	keyHome      = 3
	keyAppSwitch = 187
	keyMoveEnd   = 123
	keyDel       = 67
)

var globalKeys = map[schemas.GlobalAction]int{
	schemas.GlobalBack:    keyBack,
	schemas.GlobalHome:    keyHome,
	schemas.GlobalRecents: keyAppSwitch,
}

var packagePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)+$`)

// Host implements schemas.ActionHost on a device reachable over adb. The
// element tree comes from uiautomator dumps and gestures go through `input`.
type Host struct {
	runner     Runner
	logger     *zap.Logger
	cfg        config.HostConfig
	retryPause time.Duration

	// dumpMu serializes dumps; every dump writes the same device file and a
	// retry kills any running uiautomator.
	dumpMu sync.Mutex

	sizeMu sync.Mutex
	width  int
	height int
}

var _ schemas.ActionHost = (*Host)(nil)

// New creates a Host that shells out to the configured adb binary.
func New(cfg config.HostConfig, logger *zap.Logger) *Host {
	return NewWithRunner(cfg, ExecRunner{Path: cfg.ADBPath, Serial: cfg.Serial}, logger)
}

// NewWithRunner creates a Host on top of an arbitrary Runner.
func NewWithRunner(cfg config.HostConfig, runner Runner, logger *zap.Logger) *Host {
	return &Host{
		runner:     runner,
		logger:     logger.Named("adb_host"),
		cfg:        cfg,
		retryPause: defaultRetryPause,
	}
}

// -- Element Tree --

// CurrentSnapshot dumps the foreground UI. The dump is retried up to
// cfg.DumpRetries times because uiautomator fails intermittently.
func (h *Host) CurrentSnapshot(ctx context.Context) (*schemas.ScreenState, error) {
	xml, err := h.dump(ctx)
	if err != nil {
		return nil, err
	}

	pkg, elements, err := parseHierarchy(xml)
	if err != nil {
		return nil, err
	}
	if pkg == "" {
		pkg = "unknown"
	}

	return &schemas.ScreenState{
		PackageName: pkg,
		Elements:    elements,
		Timestamp:   time.Now(),
	}, nil
}

func (h *Host) dump(ctx context.Context) (string, error) {
	h.dumpMu.Lock()
	defer h.dumpMu.Unlock()

	attempts := h.cfg.DumpRetries
	if attempts < 1 {
		attempts = 1
	}
	path := h.cfg.DumpPath
	if path == "" {
		path = "/data/local/tmp/droidpilot_view.xml"
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			// A stuck uiautomator blocks further dumps.
			_, _ = h.runner.Run(ctx, "shell", "pkill uiautomator")
			if err := sleepCtx(ctx, h.retryPause); err != nil {
				return "", err
			}
		}

		out, err := h.runner.Run(ctx, "shell", fmt.Sprintf("uiautomator dump %s && cat %s", path, path))
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err == nil {
			if xml, ok := cleanDump(out); ok {
				return xml, nil
			}
			err = fmt.Errorf("dump output has no XML declaration")
		}
		lastErr = err
		h.logger.Debug("UI dump attempt failed.", zap.Int("attempt", i+1), zap.Int("max_attempts", attempts), zap.Error(err))
	}
	return "", fmt.Errorf("failed to dump UI after %d attempts: %w", attempts, lastErr)
}

// FindElement searches a fresh dump.
func (h *Host) FindElement(ctx context.Context, id string) (schemas.UIElement, bool, error) {
	state, err := h.CurrentSnapshot(ctx)
	if err != nil {
		return schemas.UIElement{}, false, err
	}
	el, ok := screen.FindByID(state.Elements, id)
	return el, ok, nil
}

// FindEditable searches a fresh dump for the first editable, focusable element.
func (h *Host) FindEditable(ctx context.Context) (schemas.UIElement, bool, error) {
	state, err := h.CurrentSnapshot(ctx)
	if err != nil {
		return schemas.UIElement{}, false, err
	}
	el, ok := screen.FindEditable(state.Elements)
	return el, ok, nil
}

// -- Gestures --

func (h *Host) Click(ctx context.Context, at schemas.Point) error {
	return h.input(ctx, "tap", itoa(at.X), itoa(at.Y))
}

// LongClick holds the touch in place by swiping zero distance.
func (h *Host) LongClick(ctx context.Context, at schemas.Point) error {
	return h.Swipe(ctx, at, at, longPressDuration)
}

func (h *Host) Swipe(ctx context.Context, from, to schemas.Point, duration time.Duration) error {
	return h.input(ctx, "swipe", itoa(from.X), itoa(from.Y), itoa(to.X), itoa(to.Y), strconv.FormatInt(duration.Milliseconds(), 10))
}

// SetText focuses target, deletes its current text and types the new one.
func (h *Host) SetText(ctx context.Context, target schemas.UIElement, text string) error {
	if err := h.Click(ctx, target.Bounds.Center()); err != nil {
		return fmt.Errorf("failed to focus field: %w", err)
	}

	if n := len([]rune(target.Text)); n > 0 {
		keys := make([]string, 0, n+1)
		keys = append(keys, itoa(keyMoveEnd))
		for i := 0; i < n; i++ {
			keys = append(keys, itoa(keyDel))
		}
		if err := h.input(ctx, append([]string{"keyevent"}, keys...)...); err != nil {
			return fmt.Errorf("failed to clear field: %w", err)
		}
	}

	for _, chunk := range splitLiteralPercentS(text) {
		if err := h.input(ctx, "text", escapeInputText(chunk)); err != nil {
			return err
		}
	}
	return nil
}

// LaunchApp starts the package's launcher activity. It reports false when the
// package name is invalid or has no launchable activity.
func (h *Host) LaunchApp(ctx context.Context, packageName string) (bool, error) {
	if !packagePattern.MatchString(packageName) {
		h.logger.Warn("Refusing to launch invalid package name.", zap.String("package", packageName))
		return false, nil
	}

	out, err := h.runner.Run(ctx, "shell", "monkey", "-p", packageName, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		return false, fmt.Errorf("failed to launch %s: %w", packageName, err)
	}
	if strings.Contains(out, "No activities found") || strings.Contains(out, "monkey aborted") {
		return false, nil
	}
	return true, nil
}

func (h *Host) GlobalAction(ctx context.Context, kind schemas.GlobalAction) (bool, error) {
	code, ok := globalKeys[kind]
	if !ok {
		return false, nil
	}
	if err := h.input(ctx, "keyevent", itoa(code)); err != nil {
		return false, err
	}
	return true, nil
}

// ScreenSize reads `wm size` once and caches the result.
func (h *Host) ScreenSize(ctx context.Context) (int, int, error) {
	h.sizeMu.Lock()
	defer h.sizeMu.Unlock()

	if h.width > 0 && h.height > 0 {
		return h.width, h.height, nil
	}

	out, err := h.runner.Run(ctx, "shell", "wm", "size")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read screen size: %w", err)
	}
	w, ht, ok := parseWMSize(out)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected `wm size` output: %q", strings.TrimSpace(out))
	}
	h.width, h.height = w, ht
	return w, ht, nil
}

func (h *Host) input(ctx context.Context, args ...string) error {
	_, err := h.runner.Run(ctx, append([]string{"shell", "input"}, args...)...)
	return err
}

// escapeInputText encodes text for `input text`, which reads %s as a space,
// and quotes it for the device shell. text must not contain a literal %s;
// see splitLiteralPercentS.
func escapeInputText(text string) string {
	text = strings.ReplaceAll(text, " ", "%s")
	return "'" + strings.ReplaceAll(text, "'", `'\''`) + "'"
}

// splitLiteralPercentS cuts text between the '%' and 's' of every literal
// "%s" so that no chunk is read back as an escaped space. Empty text yields
// no chunks.
func splitLiteralPercentS(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "%s")
	chunks := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = "s" + p
		}
		if i < len(parts)-1 {
			p += "%"
		}
		chunks = append(chunks, p)
	}
	return chunks
}

func itoa(n int) string { return strconv.Itoa(n) }

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
