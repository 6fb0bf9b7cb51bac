package adb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// -- Test Setup Helpers --

type response struct {
	out string
	err error
}

// fakeRunner replays scripted responses keyed by the joined argument list and
// records every call. Unscripted calls succeed with empty output.
type fakeRunner struct {
	mu        sync.Mutex
	responses map[string][]response
	calls     []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string][]response)}
}

func (f *fakeRunner) on(cmd string, out string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmd] = append(f.responses[cmd], response{out: out, err: err})
}

func (f *fakeRunner) Run(_ context.Context, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := strings.Join(args, " ")
	f.calls = append(f.calls, cmd)

	queue := f.responses[cmd]
	if len(queue) == 0 {
		return "", nil
	}
	r := queue[0]
	if len(queue) > 1 {
		f.responses[cmd] = queue[1:]
	}
	return r.out, r.err
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

const dumpCmd = "shell uiautomator dump /data/local/tmp/test.xml && cat /data/local/tmp/test.xml"

const sampleDump = `UI hierchary dumped to: /data/local/tmp/test.xml
<?xml version='1.0' encoding='UTF-8' standalone='yes' ?><hierarchy rotation="0">
<node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.android.settings" content-desc="" clickable="false" focusable="false" scrollable="false" bounds="[0,0][1080,2400]">
  <node index="0" text="" resource-id="" class="android.view.View" package="com.android.settings" content-desc="" clickable="false" focusable="false" scrollable="false" bounds="[0,0][0,0]">
    <node index="0" text="Search settings" resource-id="com.android.settings:id/search" class="android.widget.EditText" package="com.android.settings" content-desc="" clickable="true" focusable="true" scrollable="false" bounds="[40,100][1040,220]" />
  </node>
  <node index="1" text="" resource-id="" class="androidx.recyclerview.widget.RecyclerView" package="com.android.settings" content-desc="" clickable="false" focusable="true" scrollable="true" bounds="[0,240][1080,2400]">
    <node index="0" text="Network &amp; internet" resource-id="" class="android.widget.TextView" package="com.android.settings" content-desc="Wi-Fi" clickable="true" focusable="true" scrollable="false" bounds="[0,240][1080,400]" />
  </node>
</node>
</hierarchy>
trailing noise`

func newTestHost(t *testing.T, runner Runner) *Host {
	t.Helper()
	h := NewWithRunner(config.HostConfig{DumpRetries: 3, DumpPath: "/data/local/tmp/test.xml"}, runner, zaptest.NewLogger(t))
	h.retryPause = time.Millisecond
	return h
}

// -- Snapshot --

func TestHost_CurrentSnapshot(t *testing.T) {
	runner := newFakeRunner()
	runner.on(dumpCmd, sampleDump, nil)

	state, err := newTestHost(t, runner).CurrentSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "com.android.settings", state.PackageName)
	require.Len(t, state.Elements, 1)
	root := state.Elements[0]
	assert.Equal(t, "elem_0", root.ID)

	// The zero-size View is dropped and its child lifted into the root.
	require.Len(t, root.Children, 2)
	search := root.Children[0]
	assert.Equal(t, "com.android.settings:id/search", search.ID)
	assert.Equal(t, "com.android.settings:id/search", search.ResourceID)
	assert.True(t, search.Editable)
	assert.True(t, search.Focusable)
	assert.Equal(t, schemas.Bounds{Left: 40, Top: 100, Right: 1040, Bottom: 220}, search.Bounds)

	list := root.Children[1]
	assert.Equal(t, "elem_0.1", list.ID)
	assert.True(t, list.Scrollable)
	require.Len(t, list.Children, 1)
	assert.Equal(t, "elem_0.1.0", list.Children[0].ID)
	assert.Equal(t, "Network & internet", list.Children[0].Text)
	assert.Equal(t, "Wi-Fi", list.Children[0].ContentDescription)
}

func TestHost_CurrentSnapshotRetries(t *testing.T) {
	runner := newFakeRunner()
	runner.on(dumpCmd, "", errors.New("ERROR: could not get idle state"))
	runner.on(dumpCmd, "garbage", nil)
	runner.on(dumpCmd, sampleDump, nil)

	state, err := newTestHost(t, runner).CurrentSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "com.android.settings", state.PackageName)

	var kills int
	for _, c := range runner.Calls() {
		if c == "shell pkill uiautomator" {
			kills++
		}
	}
	assert.Equal(t, 2, kills)
}

func TestHost_CurrentSnapshotGivesUp(t *testing.T) {
	runner := newFakeRunner()
	runner.on(dumpCmd, "", errors.New("device offline"))

	_, err := newTestHost(t, runner).CurrentSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to dump UI after 3 attempts")
	assert.Contains(t, err.Error(), "device offline")
}

func TestHost_FindHelpersUseFreshDump(t *testing.T) {
	runner := newFakeRunner()
	runner.on(dumpCmd, sampleDump, nil)
	h := newTestHost(t, runner)

	el, ok, err := h.FindElement(context.Background(), "elem_0.1.0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Network & internet", el.Text)

	_, ok, err = h.FindElement(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	field, ok, err := h.FindEditable(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "com.android.settings:id/search", field.ID)
}

// inFlightRunner delays dumps and records the peak number running at once.
type inFlightRunner struct {
	*fakeRunner
	delay time.Duration

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (r *inFlightRunner) Run(ctx context.Context, args ...string) (string, error) {
	if strings.Join(args, " ") != dumpCmd {
		return r.fakeRunner.Run(ctx, args...)
	}

	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.peak {
		r.peak = r.inFlight
	}
	r.mu.Unlock()

	time.Sleep(r.delay)

	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()
	return sampleDump, nil
}

func TestHost_DumpsAreSerialized(t *testing.T) {
	runner := &inFlightRunner{fakeRunner: newFakeRunner(), delay: 10 * time.Millisecond}
	h := newTestHost(t, runner)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := h.CurrentSnapshot(ctx)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, _, err := h.FindElement(ctx, "elem_0.1")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, _, err := h.FindEditable(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, 1, runner.peak, "dumps share one device file and must not overlap")
}

// -- Gestures --

func TestHost_Gestures(t *testing.T) {
	runner := newFakeRunner()
	h := newTestHost(t, runner)
	ctx := context.Background()

	require.NoError(t, h.Click(ctx, schemas.Point{X: 10, Y: 20}))
	require.NoError(t, h.LongClick(ctx, schemas.Point{X: 5, Y: 6}))
	require.NoError(t, h.Swipe(ctx, schemas.Point{X: 540, Y: 720}, schemas.Point{X: 540, Y: 1680}, 300*time.Millisecond))

	assert.Equal(t, []string{
		"shell input tap 10 20",
		"shell input swipe 5 6 5 6 1000",
		"shell input swipe 540 720 540 1680 300",
	}, runner.Calls())
}

func TestHost_SetText(t *testing.T) {
	runner := newFakeRunner()
	h := newTestHost(t, runner)

	field := schemas.UIElement{Text: "ab", Bounds: schemas.Bounds{Left: 0, Top: 0, Right: 100, Bottom: 50}}
	require.NoError(t, h.SetText(context.Background(), field, "it's late"))

	assert.Equal(t, []string{
		"shell input tap 50 25",
		"shell input keyevent 123 67 67",
		`shell input text 'it'\''s%slate'`,
	}, runner.Calls())
}

func TestHost_SetTextKeepsLiteralPercentS(t *testing.T) {
	runner := newFakeRunner()
	h := newTestHost(t, runner)

	require.NoError(t, h.SetText(context.Background(), schemas.UIElement{Bounds: schemas.Bounds{Right: 10, Bottom: 10}}, "printf %s now"))

	assert.Equal(t, []string{
		"shell input tap 5 5",
		`shell input text 'printf%s%'`,
		`shell input text 's%snow'`,
	}, runner.Calls())
}

func TestHost_LaunchApp(t *testing.T) {
	runner := newFakeRunner()
	runner.on("shell monkey -p com.whatsapp -c android.intent.category.LAUNCHER 1", "Events injected: 1", nil)
	runner.on("shell monkey -p com.missing -c android.intent.category.LAUNCHER 1", "** No activities found to run, monkey aborted.", nil)
	h := newTestHost(t, runner)
	ctx := context.Background()

	ok, err := h.LaunchApp(ctx, "com.whatsapp")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.LaunchApp(ctx, "com.missing")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.LaunchApp(ctx, "com.x; reboot")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, runner.Calls(), 2, "invalid package names never reach the device")
}

func TestHost_GlobalAction(t *testing.T) {
	runner := newFakeRunner()
	h := newTestHost(t, runner)
	ctx := context.Background()

	for _, kind := range []schemas.GlobalAction{schemas.GlobalBack, schemas.GlobalHome, schemas.GlobalRecents} {
		ok, err := h.GlobalAction(ctx, kind)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := h.GlobalAction(ctx, "notifications")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{
		"shell input keyevent 4",
		"shell input keyevent 3",
		"shell input keyevent 187",
	}, runner.Calls())
}

func TestHost_ScreenSizeIsCached(t *testing.T) {
	runner := newFakeRunner()
	runner.on("shell wm size", "Physical size: 1080x2400\nOverride size: 720x1600\n", nil)
	h := newTestHost(t, runner)

	for i := 0; i < 2; i++ {
		w, ht, err := h.ScreenSize(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 720, w)
		assert.Equal(t, 1600, ht)
	}
	assert.Len(t, runner.Calls(), 1)
}

// -- Parsing Helpers --

func TestParseWMSize(t *testing.T) {
	w, h, ok := parseWMSize("Physical size: 1080x2400")
	assert.True(t, ok)
	assert.Equal(t, 1080, w)
	assert.Equal(t, 2400, h)

	_, _, ok = parseWMSize("error: no devices")
	assert.False(t, ok)
}

func TestParseBounds(t *testing.T) {
	b, ok := parseBounds("[1,2][30,40]")
	assert.True(t, ok)
	assert.Equal(t, schemas.Bounds{Left: 1, Top: 2, Right: 30, Bottom: 40}, b)

	_, ok = parseBounds("1,2,30,40")
	assert.False(t, ok)
}

func TestParseHierarchy_DepthIsBounded(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><hierarchy>`)
	for i := 0; i < 30; i++ {
		sb.WriteString(`<node class="android.view.View" package="p" bounds="[0,0][10,10]">`)
	}
	for i := 0; i < 30; i++ {
		sb.WriteString(`</node>`)
	}
	sb.WriteString(`</hierarchy>`)

	_, elements, err := parseHierarchy(sb.String())
	require.NoError(t, err)

	depth := 0
	for len(elements) > 0 {
		depth++
		elements = elements[0].Children
	}
	assert.Equal(t, schemas.MaxTreeDepth, depth)
}

func TestSplitLiteralPercentS(t *testing.T) {
	testCases := []struct {
		in       string
		expected []string
	}{
		{"", nil},
		{"plain text", []string{"plain text"}},
		{"%s", []string{"%", "s"}},
		{"a%sb%sc", []string{"a%", "sb%", "sc"}},
		{"100% sure", []string{"100% sure"}},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, splitLiteralPercentS(tc.in))
		})
	}
}

func TestEscapeInputText(t *testing.T) {
	assert.Equal(t, `'hello%sworld'`, escapeInputText("hello world"))
	assert.Equal(t, `'a&b'`, escapeInputText("a&b"))
}
