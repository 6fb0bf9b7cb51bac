package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/mocks"
	"github.com/xkilldash9x/droidpilot/internal/screen"
	"github.com/xkilldash9x/droidpilot/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -- Test Setup Helpers --

var button = schemas.UIElement{
	ID:        "btn",
	ClassName: "android.widget.Button",
	Text:      "Send",
	Bounds:    schemas.Bounds{Right: 100, Bottom: 200},
	Clickable: true,
}

type fixture struct {
	orch     *Orchestrator
	settings *mocks.MockSettings
	planner  *mocks.MockPlannerClient
	host     *mocks.MockActionHost
	speaker  *mocks.MockSpeaker
	history  schemas.HistoryStore
	tracker  *screen.Tracker
}

type fixtureOption func(*Deps)

func withHistory(h schemas.HistoryStore) fixtureOption {
	return func(d *Deps) { d.History = h }
}

func newFixture(t *testing.T, logger *zap.Logger, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		settings: new(mocks.MockSettings),
		planner:  new(mocks.MockPlannerClient),
		host:     new(mocks.MockActionHost),
		speaker:  new(mocks.MockSpeaker),
		history:  store.NewMemoryStore(schemas.DefaultHistoryLimit),
		tracker:  screen.NewTracker(zaptest.NewLogger(t), 1),
	}
	t.Cleanup(f.tracker.Shutdown)

	deps := Deps{
		Settings:  f.settings,
		Snapshots: f.tracker,
		Planner:   f.planner,
		Host:      f.host,
		Speaker:   f.speaker,
		History:   f.history,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.history = deps.History

	orch, err := New(deps, logger)
	require.NoError(t, err)
	t.Cleanup(orch.Shutdown)

	orch.newID = func() string { return "cmd-1" }
	orch.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	f.orch = orch
	return f
}

func (f *fixture) publish(elements ...schemas.UIElement) {
	f.tracker.Publish(context.Background(), schemas.ScreenState{
		PackageName: "com.example.chat",
		Elements:    elements,
		Timestamp:   time.Now(),
	})
}

func (f *fixture) withSettings(key string, voice bool) {
	f.settings.On("APIKey").Return(key)
	f.settings.On("Model").Return("llama-3.3-70b-versatile")
	f.settings.On("VoiceEnabled").Return(voice)
}

func (f *fixture) recorded(t *testing.T) []schemas.HistoryEntry {
	t.Helper()
	entries, err := f.history.Recent(context.Background(), 0)
	require.NoError(t, err)
	return entries
}

// -- Happy Path --

func TestProcess_ExecutesPlanAndRecordsHistory(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.publish(button)
	f.withSettings("secret", true)

	raw := "```json\n" + `{"thinking":"tap send","actions":[
		{"type":"click","params":{"element_id":"btn"}},
		{"type":"speak","params":{"message":"Sent"}},
		{"type":"complete"}
	]}` + "\n```"
	f.planner.On("Plan", mock.Anything, "secret", "llama-3.3-70b-versatile", mock.MatchedBy(func(msgs []schemas.Message) bool {
		return len(msgs) == 2 &&
			msgs[0].Role == schemas.RoleSystem &&
			msgs[1].Role == schemas.RoleUser
	})).Return(raw, nil).Once()
	f.host.On("Click", mock.Anything, schemas.Point{X: 50, Y: 100}).Return(nil).Once()
	f.speaker.On("Speak", mock.Anything, "Sent").Return(nil).Once()

	res, err := f.orch.Process(context.Background(), "  send the message  ")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "cmd-1", res.ID)
	assert.Equal(t, "send the message", res.Command)
	assert.Equal(t, "tap send", res.Thinking)
	require.Len(t, res.Outcomes, 3)

	entries := f.recorded(t)
	require.Len(t, entries, 1)
	assert.Equal(t, schemas.HistoryEntry{
		ID:        "cmd-1",
		Command:   "send the message",
		Actions:   []string{"click:btn ✓", `speak:"Sent" ✓`, "complete ✓"},
		Success:   true,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, entries[0])

	f.planner.AssertExpectations(t)
	f.host.AssertExpectations(t)
	f.speaker.AssertExpectations(t)
}

func TestProcess_PriorTurnsPrecedeCommand(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.publish(button)
	f.withSettings("secret", false)

	f.planner.On("Plan", mock.Anything, "secret", mock.Anything, mock.MatchedBy(func(msgs []schemas.Message) bool {
		return len(msgs) == 4 && msgs[1].Content == "open chat" && msgs[2].Content == "go home"
	})).Return(`{"actions":[{"type":"complete"}]}`, nil).Once()

	_, err := f.orch.Process(context.Background(), "send", "open chat", "go home")
	require.NoError(t, err)
	f.planner.AssertExpectations(t)
}

func TestProcess_VoiceDisabledSilencesSpeak(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.publish(button)
	f.withSettings("secret", false)
	f.planner.On("Plan", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(`{"actions":[{"type":"speak","params":{"message":"hi"}}]}`, nil)

	res, err := f.orch.Process(context.Background(), "say hi")
	require.NoError(t, err)
	assert.True(t, res.Success)
	f.speaker.AssertNotCalled(t, "Speak", mock.Anything, mock.Anything)
}

// -- Failures Before Execution --

func TestProcess_EmptyCommand(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))

	res, err := f.orch.Process(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
	assert.Nil(t, res)
	assert.Empty(t, f.recorded(t))
}

func TestProcess_NoSnapshot(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))

	_, err := f.orch.Process(context.Background(), "open settings")
	assert.ErrorIs(t, err, schemas.ErrNoSnapshot)
	assert.Empty(t, f.recorded(t), "nothing is recorded without a screen")
	f.planner.AssertNotCalled(t, "Plan", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_BlankKeyNeverReachesPlanner(t *testing.T) {
	for _, key := range []string{"", "   "} {
		f := newFixture(t, zaptest.NewLogger(t))
		f.publish(button)
		f.withSettings(key, true)

		res, err := f.orch.Process(context.Background(), "open settings")
		require.Error(t, err)
		assert.ErrorIs(t, err, schemas.ErrConfiguration)
		assert.False(t, res.Success)
		f.planner.AssertNotCalled(t, "Plan", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		entries := f.recorded(t)
		require.Len(t, entries, 1)
		assert.Empty(t, entries[0].Actions)
		assert.False(t, entries[0].Success)
	}
}

func TestProcess_PlannerAndDecodeFailures(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		callErr error
		wantIs  error
	}{
		{name: "planner error", callErr: schemas.ErrEmptyResponse, wantIs: schemas.ErrEmptyResponse},
		{name: "malformed json", raw: "I cannot help with that", wantIs: schemas.ErrMalformedResponse},
		{name: "missing actions", raw: `{"thinking":"hm"}`, wantIs: schemas.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, zaptest.NewLogger(t))
			f.publish(button)
			f.withSettings("secret", true)
			f.planner.On("Plan", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tt.raw, tt.callErr)

			_, err := f.orch.Process(context.Background(), "open settings")
			assert.ErrorIs(t, err, tt.wantIs)

			entries := f.recorded(t)
			require.Len(t, entries, 1)
			assert.Empty(t, entries[0].Actions)
			assert.False(t, entries[0].Success)
		})
	}
}

// -- Failures During Execution --

func TestProcess_ExecutionFailureIsNotAnError(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.publish(button)
	f.withSettings("secret", true)
	f.planner.On("Plan", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(`{"actions":[
		{"type":"click","params":{"element_id":"ghost"}},
		{"type":"type_text","params":{"text":"hello"}},
		{"type":"complete"}
	]}`, nil)
	f.host.On("FindElement", mock.Anything, "ghost").Return(schemas.UIElement{}, false, nil)

	res, err := f.orch.Process(context.Background(), "reply hello")
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, agent.ErrCodeElementNotFound, res.Outcomes[0].Code)

	entries := f.recorded(t)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"click:ghost ✗"}, entries[0].Actions)
	assert.False(t, entries[0].Success)
}

func TestProcess_CancelledDuringExecution(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.publish(button)
	f.withSettings("secret", true)
	f.planner.On("Plan", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(`{"actions":[{"type":"wait","params":{"ms":60000}},{"type":"complete"}]}`, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := f.orch.Process(ctx, "wait a minute")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, res.Success)
	assert.Len(t, f.recorded(t), 1, "interrupted commands are still recorded")
}

func TestProcess_HistoryFailureIsLoggedOnly(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	history := new(mocks.MockHistoryStore)
	history.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	f := newFixture(t, zap.New(core), withHistory(history))
	f.publish(button)
	f.withSettings("secret", true)
	f.planner.On("Plan", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(`{"actions":[{"type":"complete"}]}`, nil)

	res, err := f.orch.Process(context.Background(), "done")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, logs.FilterMessage("Failed to record command history.").Len())
}

// -- Events --

func TestProcess_EmitsEvents(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.publish(button)
	f.withSettings("secret", true)
	f.planner.On("Plan", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(`{"actions":[
		{"type":"frobnicate"},
		{"type":"home"},
		{"type":"complete"}
	]}`, nil)
	f.host.On("GlobalAction", mock.Anything, schemas.GlobalHome).Return(true, nil)

	events, unsubscribe := f.orch.Events()
	defer unsubscribe()

	res, err := f.orch.Process(context.Background(), "go home")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)

	var got []Event
	for ev := range events {
		got = append(got, ev)
		if ev.Kind == EventDone {
			break
		}
	}

	var statuses []Status
	var outcomes int
	var logs []string
	for _, ev := range got {
		switch ev.Kind {
		case EventStatus:
			statuses = append(statuses, ev.Status)
		case EventOutcome:
			outcomes++
			require.NotNil(t, ev.Outcome)
		case EventLog:
			logs = append(logs, ev.Message)
		}
		assert.Equal(t, "cmd-1", ev.CommandID)
	}

	assert.Equal(t, []Status{StatusProcessing, StatusExecuting, StatusCompleted}, statuses)
	assert.Equal(t, 2, outcomes)
	assert.Contains(t, logs, "Executing: home")
	assert.Contains(t, logs[0], "frobnicate")

	done := got[len(got)-1]
	assert.Equal(t, EventDone, done.Kind)
	assert.Same(t, res, done.Result)
}

func TestProcess_DoneEventSurvivesFullSubscriber(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.publish(button)
	f.withSettings("secret", true)

	// Each action emits a log and an outcome, so the subscriber buffer fills
	// long before the command ends.
	const actions = eventBufferSize
	raw := `{"actions":[`
	for i := 0; i < actions; i++ {
		if i > 0 {
			raw += ","
		}
		raw += `{"type":"back"}`
	}
	raw += `]}`
	f.planner.On("Plan", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(raw, nil)

	dispatched := make(chan struct{})
	var calls int
	f.host.On("GlobalAction", mock.Anything, schemas.GlobalBack).Return(true, nil).Run(func(mock.Arguments) {
		calls++
		if calls == actions {
			close(dispatched)
		}
	})

	events, unsubscribe := f.orch.Events()
	defer unsubscribe()

	type outcome struct {
		res *Result
		err error
	}
	finished := make(chan outcome, 1)
	go func() {
		res, err := f.orch.Process(context.Background(), "go back a lot")
		finished <- outcome{res, err}
	}()

	select {
	case <-dispatched:
	case <-time.After(2 * time.Second):
		t.Fatal("actions were not dispatched")
	}

	var done *Event
	timeout := time.After(2 * time.Second)
	for done == nil {
		select {
		case ev := <-events:
			if ev.Kind == EventDone {
				done = &ev
			}
		case <-timeout:
			t.Fatal("done event was not delivered")
		}
	}

	out := <-finished
	require.NoError(t, out.err)
	assert.True(t, out.res.Success)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Same(t, out.res, done.Result)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Deps{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
