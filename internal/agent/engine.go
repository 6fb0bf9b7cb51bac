// internal/agent/engine.go
package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// scrollDuration is the length of every scroll swipe.
const scrollDuration = 300 * time.Millisecond

// EngineState is the lifecycle phase of an Engine.
type EngineState int32

const (
	StateIdle EngineState = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("EngineState(%d)", int32(s))
	}
}

// SnapshotSource provides the most recently published snapshot. It may
// return nil.
type SnapshotSource interface {
	Latest() *screen.Snapshot
}

// ResultHook observes each outcome as soon as it is produced.
type ResultHook func(index int, result ActionResult)

// ActionHandler executes one action against the host.
type ActionHandler func(ctx context.Context, action Action) ActionResult

// Engine runs one plan against an ActionHost. An Engine is single use: build
// a new one for every command.
type Engine struct {
	logger   *zap.Logger
	host     schemas.ActionHost
	settle   time.Duration
	handlers map[ActionKind]ActionHandler

	snapshots    SnapshotSource
	speaker      schemas.Speaker
	voiceEnabled bool
	hook         ResultHook

	state atomic.Int32
}

// EngineOption configures optional collaborators.
type EngineOption func(*Engine)

// WithSnapshots sets the source used for the first element lookup.
func WithSnapshots(src SnapshotSource) EngineOption {
	return func(e *Engine) { e.snapshots = src }
}

// WithSpeaker sets the speaker used by Speak actions when enabled is true.
func WithSpeaker(s schemas.Speaker, enabled bool) EngineOption {
	return func(e *Engine) {
		e.speaker = s
		e.voiceEnabled = enabled
	}
}

// WithResultHook registers a callback for every produced result.
func WithResultHook(h ResultHook) EngineOption {
	return func(e *Engine) { e.hook = h }
}

// NewEngine creates an idle engine.
func NewEngine(logger *zap.Logger, cfg config.EngineConfig, host schemas.ActionHost, opts ...EngineOption) *Engine {
	e := &Engine{
		logger:   logger.Named("execution_engine"),
		host:     host,
		settle:   cfg.SettleInterval,
		handlers: make(map[ActionKind]ActionHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registerHandlers()
	return e
}

func (e *Engine) registerHandlers() {
	e.handlers[KindClick] = e.handleClick
	e.handlers[KindLongClick] = e.handleLongClick
	e.handlers[KindTypeText] = e.handleTypeText
	e.handlers[KindScroll] = e.handleScroll
	e.handlers[KindOpenApp] = e.handleOpenApp
	e.handlers[KindBack] = e.handleGlobal(schemas.GlobalBack, "Failed to go back")
	e.handlers[KindHome] = e.handleGlobal(schemas.GlobalHome, "Failed to go home")
	e.handlers[KindRecents] = e.handleGlobal(schemas.GlobalRecents, "Failed to open recents")
	e.handlers[KindWait] = e.handleWait
	e.handlers[KindSpeak] = e.handleSpeak
	e.handlers[KindComplete] = e.handleComplete
	e.handlers[KindError] = e.handleError
}

// State returns the current lifecycle phase.
func (e *Engine) State() EngineState {
	return EngineState(e.state.Load())
}

// Run executes actions in order and stops at the first unsuccessful result.
// The returned slice holds one result per attempted action. A non-nil error
// means the run was interrupted by ctx or the engine was already used; action
// failures are reported through the results only.
func (e *Engine) Run(ctx context.Context, actions []Action) (bool, []ActionResult, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return false, nil, ErrEngineNotIdle
	}

	results := make([]ActionResult, 0, len(actions))
	for i, action := range actions {
		if err := ctx.Err(); err != nil {
			e.state.Store(int32(StateFailed))
			return false, results, fmt.Errorf("execution interrupted before action %d: %w", i, err)
		}

		result := e.execute(ctx, action)
		results = append(results, result)
		if e.hook != nil {
			e.hook(i, result)
		}

		if !result.Success {
			e.logger.Warn("Action failed, stopping execution.",
				zap.Int("index", i),
				zap.String("action", Summarize(action)),
				zap.String("code", string(result.Code)),
				zap.String("message", result.Message),
			)
			e.state.Store(int32(StateFailed))
			if err := ctx.Err(); err != nil {
				return false, results, fmt.Errorf("execution interrupted at action %d: %w", i, err)
			}
			return false, results, nil
		}

		if settles(action) {
			if err := sleepCtx(ctx, e.settle); err != nil {
				e.state.Store(int32(StateFailed))
				return false, results, fmt.Errorf("execution interrupted after action %d: %w", i, err)
			}
		}
	}

	e.state.Store(int32(StateSucceeded))
	return true, results, nil
}

func (e *Engine) execute(ctx context.Context, action Action) ActionResult {
	handler, ok := e.handlers[action.Kind()]
	if !ok {
		return failed(action, ErrCodeHostDispatchFailed, fmt.Sprintf("no handler registered for action %q", action.Kind()))
	}
	e.logger.Debug("Executing action.", zap.String("action", Summarize(action)))
	return handler(ctx, action)
}

// -- Target Resolution --

// resolveElement checks the latest snapshot first, then asks the host for a
// fresh search.
func (e *Engine) resolveElement(ctx context.Context, id string) (schemas.UIElement, bool, error) {
	if e.snapshots != nil {
		if el, ok := e.snapshots.Latest().Lookup(id); ok {
			return el, true, nil
		}
	}
	return e.host.FindElement(ctx, id)
}

// resolvePoint returns the coordinates a pointer gesture should land on, or a
// failure result.
func (e *Engine) resolvePoint(ctx context.Context, action Action, t Target) (schemas.Point, *ActionResult) {
	switch {
	case t.ElementID != "":
		el, ok, err := e.resolveElement(ctx, t.ElementID)
		if err != nil {
			r := failed(action, ErrCodeHostDispatchFailed, err.Error())
			return schemas.Point{}, &r
		}
		if !ok {
			r := failed(action, ErrCodeElementNotFound, "Element not found: "+t.ElementID)
			return schemas.Point{}, &r
		}
		return el.Bounds.Center(), nil
	case t.Point != nil:
		return *t.Point, nil
	default:
		r := failed(action, ErrCodeNoTargetSpecified, "No target specified")
		return schemas.Point{}, &r
	}
}

// -- Handlers --

func (e *Engine) handleClick(ctx context.Context, action Action) ActionResult {
	a := action.(Click)
	at, fail := e.resolvePoint(ctx, action, a.Target)
	if fail != nil {
		return *fail
	}
	if err := e.host.Click(ctx, at); err != nil {
		return failed(action, ErrCodeHostDispatchFailed, err.Error())
	}
	return succeeded(action, "")
}

func (e *Engine) handleLongClick(ctx context.Context, action Action) ActionResult {
	a := action.(LongClick)
	at, fail := e.resolvePoint(ctx, action, a.Target)
	if fail != nil {
		return *fail
	}
	if err := e.host.LongClick(ctx, at); err != nil {
		return failed(action, ErrCodeHostDispatchFailed, err.Error())
	}
	return succeeded(action, "")
}

func (e *Engine) handleTypeText(ctx context.Context, action Action) ActionResult {
	a := action.(TypeText)

	var (
		field schemas.UIElement
		found bool
		err   error
	)
	if a.ElementID != "" {
		field, found, err = e.resolveElement(ctx, a.ElementID)
		if err == nil && !found {
			return failed(action, ErrCodeElementNotFound, "Element not found: "+a.ElementID)
		}
	} else {
		field, found, err = e.host.FindEditable(ctx)
		if err == nil && !found {
			return failed(action, ErrCodeNoEditableFieldFound, "No editable field found")
		}
	}
	if err != nil {
		return failed(action, ErrCodeHostDispatchFailed, err.Error())
	}

	if err := e.host.SetText(ctx, field, a.Text); err != nil {
		return failed(action, ErrCodeHostDispatchFailed, err.Error())
	}
	return succeeded(action, "")
}

func (e *Engine) handleScroll(ctx context.Context, action Action) ActionResult {
	a := action.(Scroll)
	w, h, err := e.host.ScreenSize(ctx)
	if err != nil {
		return failed(action, ErrCodeHostDispatchFailed, err.Error())
	}
	from, to := scrollPath(a.Direction, w, h)
	if err := e.host.Swipe(ctx, from, to, scrollDuration); err != nil {
		return failed(action, ErrCodeHostDispatchFailed, err.Error())
	}
	return succeeded(action, "")
}

// scrollPath maps a direction to swipe endpoints on a w x h screen.
func scrollPath(dir ScrollDirection, w, h int) (from, to schemas.Point) {
	cx, cy := w/2, h/2
	frac := func(n int, f float64) int { return int(float64(n) * f) }

	switch dir {
	case ScrollUp:
		return schemas.Point{X: cx, Y: frac(h, 0.7)}, schemas.Point{X: cx, Y: frac(h, 0.3)}
	case ScrollLeft:
		return schemas.Point{X: frac(w, 0.8), Y: cy}, schemas.Point{X: frac(w, 0.2), Y: cy}
	case ScrollRight:
		return schemas.Point{X: frac(w, 0.2), Y: cy}, schemas.Point{X: frac(w, 0.8), Y: cy}
	default:
		return schemas.Point{X: cx, Y: frac(h, 0.3)}, schemas.Point{X: cx, Y: frac(h, 0.7)}
	}
}

func (e *Engine) handleOpenApp(ctx context.Context, action Action) ActionResult {
	a := action.(OpenApp)
	launched, err := e.host.LaunchApp(ctx, a.Package)
	if err != nil {
		return failed(action, ErrCodeHostDispatchFailed, err.Error())
	}
	if !launched {
		return failed(action, ErrCodeHostDispatchFailed, "App not found: "+a.Package)
	}
	return succeeded(action, "")
}

func (e *Engine) handleGlobal(kind schemas.GlobalAction, failure string) ActionHandler {
	return func(ctx context.Context, action Action) ActionResult {
		ok, err := e.host.GlobalAction(ctx, kind)
		if err != nil {
			return failed(action, ErrCodeHostDispatchFailed, err.Error())
		}
		if !ok {
			return failed(action, ErrCodeHostDispatchFailed, failure)
		}
		return succeeded(action, "")
	}
}

func (e *Engine) handleWait(ctx context.Context, action Action) ActionResult {
	a := action.(Wait)
	if err := sleepCtx(ctx, a.Duration); err != nil {
		return failed(action, ErrCodeCancelled, err.Error())
	}
	return succeeded(action, "")
}

// handleSpeak never fails; a speaker error is only logged.
func (e *Engine) handleSpeak(ctx context.Context, action Action) ActionResult {
	a := action.(Speak)
	if e.voiceEnabled && e.speaker != nil {
		if err := e.speaker.Speak(ctx, a.Message); err != nil {
			e.logger.Warn("Speaker failed.", zap.Error(err))
		}
	}
	return succeeded(action, a.Message)
}

func (e *Engine) handleComplete(_ context.Context, action Action) ActionResult {
	return succeeded(action, "Task completed")
}

func (e *Engine) handleError(_ context.Context, action Action) ActionResult {
	a := action.(Error)
	return failed(action, ErrCodeActionReportedError, a.Message)
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
