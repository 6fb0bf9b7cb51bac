// internal/agent/actions.go
package agent

import (
	"time"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

// ActionKind is the wire name of an action, as the planner writes it in the
// "type" field.
type ActionKind string

const (
	KindClick     ActionKind = "click"
	KindLongClick ActionKind = "long_click"
	KindTypeText  ActionKind = "type_text"
	KindScroll    ActionKind = "scroll"
	KindOpenApp   ActionKind = "open_app"
	KindBack      ActionKind = "back"
	KindHome      ActionKind = "home"
	KindRecents   ActionKind = "recents"
	KindWait      ActionKind = "wait"
	KindSpeak     ActionKind = "speak"
	KindComplete  ActionKind = "complete"
	KindError     ActionKind = "error"
)

// Action is one primitive step of a plan. The set of implementations is
// closed; only this package can add variants.
type Action interface {
	Kind() ActionKind
	isAction()
}

// Target points a gesture at an element or at absolute coordinates. An
// element id wins over a point when both are present.
type Target struct {
	ElementID string
	Point     *schemas.Point
}

// IsZero reports whether the target names neither an element nor a point.
func (t Target) IsZero() bool {
	return t.ElementID == "" && t.Point == nil
}

// ScrollDirection is the direction content moves under the finger.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

type (
	Click     struct{ Target }
	LongClick struct{ Target }

	// TypeText replaces the content of a field. An empty ElementID means the
	// first editable, focusable element on screen.
	TypeText struct {
		Text      string
		ElementID string
	}

	Scroll  struct{ Direction ScrollDirection }
	OpenApp struct{ Package string }

	GoBack      struct{}
	GoHome      struct{}
	OpenRecents struct{}

	Wait  struct{ Duration time.Duration }
	Speak struct{ Message string }

	// TaskComplete marks the goal as reached. It does not stop execution.
	TaskComplete struct{}

	// Error is the planner reporting that it cannot proceed. It always fails.
	Error struct{ Message string }
)

func (Click) Kind() ActionKind        { return KindClick }
func (LongClick) Kind() ActionKind    { return KindLongClick }
func (TypeText) Kind() ActionKind     { return KindTypeText }
func (Scroll) Kind() ActionKind       { return KindScroll }
func (OpenApp) Kind() ActionKind      { return KindOpenApp }
func (GoBack) Kind() ActionKind       { return KindBack }
func (GoHome) Kind() ActionKind       { return KindHome }
func (OpenRecents) Kind() ActionKind  { return KindRecents }
func (Wait) Kind() ActionKind         { return KindWait }
func (Speak) Kind() ActionKind        { return KindSpeak }
func (TaskComplete) Kind() ActionKind { return KindComplete }
func (Error) Kind() ActionKind        { return KindError }

func (Click) isAction()        {}
func (LongClick) isAction()    {}
func (TypeText) isAction()     {}
func (Scroll) isAction()       {}
func (OpenApp) isAction()      {}
func (GoBack) isAction()       {}
func (GoHome) isAction()       {}
func (OpenRecents) isAction()  {}
func (Wait) isAction()         {}
func (Speak) isAction()        {}
func (TaskComplete) isAction() {}
func (Error) isAction()        {}

// settles reports whether the UI is expected to change after the action, so
// the engine pauses before the next one.
func settles(a Action) bool {
	switch a.(type) {
	case Speak, TaskComplete, Error:
		return false
	default:
		return true
	}
}

// ActionResult is the outcome of executing one action.
type ActionResult struct {
	Action  Action
	Success bool
	Message string
	// Code is set only on failure.
	Code ErrorCode
}

func succeeded(a Action, message string) ActionResult {
	return ActionResult{Action: a, Success: true, Message: message}
}

func failed(a Action, code ErrorCode, message string) ActionResult {
	return ActionResult{Action: a, Success: false, Message: message, Code: code}
}
