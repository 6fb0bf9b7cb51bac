package schemas

import (
	"context"
	"time"
)

// -- Planner Interfaces --

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn sent to the planner.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// PlannerClient sends a prepared conversation to a language model and returns
// the raw text of its first answer. Implementations never retry.
//
//go:generate mockery --name PlannerClient --output ../../internal/mocks --outpkg mocks
type PlannerClient interface {
	Plan(ctx context.Context, apiKey, model string, messages []Message) (string, error)
}

// -- Host Interfaces --

// GlobalAction names a system-wide navigation action.
type GlobalAction string

const (
	GlobalBack    GlobalAction = "back"
	GlobalHome    GlobalAction = "home"
	GlobalRecents GlobalAction = "recents"
)

// ActionHost is the device-side capability provider. It captures the element
// tree and performs gestures, launches and global navigation.
type ActionHost interface {
	// CurrentSnapshot captures the foreground UI right now.
	CurrentSnapshot(ctx context.Context) (*ScreenState, error)
	// FindElement searches a freshly captured tree for an element whose ID
	// equals id. The boolean is false when nothing matches.
	FindElement(ctx context.Context, id string) (UIElement, bool, error)
	// FindEditable returns the first element that is both editable and focusable.
	FindEditable(ctx context.Context) (UIElement, bool, error)

	Click(ctx context.Context, at Point) error
	LongClick(ctx context.Context, at Point) error
	Swipe(ctx context.Context, from, to Point, duration time.Duration) error
	SetText(ctx context.Context, target UIElement, text string) error

	// LaunchApp reports false when the package has no launchable activity.
	LaunchApp(ctx context.Context, packageName string) (bool, error)
	GlobalAction(ctx context.Context, kind GlobalAction) (bool, error)
	ScreenSize(ctx context.Context) (width, height int, err error)
}

// Speaker renders a message audibly (or otherwise) to the user.
type Speaker interface {
	Speak(ctx context.Context, message string) error
}

// -- History Interfaces --

// HistoryStore is the append-only command log.
type HistoryStore interface {
	Append(ctx context.Context, entry HistoryEntry) error
	// Recent returns at most limit entries, newest first. A limit <= 0 means
	// DefaultHistoryLimit.
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
	Clear(ctx context.Context) error
}

// -- Settings Interfaces --

// SettingsProvider exposes the user settings read at the start of every
// command. Values may change between commands.
type SettingsProvider interface {
	APIKey() string
	Model() string
	VoiceEnabled() bool
}
