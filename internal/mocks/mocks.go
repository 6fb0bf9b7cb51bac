// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Settings() config.SettingsConfig {
	args := m.Called()
	return args.Get(0).(config.SettingsConfig)
}

func (m *MockConfig) Planner() config.PlannerConfig {
	args := m.Called()
	return args.Get(0).(config.PlannerConfig)
}

func (m *MockConfig) Engine() config.EngineConfig {
	args := m.Called()
	return args.Get(0).(config.EngineConfig)
}

func (m *MockConfig) Host() config.HostConfig {
	args := m.Called()
	return args.Get(0).(config.HostConfig)
}

func (m *MockConfig) History() config.HistoryConfig {
	args := m.Called()
	return args.Get(0).(config.HistoryConfig)
}

func (m *MockConfig) Listen() config.ListenConfig {
	args := m.Called()
	return args.Get(0).(config.ListenConfig)
}

func (m *MockConfig) APIKey() string     { return m.Called().String(0) }
func (m *MockConfig) Model() string      { return m.Called().String(0) }
func (m *MockConfig) VoiceEnabled() bool { return m.Called().Bool(0) }

// --- Setters ---

func (m *MockConfig) SetAPIKey(key string)         { m.Called(key) }
func (m *MockConfig) SetModel(model string)        { m.Called(model) }
func (m *MockConfig) SetVoiceEnabled(enabled bool) { m.Called(enabled) }

// -- Settings Mock --

// MockSettings mocks schemas.SettingsProvider.
type MockSettings struct {
	mock.Mock
}

var _ schemas.SettingsProvider = (*MockSettings)(nil)

func (m *MockSettings) APIKey() string     { return m.Called().String(0) }
func (m *MockSettings) Model() string      { return m.Called().String(0) }
func (m *MockSettings) VoiceEnabled() bool { return m.Called().Bool(0) }

// -- Planner Client Mock --

// MockPlannerClient mocks schemas.PlannerClient.
type MockPlannerClient struct {
	mock.Mock
}

var _ schemas.PlannerClient = (*MockPlannerClient)(nil)

func (m *MockPlannerClient) Plan(ctx context.Context, apiKey, model string, messages []schemas.Message) (string, error) {
	args := m.Called(ctx, apiKey, model, messages)
	return args.String(0), args.Error(1)
}

// -- Action Host Mock --

// MockActionHost mocks schemas.ActionHost.
type MockActionHost struct {
	mock.Mock
}

var _ schemas.ActionHost = (*MockActionHost)(nil)

func (m *MockActionHost) CurrentSnapshot(ctx context.Context) (*schemas.ScreenState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.ScreenState), args.Error(1)
}

func (m *MockActionHost) FindElement(ctx context.Context, id string) (schemas.UIElement, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(schemas.UIElement), args.Bool(1), args.Error(2)
}

func (m *MockActionHost) FindEditable(ctx context.Context) (schemas.UIElement, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(schemas.UIElement), args.Bool(1), args.Error(2)
}

func (m *MockActionHost) Click(ctx context.Context, at schemas.Point) error {
	return m.Called(ctx, at).Error(0)
}

func (m *MockActionHost) LongClick(ctx context.Context, at schemas.Point) error {
	return m.Called(ctx, at).Error(0)
}

func (m *MockActionHost) Swipe(ctx context.Context, from, to schemas.Point, duration time.Duration) error {
	return m.Called(ctx, from, to, duration).Error(0)
}

func (m *MockActionHost) SetText(ctx context.Context, target schemas.UIElement, text string) error {
	return m.Called(ctx, target, text).Error(0)
}

func (m *MockActionHost) LaunchApp(ctx context.Context, packageName string) (bool, error) {
	args := m.Called(ctx, packageName)
	return args.Bool(0), args.Error(1)
}

func (m *MockActionHost) GlobalAction(ctx context.Context, kind schemas.GlobalAction) (bool, error) {
	args := m.Called(ctx, kind)
	return args.Bool(0), args.Error(1)
}

func (m *MockActionHost) ScreenSize(ctx context.Context) (int, int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1), args.Error(2)
}

// -- Speaker Mock --

// MockSpeaker mocks schemas.Speaker.
type MockSpeaker struct {
	mock.Mock
}

var _ schemas.Speaker = (*MockSpeaker)(nil)

func (m *MockSpeaker) Speak(ctx context.Context, message string) error {
	return m.Called(ctx, message).Error(0)
}

// -- History Store Mock --

// MockHistoryStore mocks schemas.HistoryStore.
type MockHistoryStore struct {
	mock.Mock
}

var _ schemas.HistoryStore = (*MockHistoryStore)(nil)

func (m *MockHistoryStore) Append(ctx context.Context, entry schemas.HistoryEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockHistoryStore) Recent(ctx context.Context, limit int) ([]schemas.HistoryEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.HistoryEntry), args.Error(1)
}

func (m *MockHistoryStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
