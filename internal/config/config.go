// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Settings() SettingsConfig
	Planner() PlannerConfig
	Engine() EngineConfig
	Host() HostConfig
	History() HistoryConfig
	Listen() ListenConfig

	// Live settings, read at the start of every command.
	schemas.SettingsProvider

	// Settings Setters
	SetAPIKey(key string)
	SetModel(model string)
	SetVoiceEnabled(enabled bool)
}

// Config holds the entire application configuration. Sections are exported so
// viper can populate them; consumers go through the Interface getters.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	SettingsCfg SettingsConfig `mapstructure:"settings" yaml:"settings"`
	PlannerCfg  PlannerConfig  `mapstructure:"planner" yaml:"planner"`
	EngineCfg   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	HostCfg     HostConfig     `mapstructure:"host" yaml:"host"`
	HistoryCfg  HistoryConfig  `mapstructure:"history" yaml:"history"`
	ListenCfg   ListenConfig   `mapstructure:"listen" yaml:"listen"`
}

var (
	_ Interface                = (*Config)(nil)
	_ schemas.SettingsProvider = (*Config)(nil)
)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Settings() SettingsConfig { return c.SettingsCfg }
func (c *Config) Planner() PlannerConfig   { return c.PlannerCfg }
func (c *Config) Engine() EngineConfig     { return c.EngineCfg }
func (c *Config) Host() HostConfig         { return c.HostCfg }
func (c *Config) History() HistoryConfig   { return c.HistoryCfg }
func (c *Config) Listen() ListenConfig     { return c.ListenCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetAPIKey(key string)         { c.SettingsCfg.APIKey = key }
func (c *Config) SetModel(model string)        { c.SettingsCfg.Model = model }
func (c *Config) SetVoiceEnabled(enabled bool) { c.SettingsCfg.VoiceEnabled = enabled }

// --- schemas.SettingsProvider ---

func (c *Config) APIKey() string     { return c.SettingsCfg.APIKey }
func (c *Config) Model() string      { return c.SettingsCfg.Model }
func (c *Config) VoiceEnabled() bool { return c.SettingsCfg.VoiceEnabled }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names used for each log level.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// SettingsConfig is the user-facing preference set read at the start of every
// command.
type SettingsConfig struct {
	APIKey                string `mapstructure:"api_key" yaml:"-"`
	Model                 string `mapstructure:"model" yaml:"model"`
	VoiceEnabled          bool   `mapstructure:"voice_enabled" yaml:"voice_enabled"`
	FloatingButtonEnabled bool   `mapstructure:"floating_button_enabled" yaml:"floating_button_enabled"`
}

// LLMProvider selects the planner backend.
type LLMProvider string

const (
	// ProviderOpenAI covers every OpenAI-compatible chat completions API (Groq included).
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
)

// PlannerConfig tunes the planner client.
type PlannerConfig struct {
	Provider LLMProvider `mapstructure:"provider" yaml:"provider"`
	// Endpoint overrides the provider's default URL when set.
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// EngineConfig configures the action execution engine.
type EngineConfig struct {
	SettleInterval time.Duration `mapstructure:"settle_interval" yaml:"settle_interval"`
}

// HostConfig configures the ADB-backed device host.
type HostConfig struct {
	ADBPath      string        `mapstructure:"adb_path" yaml:"adb_path"`
	Serial       string        `mapstructure:"serial" yaml:"serial"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	DumpRetries  int           `mapstructure:"dump_retries" yaml:"dump_retries"`
	DumpPath     string        `mapstructure:"dump_path" yaml:"dump_path"`

	// StartupTimeout bounds how long commands wait for the first snapshot.
	StartupTimeout time.Duration `mapstructure:"startup_timeout" yaml:"startup_timeout"`
}

// History backends.
const (
	HistoryBackendFile     = "file"
	HistoryBackendPostgres = "postgres"
	HistoryBackendMemory   = "memory"
)

// HistoryConfig selects and configures the command log.
type HistoryConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	Path       string `mapstructure:"path" yaml:"path"`
	DSN        string `mapstructure:"dsn" yaml:"-"`
	MaxEntries int    `mapstructure:"max_entries" yaml:"max_entries"`
}

// ListenConfig configures the transcript listener.
type ListenConfig struct {
	TranscriptPath string `mapstructure:"transcript_path" yaml:"transcript_path"`
	// FromStart replays lines already present in the transcript.
	FromStart bool `mapstructure:"from_start" yaml:"from_start"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "droidpilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Settings --
	v.SetDefault("settings.api_key", "")
	v.SetDefault("settings.model", "llama-3.3-70b-versatile")
	v.SetDefault("settings.voice_enabled", true)
	v.SetDefault("settings.floating_button_enabled", true)

	// -- Planner --
	v.SetDefault("planner.provider", string(ProviderOpenAI))
	v.SetDefault("planner.endpoint", "")
	v.SetDefault("planner.timeout", "60s")
	v.SetDefault("planner.temperature", 0.1)
	v.SetDefault("planner.max_tokens", 2048)
	v.SetDefault("planner.requests_per_minute", 0)

	// -- Engine --
	v.SetDefault("engine.settle_interval", "500ms")

	// -- Host --
	v.SetDefault("host.adb_path", "adb")
	v.SetDefault("host.serial", "")
	v.SetDefault("host.poll_interval", "1s")
	v.SetDefault("host.dump_retries", 3)
	v.SetDefault("host.dump_path", "/data/local/tmp/droidpilot_view.xml")
	v.SetDefault("host.startup_timeout", "10s")

	// -- History --
	v.SetDefault("history.backend", HistoryBackendFile)
	v.SetDefault("history.path", "~/.droidpilot/history.json")
	v.SetDefault("history.max_entries", 100)

	// -- Listen --
	v.SetDefault("listen.transcript_path", "~/.droidpilot/transcript.txt")
	v.SetDefault("listen.from_start", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data. The first variable found wins.
	_ = v.BindEnv("settings.api_key", "DROIDPILOT_API_KEY", "GROQ_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("history.dsn", "DROIDPILOT_HISTORY_DSN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in file system paths.
func (c *Config) expandPaths() error {
	paths := []*string{&c.HistoryCfg.Path, &c.ListenCfg.TranscriptPath, &c.LoggerCfg.LogFile}
	for _, p := range paths {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
// A missing API key is not a validation error; it surfaces per command.
func (c *Config) Validate() error {
	if err := c.PlannerCfg.Validate(); err != nil {
		return fmt.Errorf("planner configuration invalid: %w", err)
	}
	if c.EngineCfg.SettleInterval < 0 {
		return fmt.Errorf("engine.settle_interval must not be negative")
	}
	if c.HostCfg.PollInterval <= 0 {
		return fmt.Errorf("host.poll_interval must be a positive duration")
	}
	if c.HostCfg.DumpRetries < 1 {
		return fmt.Errorf("host.dump_retries must be at least 1")
	}
	if err := c.HistoryCfg.Validate(); err != nil {
		return fmt.Errorf("history configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the planner settings.
func (p *PlannerConfig) Validate() error {
	switch p.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider '%s'. Supported: [%s, %s]", p.Provider, ProviderOpenAI, ProviderGemini)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive duration")
	}
	if p.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be a positive integer")
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	if p.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative")
	}
	return nil
}

// Validate checks the history backend settings.
func (h *HistoryConfig) Validate() error {
	switch h.Backend {
	case HistoryBackendFile:
		if h.Path == "" {
			return fmt.Errorf("path is required for the file backend")
		}
	case HistoryBackendPostgres:
		if h.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres backend. Ensure DROIDPILOT_HISTORY_DSN is set")
		}
	case HistoryBackendMemory:
	default:
		return fmt.Errorf("unknown backend '%s'", h.Backend)
	}
	if h.MaxEntries <= 0 {
		return fmt.Errorf("max_entries must be a positive integer")
	}
	return nil
}
