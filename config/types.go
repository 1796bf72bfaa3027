// Package config provides configuration management for coact applications
package config

import (
	"time"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelFatal:
		return true
	default:
		return false
	}
}

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the complete coact configuration
type Config struct {
	// Application configuration
	App AppConfig `yaml:"app" json:"app"`

	// Logging configuration
	Log LogConfig `yaml:"log" json:"log"`

	// Actor system configuration
	Actor ActorConfig `yaml:"actor" json:"actor"`

	// Dispatcher loop configuration
	Dispatcher DispatcherConfig `yaml:"dispatcher" json:"dispatcher"`

	// Custom configurations (for user-defined actors)
	Custom map[string]interface{} `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	// Application name
	Name string `yaml:"name" json:"name"`

	// Application version
	Version string `yaml:"version" json:"version"`

	// Deployment environment
	Environment Environment `yaml:"environment" json:"environment"`

	// Debug mode
	Debug bool `yaml:"debug" json:"debug"`

	// Application description
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	// Log level
	Level LogLevel `yaml:"level" json:"level"`

	// Log format (json, text)
	Format string `yaml:"format" json:"format"`

	// Output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Enable colored output
	Color bool `yaml:"color" json:"color"`
}

// ActorConfig contains actor system configuration
type ActorConfig struct {
	// Name of the actor system, defaults to the application name
	SystemName string `yaml:"system_name" json:"system_name"`

	// Initial mailbox buffer size of new actors
	MailboxCapacity int `yaml:"mailbox_capacity" json:"mailbox_capacity"`

	// Shutdown iterations before remaining actors are force-terminated,
	// 0 disables the bound
	TerminateMaxRounds int `yaml:"terminate_max_rounds" json:"terminate_max_rounds"`

	// Time allowed for a graceful shutdown, "10s" or nanoseconds
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DispatcherConfig contains the settings of the loop driving dispatch rounds
type DispatcherConfig struct {
	// Interval between ticks, "10ms" or nanoseconds
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`

	// Maximum rounds run per tick; a tick ends early once a round is idle
	RoundsPerTick int `yaml:"rounds_per_tick" json:"rounds_per_tick"`

	// Ticks between removals of terminated actors, 0 disables cleanup
	CleanupEvery int `yaml:"cleanup_every" json:"cleanup_every"`

	// Total round budget after which the dispatcher exits, 0 means unlimited
	MaxRounds uint64 `yaml:"max_rounds" json:"max_rounds"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "coact-app",
			Version:     "1.0.0",
			Environment: EnvDevelopment,
			Debug:       true,
			Description: "coact application",
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
			Output: "stdout",
			Color:  true,
		},
		Actor: ActorConfig{
			MailboxCapacity:    16,
			TerminateMaxRounds: 10000,
			ShutdownTimeout:    10 * time.Second,
		},
		Dispatcher: DispatcherConfig{
			TickInterval:  10 * time.Millisecond,
			RoundsPerTick: 64,
			CleanupEvery:  100,
		},
		Custom: make(map[string]interface{}),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate app config
	if c.App.Name == "" {
		return ErrInvalidAppName
	}
	if !c.App.Environment.IsValid() {
		return ErrInvalidEnvironment
	}

	// Validate log config
	if !c.Log.Level.IsValid() {
		return ErrInvalidLogLevel
	}
	if c.Log.Format != LogFormatText && c.Log.Format != LogFormatJSON {
		return ErrInvalidLogFormat
	}

	// Validate actor config
	if c.Actor.MailboxCapacity <= 0 {
		return ErrInvalidMailboxSize
	}
	if c.Actor.TerminateMaxRounds < 0 {
		return ErrInvalidTerminateRounds
	}

	// Validate dispatcher config
	if c.Dispatcher.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}
	if c.Dispatcher.RoundsPerTick <= 0 {
		return ErrInvalidRoundsPerTick
	}
	if c.Dispatcher.CleanupEvery < 0 {
		return ErrInvalidCleanupEvery
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// GetSystemName returns the actor system name
func (c *Config) GetSystemName() string {
	if c.Actor.SystemName != "" {
		return c.Actor.SystemName
	}
	return c.App.Name
}

// GetLogLevel returns the log level
func (c *Config) GetLogLevel() LogLevel {
	return c.Log.Level
}

// IsDebugEnabled returns true if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.App.Environment == EnvDevelopment
}
