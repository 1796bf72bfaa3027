package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidAppName         = errors.New("invalid application name")
	ErrInvalidEnvironment     = errors.New("invalid environment")
	ErrInvalidLogLevel        = errors.New("invalid log level")
	ErrInvalidLogFormat       = errors.New("invalid log format")
	ErrInvalidMailboxSize     = errors.New("invalid mailbox size")
	ErrInvalidTerminateRounds = errors.New("invalid terminate max rounds")
	ErrInvalidTickInterval    = errors.New("invalid dispatcher tick interval")
	ErrInvalidRoundsPerTick   = errors.New("invalid dispatcher rounds per tick")
	ErrInvalidCleanupEvery    = errors.New("invalid dispatcher cleanup interval")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound  = errors.New("configuration file not found")
	ErrConfigParseError    = errors.New("configuration parse error")
	ErrConfigValidateError = errors.New("configuration validation error")
	ErrEnvironmentVarError = errors.New("environment variable error")
	ErrConfigWatchError    = errors.New("configuration watch error")
	ErrUnsupportedFormat   = errors.New("unsupported configuration format")
)
