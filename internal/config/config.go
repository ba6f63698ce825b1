// Package config loads relsync settings from defaults, an optional config
// file and RELSYNC_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/roach88/relsync/internal/ecs"
)

// Config represents the CLI configuration.
type Config struct {
	Engine   EngineConfig
	EventLog EventLogConfig
	LogLevel slog.Level
}

// EngineConfig holds the flush guards applied to every world.
type EngineConfig struct {
	MaxSteps        int
	MaxCascadeDepth int
}

// EventLogConfig locates the change-event journal.
type EventLogConfig struct {
	Path string // empty disables the journal
}

// Keys, as used in config files. Environment variables are the upper-case
// key with "." replaced by "_" and a RELSYNC_ prefix.
const (
	KeyMaxSteps        = "engine.max_steps"
	KeyMaxCascadeDepth = "engine.max_cascade_depth"
	KeyEventLog        = "event_log.path"
	KeyLogLevel        = "log_level"
)

// New returns a viper instance with defaults and environment binding set.
func New() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("RELSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyMaxSteps, ecs.DefaultMaxSteps)
	v.SetDefault(KeyMaxCascadeDepth, ecs.DefaultMaxCascadeDepth)
	v.SetDefault(KeyEventLog, "")
	v.SetDefault(KeyLogLevel, "warn")

	return v
}

// ReadFile merges a config file (yaml, json or toml, by extension) into v.
// An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return nil, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}

	cfg := &Config{
		Engine: EngineConfig{
			MaxSteps:        v.GetInt(KeyMaxSteps),
			MaxCascadeDepth: v.GetInt(KeyMaxCascadeDepth),
		},
		EventLog: EventLogConfig{
			Path: v.GetString(KeyEventLog),
		},
		LogLevel: level,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs error
	if c.Engine.MaxSteps < 1 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive, got %d", KeyMaxSteps, c.Engine.MaxSteps))
	}
	if c.Engine.MaxCascadeDepth < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative, got %d", KeyMaxCascadeDepth, c.Engine.MaxCascadeDepth))
	}
	return errs
}

// WorldOptions returns the ecs options the engine settings imply.
func (c *Config) WorldOptions() []ecs.WorldOption {
	return []ecs.WorldOption{
		ecs.WithMaxSteps(c.Engine.MaxSteps),
		ecs.WithMaxCascadeDepth(c.Engine.MaxCascadeDepth),
	}
}
