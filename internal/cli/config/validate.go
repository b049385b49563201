package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/tablemigrate/internal/cli/output"
	"github.com/leapstack-labs/tablemigrate/internal/project"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
)

// ErrNoEndpoints is returned when neither the config nor a project file names
// the source and target.
var ErrNoEndpoints = errors.New("no source/target configured")

// Validate checks values that do not depend on the command being run.
func (c *Config) Validate() error {
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", c.Concurrency)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", c.Timeout)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. Empty means DefaultLogLevel.
func ParseLevel(s string) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		s = DefaultLogLevel
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Level returns the effective log level. --verbose forces debug.
func (c *Config) Level() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// MigrationConfig resolves the source and target endpoints. The project
// document, when set, supplies the base; endpoints from tablemigrate.yaml,
// the environment or flags replace it per side.
func (c *Config) MigrationConfig() (*core.MigrationConfig, error) {
	var mc *core.MigrationConfig
	if c.ProjectFile != "" {
		loaded, err := project.Load(c.ProjectFile)
		if err != nil {
			return nil, err
		}
		mc = loaded
	} else {
		mc = &core.MigrationConfig{Version: core.DefaultConfigVersion}
	}

	if c.Source != nil && !c.Source.IsZero() {
		src, err := c.Source.Config()
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		mc.Source = src
	}
	if c.Target != nil && !c.Target.IsZero() {
		dst, err := c.Target.Config()
		if err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
		mc.Target = dst
	}

	if mc.Source == nil && mc.Target == nil {
		return nil, fmt.Errorf("%w\nHint: pass --source/--target, add source/target to tablemigrate.yaml, or use --project", ErrNoEndpoints)
	}
	if err := mc.Validate(); err != nil {
		return nil, err
	}
	return mc, nil
}

// SourceConfig resolves only the source endpoint, for read-only commands.
func (c *Config) SourceConfig() (core.ConnectionConfig, error) {
	if c.Source != nil && !c.Source.IsZero() {
		src, err := c.Source.Config()
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		return src, nil
	}
	if c.ProjectFile != "" {
		mc, err := project.Load(c.ProjectFile)
		if err != nil {
			return nil, err
		}
		if mc.Source == nil {
			return nil, fmt.Errorf("%s: sourceConfig is missing", c.ProjectFile)
		}
		if err := mc.Source.Validate(); err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		return mc.Source, nil
	}
	return nil, fmt.Errorf("%w\nHint: pass --source, add source to tablemigrate.yaml, or use --project", ErrNoEndpoints)
}
