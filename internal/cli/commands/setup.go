// Package commands implements the tablemigrate subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tablemigrate/internal/cli/config"
	"github.com/leapstack-labs/tablemigrate/internal/cli/output"
	"github.com/leapstack-labs/tablemigrate/internal/state"
	"github.com/leapstack-labs/tablemigrate/pkg/connector"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
	"github.com/leapstack-labs/tablemigrate/pkg/migrate"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the config, logger and renderer stored by the
// root command.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetConfig(cmd.Context())
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// Context returns ctx bounded by the configured timeout, if any.
func (c *CommandContext) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Cfg.Timeout > 0 {
		return context.WithTimeout(ctx, c.Cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// ConnectEndpoint connects one side. side is "source" or "target".
func (c *CommandContext) ConnectEndpoint(ctx context.Context, side string) (connector.Connector, core.ConnectionConfig, error) {
	var (
		cfg core.ConnectionConfig
		err error
	)
	switch side {
	case "source":
		cfg, err = c.Cfg.SourceConfig()
	case "target":
		var mc *core.MigrationConfig
		mc, err = c.Cfg.MigrationConfig()
		if err == nil {
			cfg = mc.Target
		}
	default:
		return nil, nil, fmt.Errorf("unknown side %q (expected source or target)", side)
	}
	if err != nil {
		return nil, nil, err
	}

	conn, err := migrate.Connect(ctx, cfg, c.Logger.With(slog.String("side", side)))
	if err != nil {
		return nil, nil, err
	}
	return conn, cfg, nil
}

// OpenHistory opens the run history store unless history is disabled.
// A nil store means runs are not recorded.
func (c *CommandContext) OpenHistory(ctx context.Context) (*state.Store, error) {
	if c.Cfg.NoHistory {
		return nil, nil
	}
	return state.Open(ctx, c.Cfg.StatePath, c.Logger)
}

// describe formats a connection config for display and history records.
func describe(cfg core.ConnectionConfig) string {
	if cfg == nil {
		return ""
	}
	if s, ok := cfg.(fmt.Stringer); ok {
		return redact(s.String())
	}
	return string(cfg.Kind())
}

// redact hides a password embedded in a URL.
func redact(s string) string {
	i := strings.Index(s, "://")
	if i < 0 {
		return s
	}
	start := strings.LastIndexAny(s[:i], "(@ ") + 1
	end := len(s)
	if strings.HasSuffix(s, ")") {
		end--
	}
	u, err := url.Parse(s[start:end])
	if err != nil || u.User == nil {
		return s
	}
	return s[:start] + u.Redacted() + s[end:]
}
