package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tablemigrate/internal/cli/config"
	"github.com/leapstack-labs/tablemigrate/internal/cli/output"
	"github.com/leapstack-labs/tablemigrate/internal/project"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect migration project documents",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigShowCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		force       bool
		name        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a JSON project document",
		Long: `Write a JSON project document holding the source and target connections.

Endpoints given with --source/--target (or tablemigrate.yaml) are used when
set; otherwise placeholder SQLite paths are written for editing.`,
		Example: `  tablemigrate config init
  tablemigrate config init orders.json --source app.db --target postgres://localhost/app`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			path := project.DefaultFileName
			if len(args) == 1 {
				path = args[0]
			}
			path = project.WithJSONExt(path)
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}

			mc := initialConfig(cc.Cfg)
			if name != "" {
				mc.ProjectName = core.StringPtr(name)
			}
			if description != "" {
				mc.Description = core.StringPtr(description)
			}

			written, err := project.Save(path, mc)
			if err != nil {
				return err
			}
			cc.Renderer.Status("Configuration saved: %s", written)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&description, "description", "", "project description")

	return cmd
}

// initialConfig starts from the placeholder document and fills in whichever
// endpoints the current configuration resolves.
func initialConfig(cfg *config.Config) *core.MigrationConfig {
	sourcePath := ""
	if cfg.Source != nil && cfg.Source.Type != project.TypeNetwork {
		sourcePath = cfg.Source.FilePath
	}
	mc := project.Default(sourcePath)
	if cfg.Source != nil && !cfg.Source.IsZero() {
		if src, err := cfg.Source.Config(); err == nil {
			mc.Source = src
		}
	}
	if cfg.Target != nil && !cfg.Target.IsZero() {
		if dst, err := cfg.Target.Config(); err == nil {
			mc.Target = dst
		}
	}
	return mc
}

type configView struct {
	ConfigFile  string `json:"config_file,omitempty" yaml:"config_file,omitempty"`
	ProjectFile string `json:"project_file,omitempty" yaml:"project_file,omitempty"`
	ProjectName string `json:"project_name,omitempty" yaml:"project_name,omitempty"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty"`
	Target      string `json:"target,omitempty" yaml:"target,omitempty"`
	StatePath   string `json:"state_path" yaml:"state_path"`
	History     bool   `json:"history" yaml:"history"`
	LogLevel    string `json:"log_level" yaml:"log_level"`
	Output      string `json:"output" yaml:"output"`
	Timeout     string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Cfg

			view := configView{
				ConfigFile:  config.GetConfigFileUsed(),
				ProjectFile: cfg.ProjectFile,
				StatePath:   cfg.StatePath,
				History:     !cfg.NoHistory,
				LogLevel:    cfg.Level().String(),
				Output:      string(cc.Renderer.Mode()),
			}
			if cfg.Timeout > 0 {
				view.Timeout = cfg.Timeout.String()
			}

			mc, err := cfg.MigrationConfig()
			switch {
			case err == nil:
				view.Source = describe(mc.Source)
				view.Target = describe(mc.Target)
				if mc.ProjectName != nil {
					view.ProjectName = *mc.ProjectName
				}
			case errors.Is(err, config.ErrNoEndpoints):
			// nothing configured yet
			default:
				return err
			}

			rows := [][]any{
				{"config file", orNone(view.ConfigFile)},
				{"project file", orNone(view.ProjectFile)},
				{"project name", orNone(view.ProjectName)},
				{"source", orNone(view.Source)},
				{"target", orNone(view.Target)},
				{"state path", view.StatePath},
				{"history", yesNo(view.History)},
				{"log level", view.LogLevel},
				{"output", view.Output},
			}
			if view.Timeout != "" {
				rows = append(rows, []any{"timeout", view.Timeout})
			}
			return cc.Renderer.Render(output.Table{Headers: []string{"setting", "value"}, Rows: rows}, view)
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
