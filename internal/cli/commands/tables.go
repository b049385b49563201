package commands

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tablemigrate/internal/cli/output"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	var side string

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List user tables of the source or target database",
		Example: `  # List tables of a SQLite file
  tablemigrate tables --source data/app.db

  # List target tables as JSON
  tablemigrate tables --side target -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cc.Context(cmd.Context())
			defer cancel()

			conn, cfg, err := cc.ConnectEndpoint(ctx, side)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Disconnect() }()

			tables, err := conn.ListTables(ctx)
			if err != nil {
				return err
			}
			slices.Sort(tables)

			rows := make([][]any, len(tables))
			for i, name := range tables {
				rows[i] = []any{name}
			}
			return cc.Renderer.Render(output.Table{
				Title:   "Tables in " + describe(cfg),
				Headers: []string{"table"},
				Rows:    rows,
			}, tables)
		},
	}

	cmd.Flags().StringVar(&side, "side", "source", "which endpoint to inspect (source|target)")
	_ = cmd.RegisterFlagCompletionFunc("side", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"source", "target"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
