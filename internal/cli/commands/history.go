package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tablemigrate/internal/cli/output"
	"github.com/leapstack-labs/tablemigrate/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded migration runs",
		Example: `  tablemigrate history
  tablemigrate history --limit 50 -o json
  tablemigrate history 6f1c2a9e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			store, err := state.Open(cmd.Context(), cc.Cfg.StatePath, cc.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var runs []*state.Run
			if len(args) == 1 {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				runs = []*state.Run{run}
			} else {
				runs, err = store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
			}

			rows := make([][]any, len(runs))
			for i, r := range runs {
				rows[i] = []any{
					r.ID,
					r.StartedAt.Local().Format(time.DateTime),
					r.SourceTable,
					r.TargetTable,
					string(r.Status),
					r.Rows,
					r.Duration().Round(time.Millisecond).String(),
					r.Error,
				}
			}
			return cc.Renderer.Render(output.Table{
				Headers: []string{"id", "started", "source", "target", "status", "rows", "duration", "error"},
				Rows:    rows,
			}, runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 = all)")

	return cmd
}
