package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tablemigrate/internal/cli/output"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
	"github.com/leapstack-labs/tablemigrate/pkg/typemap"
)

// columnView is the serialized form of one column.
type columnView struct {
	Position   int    `json:"position" yaml:"position"`
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	Family     string `json:"family" yaml:"family"`
	Nullable   bool   `json:"nullable" yaml:"nullable"`
	PrimaryKey bool   `json:"primary_key" yaml:"primary_key"`
	MappedType string `json:"mapped_type,omitempty" yaml:"mapped_type,omitempty"`
}

type schemaView struct {
	Table   string       `json:"table" yaml:"table"`
	Dialect string       `json:"dialect,omitempty" yaml:"dialect,omitempty"`
	Columns []columnView `json:"columns" yaml:"columns"`
}

func newSchemaView(schema *core.TableSchema, target *typemap.Dialect) schemaView {
	view := schemaView{Table: schema.Name, Columns: make([]columnView, len(schema.Columns))}
	if target != nil {
		view.Dialect = target.Name
	}
	for i, c := range schema.Columns {
		cv := columnView{
			Position:   c.OrdinalPosition,
			Name:       c.Name,
			Type:       c.DataType,
			Family:     typemap.Classify(c.DataType).String(),
			Nullable:   c.IsNullable,
			PrimaryKey: c.IsPrimaryKey,
		}
		if target != nil {
			cv.MappedType = typemap.Map(c.DataType, *target)
		}
		view.Columns[i] = cv
	}
	return view
}

func (v schemaView) table() output.Table {
	headers := []string{"#", "column", "type", "family", "nullable", "pk"}
	if v.Dialect != "" {
		headers = append(headers, v.Dialect)
	}
	rows := make([][]any, len(v.Columns))
	for i, c := range v.Columns {
		row := []any{c.Position, c.Name, c.Type, c.Family, yesNo(c.Nullable), yesNo(c.PrimaryKey)}
		if v.Dialect != "" {
			row = append(row, c.MappedType)
		}
		rows[i] = row
	}
	return output.Table{Title: v.Table, Headers: headers, Rows: rows}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var (
		side  string
		mapTo string
	)

	cmd := &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the columns of a table",
		Long: `Introspect a table and print its columns in ordinal order.

With --map-to, each column also shows the type it would be created with
in the given dialect.`,
		Example: `  tablemigrate schema users --source app.db
  tablemigrate schema users --map-to postgres -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			var target *typemap.Dialect
			if mapTo != "" {
				d, err := typemap.Lookup(mapTo)
				if err != nil {
					return err
				}
				target = &d
			}

			ctx, cancel := cc.Context(cmd.Context())
			defer cancel()

			conn, _, err := cc.ConnectEndpoint(ctx, side)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Disconnect() }()

			schema, err := conn.GetSchema(ctx, args[0])
			if err != nil {
				return err
			}
			if schema == nil {
				return fmt.Errorf("table %q not found", args[0])
			}

			view := newSchemaView(schema, target)
			return cc.Renderer.Render(view.table(), view)
		},
	}

	cmd.Flags().StringVar(&side, "side", "source", "which endpoint to inspect (source|target)")
	cmd.Flags().StringVar(&mapTo, "map-to", "", "also show mapped types for a dialect ("+strings.Join(typemap.Names(), "|")+")")
	_ = cmd.RegisterFlagCompletionFunc("map-to", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return typemap.Names(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
