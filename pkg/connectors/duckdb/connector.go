// Package duckdb provides the DuckDB connector for tablemigrate.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tablemigrate/pkg/connector"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
	"github.com/leapstack-labs/tablemigrate/pkg/typemap"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// DriverName is the database/sql driver registered by go-duckdb.
const DriverName = "duckdb"

// defaultSchema is the schema unqualified table names resolve to.
const defaultSchema = "main"

// Connector implements connector.Connector for DuckDB database files.
type Connector struct {
	connector.BaseSQLConnector
}

var _ connector.Connector = (*Connector)(nil)

// New creates a new DuckDB connector instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Connector {
	c := &Connector{BaseSQLConnector: connector.NewBase(typemap.DuckDB, logger)}
	c.NormalizeValue = normalizeValue
	return c
}

// Connect opens the DuckDB file named by a FileBacked config.
// Use ":memory:" as the path for an in-memory database.
func (c *Connector) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	var fb core.FileBacked
	switch v := cfg.(type) {
	case core.FileBacked:
		fb = v
	case *core.FileBacked:
		fb = *v
	case nil:
		return fmt.Errorf("duckdb connector: %w: no config", connector.ErrUnsupportedConfigKind)
	default:
		return &connector.ConfigKindError{Connector: "duckdb", Got: cfg.Kind(), Want: core.KindFileBacked}
	}
	if err := fb.Validate(); err != nil {
		return err
	}

	path := fb.Path
	if path == ":memory:" {
		// go-duckdb treats the empty DSN as an in-memory database.
		path = ""
	}

	c.Logger.Debug("connecting to duckdb", slog.String("path", fb.Path))
	return c.Open(ctx, DriverName, path)
}

// ListTables returns the base tables of the main schema.
func (c *Connector) ListTables(ctx context.Context) ([]string, error) {
	return c.ListTablesWith(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, "", defaultSchema)
}

// GetSchema introspects a table of the main schema. A missing table yields (nil, nil).
func (c *Connector) GetSchema(ctx context.Context, table string) (*core.TableSchema, error) {
	return c.GetSchemaWith(ctx, catalog{schema: defaultSchema}, table)
}

// catalog reads table metadata through information_schema and duckdb_constraints().
type catalog struct {
	schema string
}

func (k catalog) TableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ? AND table_type = 'BASE TABLE'
	`, k.schema, table).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (k catalog) PrimaryKeyColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT unnest(constraint_column_names)
		FROM duckdb_constraints()
		WHERE schema_name = ? AND table_name = ? AND constraint_type = 'PRIMARY KEY'
	`, k.schema, table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (k catalog) Columns(ctx context.Context, db *sql.DB, table string) ([]core.ColumnSchema, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`, k.schema, table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []core.ColumnSchema
	for rows.Next() {
		var col core.ColumnSchema
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.OrdinalPosition); err != nil {
			return nil, err
		}
		col.IsNullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}
