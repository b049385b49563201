// Package sqlite provides the SQLite connector for tablemigrate.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/tablemigrate/pkg/connector"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
	"github.com/leapstack-labs/tablemigrate/pkg/typemap"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// systemTablePrefix marks SQLite internal tables such as sqlite_sequence.
const systemTablePrefix = "sqlite_"

// Connector implements connector.Connector for SQLite database files.
type Connector struct {
	connector.BaseSQLConnector
}

var _ connector.Connector = (*Connector)(nil)

// New creates a new SQLite connector instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Connector {
	c := &Connector{BaseSQLConnector: connector.NewBase(typemap.SQLite, logger)}
	c.NormalizeValue = normalizeValue
	return c
}

// Connect opens the database file named by a FileBacked config.
// Use ":memory:" as the path for an in-memory database.
func (c *Connector) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	fb, err := fileConfig(cfg)
	if err != nil {
		return err
	}

	c.Logger.Debug("connecting to sqlite", slog.String("path", fb.Path))
	return c.Open(ctx, DriverName, buildDSN(fb.Path))
}

func fileConfig(cfg core.ConnectionConfig) (core.FileBacked, error) {
	var fb core.FileBacked
	switch v := cfg.(type) {
	case core.FileBacked:
		fb = v
	case *core.FileBacked:
		fb = *v
	case nil:
		return fb, fmt.Errorf("sqlite connector: %w: no config", connector.ErrUnsupportedConfigKind)
	default:
		return fb, &connector.ConfigKindError{Connector: "sqlite", Got: cfg.Kind(), Want: core.KindFileBacked}
	}
	if err := fb.Validate(); err != nil {
		return fb, err
	}
	return fb, nil
}

// buildDSN appends the session pragmas to the file path.
func buildDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// ListTables returns user tables, excluding SQLite internal tables.
func (c *Connector) ListTables(ctx context.Context) ([]string, error) {
	return c.ListTablesWith(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name",
		systemTablePrefix,
	)
}

// GetSchema introspects a table. A missing table yields (nil, nil).
func (c *Connector) GetSchema(ctx context.Context, table string) (*core.TableSchema, error) {
	return c.GetSchemaWith(ctx, catalog{}, table)
}

// catalog reads table metadata through sqlite_master and pragma_table_info.
type catalog struct{}

func (catalog) TableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (catalog) PrimaryKeyColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk", table)
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

func (catalog) Columns(ctx context.Context, db *sql.DB, table string) ([]core.ColumnSchema, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT cid, name, type, "notnull" FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []core.ColumnSchema
	for rows.Next() {
		var (
			cid     int
			col     core.ColumnSchema
			notNull int
		)
		if err := rows.Scan(&cid, &col.Name, &col.DataType, &notNull); err != nil {
			return nil, err
		}
		col.OrdinalPosition = cid + 1
		col.IsNullable = notNull == 0
		columns = append(columns, col)
	}
	return columns, rows.Err()
}
