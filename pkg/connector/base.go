package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/tablemigrate/pkg/core"
	"github.com/leapstack-labs/tablemigrate/pkg/typemap"
)

// BaseSQLConnector provides the database/sql functionality shared by connectors.
// Embed it in concrete connectors to get Disconnect, CreateTable, ExtractData,
// LoadData and Dialect; the concrete type supplies Connect, ListTables and
// GetSchema on top of the catalog of its backend.
type BaseSQLConnector struct {
	DB         *sql.DB
	Logger     *slog.Logger
	SQLDialect typemap.Dialect

	// NormalizeValue, when set, converts driver-specific scanned values.
	// It receives the column's database type name and reports false to
	// fall back to the generic conversion.
	NormalizeValue func(databaseType string, v any) (core.Value, bool)
}

// NewBase returns a base with the given dialect. A nil logger discards output.
func NewBase(d typemap.Dialect, logger *slog.Logger) BaseSQLConnector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return BaseSQLConnector{Logger: logger, SQLDialect: d}
}

// Dialect returns the backend dialect.
func (b *BaseSQLConnector) Dialect() typemap.Dialect {
	return b.SQLDialect
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLConnector) IsConnected() bool {
	return b.DB != nil
}

// RequireConnected returns ErrNotConnected, annotated with op, when disconnected.
func (b *BaseSQLConnector) RequireConnected(op string) error {
	if b.DB == nil {
		return fmt.Errorf("%s: %w", op, ErrNotConnected)
	}
	return nil
}

// Open opens driverName with dsn, pins the pool to a single physical
// connection and pings it. Failures wrap ErrConnectionFailure.
func (b *BaseSQLConnector) Open(ctx context.Context, driverName, dsn string) error {
	if b.DB != nil {
		return fmt.Errorf("%s connector is already connected", b.SQLDialect.Name)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s connection: %w", ErrConnectionFailure, driverName, err)
	}

	// One connector owns exactly one physical connection; the load
	// transaction and every metadata query share it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: failed to ping %s: %w", ErrConnectionFailure, driverName, err)
	}

	b.DB = db
	b.Logger.Debug("connected", slog.String("dialect", b.SQLDialect.Name), slog.String("driver", driverName))
	return nil
}

// Disconnect closes the database connection. It is safe to call repeatedly
// and on a connector that never connected.
func (b *BaseSQLConnector) Disconnect() error {
	if b.DB == nil {
		return nil
	}
	b.Logger.Debug("closing database connection", slog.String("dialect", b.SQLDialect.Name))
	err := b.DB.Close()
	b.DB = nil
	if err != nil {
		b.Logger.Warn("error while disconnecting", slog.String("error", err.Error()))
	}
	return nil
}

// ListTablesWith runs a single-column catalog query and drops names starting
// with excludePrefix (when non-empty).
func (b *BaseSQLConnector) ListTablesWith(ctx context.Context, query, excludePrefix string, args ...any) ([]string, error) {
	if err := b.RequireConnected("list tables"); err != nil {
		return nil, err
	}

	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		if excludePrefix != "" && strings.HasPrefix(name, excludePrefix) {
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	b.Logger.Debug("retrieved tables", slog.Int("count", len(tables)))
	return tables, nil
}

// Catalog answers the backend-specific metadata questions behind GetSchema.
type Catalog interface {
	// TableExists reports whether a user table with this name exists.
	TableExists(ctx context.Context, db *sql.DB, table string) (bool, error)

	// PrimaryKeyColumns returns the names of the primary key columns.
	PrimaryKeyColumns(ctx context.Context, db *sql.DB, table string) ([]string, error)

	// Columns returns one ColumnSchema per column; IsPrimaryKey is filled in by the caller.
	Columns(ctx context.Context, db *sql.DB, table string) ([]core.ColumnSchema, error)
}

// GetSchemaWith introspects a table through a Catalog. Existence is checked
// explicitly so a missing table is never confused with a columnless one.
func (b *BaseSQLConnector) GetSchemaWith(ctx context.Context, cat Catalog, table string) (*core.TableSchema, error) {
	if err := b.RequireConnected("get schema"); err != nil {
		return nil, err
	}

	exists, err := cat.TableExists(ctx, b.DB, table)
	if err != nil {
		return nil, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	if !exists {
		b.Logger.Warn("table not found", slog.String("table", table))
		return nil, nil
	}

	pkNames, err := cat.PrimaryKeyColumns(ctx, b.DB, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key metadata: %w", err)
	}
	pk := make(map[string]bool, len(pkNames))
	for _, name := range pkNames {
		pk[name] = true
	}

	columns, err := cat.Columns(ctx, b.DB, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	for i := range columns {
		columns[i].IsPrimaryKey = pk[columns[i].Name]
	}

	b.Logger.Debug("retrieved schema", slog.String("table", table), slog.Int("columns", len(columns)))
	return core.NewTableSchema(table, columns), nil
}

// CreateTable creates the table if it does not already exist.
// An existing table is left untouched even when its structure differs.
func (b *BaseSQLConnector) CreateTable(ctx context.Context, name string, schema core.TableSchema) error {
	if err := b.RequireConnected("create table"); err != nil {
		return err
	}

	ddl := BuildCreateTable(b.SQLDialect, name, schema)
	if _, err := b.DB.ExecContext(ctx, ddl); err != nil {
		b.Logger.Error("failed to create table", slog.String("table", name), slog.String("sql", ddl))
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	b.Logger.Info("table created or already exists", slog.String("table", name))
	return nil
}

// BuildCreateTable renders an idempotent CREATE TABLE statement for the dialect.
//
// Each column gets its mapped type and NOT NULL when not nullable. A single
// primary key column carries an inline PRIMARY KEY; several produce one
// trailing composite constraint in ordinal order; none produce no constraint.
func BuildCreateTable(d typemap.Dialect, name string, schema core.TableSchema) string {
	ordered := core.NewTableSchema(schema.Name, schema.Columns)
	pk := ordered.PrimaryKey()

	defs := make([]string, 0, len(ordered.Columns)+1)
	for _, col := range ordered.Columns {
		def := d.QuoteIdent(col.Name) + " " + typemap.Map(col.DataType, d)
		if !col.IsNullable {
			def += " NOT NULL"
		}
		if col.IsPrimaryKey && len(pk) == 1 {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}

	if len(pk) > 1 {
		keys := make([]string, len(pk))
		for i, col := range pk {
			keys[i] = d.QuoteIdent(col.Name)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", d.QuoteIdent(name), strings.Join(defs, ",\n  "))
}

// ExtractData selects every row and column of the table. Row keys are the
// result column labels. Any read failure is returned as ErrExtractionFailure;
// a partial result is never returned.
func (b *BaseSQLConnector) ExtractData(ctx context.Context, table string) ([]core.Row, error) {
	if err := b.RequireConnected("extract data"); err != nil {
		return nil, err
	}

	data, err := b.extract(ctx, table)
	if err != nil {
		b.Logger.Error("failed to extract data", slog.String("table", table), slog.String("error", err.Error()))
		return nil, &TableError{Kind: ErrExtractionFailure, Table: table, Err: err}
	}

	b.Logger.Info("extracted rows", slog.String("table", table), slog.Int("rows", len(data)))
	return data, nil
}

func (b *BaseSQLConnector) extract(ctx context.Context, table string) ([]core.Row, error) {
	//nolint:gosec // identifier is quoted by the dialect
	rows, err := b.DB.QueryContext(ctx, "SELECT * FROM "+b.SQLDialect.QuoteIdent(table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(colTypes))
	dbTypes := make([]string, len(colTypes))
	binary := make([]bool, len(colTypes))
	for i, ct := range colTypes {
		cols[i] = ct.Name()
		dbTypes[i] = ct.DatabaseTypeName()
		binary[i] = typemap.IsBinary(dbTypes[i])
	}

	data := []core.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := core.Row{Columns: cols, Values: make([]core.Value, len(cols))}
		for i, v := range values {
			if b.NormalizeValue != nil && v != nil {
				if nv, ok := b.NormalizeValue(dbTypes[i], v); ok {
					row.Values[i] = nv
					continue
				}
			}
			if raw, ok := v.([]byte); ok && !binary[i] {
				row.Values[i] = core.Text(raw)
				continue
			}
			row.Values[i] = core.FromDriver(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// LoadData inserts rows inside one transaction: one parameterized INSERT per
// row, committed only if every row succeeds. On failure the transaction is
// rolled back and the original error is returned as ErrLoadFailure.
func (b *BaseSQLConnector) LoadData(ctx context.Context, table string, rows []core.Row) (int64, error) {
	if err := b.RequireConnected("load data"); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		b.Logger.Info("no data provided to load", slog.String("table", table))
		return 0, nil
	}

	columns := rows[0].Columns
	if len(columns) == 0 {
		b.Logger.Warn("rows have no columns, nothing to load", slog.String("table", table))
		return 0, nil
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, &TableError{Kind: ErrLoadFailure, Table: table, Err: err}
	}

	inserted, err := b.insertAll(ctx, tx, table, columns, rows)
	if err == nil {
		if err = tx.Commit(); err == nil {
			b.Logger.Info("loaded rows", slog.String("table", table), slog.Int64("rows", inserted))
			return inserted, nil
		}
		// A failed commit ends the transaction; there is nothing left to roll back.
		return 0, &TableError{Kind: ErrLoadFailure, Table: table, Err: err}
	}

	b.Logger.Error("failed to load data, rolling back", slog.String("table", table), slog.String("error", err.Error()))
	loadErr := &TableError{Kind: ErrLoadFailure, Table: table, Err: err}
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		b.Logger.Error("rollback failed", slog.String("table", table), slog.String("error", rbErr.Error()))
		loadErr.RollbackErr = rbErr
	}
	return 0, loadErr
}

func (b *BaseSQLConnector) insertAll(ctx context.Context, tx *sql.Tx, table string, columns []string, rows []core.Row) (int64, error) {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = b.SQLDialect.QuoteIdent(col)
		placeholders[i] = b.SQLDialect.FormatPlaceholder(i + 1)
	}

	//nolint:gosec // identifiers are quoted by the dialect
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.SQLDialect.QuoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var inserted int64
	args := make([]any, len(columns))
	for i, row := range rows {
		for j, col := range columns {
			v, ok := row.Get(col)
			if !ok || v == nil {
				v = core.Null{}
			}
			args[j] = v
		}

		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}

		n, err := res.RowsAffected()
		if err != nil || n < 0 {
			// The driver cannot report an affected count for this entry.
			n = 1
		}
		inserted += n
	}
	return inserted, nil
}
