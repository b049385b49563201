// Package network provides the connector for network-backed databases
// reached through a URI: PostgreSQL (pgx or lib/pq) and MySQL.
package network

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/tablemigrate/pkg/connector"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
	"github.com/leapstack-labs/tablemigrate/pkg/typemap"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "github.com/lib/pq"              // postgres driver
)

// flavour binds a driver id to its database/sql driver, dialect and catalog queries.
type flavour struct {
	sqlDriver string
	dialect   typemap.Dialect
	buildDSN  func(core.NetworkBacked) (string, error)
	queries   catalogQueries
}

// catalogQueries take the table name as their only argument and resolve it
// against the session's current schema or database.
type catalogQueries struct {
	listTables  string
	tableExists string
	primaryKey  string
	columns     string
}

var postgresQueries = catalogQueries{
	listTables: `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	tableExists: `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1 AND table_type = 'BASE TABLE'`,
	primaryKey: `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = current_schema()
			AND tc.table_name = $1
		ORDER BY kcu.ordinal_position`,
	columns: `
		SELECT column_name, data_type, is_nullable, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`,
}

var mysqlQueries = catalogQueries{
	listTables: `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	tableExists: `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ? AND table_type = 'BASE TABLE'`,
	primaryKey: `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ? AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`,
	columns: `
		SELECT column_name, data_type, is_nullable, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`,
}

var (
	pgxFlavour = flavour{sqlDriver: "pgx", dialect: typemap.Postgres, buildDSN: buildPostgresDSN, queries: postgresQueries}
	pqFlavour  = flavour{sqlDriver: "postgres", dialect: typemap.Postgres, buildDSN: buildPostgresDSN, queries: postgresQueries}
	myFlavour  = flavour{sqlDriver: "mysql", dialect: typemap.MySQL, buildDSN: buildMySQLDSN, queries: mysqlQueries}
)

// flavours maps driver ids, including JDBC driver class names, to flavours.
var flavours = map[string]flavour{
	"pgx":                      pgxFlavour,
	"postgres":                 pqFlavour,
	"postgresql":               pqFlavour,
	"pq":                       pqFlavour,
	"org.postgresql.driver":    pgxFlavour,
	"mysql":                    myFlavour,
	"com.mysql.cj.jdbc.driver": myFlavour,
	"com.mysql.jdbc.driver":    myFlavour,
}

// DriverIDs returns the accepted driver ids (sorted).
func DriverIDs() []string {
	ids := make([]string, 0, len(flavours))
	for id := range flavours {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func lookupFlavour(driverID string) (flavour, bool) {
	f, ok := flavours[strings.ToLower(strings.TrimSpace(driverID))]
	return f, ok
}

// Connector implements connector.Connector for PostgreSQL and MySQL servers.
// The dialect is fixed by the driver id at Connect time.
type Connector struct {
	connector.BaseSQLConnector
	flavour flavour
}

var _ connector.Connector = (*Connector)(nil)

// New creates a new network connector instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Connector {
	return &Connector{
		BaseSQLConnector: connector.NewBase(typemap.Postgres, logger),
		flavour:          pgxFlavour,
	}
}

// Connect opens the server named by a NetworkBacked config.
func (c *Connector) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	var nb core.NetworkBacked
	switch v := cfg.(type) {
	case core.NetworkBacked:
		nb = v
	case *core.NetworkBacked:
		nb = *v
	case nil:
		return fmt.Errorf("network connector: %w: no config", connector.ErrUnsupportedConfigKind)
	default:
		return &connector.ConfigKindError{Connector: "network", Got: cfg.Kind(), Want: core.KindNetworkBacked}
	}
	if err := nb.Validate(); err != nil {
		return err
	}
	if c.IsConnected() {
		return fmt.Errorf("%s connector is already connected", c.SQLDialect.Name)
	}

	f, ok := lookupFlavour(nb.DriverID)
	if !ok {
		return fmt.Errorf("%w: unknown driver %q (supported: %s)",
			connector.ErrConnectionFailure, nb.DriverID, strings.Join(DriverIDs(), ", "))
	}

	dsn, err := f.buildDSN(nb)
	if err != nil {
		return fmt.Errorf("%w: %w", connector.ErrConnectionFailure, err)
	}

	c.Logger.Debug("connecting to database server",
		slog.String("driver", f.sqlDriver),
		slog.String("dialect", f.dialect.Name))
	if err := c.Open(ctx, f.sqlDriver, dsn); err != nil {
		return err
	}

	// The flavour only changes once its connection is open.
	c.flavour = f
	c.SQLDialect = f.dialect
	return nil
}

// ListTables returns the base tables of the current schema or database.
func (c *Connector) ListTables(ctx context.Context) ([]string, error) {
	return c.ListTablesWith(ctx, c.flavour.queries.listTables, "")
}

// GetSchema introspects a table of the current schema or database.
// A missing table yields (nil, nil).
func (c *Connector) GetSchema(ctx context.Context, table string) (*core.TableSchema, error) {
	return c.GetSchemaWith(ctx, catalog{q: c.flavour.queries}, table)
}

// catalog reads table metadata through information_schema.
type catalog struct {
	q catalogQueries
}

func (k catalog) TableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, k.q.tableExists, table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (k catalog) PrimaryKeyColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, k.q.primaryKey, table)
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
	rows, err := db.QueryContext(ctx, k.q.columns, table)
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
