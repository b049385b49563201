// Package connector defines the database connector contract used by the
// migration pipeline, together with the shared database/sql implementation
// that concrete connectors embed.
//
// Concrete connectors live in pkg/connectors/ subdirectories and register
// themselves by name from their init() functions.
package connector

import (
	"context"

	"github.com/leapstack-labs/tablemigrate/pkg/core"
	"github.com/leapstack-labs/tablemigrate/pkg/typemap"
)

// Connector owns at most one physical database connection.
//
// The lifecycle is Disconnected -> Connected -> Disconnected. Every operation
// other than Connect and Disconnect fails with ErrNotConnected while
// disconnected. A Connector is not safe for concurrent use; callers serialize
// calls to one instance. Independent instances share no state.
type Connector interface {
	// Connect opens the physical connection. It fails with ErrUnsupportedConfigKind
	// when the config variant does not match the backend and with
	// ErrConnectionFailure when the backend rejects the attempt.
	Connect(ctx context.Context, cfg core.ConnectionConfig) error

	// Disconnect releases the connection. It is idempotent and safe to call
	// even if Connect never succeeded.
	Disconnect() error

	// ListTables enumerates user tables, excluding backend-internal ones.
	// Ordering is backend-defined.
	ListTables(ctx context.Context) ([]string, error)

	// GetSchema introspects a table. It returns nil and no error when the
	// table does not exist.
	GetSchema(ctx context.Context, table string) (*core.TableSchema, error)

	// CreateTable creates the table from schema unless a table with that name
	// already exists, in which case it does nothing.
	CreateTable(ctx context.Context, name string, schema core.TableSchema) error

	// ExtractData reads every row of the table in backend order.
	// Read failures are reported as ErrExtractionFailure.
	ExtractData(ctx context.Context, table string) ([]core.Row, error)

	// LoadData inserts rows in a single all-or-nothing transaction and
	// returns the number of rows inserted. The column set is taken from the
	// first row.
	LoadData(ctx context.Context, table string, rows []core.Row) (int64, error)

	// Dialect returns the type vocabulary and identifier syntax of the backend.
	Dialect() typemap.Dialect
}
