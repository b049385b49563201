package network

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tablemigrate/internal/testutil"
	"github.com/leapstack-labs/tablemigrate/pkg/connector"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
	"github.com/leapstack-labs/tablemigrate/pkg/typemap"
)

func newMockConnector(t *testing.T, f flavour) (*Connector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c := New(testutil.NewTestLogger(t))
	c.DB = db
	c.flavour = f
	c.SQLDialect = f.dialect
	return c, mock
}

func TestLookupFlavour(t *testing.T) {
	tests := []struct {
		driverID  string
		sqlDriver string
		dialect   string
	}{
		{"pgx", "pgx", "postgres"},
		{"postgres", "postgres", "postgres"},
		{"pq", "postgres", "postgres"},
		{"org.postgresql.Driver", "pgx", "postgres"},
		{"MySQL", "mysql", "mysql"},
		{"com.mysql.cj.jdbc.Driver", "mysql", "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.driverID, func(t *testing.T) {
			f, ok := lookupFlavour(tt.driverID)
			require.True(t, ok)
			assert.Equal(t, tt.sqlDriver, f.sqlDriver)
			assert.Equal(t, tt.dialect, f.dialect.Name)
		})
	}

	_, ok := lookupFlavour("oracle")
	assert.False(t, ok)
}

func TestConnector_Connect_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("file config rejected", func(t *testing.T) {
		err := New(nil).Connect(ctx, core.FileBacked{Path: "app.db"})
		assert.ErrorIs(t, err, connector.ErrUnsupportedConfigKind)
	})

	t.Run("unknown driver", func(t *testing.T) {
		err := New(nil).Connect(ctx, core.NetworkBacked{URI: "oracle://x", DriverID: "oracle"})
		require.Error(t, err)
		assert.ErrorIs(t, err, connector.ErrConnectionFailure)
		assert.Contains(t, err.Error(), "pgx")
	})

	t.Run("malformed uri", func(t *testing.T) {
		err := New(nil).Connect(ctx, core.NetworkBacked{URI: "mysql://db/%zz", DriverID: "mysql"})
		assert.ErrorIs(t, err, connector.ErrConnectionFailure)
	})

	t.Run("missing uri", func(t *testing.T) {
		err := New(nil).Connect(ctx, core.NetworkBacked{DriverID: "pgx"})
		assert.Error(t, err)
	})
}

func TestConnector_Connect_WhileConnectedKeepsFlavour(t *testing.T) {
	c, mock := newMockConnector(t, pgxFlavour)

	err := c.Connect(context.Background(), core.NetworkBacked{URI: "mysql://db.internal:3306/app", DriverID: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already connected")

	assert.Equal(t, "postgres", c.Dialect().Name)
	assert.Equal(t, "pgx", c.flavour.sqlDriver)

	// The live connection is still driven with postgres catalog queries.
	mock.ExpectQuery("current_schema\\(\\)").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))
	tables, err := c.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnector_ListTables(t *testing.T) {
	c, mock := newMockConnector(t, pgxFlavour)
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders").AddRow("users"))

	tables, err := c.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnector_GetSchema_Postgres(t *testing.T) {
	c, mock := newMockConnector(t, pgxFlavour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("PRIMARY KEY").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("email", "text", "YES", 3).
			AddRow("id", "integer", "NO", 1).
			AddRow("name", "character varying", "NO", 2))

	schema, err := c.GetSchema(context.Background(), "users")
	require.NoError(t, err)
	require.NotNil(t, schema)

	assert.Equal(t, []core.ColumnSchema{
		{Name: "id", DataType: "integer", IsNullable: false, IsPrimaryKey: true, OrdinalPosition: 1},
		{Name: "name", DataType: "character varying", IsNullable: false, OrdinalPosition: 2},
		{Name: "email", DataType: "text", IsNullable: true, OrdinalPosition: 3},
	}, schema.Columns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnector_GetSchema_Missing(t *testing.T) {
	c, mock := newMockConnector(t, myFlavour)
	mock.ExpectQuery("DATABASE()").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	schema, err := c.GetSchema(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, schema)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnector_MySQLStatements(t *testing.T) {
	c, mock := newMockConnector(t, myFlavour)
	ctx := context.Background()

	schema := core.NewTableSchema("users", []core.ColumnSchema{
		{Name: "id", DataType: "INTEGER", IsPrimaryKey: true, OrdinalPosition: 1},
		{Name: "active", DataType: "BOOLEAN", IsNullable: true, OrdinalPosition: 2},
	})

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `users_migrated` (\n  `id` BIGINT NOT NULL PRIMARY KEY,\n  `active` BOOLEAN\n)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO `users_migrated` (`id`, `active`) VALUES (?, ?)")).
		ExpectExec().
		WithArgs(int64(7), true).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	require.NoError(t, c.CreateTable(ctx, "users_migrated", *schema))
	n, err := c.LoadData(ctx, "users_migrated", []core.Row{
		{Columns: []string{"id", "active"}, Values: []core.Value{core.Int(7), core.Bool(true)}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, typemap.MySQL, c.Dialect())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistered(t *testing.T) {
	c, err := connector.ForConfig(core.NetworkBacked{URI: "postgres://localhost/app", DriverID: "pgx"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Connector{}, c)
}
