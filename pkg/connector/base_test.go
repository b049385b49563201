package connector

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tablemigrate/pkg/core"
	"github.com/leapstack-labs/tablemigrate/pkg/typemap"
)

func newMockBase(t *testing.T, d typemap.Dialect) (*BaseSQLConnector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	base := NewBase(d, nil)
	base.DB = db
	return &base, mock
}

func usersSchema() core.TableSchema {
	return *core.NewTableSchema("users", []core.ColumnSchema{
		{Name: "id", DataType: "INTEGER", IsNullable: false, IsPrimaryKey: true, OrdinalPosition: 1},
		{Name: "name", DataType: "TEXT", IsNullable: false, OrdinalPosition: 2},
		{Name: "email", DataType: "TEXT", IsNullable: true, OrdinalPosition: 3},
	})
}

func TestBaseSQLConnector_Disconnect(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "disconnect with nil DB", setupDB: false},
		{name: "disconnect with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := NewBase(typemap.SQLite, nil)

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Disconnect())
			assert.False(t, base.IsConnected())
			assert.NoError(t, base.Disconnect(), "second disconnect is a no-op")
		})
	}
}

func TestBaseSQLConnector_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("open and ping", func(t *testing.T) {
		db, _, err := sqlmock.NewWithDSN("base_open_ok")
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		base := NewBase(typemap.SQLite, nil)
		require.NoError(t, base.Open(ctx, "sqlmock", "base_open_ok"))
		assert.True(t, base.IsConnected())

		err = base.Open(ctx, "sqlmock", "base_open_ok")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already connected")
	})

	t.Run("ping failure", func(t *testing.T) {
		db, mock, err := sqlmock.NewWithDSN("base_open_ping", sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectPing().WillReturnError(assert.AnError)

		base := NewBase(typemap.SQLite, nil)
		err = base.Open(ctx, "sqlmock", "base_open_ping")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConnectionFailure)
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, base.IsConnected())
	})

	t.Run("unknown driver", func(t *testing.T) {
		base := NewBase(typemap.SQLite, nil)
		err := base.Open(ctx, "no-such-driver", "")
		assert.ErrorIs(t, err, ErrConnectionFailure)
	})
}

func TestBaseSQLConnector_NotConnected(t *testing.T) {
	ctx := context.Background()
	base := NewBase(typemap.SQLite, nil)

	_, err := base.ListTablesWith(ctx, "SELECT 1", "")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = base.GetSchemaWith(ctx, &fakeCatalog{}, "users")
	assert.ErrorIs(t, err, ErrNotConnected)

	err = base.CreateTable(ctx, "users", usersSchema())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = base.ExtractData(ctx, "users")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = base.LoadData(ctx, "users", []core.Row{core.NewRow(map[string]core.Value{"id": core.Int(1)})})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestBaseSQLConnector_ListTablesWith(t *testing.T) {
	base, mock := newMockBase(t, typemap.SQLite)
	mock.ExpectQuery("SELECT name FROM sqlite_master").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("orders").
			AddRow("sqlite_sequence").
			AddRow("users"))

	tables, err := base.ListTablesWith(context.Background(), "SELECT name FROM sqlite_master", "sqlite_")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildCreateTable(t *testing.T) {
	tests := []struct {
		name    string
		dialect typemap.Dialect
		schema  core.TableSchema
		want    string
	}{
		{
			name:    "single primary key is inline",
			dialect: typemap.SQLite,
			schema:  usersSchema(),
			want: "CREATE TABLE IF NOT EXISTS \"users_migrated\" (\n" +
				"  \"id\" INTEGER NOT NULL PRIMARY KEY,\n" +
				"  \"name\" TEXT NOT NULL,\n" +
				"  \"email\" TEXT\n" +
				")",
		},
		{
			name:    "composite primary key is trailing",
			dialect: typemap.SQLite,
			schema: *core.NewTableSchema("memberships", []core.ColumnSchema{
				{Name: "group_id", DataType: "int", IsPrimaryKey: true, OrdinalPosition: 2},
				{Name: "user_id", DataType: "int", IsPrimaryKey: true, OrdinalPosition: 1},
				{Name: "joined", DataType: "date", IsNullable: true, OrdinalPosition: 3},
			}),
			want: "CREATE TABLE IF NOT EXISTS \"users_migrated\" (\n" +
				"  \"user_id\" INTEGER,\n" +
				"  \"group_id\" INTEGER,\n" +
				"  \"joined\" TEXT,\n" +
				"  PRIMARY KEY (\"user_id\", \"group_id\")\n" +
				")",
		},
		{
			name:    "no primary key",
			dialect: typemap.SQLite,
			schema: *core.NewTableSchema("events", []core.ColumnSchema{
				{Name: "payload", DataType: "json", IsNullable: true, OrdinalPosition: 1},
				{Name: "ok", DataType: "boolean", IsNullable: false, OrdinalPosition: 2},
			}),
			want: "CREATE TABLE IF NOT EXISTS \"users_migrated\" (\n" +
				"  \"payload\" json,\n" +
				"  \"ok\" INTEGER NOT NULL\n" +
				")",
		},
		{
			name:    "mysql quoting and types",
			dialect: typemap.MySQL,
			schema:  usersSchema(),
			want: "CREATE TABLE IF NOT EXISTS `users_migrated` (\n" +
				"  `id` BIGINT NOT NULL PRIMARY KEY,\n" +
				"  `name` TEXT NOT NULL,\n" +
				"  `email` TEXT\n" +
				")",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildCreateTable(tt.dialect, "users_migrated", tt.schema))
		})
	}
}

func TestBaseSQLConnector_CreateTable(t *testing.T) {
	base, mock := newMockBase(t, typemap.SQLite)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "users_migrated"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(assert.AnError)

	require.NoError(t, base.CreateTable(context.Background(), "users_migrated", usersSchema()))

	err := base.CreateTable(context.Background(), "users_migrated", usersSchema())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create table users_migrated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLConnector_ExtractData(t *testing.T) {
	t.Run("rows are converted to values", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.SQLite)
		rows := mock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("id").OfType("INTEGER", int64(0)),
			sqlmock.NewColumn("name").OfType("VARCHAR", ""),
			sqlmock.NewColumn("avatar").OfType("BLOB", []byte{}),
			sqlmock.NewColumn("email").OfType("TEXT", ""),
		).
			AddRow(int64(1), []byte("alice"), []byte{0x01, 0x02}, nil).
			AddRow(int64(2), []byte("bob"), nil, "bob@example.com")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).WillReturnRows(rows)

		data, err := base.ExtractData(context.Background(), "users")
		require.NoError(t, err)
		require.Len(t, data, 2)

		assert.Equal(t, []string{"id", "name", "avatar", "email"}, data[0].Columns)
		assert.Equal(t, []core.Value{core.Int(1), core.Text("alice"), core.Blob{0x01, 0x02}, core.Null{}}, data[0].Values)
		assert.Equal(t, []core.Value{core.Int(2), core.Text("bob"), core.Null{}, core.Text("bob@example.com")}, data[1].Values)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty table yields empty slice", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.SQLite)
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))

		data, err := base.ExtractData(context.Background(), "users")
		require.NoError(t, err)
		assert.NotNil(t, data)
		assert.Empty(t, data)
	})

	t.Run("query failure is an extraction failure", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.SQLite)
		mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

		data, err := base.ExtractData(context.Background(), "missing")
		require.Error(t, err)
		assert.Nil(t, data)
		assert.ErrorIs(t, err, ErrExtractionFailure)
		assert.ErrorIs(t, err, assert.AnError)

		var te *TableError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "missing", te.Table)
	})

	t.Run("iteration failure discards partial rows", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.SQLite)
		rows := sqlmock.NewRows([]string{"id"}).
			AddRow(int64(1)).
			AddRow(int64(2)).
			RowError(1, assert.AnError)
		mock.ExpectQuery("SELECT").WillReturnRows(rows)

		data, err := base.ExtractData(context.Background(), "users")
		assert.Nil(t, data)
		assert.ErrorIs(t, err, ErrExtractionFailure)
	})
}

func TestBaseSQLConnector_LoadData(t *testing.T) {
	insertSQL := regexp.QuoteMeta(`INSERT INTO "users_migrated" ("id", "name", "email") VALUES (?, ?, ?)`)
	rows := []core.Row{
		{Columns: []string{"id", "name", "email"}, Values: []core.Value{core.Int(1), core.Text("alice"), core.Text("a@x")}},
		{Columns: []string{"id", "name"}, Values: []core.Value{core.Int(2), core.Text("bob")}},
	}

	t.Run("commits all rows", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.SQLite)
		mock.ExpectBegin()
		prep := mock.ExpectPrepare(insertSQL)
		prep.ExpectExec().WithArgs(int64(1), "alice", "a@x").WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().WithArgs(int64(2), "bob", nil).WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		n, err := base.LoadData(context.Background(), "users_migrated", rows)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown affected count counts as one", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.SQLite)
		mock.ExpectBegin()
		prep := mock.ExpectPrepare(insertSQL)
		prep.ExpectExec().WillReturnResult(sqlmock.NewErrorResult(errors.New("not supported")))
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		n, err := base.LoadData(context.Background(), "users_migrated", rows)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("row failure rolls back", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.SQLite)
		mock.ExpectBegin()
		prep := mock.ExpectPrepare(insertSQL)
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().WillReturnError(assert.AnError)
		mock.ExpectRollback()

		n, err := base.LoadData(context.Background(), "users_migrated", rows)
		require.Error(t, err)
		assert.Zero(t, n)
		assert.ErrorIs(t, err, ErrLoadFailure)
		assert.ErrorIs(t, err, assert.AnError)

		var te *TableError
		require.ErrorAs(t, err, &te)
		assert.NoError(t, te.RollbackErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback failure is attached", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.SQLite)
		rbErr := errors.New("rollback boom")
		mock.ExpectBegin()
		mock.ExpectPrepare(insertSQL).WillReturnError(assert.AnError)
		mock.ExpectRollback().WillReturnError(rbErr)

		_, err := base.LoadData(context.Background(), "users_migrated", rows)
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
		assert.NotErrorIs(t, err, rbErr)
		assert.Contains(t, err.Error(), "rollback also failed: rollback boom")
	})

	t.Run("commit failure", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.SQLite)
		mock.ExpectBegin()
		prep := mock.ExpectPrepare(insertSQL)
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit().WillReturnError(assert.AnError)

		n, err := base.LoadData(context.Background(), "users_migrated", rows)
		assert.Zero(t, n)
		assert.ErrorIs(t, err, ErrLoadFailure)
	})

	t.Run("begin failure", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.SQLite)
		mock.ExpectBegin().WillReturnError(assert.AnError)

		_, err := base.LoadData(context.Background(), "users_migrated", rows)
		assert.ErrorIs(t, err, ErrLoadFailure)
	})

	t.Run("empty input touches nothing", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.SQLite)

		n, err := base.LoadData(context.Background(), "users_migrated", nil)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = base.LoadData(context.Background(), "users_migrated", []core.Row{{}})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("postgres placeholders", func(t *testing.T) {
		base, mock := newMockBase(t, typemap.Postgres)
		mock.ExpectBegin()
		prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "t" ("a", "b") VALUES ($1, $2)`))
		prep.ExpectExec().WithArgs(true, []byte{0xff}).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		n, err := base.LoadData(context.Background(), "t", []core.Row{
			{Columns: []string{"a", "b"}, Values: []core.Value{core.Bool(true), core.Blob{0xff}}},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

type fakeCatalog struct {
	exists    bool
	existsErr error
	pk        []string
	columns   []core.ColumnSchema
}

func (f *fakeCatalog) TableExists(context.Context, *sql.DB, string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeCatalog) PrimaryKeyColumns(context.Context, *sql.DB, string) ([]string, error) {
	return f.pk, nil
}

func (f *fakeCatalog) Columns(context.Context, *sql.DB, string) ([]core.ColumnSchema, error) {
	return f.columns, nil
}

func TestBaseSQLConnector_GetSchemaWith(t *testing.T) {
	base, _ := newMockBase(t, typemap.SQLite)
	ctx := context.Background()

	t.Run("missing table is absent", func(t *testing.T) {
		schema, err := base.GetSchemaWith(ctx, &fakeCatalog{exists: false}, "nope")
		require.NoError(t, err)
		assert.Nil(t, schema)
	})

	t.Run("catalog error propagates", func(t *testing.T) {
		_, err := base.GetSchemaWith(ctx, &fakeCatalog{existsErr: assert.AnError}, "users")
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("columns sorted and primary key marked", func(t *testing.T) {
		cat := &fakeCatalog{
			exists: true,
			pk:     []string{"id"},
			columns: []core.ColumnSchema{
				{Name: "name", DataType: "TEXT", OrdinalPosition: 2},
				{Name: "id", DataType: "INTEGER", OrdinalPosition: 1},
			},
		}
		schema, err := base.GetSchemaWith(ctx, cat, "users")
		require.NoError(t, err)
		require.NotNil(t, schema)
		assert.Equal(t, "users", schema.Name)
		assert.Equal(t, []string{"id", "name"}, schema.ColumnNames())
		assert.True(t, schema.Columns[0].IsPrimaryKey)
		assert.False(t, schema.Columns[1].IsPrimaryKey)
	})
}
