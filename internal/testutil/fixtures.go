package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// UsersDDL creates the users table used by connector and pipeline tests.
const UsersDDL = `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT)`

// UsersSeed inserts two users; the second has a NULL email.
var UsersSeed = []string{
	`INSERT INTO users (id, name, email) VALUES (1, 'Ann', 'a@x.com')`,
	`INSERT INTO users (id, name, email) VALUES (2, 'Bo', NULL)`,
}

// TempDBPath returns a path for a database file inside t.TempDir().
func TempDBPath(t testing.TB, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// SeedSQLite opens the SQLite file at path, creating it if needed, and runs stmts.
func SeedSQLite(t testing.TB, path string, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, "seed statement: %s", stmt)
	}
}

// QuerySQLite runs a single-value query against the SQLite file at path.
func QuerySQLite(t testing.TB, path, query string, dest any) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, db.QueryRow(query).Scan(dest))
}

// UsersDB returns the path of a fresh SQLite file holding the seeded users table.
func UsersDB(t testing.TB) string {
	t.Helper()
	path := TempDBPath(t, "source.db")
	SeedSQLite(t, path, append([]string{UsersDDL}, UsersSeed...)...)
	return path
}
