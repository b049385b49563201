package typemap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PlaceholderStyle is how a dialect spells bind parameters.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for every parameter.
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, ...
	PlaceholderDollar
)

// Dialect is the type vocabulary and identifier syntax of one backend.
type Dialect struct {
	Name string

	Integer string
	Text    string
	Real    string
	Blob    string
	// Boolean is the smallest integer type when the backend has no native boolean.
	Boolean string

	// Quote is the identifier quote character.
	Quote string

	Placeholder PlaceholderStyle
}

// Built-in dialects.
var (
	SQLite = Dialect{
		Name:    "sqlite",
		Integer: "INTEGER",
		Text:    "TEXT",
		Real:    "REAL",
		Blob:    "BLOB",
		Boolean: "INTEGER",
		Quote:   `"`,
	}

	DuckDB = Dialect{
		Name:    "duckdb",
		Integer: "BIGINT",
		Text:    "VARCHAR",
		Real:    "DOUBLE",
		Blob:    "BLOB",
		Boolean: "BOOLEAN",
		Quote:   `"`,
	}

	Postgres = Dialect{
		Name:        "postgres",
		Integer:     "BIGINT",
		Text:        "TEXT",
		Real:        "DOUBLE PRECISION",
		Blob:        "BYTEA",
		Boolean:     "BOOLEAN",
		Quote:       `"`,
		Placeholder: PlaceholderDollar,
	}

	MySQL = Dialect{
		Name:    "mysql",
		Integer: "BIGINT",
		Text:    "TEXT",
		Real:    "DOUBLE",
		Blob:    "LONGBLOB",
		Boolean: "BOOLEAN",
		Quote:   "`",
	}
)

var builtins = map[string]Dialect{
	SQLite.Name:   SQLite,
	DuckDB.Name:   DuckDB,
	Postgres.Name: Postgres,
	MySQL.Name:    MySQL,
}

// Lookup returns a built-in dialect by name.
func Lookup(name string) (Dialect, error) {
	d, ok := builtins[strings.ToLower(name)]
	if !ok {
		return Dialect{}, fmt.Errorf("unknown dialect %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// Names returns the built-in dialect names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// QuoteIdent quotes an identifier, doubling any embedded quote characters.
func (d Dialect) QuoteIdent(name string) string {
	q := d.Quote
	if q == "" {
		q = `"`
	}
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// FormatPlaceholder returns the bind parameter for the 1-based index n.
func (d Dialect) FormatPlaceholder(n int) string {
	if d.Placeholder == PlaceholderDollar {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
