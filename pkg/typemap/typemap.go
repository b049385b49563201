// Package typemap maps column types between SQL dialects.
//
// Mapping is pure and deterministic: a source type string is classified into a
// Family by ordered, case-insensitive substring rules (first match wins), and the
// family is rendered with the target dialect's vocabulary. Types no rule
// recognizes pass through unchanged.
package typemap

import "strings"

// Family is a coarse type class shared by every dialect.
type Family int

const (
	// Unknown means no rule matched; the source type is kept verbatim.
	Unknown Family = iota
	// Integer covers INT, INTEGER, BIGINT, SMALLINT, TINYINT, ...
	Integer
	// Text covers CHAR, VARCHAR, TEXT, CLOB, STRING, ...
	Text
	// Real covers REAL, FLOAT, DOUBLE, DOUBLE PRECISION, ...
	Real
	// Blob covers BLOB, BINARY, VARBINARY, BYTEA, ...
	Blob
	// Boolean covers BOOL and BOOLEAN.
	Boolean
	// Temporal covers DATE, TIME, DATETIME, TIMESTAMP, ... stored as ISO-8601 text.
	Temporal
)

// String returns the lowercase family name.
func (f Family) String() string {
	switch f {
	case Integer:
		return "integer"
	case Text:
		return "text"
	case Real:
		return "real"
	case Blob:
		return "blob"
	case Boolean:
		return "boolean"
	case Temporal:
		return "temporal"
	default:
		return "unknown"
	}
}

type rule struct {
	needles []string
	family  Family
}

// rules are evaluated in order; the first rule with a matching needle wins.
var rules = []rule{
	// INTERVAL contains INT but is a duration.
	{needles: []string{"INTERVAL"}, family: Temporal},
	{needles: []string{"INT"}, family: Integer},
	{needles: []string{"CHAR", "TEXT", "CLOB", "STRING"}, family: Text},
	{needles: []string{"REAL", "FLOA", "DOUB"}, family: Real},
	{needles: []string{"BLOB", "BINARY", "BYTEA"}, family: Blob},
	{needles: []string{"BOOL"}, family: Boolean},
	{needles: []string{"DATE", "TIME"}, family: Temporal},
}

// Classify returns the family of a dialect-native type string.
func Classify(sourceType string) Family {
	upper := strings.ToUpper(sourceType)
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(upper, n) {
				return r.family
			}
		}
	}
	return Unknown
}

// Map converts sourceType into the target dialect's type string.
// Temporal types map to the target's text type. Unrecognized types are returned unchanged.
func Map(sourceType string, target Dialect) string {
	switch Classify(sourceType) {
	case Integer:
		return target.Integer
	case Text, Temporal:
		return target.Text
	case Real:
		return target.Real
	case Blob:
		return target.Blob
	case Boolean:
		return target.Boolean
	default:
		return sourceType
	}
}

// IsBinary reports whether raw bytes read from a column of this type are
// binary data. Untyped columns count as binary; every other non-blob type is
// character data that some drivers hand back as bytes.
func IsBinary(sourceType string) bool {
	return strings.TrimSpace(sourceType) == "" || Classify(sourceType) == Blob
}
