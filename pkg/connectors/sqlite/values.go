package sqlite

import (
	"strings"
	"time"

	"github.com/leapstack-labs/tablemigrate/pkg/core"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05.999999999"
)

// normalizeValue renders the time.Time that modernc.org/sqlite parses out of
// DATE, DATETIME and TIMESTAMP columns. A value stored without a zone comes
// back as UTC; it is written in SQLite's own layout so it stays zone-less.
func normalizeValue(databaseType string, v any) (core.Value, bool) {
	t, ok := v.(time.Time)
	if !ok || t.Location() != time.UTC {
		return nil, false
	}
	if strings.EqualFold(databaseType, "DATE") && t.Equal(t.Truncate(24*time.Hour)) {
		return core.Text(t.Format(dateLayout)), true
	}
	return core.Text(t.Format(datetimeLayout)), true
}
