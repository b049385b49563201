package duckdb

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"

	"github.com/leapstack-labs/tablemigrate/pkg/core"
)

// normalizeValue converts the go-duckdb types that have no scalar
// counterpart into text every target can store.
func normalizeValue(databaseType string, v any) (core.Value, bool) {
	switch x := v.(type) {
	case duckdb.Decimal:
		return core.Text(formatDecimal(x)), true
	case *duckdb.Decimal:
		if x == nil {
			return core.Null{}, true
		}
		return core.Text(formatDecimal(*x)), true
	case duckdb.Interval:
		return core.Text(formatInterval(x)), true
	case *duckdb.Interval:
		if x == nil {
			return core.Null{}, true
		}
		return core.Text(formatInterval(*x)), true
	case duckdb.UUID:
		return core.Text(uuid.UUID(x).String()), true
	case []byte:
		if strings.EqualFold(databaseType, "UUID") {
			id, err := uuid.FromBytes(x)
			if err != nil {
				return nil, false
			}
			return core.Text(id.String()), true
		}
	}
	return nil, false
}

// formatDecimal renders the exact value with all Scale fractional digits.
func formatDecimal(d duckdb.Decimal) string {
	if d.Value == nil {
		return "0"
	}
	digits := new(big.Int).Abs(d.Value).String()
	if scale := int(d.Scale); scale > 0 {
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}
	if d.Value.Sign() < 0 {
		return "-" + digits
	}
	return digits
}

const (
	microsPerSecond = int64(1_000_000)
	microsPerMinute = 60 * microsPerSecond
	microsPerHour   = 60 * microsPerMinute
)

// formatInterval renders an ISO-8601 duration such as P1Y2M3DT4H5M6.5S.
// Components keep their own sign; a zero interval is PT0S.
func formatInterval(iv duckdb.Interval) string {
	var b strings.Builder
	b.WriteString("P")
	if years := iv.Months / 12; years != 0 {
		fmt.Fprintf(&b, "%dY", years)
	}
	if months := iv.Months % 12; months != 0 {
		fmt.Fprintf(&b, "%dM", months)
	}
	if iv.Days != 0 {
		fmt.Fprintf(&b, "%dD", iv.Days)
	}

	if iv.Micros != 0 {
		sign := ""
		micros := iv.Micros
		if micros < 0 {
			sign = "-"
			micros = -micros
		}
		b.WriteString("T")
		if h := micros / microsPerHour; h != 0 {
			fmt.Fprintf(&b, "%s%dH", sign, h)
		}
		if m := micros % microsPerHour / microsPerMinute; m != 0 {
			fmt.Fprintf(&b, "%s%dM", sign, m)
		}
		secs := micros % microsPerMinute / microsPerSecond
		frac := micros % microsPerSecond
		switch {
		case frac != 0:
			fmt.Fprintf(&b, "%s%d.%sS", sign, secs, strings.TrimRight(fmt.Sprintf("%06d", frac), "0"))
		case secs != 0:
			fmt.Fprintf(&b, "%s%dS", sign, secs)
		}
	}

	if b.Len() == 1 {
		return "PT0S"
	}
	return b.String()
}
