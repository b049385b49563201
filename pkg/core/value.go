package core

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValueKind identifies the active variant of a Value.
type ValueKind uint8

// Value kinds.
const (
	KindNull ValueKind = iota
	KindInt
	KindReal
	KindText
	KindBlob
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a closed scalar variant holding one cell of row data.
// Every variant is a driver.Valuer, so values bind directly as statement arguments.
type Value interface {
	driver.Valuer
	Kind() ValueKind
	isValue()
}

type (
	// Null is the SQL NULL value.
	Null struct{}
	// Int is a signed 64-bit integer.
	Int int64
	// Real is a 64-bit float.
	Real float64
	// Text is a character string.
	Text string
	// Blob is a binary string.
	Blob []byte
	// Bool is a boolean. Backends without a native boolean store it as 0/1.
	Bool bool
)

func (Null) Kind() ValueKind { return KindNull }
func (Int) Kind() ValueKind  { return KindInt }
func (Real) Kind() ValueKind { return KindReal }
func (Text) Kind() ValueKind { return KindText }
func (Blob) Kind() ValueKind { return KindBlob }
func (Bool) Kind() ValueKind { return KindBool }

func (Null) Value() (driver.Value, error)   { return nil, nil }
func (v Int) Value() (driver.Value, error)  { return int64(v), nil }
func (v Real) Value() (driver.Value, error) { return float64(v), nil }
func (v Text) Value() (driver.Value, error) { return string(v), nil }
func (v Blob) Value() (driver.Value, error) { return []byte(v), nil }
func (v Bool) Value() (driver.Value, error) { return bool(v), nil }

func (Null) isValue() {}
func (Int) isValue()  {}
func (Real) isValue() {}
func (Text) isValue() {}
func (Blob) isValue() {}
func (Bool) isValue() {}

func (Null) String() string   { return "NULL" }
func (v Int) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v Real) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v Text) String() string { return string(v) }
func (v Blob) String() string { return fmt.Sprintf("x'%x'", []byte(v)) }
func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	return v == nil || v.Kind() == KindNull
}

// Equal compares two values by kind and content. A nil Value equals Null.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if a.Kind() == KindBlob {
		return bytes.Equal(a.(Blob), b.(Blob))
	}
	return a == b
}

// FromDriver converts a value scanned from database/sql into a Value.
// time.Time becomes ISO-8601 text; types outside the scalar set are formatted as text.
func FromDriver(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null{}
	case Value:
		return x
	case int64:
		return Int(x)
	case int:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return Text(strconv.FormatUint(x, 10))
		}
		return Int(int64(x))
	case float64:
		return Real(x)
	case float32:
		return Real(float64(x))
	case string:
		return Text(x)
	case []byte:
		return Blob(bytes.Clone(x))
	case bool:
		return Bool(x)
	case time.Time:
		return Text(x.Format(time.RFC3339Nano))
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return Text(fmt.Sprint(x))
		}
		if _, ok := dv.(driver.Valuer); ok {
			return Text(fmt.Sprint(dv))
		}
		return FromDriver(dv)
	case fmt.Stringer:
		return Text(x.String())
	default:
		return Text(fmt.Sprint(x))
	}
}
