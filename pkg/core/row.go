package core

import "sort"

// Row maps column names to values, keeping the column order it was built with.
type Row struct {
	Columns []string
	Values  []Value
}

// NewRow builds a Row from a map. Columns are sorted by name since maps carry no order.
func NewRow(values map[string]Value) Row {
	cols := make([]string, 0, len(values))
	for name := range values {
		cols = append(cols, name)
	}
	sort.Strings(cols)

	r := Row{Columns: cols, Values: make([]Value, len(cols))}
	for i, name := range cols {
		r.Values[i] = values[name]
	}
	return r
}

// Get returns the value of the named column.
func (r Row) Get(name string) (Value, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Set replaces the value of the named column, appending the column if absent.
func (r *Row) Set(name string, v Value) {
	for i, c := range r.Columns {
		if c == name {
			r.Values[i] = v
			return
		}
	}
	r.Columns = append(r.Columns, name)
	r.Values = append(r.Values, v)
}

// Len returns the number of columns in the row.
func (r Row) Len() int {
	return len(r.Columns)
}
