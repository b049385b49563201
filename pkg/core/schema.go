package core

import (
	"fmt"
	"slices"
	"sort"
)

// ColumnSchema describes one column of a table.
type ColumnSchema struct {
	// Name is unique within the table.
	Name string

	// DataType is the dialect-native type string (e.g. "VARCHAR(255)").
	DataType string

	IsNullable   bool
	IsPrimaryKey bool

	// OrdinalPosition is the 1-based position of the column in the table definition.
	OrdinalPosition int
}

// NewColumn returns a nullable, non-key column.
func NewColumn(name, dataType string, position int) ColumnSchema {
	return ColumnSchema{
		Name:            name,
		DataType:        dataType,
		IsNullable:      true,
		OrdinalPosition: position,
	}
}

// TableSchema describes a table as an ordered list of columns.
type TableSchema struct {
	Name    string
	Columns []ColumnSchema
}

// NewTableSchema builds a TableSchema with its columns sorted by ordinal position.
// The input slice is not modified.
func NewTableSchema(name string, columns []ColumnSchema) *TableSchema {
	cols := slices.Clone(columns)
	sort.SliceStable(cols, func(i, j int) bool {
		return cols[i].OrdinalPosition < cols[j].OrdinalPosition
	})
	return &TableSchema{Name: name, Columns: cols}
}

// PrimaryKey returns the primary-key flagged columns in ordinal order.
func (s *TableSchema) PrimaryKey() []ColumnSchema {
	var pk []ColumnSchema
	for _, c := range s.Columns {
		if c.IsPrimaryKey {
			pk = append(pk, c)
		}
	}
	return pk
}

// ColumnNames returns the column names in ordinal order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (s *TableSchema) Column(name string) (ColumnSchema, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// Validate checks that column names are non-empty and unique, and that
// ordinal positions are 1-based and contiguous once sorted.
func (s *TableSchema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("table name is required")
	}
	seen := make(map[string]bool, len(s.Columns))
	positions := make([]int, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("table %s: column at position %d has no name", s.Name, c.OrdinalPosition)
		}
		if seen[c.Name] {
			return fmt.Errorf("table %s: duplicate column %q", s.Name, c.Name)
		}
		seen[c.Name] = true
		positions = append(positions, c.OrdinalPosition)
	}
	sort.Ints(positions)
	for i, p := range positions {
		if p != i+1 {
			return fmt.Errorf("table %s: ordinal positions are not contiguous from 1 (found %d at index %d)", s.Name, p, i)
		}
	}
	return nil
}
