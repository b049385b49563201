package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersSchema() *TableSchema {
	id := NewColumn("id", "INTEGER", 1)
	id.IsNullable = false
	id.IsPrimaryKey = true
	name := NewColumn("name", "TEXT", 2)
	name.IsNullable = false
	email := NewColumn("email", "TEXT", 3)
	return NewTableSchema("users", []ColumnSchema{email, id, name})
}

func TestNewColumn_Defaults(t *testing.T) {
	col := NewColumn("email", "VARCHAR(255)", 3)
	assert.True(t, col.IsNullable)
	assert.False(t, col.IsPrimaryKey)
	assert.Equal(t, 3, col.OrdinalPosition)
}

func TestNewTableSchema_SortsByOrdinal(t *testing.T) {
	s := usersSchema()
	assert.Equal(t, []string{"id", "name", "email"}, s.ColumnNames())
}

func TestNewTableSchema_DoesNotModifyInput(t *testing.T) {
	in := []ColumnSchema{NewColumn("b", "TEXT", 2), NewColumn("a", "TEXT", 1)}
	NewTableSchema("t", in)
	assert.Equal(t, "b", in[0].Name)
}

func TestTableSchema_PrimaryKey(t *testing.T) {
	tests := []struct {
		name   string
		schema *TableSchema
		want   []string
	}{
		{name: "single", schema: usersSchema(), want: []string{"id"}},
		{
			name: "composite in ordinal order",
			schema: NewTableSchema("enrollments", []ColumnSchema{
				{Name: "course_id", DataType: "INTEGER", IsPrimaryKey: true, OrdinalPosition: 2},
				{Name: "student_id", DataType: "INTEGER", IsPrimaryKey: true, OrdinalPosition: 1},
				{Name: "grade", DataType: "TEXT", IsNullable: true, OrdinalPosition: 3},
			}),
			want: []string{"student_id", "course_id"},
		},
		{
			name:   "none",
			schema: NewTableSchema("log", []ColumnSchema{NewColumn("line", "TEXT", 1)}),
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, c := range tt.schema.PrimaryKey() {
				got = append(got, c.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableSchema_Column(t *testing.T) {
	s := usersSchema()
	col, ok := s.Column("email")
	require.True(t, ok)
	assert.Equal(t, 3, col.OrdinalPosition)

	_, ok = s.Column("missing")
	assert.False(t, ok)
}

func TestTableSchema_Validate(t *testing.T) {
	tests := []struct {
		name   string
		schema *TableSchema
		errMsg string
	}{
		{name: "valid", schema: usersSchema()},
		{
			name:   "missing table name",
			schema: NewTableSchema("", []ColumnSchema{NewColumn("a", "TEXT", 1)}),
			errMsg: "table name is required",
		},
		{
			name:   "empty column name",
			schema: NewTableSchema("t", []ColumnSchema{NewColumn("", "TEXT", 1)}),
			errMsg: "has no name",
		},
		{
			name:   "duplicate column",
			schema: NewTableSchema("t", []ColumnSchema{NewColumn("a", "TEXT", 1), NewColumn("a", "TEXT", 2)}),
			errMsg: "duplicate column",
		},
		{
			name:   "gap in ordinals",
			schema: NewTableSchema("t", []ColumnSchema{NewColumn("a", "TEXT", 1), NewColumn("b", "TEXT", 3)}),
			errMsg: "not contiguous",
		},
		{
			name:   "zero based",
			schema: NewTableSchema("t", []ColumnSchema{NewColumn("a", "TEXT", 0)}),
			errMsg: "not contiguous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
