// Package core defines the shared language of the tablemigrate system.
//
// This package contains:
//   - Connection configuration (the ConnectionConfig tagged union)
//   - Schema descriptors (TableSchema, ColumnSchema)
//   - Row data (Row and the closed scalar Value variant)
//   - The persisted MigrationConfig shape
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
