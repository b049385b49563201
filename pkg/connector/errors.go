package connector

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/tablemigrate/pkg/core"
)

// Error kinds. Concrete errors wrap one of these so callers can test with errors.Is.
var (
	// ErrUnsupportedConfigKind means the connector does not handle the config variant.
	ErrUnsupportedConfigKind = errors.New("unsupported connection config kind")

	// ErrConnectionFailure means the backend could not be opened or reached.
	ErrConnectionFailure = errors.New("connection failure")

	// ErrNotConnected means an operation was called on a disconnected connector.
	ErrNotConnected = errors.New("not connected to a database, call Connect first")

	// ErrSchemaNotFound means a source table does not exist.
	ErrSchemaNotFound = errors.New("table schema not found")

	// ErrExtractionFailure means reading table rows failed.
	ErrExtractionFailure = errors.New("extraction failed")

	// ErrLoadFailure means the load transaction failed and was rolled back.
	ErrLoadFailure = errors.New("load failed")
)

// ConfigKindError is returned by Connect for a config variant the connector cannot serve.
type ConfigKindError struct {
	Connector string
	Got       core.ConfigKind
	Want      core.ConfigKind
}

func (e *ConfigKindError) Error() string {
	return fmt.Sprintf("%s connector requires a %s config, got %s", e.Connector, e.Want, e.Got)
}

// Unwrap returns ErrUnsupportedConfigKind.
func (e *ConfigKindError) Unwrap() error {
	return ErrUnsupportedConfigKind
}

// TableError reports a failed operation on a table.
// Kind is one of the package error kinds; Err is the backend error.
type TableError struct {
	Kind  error
	Table string
	Err   error

	// RollbackErr is set when rolling back after Err also failed.
	RollbackErr error
}

func (e *TableError) Error() string {
	msg := fmt.Sprintf("%s for table %q: %v", e.Kind, e.Table, e.Err)
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback also failed: %v)", e.RollbackErr)
	}
	return msg
}

// Unwrap exposes both the kind and the original backend error.
// RollbackErr is not part of the chain.
func (e *TableError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
