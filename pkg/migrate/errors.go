package migrate

import (
	"fmt"
)

// Stage names a step of a migration run.
type Stage string

// Migration stages, in execution order.
const (
	StageConnect Stage = "connect"
	StageSchema  Stage = "schema"
	StageCreate  Stage = "create"
	StageExtract Stage = "extract"
	StageLoad    Stage = "load"
	StageDone    Stage = "done"
)

// StageError reports the stage and tables of a failed migration.
// Side effects committed before the failure, such as a created target table, stay in place.
type StageError struct {
	Stage       Stage
	SourceTable string
	TargetTable string
	Err         error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("migration %q -> %q failed at %s stage: %v", e.SourceTable, e.TargetTable, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
