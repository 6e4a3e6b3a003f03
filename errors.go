package pgdal

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for compilation failures. They are never retried:
// a command that fails to compile will fail the same way every time.
var (
	// ErrMissingPrimaryKey is returned when a join rewrite or an existence
	// check needs primary-key columns and the entity declares none.
	ErrMissingPrimaryKey = errors.New("pgdal: entity has no primary key")

	// ErrNoUpdateFields is returned when an update command assigns no fields.
	ErrNoUpdateFields = errors.New("pgdal: update command has no assigned fields")

	// ErrAggregateField is returned when an aggregate operation that needs a
	// target field was requested without one.
	ErrAggregateField = errors.New("pgdal: aggregate operation requires a field")

	// ErrUnsupported is returned for aggregates, operators, formats or data
	// types that the dialect cannot express.
	ErrUnsupported = errors.New("pgdal: unsupported by dialect")

	// ErrIdentityShardKey is returned when an entity combines an identity
	// field with a sharding key.
	ErrIdentityShardKey = errors.New("pgdal: identity field cannot be combined with a sharding key")

	// ErrParamCollision is returned when two parameter sets sharing a name are
	// merged without renaming one side first.
	ErrParamCollision = errors.New("pgdal: parameter name collision")

	// ErrEmptyGroup is returned when an execution group holds no statement.
	ErrEmptyGroup = errors.New("pgdal: execution group has no statements")

	// ErrUnknownField is returned when a descriptor references a property the
	// entity does not declare.
	ErrUnknownField = errors.New("pgdal: unknown field")
)

// CompileError wraps a failure raised while translating a query or command.
type CompileError struct {
	Entity string // Entity being compiled
	Op     string // Operation (e.g., "select", "insert", "update")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *CompileError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("pgdal: compile %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("pgdal: compile %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// NewCompileError returns a new CompileError.
func NewCompileError(entity, op string, err error) *CompileError {
	return &CompileError{Entity: entity, Op: op, Err: err}
}

// IsCompileError returns true if the error is a CompileError.
func IsCompileError(err error) bool {
	if err == nil {
		return false
	}
	var e *CompileError
	return errors.As(err, &e)
}

// ExecError wraps a driver failure with the statement that caused it.
type ExecError struct {
	SQL string // Statement text sent to the server
	Err error  // Underlying driver error
}

// Error returns the error string.
func (e *ExecError) Error() string {
	return fmt.Sprintf("pgdal: exec %q: %v", truncate(e.SQL, 120), e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// NewExecError returns a new ExecError.
func NewExecError(sql string, err error) *ExecError {
	return &ExecError{SQL: sql, Err: err}
}

// IsExecError returns true if the error is an ExecError.
func IsExecError(err error) bool {
	if err == nil {
		return false
	}
	var e *ExecError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Error returned by the rollback itself
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("pgdal: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// Rollback joins the error that caused a rollback with the rollback result.
// A nil rollback error returns cause unchanged.
func Rollback(cause, rerr error) error {
	if rerr == nil {
		return cause
	}
	return errors.Join(cause, &RollbackError{Err: rerr})
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "pgdal: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("pgdal: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
