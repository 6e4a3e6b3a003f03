// Package sqlerr classifies the errors reported by the Postgres driver.
//
//	if _, err := c.Exec(ctx, cmds...); sqlerr.IsUniqueConstraintError(err) {
//		return ErrAlreadyExists
//	}
package sqlerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Postgres SQLSTATE codes for constraint violations (class 23).
const (
	NotNullViolation    = "23502"
	ForeignKeyViolation = "23503"
	UniqueViolation     = "23505"
	CheckViolation      = "23514"
)

// ConstraintError describes a constraint violation reported by the server.
type ConstraintError struct {
	Code       string // SQLSTATE code.
	Constraint string
	Table      string
	Column     string
	Err        error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("pgdal: constraint %s violated: %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("pgdal: constraint violated: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Classify wraps a constraint violation reported by the server in a
// ConstraintError. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return err
	}
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code.Class() == "23" {
		return &ConstraintError{
			Code:       string(pe.Code),
			Constraint: pe.Constraint,
			Table:      pe.Table,
			Column:     pe.Column,
			Err:        err,
		}
	}
	if code := sqlState(err); strings.HasPrefix(code, "23") {
		return &ConstraintError{Code: code, Err: err}
	}
	return err
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err) ||
		IsNotNullConstraintError(err)
}

// sqlStateError is implemented by *pq.Error and other Postgres drivers.
type sqlStateError interface {
	SQLState() string
}

// sqlState returns the SQLSTATE code carried by err, if any.
func sqlState(err error) string {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState()
	}
	return ""
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return is(err, UniqueViolation, "violates unique constraint")
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return is(err, ForeignKeyViolation, "violates foreign key constraint")
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool {
	return is(err, CheckViolation, "violates check constraint")
}

// IsNotNullConstraintError reports if the error resulted from a NULL written to a NOT NULL column.
func IsNotNullConstraintError(err error) bool {
	return is(err, NotNullViolation, "violates not-null constraint")
}

func is(err error, code, message string) bool {
	if err == nil {
		return false
	}
	var ce *ConstraintError
	if errors.As(err, &ce) && ce.Code != "" {
		return ce.Code == code
	}
	if c := sqlState(err); c != "" {
		return c == code
	}
	// Fallback to string matching for drivers that don't expose codes.
	return strings.Contains(err.Error(), message)
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	if errors.As(err, &target) {
		return target, true
	}
	return target, false
}
