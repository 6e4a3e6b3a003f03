package pgdal_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgdal"
)

func TestCompileError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := pgdal.NewCompileError("User", "update", pgdal.ErrNoUpdateFields)
		assert.Equal(t, "pgdal: compile update User: pgdal: update command has no assigned fields", err.Error())

		err = pgdal.NewCompileError("", "raw", errors.New("boom"))
		assert.Equal(t, "pgdal: compile raw: boom", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := pgdal.NewCompileError("Post", "delete", pgdal.ErrMissingPrimaryKey)
		assert.True(t, errors.Is(err, pgdal.ErrMissingPrimaryKey))
		assert.False(t, errors.Is(err, pgdal.ErrNoUpdateFields))
	})

	t.Run("IsCompileError", func(t *testing.T) {
		err := pgdal.NewCompileError("Comment", "select", pgdal.ErrUnsupported)
		assert.True(t, pgdal.IsCompileError(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, pgdal.IsCompileError(wrapped))

		assert.False(t, pgdal.IsCompileError(errors.New("other error")))
		assert.False(t, pgdal.IsCompileError(nil))
	})
}

func TestExecError(t *testing.T) {
	cause := errors.New("connection reset")
	err := pgdal.NewExecError(`UPDATE "users" SET "age" = $1`, cause)
	assert.Contains(t, err.Error(), `UPDATE \"users\"`)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, pgdal.IsExecError(fmt.Errorf("wrap: %w", err)))
	assert.False(t, pgdal.IsExecError(cause))
}

func TestRollback(t *testing.T) {
	cause := errors.New("constraint violation")
	assert.Same(t, cause, pgdal.Rollback(cause, nil))

	rerr := errors.New("conn closed")
	err := pgdal.Rollback(cause, rerr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, rerr))
	var re *pgdal.RollbackError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "pgdal: rollback failed: conn closed", re.Error())
}

func TestAggregateError(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.Nil(t, pgdal.NewAggregateError())
		assert.Nil(t, pgdal.NewAggregateError(nil, nil))
	})

	t.Run("Single", func(t *testing.T) {
		e := errors.New("only")
		assert.Equal(t, e, pgdal.NewAggregateError(nil, e))
	})

	t.Run("Multiple", func(t *testing.T) {
		e1, e2 := errors.New("first"), errors.New("second")
		err := pgdal.NewAggregateError(e1, nil, e2)
		require.Error(t, err)
		assert.Equal(t, "pgdal: multiple errors:\n  [1] first\n  [2] second", err.Error())
		assert.True(t, errors.Is(err, e2))
	})
}
