package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/dialect"
	"github.com/syssam/pgdal/dialect/sql"
	"github.com/syssam/pgdal/schema/field"
)

// Sessioner hands out dedicated connections.
type Sessioner interface {
	Session(context.Context) (*sql.Session, error)
}

// Result is the outcome of an execution.
type Result struct {
	// RowsAffected is the number of rows affected by every statement. It
	// is zero when a transactional execution was rolled back.
	RowsAffected int64
	// Identities maps the output parameter of each insert to the identity
	// generated by the server.
	Identities map[string]any
}

// Executor runs execution groups on one dedicated connection.
type Executor struct {
	drv    Sessioner
	logger *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger of the executor.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// NewExecutor returns an executor acquiring its connections from drv.
func NewExecutor(drv Sessioner, opts ...Option) *Executor {
	e := &Executor{drv: drv, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the groups in order on one connection.
//
// Without a transaction, every group runs and the affected rows are summed
// whether or not a group marked MustAffectRows affected any row.
//
// With a transaction, execution stops at the first group marked
// MustAffectRows that affected no row; the transaction is rolled back and
// the result reports zero rows. Otherwise the transaction is committed.
// A driver failure or a canceled context rolls back and returns the error.
func (e *Executor) Execute(ctx context.Context, groups []*Group, useTx bool) (_ *Result, rerr error) {
	s, err := e.drv.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && rerr == nil {
			rerr = fmt.Errorf("pgdal: release connection: %w", cerr)
		}
	}()
	if !useTx {
		return e.run(ctx, s, groups)
	}
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgdal: begin transaction: %w", err)
	}
	res := &Result{}
	for i, g := range groups {
		n, err := e.group(ctx, tx, g, res)
		if err != nil {
			return nil, pgdal.Rollback(err, tx.Rollback())
		}
		res.RowsAffected += n
		if g.MustAffectRows && n == 0 {
			e.logger.WarnContext(ctx, "batch rolled back: group affected no rows",
				"group", i, "groups", len(groups), "sql", g.SQL())
			if err := tx.Rollback(); err != nil {
				return nil, &pgdal.RollbackError{Err: err}
			}
			return &Result{}, nil
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("pgdal: commit: %w", err)
	}
	e.logger.DebugContext(ctx, "batch committed", "groups", len(groups), "rows", res.RowsAffected)
	return res, nil
}

func (e *Executor) run(ctx context.Context, conn dialect.ExecQuerier, groups []*Group) (*Result, error) {
	res := &Result{}
	for i, g := range groups {
		n, err := e.group(ctx, conn, g, res)
		if err != nil {
			return nil, err
		}
		if g.MustAffectRows && n == 0 {
			e.logger.DebugContext(ctx, "group affected no rows", "group", i, "sql", g.SQL())
		}
		res.RowsAffected += n
	}
	return res, nil
}

// group runs the members of g in order and returns the rows they affected.
// Members are sent one by one: the server reports the affected rows of a
// multi-statement text only for its last statement.
func (e *Executor) group(ctx context.Context, conn dialect.ExecQuerier, g *Group, res *Result) (int64, error) {
	if len(g.Statements) == 0 {
		return 0, pgdal.ErrEmptyGroup
	}
	var total int64
	for _, s := range g.Statements {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		text, args, err := s.Bind()
		if err != nil {
			return 0, err
		}
		var n int64
		if outs := s.Params.Outputs(); len(outs) > 0 {
			n, err = e.returning(ctx, conn, text, args, outs, res)
		} else {
			n, err = exec(ctx, conn, text, args)
		}
		if err != nil {
			return 0, pgdal.NewExecError(text, err)
		}
		total += n
	}
	return total, nil
}

func exec(ctx context.Context, conn dialect.ExecQuerier, text string, args []any) (int64, error) {
	var r sql.Result
	if err := conn.Exec(ctx, text, args, &r); err != nil {
		return 0, err
	}
	return r.RowsAffected()
}

// returning runs a statement returning its output parameters, one row per
// affected row, and records the values of the last row.
func (e *Executor) returning(ctx context.Context, conn dialect.ExecQuerier, text string, args []any, outs []sql.Param, res *Result) (int64, error) {
	rows := &sql.Rows{}
	if err := conn.Query(ctx, text, args, rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int64
	values := make([]any, len(outs))
	dest := make([]any, len(outs))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return 0, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if res.Identities == nil {
		res.Identities = make(map[string]any, len(outs))
	}
	for i, p := range outs {
		v, err := identity(p.Type, values[i])
		if err != nil {
			return 0, fmt.Errorf("pgdal: scan %s: %w", p.Name, err)
		}
		res.Identities[p.Name] = v
	}
	return n, nil
}

// identity converts a scanned identity value to the Go type of its field.
func identity(t field.Type, v any) (any, error) {
	switch b := v.(type) {
	case []byte:
		if t == field.TypeUUID {
			return uuid.ParseBytes(b)
		}
		return string(b), nil
	case string:
		if t == field.TypeUUID {
			return uuid.Parse(b)
		}
	}
	return v, nil
}
