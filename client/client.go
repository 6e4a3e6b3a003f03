// Package client runs queries and commands against a Postgres database.
//
// A Client compiles commands on one translation context, groups the
// statements into round trips and executes the groups on a dedicated
// connection:
//
//	c, err := client.Open("postgres://localhost/app?sslmode=disable",
//	    client.WithBatchLimits(50, 2000),
//	    client.WithTxPolicy(batch.TxAuto),
//	)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	res, err := c.Exec(ctx,
//	    query.Insert(users, map[string]any{"name": "a8m"}).WithID("user"),
//	    query.Update(accounts, query.From(accounts).Filter(query.EQ("id", 1))).
//	        Calc("balance", query.Subtract, 10).
//	        MustAffect(),
//	)
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/dialect"
	"github.com/syssam/pgdal/dialect/sql"
	"github.com/syssam/pgdal/dialect/sql/batch"
	"github.com/syssam/pgdal/dialect/sql/bulk"
	"github.com/syssam/pgdal/dialect/sql/pgsql"
	"github.com/syssam/pgdal/dialect/sql/sqlerr"
	"github.com/syssam/pgdal/query"
	"github.com/syssam/pgdal/schema"
)

// Client is safe for concurrent use. Every call compiles on its own
// translation context.
type Client struct {
	drv           *sql.Driver
	compiler      sql.Compiler
	maxStatements int
	maxParams     int
	policy        batch.TxPolicy
	wrap          bool
	timeout       time.Duration
	logger        *slog.Logger

	exec   *batch.Executor
	loader *bulk.Loader
}

// Option configures a Client.
type Option func(*Client)

// WithCompiler sets the statement compiler. Defaults to pgsql.New().
func WithCompiler(c sql.Compiler) Option {
	return func(cl *Client) {
		cl.compiler = c
	}
}

// WithBatchLimits bounds the statements and parameters of one round trip.
// Non-positive limits are unbounded.
func WithBatchLimits(maxStatements, maxParams int) Option {
	return func(c *Client) {
		c.maxStatements, c.maxParams = maxStatements, maxParams
	}
}

// WithTxPolicy sets when an execution runs in a transaction.
func WithTxPolicy(p batch.TxPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithWrapIdentifiers quotes the table and column names of bulk imports.
func WithWrapIdentifiers(wrap bool) Option {
	return func(c *Client) {
		c.wrap = wrap
	}
}

// WithStatementTimeout aborts statements running longer than d. It is
// applied as the statement_timeout session variable unless the caller
// context already sets one with sql.WithVar.
func WithStatementTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger of the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New returns a client over drv.
func New(drv *sql.Driver, opts ...Option) *Client {
	c := &Client{drv: drv, compiler: pgsql.New(), logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.exec = batch.NewExecutor(drv, batch.WithLogger(c.logger))
	c.loader = bulk.New(drv, bulk.WrapIdentifiers(c.wrap), bulk.WithLogger(c.logger))
	return c
}

// Open opens a Postgres database and returns a client over it.
func Open(dsn string, opts []Option, drvOpts ...sql.Option) (*Client, error) {
	drv, err := sql.Open(dialect.Postgres, dsn, drvOpts...)
	if err != nil {
		return nil, err
	}
	return New(drv, opts...), nil
}

// withTimeout attaches the statement timeout of the client to ctx.
func (c *Client) withTimeout(ctx context.Context) context.Context {
	if c.timeout <= 0 {
		return ctx
	}
	if _, ok := sql.VarFromContext(ctx, statementTimeout); ok {
		return ctx
	}
	return sql.WithIntVar(ctx, statementTimeout, int(c.timeout.Milliseconds()))
}

const statementTimeout = "statement_timeout"

// Driver returns the underlying driver.
func (c *Client) Driver() *sql.Driver { return c.drv }

// Close closes the database.
func (c *Client) Close() error { return c.drv.Close() }

// Exec compiles cmds, groups the statements and executes the groups in
// order. The transaction policy decides if the execution is atomic.
//
// In a transaction, a command marked MustAffect that affects no row rolls
// the whole execution back: the result reports zero rows and no error.
// Constraint violations are reported as *sqlerr.ConstraintError.
func (c *Client) Exec(ctx context.Context, cmds ...*query.Command) (*batch.Result, error) {
	stmts, err := sql.CompileCommands(c.compiler, sql.NewContext(), cmds)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return &batch.Result{}, nil
	}
	groups, err := batch.NewGrouper(c.maxStatements, c.maxParams).Group(stmts)
	if err != nil {
		return nil, err
	}
	res, err := c.exec.Execute(c.withTimeout(ctx), groups, c.policy.UseTx(len(cmds)))
	if err != nil {
		return nil, sqlerr.Classify(err)
	}
	return res, nil
}

// Migrate creates the tables of the given entities when they do not exist.
// Every entity is created in its own transaction.
func (c *Client) Migrate(ctx context.Context, entities ...*schema.Entity) error {
	for _, e := range entities {
		stmts, err := c.compiler.CreateTable(e)
		if err != nil {
			return err
		}
		groups, err := batch.NewGrouper(1, 0).Group(stmts)
		if err != nil {
			return err
		}
		if _, err := c.exec.Execute(ctx, groups, true); err != nil {
			return fmt.Errorf("pgdal: migrate %s: %w", e.Name, err)
		}
		c.logger.InfoContext(ctx, "entity migrated", "entity", e.Name, "tables", e.Tables())
	}
	return nil
}

// Load imports the rows of src into table. See bulk.Loader.
func (c *Client) Load(ctx context.Context, table string, columns []string, src bulk.RowSource) (int64, error) {
	n, err := c.loader.Load(ctx, table, columns, src)
	return n, sqlerr.Classify(err)
}

// LoadAsync imports the rows of src into table in a new goroutine.
func (c *Client) LoadAsync(ctx context.Context, table string, columns []string, src bulk.RowSource) <-chan bulk.LoadResult {
	return c.loader.LoadAsync(ctx, table, columns, src)
}

// Query returns the rows read by q, keyed by column name.
func (c *Client) Query(ctx context.Context, q *query.Query) ([]map[string]any, error) {
	stmt, err := c.compiler.CompileQuery(sql.NewContext(), q)
	if err != nil {
		return nil, err
	}
	return c.rows(ctx, stmt)
}

// Count returns the number of rows matched by q.
func (c *Client) Count(ctx context.Context, q *query.Query) (int64, error) {
	v, err := c.scalar(ctx, q.Clone().AsCount())
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("pgdal: unexpected count value %T", v)
	}
	return n, nil
}

// Exists reports if q matches any row.
func (c *Client) Exists(ctx context.Context, q *query.Query) (bool, error) {
	v, err := c.scalar(ctx, q.Clone().AsExists())
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("pgdal: unexpected exists value %T", v)
	}
	return b, nil
}

// Aggregate computes op over field for the rows matched by q. A grouped
// query returns one row per group, other queries return a single row.
func (c *Client) Aggregate(ctx context.Context, q *query.Query, op query.AggregateOp, field string) ([]map[string]any, error) {
	return c.Query(ctx, q.Clone().AsAggregate(op, field))
}

// Page is one page of rows together with the total number of rows
// matched by the query.
type Page struct {
	Rows  []map[string]any
	Total int64
}

// Page reads one page of q and the total number of matching rows in a
// single round trip. A page past the last row falls back to a count query.
func (c *Client) Page(ctx context.Context, q *query.Query) (*Page, error) {
	rows, err := c.Query(ctx, q.Clone().Total())
	if err != nil {
		return nil, err
	}
	p := &Page{Rows: rows}
	for _, r := range rows {
		if n, ok := r[pgsql.TotalColumn].(int64); ok {
			p.Total = n
		}
		delete(r, pgsql.TotalColumn)
	}
	if len(rows) == 0 && q.Skip > 0 {
		all := q.Clone()
		all.Skip, all.Take, all.WithTotal = 0, 0, false
		if p.Total, err = c.Count(ctx, all); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Script runs a raw multi-statement script and returns every result set.
// Parameters are sent with the extended protocol, which accepts a single
// statement only: a script with params must hold one statement.
func (c *Client) Script(ctx context.Context, text string, params map[string]any) ([][]map[string]any, error) {
	if len(params) > 0 && multiStatement(text) {
		return nil, pgdal.NewCompileError("", "script", fmt.Errorf("%w: parameters in a multi-statement script", pgdal.ErrUnsupported))
	}
	stmt, err := c.compiler.CompileQuery(sql.NewContext(), query.Raw(text, params))
	if err != nil {
		return nil, err
	}
	text, args, err := stmt.Bind()
	if err != nil {
		return nil, err
	}
	var rows sql.Rows
	if err := c.drv.Query(c.withTimeout(ctx), text, args, &rows); err != nil {
		return nil, sqlerr.Classify(pgdal.NewExecError(text, err))
	}
	return sql.ScanResultSets(rows)
}

// multiStatement reports if text holds a statement separator before its
// end. Semicolons in literals count as separators.
func multiStatement(text string) bool {
	return strings.Contains(strings.TrimRight(strings.TrimSpace(text), "; \t\n"), ";")
}

func (c *Client) rows(ctx context.Context, stmt *sql.Statement) ([]map[string]any, error) {
	text, args, err := stmt.Bind()
	if err != nil {
		return nil, err
	}
	var rows sql.Rows
	if err := c.drv.Query(c.withTimeout(ctx), text, args, &rows); err != nil {
		return nil, sqlerr.Classify(pgdal.NewExecError(text, err))
	}
	return sql.ScanMaps(rows)
}

// scalar returns the single value read by q.
func (c *Client) scalar(ctx context.Context, q *query.Query) (any, error) {
	rows, err := c.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return nil, errors.New("pgdal: query did not return a single value")
	}
	for _, v := range rows[0] {
		return v, nil
	}
	return nil, nil
}
