package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/pgdal/dialect"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// escapeStringValue escapes a string value for use inside a standard
// conforming SQL string literal.
func escapeStringValue(s string) string {
	if !strings.Contains(s, "'") {
		return s
	}
	return strings.ReplaceAll(s, "'", "''")
}

// Driver is a dialect.Driver implementation for SQL based databases.
type Driver struct {
	Conn
	dialect string
}

// Option configures a Driver.
type Option func(*Driver)

// WithObserver reports every statement executed through the driver, its
// sessions and transactions to o.
func WithObserver(o Observer) Option {
	return func(d *Driver) {
		d.observer = o
	}
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(dialect string, c Conn, opts ...Option) *Driver {
	d := &Driver{dialect: dialect, Conn: c}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open wraps the database/sql.Open method and returns a dialect.Driver.
func Open(dialect, source string, opts ...Option) (*Driver, error) {
	db, err := sql.Open(dialect, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(dialect, Conn{ExecQuerier: db, dialect: dialect}, opts...), nil
}

// OpenDB wraps the given database/sql.DB method with a Driver.
func OpenDB(dialect string, db *sql.DB, opts ...Option) *Driver {
	return NewDriver(dialect, Conn{ExecQuerier: db, dialect: dialect}, opts...)
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Dialect method.
func (d Driver) Dialect() string {
	// The driver name may carry a suffix, e.g. "postgres-otel".
	if strings.HasPrefix(d.dialect, dialect.Postgres) {
		return dialect.Postgres
	}
	return d.dialect
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{ExecQuerier: tx, dialect: d.dialect, observer: d.observer},
		Tx:   tx,
	}, nil
}

// Session acquires a dedicated connection from the pool. Every statement
// executed through the session runs on that connection, in order, until
// Close returns it to the pool.
func (d *Driver) Session(ctx context.Context) (*Session, error) {
	conn, err := d.DB().Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: acquire connection: %w", err)
	}
	return &Session{
		Conn: Conn{ExecQuerier: conn, dialect: d.dialect, observer: d.observer},
		conn: conn,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx implements dialect.Tx interface.
type Tx struct {
	Conn
	driver.Tx
}

// Session is a dialect.Driver bound to a single pooled connection.
type Session struct {
	Conn
	conn *sql.Conn
}

// Dialect returns the dialect of the session.
func (s *Session) Dialect() string { return s.dialect }

// Tx starts a transaction on the session connection.
func (s *Session) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// BeginTx starts a transaction with options on the session connection.
func (s *Session) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	tx, err := s.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{ExecQuerier: tx, dialect: s.dialect, observer: s.observer},
		Tx:   tx,
	}, nil
}

// Close returns the connection to the pool.
func (s *Session) Close() error { return s.conn.Close() }

// ctyVarsKey is the key used for attaching and reading the context variables.
type ctxVarsKey struct{}

// sessionVars holds sessions/transactions variables to set before every statement.
type sessionVars struct {
	vars []struct{ k, v string }
}

// WithVar returns a new context that holds the session variable to be executed before every query.
//
//	ctx = sql.WithVar(ctx, "statement_timeout", "5s")
func WithVar(ctx context.Context, name, value string) context.Context {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	sv.vars = append(sv.vars, struct {
		k, v string
	}{
		k: name,
		v: value,
	})
	return context.WithValue(ctx, ctxVarsKey{}, sv)
}

// VarFromContext returns the session variable value from the context.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	for _, s := range sv.vars {
		if s.k == name {
			return s.v, true
		}
	}
	return "", false
}

// WithIntVar calls WithVar with the string representation of the value.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier given ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect  string
	observer Observer
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) (rerr error) {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: set session vars: %w", err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	start := time.Now()
	switch v := v.(type) {
	case nil:
		_, err = ex.ExecContext(ctx, query, argv...)
	case *sql.Result:
		var res sql.Result
		if res, err = ex.ExecContext(ctx, query, argv...); err == nil {
			*v = res
		}
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	c.observe(ctx, Event{Query: query, Args: argv, Duration: time.Since(start), Err: err})
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: %w", err)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: set session vars: %w", err)
	}
	start := time.Now()
	rows, err := ex.QueryContext(ctx, query, argv...)
	c.observe(ctx, Event{Query: query, Args: argv, Duration: time.Since(start), Err: err, Rows: true})
	if err != nil {
		if cf != nil {
			err = errors.Join(err, cf())
		}
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	if cf != nil {
		vr.ColumnScanner = rowsWithCloser{rows, cf}
	}
	return nil
}

// Prepare creates a prepared statement, e.g. a COPY FROM STDIN stream
// inside a transaction.
func (c Conn) Prepare(ctx context.Context, query string) (*Stmt, error) {
	p, ok := c.ExecQuerier.(interface {
		PrepareContext(context.Context, string) (*sql.Stmt, error)
	})
	if !ok {
		return nil, fmt.Errorf("dialect/sql: %T cannot prepare statements", c.ExecQuerier)
	}
	return p.PrepareContext(ctx, query)
}

func (c Conn) observe(ctx context.Context, e Event) {
	if c.observer != nil {
		c.observer.Observe(ctx, e)
	}
}

// maySetVars sets the session variables before executing a query.
func (c Conn) maySetVars(ctx context.Context) (ExecQuerier, func() error, error) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	if len(sv.vars) == 0 {
		return c, nil, nil
	}
	var (
		ex    ExecQuerier  // Underlying ExecQuerier.
		cf    func() error // Close function.
		reset []string     // Reset variables.
		seen  = make(map[string]struct{}, len(sv.vars))
		set   = "SET"
	)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		// Scoped to the transaction.
		ex, set = e, "SET LOCAL"
	case *sql.Conn:
		// The connection belongs to a session; reset the variables but keep it open.
		ex, cf = e, func() error { return nil }
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		ex, cf = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("unsupported ExecQuerier type: %T", c.ExecQuerier)
	}
	for _, s := range sv.vars {
		// Validate the variable name to prevent SQL injection
		if !isValidIdentifier(s.k) {
			if cf != nil {
				_ = cf()
			}
			return nil, nil, fmt.Errorf("invalid session variable name: %q", s.k)
		}
		if _, ok := seen[s.k]; !ok {
			reset = append(reset, fmt.Sprintf("RESET %s", s.k))
			seen[s.k] = struct{}{}
		}
		if _, err := ex.ExecContext(ctx, fmt.Sprintf("%s %s = '%s'", set, s.k, escapeStringValue(s.v))); err != nil {
			if cf != nil {
				err = errors.Join(err, cf())
			}
			return nil, nil, err
		}
	}
	// Variables set on a pooled connection are reset before the connection
	// is released. The cleanup uses its own context so that it runs even
	// when ctx was canceled.
	if cls := cf; cf != nil && len(reset) > 0 {
		cf = func() error {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for _, q := range reset {
				if _, err := ex.ExecContext(cleanupCtx, q); err != nil {
					return errors.Join(err, cls())
				}
			}
			return cls()
		}
	}
	return ex, cf, nil
}

var (
	_ dialect.Driver = (*Driver)(nil)
	_ dialect.Driver = (*Session)(nil)
	_ dialect.Tx     = (*Tx)(nil)
)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
	// Stmt is an alias to sql.Stmt.
	Stmt = sql.Stmt
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

// rowsWithCloser wraps the ColumnScanner interface with a custom Close hook.
type rowsWithCloser struct {
	ColumnScanner
	closer func() error
}

// Close closes the underlying ColumnScanner and calls the custom closer.
func (r rowsWithCloser) Close() error {
	err := r.ColumnScanner.Close()
	return errors.Join(err, r.closer())
}

// ScanMaps reads every remaining row of rows into column-keyed maps and
// closes rows. Byte slices are copied.
func ScanMaps(rows ColumnScanner) (_ []map[string]any, rerr error) {
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	return scanSet(rows)
}

// ScanResultSets reads every result set of a multi-statement script.
func ScanResultSets(rows ColumnScanner) (_ [][]map[string]any, rerr error) {
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	var sets [][]map[string]any
	for {
		set, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
		if !rows.NextResultSet() {
			return sets, nil
		}
	}
}

func scanSet(rows ColumnScanner) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
			m[c] = values[i]
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
