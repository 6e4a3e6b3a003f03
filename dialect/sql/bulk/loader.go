// Package bulk imports rows into a table through the COPY FROM STDIN
// protocol, bypassing statement compilation.
//
//	l := bulk.New(drv, bulk.WrapIdentifiers(true))
//	n, err := l.Load(ctx, "users", []string{"name", "age"}, bulk.Rows([][]any{
//		{"a8m", 30},
//		{"nati", 28},
//	}))
//
// An import runs in its own transaction on a dedicated connection: it
// either commits every row or none of them.
package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/dialect/sql"
)

// Sessioner hands out dedicated connections.
type Sessioner interface {
	Session(context.Context) (*sql.Session, error)
}

// Loader imports rows into tables.
type Loader struct {
	drv    Sessioner
	wrap   bool
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WrapIdentifiers quotes the table and column names of the import.
func WrapIdentifiers(wrap bool) Option {
	return func(l *Loader) {
		l.wrap = wrap
	}
}

// WithLogger sets the logger of the loader.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New returns a loader acquiring its connections from drv.
func New(drv Sessioner, opts ...Option) *Loader {
	l := &Loader{drv: drv, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadResult is the outcome of an asynchronous import.
type LoadResult struct {
	Rows int64
	Err  error
}

// LoadAsync runs Load in a new goroutine. The returned channel delivers
// exactly one result and is then closed.
func (l *Loader) LoadAsync(ctx context.Context, table string, columns []string, src RowSource) <-chan LoadResult {
	ch := make(chan LoadResult, 1)
	go func() {
		defer close(ch)
		n, err := l.Load(ctx, table, columns, src)
		ch <- LoadResult{Rows: n, Err: err}
	}()
	return ch
}

// Load imports every row of src into the given columns of table and
// returns the number of imported rows. A failure while reading, encoding
// or sending a row aborts the import and no row is stored.
func (l *Loader) Load(ctx context.Context, table string, columns []string, src RowSource) (_ int64, rerr error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("bulk: no columns for table %s", table)
	}
	s, err := l.drv.Session(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && rerr == nil {
			rerr = fmt.Errorf("bulk: release connection: %w", cerr)
		}
	}()
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("bulk: begin transaction: %w", err)
	}
	start := time.Now()
	n, err := l.copy(ctx, tx, l.copyIn(table, columns), len(columns), src)
	if err != nil {
		l.logger.WarnContext(ctx, "bulk import aborted", "table", table, "row", n+1, "error", err)
		return 0, pgdal.Rollback(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("bulk: commit: %w", err)
	}
	l.logger.InfoContext(ctx, "bulk import committed", "table", table, "rows", n, "duration", time.Since(start))
	return n, nil
}

// copy streams src into the COPY statement and returns the number of rows
// sent.
func (l *Loader) copy(ctx context.Context, tx *sql.Tx, text string, width int, src RowSource) (n int64, rerr error) {
	stmt, err := tx.Prepare(ctx, text)
	if err != nil {
		return 0, pgdal.NewExecError(text, err)
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil && rerr == nil {
			rerr = pgdal.NewExecError(text, cerr)
		}
	}()
	for src.Next() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		values, err := src.Values()
		if err != nil {
			return n, fmt.Errorf("bulk: row %d: %w", n+1, err)
		}
		if len(values) != width {
			return n, fmt.Errorf("bulk: row %d has %d values, want %d", n+1, len(values), width)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return n, pgdal.NewExecError(text, fmt.Errorf("row %d: %w", n+1, err))
		}
		n++
	}
	if err := src.Err(); err != nil {
		return n, err
	}
	// Flush the stream.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return n, pgdal.NewExecError(text, err)
	}
	return n, nil
}

// copyIn returns the COPY FROM STDIN statement of an import.
func (l *Loader) copyIn(table string, columns []string) string {
	ident := func(s string) string { return s }
	if l.wrap {
		ident = pq.QuoteIdentifier
	}
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = ident(c)
	}
	return "COPY " + ident(table) + " (" + strings.Join(cols, ", ") + ") FROM STDIN"
}
