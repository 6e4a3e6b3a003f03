// Package pgsql implements the Postgres query compiler.
//
// Queries and commands are translated into statements with named
// parameters; identifiers are always double quoted:
//
//	c := pgsql.New()
//	stmt, err := c.CompileQuery(sql.NewContext(),
//	    query.From(users).Filter(query.GT("age", 18)).Limit(10))
//	// SELECT "users"."id", "users"."name", "users"."age" FROM "users"
//	//   WHERE "users"."age" > :age_1 LIMIT 10
//
// Postgres cannot join inside UPDATE and DELETE. Mutations filtered through
// a join, a WITH prelude or paging are rewritten to match the rows whose
// primary key appears in a derived key set:
//
//	UPDATE "users" SET ... FROM (SELECT "users"."id" FROM "users" JOIN ...) AS "t1"
//	WHERE "users"."id" = "t1"."id"
package pgsql

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/dialect"
	"github.com/syssam/pgdal/dialect/sql"
	"github.com/syssam/pgdal/query"
	"github.com/syssam/pgdal/schema"
	"github.com/syssam/pgdal/schema/field"
)

// Compiler is the Postgres implementation of sql.Compiler. It is stateless
// and safe for concurrent use.
type Compiler struct{}

// New returns a Postgres compiler.
func New() *Compiler { return &Compiler{} }

// Dialect returns dialect.Postgres.
func (*Compiler) Dialect() string { return dialect.Postgres }

// Quote quotes an identifier.
func (*Compiler) Quote(s string) string { return pq.QuoteIdentifier(s) }

// CompileQuery compiles a read into one statement.
func (c *Compiler) CompileQuery(ctx *sql.Context, q *query.Query) (*sql.Statement, error) {
	if q == nil {
		return nil, pgdal.NewCompileError("", "select", fmt.Errorf("nil query"))
	}
	b := c.builder(ctx)
	if q.Mode == query.RawScript {
		b.Raw(q.SQL, q.Params)
	} else {
		if q.Entity == nil {
			return nil, pgdal.NewCompileError("", "select", fmt.Errorf("query has no entity"))
		}
		// Compilation adjusts projections on a private copy.
		c.selectQuery(b, q.Clone())
	}
	stmt, err := b.Statement()
	if err != nil {
		return nil, pgdal.NewCompileError(entityName(q.Entity), "select", err)
	}
	stmt.Returns = true
	stmt.HasPreScript = q.HasPreScript()
	return stmt, nil
}

// CompileCommand compiles a mutation. An insert without values compiles
// to no statement.
func (c *Compiler) CompileCommand(ctx *sql.Context, cmd *query.Command) ([]*sql.Statement, error) {
	var (
		stmts []*sql.Statement
		err   error
	)
	switch cmd.Action {
	case query.ActionInsert:
		stmts, err = c.insert(ctx, cmd)
	case query.ActionUpdate:
		stmts, err = c.update(ctx, cmd)
	case query.ActionDelete:
		stmts, err = c.delete(ctx, cmd)
	case query.ActionRaw:
		b := c.builder(ctx).Raw(cmd.SQL, cmd.Params)
		var stmt *sql.Statement
		if stmt, err = b.Statement(); err == nil {
			stmts = []*sql.Statement{stmt}
		}
	default:
		err = fmt.Errorf("%w: command action %d", pgdal.ErrUnsupported, cmd.Action)
	}
	if err != nil {
		return nil, pgdal.NewCompileError(entityName(cmd.Entity), cmd.Action.String(), err)
	}
	for _, s := range stmts {
		s.MustAffectRows = cmd.MustAffectRows
	}
	return stmts, nil
}

func (c *Compiler) builder(ctx *sql.Context) *sql.Builder {
	return sql.NewBuilder(ctx, c.Quote)
}

// scope resolves field references of a query to qualified columns.
type scope struct {
	entity *schema.Entity
	table  string // Name or alias the main entity is referenced by.
	joins  map[string]*schema.Entity
}

func newScope(e *schema.Entity, table string) *scope {
	return &scope{entity: e, table: table, joins: make(map[string]*schema.Entity)}
}

// resolve returns the qualifier and the field referenced by ref.
func (s *scope) resolve(ref string) (string, *field.Descriptor, error) {
	e, table, name := s.entity, s.table, ref
	if alias, prop, ok := strings.Cut(ref, "."); ok {
		j, found := s.joins[alias]
		if !found {
			return "", nil, fmt.Errorf("%w: %s (no join aliased %q)", pgdal.ErrUnknownField, ref, alias)
		}
		e, table, name = j, alias, prop
	}
	f, err := e.MustField(name)
	if err != nil {
		return "", nil, err
	}
	return table, f, nil
}

func entityName(e *schema.Entity) string {
	if e == nil {
		return ""
	}
	return e.Name
}

var _ sql.Compiler = (*Compiler)(nil)
