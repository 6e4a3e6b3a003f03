package sql

import (
	"github.com/syssam/pgdal/query"
	"github.com/syssam/pgdal/schema"
)

// Compiler translates queries and commands into statements of one dialect.
// Implementations keep no state between calls; all per-call state lives
// in the Context.
type Compiler interface {
	// Dialect returns the dialect name.
	Dialect() string
	// CompileQuery compiles a read.
	CompileQuery(*Context, *query.Query) (*Statement, error)
	// CompileCommand compiles a mutation into zero or more statements.
	CompileCommand(*Context, *query.Command) ([]*Statement, error)
	// CreateTable returns the statements creating the tables of e when
	// they do not exist.
	CreateTable(*schema.Entity) ([]*Statement, error)
	// Quote quotes an identifier.
	Quote(string) string
}

// CompileCommands compiles cmds in order on a shared context.
func CompileCommands(c Compiler, ctx *Context, cmds []*query.Command) ([]*Statement, error) {
	var stmts []*Statement
	for _, cmd := range cmds {
		ss, err := c.CompileCommand(ctx, cmd)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, ss...)
	}
	return stmts, nil
}
