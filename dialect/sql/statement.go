package sql

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the kind of a statement.
type Kind uint8

// Statement kinds.
const (
	KindText      Kind = iota // Plain SQL text.
	KindProcedure             // Stored procedure call.
)

// Statement is one compiled unit: SQL text with ":name" parameters and the
// flags that drive grouping and execution.
type Statement struct {
	SQL    string
	Params *ParamSet
	Kind   Kind
	// MustAffectRows fails a transactional batch when the statement
	// affects no rows.
	MustAffectRows bool
	// HasPreScript is set when a WITH prelude precedes the main clause.
	HasPreScript bool
	// PerformAlone keeps the statement out of multi-statement groups. Set
	// for statements returning output parameters and for DDL.
	PerformAlone bool
	// Returns is set when the statement produces a result set.
	Returns bool
}

// NewStatement returns a statement over the given text and parameters.
func NewStatement(text string, params *ParamSet) *Statement {
	if params == nil {
		params = &ParamSet{}
	}
	return &Statement{SQL: text, Params: params}
}

// Bind returns the positional form of the statement.
func (s *Statement) Bind() (string, []any, error) {
	if s.Kind == KindProcedure {
		text, args, err := Bind(s.SQL, s.Params)
		if err != nil {
			return "", nil, err
		}
		return "CALL " + text, args, nil
	}
	return Bind(s.SQL, s.Params)
}

// Rename renames a parameter in both the text and the parameter set.
func (s *Statement) Rename(from, to string) error {
	if err := s.Params.Rename(from, to); err != nil {
		return err
	}
	s.SQL = RenameParam(s.SQL, from, to)
	return nil
}

// Context is the mutable state of one compilation call. It hands out
// parameter and alias names that stay unique across every statement
// compiled with it. A Context must not be shared by concurrent compilations.
type Context struct {
	seq   int
	alias int
}

// NewContext returns a new translation context.
func NewContext() *Context {
	return &Context{}
}

// NextParam returns a fresh parameter name derived from base, e.g. "name_3".
func (c *Context) NextParam(base string) string {
	c.seq++
	return ParamName(base) + "_" + strconv.Itoa(c.seq)
}

// NextAlias returns a fresh table alias.
func (c *Context) NextAlias() string {
	c.alias++
	return "t" + strconv.Itoa(c.alias)
}

// Builder is a SQL string builder that collects named parameters.
type Builder struct {
	sb     strings.Builder
	ctx    *Context
	params *ParamSet
	quote  func(string) string
	err    error
}

// NewBuilder returns a builder allocating parameter names from ctx and
// quoting identifiers with quote.
func NewBuilder(ctx *Context, quote func(string) string) *Builder {
	return &Builder{ctx: ctx, params: &ParamSet{}, quote: quote}
}

// Context returns the translation context of the builder.
func (b *Builder) Context() *Context { return b.ctx }

// WriteString appends s.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends c.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Pad appends a space unless the builder is empty or already ends with one.
func (b *Builder) Pad() *Builder {
	s := b.sb.String()
	if s != "" && s[len(s)-1] != ' ' && s[len(s)-1] != '(' {
		b.sb.WriteByte(' ')
	}
	return b
}

// Ident appends a quoted identifier.
func (b *Builder) Ident(name string) *Builder {
	b.sb.WriteString(b.quote(name))
	return b
}

// Column appends a column qualified by a table or alias.
func (b *Builder) Column(table, column string) *Builder {
	if table != "" {
		b.Ident(table).WriteByte('.')
	}
	return b.Ident(column)
}

// Arg binds v to a fresh parameter derived from base and appends its reference.
func (b *Builder) Arg(base string, v any) *Builder {
	name := b.ctx.NextParam(base)
	b.setErr(b.params.In(name, v))
	b.sb.WriteString(":" + name)
	return b
}

// Join appends the text and parameters of another builder.
func (b *Builder) Join(o *Builder) *Builder {
	b.sb.WriteString(o.sb.String())
	b.setErr(o.err)
	b.setErr(b.params.Union(o.params))
	return b
}

// Raw appends raw SQL text with its own ":name" parameters. Each
// parameter is renamed to a fresh name from the context.
func (b *Builder) Raw(text string, params map[string]any) *Builder {
	fresh := make(map[string]string)
	for _, name := range ParamRefs(text) {
		v, ok := params[name]
		if !ok {
			b.setErr(fmt.Errorf("dialect/sql: no value for parameter %q", name))
			continue
		}
		fresh[name] = b.ctx.NextParam(name)
		b.setErr(b.params.In(fresh[name], v))
	}
	text, _ = rewriteParams(text, func(name string) (string, error) {
		return ":" + fresh[name], nil
	})
	b.sb.WriteString(text)
	return b
}

// Out registers an output parameter.
func (b *Builder) Out(p Param) *Builder {
	p.Direction = Out
	b.setErr(b.params.Add(p))
	return b
}

// AddError records an error reported by Err.
func (b *Builder) AddError(err error) *Builder {
	b.setErr(err)
	return b
}

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error { return b.err }

// Len returns the length of the text.
func (b *Builder) Len() int { return b.sb.Len() }

// String returns the text.
func (b *Builder) String() string { return b.sb.String() }

// Params returns the collected parameters.
func (b *Builder) Params() *ParamSet { return b.params }

// Statement returns the built statement.
func (b *Builder) Statement() (*Statement, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewStatement(b.sb.String(), b.params), nil
}

func (b *Builder) setErr(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}
