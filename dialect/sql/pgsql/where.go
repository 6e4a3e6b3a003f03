package pgsql

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/dialect/sql"
	"github.com/syssam/pgdal/query"
)

// where renders the WHERE clause of p, if p renders any condition.
func (c *Compiler) where(b *sql.Builder, sc *scope, p *query.Predicate) {
	if p.Empty() {
		return
	}
	b.WriteString(" WHERE ")
	c.predicate(b, sc, p)
}

func (c *Compiler) predicate(b *sql.Builder, sc *scope, p *query.Predicate) {
	switch p.Op {
	case query.OpAnd, query.OpOr:
		sep := " AND "
		if p.Op == query.OpOr {
			sep = " OR "
		}
		var children []*query.Predicate
		for _, ch := range p.Children {
			if !ch.Empty() {
				children = append(children, ch)
			}
		}
		for i, ch := range children {
			if i > 0 {
				b.WriteString(sep)
			}
			if len(children) > 1 && compound(ch) {
				b.WriteByte('(')
				c.predicate(b, sc, ch)
				b.WriteByte(')')
			} else {
				c.predicate(b, sc, ch)
			}
		}
	case query.OpNot:
		b.WriteString("NOT (")
		c.predicate(b, sc, p.Children[0])
		b.WriteByte(')')
	case query.OpIsNull:
		column(b, sc, p.Field)
		b.WriteString(" IS NULL")
	case query.OpNotNull:
		column(b, sc, p.Field)
		b.WriteString(" IS NOT NULL")
	case query.OpIn, query.OpNotIn:
		c.in(b, sc, p)
	case query.OpExpr:
		b.WriteByte('(').Raw(p.Expr, p.Params).WriteByte(')')
	default:
		c.compare(b, sc, p)
	}
}

func (c *Compiler) compare(b *sql.Builder, sc *scope, p *query.Predicate) {
	sym, ok := comparisons[p.Op]
	if !ok {
		b.AddError(fmt.Errorf("%w: predicate %s", pgdal.ErrUnsupported, p.Op))
		return
	}
	if p.Value == nil && (p.Op == query.OpEQ || p.Op == query.OpNEQ) {
		column(b, sc, p.Field)
		if p.Op == query.OpEQ {
			b.WriteString(" IS NULL")
		} else {
			b.WriteString(" IS NOT NULL")
		}
		return
	}
	table, f, err := sc.resolve(p.Field)
	if err != nil {
		b.AddError(err)
		return
	}
	v, err := Value(f, p.Value)
	b.AddError(err)
	if p.Fold {
		b.WriteString("LOWER(").Column(table, f.Column).WriteString(") " + sym + " LOWER(").Arg(f.Name, v).WriteByte(')')
		return
	}
	b.Column(table, f.Column).WriteString(" " + sym + " ").Arg(f.Name, v)
}

// in binds the value list as one array parameter.
func (c *Compiler) in(b *sql.Builder, sc *scope, p *query.Predicate) {
	vs, _ := p.Value.([]any)
	if len(vs) == 0 {
		if p.Op == query.OpIn {
			b.WriteString("FALSE")
		} else {
			b.WriteString("TRUE")
		}
		return
	}
	table, f, err := sc.resolve(p.Field)
	if err != nil {
		b.AddError(err)
		return
	}
	values := make([]any, len(vs))
	for i, v := range vs {
		values[i], err = Value(f, v)
		b.AddError(err)
	}
	b.Column(table, f.Column)
	if p.Op == query.OpIn {
		b.WriteString(" = ANY(")
	} else {
		b.WriteString(" <> ALL(")
	}
	b.Arg(f.Name, pq.Array(values)).WriteByte(')')
}

// compound reports if the rendered predicate needs parentheses inside
// an AND or OR list.
func compound(p *query.Predicate) bool {
	if p.Op != query.OpAnd && p.Op != query.OpOr {
		return false
	}
	n := 0
	for _, ch := range p.Children {
		if !ch.Empty() {
			n++
		}
	}
	return n > 1
}
