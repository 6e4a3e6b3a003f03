package pgsql

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/dialect/sql"
	"github.com/syssam/pgdal/query"
	"github.com/syssam/pgdal/schema"
)

// TotalColumn is the column holding the total matching count of a paged
// query with total.
const TotalColumn = "total_count"

// selectQuery renders q according to its output shape.
func (c *Compiler) selectQuery(b *sql.Builder, q *query.Query) {
	switch q.Shape {
	case query.Rows:
		if q.WithTotal {
			c.pagedWithTotal(b, q)
			return
		}
		c.with(b, q.With)
		c.rows(b, q, false)
	case query.Count:
		c.with(b, q.With)
		b.WriteString("SELECT COUNT(1) FROM (")
		c.rows(b, q, false)
		b.WriteString(") AS ").Ident(b.Context().NextAlias())
	case query.Exists:
		q.Fields = keyRefs(q.Entity)
		c.with(b, q.With)
		b.WriteString("SELECT EXISTS(")
		c.rows(b, q, true)
		b.WriteByte(')')
	case query.Aggregated:
		c.with(b, q.With)
		c.aggregate(b, q)
	default:
		b.AddError(fmt.Errorf("%w: output shape %d", pgdal.ErrUnsupported, q.Shape))
	}
}

// with renders a WITH prelude.
func (c *Compiler) with(b *sql.Builder, ctes []query.CTE) {
	if len(ctes) == 0 {
		return
	}
	b.WriteString("WITH ")
	c.cteList(b, ctes)
	b.WriteByte(' ')
}

// cteList renders the named sub-queries of a WITH clause.
func (c *Compiler) cteList(b *sql.Builder, ctes []query.CTE) {
	for i, cte := range ctes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(cte.Name).WriteString(" AS (")
		switch {
		case cte.Query != nil && cte.Query.Mode == query.RawScript:
			b.Raw(cte.Query.SQL, cte.Query.Params)
		case cte.Query != nil:
			c.selectQuery(b, cte.Query.Clone())
		default:
			b.Raw(cte.SQL, cte.Params)
		}
		b.WriteByte(')')
	}
}

// rows renders a row-producing select with sort and paging. Combined
// queries are wrapped in a derived table that is sorted and paged as a
// whole. When force is set, every combined branch projects the fields of q.
func (c *Compiler) rows(b *sql.Builder, q *query.Query, force bool) {
	if len(q.Combine) == 0 {
		sc := c.body(b, q, c.projection(q))
		c.order(b, sc, q.Order)
		limit(b, q)
		return
	}
	alias := b.Context().NextAlias()
	b.WriteString("SELECT * FROM (")
	c.combined(b, q, force)
	b.WriteString(") AS ").Ident(alias)
	if len(q.Order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range q.Order {
			if i > 0 {
				b.WriteString(", ")
			}
			col, err := outputColumn(q, o.Field)
			b.AddError(err)
			b.Column(alias, col)
			direction(b, o)
		}
	}
	limit(b, q)
}

// combined renders the main body and every combine item as set operands.
func (c *Compiler) combined(b *sql.Builder, q *query.Query, force bool) {
	refs := projectionRefs(q)
	b.WriteByte('(')
	c.body(b, q, c.projection(q))
	b.WriteByte(')')
	for _, cm := range q.Combine {
		op, ok := setOperators[cm.Kind]
		if !ok {
			b.AddError(fmt.Errorf("%w: combine kind %d", pgdal.ErrUnsupported, cm.Kind))
			return
		}
		if cm.Query == nil {
			b.AddError(fmt.Errorf("nil %s query", op))
			return
		}
		branch := cm.Query.Clone()
		if branch.Entity == nil {
			branch.Entity = q.Entity
		}
		if force || len(branch.Fields) == 0 {
			branch.Fields = slices.Clone(refs)
		}
		b.WriteString(" " + op + " (")
		c.with(b, branch.With)
		c.rows(b, branch, force)
		b.WriteByte(')')
	}
}

// body renders SELECT ... FROM ... JOIN ... WHERE ... GROUP BY ... HAVING
// and returns the scope of the rendered query.
func (c *Compiler) body(b *sql.Builder, q *query.Query, project func(*sql.Builder, *scope)) *scope {
	e := q.Entity
	sc := newScope(e, e.Label())
	for i := range q.Joins {
		j := &q.Joins[i]
		if j.Alias == "" {
			j.Alias = b.Context().NextAlias()
		}
		if j.Entity == nil {
			b.AddError(fmt.Errorf("join %q has no entity", j.Alias))
			return sc
		}
		sc.joins[j.Alias] = j.Entity
	}
	b.WriteString("SELECT ")
	project(b, sc)
	b.WriteString(" FROM ")
	c.from(b, e, e.Label())
	for _, j := range q.Joins {
		c.join(b, sc, j)
	}
	c.where(b, sc, q.Where)
	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, ref := range q.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			column(b, sc, ref)
		}
		if !q.Having.Empty() {
			b.WriteString(" HAVING ")
			c.predicate(b, sc, q.Having)
		}
	} else if !q.Having.Empty() {
		b.AddError(fmt.Errorf("%w: having condition without group by fields", pgdal.ErrUnsupported))
	}
	return sc
}

// from renders the table of an entity. The tables of a split entity are
// merged into a derived table named after the entity label.
func (c *Compiler) from(b *sql.Builder, e *schema.Entity, label string) {
	tables := e.Tables()
	if len(tables) == 1 {
		b.Ident(tables[0])
		if tables[0] != label {
			b.WriteString(" AS ").Ident(label)
		}
		return
	}
	b.WriteByte('(')
	for i, t := range tables {
		if i > 0 {
			b.WriteString(" UNION ALL ")
		}
		b.WriteString("SELECT * FROM ").Ident(t)
	}
	b.WriteString(") AS ").Ident(label)
}

var joinKeywords = map[query.JoinKind]string{
	query.InnerJoin: " JOIN ",
	query.LeftJoin:  " LEFT JOIN ",
	query.RightJoin: " RIGHT JOIN ",
}

func (c *Compiler) join(b *sql.Builder, sc *scope, j query.Join) {
	kw, ok := joinKeywords[j.Kind]
	if !ok {
		b.AddError(fmt.Errorf("%w: join kind %d", pgdal.ErrUnsupported, j.Kind))
		return
	}
	b.WriteString(kw)
	c.from(b, j.Entity, j.Alias)
	b.WriteString(" ON ")
	if len(j.On) == 0 && j.Where.Empty() {
		b.WriteString("TRUE")
		return
	}
	for i, on := range j.On {
		if i > 0 {
			b.WriteString(" AND ")
		}
		column(b, sc, on.Left)
		b.WriteString(" = ")
		column(b, sc, j.Alias+"."+on.Right)
	}
	if !j.Where.Empty() {
		if len(j.On) > 0 {
			b.WriteString(" AND ")
		}
		b.WriteByte('(')
		c.predicate(b, sc, j.Where)
		b.WriteByte(')')
	}
}

// projection returns the renderer of the projected columns of q.
func (c *Compiler) projection(q *query.Query) func(*sql.Builder, *scope) {
	refs := projectionRefs(q)
	return func(b *sql.Builder, sc *scope) {
		for i, ref := range refs {
			if i > 0 {
				b.WriteString(", ")
			}
			column(b, sc, ref)
		}
	}
}

func (c *Compiler) order(b *sql.Builder, sc *scope, orders []query.Order) {
	if len(orders) == 0 {
		return
	}
	b.WriteString(" ORDER BY ")
	for i, o := range orders {
		if i > 0 {
			b.WriteString(", ")
		}
		column(b, sc, o.Field)
		direction(b, o)
	}
}

// pagedWithTotal materializes the filtered query once as a CTE and selects
// one page of it together with the total row count:
//
//	WITH "t1" AS (SELECT ...)
//	SELECT (SELECT COUNT(*) FROM "t1") AS "total_count", "t1".* FROM "t1"
//	ORDER BY "t1"."id" DESC LIMIT 10 OFFSET 10
func (c *Compiler) pagedWithTotal(b *sql.Builder, q *query.Query) {
	orders := q.Order
	if len(orders) == 0 {
		def := q.Entity.DefaultOrder()
		if def == nil {
			b.AddError(fmt.Errorf("%w: no default order field", pgdal.ErrMissingPrimaryKey))
			return
		}
		orders = []query.Order{query.Desc(def.Name)}
	}
	inner := q.Clone()
	inner.With, inner.Order, inner.Skip, inner.Take, inner.WithTotal = nil, nil, 0, 0, false
	if len(inner.Fields) > 0 {
		// Sort keys must be part of the materialized projection.
		for _, o := range orders {
			if !slices.Contains(inner.Fields, o.Field) {
				inner.Fields = append(inner.Fields, o.Field)
			}
		}
	}
	name := b.Context().NextAlias()
	b.WriteString("WITH ")
	if len(q.With) > 0 {
		c.cteList(b, q.With)
		b.WriteString(", ")
	}
	b.Ident(name).WriteString(" AS (")
	c.rows(b, inner, false)
	b.WriteString(") SELECT (SELECT COUNT(*) FROM ").Ident(name).WriteString(") AS ").Ident(TotalColumn).
		WriteString(", ").Ident(name).WriteString(".* FROM ").Ident(name)
	b.WriteString(" ORDER BY ")
	for i, o := range orders {
		if i > 0 {
			b.WriteString(", ")
		}
		col, err := outputColumn(q, o.Field)
		b.AddError(err)
		b.Column(name, col)
		direction(b, o)
	}
	limit(b, q)
}

// aggregate renders an aggregate computation. Combined or paged queries
// are aggregated over a derived table projecting the key fields and the
// aggregate target.
func (c *Compiler) aggregate(b *sql.Builder, q *query.Query) {
	agg := q.Aggregate
	if agg == nil {
		b.AddError(fmt.Errorf("%w: no aggregate operation", pgdal.ErrAggregateField))
		return
	}
	fn, err := aggregateFunc(agg.Op)
	if err != nil {
		b.AddError(err)
		return
	}
	if agg.Op.NeedsField() && agg.Field == "" {
		b.AddError(fmt.Errorf("%w: %s", pgdal.ErrAggregateField, fn))
		return
	}
	if len(q.Combine) == 0 && q.Skip == 0 && q.Take == 0 {
		c.body(b, q, func(b *sql.Builder, sc *scope) {
			for _, ref := range q.GroupBy {
				column(b, sc, ref)
				b.WriteString(", ")
			}
			aggregateCall(b, fn, agg, func() { column(b, sc, agg.Field) })
		})
		return
	}
	if len(q.GroupBy) > 0 {
		b.AddError(fmt.Errorf("%w: grouped aggregate over a combined or paged query", pgdal.ErrUnsupported))
		return
	}
	inner := q.Clone()
	inner.Shape, inner.Aggregate = query.Rows, nil
	inner.Fields = keyRefs(q.Entity)
	if agg.Field != "" && !slices.Contains(inner.Fields, agg.Field) {
		inner.Fields = append(inner.Fields, agg.Field)
	}
	alias := b.Context().NextAlias()
	var col string
	if agg.Field != "" {
		col, err = outputColumn(q, agg.Field)
		b.AddError(err)
	}
	b.WriteString("SELECT ")
	aggregateCall(b, fn, agg, func() { b.Column(alias, col) })
	b.WriteString(" FROM (")
	c.rows(b, inner, true)
	b.WriteString(") AS ").Ident(alias)
}

func aggregateCall(b *sql.Builder, fn string, agg *query.Aggregate, target func()) {
	b.WriteString(fn).WriteByte('(')
	switch {
	case agg.Op == query.AggCount && agg.Field == "":
		b.WriteByte('1')
	case agg.Op == query.AggCountDistinct:
		b.WriteString("DISTINCT ")
		target()
	default:
		target()
	}
	b.WriteByte(')')
}

func column(b *sql.Builder, sc *scope, ref string) {
	table, f, err := sc.resolve(ref)
	if err != nil {
		b.AddError(err)
		return
	}
	b.Column(table, f.Column)
}

func direction(b *sql.Builder, o query.Order) {
	if o.Desc {
		b.WriteString(" DESC")
	} else {
		b.WriteString(" ASC")
	}
}

func limit(b *sql.Builder, q *query.Query) {
	if q.Take > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Take))
	}
	if q.Skip > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(q.Skip))
	}
}

// projectionRefs returns the field references projected by q.
func projectionRefs(q *query.Query) []string {
	switch {
	case len(q.Fields) > 0:
		return q.Fields
	case len(q.GroupBy) > 0:
		return q.GroupBy
	}
	fs := q.Entity.QueryFields()
	refs := make([]string, len(fs))
	for i, f := range fs {
		refs[i] = f.Name
	}
	return refs
}

// keyRefs returns the references of the fields identifying a row of e.
func keyRefs(e *schema.Entity) []string {
	fs := e.KeyFields()
	refs := make([]string, len(fs))
	for i, f := range fs {
		refs[i] = f.Name
	}
	return refs
}

// outputColumn returns the column name a field reference is projected as.
func outputColumn(q *query.Query, ref string) (string, error) {
	sc := newScope(q.Entity, q.Entity.Label())
	for _, j := range q.Joins {
		if j.Alias != "" && j.Entity != nil {
			sc.joins[j.Alias] = j.Entity
		}
	}
	_, f, err := sc.resolve(ref)
	if err != nil {
		return "", err
	}
	return f.Column, nil
}
