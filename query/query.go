package query

import (
	"maps"
	"slices"

	"github.com/syssam/pgdal/schema"
)

// Mode is the execution mode of a query.
type Mode uint8

// Execution modes.
const (
	Structured Mode = iota // Compiled from the query description.
	RawScript              // SQL text supplied by the caller.
)

// Shape is the output shape of a query.
type Shape uint8

// Output shapes.
const (
	Rows Shape = iota
	Count
	Exists
	Aggregated
)

// JoinKind is the kind of a join.
type JoinKind uint8

// Join kinds.
const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
)

// Join joins another entity into the FROM target of a query.
type Join struct {
	Kind   JoinKind
	Entity *schema.Entity
	Alias  string // Allocated by the compiler when empty.
	On     []On
	Where  *Predicate // Extra condition on the joined entity.
}

// On is one column equality of a join condition. Left references the
// main entity (or a previous join as "alias.Prop"); Right references the
// joined entity.
type On struct {
	Left, Right string
}

// Order is one sort key.
type Order struct {
	Field string
	Desc  bool
}

// Asc returns an ascending sort key.
func Asc(field string) Order { return Order{Field: field} }

// Desc returns a descending sort key.
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// CombineKind is the set operator of a combine item.
type CombineKind uint8

// Set operators.
const (
	Union CombineKind = iota
	UnionAll
	Intersect
	Except
)

// Combine is a secondary query merged with the result of the main query.
type Combine struct {
	Kind  CombineKind
	Query *Query
}

// AggregateOp is an aggregate function.
type AggregateOp uint8

// Aggregate functions.
const (
	AggCount AggregateOp = iota
	AggCountDistinct
	AggSum
	AggAvg
	AggMin
	AggMax
	AggStdDev
	AggVariance
	AggMedian // Not supported by every dialect.
)

var aggregateNames = [...]string{
	AggCount:         "count",
	AggCountDistinct: "count_distinct",
	AggSum:           "sum",
	AggAvg:           "avg",
	AggMin:           "min",
	AggMax:           "max",
	AggStdDev:        "stddev",
	AggVariance:      "variance",
	AggMedian:        "median",
}

// String returns the name of the aggregate function.
func (o AggregateOp) String() string {
	if int(o) < len(aggregateNames) {
		return aggregateNames[o]
	}
	return "invalid"
}

// NeedsField reports if the aggregate function requires an explicit target field.
func (o AggregateOp) NeedsField() bool {
	return o != AggCount
}

// Aggregate is the aggregate computed by a query of the Aggregated shape.
type Aggregate struct {
	Op    AggregateOp
	Field string
}

// CTE is a named sub-query rendered in a WITH clause ahead of the main
// statement. Either Query or SQL is set.
type CTE struct {
	Name   string
	Query  *Query
	SQL    string
	Params map[string]any
}

// Query describes a read over one entity. It is consumed read-only by the
// compilers; use Clone before adjusting a caller-owned query.
type Query struct {
	Entity    *schema.Entity
	Mode      Mode
	SQL       string         // Raw SQL text in RawScript mode.
	Params    map[string]any // Parameters of the raw SQL text.
	With      []CTE
	Where     *Predicate
	Joins     []Join
	Order     []Order
	GroupBy   []string
	Having    *Predicate
	Combine   []Combine
	Skip      int
	Take      int // Zero means no limit.
	Fields    []string
	Shape     Shape
	Aggregate *Aggregate
	WithTotal bool // Return the total matching count with a page of rows.
}

// From returns a new query over the given entity.
//
//	query.From(users).
//	    Filter(query.GT("age", 18)).
//	    OrderBy(query.Desc("created_at")).
//	    Page(20, 10)
func From(e *schema.Entity) *Query {
	return &Query{Entity: e}
}

// Raw returns a raw-script query. The SQL text bypasses compilation.
func Raw(sql string, params map[string]any) *Query {
	return &Query{Mode: RawScript, SQL: sql, Params: params}
}

// Filter adds predicates to the query condition, joined with AND.
func (q *Query) Filter(ps ...*Predicate) *Query {
	if q.Where != nil {
		ps = append([]*Predicate{q.Where}, ps...)
	}
	q.Where = And(ps...)
	return q
}

// Join appends a join.
func (q *Query) Join(j Join) *Query {
	q.Joins = append(q.Joins, j)
	return q
}

// OrderBy appends sort keys.
func (q *Query) OrderBy(os ...Order) *Query {
	q.Order = append(q.Order, os...)
	return q
}

// Group sets the GROUP BY fields and the optional HAVING condition.
func (q *Query) Group(having *Predicate, fields ...string) *Query {
	q.GroupBy = append(q.GroupBy, fields...)
	q.Having = having
	return q
}

// Union merges the rows of other, without duplicates.
func (q *Query) Union(other *Query) *Query {
	q.Combine = append(q.Combine, Combine{Kind: Union, Query: other})
	return q
}

// UnionAll merges the rows of other.
func (q *Query) UnionAll(other *Query) *Query {
	q.Combine = append(q.Combine, Combine{Kind: UnionAll, Query: other})
	return q
}

// Intersect keeps the rows also returned by other.
func (q *Query) Intersect(other *Query) *Query {
	q.Combine = append(q.Combine, Combine{Kind: Intersect, Query: other})
	return q
}

// Select sets the projected fields.
func (q *Query) Select(fields ...string) *Query {
	q.Fields = fields
	return q
}

// Limit sets the number of rows to return.
func (q *Query) Limit(n int) *Query {
	q.Take = n
	return q
}

// Offset sets the number of rows to skip.
func (q *Query) Offset(n int) *Query {
	q.Skip = n
	return q
}

// Page sets skip and take for a one-based page number.
func (q *Query) Page(page, size int) *Query {
	if page < 1 {
		page = 1
	}
	q.Skip, q.Take = (page-1)*size, size
	return q
}

// Total requests the total matching count alongside the page of rows.
func (q *Query) Total() *Query {
	q.WithTotal = true
	return q
}

// AsCount turns the query into a count query.
func (q *Query) AsCount() *Query {
	q.Shape = Count
	return q
}

// AsExists turns the query into an existence check.
func (q *Query) AsExists() *Query {
	q.Shape = Exists
	return q
}

// AsAggregate turns the query into an aggregate computation.
func (q *Query) AsAggregate(op AggregateOp, field string) *Query {
	q.Shape = Aggregated
	q.Aggregate = &Aggregate{Op: op, Field: field}
	return q
}

// CTE prepends a named sub-query.
func (q *Query) CTE(name string, sub *Query) *Query {
	q.With = append(q.With, CTE{Name: name, Query: sub})
	return q
}

// HasPreScript reports if a WITH prelude precedes the main statement.
func (q *Query) HasPreScript() bool {
	return q != nil && len(q.With) > 0
}

// HasJoin reports if the query joins other entities.
func (q *Query) HasJoin() bool {
	return q != nil && len(q.Joins) > 0
}

// Clone returns a copy of the query that can be adjusted without
// affecting q. Predicate trees are shared; they are never modified.
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}
	c := *q
	c.Params = maps.Clone(q.Params)
	c.With = slices.Clone(q.With)
	c.Joins = slices.Clone(q.Joins)
	c.Order = slices.Clone(q.Order)
	c.GroupBy = slices.Clone(q.GroupBy)
	c.Combine = slices.Clone(q.Combine)
	c.Fields = slices.Clone(q.Fields)
	if q.Aggregate != nil {
		agg := *q.Aggregate
		c.Aggregate = &agg
	}
	return &c
}
