package query

import "strings"

// Op is the operator of a predicate node.
type Op uint8

// Predicate operators.
const (
	OpAnd Op = iota
	OpOr
	OpNot
	OpEQ
	OpNEQ
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpIn
	OpNotIn
	OpLike
	OpILike
	OpIsNull
	OpNotNull
	OpExpr
)

var opNames = [...]string{
	OpAnd:     "and",
	OpOr:      "or",
	OpNot:     "not",
	OpEQ:      "eq",
	OpNEQ:     "neq",
	OpGT:      "gt",
	OpGTE:     "gte",
	OpLT:      "lt",
	OpLTE:     "lte",
	OpIn:      "in",
	OpNotIn:   "not_in",
	OpLike:    "like",
	OpILike:   "ilike",
	OpIsNull:  "is_null",
	OpNotNull: "not_null",
	OpExpr:    "expr",
}

// String returns the name of the operator.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "invalid"
}

// Predicate is a node of a filter condition tree. Leaf nodes reference a
// field by property name ("name") or, for joined entities, by alias and
// property name ("p.title").
type Predicate struct {
	Op       Op
	Field    string
	Value    any
	Fold     bool           // Compare case-insensitively.
	Expr     string         // Raw SQL fragment for OpExpr, with :name parameters.
	Params   map[string]any // Parameters referenced by Expr.
	Children []*Predicate
}

// And groups the given predicates with AND. Nil predicates are skipped.
func And(ps ...*Predicate) *Predicate {
	return group(OpAnd, ps)
}

// Or groups the given predicates with OR. Nil predicates are skipped.
func Or(ps ...*Predicate) *Predicate {
	return group(OpOr, ps)
}

// Not negates the given predicate.
func Not(p *Predicate) *Predicate {
	return &Predicate{Op: OpNot, Children: []*Predicate{p}}
}

// EQ returns a "field = value" predicate.
func EQ(field string, v any) *Predicate { return leaf(OpEQ, field, v) }

// NEQ returns a "field <> value" predicate.
func NEQ(field string, v any) *Predicate { return leaf(OpNEQ, field, v) }

// GT returns a "field > value" predicate.
func GT(field string, v any) *Predicate { return leaf(OpGT, field, v) }

// GTE returns a "field >= value" predicate.
func GTE(field string, v any) *Predicate { return leaf(OpGTE, field, v) }

// LT returns a "field < value" predicate.
func LT(field string, v any) *Predicate { return leaf(OpLT, field, v) }

// LTE returns a "field <= value" predicate.
func LTE(field string, v any) *Predicate { return leaf(OpLTE, field, v) }

// In returns a predicate matching any of the given values.
func In(field string, vs ...any) *Predicate { return leaf(OpIn, field, vs) }

// NotIn returns a predicate matching none of the given values.
func NotIn(field string, vs ...any) *Predicate { return leaf(OpNotIn, field, vs) }

// Like returns a "field LIKE pattern" predicate. The pattern is used as is.
func Like(field, pattern string) *Predicate { return leaf(OpLike, field, pattern) }

// Contains returns a predicate matching values containing the substring.
func Contains(field, sub string) *Predicate {
	return leaf(OpLike, field, "%"+EscapeLike(sub)+"%")
}

// ContainsFold is the case-insensitive version of Contains.
func ContainsFold(field, sub string) *Predicate {
	return leaf(OpILike, field, "%"+EscapeLike(sub)+"%")
}

// HasPrefix returns a predicate matching values starting with prefix.
func HasPrefix(field, prefix string) *Predicate {
	return leaf(OpLike, field, EscapeLike(prefix)+"%")
}

// HasSuffix returns a predicate matching values ending with suffix.
func HasSuffix(field, suffix string) *Predicate {
	return leaf(OpLike, field, "%"+EscapeLike(suffix))
}

// EqualFold returns a case-insensitive equality predicate.
func EqualFold(field string, v string) *Predicate {
	p := leaf(OpEQ, field, v)
	p.Fold = true
	return p
}

// IsNull returns a "field IS NULL" predicate.
func IsNull(field string) *Predicate { return leaf(OpIsNull, field, nil) }

// NotNull returns a "field IS NOT NULL" predicate.
func NotNull(field string) *Predicate { return leaf(OpNotNull, field, nil) }

// Expr returns a raw SQL predicate. Parameters are referenced as :name and
// are renamed by the compiler to stay unique within a batch.
//
//	query.Expr("age BETWEEN :lo AND :hi", map[string]any{"lo": 18, "hi": 65})
func Expr(sql string, params map[string]any) *Predicate {
	return &Predicate{Op: OpExpr, Expr: sql, Params: params}
}

// EscapeLike escapes the LIKE wildcards in s.
func EscapeLike(s string) string {
	if !strings.ContainsAny(s, `%_\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Empty reports if the predicate renders no condition.
func (p *Predicate) Empty() bool {
	if p == nil {
		return true
	}
	switch p.Op {
	case OpAnd, OpOr:
		for _, c := range p.Children {
			if !c.Empty() {
				return false
			}
		}
		return true
	case OpNot:
		return len(p.Children) == 0 || p.Children[0].Empty()
	}
	return false
}

func leaf(op Op, field string, v any) *Predicate {
	return &Predicate{Op: op, Field: field, Value: v}
}

func group(op Op, ps []*Predicate) *Predicate {
	children := make([]*Predicate, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			children = append(children, p)
		}
	}
	if len(children) == 1 {
		return children[0]
	}
	return &Predicate{Op: op, Children: children}
}
