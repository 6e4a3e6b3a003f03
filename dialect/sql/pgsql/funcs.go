package pgsql

import (
	"fmt"
	"strings"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/query"
)

// aggregateFuncs maps aggregate operations to function names.
var aggregateFuncs = map[query.AggregateOp]string{
	query.AggCount:         "COUNT",
	query.AggCountDistinct: "COUNT",
	query.AggSum:           "SUM",
	query.AggAvg:           "AVG",
	query.AggMin:           "MIN",
	query.AggMax:           "MAX",
	query.AggStdDev:        "STDDEV_SAMP",
	query.AggVariance:      "VAR_SAMP",
}

// operators maps calculated modifications to operator symbols.
var operators = map[query.Operator]string{
	query.Add:      "+",
	query.Subtract: "-",
	query.Multiply: "*",
	query.Divide:   "/",
	query.Modulo:   "%",
	query.BitAnd:   "&",
	query.BitOr:    "|",
	query.BitXor:   "#",
	query.Concat:   "||",
}

// comparisons maps predicate operators to comparison symbols.
var comparisons = map[query.Op]string{
	query.OpEQ:    "=",
	query.OpNEQ:   "<>",
	query.OpGT:    ">",
	query.OpGTE:   ">=",
	query.OpLT:    "<",
	query.OpLTE:   "<=",
	query.OpLike:  "LIKE",
	query.OpILike: "ILIKE",
}

// setOperators maps combine kinds to set operators.
var setOperators = map[query.CombineKind]string{
	query.Union:     "UNION",
	query.UnionAll:  "UNION ALL",
	query.Intersect: "INTERSECT",
	query.Except:    "EXCEPT",
}

// aggregateFunc returns the function name of an aggregate operation.
func aggregateFunc(op query.AggregateOp) (string, error) {
	name, ok := aggregateFuncs[op]
	if !ok {
		return "", fmt.Errorf("%w: aggregate %s", pgdal.ErrUnsupported, op)
	}
	return name, nil
}

// operator returns the symbol of an arithmetic operator.
func operator(op query.Operator) (string, error) {
	sym, ok := operators[op]
	if !ok {
		return "", fmt.Errorf("%w: operator %s", pgdal.ErrUnsupported, op)
	}
	return sym, nil
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
