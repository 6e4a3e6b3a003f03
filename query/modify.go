package query

// ModKind tags the variant of a Modification.
type ModKind uint8

// Modification variants.
const (
	ModSet       ModKind = iota // Replace the column value.
	ModCalculate                // Compute the value from the current column value.
)

// Operator is the arithmetic operator of a calculated modification.
type Operator uint8

// Arithmetic operators.
const (
	Add Operator = iota
	Subtract
	Multiply
	Divide
	Modulo
	BitAnd
	BitOr
	BitXor
	Concat
)

var operatorNames = [...]string{
	Add:      "add",
	Subtract: "subtract",
	Multiply: "multiply",
	Divide:   "divide",
	Modulo:   "modulo",
	BitAnd:   "bit_and",
	BitOr:    "bit_or",
	BitXor:   "bit_xor",
	Concat:   "concat",
}

// String returns the name of the operator.
func (o Operator) String() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return "invalid"
}

// Modification is the new value of an updated field: either a literal
// (Set) or the current value combined with an operand (Calculate).
type Modification struct {
	Kind     ModKind
	Operator Operator
	Value    any
}

// Set returns a modification replacing the column value with v.
func Set(v any) Modification {
	return Modification{Kind: ModSet, Value: v}
}

// Calculate returns a modification computing "column <op> operand" on the server.
func Calculate(op Operator, operand any) Modification {
	return Modification{Kind: ModCalculate, Operator: op, Value: operand}
}
