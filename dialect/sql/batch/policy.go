package batch

import "fmt"

// TxPolicy decides when an execution runs in a transaction.
type TxPolicy uint8

// Transaction policies.
const (
	TxAuto   TxPolicy = iota // A transaction when more than one command was submitted.
	TxAlways                 // Always a transaction.
	TxNever                  // Never a transaction.
)

// ParseTxPolicy parses "auto", "always" or "never". An empty string is TxAuto.
func ParseTxPolicy(s string) (TxPolicy, error) {
	switch s {
	case "", "auto":
		return TxAuto, nil
	case "always":
		return TxAlways, nil
	case "never":
		return TxNever, nil
	}
	return TxAuto, fmt.Errorf("batch: unknown transaction policy %q", s)
}

// String returns the name of the policy.
func (p TxPolicy) String() string {
	switch p {
	case TxAlways:
		return "always"
	case TxNever:
		return "never"
	}
	return "auto"
}

// UseTx reports if an execution of the given number of commands runs in a
// transaction.
func (p TxPolicy) UseTx(commands int) bool {
	switch p {
	case TxAlways:
		return true
	case TxNever:
		return false
	}
	return commands > 1
}
