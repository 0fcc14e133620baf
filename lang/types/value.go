// Package types provides the runtime representation of the values
// manipulated by the machine: 64-bit integers, booleans, strings and nil.
// A variable cell that was defined but never written holds a nil Value,
// which is a distinct state from holding Nil.
package types

import (
	"github.com/mna/ippi/lang/ipperr"
)

// Value is the interface implemented by any value manipulated by the
// machine.
type Value interface {
	// String returns the string representation of the value, as produced
	// on the output stream by a write of this value (a write of a String
	// value also decodes its \ddd escape sequences).
	String() string

	// Type returns a short string describing the value's type.
	Type() string
}

// An Ordered type is a type whose values are ordered: if x and y are of the
// same Ordered type, then x must be less than y, greater than y, or equal
// to y.
type Ordered interface {
	Value

	// Cmp compares two values x and y of the same ordered type. It returns
	// negative if x < y, positive if x > y, and zero if the values are
	// equal. Client code should not call this method, use the standalone
	// Compare function instead.
	Cmp(y Value) int
}

// Compare compares two values of the same non-nil type and returns
// negative, zero or positive. It fails with a wrong operand type error if
// the types differ or if either operand is Nil (nil values are not
// ordered).
func Compare(x, y Value) (int, error) {
	if x.Type() != y.Type() {
		return 0, ipperr.Errorf(ipperr.InvalidOp, "cannot order %s and %s", x.Type(), y.Type())
	}
	xo, ok := x.(Ordered)
	if !ok {
		return 0, ipperr.Errorf(ipperr.InvalidOp, "%s values are not ordered", x.Type())
	}
	return xo.Cmp(y), nil
}

// Equals reports whether two values are equal under the machine's equality
// rules: operands must be of the same type, except that either side may be
// Nil, in which case the result is true only when both are Nil.
func Equals(x, y Value) (bool, error) {
	if x.Type() != y.Type() {
		if x == Nil || y == Nil {
			return false, nil
		}
		return false, ipperr.Errorf(ipperr.InvalidOp, "cannot compare %s and %s", x.Type(), y.Type())
	}
	switch x := x.(type) {
	case Int:
		return x == y.(Int), nil
	case Bool:
		return x == y.(Bool), nil
	case String:
		return x == y.(String), nil
	case NilType:
		return true, nil
	}
	return false, ipperr.Errorf(ipperr.InvalidOp, "cannot compare %s values", x.Type())
}
