package types

import "strings"

// String is the type of a text string, a sequence of Unicode code points.
// Indexing, lengths and character replacement all operate on code points,
// not bytes.
type String string

var (
	_ Value   = String("")
	_ Ordered = String("")
)

func (s String) String() string { return string(s) }
func (s String) Type() string   { return "string" }

// Cmp implements lexicographic comparison of two String values.
func (s String) Cmp(y Value) int {
	return strings.Compare(string(s), string(y.(String)))
}
