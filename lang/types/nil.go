package types

// NilType is the type of Nil. Its only legal value is Nil. A nil Value
// interface is not Nil: it marks an uninitialized variable cell.
type NilType struct{}

// Nil is the nil value of the machine.
var Nil Value = NilType{}

func (NilType) String() string { return "" }
func (NilType) Type() string   { return "nil" }
