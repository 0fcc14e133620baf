package program

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mna/ippi/lang/types"
	"golang.org/x/exp/maps"
)

// FrameTag identifies one of the three variable frames.
type FrameTag uint8

const (
	GF FrameTag = iota // global frame, always present
	LF                 // top of the local frame stack
	TF                 // temporary frame, possibly absent
)

var frameNames = [...]string{GF: "GF", LF: "LF", TF: "TF"}

func (f FrameTag) String() string { return frameNames[f] }

// LookupFrameTag returns the frame tag for its source prefix ("GF", "LF"
// or "TF").
func LookupFrameTag(name string) (FrameTag, bool) {
	switch name {
	case "GF":
		return GF, true
	case "LF":
		return LF, true
	case "TF":
		return TF, true
	}
	return 0, false
}

// OperandKind discriminates the static form of an instruction argument.
type OperandKind uint8

const (
	KindVar   OperandKind = iota // variable reference (frame + name)
	KindConst                    // literal value, decoded at load
	KindLabel                    // label name, resolved when jumped to
	KindType                     // type token: int, bool, string or nil
)

// Operand is the static descriptor of an instruction argument, before the
// machine resolves it into a value or a destination.
type Operand struct {
	Kind  OperandKind
	Const types.Value // KindConst only
	Frame FrameTag    // KindVar only
	Name  string      // KindVar: variable name; KindLabel: label; KindType: type name
}

func (o Operand) String() string {
	switch o.Kind {
	case KindVar:
		return o.Frame.String() + "@" + o.Name
	case KindConst:
		return o.Const.Type() + "@" + o.Const.String()
	case KindLabel:
		return "label " + o.Name
	case KindType:
		return "type " + o.Name
	}
	return "operand(?)"
}

// Instr is one loaded instruction: its order key, opcode and arguments.
// The argument count always matches the opcode's arity.
type Instr struct {
	Order int
	Op    Opcode
	Args  []Operand
}

func (in Instr) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%4d %s", in.Order, in.Op)
	for _, arg := range in.Args {
		sb.WriteByte(' ')
		sb.WriteString(arg.String())
	}
	return sb.String()
}

// Program is the executable form of a source document: the instruction
// table in ascending order and the label table mapping each label to the
// order of its defining LABEL instruction.
type Program struct {
	Instrs []Instr
	Labels map[string]int
}

// IndexOfOrder returns the index in Instrs of the first instruction with an
// order >= the provided order, which is len(Instrs) when no such
// instruction exists. Orders may have gaps, so a jump target resolves to
// the first instruction at or after it.
func (p *Program) IndexOfOrder(order int) int {
	return sort.Search(len(p.Instrs), func(i int) bool {
		return p.Instrs[i].Order >= order
	})
}

// Listing renders the instruction table and the label table in a readable
// form, mostly useful for debugging and tests.
func (p *Program) Listing() string {
	var sb strings.Builder
	for _, in := range p.Instrs {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	if len(p.Labels) > 0 {
		sb.WriteString("labels:\n")
		names := maps.Keys(p.Labels)
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "%8s -> %d\n", name, p.Labels[name])
		}
	}
	return sb.String()
}
