package machine

import (
	"github.com/mna/ippi/lang/ipperr"
	"github.com/mna/ippi/lang/program"
	"github.com/mna/ippi/lang/types"
)

// resolveArgs computes the effective operands of in before dispatch:
// literals become their decoded value, variable references in arg2/arg3
// are dereferenced, and so is a variable in arg1 for the read-only
// instructions (WRITE, EXIT, PUSHS). The arg1 of writing instructions
// stays a destination handle and labels and type tokens stay symbolic, so
// their slot in vals is nil. TYPE dereferences its arg2 with the
// uninitialized state allowed, in which case the slot is also nil.
func (m *Machine) resolveArgs(in program.Instr, vals *[3]types.Value) error {
	for i, arg := range in.Args {
		switch arg.Kind {
		case program.KindConst:
			vals[i] = arg.Const

		case program.KindVar:
			deref := i > 0
			if i == 0 {
				switch in.Op {
				case program.WRITE, program.EXIT, program.PUSHS:
					deref = true
				}
			}
			if !deref {
				continue
			}
			v, err := m.readVar(arg.Frame, arg.Name, in.Op == program.TYPE)
			if err != nil {
				return err
			}
			vals[i] = v

		default:
			// labels and type tokens are not dereferenced
		}
	}
	return checkOperands(in.Op, vals)
}

// checkOperands enforces the operand type matrix: arithmetic wants ints,
// boolean operators want bools, string operations want strings with int
// indexes, EXIT wants an int. Comparison and equality rules are enforced
// by types.Compare and types.Equals at dispatch.
func checkOperands(op program.Opcode, vals *[3]types.Value) error {
	switch op {
	case program.ADD, program.SUB, program.MUL, program.IDIV:
		return wantTypes(op, vals, "", "int", "int")
	case program.AND, program.OR:
		return wantTypes(op, vals, "", "bool", "bool")
	case program.NOT:
		return wantTypes(op, vals, "", "bool", "")
	case program.CONCAT:
		return wantTypes(op, vals, "", "string", "string")
	case program.STRLEN:
		return wantTypes(op, vals, "", "string", "")
	case program.GETCHAR, program.STRI2INT:
		return wantTypes(op, vals, "", "string", "int")
	case program.SETCHAR:
		return wantTypes(op, vals, "", "int", "string")
	case program.INT2CHAR:
		return wantTypes(op, vals, "", "int", "")
	case program.EXIT:
		return wantTypes(op, vals, "int", "", "")
	}
	return nil
}

func wantTypes(op program.Opcode, vals *[3]types.Value, t1, t2, t3 string) error {
	for i, want := range [...]string{t1, t2, t3} {
		if want == "" {
			continue
		}
		if got := vals[i]; got == nil || got.Type() != want {
			return ipperr.Errorf(ipperr.InvalidOp, "%s: operand %d must be of type %s", op, i+1, want)
		}
	}
	return nil
}
