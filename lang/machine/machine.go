// Package machine implements the execution engine: the three variable
// frames, the data and call stacks, operand resolution and the dispatch of
// every instruction of a loaded program. A Machine owns all of its state
// and runs a single program to completion on the calling goroutine.
package machine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/mna/ippi/lang/ipperr"
	"github.com/mna/ippi/lang/program"
	"github.com/mna/ippi/lang/types"
)

// Machine executes a loaded program.
type Machine struct {
	// Stdout and Stdin are the standard I/O abstractions of the machine:
	// WRITE prints to Stdout and READ consumes lines from Stdin. If nil,
	// os.Stdout and os.Stdin are used.
	Stdout io.Writer
	Stdin  io.Reader

	// MaxSteps is the maximum number of executed instructions before the
	// run is aborted. A value <= 0 means no limit.
	MaxSteps int

	prog *program.Program

	gf *Frame
	lf []*Frame
	tf *Frame

	dataStack []types.Value
	callStack []int // index of the calling CALL instruction

	pc int

	stdout io.Writer
	in     *bufio.Reader

	steps, maxSteps uint64
	cancelled       atomic.Bool
}

// Run executes the program and returns its exit status: 0 when execution
// falls off the end of the instruction table, or the operand of a
// successful EXIT. A non-nil error carries the ipperr.Code classifying the
// failure. The context cancels a running program between instructions.
func (m *Machine) Run(ctx context.Context, p *program.Program) (int, error) {
	if m.prog != nil {
		return 0, fmt.Errorf("machine is already executing a program")
	}
	m.prog = p
	m.init()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		m.cancelled.Store(true)
	}()

	for m.pc < len(p.Instrs) {
		m.steps++
		if m.steps > m.maxSteps {
			return 0, fmt.Errorf("maximum number of steps reached (%d)", m.MaxSteps)
		}
		if m.cancelled.Load() {
			return 0, fmt.Errorf("machine cancelled: %s", context.Cause(ctx))
		}

		status, done, err := m.step()
		if err != nil || done {
			return status, err
		}
	}
	return 0, nil
}

func (m *Machine) init() {
	if m.MaxSteps <= 0 {
		m.maxSteps-- // (MaxUint64)
	} else {
		m.maxSteps = uint64(m.MaxSteps)
	}
	if m.Stdout != nil {
		m.stdout = m.Stdout
	} else {
		m.stdout = os.Stdout
	}
	if m.Stdin != nil {
		m.in = bufio.NewReader(m.Stdin)
	} else {
		m.in = bufio.NewReader(os.Stdin)
	}
	m.gf = NewFrame()
}

// step executes the instruction at the current program counter. It returns
// done (with the exit status) when an EXIT instruction terminates the
// program.
func (m *Machine) step() (status int, done bool, err error) {
	in := m.prog.Instrs[m.pc]

	var vals [3]types.Value
	if err := m.resolveArgs(in, &vals); err != nil {
		return 0, false, err
	}

	next := m.pc + 1

	switch in.Op {
	case program.CREATEFRAME:
		m.createTF()

	case program.PUSHFRAME:
		err = m.pushTF()

	case program.POPFRAME:
		err = m.popLF()

	case program.DEFVAR:
		err = m.define(in.Args[0].Frame, in.Args[0].Name)

	case program.MOVE:
		err = m.assign(in.Args[0], vals[1])

	case program.PUSHS:
		m.dataStack = append(m.dataStack, vals[0])

	case program.POPS:
		if len(m.dataStack) == 0 {
			err = ipperr.Errorf(ipperr.MissingValue, "data stack is empty")
			break
		}
		v := m.dataStack[len(m.dataStack)-1]
		m.dataStack = m.dataStack[:len(m.dataStack)-1]
		err = m.assign(in.Args[0], v)

	case program.ADD, program.SUB, program.MUL, program.IDIV:
		x, y := vals[1].(types.Int), vals[2].(types.Int)
		var z types.Int
		switch in.Op {
		case program.ADD:
			z = x + y
		case program.SUB:
			z = x - y
		case program.MUL:
			z = x * y
		default:
			if y == 0 {
				err = ipperr.Errorf(ipperr.WrongOpValue, "integer division by zero")
				break
			}
			z = x / y // truncates toward zero
		}
		if err == nil {
			err = m.assign(in.Args[0], z)
		}

	case program.LT, program.GT:
		var cmp int
		cmp, err = types.Compare(vals[1], vals[2])
		if err != nil {
			break
		}
		if in.Op == program.LT {
			err = m.assign(in.Args[0], types.Bool(cmp < 0))
		} else {
			err = m.assign(in.Args[0], types.Bool(cmp > 0))
		}

	case program.EQ:
		var eq bool
		eq, err = types.Equals(vals[1], vals[2])
		if err != nil {
			break
		}
		err = m.assign(in.Args[0], types.Bool(eq))

	case program.AND:
		err = m.assign(in.Args[0], vals[1].(types.Bool) && vals[2].(types.Bool))

	case program.OR:
		err = m.assign(in.Args[0], vals[1].(types.Bool) || vals[2].(types.Bool))

	case program.NOT:
		err = m.assign(in.Args[0], !vals[1].(types.Bool))

	case program.INT2CHAR:
		n := vals[1].(types.Int)
		r := rune(n)
		if n < 0 || n > utf8.MaxRune || !utf8.ValidRune(r) {
			err = ipperr.Errorf(ipperr.WrongString, "invalid code point %d", n)
			break
		}
		err = m.assign(in.Args[0], types.String(r))

	case program.STRI2INT:
		rs := []rune(string(vals[1].(types.String)))
		i := vals[2].(types.Int)
		if i < 0 || int(i) >= len(rs) {
			err = ipperr.Errorf(ipperr.WrongString, "index %d out of range", i)
			break
		}
		err = m.assign(in.Args[0], types.Int(rs[i]))

	case program.CONCAT:
		err = m.assign(in.Args[0], vals[1].(types.String)+vals[2].(types.String))

	case program.STRLEN:
		err = m.assign(in.Args[0], types.Int(utf8.RuneCountInString(string(vals[1].(types.String)))))

	case program.GETCHAR:
		rs := []rune(string(vals[1].(types.String)))
		i := vals[2].(types.Int)
		if i < 0 || int(i) >= len(rs) {
			err = ipperr.Errorf(ipperr.WrongString, "index %d out of range", i)
			break
		}
		err = m.assign(in.Args[0], types.String(rs[i]))

	case program.SETCHAR:
		err = m.setchar(in, &vals)

	case program.TYPE:
		var name string
		if vals[1] != nil {
			name = vals[1].Type()
		}
		err = m.assign(in.Args[0], types.String(name))

	case program.READ:
		err = m.read(in)

	case program.WRITE:
		err = m.write(vals[0])

	case program.LABEL, program.DPRINT, program.BREAK:
		// no run-time effect

	case program.JUMP:
		next, err = m.jumpTarget(in.Args[0].Name)

	case program.JUMPIFEQ, program.JUMPIFNEQ:
		// an undefined label fails even when the jump is not taken
		var target int
		target, err = m.jumpTarget(in.Args[0].Name)
		if err != nil {
			break
		}
		var eq bool
		eq, err = types.Equals(vals[1], vals[2])
		if err != nil {
			break
		}
		if eq == (in.Op == program.JUMPIFEQ) {
			next = target
		}

	case program.CALL:
		var target int
		target, err = m.jumpTarget(in.Args[0].Name)
		if err != nil {
			break
		}
		m.callStack = append(m.callStack, m.pc)
		next = target

	case program.RETURN:
		if len(m.callStack) == 0 {
			err = ipperr.Errorf(ipperr.MissingValue, "call stack is empty")
			break
		}
		next = m.callStack[len(m.callStack)-1] + 1
		m.callStack = m.callStack[:len(m.callStack)-1]

	case program.EXIT:
		n := vals[0].(types.Int)
		if n < 0 || n > 49 {
			err = ipperr.Errorf(ipperr.WrongOpValue, "invalid exit code %d", n)
			break
		}
		return int(n), true, nil

	default:
		panic(fmt.Sprintf("unimplemented: %s", in.Op))
	}

	if err != nil {
		return 0, false, err
	}
	m.pc = next
	return 0, false, nil
}

// jumpTarget resolves a label to the instruction index of its defining
// LABEL instruction. An undefined label is a semantic error.
func (m *Machine) jumpTarget(label string) (int, error) {
	order, ok := m.prog.Labels[label]
	if !ok {
		return 0, ipperr.Errorf(ipperr.Semantic, "undefined label %q", label)
	}
	return m.prog.IndexOfOrder(order), nil
}

// setchar replaces the character at index arg2 of the string variable in
// arg1 with the first character of arg3.
func (m *Machine) setchar(in program.Instr, vals *[3]types.Value) error {
	cur, err := m.readVar(in.Args[0].Frame, in.Args[0].Name, false)
	if err != nil {
		return err
	}
	s, ok := cur.(types.String)
	if !ok {
		return ipperr.Errorf(ipperr.InvalidOp, "SETCHAR: variable %s must hold a string", in.Args[0].Name)
	}

	rs := []rune(string(s))
	i := vals[1].(types.Int)
	repl := []rune(string(vals[2].(types.String)))
	if i < 0 || int(i) >= len(rs) || len(repl) == 0 {
		return ipperr.Errorf(ipperr.WrongString, "cannot replace character %d of %q", i, s)
	}
	rs[i] = repl[0]
	return m.assign(in.Args[0], types.String(rs))
}

// read consumes one line from the input stream and assigns its coercion to
// the requested type. Any coercion failure and end-of-input assign Nil.
func (m *Machine) read(in program.Instr) error {
	want := in.Args[1].Name
	if want == "nil" {
		return ipperr.Errorf(ipperr.InvalidOp, "READ: cannot read a nil value")
	}

	line, rerr := m.in.ReadString('\n')
	if rerr != nil && line == "" {
		// end of input
		return m.assign(in.Args[0], types.Nil)
	}
	line = strings.TrimRightFunc(line, unicode.IsSpace)

	var v types.Value = types.Nil
	switch want {
	case "int":
		if i, err := strconv.ParseInt(line, 10, 64); err == nil {
			v = types.Int(i)
		}
	case "bool":
		if line != "" {
			v = types.Bool(strings.EqualFold(line, "true"))
		}
	case "string":
		v = types.String(line)
	}
	return m.assign(in.Args[0], v)
}

// write prints a value to the output stream, with no separator and no
// trailing newline. String values decode escape sequences on output.
func (m *Machine) write(v types.Value) error {
	out := v.String()
	if _, ok := v.(types.String); ok {
		out = types.DecodeEscapes(out)
	}
	_, err := io.WriteString(m.stdout, out)
	return err
}
