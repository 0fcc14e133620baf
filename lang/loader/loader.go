// Package loader consumes the XML form of a source program and produces
// its executable form. It enforces the structural invariants that the
// machine relies on: document shape, opcode arity, dense argument
// positions, operand shapes and literal well-formedness, so that by the
// time a *program.Program exists, only run-time conditions can fail.
package loader

import (
	"encoding/xml"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mna/ippi/lang/ipperr"
	"github.com/mna/ippi/lang/program"
	"github.com/mna/ippi/lang/types"
)

// Language is the required value of the root element's language attribute.
const Language = "IPPcode23"

type xmlProgram struct {
	XMLName  xml.Name
	Language string    `xml:"language,attr"`
	Children []xmlNode `xml:",any"`
}

type xmlNode struct {
	XMLName xml.Name
	Order   string    `xml:"order,attr"`
	Opcode  string    `xml:"opcode,attr"`
	Type    string    `xml:"type,attr"`
	Text    string    `xml:",chardata"`
	Inner   []xmlNode `xml:",any"`
}

// Load reads the XML source document from r and returns the executable
// program. Errors carry an ipperr.Code: 31 for malformed XML, 32 for an
// unexpected document structure and 52 for static semantic errors.
func Load(r io.Reader) (*program.Program, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, ipperr.Errorf(ipperr.WrongXML, "reading source: %s", err)
	}

	var doc xmlProgram
	if err := xml.Unmarshal(b, &doc); err != nil {
		return nil, ipperr.Errorf(ipperr.WrongXML, "parsing source: %s", err)
	}
	if doc.XMLName.Local != "program" {
		return nil, ipperr.Errorf(ipperr.UnexpectedXML, "unexpected root element %q", doc.XMLName.Local)
	}
	if doc.Language != Language {
		return nil, ipperr.Errorf(ipperr.UnexpectedXML, "unexpected source language %q", doc.Language)
	}

	p := &program.Program{Labels: make(map[string]int)}
	seen := make(map[int]bool, len(doc.Children))
	for _, child := range doc.Children {
		in, err := loadInstr(child)
		if err != nil {
			return nil, err
		}
		if seen[in.Order] {
			return nil, ipperr.Errorf(ipperr.UnexpectedXML, "duplicate instruction order %d", in.Order)
		}
		seen[in.Order] = true

		if in.Op == program.LABEL {
			name := in.Args[0].Name
			if _, ok := p.Labels[name]; ok {
				return nil, ipperr.Errorf(ipperr.Semantic, "duplicate label %q", name)
			}
			p.Labels[name] = in.Order
		}
		p.Instrs = append(p.Instrs, in)
	}

	sort.Slice(p.Instrs, func(i, j int) bool {
		return p.Instrs[i].Order < p.Instrs[j].Order
	})
	return p, nil
}

func loadInstr(node xmlNode) (program.Instr, error) {
	var in program.Instr

	if node.XMLName.Local != "instruction" {
		return in, ipperr.Errorf(ipperr.UnexpectedXML, "unexpected element %q", node.XMLName.Local)
	}
	order, err := strconv.Atoi(strings.TrimSpace(node.Order))
	if err != nil || order < 1 {
		return in, ipperr.Errorf(ipperr.UnexpectedXML, "invalid instruction order %q", node.Order)
	}
	op, ok := program.LookupOpcode(node.Opcode)
	if !ok {
		return in, ipperr.Errorf(ipperr.UnexpectedXML, "unknown opcode %q", node.Opcode)
	}
	in.Order, in.Op = order, op

	// collect the argN children, rejecting duplicates and foreign tags,
	// then require dense positions and the exact arity of the opcode.
	var args [3]*xmlNode
	n := 0
	for i := range node.Inner {
		arg := &node.Inner[i]
		var pos int
		switch arg.XMLName.Local {
		case "arg1":
			pos = 0
		case "arg2":
			pos = 1
		case "arg3":
			pos = 2
		default:
			return in, ipperr.Errorf(ipperr.UnexpectedXML, "unexpected element %q in instruction %d", arg.XMLName.Local, order)
		}
		if args[pos] != nil {
			return in, ipperr.Errorf(ipperr.UnexpectedXML, "duplicate %s in instruction %d", arg.XMLName.Local, order)
		}
		args[pos] = arg
		n++
	}
	for i := 0; i < n; i++ {
		if args[i] == nil {
			return in, ipperr.Errorf(ipperr.UnexpectedXML, "non-contiguous arguments in instruction %d", order)
		}
	}
	if want := op.Arity(); n != want {
		return in, ipperr.Errorf(ipperr.UnexpectedXML, "%s requires %d arguments, got %d", op, want, n)
	}

	for i := 0; i < n; i++ {
		operand, err := loadOperand(args[i])
		if err != nil {
			return in, err
		}
		if err := checkShape(op, i, operand); err != nil {
			return in, err
		}
		in.Args = append(in.Args, operand)
	}
	return in, nil
}

var varNameRx = regexp.MustCompile(`^[A-Za-z_$%!&?*-][A-Za-z0-9_$%!&?*-]*$`)

func loadOperand(arg *xmlNode) (program.Operand, error) {
	var o program.Operand

	text := arg.Text
	if arg.Type != "string" {
		text = strings.TrimSpace(text)
	}

	switch arg.Type {
	case "int":
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return o, ipperr.Errorf(ipperr.Semantic, "invalid int literal %q", text)
		}
		o = program.Operand{Kind: program.KindConst, Const: types.Int(i)}

	case "bool":
		switch text {
		case "true":
			o = program.Operand{Kind: program.KindConst, Const: types.True}
		case "false":
			o = program.Operand{Kind: program.KindConst, Const: types.False}
		default:
			return o, ipperr.Errorf(ipperr.UnexpectedXML, "invalid bool literal %q", text)
		}

	case "string":
		o = program.Operand{Kind: program.KindConst, Const: types.String(types.DecodeEscapes(text))}

	case "nil":
		if text != "nil" {
			return o, ipperr.Errorf(ipperr.UnexpectedXML, "invalid nil literal %q", text)
		}
		o = program.Operand{Kind: program.KindConst, Const: types.Nil}

	case "var":
		frame, name, ok := strings.Cut(text, "@")
		tag, tagOK := program.LookupFrameTag(frame)
		if !ok || !tagOK || !varNameRx.MatchString(name) {
			return o, ipperr.Errorf(ipperr.UnexpectedXML, "invalid variable %q", text)
		}
		o = program.Operand{Kind: program.KindVar, Frame: tag, Name: name}

	case "label":
		if text == "" {
			return o, ipperr.Errorf(ipperr.UnexpectedXML, "empty label name")
		}
		o = program.Operand{Kind: program.KindLabel, Name: text}

	case "type":
		switch text {
		case "int", "bool", "string", "nil":
			o = program.Operand{Kind: program.KindType, Name: text}
		default:
			return o, ipperr.Errorf(ipperr.UnexpectedXML, "invalid type token %q", text)
		}

	default:
		return o, ipperr.Errorf(ipperr.UnexpectedXML, "invalid argument type %q", arg.Type)
	}
	return o, nil
}

// operand shape per opcode and position: v = variable, s = symbol
// (variable or literal), l = label, t = type token.
var opShapes = map[program.Opcode]string{
	program.CREATEFRAME: "",
	program.PUSHFRAME:   "",
	program.POPFRAME:    "",
	program.RETURN:      "",
	program.BREAK:       "",
	program.DEFVAR:      "v",
	program.CALL:        "l",
	program.PUSHS:       "s",
	program.POPS:        "v",
	program.WRITE:       "s",
	program.LABEL:       "l",
	program.JUMP:        "l",
	program.EXIT:        "s",
	program.DPRINT:      "s",
	program.MOVE:        "vs",
	program.READ:        "vt",
	program.STRLEN:      "vs",
	program.TYPE:        "vs",
	program.NOT:         "vs",
	program.INT2CHAR:    "vs",
	program.ADD:         "vss",
	program.SUB:         "vss",
	program.MUL:         "vss",
	program.IDIV:        "vss",
	program.LT:          "vss",
	program.GT:          "vss",
	program.EQ:          "vss",
	program.AND:         "vss",
	program.OR:          "vss",
	program.STRI2INT:    "vss",
	program.CONCAT:      "vss",
	program.GETCHAR:     "vss",
	program.SETCHAR:     "vss",
	program.JUMPIFEQ:    "lss",
	program.JUMPIFNEQ:   "lss",
}

func checkShape(op program.Opcode, pos int, o program.Operand) error {
	var ok bool
	switch opShapes[op][pos] {
	case 'v':
		ok = o.Kind == program.KindVar
	case 's':
		ok = o.Kind == program.KindVar || o.Kind == program.KindConst
	case 'l':
		ok = o.Kind == program.KindLabel
	case 't':
		ok = o.Kind == program.KindType
	}
	if !ok {
		return ipperr.Errorf(ipperr.UnexpectedXML, "%s: invalid operand %s in position %d", op, o, pos+1)
	}
	return nil
}
