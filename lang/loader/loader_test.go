package loader_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mna/ippi/lang/ipperr"
	"github.com/mna/ippi/lang/loader"
	"github.com/mna/ippi/lang/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrap(instrs string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<program language="IPPcode23">%s</program>`, instrs)
}

func TestLoadValid(t *testing.T) {
	src := wrap(`
		<instruction order="20" opcode="LABEL"><arg1 type="label">end</arg1></instruction>
		<instruction order="3" opcode="defvar"><arg1 type="var">GF@x</arg1></instruction>
		<instruction order="5" opcode="Move"><arg1 type="var">GF@x</arg1><arg2 type="int"> -42 </arg2></instruction>
		<instruction order="10" opcode="JUMP"><arg1 type="label">end</arg1></instruction>`)

	p, err := loader.Load(strings.NewReader(src))
	require.NoError(t, err)

	// instructions are sorted by order, opcodes matched case-insensitively,
	// int literals trimmed and decoded
	require.Len(t, p.Instrs, 4)
	assert.Equal(t, []int{3, 5, 10, 20}, []int{
		p.Instrs[0].Order, p.Instrs[1].Order, p.Instrs[2].Order, p.Instrs[3].Order,
	})
	assert.Equal(t, program.DEFVAR, p.Instrs[0].Op)
	assert.Equal(t, program.MOVE, p.Instrs[1].Op)
	assert.Equal(t, "int@-42", p.Instrs[1].Args[1].String())
	assert.Equal(t, map[string]int{"end": 20}, p.Labels)
}

func TestLoadEmptyProgram(t *testing.T) {
	p, err := loader.Load(strings.NewReader(wrap("")))
	require.NoError(t, err)
	assert.Empty(t, p.Instrs)
	assert.Empty(t, p.Labels)
}

func TestLoadStringLiteral(t *testing.T) {
	src := wrap(`<instruction order="1" opcode="WRITE"><arg1 type="string">a\032b</arg1></instruction>`)
	p, err := loader.Load(strings.NewReader(src))
	require.NoError(t, err)
	// escape sequences decode at load
	assert.Equal(t, "string@a b", p.Instrs[0].Args[0].String())

	// an absent text is an empty string
	src = wrap(`<instruction order="1" opcode="WRITE"><arg1 type="string"></arg1></instruction>`)
	p, err = loader.Load(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "string@", p.Instrs[0].Args[0].String())
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		code ipperr.Code
		src  string
	}{
		{"malformed xml", ipperr.WrongXML, `<program language="IPPcode23">`},
		{"not xml at all", ipperr.WrongXML, `DEFVAR GF@x`},
		{"wrong root element", ipperr.UnexpectedXML, `<prog language="IPPcode23"></prog>`},
		{"missing language", ipperr.UnexpectedXML, `<program></program>`},
		{"wrong language", ipperr.UnexpectedXML, `<program language="IPPcode19"></program>`},
		{"unexpected child element", ipperr.UnexpectedXML, wrap(`<instr order="1" opcode="BREAK"></instr>`)},
		{"missing order", ipperr.UnexpectedXML, wrap(`<instruction opcode="BREAK"></instruction>`)},
		{"order zero", ipperr.UnexpectedXML, wrap(`<instruction order="0" opcode="BREAK"></instruction>`)},
		{"negative order", ipperr.UnexpectedXML, wrap(`<instruction order="-4" opcode="BREAK"></instruction>`)},
		{"order not a number", ipperr.UnexpectedXML, wrap(`<instruction order="x" opcode="BREAK"></instruction>`)},
		{"duplicate order", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="BREAK"></instruction>
			<instruction order="1" opcode="BREAK"></instruction>`)},
		{"unknown opcode", ipperr.UnexpectedXML, wrap(`<instruction order="1" opcode="NOPE"></instruction>`)},
		{"missing argument", ipperr.UnexpectedXML, wrap(`<instruction order="1" opcode="DEFVAR"></instruction>`)},
		{"extra argument", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="BREAK"><arg1 type="int">1</arg1></instruction>`)},
		{"non-dense argument positions", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="DEFVAR"><arg2 type="var">GF@x</arg2></instruction>`)},
		{"duplicate argument position", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="MOVE"><arg1 type="var">GF@x</arg1><arg1 type="int">1</arg1></instruction>`)},
		{"foreign argument tag", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="DEFVAR"><argX type="var">GF@x</argX></instruction>`)},
		{"invalid argument type", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="WRITE"><arg1 type="float">1.5</arg1></instruction>`)},
		{"ill-formed int literal", ipperr.Semantic, wrap(`
			<instruction order="1" opcode="WRITE"><arg1 type="int">4x2</arg1></instruction>`)},
		{"out of range int literal", ipperr.Semantic, wrap(`
			<instruction order="1" opcode="WRITE"><arg1 type="int">9223372036854775808</arg1></instruction>`)},
		{"invalid bool literal", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="WRITE"><arg1 type="bool">True</arg1></instruction>`)},
		{"invalid nil literal", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="WRITE"><arg1 type="nil">null</arg1></instruction>`)},
		{"variable without frame", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="DEFVAR"><arg1 type="var">x</arg1></instruction>`)},
		{"variable with bad frame", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="DEFVAR"><arg1 type="var">XF@x</arg1></instruction>`)},
		{"variable name starts with digit", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="DEFVAR"><arg1 type="var">GF@1x</arg1></instruction>`)},
		{"empty label", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="LABEL"><arg1 type="label"></arg1></instruction>`)},
		{"invalid type token", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="READ"><arg1 type="var">GF@x</arg1><arg2 type="type">float</arg2></instruction>`)},
		{"wrong operand shape", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="DEFVAR"><arg1 type="int">1</arg1></instruction>`)},
		{"label where symbol expected", ipperr.UnexpectedXML, wrap(`
			<instruction order="1" opcode="WRITE"><arg1 type="label">l</arg1></instruction>`)},
		{"duplicate label", ipperr.Semantic, wrap(`
			<instruction order="1" opcode="LABEL"><arg1 type="label">l</arg1></instruction>
			<instruction order="2" opcode="LABEL"><arg1 type="label">l</arg1></instruction>`)},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			_, err := loader.Load(strings.NewReader(c.src))
			require.Error(t, err)
			assert.Equal(t, c.code, ipperr.CodeOf(err, 0), "error: %v", err)
		})
	}
}

// variable names accept the full identifier alphabet of the language.
func TestLoadVariableNames(t *testing.T) {
	for _, name := range []string{"_", "$x", "-", "%ok", "!", "&a", "?b", "*c", "a1", "A-B_9"} {
		src := wrap(fmt.Sprintf(`<instruction order="1" opcode="DEFVAR"><arg1 type="var">GF@%s</arg1></instruction>`, strings.ReplaceAll(name, "&", "&amp;")))
		_, err := loader.Load(strings.NewReader(src))
		assert.NoError(t, err, "name %q", name)
	}
}
