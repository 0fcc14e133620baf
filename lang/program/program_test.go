package program

import (
	"testing"

	"github.com/mna/ippi/lang/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexOfOrder(t *testing.T) {
	p := &Program{Instrs: []Instr{
		{Order: 2, Op: CREATEFRAME},
		{Order: 5, Op: LABEL, Args: []Operand{{Kind: KindLabel, Name: "l"}}},
		{Order: 9, Op: BREAK},
	}}

	assert.Equal(t, 0, p.IndexOfOrder(1))
	assert.Equal(t, 0, p.IndexOfOrder(2))
	// orders may have gaps, a target resolves to the next instruction
	assert.Equal(t, 1, p.IndexOfOrder(3))
	assert.Equal(t, 1, p.IndexOfOrder(5))
	assert.Equal(t, 2, p.IndexOfOrder(9))
	assert.Equal(t, 3, p.IndexOfOrder(10))
}

func TestListing(t *testing.T) {
	p := &Program{
		Instrs: []Instr{
			{Order: 1, Op: DEFVAR, Args: []Operand{{Kind: KindVar, Frame: GF, Name: "x"}}},
			{Order: 2, Op: MOVE, Args: []Operand{
				{Kind: KindVar, Frame: GF, Name: "x"},
				{Kind: KindConst, Const: types.Int(5)},
			}},
			{Order: 3, Op: LABEL, Args: []Operand{{Kind: KindLabel, Name: "end"}}},
		},
		Labels: map[string]int{"end": 3},
	}

	want := `   1 DEFVAR GF@x
   2 MOVE GF@x int@5
   3 LABEL label end
labels:
     end -> 3
`
	require.Equal(t, want, p.Listing())
}

func TestLookupFrameTag(t *testing.T) {
	for _, name := range []string{"GF", "LF", "TF"} {
		tag, ok := LookupFrameTag(name)
		require.True(t, ok)
		assert.Equal(t, name, tag.String())
	}
	_, ok := LookupFrameTag("gf")
	assert.False(t, ok)
	_, ok = LookupFrameTag("XF")
	assert.False(t, ok)
}
