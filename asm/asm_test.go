package asm

import (
	"errors"
	"math"
	"testing"

	"github.com/deepnoodle-ai/numvm/bytecode"
	"github.com/deepnoodle-ai/numvm/op"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	source := `
; negate a constant
@123 CONSTANT 1.5
@123 negate
@123 RETURN
`
	chunk, err := Assemble("test chunk", source)
	require.NoError(t, err)

	expected := bytecode.NewChunk("test chunk")
	expected.Write(bytecode.Constant(1.5), 123)
	expected.Write(bytecode.Simple(op.Negate), 123)
	expected.Write(bytecode.Simple(op.Return), 123)
	require.True(t, expected.Equal(chunk))
}

func TestListingLineNumbers(t *testing.T) {
	chunk, err := Assemble("", "CONSTANT 1\n\nCONSTANT 2 ; two\nADD\nRETURN")
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 4, 5}, chunk.Lines())
}

func TestConstantLong(t *testing.T) {
	source := `
.const 10 20
CONSTANT_LONG #1
CONSTANT_LONG 2.5
ADD
RETURN
`
	chunk, err := Assemble("", source)
	require.NoError(t, err)
	require.Equal(t, []float64{10, 20, 2.5}, chunk.Constants())
	require.Equal(t, bytecode.ConstantLong(1), chunk.InstructionAt(0))
	require.Equal(t, bytecode.ConstantLong(2), chunk.InstructionAt(1))
}

func TestSpecialValues(t *testing.T) {
	chunk, err := Assemble("", "CONSTANT inf\nCONSTANT -Inf\nCONSTANT NaN\nCONSTANT -0")
	require.NoError(t, err)
	require.True(t, math.IsInf(chunk.InstructionAt(0).Value, 1))
	require.True(t, math.IsInf(chunk.InstructionAt(1).Value, -1))
	require.True(t, math.IsNaN(chunk.InstructionAt(2).Value))
	require.True(t, math.Signbit(chunk.InstructionAt(3).Value))
}

func TestNameDirective(t *testing.T) {
	chunk, err := Compiler{Name: "default"}.Compile(".name custom\nRETURN")
	require.NoError(t, err)
	require.Equal(t, "custom", chunk.Name())

	chunk, err = Compiler{Name: "default"}.Compile("RETURN")
	require.NoError(t, err)
	require.Equal(t, "default", chunk.Name())
}

func TestAssembleErrors(t *testing.T) {
	source := `
CONSTANT
PUSH 1
NEGATE 3
CONSTANT abc
@x RETURN
@5
CONSTANT_LONG #9
.bogus
`
	chunk, err := Assemble("", source)
	require.Nil(t, chunk)
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	var lines []int
	var messages []string
	for _, e := range merr.Errors {
		var ae *Error
		require.True(t, errors.As(e, &ae))
		lines = append(lines, ae.Line)
		messages = append(messages, ae.Error())
	}
	require.Equal(t, []string{
		"line 2: CONSTANT takes exactly 1 operand, got 0",
		`line 3: unknown instruction "PUSH"`,
		"line 4: NEGATE takes no operand",
		`line 5: invalid value "abc"`,
		`line 6: invalid line marker "@x"`,
		"line 7: line marker without an instruction",
		`line 9: unknown directive ".bogus"`,
		"line 8: constant index 9 out of range (pool size 0)",
	}, messages)
	require.Equal(t, []int{2, 3, 4, 5, 6, 7, 9, 8}, lines)
}

func TestEmptyListing(t *testing.T) {
	chunk, err := Assemble("", "; nothing here\n\n")
	require.NoError(t, err)
	require.Equal(t, 0, chunk.Count())
}

func TestFormatRoundTrip(t *testing.T) {
	chunk := bytecode.NewChunk("round_trip")
	idx := chunk.AddConstant(math.Inf(-1))
	chunk.AddConstant(0.1)
	chunk.Write(bytecode.Constant(-2.25), 1)
	chunk.Write(bytecode.ConstantLong(idx), 1)
	chunk.Write(bytecode.ConstantLong(1), 2)
	chunk.Write(bytecode.Simple(op.Multiply), 3)
	chunk.Write(bytecode.Simple(op.Debug), 3)
	chunk.Write(bytecode.Simple(op.Return), 7)

	listing := Format(chunk)
	require.Equal(t, `.name round_trip
.const -Inf
.const 0.1
@1 CONSTANT -2.25
@1 CONSTANT_LONG #0
@2 CONSTANT_LONG #1
@3 MULTIPLY
@3 DEBUG
@7 RETURN
`, listing)

	again, err := Assemble("", listing)
	require.NoError(t, err)
	require.True(t, chunk.Equal(again))
}
