package bytecode

import (
	"math"
	"testing"

	"github.com/deepnoodle-ai/numvm/op"
	"github.com/stretchr/testify/require"
)

func testChunk() *Chunk {
	chunk := NewChunk("test chunk")
	chunk.Write(Constant(1.5), 123)
	chunk.Write(Simple(op.Negate), 123)
	chunk.Write(Simple(op.Return), 123)
	return chunk
}

func TestWriteKeepsLineTableInStep(t *testing.T) {
	chunk := NewChunk("")
	require.Equal(t, 0, chunk.Count())
	for i := 0; i < 1000; i++ {
		chunk.Write(Constant(float64(i)), i/10)
		require.Equal(t, i+1, chunk.Count())
		require.Len(t, chunk.Lines(), chunk.Count())
	}
	require.Equal(t, 99, chunk.LineAt(999))
	require.Equal(t, Constant(999), chunk.InstructionAt(999))
}

func TestAddConstantIndicesStayValid(t *testing.T) {
	chunk := NewChunk("")
	var indices []int
	for i := 0; i < 300; i++ {
		indices = append(indices, chunk.AddConstant(float64(i)*0.5))
	}
	for i, idx := range indices {
		require.Equal(t, i, idx)
		require.Equal(t, float64(i)*0.5, chunk.ConstantAt(idx))
	}
	require.Equal(t, 300, chunk.ConstantCount())
}

func TestAccessorsReturnCopies(t *testing.T) {
	chunk := testChunk()
	chunk.AddConstant(7)

	code := chunk.Instructions()
	code[0] = Simple(op.Debug)
	lines := chunk.Lines()
	lines[0] = 1
	constants := chunk.Constants()
	constants[0] = 8

	require.Equal(t, Constant(1.5), chunk.InstructionAt(0))
	require.Equal(t, 123, chunk.LineAt(0))
	require.Equal(t, 7.0, chunk.ConstantAt(0))
}

func TestCloneAndEqual(t *testing.T) {
	chunk := testChunk()
	chunk.AddConstant(math.NaN())
	clone := chunk.Clone()
	require.True(t, chunk.Equal(clone))

	clone.Write(Simple(op.Return), 124)
	require.False(t, chunk.Equal(clone))
	require.Equal(t, 3, chunk.Count())

	var nilChunk *Chunk
	require.False(t, chunk.Equal(nilChunk))
	require.True(t, nilChunk.Equal(nil))
}

func TestInstructionString(t *testing.T) {
	require.Equal(t, "CONSTANT 1.5", Constant(1.5).String())
	require.Equal(t, "CONSTANT_LONG #3", ConstantLong(3).String())
	require.Equal(t, "NEGATE", Simple(op.Negate).String())
	require.Equal(t, "", Simple(op.Return).Operand())
	require.Equal(t, "+Inf", FormatValue(math.Inf(1)))
}

func TestStats(t *testing.T) {
	chunk := NewChunk("")
	chunk.Write(Constant(1), 1)
	chunk.Write(Constant(2), 1)
	chunk.Write(Constant(3), 2)
	chunk.Write(Simple(op.Multiply), 2)
	chunk.Write(Simple(op.Add), 3)
	chunk.Write(Simple(op.Return), 3)
	chunk.AddConstant(1)

	stats := chunk.Stats()
	require.Equal(t, 6, stats.InstructionCount)
	require.Equal(t, 1, stats.ConstantCount)
	require.Equal(t, 3, stats.LineCount)
	require.Equal(t, 3, stats.MaxStackDepth)
	require.Equal(t, 3, stats.OpcodeCounts["CONSTANT"])
	require.False(t, stats.NeedsLongConstants)
}

func TestValidate(t *testing.T) {
	require.NoError(t, testChunk().Validate())

	chunk := NewChunk("")
	chunk.Write(Simple(op.Debug), 1)
	chunk.Write(ConstantLong(4), 1)
	chunk.Write(Simple(op.Code(99)), 2)
	chunk.Write(Simple(op.Negate), 2)
	err := chunk.Validate()
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, "4 errors occurred")
	require.Contains(t, msg, "DEBUG is reserved")
	require.Contains(t, msg, "constant index 4 out of range")
	require.Contains(t, msg, "unknown opcode 99")
	require.Contains(t, msg, "does not end with RETURN")

	require.ErrorContains(t, NewChunk("").Validate(), "no instructions")
}
