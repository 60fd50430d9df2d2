package vm

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/numvm/bytecode"
	"github.com/deepnoodle-ai/numvm/errz"
	"github.com/deepnoodle-ai/numvm/op"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var samples = []float64{
	0, 1, -1, 1.5, -2.25, 0.1, 1e300, -1e-300, 123456789.125,
	math.MaxFloat64, math.SmallestNonzeroFloat64, math.Inf(1), math.Inf(-1),
}

func chunkOf(instrs ...bytecode.Instruction) *bytecode.Chunk {
	chunk := bytecode.NewChunk("")
	for i, instr := range instrs {
		chunk.Write(instr, i+1)
	}
	return chunk
}

func run(t *testing.T, chunk *bytecode.Chunk, opts ...Option) (Result, error) {
	t.Helper()
	return NewWithChunk(chunk, opts...).Run(context.Background())
}

func requireKind(t *testing.T, err error, kind errz.ErrorKind) *errz.StructuredError {
	t.Helper()
	require.Error(t, err)
	var se *errz.StructuredError
	require.True(t, errors.As(err, &se), "expected a StructuredError, got %T", err)
	require.Equal(t, kind, se.Kind, se.Error())
	require.True(t, errors.Is(err, kind.Sentinel()))
	return se
}

func TestConstantReturn(t *testing.T) {
	for _, v := range append(samples, math.NaN()) {
		result, err := run(t, chunkOf(bytecode.Constant(v), bytecode.Simple(op.Return)))
		require.NoError(t, err)
		got, ok := result.Get()
		require.True(t, ok)
		require.Equal(t, math.Float64bits(v), math.Float64bits(got))
	}
}

func TestBinaryOperators(t *testing.T) {
	tests := []struct {
		code op.Code
		fn   func(a, b float64) float64
	}{
		{op.Add, func(a, b float64) float64 { return a + b }},
		{op.Subtract, func(a, b float64) float64 { return a - b }},
		{op.Multiply, func(a, b float64) float64 { return a * b }},
		{op.Divide, func(a, b float64) float64 { return a / b }},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			for _, a := range samples {
				for _, b := range samples {
					result, err := run(t, chunkOf(
						bytecode.Constant(a),
						bytecode.Constant(b),
						bytecode.Simple(tt.code),
						bytecode.Simple(op.Return),
					))
					require.NoError(t, err)
					require.True(t, result.HasValue)
					expected := tt.fn(a, b)
					if math.IsNaN(expected) {
						require.True(t, math.IsNaN(result.Value), "%v %s %v", a, tt.code, b)
					} else {
						require.Equal(t, expected, result.Value, "%v %s %v", a, tt.code, b)
					}
				}
			}
		})
	}
}

func TestOperandOrder(t *testing.T) {
	result, err := run(t, chunkOf(
		bytecode.Constant(10),
		bytecode.Constant(4),
		bytecode.Simple(op.Subtract),
		bytecode.Simple(op.Return),
	))
	require.NoError(t, err)
	require.Equal(t, Some(6), result)

	result, err = run(t, chunkOf(
		bytecode.Constant(1),
		bytecode.Constant(4),
		bytecode.Simple(op.Divide),
		bytecode.Simple(op.Return),
	))
	require.NoError(t, err)
	require.Equal(t, Some(0.25), result)
}

func TestDivisionByZero(t *testing.T) {
	tests := []struct {
		a, b  float64
		check func(float64) bool
	}{
		{1, 0, func(v float64) bool { return math.IsInf(v, 1) }},
		{-1, 0, func(v float64) bool { return math.IsInf(v, -1) }},
		{0, 0, math.IsNaN},
		{1, math.Copysign(0, -1), func(v float64) bool { return math.IsInf(v, -1) }},
	}
	for _, tt := range tests {
		result, err := run(t, chunkOf(
			bytecode.Constant(tt.a),
			bytecode.Constant(tt.b),
			bytecode.Simple(op.Divide),
			bytecode.Simple(op.Return),
		))
		require.NoError(t, err)
		require.True(t, result.HasValue)
		require.True(t, tt.check(result.Value), "%v / %v = %v", tt.a, tt.b, result.Value)
	}
}

func TestNegateIsSelfInverse(t *testing.T) {
	for _, v := range samples {
		result, err := run(t, chunkOf(
			bytecode.Constant(v),
			bytecode.Simple(op.Negate),
			bytecode.Simple(op.Negate),
			bytecode.Simple(op.Return),
		))
		require.NoError(t, err)
		require.Equal(t, Some(v), result)
	}
}

func TestReturnOnEmptyStack(t *testing.T) {
	result, err := run(t, chunkOf(bytecode.Simple(op.Return)))
	require.NoError(t, err)
	require.False(t, result.HasValue)
	require.Equal(t, None(), result)
	require.Equal(t, "none", result.String())
}

func TestReturnLeavesRemainingValues(t *testing.T) {
	machine := NewWithChunk(chunkOf(
		bytecode.Constant(1),
		bytecode.Constant(2),
		bytecode.Simple(op.Return),
	))
	result, err := machine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Some(2), result)
	require.Equal(t, []float64{1}, machine.Stack())
	tos, ok := machine.TOS()
	require.True(t, ok)
	require.Equal(t, 1.0, tos)
	require.Equal(t, 3, machine.IP())
}

func TestStackUnderflow(t *testing.T) {
	tests := []struct {
		name   string
		instrs []bytecode.Instruction
		msg    string
	}{
		{"negate empty", []bytecode.Instruction{bytecode.Simple(op.Negate)}, "NEGATE needs 1 operand, stack has 0"},
		{"add empty", []bytecode.Instruction{bytecode.Simple(op.Add)}, "ADD needs 2 operands, stack has 0"},
		{"subtract one", []bytecode.Instruction{bytecode.Constant(1), bytecode.Simple(op.Subtract)}, "SUBTRACT needs 2 operands, stack has 1"},
		{"multiply one", []bytecode.Instruction{bytecode.Constant(1), bytecode.Simple(op.Multiply)}, "MULTIPLY needs 2 operands, stack has 1"},
		{"divide one", []bytecode.Instruction{bytecode.Constant(1), bytecode.Simple(op.Divide)}, "DIVIDE needs 2 operands, stack has 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instrs := append(tt.instrs, bytecode.Simple(op.Return))
			result, err := run(t, chunkOf(instrs...))
			se := requireKind(t, err, errz.ErrStackUnderflow)
			require.Contains(t, se.Message, tt.msg)
			require.Equal(t, len(tt.instrs)-1, se.Location.IP)
			require.Equal(t, len(tt.instrs), se.Location.Line)
			require.Equal(t, None(), result)
			// The faulting instruction does not consume what was there.
			require.Len(t, se.Stack, len(tt.instrs)-1)
		})
	}
}

func TestStackOverflow(t *testing.T) {
	chunk := bytecode.NewChunk("deep")
	for i := 0; i <= StackMax; i++ {
		chunk.Write(bytecode.Constant(float64(i)), 1)
	}
	chunk.Write(bytecode.Simple(op.Return), 2)

	_, err := run(t, chunk)
	se := requireKind(t, err, errz.ErrStackOverflow)
	require.Equal(t, StackMax, se.Location.IP)
	require.Len(t, se.Stack, StackMax)

	// A larger capacity accommodates the same chunk.
	result, err := run(t, chunk, WithStackMax(StackMax+1))
	require.NoError(t, err)
	require.Equal(t, Some(StackMax), result)

	_, err = run(t, chunkOf(bytecode.Constant(1), bytecode.Constant(2), bytecode.Simple(op.Return)), WithStackMax(1))
	requireKind(t, err, errz.ErrStackOverflow)
}

func TestEmptyChunkFaults(t *testing.T) {
	_, err := run(t, bytecode.NewChunk("empty"))
	se := requireKind(t, err, errz.ErrInstructionPointer)
	require.Equal(t, 0, se.Location.IP)
	require.Contains(t, se.Message, "no instruction at ip 0 (chunk has 0 instructions)")
}

func TestRunningOffTheEndFaults(t *testing.T) {
	_, err := run(t, chunkOf(bytecode.Constant(1), bytecode.Simple(op.Negate)))
	se := requireKind(t, err, errz.ErrInstructionPointer)
	require.Equal(t, 2, se.Location.IP)
	require.Equal(t, []float64{-1}, se.Stack)
}

func TestUnsupportedInstructions(t *testing.T) {
	_, err := run(t, chunkOf(bytecode.Simple(op.Debug), bytecode.Simple(op.Return)))
	se := requireKind(t, err, errz.ErrUnsupportedInstruction)
	require.Equal(t, "DEBUG cannot be executed", se.Message)

	_, err = run(t, chunkOf(bytecode.Simple(op.Code(77)), bytecode.Simple(op.Return)))
	se = requireKind(t, err, errz.ErrUnsupportedInstruction)
	require.Equal(t, "unknown opcode 77 cannot be executed", se.Message)
}

func TestConstantLong(t *testing.T) {
	for _, v := range samples {
		chunk := bytecode.NewChunk("")
		for i := 0; i < bytecode.MaxShortConstants; i++ {
			chunk.AddConstant(float64(-i))
		}
		idx := chunk.AddConstant(v)
		chunk.Write(bytecode.ConstantLong(idx), 1)
		chunk.Write(bytecode.Simple(op.Return), 1)
		result, err := run(t, chunk)
		require.NoError(t, err)
		require.Equal(t, Some(v), result)
	}

	_, err := run(t, chunkOf(bytecode.ConstantLong(0), bytecode.Simple(op.Return)))
	se := requireKind(t, err, errz.ErrConstantIndex)
	require.Contains(t, se.Message, "constant index 0 out of range (pool size 0)")

	_, err = run(t, chunkOf(bytecode.ConstantLong(-1), bytecode.Simple(op.Return)))
	requireKind(t, err, errz.ErrConstantIndex)
}

func TestHardcodedDemoChunk(t *testing.T) {
	chunk := bytecode.NewChunk("test chunk")
	chunk.Write(bytecode.Constant(1.5), 123)
	chunk.Write(bytecode.Simple(op.Negate), 123)
	chunk.Write(bytecode.Simple(op.Return), 123)

	result, err := run(t, chunk)
	require.NoError(t, err)
	require.Equal(t, Some(-1.5), result)
}

func TestTrace(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	chunk := bytecode.NewChunk("test chunk")
	chunk.Write(bytecode.Constant(1.5), 123)
	chunk.Write(bytecode.Simple(op.Negate), 123)
	chunk.Write(bytecode.Simple(op.Return), 123)

	var buf bytes.Buffer
	result, err := run(t, chunk, WithTrace(&buf))
	require.NoError(t, err)
	require.Equal(t, Some(-1.5), result)

	expected := strings.Join([]string{
		"== test chunk ==",
		"0000  123 CONSTANT         1.5",
		"0001    | NEGATE",
		"0002    | RETURN",
		"",
		"          ",
		"0000  123 CONSTANT         1.5",
		"          [ 1.5 ]",
		"0001    | NEGATE",
		"          [ -1.5 ]",
		"0002    | RETURN",
		"result: -1.5",
		"",
	}, "\n")
	require.Equal(t, expected, buf.String())
}

func TestNoChunkLoaded(t *testing.T) {
	_, err := New().Run(context.Background())
	requireKind(t, err, errz.ErrRuntime)
	require.ErrorContains(t, err, "no chunk loaded")
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := run(t, chunkOf(bytecode.Constant(1), bytecode.Simple(op.Return)))
	require.NoError(t, err)
	_, err = NewWithChunk(chunkOf(bytecode.Constant(1), bytecode.Simple(op.Return))).Run(ctx)
	requireKind(t, err, errz.ErrRuntime)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestContextCheckedDuringRun(t *testing.T) {
	chunk := bytecode.NewChunk("")
	chunk.Write(bytecode.Constant(0), 1)
	for i := 0; i < 10; i++ {
		chunk.Write(bytecode.Simple(op.Negate), 1)
	}
	chunk.Write(bytecode.Simple(op.Return), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancelling := &stepObserver{onStep: func(e StepEvent) bool {
		if e.IP == 3 {
			cancel()
		}
		return true
	}}
	_, err := NewWithChunk(chunk, WithObserver(cancelling), WithContextCheckInterval(2)).Run(ctx)
	requireKind(t, err, errz.ErrRuntime)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestRunIsRepeatable(t *testing.T) {
	machine := NewWithChunk(chunkOf(bytecode.Constant(3), bytecode.Constant(4), bytecode.Simple(op.Return)))
	for i := 0; i < 3; i++ {
		result, err := machine.Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, Some(4), result)
		require.Equal(t, []float64{3}, machine.Stack())
	}
}

func TestChunkSharedAcrossMachines(t *testing.T) {
	chunk := chunkOf(bytecode.Constant(2), bytecode.Constant(5), bytecode.Simple(op.Multiply), bytecode.Simple(op.Return))
	before := chunk.Clone()
	done := make(chan Result, 8)
	for i := 0; i < 8; i++ {
		go func() {
			result, err := NewWithChunk(chunk).Run(context.Background())
			if err != nil {
				result = None()
			}
			done <- result
		}()
	}
	for i := 0; i < 8; i++ {
		require.Equal(t, Some(10), <-done)
	}
	require.True(t, before.Equal(chunk))
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	chunk := chunkOf(bytecode.Constant(1), bytecode.Simple(op.Return))
	_, err := run(t, chunk, WithLogger(logger))
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"message":"run started"`)
	require.Contains(t, buf.String(), `"message":"run finished"`)
	require.Contains(t, buf.String(), `"run_id":`)

	buf.Reset()
	_, err = run(t, chunkOf(bytecode.Simple(op.Negate)), WithLogger(logger))
	require.Error(t, err)
	require.Contains(t, buf.String(), `"message":"run faulted"`)
}
