package bytecode

import (
	"fmt"
	"strconv"

	"github.com/deepnoodle-ai/numvm/op"
)

// Instruction is one entry in a chunk's code. Which operand field is
// meaningful depends on the opcode: Constant carries Value, ConstantLong
// carries Index, and all other opcodes carry nothing.
type Instruction struct {
	Op    op.Code
	Value float64
	Index int
}

// Constant returns an instruction that pushes v, embedded inline.
func Constant(v float64) Instruction {
	return Instruction{Op: op.Constant, Value: v}
}

// ConstantLong returns an instruction that pushes the constant pool entry
// at index.
func ConstantLong(index int) Instruction {
	return Instruction{Op: op.ConstantLong, Index: index}
}

// Simple returns an instruction for an opcode that carries no operand.
func Simple(code op.Code) Instruction {
	return Instruction{Op: code}
}

// Name returns the mnemonic of the instruction's opcode.
func (i Instruction) Name() string {
	return i.Op.String()
}

// Operand returns the operand formatted for display, or "" when the opcode
// carries none.
func (i Instruction) Operand() string {
	switch i.Op {
	case op.Constant:
		return FormatValue(i.Value)
	case op.ConstantLong:
		return strconv.Itoa(i.Index)
	default:
		return ""
	}
}

// String returns the instruction in assembly form, e.g. "CONSTANT 1.5".
func (i Instruction) String() string {
	if operand := i.Operand(); operand != "" {
		if i.Op == op.ConstantLong {
			return fmt.Sprintf("%s #%s", i.Name(), operand)
		}
		return fmt.Sprintf("%s %s", i.Name(), operand)
	}
	return i.Name()
}

// FormatValue renders a float64 the way numvm prints values everywhere:
// shortest representation that round-trips.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
