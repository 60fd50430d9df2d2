package bytecode

import (
	"fmt"

	"github.com/deepnoodle-ai/numvm/op"
	"github.com/hashicorp/go-multierror"
)

// Validate checks the chunk for structural defects that would make it fault
// at run time regardless of the stack contents: unknown or reserved opcodes,
// constant pool indices out of range, a line table that does not match the
// code, and a missing RETURN. All defects are reported together.
func (c *Chunk) Validate() error {
	var result *multierror.Error
	if len(c.code) != len(c.lines) {
		result = multierror.Append(result, fmt.Errorf(
			"line table has %d entries for %d instructions", len(c.lines), len(c.code)))
	}
	if len(c.code) == 0 {
		result = multierror.Append(result, fmt.Errorf("chunk has no instructions"))
	}
	for i, instr := range c.code {
		info := op.GetInfo(instr.Op)
		switch {
		case !instr.Op.IsKnown():
			result = multierror.Append(result, fmt.Errorf(
				"instruction %d: unknown opcode %d", i, instr.Op))
		case !info.Executable:
			result = multierror.Append(result, fmt.Errorf(
				"instruction %d: %s is reserved and cannot be executed", i, instr.Name()))
		case instr.Op == op.ConstantLong && (instr.Index < 0 || instr.Index >= len(c.constants)):
			result = multierror.Append(result, fmt.Errorf(
				"instruction %d: constant index %d out of range (pool size %d)",
				i, instr.Index, len(c.constants)))
		}
	}
	if n := len(c.code); n > 0 && c.code[n-1].Op != op.Return {
		result = multierror.Append(result, fmt.Errorf(
			"instruction %d: chunk does not end with RETURN", n-1))
	}
	return result.ErrorOrNil()
}
