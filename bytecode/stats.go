package bytecode

import "github.com/deepnoodle-ai/numvm/op"

// Stats contains statistics about a chunk.
// This is useful for auditing a chunk before execution.
type Stats struct {
	// InstructionCount is the total number of instructions.
	InstructionCount int `json:"instruction_count"`

	// ConstantCount is the number of constants in the constant pool.
	ConstantCount int `json:"constant_count"`

	// LineCount is the number of distinct source lines referenced.
	LineCount int `json:"line_count"`

	// OpcodeCounts is the number of occurrences of each opcode mnemonic.
	OpcodeCounts map[string]int `json:"opcode_counts"`

	// MaxStackDepth is the deepest the operand stack gets when the chunk is
	// executed straight through, ignoring faults.
	MaxStackDepth int `json:"max_stack_depth"`

	// NeedsLongConstants is true if the pool exceeds the short-form range.
	NeedsLongConstants bool `json:"needs_long_constants"`
}

// Stats computes statistics about the chunk.
func (c *Chunk) Stats() Stats {
	stats := Stats{
		InstructionCount:   len(c.code),
		ConstantCount:      len(c.constants),
		OpcodeCounts:       map[string]int{},
		NeedsLongConstants: len(c.constants) > MaxShortConstants,
	}
	lines := map[int]struct{}{}
	depth := 0
	for i, instr := range c.code {
		lines[c.lines[i]] = struct{}{}
		stats.OpcodeCounts[instr.Name()]++
		switch instr.Op {
		case op.Constant, op.ConstantLong:
			depth++
		case op.Return:
			if depth > 0 {
				depth--
			}
		default:
			if _, ok := instr.Op.Binary(); ok && depth > 0 {
				depth--
			}
		}
		if depth > stats.MaxStackDepth {
			stats.MaxStackDepth = depth
		}
	}
	stats.LineCount = len(lines)
	return stats
}
