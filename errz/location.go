package errz

import (
	"fmt"
	"strconv"
	"strings"
)

// Location identifies the instruction an error refers to.
type Location struct {
	// IP is the 0-based index of the faulting instruction.
	IP int

	// Line is the source line recorded for the instruction, or 0 if the
	// instruction pointer was outside the chunk.
	Line int

	// Instruction is the instruction in assembly form, if known.
	Instruction string
}

// String returns a formatted string representation of the location.
func (l Location) String() string {
	if l.Line == 0 {
		return fmt.Sprintf("ip %d", l.IP)
	}
	return fmt.Sprintf("line %d, ip %d", l.Line, l.IP)
}

// IsZero returns true if the location has not been set.
func (l Location) IsZero() bool {
	return l.IP == 0 && l.Line == 0 && l.Instruction == ""
}

// FormatStack renders a stack snapshot bottom first, e.g. "[ 1 ][ 2.5 ]".
func FormatStack(stack []float64) string {
	if len(stack) == 0 {
		return "<empty>"
	}
	var sb strings.Builder
	for _, v := range stack {
		sb.WriteString(fmt.Sprintf("[ %s ]", strconv.FormatFloat(v, 'g', -1, 64)))
	}
	return sb.String()
}
