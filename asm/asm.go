// Package asm assembles textual instruction listings into bytecode chunks.
//
// A listing holds one instruction per line:
//
//	.name example        ; optional chunk name
//	.const 2.5           ; append 2.5 to the constant pool
//	@123 CONSTANT 1.5    ; "@N" sets the source line recorded for the instruction
//	CONSTANT_LONG #0     ; push constant pool entry 0
//	CONSTANT_LONG 7      ; add 7 to the pool and push it
//	NEGATE
//	RETURN
//
// Mnemonics are case-insensitive. Instructions without an "@N" marker are
// recorded at their line number in the listing. Everything after a ';' is
// ignored.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/numvm/bytecode"
	"github.com/deepnoodle-ai/numvm/op"
	"github.com/hashicorp/go-multierror"
)

// Error describes a problem with a single line of a listing.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Compiler assembles listings. It satisfies vm.Compiler.
type Compiler struct {
	// Name is the chunk name used when the listing has no .name directive.
	Name string
}

// Compile assembles source into a chunk. Every malformed line is reported;
// the returned error is a *multierror.Error whose entries are *Error values.
func (c Compiler) Compile(source string) (*bytecode.Chunk, error) {
	return Assemble(c.Name, source)
}

// Assemble assembles source into a chunk with the given default name.
func Assemble(name, source string) (*bytecode.Chunk, error) {
	a := &assembler{name: name}
	for i, text := range strings.Split(source, "\n") {
		a.line(i+1, text)
	}
	return a.finish()
}

type pending struct {
	instr bytecode.Instruction
	line  int

	// listing is the line number in the source, for error reporting.
	listing int
}

type assembler struct {
	name      string
	code      []pending
	constants []float64
	errs      *multierror.Error
}

func (a *assembler) errorf(line int, format string, args ...any) {
	a.errs = multierror.Append(a.errs, &Error{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (a *assembler) line(n int, text string) {
	if i := strings.IndexByte(text, ';'); i >= 0 {
		text = text[:i]
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	if strings.HasPrefix(fields[0], ".") {
		a.directive(n, fields)
		return
	}

	sourceLine := n
	if strings.HasPrefix(fields[0], "@") {
		v, err := strconv.Atoi(fields[0][1:])
		if err != nil || v < 0 {
			a.errorf(n, "invalid line marker %q", fields[0])
			return
		}
		sourceLine = v
		fields = fields[1:]
		if len(fields) == 0 {
			a.errorf(n, "line marker without an instruction")
			return
		}
	}

	code, ok := op.Lookup(strings.ToUpper(fields[0]))
	if !ok {
		a.errorf(n, "unknown instruction %q", fields[0])
		return
	}
	operands := fields[1:]
	info := op.GetInfo(code)
	if len(operands) != info.OperandCount {
		if info.OperandCount == 0 {
			a.errorf(n, "%s takes no operand", info.Name)
		} else {
			a.errorf(n, "%s takes exactly %d operand, got %d", info.Name, info.OperandCount, len(operands))
		}
		return
	}

	var instr bytecode.Instruction
	switch code {
	case op.Constant:
		v, err := parseValue(operands[0])
		if err != nil {
			a.errorf(n, "invalid value %q", operands[0])
			return
		}
		instr = bytecode.Constant(v)
	case op.ConstantLong:
		if ref, isRef := strings.CutPrefix(operands[0], "#"); isRef {
			index, err := strconv.Atoi(ref)
			if err != nil || index < 0 {
				a.errorf(n, "invalid constant index %q", operands[0])
				return
			}
			instr = bytecode.ConstantLong(index)
		} else {
			v, err := parseValue(operands[0])
			if err != nil {
				a.errorf(n, "invalid value %q", operands[0])
				return
			}
			a.constants = append(a.constants, v)
			instr = bytecode.ConstantLong(len(a.constants) - 1)
		}
	default:
		instr = bytecode.Simple(code)
	}
	a.code = append(a.code, pending{instr: instr, line: sourceLine, listing: n})
}

func (a *assembler) directive(n int, fields []string) {
	switch strings.ToLower(fields[0]) {
	case ".name":
		if len(fields) != 2 {
			a.errorf(n, ".name takes exactly one argument")
			return
		}
		a.name = fields[1]
	case ".const":
		if len(fields) < 2 {
			a.errorf(n, ".const needs at least one value")
			return
		}
		for _, f := range fields[1:] {
			v, err := parseValue(f)
			if err != nil {
				a.errorf(n, "invalid value %q", f)
				return
			}
			a.constants = append(a.constants, v)
		}
	default:
		a.errorf(n, "unknown directive %q", fields[0])
	}
}

func (a *assembler) finish() (*bytecode.Chunk, error) {
	for _, p := range a.code {
		if p.instr.Op == op.ConstantLong && p.instr.Index >= len(a.constants) {
			a.errorf(p.listing, "constant index %d out of range (pool size %d)",
				p.instr.Index, len(a.constants))
		}
	}
	if err := a.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	chunk := bytecode.NewChunk(a.name)
	for _, v := range a.constants {
		chunk.AddConstant(v)
	}
	for _, p := range a.code {
		chunk.Write(p.instr, p.line)
	}
	return chunk, nil
}

// parseValue accepts anything strconv.ParseFloat does, including "inf",
// "-Inf" and "NaN".
func parseValue(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// Format renders chunk as a listing that Assemble turns back into an equal
// chunk.
func Format(chunk *bytecode.Chunk) string {
	var sb strings.Builder
	if name := chunk.Name(); name != "" && !strings.ContainsAny(name, " \t;") {
		fmt.Fprintf(&sb, ".name %s\n", name)
	}
	for _, v := range chunk.Constants() {
		fmt.Fprintf(&sb, ".const %s\n", bytecode.FormatValue(v))
	}
	for i := 0; i < chunk.Count(); i++ {
		fmt.Fprintf(&sb, "@%d %s\n", chunk.LineAt(i), chunk.InstructionAt(i))
	}
	return sb.String()
}
