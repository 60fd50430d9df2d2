// Package dis supports analysis of numvm bytecode by disassembling it.
// This works with the opcodes defined in the `op` package and the Chunk type
// from the `bytecode` package. Disassembly never modifies the chunk.
package dis

import (
	"fmt"
	"io"
	"strconv"

	"github.com/deepnoodle-ai/numvm/bytecode"
	"github.com/deepnoodle-ai/numvm/internal/table"
	"github.com/deepnoodle-ai/numvm/op"
	"github.com/fatih/color"
)

// Instruction represents a single disassembled instruction.
type Instruction struct {
	Offset int
	Line   int

	// SameLine is true when the instruction shares its line with the
	// previous instruction.
	SameLine bool

	Name       string
	Opcode     op.Code
	Operand    string
	Annotation string

	// Constant is the value the instruction pushes, if it pushes one and
	// the value can be resolved.
	Constant *float64
}

var (
	bold   = color.New(color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgHiCyan).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

const invalid = "<invalid>"

// Disassemble returns a parsed representation of the given chunk.
func Disassemble(chunk *bytecode.Chunk) []Instruction {
	instructions := make([]Instruction, 0, chunk.Count())
	for offset := 0; offset < chunk.Count(); offset++ {
		instructions = append(instructions, decode(chunk, offset))
	}
	return instructions
}

func decode(chunk *bytecode.Chunk, offset int) Instruction {
	instr := chunk.InstructionAt(offset)
	line := chunk.LineAt(offset)
	result := Instruction{
		Offset:   offset,
		Line:     line,
		SameLine: offset > 0 && chunk.LineAt(offset-1) == line,
		Name:     instr.Name(),
		Opcode:   instr.Op,
		Operand:  instr.Operand(),
	}
	switch instr.Op {
	case op.Constant:
		v := instr.Value
		result.Constant = &v
	case op.ConstantLong:
		if instr.Index >= 0 && instr.Index < chunk.ConstantCount() {
			v := chunk.ConstantAt(instr.Index)
			result.Constant = &v
		} else {
			result.Annotation = invalid
		}
	case op.Debug:
		result.Annotation = "reserved"
	default:
		if bop, ok := instr.Op.Binary(); ok {
			result.Annotation = bop.String()
		} else if !instr.Op.IsKnown() {
			result.Name = fmt.Sprintf("UNKNOWN(%d)", instr.Op)
		}
	}
	return result
}

// DisassembleChunk writes a listing of every instruction in the chunk to w,
// headed by the chunk name.
func DisassembleChunk(w io.Writer, chunk *bytecode.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for _, instr := range Disassemble(chunk) {
		writeInstruction(w, instr)
	}
}

// DisassembleInstruction writes the single instruction at offset to w. An
// offset outside the chunk is reported rather than causing a panic.
func DisassembleInstruction(w io.Writer, chunk *bytecode.Chunk, offset int) {
	if offset < 0 || offset >= chunk.Count() {
		fmt.Fprintf(w, "%04d %s\n", offset, red("<end of chunk>"))
		return
	}
	writeInstruction(w, decode(chunk, offset))
}

func writeInstruction(w io.Writer, instr Instruction) {
	line := fmt.Sprintf("%4d", instr.Line)
	if instr.SameLine {
		line = "   |"
	}
	name := bold(fmt.Sprintf("%-16s", instr.Name))
	switch {
	case instr.Operand == "":
		fmt.Fprintf(w, "%04d %s %s\n", instr.Offset, line, bold(instr.Name))
	case instr.Opcode == op.ConstantLong:
		fmt.Fprintf(w, "%04d %s %s %4s '%s'\n", instr.Offset, line, name,
			instr.Operand, yellow(formatConstant(instr)))
	default:
		fmt.Fprintf(w, "%04d %s %s %s\n", instr.Offset, line, name,
			yellow(instr.Operand))
	}
}

func formatConstant(instr Instruction) string {
	if instr.Constant == nil {
		return instr.Annotation
	}
	return bytecode.FormatValue(*instr.Constant)
}

// Print writes the instructions to w as a table.
func Print(instructions []Instruction, w io.Writer) {
	var rows [][]string
	for _, instr := range instructions {
		line := strconv.Itoa(instr.Line)
		if instr.SameLine {
			line = faint("|")
		}
		info := ""
		switch {
		case instr.Constant != nil:
			info = yellow(bytecode.FormatValue(*instr.Constant))
		case instr.Annotation == invalid:
			info = red(instr.Annotation)
		case instr.Annotation != "":
			info = cyan(instr.Annotation)
		}
		rows = append(rows, []string{
			strconv.Itoa(instr.Offset),
			line,
			bold(instr.Name),
			instr.Operand,
			info,
		})
	}
	table.NewTable(w).
		WithHeader([]string{"OFFSET", "LINE", "OPCODE", "OPERAND", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(rows).
		Render()
}
