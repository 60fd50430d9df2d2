// Package bytecode provides the compiled representation of numvm programs.
//
// A [Chunk] holds an ordered instruction stream, a line table with one entry
// per instruction, and a constant pool of float64 values. Chunks are
// append-only: they are grown with [Chunk.Write] and [Chunk.AddConstant] and
// are never truncated or reordered, so constant indices stay valid for the
// lifetime of the chunk.
//
// # Key Types
//
//   - [Instruction]: A single opcode plus its inline operand (value type)
//   - [Chunk]: Instructions, line table and constant pool
//   - [Stats]: Summary counts for auditing a chunk before execution
//
// Index-based access is used for all collections:
//
//	chunk.InstructionAt(0)
//	chunk.LineAt(0)
//	chunk.ConstantAt(i)
//
// # Usage
//
//	chunk := bytecode.NewChunk("test chunk")
//	chunk.Write(bytecode.Constant(1.5), 123)
//	chunk.Write(bytecode.Simple(op.Negate), 123)
//	chunk.Write(bytecode.Simple(op.Return), 123)
//
// Chunks are read-only while a VM executes them, so independent VMs may run
// the same chunk concurrently as long as nobody appends to it.
package bytecode
