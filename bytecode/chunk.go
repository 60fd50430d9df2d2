package bytecode

// MaxShortConstants is the number of constant pool entries addressable by a
// one-byte index. Pools larger than this need ConstantLong.
const MaxShortConstants = 256

// Chunk represents a compiled unit of bytecode: instructions, a line table
// with exactly one entry per instruction, and a constant pool.
type Chunk struct {
	name      string
	code      []Instruction
	lines     []int
	constants []float64
}

// NewChunk returns an empty chunk with the given name. The name is only
// used for diagnostics.
func NewChunk(name string) *Chunk {
	return &Chunk{name: name}
}

// Name returns the name of this chunk.
func (c *Chunk) Name() string {
	return c.name
}

// Write appends an instruction along with the source line it came from.
func (c *Chunk) Write(instr Instruction, line int) {
	c.code = append(c.code, instr)
	c.lines = append(c.lines, line)
}

// AddConstant appends a value to the constant pool and returns its index.
func (c *Chunk) AddConstant(value float64) int {
	c.constants = append(c.constants, value)
	return len(c.constants) - 1
}

// Count returns the number of instructions.
func (c *Chunk) Count() int {
	return len(c.code)
}

// InstructionAt returns the instruction at the given index.
func (c *Chunk) InstructionAt(index int) Instruction {
	return c.code[index]
}

// LineAt returns the source line of the instruction at the given index.
func (c *Chunk) LineAt(index int) int {
	return c.lines[index]
}

// ConstantCount returns the number of constants in the pool.
func (c *Chunk) ConstantCount() int {
	return len(c.constants)
}

// ConstantAt returns the constant at the given index.
func (c *Chunk) ConstantAt(index int) float64 {
	return c.constants[index]
}

// Instructions returns a copy of the instruction stream.
func (c *Chunk) Instructions() []Instruction {
	return copyInstructions(c.code)
}

// Lines returns a copy of the line table.
func (c *Chunk) Lines() []int {
	return copyInts(c.lines)
}

// Constants returns a copy of the constant pool.
func (c *Chunk) Constants() []float64 {
	return copyFloats(c.constants)
}

// Clone returns a deep copy of the chunk.
func (c *Chunk) Clone() *Chunk {
	return &Chunk{
		name:      c.name,
		code:      copyInstructions(c.code),
		lines:     copyInts(c.lines),
		constants: copyFloats(c.constants),
	}
}

// Equal reports whether two chunks hold the same name, code, lines and
// constants. Constants are compared bit for bit so NaN equals NaN.
func (c *Chunk) Equal(other *Chunk) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.name != other.name ||
		len(c.code) != len(other.code) ||
		len(c.lines) != len(other.lines) ||
		len(c.constants) != len(other.constants) {
		return false
	}
	for i := range c.code {
		if !sameInstruction(c.code[i], other.code[i]) || c.lines[i] != other.lines[i] {
			return false
		}
	}
	for i := range c.constants {
		if !sameFloat(c.constants[i], other.constants[i]) {
			return false
		}
	}
	return true
}
