// Package op defines opcodes used by the numvm assembler and virtual machine.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint8

const (
	Invalid Code = 0

	// Push constants
	Constant     Code = 1 // operand: the literal value
	ConstantLong Code = 2 // operand: index into the constant pool

	// Arithmetic
	Negate   Code = 10
	Add      Code = 11
	Subtract Code = 12
	Multiply Code = 13
	Divide   Code = 14

	// Execution
	Return Code = 20

	// Reserved for instrumentation; not executable.
	Debug Code = 30
)

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int

	// StackInputs is the number of values the opcode pops when executed.
	StackInputs int

	// Executable is false for reserved opcodes the VM refuses to run.
	Executable bool
}

var (
	infos  = make([]Info, 256)
	byName = map[string]Code{}
)

func init() {
	type opInfo struct {
		op         Code
		name       string
		count      int
		inputs     int
		executable bool
	}
	ops := []opInfo{
		{Constant, "CONSTANT", 1, 0, true},
		{ConstantLong, "CONSTANT_LONG", 1, 0, true},
		{Negate, "NEGATE", 0, 1, true},
		{Add, "ADD", 0, 2, true},
		{Subtract, "SUBTRACT", 0, 2, true},
		{Multiply, "MULTIPLY", 0, 2, true},
		{Divide, "DIVIDE", 0, 2, true},
		{Return, "RETURN", 0, 0, true},
		{Debug, "DEBUG", 0, 0, false},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:         o.op,
			Name:         o.name,
			OperandCount: o.count,
			StackInputs:  o.inputs,
			Executable:   o.executable,
		}
		byName[o.name] = o.op
	}
}

// GetInfo returns information about the given opcode. Unknown opcodes
// return an Info with an empty Name.
func GetInfo(op Code) Info {
	return infos[op]
}

// Lookup returns the opcode with the given mnemonic, e.g. "NEGATE".
func Lookup(name string) (Code, bool) {
	code, ok := byName[name]
	return code, ok
}

// IsKnown returns true if the opcode is part of the instruction set.
func (c Code) IsKnown() bool {
	return infos[c].Name != ""
}

// String returns the mnemonic of the opcode.
func (c Code) String() string {
	if name := infos[c].Name; name != "" {
		return name
	}
	return "UNKNOWN"
}

// BinaryOpType describes a type of binary operation, as in an operation that
// takes two operands.
type BinaryOpType uint8

const (
	AddOp      BinaryOpType = 1
	SubtractOp BinaryOpType = 2
	MultiplyOp BinaryOpType = 3
	DivideOp   BinaryOpType = 4
)

// Binary returns the binary operation performed by the opcode, if any.
func (c Code) Binary() (BinaryOpType, bool) {
	switch c {
	case Add:
		return AddOp, true
	case Subtract:
		return SubtractOp, true
	case Multiply:
		return MultiplyOp, true
	case Divide:
		return DivideOp, true
	default:
		return 0, false
	}
}

// String returns a string representation of the binary operation.
// For example "+" for addition.
func (bop BinaryOpType) String() string {
	switch bop {
	case AddOp:
		return "+"
	case SubtractOp:
		return "-"
	case MultiplyOp:
		return "*"
	case DivideOp:
		return "/"
	default:
		return ""
	}
}

// Apply computes a <op> b using IEEE-754 float semantics. Division by zero
// yields an infinity or NaN rather than an error.
func (bop BinaryOpType) Apply(a, b float64) float64 {
	switch bop {
	case AddOp:
		return a + b
	case SubtractOp:
		return a - b
	case MultiplyOp:
		return a * b
	case DivideOp:
		return a / b
	default:
		panic("op: invalid binary operation")
	}
}
