package errz

// ErrorCode represents a unique identifier for error types.
// Codes are organized by category:
//   - E2xxx: Compile errors
//   - E3xxx: Runtime errors
type ErrorCode string

const (
	// Compile errors (E2xxx)
	E2001 ErrorCode = "E2001" // Source failed to compile

	// Runtime errors (E3xxx)
	E3000 ErrorCode = "E3000" // General runtime error
	E3001 ErrorCode = "E3001" // Stack underflow
	E3002 ErrorCode = "E3002" // Stack overflow
	E3003 ErrorCode = "E3003" // Instruction pointer out of range
	E3004 ErrorCode = "E3004" // Unsupported instruction
	E3005 ErrorCode = "E3005" // Constant index out of range
)

// codeDescriptions maps error codes to their short descriptions.
var codeDescriptions = map[ErrorCode]string{
	E2001: "compile failed",

	E3000: "runtime error",
	E3001: "stack underflow",
	E3002: "stack overflow",
	E3003: "instruction pointer out of range",
	E3004: "unsupported instruction",
	E3005: "constant index out of range",
}

// Description returns the short description for an error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Category returns the error category based on the code prefix.
func (c ErrorCode) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	switch c[1] {
	case '2':
		return "compile"
	case '3':
		return "runtime"
	default:
		return "unknown"
	}
}
