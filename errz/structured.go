// Package errz defines the structured errors returned by the numvm virtual
// machine when compiling or running a chunk.
package errz

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrCompile indicates the source failed to compile. No code ran.
	ErrCompile ErrorKind = iota
	// ErrStackUnderflow indicates an instruction needed more operands than
	// the stack held.
	ErrStackUnderflow
	// ErrStackOverflow indicates a push beyond the stack's capacity.
	ErrStackOverflow
	// ErrInstructionPointer indicates a fetch at an instruction pointer
	// outside the chunk, including running off the end of the code.
	ErrInstructionPointer
	// ErrUnsupportedInstruction indicates a reserved or unknown opcode.
	ErrUnsupportedInstruction
	// ErrConstantIndex indicates a constant pool index out of range.
	ErrConstantIndex
	// ErrRuntime indicates a general runtime error, such as a run halted
	// by its context or an observer.
	ErrRuntime
)

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrCompileFailed    = errors.New("compile error")
	ErrStackUnderflowed = errors.New("stack underflow")
	ErrStackOverflowed  = errors.New("stack overflow")
	ErrBadInstruction   = errors.New("instruction pointer out of range")
	ErrUnsupported      = errors.New("unsupported instruction")
	ErrBadConstantIndex = errors.New("constant index out of range")
	ErrRuntimeFault     = errors.New("runtime error")
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrCompile:
		return "compile error"
	case ErrStackUnderflow:
		return "stack underflow"
	case ErrStackOverflow:
		return "stack overflow"
	case ErrInstructionPointer:
		return "instruction pointer error"
	case ErrUnsupportedInstruction:
		return "unsupported instruction"
	case ErrConstantIndex:
		return "constant index error"
	case ErrRuntime:
		return "runtime error"
	default:
		return "error"
	}
}

// Sentinel returns the sentinel error matching this kind.
func (k ErrorKind) Sentinel() error {
	switch k {
	case ErrCompile:
		return ErrCompileFailed
	case ErrStackUnderflow:
		return ErrStackUnderflowed
	case ErrStackOverflow:
		return ErrStackOverflowed
	case ErrInstructionPointer:
		return ErrBadInstruction
	case ErrUnsupportedInstruction:
		return ErrUnsupported
	case ErrConstantIndex:
		return ErrBadConstantIndex
	default:
		return ErrRuntimeFault
	}
}

// Code returns the stable error code for this kind.
func (k ErrorKind) Code() ErrorCode {
	switch k {
	case ErrCompile:
		return E2001
	case ErrStackUnderflow:
		return E3001
	case ErrStackOverflow:
		return E3002
	case ErrInstructionPointer:
		return E3003
	case ErrUnsupportedInstruction:
		return E3004
	case ErrConstantIndex:
		return E3005
	default:
		return E3000
	}
}

// StructuredError is an error with a kind and the location in the chunk
// where it happened.
type StructuredError struct {
	Message  string
	Kind     ErrorKind
	Location Location

	// Stack is a snapshot of the operand stack, bottom first, at the time
	// of the fault. Empty for compile errors.
	Stack []float64
	Cause error
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind.String(), e.Message, e.Location)
}

// Unwrap returns the underlying cause of the error.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *StructuredError) Is(target error) bool {
	return target == e.Kind.Sentinel()
}

// IsRuntime returns true for every kind except ErrCompile.
func (e *StructuredError) IsRuntime() bool {
	return e.Kind != ErrCompile
}

// FriendlyErrorMessage returns a multi-line message with the error code,
// location and stack snapshot.
func (e *StructuredError) FriendlyErrorMessage() string {
	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("[%s] %s\n", e.Kind.Code(), e.Error()))
	if e.Cause != nil {
		msg.WriteString(fmt.Sprintf(" | cause: %v\n", e.Cause))
	}
	if !e.Location.IsZero() {
		msg.WriteString(fmt.Sprintf(" | at %s\n", e.Location.Instruction))
	}
	if e.Kind != ErrCompile {
		msg.WriteString(" | stack: ")
		msg.WriteString(FormatStack(e.Stack))
		msg.WriteString("\n")
	}
	return msg.String()
}

// NewStructuredError creates a new StructuredError with the given parameters.
func NewStructuredError(kind ErrorKind, message string, loc Location, stack []float64) *StructuredError {
	return &StructuredError{
		Message:  message,
		Kind:     kind,
		Location: loc,
		Stack:    stack,
	}
}

// NewStructuredErrorf creates a new StructuredError with a formatted message.
func NewStructuredErrorf(kind ErrorKind, loc Location, stack []float64, format string, args ...any) *StructuredError {
	return &StructuredError{
		Message:  fmt.Sprintf(format, args...),
		Kind:     kind,
		Location: loc,
		Stack:    stack,
	}
}

// WithCause wraps the error with a cause.
func (e *StructuredError) WithCause(cause error) *StructuredError {
	e.Cause = cause
	return e
}

// IsCompileError returns true if err is a compile error.
func IsCompileError(err error) bool {
	return errors.Is(err, ErrCompileFailed)
}

// IsRuntimeError returns true if err is a StructuredError of any runtime kind.
func IsRuntimeError(err error) bool {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.IsRuntime()
	}
	return false
}

// KindOf returns the kind of err, if it is or wraps a StructuredError.
func KindOf(err error) (ErrorKind, bool) {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}
