package vm

import (
	"io"

	"github.com/rs/zerolog"
)

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithCompiler sets the compiler used by Interpret to turn source text into
// a chunk.
func WithCompiler(compiler Compiler) Option {
	return func(vm *VirtualMachine) {
		vm.compiler = compiler
	}
}

// WithStackMax sets the operand stack capacity. Pushing beyond it is a
// stack overflow error. Values <= 0 select the default, StackMax.
func WithStackMax(max int) Option {
	return func(vm *VirtualMachine) {
		if max <= 0 {
			max = StackMax
		}
		vm.stackMax = max
	}
}

// WithTrace enables execution tracing. Before the first instruction of each
// run the whole chunk is disassembled to w, and before every instruction the
// stack contents and the instruction itself are written to w. A nil writer
// disables tracing.
func WithTrace(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.trace = w
	}
}

// WithObserver sets an observer for VM execution events.
// The observer receives callbacks for instruction steps and the final
// RETURN. This enables profilers, debuggers and code coverage tools
// without modifying the VM.
//
// Observer methods are called synchronously during execution, so
// implementations should be fast to avoid impacting performance.
// Returning false from any observer method halts execution immediately.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}

// WithLogger sets the logger used for run lifecycle events. The default
// logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution. The interval is specified in number of instructions. A value of 0
// disables checking after the initial one. The default is
// DefaultContextCheckInterval.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}
