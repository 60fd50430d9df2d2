// Package numvm evaluates numeric bytecode. Source text is turned into a
// chunk by a compiler (the bundled assembler by default) and executed on a
// fresh virtual machine.
package numvm

import (
	"context"
	"io"

	"github.com/deepnoodle-ai/numvm/asm"
	"github.com/deepnoodle-ai/numvm/bytecode"
	"github.com/deepnoodle-ai/numvm/op"
	"github.com/deepnoodle-ai/numvm/vm"
	"github.com/rs/zerolog"
)

// Option configures a numvm compilation or execution.
type Option func(*options)

type options struct {
	name     string
	compiler vm.Compiler
	trace    io.Writer
	stackMax int
	observer vm.Observer
	logger   *zerolog.Logger
}

func collectOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) getCompiler() vm.Compiler {
	if o.compiler != nil {
		return o.compiler
	}
	return asm.Compiler{Name: o.name}
}

func (o *options) vmOpts() []vm.Option {
	var opts []vm.Option
	if o.trace != nil {
		opts = append(opts, vm.WithTrace(o.trace))
	}
	if o.stackMax > 0 {
		opts = append(opts, vm.WithStackMax(o.stackMax))
	}
	if o.observer != nil {
		opts = append(opts, vm.WithObserver(o.observer))
	}
	if o.logger != nil {
		opts = append(opts, vm.WithLogger(*o.logger))
	}
	return opts
}

// WithName sets the chunk name used in disassembly, traces and logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithCompiler replaces the bundled assembler.
func WithCompiler(compiler vm.Compiler) Option {
	return func(o *options) {
		o.compiler = compiler
	}
}

// WithTrace writes an execution trace to w.
func WithTrace(w io.Writer) Option {
	return func(o *options) {
		o.trace = w
	}
}

// WithStackMax sets the operand stack capacity.
func WithStackMax(max int) Option {
	return func(o *options) {
		o.stackMax = max
	}
}

// WithObserver sets an observer for VM execution events.
func WithObserver(observer vm.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithLogger sets the logger used by the VM.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// Compile turns source into a chunk without running it. Compile failures
// are returned as errz.ErrCompile errors.
func Compile(source string, opts ...Option) (*bytecode.Chunk, error) {
	o := collectOptions(opts...)
	vmOpts := []vm.Option{vm.WithCompiler(o.getCompiler())}
	if o.logger != nil {
		vmOpts = append(vmOpts, vm.WithLogger(*o.logger))
	}
	return vm.New(vmOpts...).Compile(source)
}

// Run executes a chunk on a new VM. The chunk is not modified, so the same
// chunk may be run concurrently.
func Run(ctx context.Context, chunk *bytecode.Chunk, opts ...Option) (vm.Result, error) {
	o := collectOptions(opts...)
	return vm.NewWithChunk(chunk, o.vmOpts()...).Run(ctx)
}

// Eval compiles and runs source.
func Eval(ctx context.Context, source string, opts ...Option) (vm.Result, error) {
	o := collectOptions(opts...)
	vmOpts := append(o.vmOpts(), vm.WithCompiler(o.getCompiler()))
	return vm.New(vmOpts...).Interpret(ctx, source)
}

// DemoChunk returns the hard-coded chunk "test chunk":
// CONSTANT 1.5, NEGATE, RETURN, all at line 123. Running it yields -1.5.
func DemoChunk() *bytecode.Chunk {
	chunk := bytecode.NewChunk("test chunk")
	chunk.Write(bytecode.Constant(1.5), 123)
	chunk.Write(bytecode.Simple(op.Negate), 123)
	chunk.Write(bytecode.Simple(op.Return), 123)
	return chunk
}
