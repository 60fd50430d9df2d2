package vm

import (
	"context"
	"errors"

	"github.com/deepnoodle-ai/numvm/bytecode"
	"github.com/deepnoodle-ai/numvm/errz"
)

// Compiler turns source text into a chunk. The VM makes no assumption about
// the errors a Compiler returns beyond them being non-nil on failure.
type Compiler interface {
	Compile(source string) (*bytecode.Chunk, error)
}

// CompilerFunc adapts an ordinary function to the Compiler interface.
type CompilerFunc func(source string) (*bytecode.Chunk, error)

// Compile calls f(source).
func (f CompilerFunc) Compile(source string) (*bytecode.Chunk, error) {
	return f(source)
}

var errNoCompiler = errors.New("no compiler configured")

// Compile runs the configured compiler over source without touching the
// VM's state. A failure is returned as an errz.ErrCompile error.
func (vm *VirtualMachine) Compile(source string) (*bytecode.Chunk, error) {
	if vm.compiler == nil {
		return nil, compileError(errNoCompiler)
	}
	chunk, err := vm.compiler.Compile(source)
	if err != nil {
		vm.logger.Debug().Err(err).Msg("compile failed")
		return nil, compileError(err)
	}
	if chunk == nil {
		return nil, compileError(errors.New("compiler returned no chunk"))
	}
	return chunk, nil
}

// Interpret compiles source and runs the resulting chunk. A compile failure
// is returned as an errz.ErrCompile error and leaves the active chunk
// untouched. Otherwise the new chunk replaces the active one, the stack is
// cleared, and the result or runtime error of Run is returned.
func (vm *VirtualMachine) Interpret(ctx context.Context, source string) (Result, error) {
	chunk, err := vm.Compile(source)
	if err != nil {
		return None(), err
	}
	if err := vm.Load(chunk); err != nil {
		return None(), err
	}
	return vm.Run(ctx)
}

func compileError(cause error) *errz.StructuredError {
	return errz.NewStructuredError(errz.ErrCompile, cause.Error(), errz.Location{}, nil).WithCause(cause)
}
