// Package vm provides a VirtualMachine that executes numvm bytecode chunks.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/deepnoodle-ai/numvm/bytecode"
	"github.com/deepnoodle-ai/numvm/dis"
	"github.com/deepnoodle-ai/numvm/errz"
	"github.com/deepnoodle-ai/numvm/op"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

const (
	// StackMax is the default operand stack capacity.
	StackMax = 256

	// DefaultContextCheckInterval is the number of instructions between
	// checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000
)

// ErrRunning is returned when a VM is asked to run or load a chunk while it
// is already running.
var ErrRunning = errors.New("vm is already running")

// VirtualMachine interprets a chunk one instruction at a time. A
// VirtualMachine is not safe for concurrent use, but independent machines
// may execute the same chunk concurrently.
type VirtualMachine struct {
	ip       int // instruction pointer
	chunk    *bytecode.Chunk
	stack    *stack
	stackMax int
	compiler Compiler
	trace    io.Writer
	observer Observer
	logger   zerolog.Logger
	running  bool
	runMutex sync.Mutex

	// contextCheckInterval is the number of instructions between checks of
	// ctx.Done(). Default is DefaultContextCheckInterval.
	contextCheckInterval int
}

// New creates a new Virtual Machine with no chunk loaded.
func New(options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		stackMax:             StackMax,
		logger:               zerolog.Nop(),
		contextCheckInterval: DefaultContextCheckInterval,
	}
	for _, opt := range options {
		opt(vm)
	}
	vm.stack = newStack(vm.stackMax)
	return vm
}

// NewWithChunk creates a new Virtual Machine with the given chunk loaded.
func NewWithChunk(chunk *bytecode.Chunk, options ...Option) *VirtualMachine {
	vm := New(options...)
	vm.chunk = chunk
	return vm
}

// Load installs chunk as the active chunk, resets the instruction pointer
// and clears the stack.
func (vm *VirtualMachine) Load(chunk *bytecode.Chunk) error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return ErrRunning
	}
	vm.chunk = chunk
	vm.ip = 0
	vm.stack.reset()
	return nil
}

// Chunk returns the active chunk, or nil if none is loaded.
func (vm *VirtualMachine) Chunk() *bytecode.Chunk {
	return vm.chunk
}

// IP returns the current instruction pointer.
func (vm *VirtualMachine) IP() int {
	return vm.ip
}

// Stack returns a copy of the operand stack, bottom first. After a run it
// holds whatever the chunk left behind.
func (vm *VirtualMachine) Stack() []float64 {
	return vm.stack.snapshot()
}

// TOS returns the top-of-stack value if there is one, without modifying the
// stack. This only works on a stopped VM. If the VM is running, (0, false)
// is returned.
func (vm *VirtualMachine) TOS() (float64, bool) {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running || vm.stack.len() == 0 {
		return 0, false
	}
	return vm.stack.values[vm.stack.len()-1], true
}

func (vm *VirtualMachine) start() error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return ErrRunning
	}
	vm.running = true
	return nil
}

func (vm *VirtualMachine) stop() {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	vm.running = false
}

// Run executes the active chunk from its first instruction with an empty
// stack. It returns when a RETURN executes or a fault occurs. Faults are
// returned as *errz.StructuredError and never as a numeric result.
func (vm *VirtualMachine) Run(ctx context.Context) (result Result, err error) {
	// Set up some guarantees:
	// 1. It is an error to call Run on a VM that is already running
	// 2. The running flag will always be set to false when Run returns
	// 3. Any panics are translated to errors
	if err := vm.start(); err != nil {
		return None(), err
	}
	defer func() {
		if r := recover(); r != nil {
			result = None()
			err = vm.fault(errz.ErrRuntime, vm.ip-1, "panic: %v", r)
		}
		vm.stop()
	}()

	if vm.chunk == nil {
		return None(), errz.NewStructuredError(errz.ErrRuntime, "no chunk loaded", errz.Location{}, nil)
	}
	vm.ip = 0
	vm.stack.reset()

	logger := vm.logger.With().
		Str("run_id", uuid.Must(uuid.NewV4()).String()).
		Str("chunk", vm.chunk.Name()).
		Logger()
	logger.Debug().Int("instructions", vm.chunk.Count()).Msg("run started")

	result, steps, err := vm.eval(ctx)
	if err != nil {
		logger.Warn().Err(err).Int("steps", steps).Msg("run faulted")
		return None(), err
	}
	logger.Debug().Int("steps", steps).Str("result", result.String()).Msg("run finished")
	return result, nil
}

func (vm *VirtualMachine) eval(ctx context.Context) (Result, int, error) {
	if err := ctx.Err(); err != nil {
		return None(), 0, vm.fault(errz.ErrRuntime, vm.ip, "run cancelled").WithCause(err)
	}

	var filter *stepFilter
	if vm.observer != nil {
		filter = newStepFilter(vm.observer.Config())
	}
	if vm.trace != nil {
		dis.DisassembleChunk(vm.trace, vm.chunk, vm.chunkName())
		fmt.Fprintln(vm.trace)
	}

	checkInterval := vm.contextCheckInterval
	doneChan := ctx.Done()
	var steps int

	for {
		// Periodic check of ctx.Done()
		if checkInterval > 0 && doneChan != nil && steps > 0 && steps%checkInterval == 0 {
			select {
			case <-doneChan:
				return None(), steps, vm.fault(errz.ErrRuntime, vm.ip, "run cancelled").WithCause(ctx.Err())
			default:
			}
		}

		if vm.trace != nil {
			vm.traceStep()
		}

		// Fetch. Running off the end of the code is a fault: well-formed
		// chunks always finish with RETURN.
		if vm.ip < 0 || vm.ip >= vm.chunk.Count() {
			return None(), steps, vm.fault(errz.ErrInstructionPointer, vm.ip,
				"no instruction at ip %d (chunk has %d instructions)", vm.ip, vm.chunk.Count())
		}
		instr := vm.chunk.InstructionAt(vm.ip)

		if filter != nil && filter.shouldNotify(vm.chunk.LineAt(vm.ip)) {
			event := StepEvent{
				IP:         vm.ip,
				Opcode:     instr.Op,
				OpcodeName: instr.Name(),
				Line:       vm.chunk.LineAt(vm.ip),
				StackDepth: vm.stack.len(),
			}
			if !vm.observer.OnStep(event) {
				return None(), steps, vm.fault(errz.ErrRuntime, vm.ip, "execution halted by observer")
			}
		}

		// Advance the instruction pointer before executing the instruction.
		vm.ip++
		steps++

		// Dispatch the instruction
		switch instr.Op {
		case op.Constant:
			if err := vm.push(instr.Value); err != nil {
				return None(), steps, err
			}
		case op.ConstantLong:
			if instr.Index < 0 || instr.Index >= vm.chunk.ConstantCount() {
				return None(), steps, vm.fault(errz.ErrConstantIndex, vm.ip-1,
					"constant index %d out of range (pool size %d)", instr.Index, vm.chunk.ConstantCount())
			}
			if err := vm.push(vm.chunk.ConstantAt(instr.Index)); err != nil {
				return None(), steps, err
			}
		case op.Negate:
			v, ok := vm.stack.pop()
			if !ok {
				return None(), steps, vm.underflow(instr, 1)
			}
			vm.stack.push(-v)
		case op.Add, op.Subtract, op.Multiply, op.Divide:
			if vm.stack.len() < 2 {
				return None(), steps, vm.underflow(instr, 2)
			}
			bop, _ := instr.Op.Binary()
			b, _ := vm.stack.pop()
			a, _ := vm.stack.pop()
			vm.stack.push(bop.Apply(a, b))
		case op.Return:
			result := None()
			if v, ok := vm.stack.pop(); ok {
				result = Some(v)
			}
			if vm.trace != nil {
				fmt.Fprintf(vm.trace, "result: %s\n", result)
			}
			if vm.observer != nil && filter.cfg.ObserveReturns {
				event := ReturnEvent{
					Result: result,
					Line:   vm.chunk.LineAt(vm.ip - 1),
					Steps:  steps,
				}
				if !vm.observer.OnReturn(event) {
					return None(), steps, vm.fault(errz.ErrRuntime, vm.ip-1, "execution halted by observer")
				}
			}
			return result, steps, nil
		default:
			return None(), steps, vm.fault(errz.ErrUnsupportedInstruction, vm.ip-1,
				"%s cannot be executed", describeOpcode(instr.Op))
		}
	}
}

func (vm *VirtualMachine) push(v float64) error {
	if !vm.stack.push(v) {
		return vm.fault(errz.ErrStackOverflow, vm.ip-1,
			"stack capacity of %d exceeded", vm.stack.max)
	}
	return nil
}

func (vm *VirtualMachine) underflow(instr bytecode.Instruction, needed int) *errz.StructuredError {
	operands := "operands"
	if needed == 1 {
		operands = "operand"
	}
	return vm.fault(errz.ErrStackUnderflow, vm.ip-1,
		"%s needs %d %s, stack has %d", instr.Name(), needed, operands, vm.stack.len())
}

// fault creates a StructuredError for the instruction at ip, with a
// snapshot of the stack.
func (vm *VirtualMachine) fault(kind errz.ErrorKind, ip int, format string, args ...any) *errz.StructuredError {
	loc := errz.Location{IP: ip}
	if vm.chunk != nil && ip >= 0 && ip < vm.chunk.Count() {
		loc.Line = vm.chunk.LineAt(ip)
		loc.Instruction = vm.chunk.InstructionAt(ip).String()
	}
	return errz.NewStructuredErrorf(kind, loc, vm.stack.snapshot(), format, args...)
}

func (vm *VirtualMachine) traceStep() {
	var sb strings.Builder
	sb.WriteString("          ")
	for _, v := range vm.stack.values {
		sb.WriteString("[ ")
		sb.WriteString(bytecode.FormatValue(v))
		sb.WriteString(" ]")
	}
	fmt.Fprintln(vm.trace, sb.String())
	dis.DisassembleInstruction(vm.trace, vm.chunk, vm.ip)
}

func (vm *VirtualMachine) chunkName() string {
	if name := vm.chunk.Name(); name != "" {
		return name
	}
	return "chunk"
}

func describeOpcode(code op.Code) string {
	if code.IsKnown() {
		return code.String()
	}
	return fmt.Sprintf("unknown opcode %d", code)
}
