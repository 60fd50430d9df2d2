package vm

import (
	"github.com/deepnoodle-ai/numvm/op"
)

// StepMode controls when OnStep callbacks are triggered.
type StepMode uint8

const (
	// StepAll calls OnStep for every instruction.
	// Use for: detailed tracing, instruction-level debugging.
	StepAll StepMode = iota

	// StepNone never calls OnStep.
	// Use for: observers that only care about the final RETURN.
	StepNone

	// StepSampled calls OnStep every N instructions.
	// Use for: statistical profiling.
	StepSampled

	// StepOnLine calls OnStep when the source line changes.
	// Use for: coverage tools, line-level debugging.
	StepOnLine
)

// ObserverConfig specifies what events an observer wants to receive.
// Use NewObserverConfig() to create configs with safe defaults.
type ObserverConfig struct {
	// StepMode controls OnStep callback frequency.
	StepMode StepMode

	// SampleInterval is the number of instructions between OnStep calls
	// when StepMode is StepSampled. Values <= 0 are treated as 1.
	// Ignored for other modes.
	SampleInterval int

	// ObserveReturns enables OnReturn callbacks.
	ObserveReturns bool
}

// NewObserverConfig creates a config with safe defaults.
// ObserveReturns defaults to true.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:       mode,
		SampleInterval: 1000,
		ObserveReturns: true,
	}
}

// NormalizeConfig validates and clamps config values.
func NormalizeConfig(cfg ObserverConfig) ObserverConfig {
	if cfg.StepMode == StepSampled && cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 1
	}
	return cfg
}

// Observer is an interface for observing VM execution events.
// Implementations can be used for profiling, debugging, code coverage,
// or execution tracing.
//
// Observer methods are called synchronously during VM execution.
// Implementations should be fast to avoid impacting performance.
type Observer interface {
	// Config returns the observer's configuration.
	// Called once at the start of each run.
	Config() ObserverConfig

	// OnStep is called before an instruction is dispatched, based on the
	// StepMode in the observer's config.
	// Returns false to halt execution immediately.
	OnStep(event StepEvent) bool

	// OnReturn is called when a RETURN instruction finishes the run (if
	// ObserveReturns is true). Returns false to turn the run into an error.
	OnReturn(event ReturnEvent) bool
}

// StepEvent contains information about a single instruction step.
type StepEvent struct {
	// IP is the instruction pointer (index into the instruction array).
	IP int

	// Opcode is the operation being executed.
	Opcode op.Code

	// OpcodeName is the human-readable name of the opcode.
	OpcodeName string

	// Line is the source line of the instruction.
	Line int

	// StackDepth is the current depth of the operand stack.
	StackDepth int
}

// ReturnEvent contains information about the RETURN that ended a run.
type ReturnEvent struct {
	// Result is the value returned, if any.
	Result Result

	// Line is the source line of the RETURN instruction.
	Line int

	// Steps is the number of instructions executed, including the RETURN.
	Steps int
}

// NoOpObserver is an Observer implementation that does nothing.
// Embed this in your observer to provide default implementations
// for methods you don't need.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

// Ensure NoOpObserver implements Observer.
var _ Observer = NoOpObserver{}

// stepFilter decides which steps are forwarded to an observer.
type stepFilter struct {
	cfg      ObserverConfig
	count    int
	lastLine int
	started  bool
}

func newStepFilter(cfg ObserverConfig) *stepFilter {
	return &stepFilter{cfg: NormalizeConfig(cfg)}
}

func (f *stepFilter) shouldNotify(line int) bool {
	switch f.cfg.StepMode {
	case StepAll:
		return true
	case StepSampled:
		f.count++
		if f.count >= f.cfg.SampleInterval {
			f.count = 0
			return true
		}
		return false
	case StepOnLine:
		if !f.started || line != f.lastLine {
			f.started = true
			f.lastLine = line
			return true
		}
		return false
	default:
		return false
	}
}
