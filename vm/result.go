package vm

import "github.com/deepnoodle-ai/numvm/bytecode"

// Result is the outcome of a successful run. A RETURN executed on an empty
// stack produces a Result with no value.
type Result struct {
	Value    float64
	HasValue bool
}

// Some returns a Result holding v.
func Some(v float64) Result {
	return Result{Value: v, HasValue: true}
}

// None returns a Result with no value.
func None() Result {
	return Result{}
}

// Get returns the value and whether there is one.
func (r Result) Get() (float64, bool) {
	return r.Value, r.HasValue
}

// String returns the value formatted for display, or "none".
func (r Result) String() string {
	if !r.HasValue {
		return "none"
	}
	return bytecode.FormatValue(r.Value)
}
