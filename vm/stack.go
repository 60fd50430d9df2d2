package vm

// stack is the operand stack. Pops are checked so that a malformed chunk
// produces an error instead of a panic.
type stack struct {
	values []float64
	max    int
}

func newStack(max int) *stack {
	return &stack{values: make([]float64, 0, max), max: max}
}

func (s *stack) push(v float64) bool {
	if len(s.values) >= s.max {
		return false
	}
	s.values = append(s.values, v)
	return true
}

func (s *stack) pop() (float64, bool) {
	n := len(s.values)
	if n == 0 {
		return 0, false
	}
	v := s.values[n-1]
	s.values = s.values[:n-1]
	return v, true
}

func (s *stack) len() int {
	return len(s.values)
}

func (s *stack) reset() {
	s.values = s.values[:0]
}

// snapshot returns a copy of the stack, bottom first.
func (s *stack) snapshot() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}
