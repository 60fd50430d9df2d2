package bytecode

import "math"

// copyInstructions returns a copy of the given instruction slice.
func copyInstructions(src []Instruction) []Instruction {
	if src == nil {
		return nil
	}
	dst := make([]Instruction, len(src))
	copy(dst, src)
	return dst
}

// copyInts returns a copy of the given int slice.
func copyInts(src []int) []int {
	if src == nil {
		return nil
	}
	dst := make([]int, len(src))
	copy(dst, src)
	return dst
}

// copyFloats returns a copy of the given float64 slice.
func copyFloats(src []float64) []float64 {
	if src == nil {
		return nil
	}
	dst := make([]float64, len(src))
	copy(dst, src)
	return dst
}

func sameFloat(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b)
}

func sameInstruction(a, b Instruction) bool {
	return a.Op == b.Op && a.Index == b.Index && sameFloat(a.Value, b.Value)
}
