package bytecode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/deepnoodle-ai/numvm/op"
	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal converts a Chunk into a JSON representation.
func Marshal(chunk *Chunk) ([]byte, error) {
	return json.Marshal(stateFromChunk(chunk))
}

// MarshalIndent is like Marshal but indents the output.
func MarshalIndent(chunk *Chunk) ([]byte, error) {
	return json.MarshalIndent(stateFromChunk(chunk), "", "  ")
}

// Unmarshal converts a JSON representation into a Chunk.
func Unmarshal(data []byte) (*Chunk, error) {
	var state chunkState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return chunkFromState(&state)
}

// MarshalCBOR converts a Chunk into its canonical CBOR image.
func MarshalCBOR(chunk *Chunk) ([]byte, error) {
	return cborEncMode.Marshal(stateFromChunk(chunk))
}

// UnmarshalCBOR converts a CBOR image into a Chunk.
func UnmarshalCBOR(data []byte) (*Chunk, error) {
	var state chunkState
	if err := cbor.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	return chunkFromState(&state)
}

// Decode reads a chunk in either encoding. Data whose first non-space byte
// is '{' is treated as JSON, anything else as CBOR.
func Decode(data []byte) (*Chunk, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return Unmarshal(trimmed)
	}
	return UnmarshalCBOR(data)
}

// Serialization types

// number is a float64 that survives JSON encoding when it is not finite.
// Infinities and NaN are written as the strings "+Inf", "-Inf" and "NaN".
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(f)
}

func (n *number) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*n = number(math.NaN())
		case "+Inf", "Inf":
			*n = number(math.Inf(1))
		case "-Inf":
			*n = number(math.Inf(-1))
		default:
			return fmt.Errorf("invalid number: %q", s)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = number(f)
	return nil
}

type instructionDef struct {
	Op    string  `json:"op" cbor:"op"`
	Value *number `json:"value,omitempty" cbor:"value,omitempty"`
	Index *int    `json:"index,omitempty" cbor:"index,omitempty"`
}

type chunkState struct {
	Name      string           `json:"name,omitempty" cbor:"name,omitempty"`
	Code      []instructionDef `json:"code" cbor:"code"`
	Lines     []int            `json:"lines" cbor:"lines"`
	Constants []number         `json:"constants" cbor:"constants"`
}

func stateFromChunk(chunk *Chunk) *chunkState {
	state := &chunkState{
		Name:      chunk.name,
		Code:      make([]instructionDef, len(chunk.code)),
		Lines:     copyInts(chunk.lines),
		Constants: make([]number, len(chunk.constants)),
	}
	if state.Lines == nil {
		state.Lines = []int{}
	}
	for i, instr := range chunk.code {
		def := instructionDef{Op: instr.Name()}
		switch instr.Op {
		case op.Constant:
			v := number(instr.Value)
			def.Value = &v
		case op.ConstantLong:
			idx := instr.Index
			def.Index = &idx
		}
		state.Code[i] = def
	}
	for i, c := range chunk.constants {
		state.Constants[i] = number(c)
	}
	return state
}

func chunkFromState(state *chunkState) (*Chunk, error) {
	if len(state.Code) != len(state.Lines) {
		return nil, fmt.Errorf("bytecode: %d instructions but %d lines",
			len(state.Code), len(state.Lines))
	}
	chunk := NewChunk(state.Name)
	for _, c := range state.Constants {
		chunk.AddConstant(float64(c))
	}
	for i, def := range state.Code {
		code, ok := op.Lookup(def.Op)
		if !ok {
			return nil, fmt.Errorf("bytecode: instruction %d: unknown opcode %q", i, def.Op)
		}
		instr := Simple(code)
		switch code {
		case op.Constant:
			if def.Value == nil {
				return nil, fmt.Errorf("bytecode: instruction %d: %s requires a value", i, def.Op)
			}
			instr.Value = float64(*def.Value)
		case op.ConstantLong:
			if def.Index == nil {
				return nil, fmt.Errorf("bytecode: instruction %d: %s requires an index", i, def.Op)
			}
			instr.Index = *def.Index
		}
		chunk.Write(instr, state.Lines[i])
	}
	return chunk, nil
}
