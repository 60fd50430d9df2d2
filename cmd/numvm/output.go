package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/deepnoodle-ai/numvm/bytecode"
	"github.com/deepnoodle-ai/numvm/errz"
	"github.com/deepnoodle-ai/numvm/vm"
	"github.com/hokaccha/go-prettyjson"
)

func formatOutput(result vm.Result, format string, useColor bool) (string, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return result.String(), nil
	case "json":
		output, err := formatJSON(resultJSON(result), useColor)
		if err != nil {
			return "", err
		}
		return string(output), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", format)
	}
}

func formatJSON(v any, useColor bool) ([]byte, error) {
	if useColor {
		return prettyjson.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// resultJSON converts a result to a JSON-friendly value. Non-finite numbers
// have no JSON representation and are rendered as strings.
func resultJSON(result vm.Result) map[string]any {
	out := map[string]any{"has_value": result.HasValue}
	switch {
	case !result.HasValue:
		out["value"] = nil
	case math.IsNaN(result.Value) || math.IsInf(result.Value, 0):
		out["value"] = bytecode.FormatValue(result.Value)
	default:
		out["value"] = result.Value
	}
	return out
}

func errorJSON(err error) map[string]any {
	out := map[string]any{"error": err.Error()}
	var se *errz.StructuredError
	if errors.As(err, &se) {
		out["error"] = se.Message
		out["kind"] = se.Kind.String()
		out["code"] = string(se.Kind.Code())
		if !se.Location.IsZero() {
			out["ip"] = se.Location.IP
			out["line"] = se.Location.Line
		}
	}
	return out
}
