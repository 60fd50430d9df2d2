package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepnoodle-ai/numvm"
	"github.com/deepnoodle-ai/numvm/bytecode"
	"github.com/spf13/cobra"
)

// addInputFlags registers the flags shared by commands that take a listing
// or a serialized chunk.
func addInputFlags(cmd *cobra.Command, withChunk bool) {
	f := cmd.Flags()
	f.StringP("code", "c", "", "listing to use")
	f.Bool("stdin", false, "read the listing from stdin")
	if withChunk {
		f.String("chunk", "", "serialized chunk file (JSON or CBOR)")
	}
}

func flagSet(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// getSource determines the listing to assemble. There are three
// possibilities:
// 1. --code <listing>
// 2. --stdin (read the listing from stdin)
// 3. path as args[0]
// When none is given and stdin is not a terminal, stdin is read.
func (a *app) getSource(cmd *cobra.Command, args []string) (source, name string, err error) {
	codeSet := flagSet(cmd, "code")
	stdinSet := flagSet(cmd, "stdin")
	pathSupplied := len(args) > 0

	count := 0
	for _, set := range []bool{codeSet, stdinSet, pathSupplied} {
		if set {
			count++
		}
	}
	if count > 1 {
		return "", "", errors.New("multiple input sources specified")
	}
	if count == 0 {
		if f, ok := a.stdin.(*os.File); !ok || isTerminal(f) {
			return "", "", errors.New("no input provided")
		}
		stdinSet = true
	}

	switch {
	case stdinSet:
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", "", err
		}
		return string(data), "stdin", nil
	case pathSupplied:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", err
		}
		base := filepath.Base(args[0])
		return string(data), strings.TrimSuffix(base, filepath.Ext(base)), nil
	default:
		code, _ := cmd.Flags().GetString("code")
		return code, "code", nil
	}
}

// getChunk returns the chunk to operate on, either decoded from --chunk or
// assembled from the listing.
func (a *app) getChunk(cmd *cobra.Command, args []string) (*bytecode.Chunk, error) {
	if flagSet(cmd, "chunk") {
		if flagSet(cmd, "code") || flagSet(cmd, "stdin") || len(args) > 0 {
			return nil, errors.New("multiple input sources specified")
		}
		path, _ := cmd.Flags().GetString("chunk")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		chunk, err := bytecode.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		a.logger.Debug().Str("path", path).Int("instructions", chunk.Count()).Msg("chunk decoded")
		return chunk, nil
	}
	source, name, err := a.getSource(cmd, args)
	if err != nil {
		return nil, err
	}
	return numvm.Compile(source, numvm.WithName(name), numvm.WithLogger(a.logger))
}

// getRunOptions translates flags and config into numvm options.
func (a *app) getRunOptions(cmd *cobra.Command) []numvm.Option {
	opts := []numvm.Option{numvm.WithLogger(a.logger)}
	if a.v.GetBool("trace") {
		opts = append(opts, numvm.WithTrace(cmd.ErrOrStderr()))
	}
	if max := a.v.GetInt("stack-max"); max > 0 {
		opts = append(opts, numvm.WithStackMax(max))
	}
	return opts
}
