package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepnoodle-ai/numvm/asm"
	"github.com/deepnoodle-ai/numvm/bytecode"
	"github.com/deepnoodle-ai/numvm/dis"
	"github.com/spf13/cobra"
)

var disFormats = []string{"listing", "table", "asm", "json"}

func (a *app) newDisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble a listing or a serialized chunk",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.disHandler,
	}
	addInputFlags(cmd, true)
	f := cmd.Flags()
	f.StringP("format", "f", "listing", "output format ("+strings.Join(disFormats, ", ")+")")
	f.Bool("stats", false, "print chunk statistics instead of instructions")
	f.Bool("validate", false, "report structural problems in the chunk")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return disFormats, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func (a *app) disHandler(cmd *cobra.Command, args []string) error {
	chunk, err := a.getChunk(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if validate, _ := cmd.Flags().GetBool("validate"); validate {
		if err := chunk.Validate(); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		data, err := formatJSON(chunk.Stats(), a.useColor())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	format, _ := cmd.Flags().GetString("format")
	switch strings.ToLower(format) {
	case "listing":
		dis.DisassembleChunk(out, chunk, chunkTitle(chunk))
	case "table":
		dis.Print(dis.Disassemble(chunk), out)
	case "asm":
		fmt.Fprint(out, asm.Format(chunk))
	case "json":
		data, err := bytecode.MarshalIndent(chunk)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

func chunkTitle(chunk *bytecode.Chunk) string {
	if name := chunk.Name(); name != "" {
		return name
	}
	return "chunk"
}

func (a *app) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [file]",
		Short: "Assemble a listing into a serialized chunk",
		Long: "Assemble a listing and write the chunk as JSON or CBOR. The encoding\n" +
			"follows the extension of --out (.json or .cbor) unless --encoding is set.",
		Args: cobra.MaximumNArgs(1),
		RunE: a.buildHandler,
	}
	addInputFlags(cmd, false)
	f := cmd.Flags()
	f.String("out", "", "output file (required)")
	f.String("encoding", "", "json or cbor")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) buildHandler(cmd *cobra.Command, args []string) error {
	chunk, err := a.getChunk(cmd, args)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("out")
	encoding, _ := cmd.Flags().GetString("encoding")
	if encoding == "" {
		encoding = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	var data []byte
	switch strings.ToLower(encoding) {
	case "json":
		data, err = bytecode.MarshalIndent(chunk)
	case "cbor":
		data, err = bytecode.MarshalCBOR(chunk)
	default:
		return fmt.Errorf("unknown encoding %q (use json or cbor)", encoding)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	a.logger.Info().Str("path", path).Int("bytes", len(data)).Msg("chunk written")
	return nil
}
