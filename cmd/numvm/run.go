package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/deepnoodle-ai/numvm"
	"github.com/deepnoodle-ai/numvm/dis"
	"github.com/spf13/cobra"
)

func (a *app) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Assemble and run a listing or a serialized chunk",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runHandler,
	}
	addInputFlags(cmd, true)
	f := cmd.Flags()
	f.Bool("trace", false, "trace execution to stderr")
	f.Int("stack-max", 0, "operand stack capacity")
	f.StringP("output", "o", "", "output format (json, text)")
	f.Bool("timing", false, "show execution time")
	_ = cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return outputFormatsCompletion, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func (a *app) runHandler(cmd *cobra.Command, args []string) error {
	a.bindFlags(cmd, "trace", "stack-max", "output")
	format := a.v.GetString("output")
	out := cmd.OutOrStdout()

	chunk, err := a.getChunk(cmd, args)
	if err != nil {
		return a.reportError(cmd, format, err)
	}

	start := time.Now()
	result, err := numvm.Run(cmd.Context(), chunk, a.getRunOptions(cmd)...)
	if err != nil {
		return a.reportError(cmd, format, err)
	}
	dt := time.Since(start)

	output, err := formatOutput(result, format, a.useColor())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, output)

	if timing, _ := cmd.Flags().GetBool("timing"); timing {
		fmt.Fprintf(out, "%v\n", dt)
	}
	return nil
}

// reportError prints err as JSON when JSON output was requested, and
// returns it otherwise.
func (a *app) reportError(cmd *cobra.Command, format string, err error) error {
	if strings.ToLower(format) != "json" {
		return err
	}
	data, jerr := formatJSON(errorJSON(err), a.useColor())
	if jerr != nil {
		return jerr
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func (a *app) newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Disassemble and run the built-in demonstration chunk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.bindFlags(cmd, "trace")
			out := cmd.OutOrStdout()
			chunk := numvm.DemoChunk()
			dis.DisassembleChunk(out, chunk, chunk.Name())
			result, err := numvm.Run(cmd.Context(), chunk, a.getRunOptions(cmd)...)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, result)
			return nil
		},
	}
	cmd.Flags().Bool("trace", false, "trace execution to stderr")
	return cmd
}

func (a *app) newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("output")
			if strings.ToLower(format) == "json" {
				info, err := json.MarshalIndent(map[string]any{
					"version": version,
					"commit":  commit,
					"date":    date,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(info))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "output format (json, text)")
	return cmd
}
