package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/deepnoodle-ai/numvm/config"
	"github.com/deepnoodle-ai/numvm/errz"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var red = color.New(color.FgRed).SprintFunc()

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = red(msg)
	case error:
		s = errorMessage(msg, !color.NoColor)
	default:
		s = red(fmt.Sprintf("%v", msg))
	}
	fmt.Fprintf(os.Stderr, "%s\n", s)
	os.Exit(1)
}

// errorMessage renders structured errors with their code, location and
// stack; other errors print as-is.
func errorMessage(err error, useColor bool) string {
	var se *errz.StructuredError
	if errors.As(err, &se) {
		return strings.TrimRight(errz.NewFormatter(useColor).Format(se), "\n")
	}
	if useColor {
		return red(err.Error())
	}
	return err.Error()
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var outputFormatsCompletion = []string{"json", "text"}

// Reads global flags and the config file and adjusts the environment
// accordingly.
func processGlobalFlags(v *viper.Viper, cfg *config.Config) {
	if v.GetBool("no-color") {
		color.NoColor = true
	} else if cfg.Color != nil {
		color.NoColor = !*cfg.Color
	}
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: color.NoColor}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
