package errz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Formatter formats structured errors for terminal display.
type Formatter struct {
	// UseColor enables ANSI color codes in output.
	UseColor bool
}

// NewFormatter creates a new error formatter.
func NewFormatter(useColor bool) *Formatter {
	return &Formatter{UseColor: useColor}
}

// Colors used for error formatting
var (
	colorError     = color.New(color.FgRed)
	colorErrorBold = color.New(color.FgHiRed, color.Bold)
	colorCode      = color.New(color.FgHiBlack)
	colorLocation  = color.New(color.FgCyan)
	colorPipe      = color.New(color.FgHiBlack)
	colorNote      = color.New(color.FgHiBlue)
)

// multiError is satisfied by aggregated errors such as *multierror.Error.
type multiError interface {
	WrappedErrors() []error
}

func (f *Formatter) paint(c *color.Color, s string) string {
	if !f.UseColor {
		return s
	}
	// UseColor overrides the package-level terminal detection.
	forced := *c
	forced.EnableColor()
	return forced.Sprint(s)
}

// Format renders err as a multi-line report:
//
//	stack underflow[E3001]: ADD needs 2 operands, stack has 0
//	  --> line 4, ip 0
//	   |
//	 4 | ADD
//	   |
//	   = stack: <empty>
//
// Compile errors that aggregate several problems are listed one by one.
func (f *Formatter) Format(err *StructuredError) string {
	if multi, ok := err.Cause.(multiError); ok && err.Kind == ErrCompile {
		if errs := multi.WrappedErrors(); len(errs) > 1 {
			return f.formatMultiple(err, errs)
		}
	}
	var b strings.Builder
	f.writeHeader(&b, err.Kind, "", err.Message)
	f.writeBody(&b, err)
	return b.String()
}

func (f *Formatter) formatMultiple(err *StructuredError, errs []error) string {
	var b strings.Builder
	total := len(errs)
	for i, e := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		f.writeHeader(&b, err.Kind, fmt.Sprintf("%d/%d", i+1, total), e.Error())
	}
	b.WriteString("\n")
	b.WriteString(f.paint(colorErrorBold, fmt.Sprintf("found %d errors", total)))
	b.WriteString("\n")
	return b.String()
}

func (f *Formatter) writeHeader(b *strings.Builder, kind ErrorKind, prefix, message string) {
	b.WriteString(f.paint(colorErrorBold, kind.String()))
	bracket := string(kind.Code())
	if prefix != "" {
		bracket = prefix
	}
	b.WriteString(f.paint(colorCode, "["+bracket+"]"))
	b.WriteString(f.paint(colorError, ": "))
	b.WriteString(message)
	b.WriteString("\n")
}

func (f *Formatter) writeBody(b *strings.Builder, err *StructuredError) {
	loc := err.Location
	width := 2
	if n := len(strconv.Itoa(loc.Line)); n > width {
		width = n
	}
	padding := strings.Repeat(" ", width)

	if !loc.IsZero() {
		b.WriteString(padding)
		b.WriteString(f.paint(colorLocation, "-->"))
		b.WriteString(" ")
		b.WriteString(f.paint(colorLocation, loc.String()))
		b.WriteString("\n")
	}
	if loc.Instruction != "" {
		b.WriteString(padding)
		b.WriteString(f.paint(colorPipe, " |"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%*d", width, loc.Line))
		b.WriteString(f.paint(colorPipe, " | "))
		b.WriteString(loc.Instruction)
		b.WriteString("\n")
		b.WriteString(padding)
		b.WriteString(f.paint(colorPipe, " |"))
		b.WriteString("\n")
	}
	if err.Kind != ErrCompile {
		f.writeNote(b, padding, "stack", FormatStack(err.Stack))
	}
	if err.Cause != nil && err.Cause.Error() != err.Message {
		f.writeNote(b, padding, "cause", err.Cause.Error())
	}
}

func (f *Formatter) writeNote(b *strings.Builder, padding, label, text string) {
	b.WriteString(padding)
	b.WriteString(f.paint(colorPipe, " = "))
	b.WriteString(f.paint(colorNote, label+": "))
	b.WriteString(text)
	b.WriteString("\n")
}
