// Package ui renders lochist command output. Results go to stdout and
// diagnostics to stderr; color is used only on terminals.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/papapumpkin/lochist/internal/ansi"
)

// Printer writes command results and status messages.
type Printer struct {
	out   io.Writer
	err   io.Writer
	color bool
}

// New returns a Printer on stdout and stderr. Color is enabled when stderr
// is a terminal and NO_COLOR is unset.
func New() *Printer {
	_, noColor := os.LookupEnv("NO_COLOR")
	tty := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	return &Printer{out: os.Stdout, err: os.Stderr, color: tty && !noColor}
}

// NewWithWriters returns a Printer on the given writers.
func NewWithWriters(out, err io.Writer, color bool) *Printer {
	return &Printer{out: out, err: err, color: color}
}

// paint applies codes to s when color is enabled.
func (p *Printer) paint(s string, codes ...string) string {
	if !p.color {
		return s
	}
	return ansi.Wrap(s, codes...)
}

// Error reports a failure on stderr.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.err, "%s %s\n", p.paint("error:", ansi.Red, ansi.Bold), msg)
}

// Warn reports a non-fatal problem on stderr.
func (p *Printer) Warn(msg string) {
	fmt.Fprintf(p.err, "%s %s\n", p.paint("⚠", ansi.Yellow, ansi.Bold), msg)
}

// Success reports a completed action on stderr.
func (p *Printer) Success(msg string) {
	fmt.Fprintf(p.err, "%s %s\n", p.paint("✓", ansi.Green, ansi.Bold), msg)
}

// Info prints a dim status line on stderr.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.err, p.paint(msg, ansi.Dim))
}

// Lines prints each item on its own line on stdout.
func (p *Printer) Lines(items []string) {
	for _, item := range items {
		fmt.Fprintln(p.out, item)
	}
}

// Raw writes s to stdout unchanged.
func (p *Printer) Raw(s string) {
	fmt.Fprint(p.out, s)
}

// humanBytes formats n with a binary unit.
func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
