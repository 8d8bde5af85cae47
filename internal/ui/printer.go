package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Printer writes operator-facing progress lines.
//
// Example output:
//
//	> No keys found, generating keys...
//	● Generated key pair in ~/.ssh                                   0.4s
//	● Connection established with example.com                        0.3s
//	> Remote key directory located
//	✓ Key successfully transmitted to example.com
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	animate bool
}

// NewPrinter creates a printer writing to w. Spinners animate only when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, animate: IsTerminal(w)}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Step prints a plain progress line.
func (p *Printer) Step(format string, args ...interface{}) {
	p.line(MutedStyle().Render(SymbolStep), fmt.Sprintf(format, args...))
}

// Success prints a line marked with a green check.
func (p *Printer) Success(format string, args ...interface{}) {
	p.line(SuccessStyle().Render(SymbolSuccess), fmt.Sprintf(format, args...))
}

// Warn prints a line marked in yellow.
func (p *Printer) Warn(format string, args ...interface{}) {
	p.line(WarningStyle().Render(SymbolWarning), fmt.Sprintf(format, args...))
}

// Error prints an error. The first line is colored, details below stay plain.
func (p *Printer) Error(err error) {
	msg := strings.TrimRight(err.Error(), "\n")
	if !strings.HasPrefix(msg, SymbolFail) {
		msg = SymbolFail + " " + msg
	}
	head, rest, _ := strings.Cut(msg, "\n")

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, ErrorStyle().Render(head))
	if rest != "" {
		fmt.Fprintln(p.w, rest)
	}
}

// Spinner creates a spinner bound to this printer's writer.
func (p *Printer) Spinner(label string) *Spinner {
	s := NewSpinner(label)
	s.SetOutput(func(str string) {
		p.mu.Lock()
		defer p.mu.Unlock()
		fmt.Fprint(p.w, str)
	})
	s.SetAnimated(p.animate)
	return s
}

func (p *Printer) line(symbol, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", symbol, msg)
}
