// Package prompt asks the operator for the remote password and for
// host key trust decisions.
package prompt

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/shellkey/shellkey/internal/errors"
	"golang.org/x/term"
)

// Control bytes handled while reading a secret in raw mode.
const (
	keyCtrlC     = 3
	keyCtrlD     = 4
	keyBackspace = 8
	keyCtrlU     = 21
	keyDelete    = 127
)

// SecretReader reads a secret without echoing it.
type SecretReader interface {
	ReadSecret(label string) (string, error)
}

// SecretFunc adapts a function to SecretReader.
type SecretFunc func(label string) (string, error)

// ReadSecret calls f.
func (f SecretFunc) ReadSecret(label string) (string, error) {
	return f(label)
}

// TerminalReader reads from the controlling terminal in raw mode,
// echoing one '*' per character typed.
type TerminalReader struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalReader reads from stdin and prompts on stderr.
func NewTerminalReader() *TerminalReader {
	return &TerminalReader{In: os.Stdin, Out: os.Stderr}
}

// ReadSecret prints "<label>: " and reads until Enter.
// The terminal is restored before returning, whatever happens.
func (r *TerminalReader) ReadSecret(label string) (string, error) {
	fd := int(r.In.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New(errors.ErrPrompt,
			"Can't prompt for a password: stdin is not a terminal",
			"Run shellkey from an interactive shell")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrPrompt,
			"Failed to switch the terminal to raw mode", "")
	}
	defer term.Restore(fd, oldState)

	fmt.Fprintf(r.Out, "%s: ", label)
	secret, err := readMasked(r.In, r.Out)
	// Raw mode doesn't translate \n, so return the carriage explicitly.
	fmt.Fprint(r.Out, "\r\n")
	return secret, err
}

// readMasked consumes bytes until CR or LF. Backspace removes the last
// character, Ctrl-U the whole line; Ctrl-C, or Ctrl-D/EOF on an empty line, aborts.
func readMasked(in io.Reader, echo io.Writer) (string, error) {
	var buf []byte
	one := make([]byte, 1)

	erase := func() {
		if len(buf) == 0 {
			return
		}
		_, size := utf8.DecodeLastRune(buf)
		buf = buf[:len(buf)-size]
		fmt.Fprint(echo, "\b \b")
	}

	for {
		n, err := in.Read(one)
		if n == 0 {
			if err == io.EOF && len(buf) > 0 {
				return string(buf), nil
			}
			if err == io.EOF {
				return "", aborted()
			}
			if err != nil {
				return "", errors.WrapWithCode(err, errors.ErrPrompt, "Failed to read password", "")
			}
			continue
		}

		b := one[0]
		switch {
		case b == '\r' || b == '\n':
			return string(buf), nil
		case b == keyCtrlC:
			return "", aborted()
		case b == keyCtrlD:
			if len(buf) == 0 {
				return "", aborted()
			}
		case b == keyBackspace || b == keyDelete:
			erase()
		case b == keyCtrlU:
			for len(buf) > 0 {
				erase()
			}
		case b < 32:
			// other control characters are ignored
		default:
			buf = append(buf, b)
			// one star per character, not per byte
			if !isContinuation(b) {
				fmt.Fprint(echo, "*")
			}
		}
	}
}

func isContinuation(b byte) bool {
	return b&0xC0 == 0x80
}

func aborted() error {
	return errors.New(errors.ErrPrompt, "Password entry cancelled", "")
}

// Static returns a SecretReader that always answers secret. Handy in tests.
func Static(secret string) SecretReader {
	return SecretFunc(func(string) (string, error) {
		return secret, nil
	})
}
