package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestPrinterLines(t *testing.T) {
	withProfile(t, termenv.Ascii)

	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Step("No keys found, generating keys...")
	p.Success("Key successfully transmitted to %s", "example.com")
	p.Warn("host key accepted")

	assert.Equal(t,
		"> No keys found, generating keys...\n"+
			"✓ Key successfully transmitted to example.com\n"+
			"! host key accepted\n",
		buf.String())
}

func TestPrinterError(t *testing.T) {
	withProfile(t, termenv.Ascii)

	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Error(errors.New("plain failure"))
	assert.Equal(t, "✗ plain failure\n", buf.String())

	buf.Reset()
	p.Error(errors.New("✗ Remote command failed\n\n  Permission denied\n"))
	assert.Equal(t, "✗ Remote command failed\n\n  Permission denied\n", buf.String())
}

func TestPrinterSpinnerNotAnimatedForBuffers(t *testing.T) {
	withProfile(t, termenv.Ascii)

	var buf bytes.Buffer
	p := NewPrinter(&buf)
	assert.False(t, IsTerminal(&buf))

	s := p.Spinner("Connecting to example.com")
	s.Start()
	s.SetLabel("Connection established with example.com")
	s.Success()

	assert.Contains(t, buf.String(), SymbolComplete+" Connection established with example.com")
	assert.NotContains(t, buf.String(), "\r")
	assert.Same(t, &buf, p.Writer())
}
