package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shellkey/shellkey/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctor_AllClear(t *testing.T) {
	ta := newTestApp(t)
	writeKeyPair(t, filepath.Join(ta.home, ".ssh"))

	code := ta.execute("doctor")

	require.Equal(t, errors.ExitOK, code, ta.stdout.String()+ta.stderr.String())
	out := ta.stdout.String()
	assert.Contains(t, out, "shellkey diagnostic report")
	assert.Contains(t, out, "CONFIG")
	assert.Contains(t, out, "KEYS")
	assert.Contains(t, out, "SSH")
	assert.Contains(t, out, "Key pair found in "+filepath.Join(ta.home, ".ssh"))
	assert.Contains(t, out, "ssh-keygen found at /usr/bin/ssh-keygen")
	assert.Contains(t, out, "Everything looks good")
	assert.Empty(t, ta.stderr.String())
	assert.Equal(t, 0, ta.dialer.calls)
	assert.Equal(t, 0, ta.generator.calls)
}

func TestDoctor_FailureExitsOneQuietly(t *testing.T) {
	ta := newTestApp(t)
	ta.keygenOnPath = false

	code := ta.execute("doctor")

	assert.Equal(t, errors.ExitFailure, code)
	assert.Contains(t, ta.stdout.String(), "ssh-keygen not found on PATH")
	assert.Contains(t, ta.stdout.String(), "No key pair in")
	assert.Contains(t, ta.stdout.String(), "2 issues found")
	assert.Empty(t, ta.stderr.String(), "the report already says what's wrong")
}

func TestDoctor_BrokenConfigStillChecksTheRest(t *testing.T) {
	ta := newTestApp(t)
	path := filepath.Join(ta.home, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator: ssh-keygn\n"), 0600))

	code := ta.execute("doctor", "--config", path)

	assert.Equal(t, errors.ExitFailure, code)
	out := ta.stdout.String()
	assert.Contains(t, out, "Unknown key generator: ssh-keygn")
	assert.Contains(t, out, "Did you mean ssh-keygen?")
	assert.Contains(t, out, "No key pair in")
}

func TestDoctor_JSON(t *testing.T) {
	ta := newTestApp(t)
	writeKeyPair(t, filepath.Join(ta.home, ".ssh"))

	code := ta.execute("doctor", "--json", "--insecure-host-key")
	require.Equal(t, errors.ExitOK, code, ta.stderr.String())

	var report DoctorOutput
	require.NoError(t, json.Unmarshal(ta.stdout.Bytes(), &report))

	var names []string
	for _, c := range report.Categories {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"CONFIG", "KEYS", "SSH"}, names)
	assert.Equal(t, 1, report.Summary.Warn, "host key checking off is a warning")
	assert.Equal(t, 0, report.Summary.Fail)
	assert.False(t, report.Summary.AllClear)
}
