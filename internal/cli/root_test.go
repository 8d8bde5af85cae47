package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shellkey/shellkey/internal/config"
	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/internal/keys"
	"github.com/shellkey/shellkey/internal/logger"
	"github.com/shellkey/shellkey/internal/prompt"
	sshtesting "github.com/shellkey/shellkey/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp wires the root command to fakes and counts what got touched.
type testApp struct {
	*app
	home         string
	homeCalls    int
	lookupCalls  int
	genCalls     int
	generator    *fakeGenerator
	dialer       *fakeDialer
	stdout       bytes.Buffer
	stderr       bytes.Buffer
	keygenOnPath bool
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	for _, key := range []string{"PORT", "KEY_DIR", "GENERATOR", "COMMAND_TIMEOUT", "CONNECT_TIMEOUT", "SKIP_EXISTING", "USE_AGENT"} {
		t.Setenv(config.EnvPrefix+"_"+key, "")
		os.Unsetenv(config.EnvPrefix + "_" + key)
	}

	ta := &testApp{home: t.TempDir(), keygenOnPath: true}
	ev := &events{}
	ta.generator = &fakeGenerator{t: t, events: ev}
	ta.dialer = &fakeDialer{events: ev, client: sshtesting.NewMockClient("example.com")}
	ta.app = &app{
		homeDir: func() (string, error) {
			ta.homeCalls++
			return ta.home, nil
		},
		lookPath: func(name string) (string, error) {
			ta.lookupCalls++
			if !ta.keygenOnPath {
				return "", stderrors.New("exec: \"ssh-keygen\": executable file not found in $PATH")
			}
			return "/usr/bin/" + name, nil
		},
		getenv:    func(string) string { return "" },
		dial:      ta.dialer.Dial,
		secrets:   prompt.Static("hunter2"),
		confirmer: &recordingConfirmer{answer: true},
		newGenerator: func(name string, log logger.Logger) (keys.Generator, error) {
			ta.genCalls++
			return ta.generator, nil
		},
	}
	return ta
}

func (ta *testApp) execute(args ...string) int {
	cmd := newRootCmd(ta.app)
	cmd.SetOut(&ta.stdout)
	cmd.SetErr(&ta.stderr)
	return execute(context.Background(), cmd, args)
}

func TestRoot_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"no @", []string{"example.com"}},
		{"empty user", []string{"@example.com"}},
		{"empty host", []string{"alice@"}},
		{"two arguments", []string{"alice@example.com", "bob@example.com"}},
		{"bad port", []string{"alice@example.com:99999"}},
		{"unknown flag", []string{"--frobnicate", "alice@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)

			code := ta.execute(tt.args...)

			assert.Equal(t, errors.ExitUsage, code)
			assert.Contains(t, ta.stderr.String(), "Usage: shellkey <user@host>")
			assert.Equal(t, 0, ta.homeCalls, "no filesystem access before the argument is valid")
			assert.Equal(t, 0, ta.lookupCalls)
			assert.Equal(t, 0, ta.genCalls)
			assert.Equal(t, 0, ta.generator.calls)
			assert.Equal(t, 0, ta.dialer.calls)
		})
	}
}

func TestRoot_Success(t *testing.T) {
	ta := newTestApp(t)
	writeKeyPair(t, filepath.Join(ta.home, ".ssh"))

	code := ta.execute("--no-color", "alice@example.com")

	assert.Equal(t, errors.ExitOK, code, ta.stderr.String())
	assert.Contains(t, ta.stdout.String(), "Key successfully transmitted to example.com")
	assert.Empty(t, ta.stderr.String())
	assert.Equal(t, 1, ta.lookupCalls)
	assert.Equal(t, "example.com", ta.dialer.host)
	assert.Equal(t, "alice", ta.dialer.opts.User)
}

func TestRoot_FlagsReachTheRun(t *testing.T) {
	ta := newTestApp(t)
	keyDir := filepath.Join(ta.home, "keys")
	writeKeyPair(t, keyDir)

	code := ta.execute(
		"--key-dir", keyDir,
		"--port", "2022",
		"--connect-timeout", "3s",
		"--insecure-host-key",
		"alice@example.com",
	)

	require.Equal(t, errors.ExitOK, code, ta.stderr.String())
	assert.Equal(t, 2022, ta.dialer.opts.Port)
	assert.Equal(t, "3s", ta.dialer.opts.Timeout.String())
	assert.True(t, ta.dialer.opts.HostKey.Insecure)
	assert.Equal(t, 0, ta.generator.calls)
}

func TestRoot_MissingKeygenIsPlatformError(t *testing.T) {
	ta := newTestApp(t)
	ta.keygenOnPath = false

	code := ta.execute("alice@example.com")

	assert.Equal(t, errors.ExitUsage, code)
	assert.Contains(t, ta.stderr.String(), "Usage: shellkey <user@host>")
	assert.Contains(t, ta.stderr.String(), "ssh-keygen was not found on PATH")
	assert.Equal(t, 0, ta.dialer.calls)
}

func TestRoot_NativeGeneratorSkipsPathLookup(t *testing.T) {
	ta := newTestApp(t)
	ta.keygenOnPath = false

	code := ta.execute("--generator", "native", "alice@example.com")

	assert.Equal(t, errors.ExitOK, code, ta.stderr.String())
	assert.Equal(t, 0, ta.lookupCalls)
	assert.Equal(t, 1, ta.generator.calls)
}

func TestRoot_NoHome(t *testing.T) {
	ta := newTestApp(t)
	ta.app.homeDir = func() (string, error) { return "", stderrors.New("$HOME is not defined") }

	code := ta.execute("alice@example.com")

	assert.Equal(t, errors.ExitUsage, code)
	assert.Contains(t, ta.stderr.String(), "home directory")
}

func TestRoot_InvalidConfigExitsOne(t *testing.T) {
	ta := newTestApp(t)

	code := ta.execute("--generator", "ssh-keygenn", "alice@example.com")

	assert.Equal(t, errors.ExitFailure, code)
	assert.Contains(t, ta.stderr.String(), "ssh-keygen")
	assert.Equal(t, 0, ta.dialer.calls)
}

func TestRoot_RemoteFailureExitsOne(t *testing.T) {
	ta := newTestApp(t)
	writeKeyPair(t, filepath.Join(ta.home, ".ssh"))
	ta.dialer.client.SetCommandResponse("pwd", sshtesting.CommandResponse{
		Stderr:   []byte("sh: pwd: not found\n"),
		ExitCode: 127,
	})

	code := ta.execute("alice@example.com")

	assert.Equal(t, errors.ExitFailure, code)
	assert.Contains(t, ta.stderr.String(), "Remote command failed: pwd")
	assert.NotContains(t, ta.stdout.String(), "successfully transmitted")
}

func TestConfigCommand(t *testing.T) {
	ta := newTestApp(t)
	t.Setenv("SHELLKEY_COMMAND_TIMEOUT", "45s")

	code := ta.execute("config", "--port", "2222")

	require.Equal(t, errors.ExitOK, code, ta.stderr.String())
	out := ta.stdout.String()
	assert.Contains(t, out, "port: 2222")
	assert.Contains(t, out, "command_timeout: 45s")
	assert.Contains(t, out, "key_dir: "+filepath.Join(ta.home, ".ssh"))
	assert.Contains(t, out, "generator: ssh-keygen")
	assert.NotContains(t, out, "# loaded from")
	assert.Equal(t, 0, ta.dialer.calls)
}

func TestConfigCommand_FromFile(t *testing.T) {
	ta := newTestApp(t)
	path := filepath.Join(ta.home, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 2200\ngenerator: native\n"), 0600))

	code := ta.execute("config", "--config", path)

	require.Equal(t, errors.ExitOK, code, ta.stderr.String())
	out := ta.stdout.String()
	assert.Contains(t, out, "# loaded from "+path)
	assert.Contains(t, out, "port: 2200")
	assert.Contains(t, out, "generator: native")
}

func TestConfigCommand_MissingFile(t *testing.T) {
	ta := newTestApp(t)

	code := ta.execute("config", "--config", filepath.Join(ta.home, "nope.yaml"))

	assert.Equal(t, errors.ExitFailure, code)
	assert.Contains(t, ta.stderr.String(), "Specified config file not found")
}
