package cli

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shellkey/shellkey/internal/config"
	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/internal/host"
	"github.com/shellkey/shellkey/internal/keys"
	"github.com/shellkey/shellkey/internal/logger"
	"github.com/shellkey/shellkey/internal/prompt"
	"github.com/shellkey/shellkey/internal/ui"
	"github.com/shellkey/shellkey/pkg/sshutil"
	sshtesting "github.com/shellkey/shellkey/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

const remoteAuthFile = sshtesting.DefaultHome + "/.ssh/authorized_keys"

// events records the order in which collaborators were used.
type events struct {
	list []string
}

func (e *events) add(name string) {
	e.list = append(e.list, name)
}

// fakeGenerator writes a valid key pair without running anything.
type fakeGenerator struct {
	t      *testing.T
	events *events
	calls  int
	err    error
}

func (g *fakeGenerator) Generate(ctx context.Context, dir string) error {
	g.calls++
	g.events.add("generate")
	if g.err != nil {
		return g.err
	}
	writeKeyPair(g.t, dir)
	return nil
}

// fakeDialer hands out a MockClient and remembers the options it got.
type fakeDialer struct {
	events *events
	client *sshtesting.MockClient
	err    error
	calls  int
	host   string
	opts   sshutil.DialOptions
}

func (d *fakeDialer) Dial(ctx context.Context, host string, opts sshutil.DialOptions) (sshutil.SSHClient, error) {
	d.calls++
	d.events.add("dial")
	d.host = host
	d.opts = opts
	if d.err != nil {
		return nil, d.err
	}
	return d.client, nil
}

// writeKeyPair puts a fresh ed25519 public key and a placeholder private key in dir.
func writeKeyPair(t *testing.T, dir string) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))

	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, keys.PrivateKeyName), []byte("private"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, keys.PublicKeyName), []byte(line+"\n"), 0644))
	return line
}

type harness struct {
	events    *events
	generator *fakeGenerator
	dialer    *fakeDialer
	client    *sshtesting.MockClient
	out       *bytes.Buffer
	run       *CopyKey
	keyDir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ev := &events{}
	client := sshtesting.NewMockClient("example.com")
	home := t.TempDir()
	cfg := config.DefaultConfig(home)
	cfg.CommandTimeout = time.Second

	h := &harness{
		events:    ev,
		generator: &fakeGenerator{t: t, events: ev},
		dialer:    &fakeDialer{events: ev, client: client},
		client:    client,
		out:       &bytes.Buffer{},
		keyDir:    cfg.KeyDir,
	}
	h.run = &CopyKey{
		Config:    cfg,
		Generator: h.generator,
		Secrets: prompt.SecretFunc(func(label string) (string, error) {
			ev.add("password")
			return "hunter2", nil
		}),
		Confirmer: &recordingConfirmer{answer: true},
		Dial:      h.dialer.Dial,
		Printer:   ui.NewPrinter(h.out),
		Log:       logger.NewBufferLogger(),
	}
	return h
}

type recordingConfirmer struct {
	answer bool
	asked  int
}

func (c *recordingConfirmer) Confirm(title, description string) (bool, error) {
	c.asked++
	return c.answer, nil
}

var alice = host.Target{User: "alice", Address: "example.com"}

func TestCopyKey_ExistingKeys(t *testing.T) {
	h := newHarness(t)
	line := writeKeyPair(t, h.keyDir)

	err := h.run.Run(context.Background(), alice)
	require.NoError(t, err)

	assert.Equal(t, 0, h.generator.calls, "generator must not run when both key files exist")
	assert.Equal(t, []string{"password", "dial"}, h.events.list)

	content, err := h.client.GetFS().ReadFile(remoteAuthFile)
	require.NoError(t, err)
	assert.Equal(t, line+"\n", string(content))
	assert.True(t, h.client.Closed())

	out := h.out.String()
	assert.NotContains(t, out, "No keys found")
	assert.Contains(t, out, "Connection established with example.com")
	assert.Contains(t, out, "Creating remote key directory...")
	assert.Contains(t, out, "Creating remote auth file...")
	assert.Contains(t, out, "Key successfully transmitted to example.com")
}

func TestCopyKey_GeneratesMissingKeys(t *testing.T) {
	tests := []struct {
		name    string
		present []string
	}{
		{"no key directory", nil},
		{"empty key directory", []string{}},
		{"only private key", []string{keys.PrivateKeyName}},
		{"only public key", []string{keys.PublicKeyName}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.present != nil {
				require.NoError(t, os.MkdirAll(h.keyDir, 0700))
				for _, name := range tt.present {
					require.NoError(t, os.WriteFile(filepath.Join(h.keyDir, name), []byte("stale"), 0600))
				}
			}

			require.NoError(t, h.run.Run(context.Background(), alice))

			assert.Equal(t, 1, h.generator.calls)
			assert.Equal(t, []string{"generate", "password", "dial"}, h.events.list)
			assert.Contains(t, h.out.String(), "No keys found, generating keys...")
		})
	}
}

func TestCopyKey_GeneratorFailureStopsBeforeConnecting(t *testing.T) {
	h := newHarness(t)
	h.generator.err = errors.New(errors.ErrKeygen, "ssh-keygen reported a problem", "")

	err := h.run.Run(context.Background(), alice)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKeygen))
	assert.Equal(t, 0, h.dialer.calls)
	assert.NotContains(t, h.events.list, "password")
}

func TestCopyKey_RemoteStderrStopsLaterSteps(t *testing.T) {
	h := newHarness(t)
	writeKeyPair(t, h.keyDir)
	h.client.SetCommandResponse("^mkdir ", sshtesting.CommandResponse{
		Stderr:   []byte("mkdir: cannot create directory '/home/user/.ssh': Permission denied\n"),
		ExitCode: 1,
	})

	err := h.run.Run(context.Background(), alice)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrRemote))
	assert.Equal(t, errors.ExitFailure, errors.ExitCodeFor(err))

	for _, cmd := range h.client.Commands() {
		assert.NotContains(t, cmd, "touch")
		assert.NotContains(t, cmd, "echo")
	}
	assert.True(t, h.client.Closed(), "client must be closed on failure too")
	assert.NotContains(t, h.out.String(), "successfully transmitted")
}

func TestCopyKey_TransmitFailure(t *testing.T) {
	h := newHarness(t)
	writeKeyPair(t, h.keyDir)
	h.client.SetCommandResponse("^echo ", sshtesting.CommandResponse{
		Stderr:   []byte("sh: 1: cannot create authorized_keys: Disk quota exceeded\n"),
		ExitCode: 2,
	})

	err := h.run.Run(context.Background(), alice)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrRemote))
	assert.True(t, h.client.Closed())
}

func TestCopyKey_AlreadyProvisionedKeepsContents(t *testing.T) {
	h := newHarness(t)
	line := writeKeyPair(t, h.keyDir)
	sshtesting.WithAuthorizedKeys(h.client, "ssh-ed25519 AAAAOTHER bob@desktop\n")

	require.NoError(t, h.run.Run(context.Background(), alice))

	for _, cmd := range h.client.Commands() {
		assert.NotContains(t, cmd, "mkdir")
		assert.NotContains(t, cmd, "touch")
	}
	content, err := h.client.GetFS().ReadFile(remoteAuthFile)
	require.NoError(t, err)
	assert.Equal(t, "ssh-ed25519 AAAAOTHER bob@desktop\n"+line+"\n", string(content))
	assert.Contains(t, h.out.String(), "Remote key directory located")
}

func TestCopyKey_SkipExisting(t *testing.T) {
	h := newHarness(t)
	line := writeKeyPair(t, h.keyDir)
	sshtesting.WithAuthorizedKeys(h.client, line+"\n")
	h.run.Config.SkipExisting = true

	require.NoError(t, h.run.Run(context.Background(), alice))

	for _, cmd := range h.client.Commands() {
		assert.False(t, strings.HasPrefix(cmd, "echo "), "unexpected append: %s", cmd)
	}
	content, err := h.client.GetFS().ReadFile(remoteAuthFile)
	require.NoError(t, err)
	assert.Equal(t, line+"\n", string(content))
	assert.Contains(t, h.out.String(), "Key already present")
}

func TestCopyKey_SkipExistingStillAppendsNewKey(t *testing.T) {
	h := newHarness(t)
	line := writeKeyPair(t, h.keyDir)
	sshtesting.WithAuthorizedKeys(h.client, "ssh-ed25519 AAAAOTHER bob@desktop\n")
	h.run.Config.SkipExisting = true

	require.NoError(t, h.run.Run(context.Background(), alice))

	content, err := h.client.GetFS().ReadFile(remoteAuthFile)
	require.NoError(t, err)
	assert.Equal(t, "ssh-ed25519 AAAAOTHER bob@desktop\n"+line+"\n", string(content))
}

func TestCopyKey_PasswordAbortSkipsDial(t *testing.T) {
	h := newHarness(t)
	writeKeyPair(t, h.keyDir)
	h.run.Secrets = prompt.SecretFunc(func(string) (string, error) {
		return "", errors.New(errors.ErrPrompt, "Cancelled", "")
	})

	err := h.run.Run(context.Background(), alice)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPrompt))
	assert.Equal(t, 0, h.dialer.calls)
}

func TestCopyKey_DialFailure(t *testing.T) {
	h := newHarness(t)
	writeKeyPair(t, h.keyDir)
	h.dialer.err = errors.New(errors.ErrConnect, "Can't reach 'example.com' at example.com:22", "")

	err := h.run.Run(context.Background(), alice)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnect))
	assert.Empty(t, h.client.Commands())
	assert.NotContains(t, h.out.String(), "Connection established")
}

func TestCopyKey_DialOptions(t *testing.T) {
	h := newHarness(t)
	writeKeyPair(t, h.keyDir)
	h.run.Config.Port = 2200
	h.run.AgentSocket = "/tmp/agent.sock"

	require.NoError(t, h.run.Run(context.Background(), alice))

	opts := h.dialer.opts
	assert.Equal(t, "example.com", h.dialer.host)
	assert.Equal(t, "alice", opts.User)
	assert.Equal(t, "hunter2", opts.Password)
	assert.Equal(t, 2200, opts.Port)
	assert.Equal(t, h.run.Config.ConnectTimeout, opts.Timeout)
	assert.Equal(t, h.run.Config.SSHConfig, opts.SSHConfigPath)
	assert.Equal(t, h.run.Config.KnownHosts, opts.HostKey.KnownHostsPath)
	assert.False(t, opts.HostKey.Insecure)
	assert.Empty(t, opts.AgentSocket, "agent is opt-in")
}

func TestCopyKey_DialOptionOverrides(t *testing.T) {
	h := newHarness(t)
	writeKeyPair(t, h.keyDir)
	h.run.Config.Port = 2200
	h.run.Config.StrictHostKey = false
	h.run.Config.UseAgent = true
	h.run.AgentSocket = "/tmp/agent.sock"

	withPort := alice
	withPort.Port = 2222
	require.NoError(t, h.run.Run(context.Background(), withPort))

	opts := h.dialer.opts
	assert.Equal(t, 2222, opts.Port, "port from the argument wins")
	assert.True(t, opts.HostKey.Insecure)
	assert.Equal(t, "/tmp/agent.sock", opts.AgentSocket)
}

func TestCopyKey_HostKeyTrust(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostKey, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)

	t.Run("asks the operator", func(t *testing.T) {
		h := newHarness(t)
		writeKeyPair(t, h.keyDir)
		confirmer := &recordingConfirmer{answer: false}
		h.run.Confirmer = confirmer

		require.NoError(t, h.run.Run(context.Background(), alice))
		ok, err := h.dialer.opts.HostKey.Trust("example.com:22", hostKey)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, confirmer.asked)
	})

	t.Run("--yes accepts without asking", func(t *testing.T) {
		h := newHarness(t)
		writeKeyPair(t, h.keyDir)
		confirmer := &recordingConfirmer{}
		h.run.Confirmer = confirmer
		h.run.AutoYes = true

		require.NoError(t, h.run.Run(context.Background(), alice))
		ok, err := h.dialer.opts.HostKey.Trust("example.com:22", hostKey)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0, confirmer.asked)
	})
}

func TestCopyKey_InvalidPublicKey(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.keyDir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(h.keyDir, keys.PrivateKeyName), []byte("private"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(h.keyDir, keys.PublicKeyName), []byte("not a key\n"), 0644))

	err := h.run.Run(context.Background(), alice)
	require.Error(t, err)
	assert.Equal(t, 0, h.dialer.calls)
}
