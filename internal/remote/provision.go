package remote

import (
	"context"
	"strings"
	"time"

	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/internal/logger"
	"github.com/shellkey/shellkey/internal/util"
	"github.com/shellkey/shellkey/pkg/sshutil"
)

// Names looked for in the remote home.
const (
	KeyDirName   = ".ssh"
	AuthFileName = "authorized_keys"
)

// DirState describes what the remote home holds before provisioning.
type DirState int

const (
	DirAbsent DirState = iota
	DirWithoutAuthFile
	DirWithAuthFile
)

func (s DirState) String() string {
	switch s {
	case DirAbsent:
		return "absent"
	case DirWithoutAuthFile:
		return "directory without authorized_keys"
	case DirWithAuthFile:
		return "ready"
	}
	return "unknown"
}

// Progress receives operator-facing status lines.
type Progress func(message string)

// Provisioner makes sure ~/.ssh/authorized_keys exists on the remote host.
type Provisioner struct {
	r        runner
	progress Progress
}

// NewProvisioner creates a provisioner. commandTimeout bounds each remote
// command; zero means no bound. progress may be nil.
func NewProvisioner(client sshutil.SSHClient, commandTimeout time.Duration, log logger.Logger, progress Progress) *Provisioner {
	if progress == nil {
		progress = func(string) {}
	}
	return &Provisioner{r: newRunner(client, commandTimeout, log), progress: progress}
}

// State reports the remote directory state without changing anything.
func (p *Provisioner) State(ctx context.Context) (DirState, error) {
	state, _, err := p.probe(ctx)
	return state, err
}

// Provision creates whatever is missing and returns the absolute remote key
// directory, always ending in "/.ssh/".
func (p *Provisioner) Provision(ctx context.Context) (string, error) {
	state, keyDir, err := p.probe(ctx)
	if err != nil {
		return "", err
	}

	switch state {
	case DirAbsent:
		p.progress("Creating remote key directory...")
		if _, err := p.r.run(ctx, "mkdir -m 700 ~/"+KeyDirName,
			"Check that the remote home directory is writable"); err != nil {
			return "", err
		}
		fallthrough
	case DirWithoutAuthFile:
		p.progress("Creating remote auth file...")
		if _, err := p.r.run(ctx, "cd "+util.ShellQuote(keyDir)+" && touch "+AuthFileName,
			"Check ownership and permissions of ~/.ssh on the remote host"); err != nil {
			return "", err
		}
	}

	return keyDir, nil
}

// probe lists the home directory, learns its absolute path, and looks
// inside .ssh when it exists.
func (p *Provisioner) probe(ctx context.Context) (DirState, string, error) {
	home, err := p.r.run(ctx, "ls -a", "Check that the remote account has a home directory")
	if err != nil {
		return DirAbsent, "", err
	}

	pwd, err := p.r.run(ctx, "pwd", "")
	if err != nil {
		return DirAbsent, "", err
	}
	homeDir := strings.TrimSpace(pwd)
	if homeDir == "" {
		return DirAbsent, "", errors.New(errors.ErrRemote,
			"Remote pwd printed nothing",
			"The remote shell may not be POSIX compatible")
	}
	keyDir := strings.TrimSuffix(homeDir, "/") + "/" + KeyDirName + "/"

	if !listingHas(home, KeyDirName) {
		return DirAbsent, keyDir, nil
	}
	p.progress("Remote key directory located")

	listing, err := p.r.run(ctx, "cd "+util.ShellQuote(keyDir)+" && ls -a",
		"Check permissions of ~/.ssh on the remote host")
	if err != nil {
		return DirAbsent, "", err
	}
	if listingHas(listing, AuthFileName) {
		return DirWithAuthFile, keyDir, nil
	}
	return DirWithoutAuthFile, keyDir, nil
}
