package remote

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/shellkey/shellkey/internal/logger"
	"github.com/shellkey/shellkey/internal/util"
	"github.com/shellkey/shellkey/pkg/sshutil"
)

// Result is the outcome of one transmission.
type Result struct {
	OK     bool
	Detail string
}

// Transmitter appends public keys to a remote authorized_keys file.
type Transmitter struct {
	r runner
}

// NewTransmitter creates a transmitter. commandTimeout bounds each remote
// command; zero means no bound.
func NewTransmitter(client sshutil.SSHClient, commandTimeout time.Duration, log logger.Logger) *Transmitter {
	return &Transmitter{r: newRunner(client, commandTimeout, log)}
}

// AuthorizedKeysPath joins the directory returned by Provision with the file name.
func AuthorizedKeysPath(keyDir string) string {
	return path.Join(keyDir, AuthFileName)
}

// Transmit appends publicKey as one line. It never overwrites and never
// deduplicates: calling it N times leaves N copies.
func (t *Transmitter) Transmit(ctx context.Context, publicKey, authorizedKeysPath string) (Result, error) {
	key := strings.TrimSpace(publicKey)
	cmd := "echo " + util.ShellQuote(key) + " >> " + util.ShellQuote(authorizedKeysPath)

	_, stderr, code, err := t.r.exec(ctx, cmd)
	if err != nil {
		return Result{Detail: err.Error()}, err
	}
	if err := checkResult(cmd, stderr, code, "Failed to write to "+authorizedKeysPath); err != nil {
		return Result{Detail: strings.TrimSpace(stderr)}, err
	}
	return Result{OK: true, Detail: authorizedKeysPath}, nil
}

// HasKey reports whether authorized_keys already holds publicKey as a whole line.
func (t *Transmitter) HasKey(ctx context.Context, publicKey, authorizedKeysPath string) (bool, error) {
	key := strings.TrimSpace(publicKey)
	cmd := "grep -qxF " + util.ShellQuote(key) + " " + util.ShellQuote(authorizedKeysPath)

	_, stderr, code, err := t.r.exec(ctx, cmd)
	if err != nil {
		return false, err
	}
	switch code {
	case 0:
		return true, nil
	case 1:
		if strings.TrimSpace(stderr) == "" {
			return false, nil
		}
	}
	return false, checkResult(cmd, stderr, code,
		fmt.Sprintf("Couldn't read %s on the remote host", authorizedKeysPath))
}
