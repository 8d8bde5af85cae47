package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"

	"github.com/shellkey/shellkey/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Exec runs a command on the remote host in a fresh session and returns the output.
// Returns stdout, stderr, exit code, and any error.
// Exit code is -1 if the command couldn't be executed at all or ctx ended first.
func (c *Client) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrConnect,
			"Failed to create SSH session",
			"Connection may have been closed. Try again.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		// Best effort: not every server honours signals, closing the
		// session is what actually unblocks Run.
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return nil, nil, -1, errors.WrapWithCode(ctx.Err(), errors.ErrRemote,
			fmt.Sprintf("Remote command didn't finish in time: %s", cmd),
			"The host may be overloaded. Raise --command-timeout and try again.")
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if stderrors.As(err, &exitErr) {
			// Command ran, just had non-zero exit
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitStatus(), nil
		}
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"The connection may have dropped. Try again.")
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
}
