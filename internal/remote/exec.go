package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/internal/logger"
	"github.com/shellkey/shellkey/pkg/sshutil"
)

// runner executes single remote commands with a per-command timeout.
type runner struct {
	client  sshutil.SSHClient
	timeout time.Duration
	log     logger.Logger
}

func newRunner(client sshutil.SSHClient, timeout time.Duration, log logger.Logger) runner {
	if log == nil {
		log = logger.Noop()
	}
	return runner{client: client, timeout: timeout, log: log}
}

// exec runs cmd and returns its raw result. Only transport failures are errors.
func (r runner) exec(ctx context.Context, cmd string) (stdout, stderr string, exitCode int, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.log.Debug("remote: %s", cmd)
	out, errOut, code, err := r.client.Exec(ctx, cmd)
	if err != nil {
		if _, ok := err.(*errors.Error); ok {
			return "", "", code, err
		}
		return "", "", code, errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"The connection may have dropped. Try again.")
	}
	r.log.Debug("remote: exit %d, %d bytes stdout, %d bytes stderr", code, len(out), len(errOut))
	return string(out), string(errOut), code, nil
}

// run is exec plus the rule that any stderr output or non-zero exit is fatal.
func (r runner) run(ctx context.Context, cmd, suggestion string) (string, error) {
	stdout, stderr, code, err := r.exec(ctx, cmd)
	if err != nil {
		return "", err
	}
	if err := checkResult(cmd, stderr, code, suggestion); err != nil {
		return "", err
	}
	return stdout, nil
}

func checkResult(cmd, stderr string, code int, suggestion string) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" && code == 0 {
		return nil
	}
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", code)
	}
	return errors.WrapWithCode(fmt.Errorf("%s", msg), errors.ErrRemote,
		fmt.Sprintf("Remote command failed: %s", cmd),
		suggestion)
}

// listingHas reports whether name appears as a whole line of ls output.
func listingHas(listing, name string) bool {
	for _, line := range strings.Split(listing, "\n") {
		if strings.TrimRight(line, "\r") == name {
			return true
		}
	}
	return false
}
