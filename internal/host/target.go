// Package host parses the user@host argument.
package host

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/shellkey/shellkey/internal/errors"
)

// Usage is printed whenever the argument can't be used.
const Usage = "Usage: shellkey <user@host>"

// Target is the remote account keys are copied to.
type Target struct {
	User    string
	Address string // host name, IP or ~/.ssh/config alias, without port
	Port    int    // 0 when the argument carries none
}

// Parse splits arg at its first '@'. Both halves must be non-empty.
// The host half may end in :port, and IPv6 literals need brackets for that.
func Parse(arg string) (Target, error) {
	user, rest, found := strings.Cut(arg, "@")
	if !found {
		return Target{}, usageError("the argument has no '@'")
	}
	if user == "" {
		return Target{}, usageError("the user name before '@' is empty")
	}
	if rest == "" {
		return Target{}, usageError("the host after '@' is empty")
	}

	address, port, err := splitPort(rest)
	if err != nil {
		return Target{}, err
	}
	if address == "" {
		return Target{}, usageError("the host after '@' is empty")
	}

	return Target{User: user, Address: address, Port: port}, nil
}

// String returns the target in user@host[:port] form.
func (t Target) String() string {
	if t.Port == 0 {
		return t.User + "@" + t.Address
	}
	return t.User + "@" + net.JoinHostPort(t.Address, strconv.Itoa(t.Port))
}

func splitPort(s string) (string, int, error) {
	bracketed := strings.HasPrefix(s, "[")
	if !bracketed && strings.Count(s, ":") != 1 {
		// plain host, or an unbracketed IPv6 literal
		return s, 0, nil
	}
	if bracketed && !strings.Contains(s, "]:") {
		return strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"), 0, nil
	}

	h, p, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, usageError(err.Error())
	}
	port, err := strconv.Atoi(p)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, usageError(fmt.Sprintf("%q is not a valid port", p))
	}
	return h, port, nil
}

func usageError(reason string) error {
	return errors.New(errors.ErrUsage, Usage, reason)
}
