package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// TrustFunc decides whether to accept a host key that known_hosts has never seen.
type TrustFunc func(hostname string, key ssh.PublicKey) (bool, error)

// HostKeyOptions controls host key verification.
type HostKeyOptions struct {
	// Insecure skips verification entirely.
	Insecure bool

	// KnownHostsPath is created (empty, 0600) if it doesn't exist.
	KnownHostsPath string

	// Trust is asked about unknown hosts. Nil rejects them.
	// Accepted keys are appended to KnownHostsPath.
	Trust TrustFunc
}

// NewHostKeyCallback builds a known_hosts backed callback that turns key
// mismatches into HostKeyMismatchError and asks Trust about unknown hosts.
func NewHostKeyCallback(opts HostKeyOptions) (ssh.HostKeyCallback, error) {
	if opts.Insecure {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // User explicitly disabled host key checking
	}

	knownHostsPath := opts.KnownHostsPath
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !stderrors.As(err, &keyErr) {
			return err
		}

		if len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
		}

		unknown := &UnknownHostKeyError{Hostname: hostname, Fingerprint: ssh.FingerprintSHA256(key)}
		if opts.Trust == nil {
			return unknown
		}
		ok, err := opts.Trust(hostname, key)
		if err != nil {
			return err
		}
		if !ok {
			unknown.Rejected = true
			return unknown
		}
		return appendKnownHost(knownHostsPath, hostname, remote, key)
	}, nil
}

// appendKnownHost records an accepted key in known_hosts.
func appendKnownHost(path, hostname string, remote net.Addr, key ssh.PublicKey) error {
	addresses := []string{knownhosts.Normalize(hostname)}
	if remote != nil {
		if ip := knownhosts.Normalize(remote.String()); ip != addresses[0] {
			addresses = append(addresses, ip)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("failed to update known_hosts: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(knownhosts.Line(addresses, key) + "\n"); err != nil {
		return fmt.Errorf("failed to update known_hosts: %w", err)
	}
	return nil
}

// UnknownHostKeyError is returned when a host is not in known_hosts and was not trusted.
type UnknownHostKeyError struct {
	Hostname    string
	Fingerprint string
	Rejected    bool
}

func (e *UnknownHostKeyError) Error() string {
	if e.Rejected {
		return fmt.Sprintf("host key for %s (%s) was not accepted", e.Hostname, e.Fingerprint)
	}
	return fmt.Sprintf("host %s is not in known_hosts (%s)", e.Hostname, e.Fingerprint)
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  If the host was reinstalled, remove the old entry:\n"+
			"    ssh-keygen -R %s -f %s",
		wantStr, e.ReceivedType, host, e.KnownHosts)
}
