package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/internal/logger"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// DefaultConnectTimeout bounds TCP dial plus SSH handshake when the caller gives none.
const DefaultConnectTimeout = 10 * time.Second

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)

	agentConn net.Conn
}

// DialOptions controls how Dial authenticates and verifies the remote host.
type DialOptions struct {
	User     string
	Password string

	// Port overrides ~/.ssh/config and the default of 22 when non-zero.
	Port int

	// SSHConfigPath is the ssh config consulted for HostName/Port. Empty skips it.
	SSHConfigPath string

	// Timeout bounds the TCP dial and the SSH handshake.
	Timeout time.Duration

	// AgentSocket, when set, offers the agent's keys before the password.
	AgentSocket string

	HostKey HostKeyOptions

	Logger logger.Logger
}

// Dial establishes an authenticated SSH connection to host.
// The host can be a hostname, an IP, or an alias from the ssh config.
func Dial(ctx context.Context, host string, opts DialOptions) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	settings := ResolveSettings(host, opts.Port, opts.SSHConfigPath)
	if settings.MatchLine > 0 && settings.Hostname == host {
		log.Debug("ssh config has a Match block at line %d; entries after it were ignored", settings.MatchLine)
	}
	address := settings.Address()

	// The handshake deadline is paused while Trust waits on the operator.
	var conn net.Conn
	hostKeyOpts := opts.HostKey
	if trust := hostKeyOpts.Trust; trust != nil {
		hostKeyOpts.Trust = func(hostname string, key ssh.PublicKey) (bool, error) {
			_ = conn.SetDeadline(time.Time{})
			defer func() { _ = conn.SetDeadline(time.Now().Add(timeout)) }()
			return trust(hostname, key)
		}
	}

	hostKeyCallback, err := NewHostKeyCallback(hostKeyOpts)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			"Couldn't load known_hosts",
			"Check permissions on "+opts.HostKey.KnownHostsPath)
	}

	auth, agentConn := authMethods(opts, log)
	config := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	closeAgent := func() {
		if agentConn != nil {
			agentConn.Close()
		}
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err = dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		closeAgent()
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	// The handshake doesn't take a context, so bound it with a deadline.
	_ = conn.SetDeadline(time.Now().Add(timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		closeAgent()

		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, errors.New(errors.ErrConnect, mismatch.Error(), mismatch.Suggestion())
		}
		var unknown *UnknownHostKeyError
		if stderrors.As(err, &unknown) {
			return nil, errors.New(errors.ErrConnect, unknown.Error(),
				"Verify the fingerprint with the host's administrator, or rerun with --yes to accept it")
		}

		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err))
	}
	_ = conn.SetDeadline(time.Time{})

	log.Debug("connected to %s as %s", address, opts.User)

	return &Client{
		Client:    ssh.NewClient(sshConn, chans, reqs),
		Host:      host,
		Address:   address,
		agentConn: agentConn,
	}, nil
}

// Close closes the SSH connection and any agent connection it opened.
func (c *Client) Close() error {
	if c.agentConn != nil {
		c.agentConn.Close()
		c.agentConn = nil
	}
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// authMethods builds the auth chain: agent keys (opt-in), then password,
// then keyboard-interactive answered with the same password.
func authMethods(opts DialOptions, log logger.Logger) ([]ssh.AuthMethod, net.Conn) {
	var methods []ssh.AuthMethod
	var agentConn net.Conn

	if opts.AgentSocket != "" {
		conn, err := net.Dial("unix", opts.AgentSocket)
		if err != nil {
			log.Debug("ssh agent unavailable: %v", err)
		} else {
			client := agent.NewClient(conn)
			// An empty agent causes auth failures when placed before other methods.
			if signers, err := client.Signers(); err == nil && len(signers) > 0 {
				methods = append(methods, ssh.PublicKeysCallback(client.Signers))
				agentConn = conn
			} else {
				conn.Close()
			}
		}
	}

	if opts.Password != "" {
		password := opts.Password
		methods = append(methods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					if !echos[i] {
						answers[i] = password
					}
				}
				return answers, nil
			}),
		)
	}

	return methods, agentConn
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Try: ssh <user@host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall. Raise --connect-timeout if the link is slow."
	}
	if strings.Contains(errStr, "no such host") {
		return "Can't resolve that hostname. Check the spelling and your DNS."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		return "Authentication failed. Double-check the password for this user."
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <user@host>"
	}
	if strings.Contains(errStr, "timeout") {
		return "The handshake timed out. Raise --connect-timeout if the link is slow."
	}
	return "Something went wrong during SSH setup. Try: ssh <user@host>"
}
