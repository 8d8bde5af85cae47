package cli

import (
	"context"

	"github.com/shellkey/shellkey/internal/config"
	"github.com/shellkey/shellkey/internal/host"
	"github.com/shellkey/shellkey/internal/keys"
	"github.com/shellkey/shellkey/internal/logger"
	"github.com/shellkey/shellkey/internal/prompt"
	"github.com/shellkey/shellkey/internal/remote"
	"github.com/shellkey/shellkey/internal/ui"
	"github.com/shellkey/shellkey/pkg/sshutil"
	"golang.org/x/crypto/ssh"
)

// Dialer opens an authenticated session to host.
type Dialer func(ctx context.Context, host string, opts sshutil.DialOptions) (sshutil.SSHClient, error)

// DialSSH is the Dialer backed by a real SSH connection.
func DialSSH(ctx context.Context, host string, opts sshutil.DialOptions) (sshutil.SSHClient, error) {
	client, err := sshutil.Dial(ctx, host, opts)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// CopyKey carries everything one run needs. Fields are filled by the root
// command and replaced by fakes in tests.
type CopyKey struct {
	Config    *config.Config
	Generator keys.Generator
	Secrets   prompt.SecretReader
	Confirmer prompt.Confirmer
	Dial      Dialer
	Printer   *ui.Printer
	Log       logger.Logger

	// AutoYes trusts unknown host keys without asking.
	AutoYes bool

	// AgentSocket is the ssh-agent socket offered when use_agent is on.
	AgentSocket string
}

// Run makes sure a local key pair exists, then installs its public half
// in target's authorized_keys. The first failing step ends the run.
func (c *CopyKey) Run(ctx context.Context, target host.Target) error {
	loc := keys.Location{Dir: c.Config.KeyDir}

	present, err := keys.HasLocalKeyPair(loc.Dir)
	if err != nil {
		return err
	}
	if !present {
		if err := c.generate(ctx, loc); err != nil {
			return err
		}
	}

	publicKey, err := keys.ReadPublicKey(loc.PublicPath())
	if err != nil {
		return err
	}

	password, err := c.Secrets.ReadSecret("Password")
	if err != nil {
		return err
	}

	client, err := c.connect(ctx, target, password)
	if err != nil {
		return err
	}
	defer client.Close()

	progress := func(msg string) { c.Printer.Step("%s", msg) }
	keyDir, err := remote.NewProvisioner(client, c.Config.CommandTimeout, c.Log, progress).Provision(ctx)
	if err != nil {
		return err
	}

	authPath := remote.AuthorizedKeysPath(keyDir)
	tx := remote.NewTransmitter(client, c.Config.CommandTimeout, c.Log)

	if c.Config.SkipExisting {
		installed, err := tx.HasKey(ctx, publicKey, authPath)
		if err != nil {
			return err
		}
		if installed {
			c.Printer.Warn("Key already present in %s on %s, nothing to do", authPath, target.Address)
			return nil
		}
	}

	result, err := tx.Transmit(ctx, publicKey, authPath)
	if err != nil {
		return err
	}
	c.Log.Debug("appended %s to %s", loc.PublicPath(), result.Detail)

	c.Printer.Success("Key successfully transmitted to %s", target.Address)
	return nil
}

func (c *CopyKey) generate(ctx context.Context, loc keys.Location) error {
	c.Printer.Step("No keys found, generating keys...")

	spinner := c.Printer.Spinner("Generating key pair in " + loc.Dir)
	spinner.Start()
	if err := c.Generator.Generate(ctx, loc.Dir); err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success()
	return nil
}

func (c *CopyKey) connect(ctx context.Context, target host.Target, password string) (sshutil.SSHClient, error) {
	port := target.Port
	if port == 0 {
		port = c.Config.Port
	}

	spinner := c.Printer.Spinner("Connecting to " + target.Address)
	trust := prompt.ConfirmHostKey(c.Confirmer, c.AutoYes)

	opts := sshutil.DialOptions{
		User:          target.User,
		Password:      password,
		Port:          port,
		SSHConfigPath: c.Config.SSHConfig,
		Timeout:       c.Config.ConnectTimeout,
		HostKey: sshutil.HostKeyOptions{
			Insecure:       !c.Config.StrictHostKey,
			KnownHostsPath: c.Config.KnownHosts,
			Trust: func(hostname string, key ssh.PublicKey) (bool, error) {
				// The question needs a clean line.
				spinner.Clear()
				return trust(hostname, key)
			},
		},
		Logger: c.Log,
	}
	if c.Config.UseAgent {
		opts.AgentSocket = c.AgentSocket
	}

	spinner.Start()
	client, err := c.Dial(ctx, target.Address, opts)
	if err != nil {
		spinner.Fail()
		return nil, err
	}

	spinner.SetLabel("Connection established with " + target.Address)
	spinner.Success()
	return client, nil
}
