package cli

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/shellkey/shellkey/internal/config"
	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/internal/host"
	"github.com/shellkey/shellkey/internal/keys"
	"github.com/shellkey/shellkey/internal/logger"
	"github.com/shellkey/shellkey/internal/prompt"
	"github.com/shellkey/shellkey/internal/ui"
	"github.com/spf13/cobra"
)

// app holds the process-level collaborators behind the commands.
type app struct {
	homeDir      func() (string, error)
	lookPath     func(string) (string, error)
	getenv       func(string) string
	dial         Dialer
	secrets      prompt.SecretReader
	confirmer    prompt.Confirmer
	newGenerator func(name string, log logger.Logger) (keys.Generator, error)
}

func defaultApp() *app {
	return &app{
		homeDir:      os.UserHomeDir,
		lookPath:     exec.LookPath,
		getenv:       os.Getenv,
		dial:         DialSSH,
		secrets:      prompt.NewTerminalReader(),
		confirmer:    prompt.HuhConfirmer{},
		newGenerator: keys.NewGenerator,
	}
}

// rootFlags are the flags that don't map onto a config key.
type rootFlags struct {
	configPath      string
	insecureHostKey bool
	yes             bool
	noColor         bool
	verbose         bool
}

// configFlags maps config keys to the flags that override them.
var configFlags = map[string]string{
	config.KeyKeyDir:         "key-dir",
	config.KeyPort:           "port",
	config.KeyConnectTimeout: "connect-timeout",
	config.KeyCommandTimeout: "command-timeout",
	config.KeyGenerator:      "generator",
	config.KeyUseAgent:       "use-agent",
	config.KeySkipExisting:   "skip-existing",
}

var rootCmd = newRootCmd(defaultApp())

func newRootCmd(a *app) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "shellkey <user@host>",
		Short: "Copy your public key to a remote host's authorized_keys",
		Long: `Install your public key on a remote host so later SSH logins skip the password.

shellkey makes sure ~/.ssh/id_rsa and ~/.ssh/id_rsa.pub exist (generating
them if needed), asks for the remote password once, creates ~/.ssh and
~/.ssh/authorized_keys on the remote side when they're missing, and appends
the public key.

Examples:
  shellkey alice@example.com
  shellkey alice@10.0.0.5:2222
  shellkey --generator native --yes deploy@build-box`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.SetColorEnabled(ui.WantColor(flags.noColor))
			logger.SetVerbose(flags.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.copyKey(cmd, args, flags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.config/shellkey/config.yaml)")
	pf.String("key-dir", "", "directory holding id_rsa and id_rsa.pub (default ~/.ssh)")
	pf.Int("port", 0, "SSH port when neither the argument nor ~/.ssh/config names one")
	pf.Duration("connect-timeout", config.DefaultConnectTimeout, "limit for TCP connect plus SSH handshake")
	pf.Duration("command-timeout", config.DefaultCommandTimeout, "limit for each remote command")
	pf.String("generator", config.DefaultGenerator, "key generator: ssh-keygen or native")
	pf.BoolVar(&flags.insecureHostKey, "insecure-host-key", false, "skip host key verification")
	pf.Bool("use-agent", false, "offer ssh-agent keys before the password")
	pf.Bool("skip-existing", false, "leave authorized_keys alone if the key is already there")
	pf.BoolVarP(&flags.yes, "yes", "y", false, "trust unknown host keys without asking")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "print debug output")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return errors.WrapWithCode(err, errors.ErrUsage, host.Usage,
			"Run 'shellkey --help' to see the available flags")
	})

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConfigCmd(a, flags))
	cmd.AddCommand(newDoctorCmd(a, flags))
	cmd.AddCommand(newCompletionCmd(cmd))
	return cmd
}

// Execute runs the root command and exits with the code its outcome maps to.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, rootCmd, os.Args[1:])
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if _, reported := errors.GetExitCode(err); err != nil && !reported {
		ui.NewPrinter(cmd.ErrOrStderr()).Error(err)
	}
	return errors.ExitCodeFor(err)
}

// copyKey validates the argument before touching the filesystem or network.
func (a *app) copyKey(cmd *cobra.Command, args []string, flags *rootFlags) error {
	if len(args) != 1 {
		return errors.New(errors.ErrUsage, host.Usage, "")
	}
	target, err := host.Parse(args[0])
	if err != nil {
		return err
	}

	cfg, home, _, err := a.loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	platform, err := DetectPlatform(home, a.lookPath, cfg.Generator)
	if err != nil {
		return err
	}

	log := logger.NewEnvLogger("[shellkey]")
	gen, err := a.newGenerator(cfg.Generator, logger.NewEnvLogger("[keys]"))
	if err != nil {
		return err
	}
	if kg, ok := gen.(*keys.SSHKeygen); ok && kg.Binary == "" {
		kg.Binary = platform.KeygenPath
	}
	log.Debug("target %s, key dir %s, generator %s", target, cfg.KeyDir, cfg.Generator)

	run := &CopyKey{
		Config:      cfg,
		Generator:   gen,
		Secrets:     a.secrets,
		Confirmer:   a.confirmer,
		Dial:        a.dial,
		Printer:     ui.NewPrinter(cmd.OutOrStdout()),
		Log:         logger.NewEnvLogger("[remote]"),
		AutoYes:     flags.yes,
		AgentSocket: a.getenv("SSH_AUTH_SOCK"),
	}
	return run.Run(cmd.Context(), target)
}

// loadConfig resolves home and merges defaults, config file, environment and flags.
// It also returns home and the config file used, if any.
func (a *app) loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, string, string, error) {
	home, err := ResolveHome(a.homeDir)
	if err != nil {
		return nil, "", "", err
	}

	v := config.NewViper(home)
	for key, name := range configFlags {
		if err := v.BindPFlag(key, cmd.Flag(name)); err != nil {
			return nil, "", "", errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't bind --"+name, "")
		}
	}

	cfg, path, err := config.Load(v, flags.configPath, home)
	if err != nil {
		return nil, "", "", err
	}
	if flags.insecureHostKey {
		cfg.StrictHostKey = false
	}
	return cfg, home, path, nil
}
