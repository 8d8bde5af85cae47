package config

import (
	"path/filepath"
	"time"
)

// Defaults for every config key.
const (
	DefaultPort           = 22
	DefaultConnectTimeout = 10 * time.Second
	DefaultCommandTimeout = 30 * time.Second
	DefaultGenerator      = "ssh-keygen"
)

// Config keys, as used in config.yaml and (upper-cased, SHELLKEY_ prefixed) in the environment.
const (
	KeyKeyDir         = "key_dir"
	KeyPort           = "port"
	KeyConnectTimeout = "connect_timeout"
	KeyCommandTimeout = "command_timeout"
	KeyGenerator      = "generator"
	KeyStrictHostKey  = "strict_host_key"
	KeyUseAgent       = "use_agent"
	KeyKnownHosts     = "known_hosts"
	KeySSHConfig      = "ssh_config"
	KeySkipExisting   = "skip_existing"
)

// Config is the effective configuration for one run.
type Config struct {
	// KeyDir holds id_rsa and id_rsa.pub.
	KeyDir string `mapstructure:"key_dir"`

	// Port is used when neither the argument nor ~/.ssh/config names one.
	// Zero defers to ~/.ssh/config, then 22.
	Port int `mapstructure:"port"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`

	// Generator is "ssh-keygen" or "native".
	Generator string `mapstructure:"generator"`

	// StrictHostKey verifies the host key against KnownHosts.
	StrictHostKey bool   `mapstructure:"strict_host_key"`
	KnownHosts    string `mapstructure:"known_hosts"`

	// UseAgent offers ssh-agent keys before asking for a password.
	UseAgent bool `mapstructure:"use_agent"`

	// SSHConfig is read for HostName and Port. Empty skips it.
	SSHConfig string `mapstructure:"ssh_config"`

	// SkipExisting leaves authorized_keys alone when the key is already there.
	SkipExisting bool `mapstructure:"skip_existing"`
}

// DefaultConfig returns the built-in configuration for a user whose home is home.
func DefaultConfig(home string) *Config {
	sshDir := filepath.Join(home, ".ssh")
	return &Config{
		KeyDir:         sshDir,
		Port:           0,
		ConnectTimeout: DefaultConnectTimeout,
		CommandTimeout: DefaultCommandTimeout,
		Generator:      DefaultGenerator,
		StrictHostKey:  true,
		KnownHosts:     filepath.Join(sshDir, "known_hosts"),
		UseAgent:       false,
		SSHConfig:      filepath.Join(sshDir, "config"),
		SkipExisting:   false,
	}
}
