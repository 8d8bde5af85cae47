package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shellkey/shellkey/internal/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. SHELLKEY_PORT.
	EnvPrefix = "SHELLKEY"
	// GlobalConfigDir is the directory for the user config, relative to home.
	GlobalConfigDir = ".config/shellkey"
	// GlobalConfigFile is the user config file name.
	GlobalConfigFile = "config.yaml"
)

// NewViper returns a viper instance preloaded with defaults and environment
// lookups. Flags are bound onto it by the CLI before Load.
func NewViper(home string) *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig(home))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault(KeyKeyDir, d.KeyDir)
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyConnectTimeout, d.ConnectTimeout)
	v.SetDefault(KeyCommandTimeout, d.CommandTimeout)
	v.SetDefault(KeyGenerator, d.Generator)
	v.SetDefault(KeyStrictHostKey, d.StrictHostKey)
	v.SetDefault(KeyKnownHosts, d.KnownHosts)
	v.SetDefault(KeyUseAgent, d.UseAgent)
	v.SetDefault(KeySSHConfig, d.SSHConfig)
	v.SetDefault(KeySkipExisting, d.SkipExisting)
}

// Find locates the config file:
// 1. Explicit path (from --config flag), which must exist
// 2. ~/.config/shellkey/config.yaml
//
// Returns the path to the config file, or empty string if there is none.
func Find(explicit, home string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	if home != "" {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}
	return "", nil
}

// Load merges defaults, the config file, SHELLKEY_* environment and any
// flags already bound to v, then validates the result.
// It returns the config file used, if any.
func Load(v *viper.Viper, explicit, home string) (*Config, string, error) {
	path, err := Find(explicit, home)
	if err != nil {
		return nil, "", err
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, path, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the YAML syntax in "+path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, path, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Durations look like 10s or 1m; ports are plain numbers")
	}

	cfg.KeyDir = ExpandTilde(Expand(cfg.KeyDir))
	cfg.KnownHosts = ExpandTilde(Expand(cfg.KnownHosts))
	cfg.SSHConfig = ExpandTilde(Expand(cfg.SSHConfig))

	if err := Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
