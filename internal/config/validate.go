package config

import (
	"fmt"

	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/internal/util"
)

// Generators lists the accepted values of the generator key.
var Generators = []string{"ssh-keygen", "native"}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.KeyDir == "" {
		return errors.New(errors.ErrConfig,
			"key_dir is empty",
			"Set key_dir to the directory holding id_rsa, e.g. ~/.ssh")
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Port %d is out of range", cfg.Port),
			"Use a port between 1 and 65535, or 0 to follow ~/.ssh/config")
	}

	if cfg.ConnectTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("connect_timeout must be positive, got %s", cfg.ConnectTimeout),
			"Try something like 10s")
	}
	if cfg.CommandTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("command_timeout must be positive, got %s", cfg.CommandTimeout),
			"Try something like 30s")
	}

	if !isKnownGenerator(cfg.Generator) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown key generator: %s", cfg.Generator),
			generatorSuggestion(cfg.Generator))
	}

	if cfg.StrictHostKey && cfg.KnownHosts == "" {
		return errors.New(errors.ErrConfig,
			"known_hosts is empty but host key checking is on",
			"Set known_hosts, or pass --insecure-host-key to skip checking")
	}

	return nil
}

func isKnownGenerator(name string) bool {
	for _, g := range Generators {
		if g == name {
			return true
		}
	}
	return false
}

func generatorSuggestion(name string) string {
	if similar := util.SuggestSimilar(name, Generators, 3); len(similar) > 0 {
		return fmt.Sprintf("Did you mean %s?", similar[0])
	}
	return "Supported generators: ssh-keygen, native"
}
