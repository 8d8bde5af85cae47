package config

import (
	"gopkg.in/yaml.v3"
)

// fileView is the YAML shape of Config, with durations as strings.
type fileView struct {
	KeyDir         string `yaml:"key_dir"`
	Port           int    `yaml:"port"`
	ConnectTimeout string `yaml:"connect_timeout"`
	CommandTimeout string `yaml:"command_timeout"`
	Generator      string `yaml:"generator"`
	StrictHostKey  bool   `yaml:"strict_host_key"`
	KnownHosts     string `yaml:"known_hosts"`
	UseAgent       bool   `yaml:"use_agent"`
	SSHConfig      string `yaml:"ssh_config"`
	SkipExisting   bool   `yaml:"skip_existing"`
}

// Marshal renders cfg as config.yaml content. Loading the output gives back cfg.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(fileView{
		KeyDir:         cfg.KeyDir,
		Port:           cfg.Port,
		ConnectTimeout: cfg.ConnectTimeout.String(),
		CommandTimeout: cfg.CommandTimeout.String(),
		Generator:      cfg.Generator,
		StrictHostKey:  cfg.StrictHostKey,
		KnownHosts:     cfg.KnownHosts,
		UseAgent:       cfg.UseAgent,
		SSHConfig:      cfg.SSHConfig,
		SkipExisting:   cfg.SkipExisting,
	})
}
