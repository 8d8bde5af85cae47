package sshutil

import (
	"bytes"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// DefaultPort is used when neither the caller nor ~/.ssh/config name a port.
const DefaultPort = 22

// Settings holds resolved connection parameters for one host.
type Settings struct {
	Alias    string // what the user typed
	Hostname string // HostName from ssh config, or the alias itself
	Port     int
	// MatchLine is the 1-indexed line of the first Match block in the
	// config, or 0. Entries after it were not considered.
	MatchLine int
}

// Address returns the host:port string for dialing.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Hostname, strconv.Itoa(s.Port))
}

// ResolveSettings resolves HostName and Port for alias from the SSH config
// at configPath. An explicit non-zero port wins over the config file.
// A missing or unreadable config file yields the plain alias on port 22.
func ResolveSettings(alias string, port int, configPath string) Settings {
	settings := Settings{
		Alias:    alias,
		Hostname: alias,
		Port:     DefaultPort,
	}

	var cfg *ssh_config.Config
	if configPath != "" {
		content, matchLine, err := preprocessSSHConfig(configPath)
		if err == nil {
			settings.MatchLine = matchLine
			cfg, _ = ssh_config.Decode(bytes.NewReader(content))
		}
	}

	if cfg != nil {
		if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
			settings.Hostname = hostname
		}
		if p, _ := cfg.Get(alias, "Port"); p != "" {
			if n, err := strconv.Atoi(p); err == nil && n > 0 {
				settings.Port = n
			}
		}
	}

	if port > 0 {
		settings.Port = port
	}

	return settings
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
// kevinburke/ssh_config doesn't support Match, so anything after it is dropped.
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}
