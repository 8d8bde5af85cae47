package doctor

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh/agent"
)

// KnownHostsCheck verifies host keys can be checked and recorded.
type KnownHostsCheck struct {
	Path   string
	Strict bool
}

func (c *KnownHostsCheck) Name() string     { return "known_hosts" }
func (c *KnownHostsCheck) Category() string { return CategorySSH }

func (c *KnownHostsCheck) Run() CheckResult {
	if !c.Strict {
		return warn(c, "Host key checking is off",
			"Set strict_host_key: true so a spoofed host can't collect your password")
	}

	info, err := os.Stat(c.Path)
	if os.IsNotExist(err) {
		return pass(c, c.Path+" will be created on first connect")
	}
	if err != nil {
		return fail(c, "Can't read "+c.Path, err.Error())
	}
	if info.IsDir() {
		return fail(c, c.Path+" is a directory", "Point known_hosts at a file")
	}

	f, err := os.OpenFile(c.Path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return warn(c, c.Path+" is not writable",
			"New host keys can't be remembered. Check its permissions.")
	}
	f.Close()
	return pass(c, "Host keys are checked against "+c.Path)
}

// AgentCheck reports on ssh-agent when use_agent is on.
type AgentCheck struct {
	Enabled bool
	Socket  string
}

func (c *AgentCheck) Name() string     { return "ssh_agent" }
func (c *AgentCheck) Category() string { return CategorySSH }

func (c *AgentCheck) Run() CheckResult {
	if !c.Enabled {
		return pass(c, "ssh-agent not used (use_agent is off)")
	}
	if c.Socket == "" {
		return warn(c, "use_agent is on but SSH_AUTH_SOCK is not set",
			"Fix: eval $(ssh-agent) && ssh-add")
	}

	conn, err := net.Dial("unix", c.Socket)
	if err != nil {
		return warn(c, "SSH agent socket not accessible",
			"Fix: eval $(ssh-agent) && ssh-add")
	}
	defer conn.Close()

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return warn(c, "Cannot query SSH agent", err.Error())
	}
	if len(keys) == 0 {
		return warn(c, "SSH agent running but no keys loaded",
			"Add a key with: ssh-add")
	}
	return pass(c, fmt.Sprintf("SSH agent running with %d key%s loaded", len(keys), pluralize(len(keys))))
}
