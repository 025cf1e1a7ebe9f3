package doctor

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"golang.org/x/crypto/ssh/agent"
)

// SSHAgentCheck verifies the SSH agent is reachable and reports its keys.
// Without an agent, targets need a password or key_file.
type SSHAgentCheck struct {
	// Socket overrides SSH_AUTH_SOCK.
	Socket string
}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return "SSH" }

func (c *SSHAgentCheck) Run(context.Context) CheckResult {
	socket := c.Socket
	if socket == "" {
		socket = os.Getenv("SSH_AUTH_SOCK")
	}
	if socket == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent not running",
			Suggestion: "Targets without a password or key_file won't authenticate. Fix: eval $(ssh-agent) && ssh-add",
		}
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent socket not accessible",
			Suggestion: "Fix: eval $(ssh-agent) && ssh-add",
		}
	}
	defer conn.Close()

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Cannot query SSH agent",
			Suggestion: "Check SSH agent: ssh-add -l",
		}
	}
	if len(keys) == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent running but no keys loaded",
			Suggestion: "Add a key with: ssh-add",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent running with %d key%s loaded", len(keys), pluralize(len(keys))),
	}
}

// KeyFilesCheck verifies every key_file referenced by a target exists and
// is private to the current user.
type KeyFilesCheck struct {
	Config *config.Config
}

func (c *KeyFilesCheck) Name() string     { return "key_files" }
func (c *KeyFilesCheck) Category() string { return "SSH" }

func (c *KeyFilesCheck) Run(context.Context) CheckResult {
	seen := make(map[string]bool)
	var missing, insecure []string

	if c.Config != nil {
		for _, t := range c.Config.Targets {
			if t.KeyFile == "" || seen[t.KeyFile] {
				continue
			}
			seen[t.KeyFile] = true

			info, err := os.Stat(t.KeyFile)
			if err != nil {
				missing = append(missing, t.KeyFile)
				continue
			}
			if info.Mode().Perm()&0o077 != 0 {
				insecure = append(insecure, t.KeyFile)
			}
		}
	}
	sort.Strings(missing)
	sort.Strings(insecure)

	switch {
	case len(seen) == 0:
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "No key files to check",
		}
	case len(missing) > 0:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Key file not found: %v", missing),
			Suggestion: "Fix the key_file path, or generate a key with: ssh-keygen -t ed25519",
		}
	case len(insecure) > 0:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Insecure permissions on: %v", insecure),
			Suggestion: "Fix: chmod 600 <keyfile>",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%d key file%s OK", len(seen), pluralize(len(seen))),
	}
}

// KnownHostsCheck verifies known_hosts exists when host keys are enforced.
type KnownHostsCheck struct {
	Config *config.Config
}

func (c *KnownHostsCheck) Name() string     { return "known_hosts" }
func (c *KnownHostsCheck) Category() string { return "SSH" }

func (c *KnownHostsCheck) Run(context.Context) CheckResult {
	if c.Config == nil || !c.Config.SSH.StrictHostKeyChecking {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Host key checking is disabled",
			Suggestion: "Set ssh.strict_host_key_checking: true for hosts you don't control",
		}
	}

	path := c.Config.DialOptions().KnownHostsPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusWarn,
				Message:    "Cannot determine home directory",
				Suggestion: "Set ssh.known_hosts explicitly",
			}
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	if _, err := os.Stat(path); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "known_hosts not found: " + path,
			Suggestion: "Connect once with ssh to record each host key: ssh <host> exit",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Host keys verified against " + path,
	}
}

// NewSSHChecks creates all SSH-related checks.
func NewSSHChecks(cfg *config.Config) []Check {
	return []Check{
		&SSHAgentCheck{},
		&KeyFilesCheck{Config: cfg},
		&KnownHostsCheck{Config: cfg},
	}
}
