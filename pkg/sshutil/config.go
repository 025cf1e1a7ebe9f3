package sshutil

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// Credentials describes how to reach and authenticate against a target host.
// Host can be an SSH config alias, a hostname, user@hostname or hostname:port.
// Explicit User and Port take precedence over values parsed from Host or
// found in ~/.ssh/config.
type Credentials struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port,omitempty" mapstructure:"port"`
	User     string `yaml:"user,omitempty" mapstructure:"user"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	KeyFile  string `yaml:"key_file,omitempty" mapstructure:"key_file"`
}

// Validate checks that the credentials are usable for dialing.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New(errors.ErrConfig,
			"No host set for this target",
			"Set a hostname, user@hostname or SSH config alias.")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Port %d is out of range", c.Port),
			"Use a port between 1 and 65535, or leave it empty for 22.")
	}
	if strings.ContainsAny(c.Host, " \t\n") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' contains whitespace", c.Host),
			"Check the host value for stray spaces.")
	}
	return nil
}

// String returns user@host:port without any secret material.
func (c Credentials) String() string {
	s := resolveSSHSettings(c)
	return s.user + "@" + s.address()
}

// sshSettings holds resolved SSH connection parameters.
type sshSettings struct {
	hostname      string
	port          string
	user          string
	password      string
	identityFile  string
	encryptedKeys []string // Keys that exist but are encrypted
}

// address returns the host:port string for dialing.
func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// matchWarningOnce ensures the SSH config Match directive warning is only shown once per process.
var matchWarningOnce sync.Once

// WarningHandler is a function that handles warning messages.
// If nil, warnings go to the default logger.
var WarningHandler func(message string)

func emitWarning(message string) {
	if WarningHandler != nil {
		WarningHandler(message)
	}
}

// sshConfigPath is the ssh_config file consulted for alias resolution.
// Tests point it at a temporary file.
var sshConfigPath = func() string {
	return filepath.Join(homeDir(), ".ssh", "config")
}

// resolveSSHSettings parses the credentials and resolves settings from ~/.ssh/config.
func resolveSSHSettings(creds Credentials) *sshSettings {
	host := strings.TrimSpace(creds.Host)
	settings := &sshSettings{
		port:     "22",
		user:     currentUser(),
		password: creds.Password,
	}

	// user@host:port parsing; explicit fields win afterwards.
	explicitUser := false
	if atIdx := strings.Index(host, "@"); atIdx != -1 {
		settings.user = host[:atIdx]
		host = host[atIdx+1:]
		explicitUser = true
	}

	explicitPort := false
	if colonIdx := strings.LastIndex(host, ":"); colonIdx != -1 {
		potentialPort := host[colonIdx+1:]
		if _, err := strconv.Atoi(potentialPort); err == nil && potentialPort != "" {
			settings.port = potentialPort
			host = host[:colonIdx]
			explicitPort = true
		}
	}

	settings.hostname = host
	applySSHConfig(settings, host, explicitUser, explicitPort)

	if creds.User != "" {
		settings.user = creds.User
	}
	if creds.Port > 0 {
		settings.port = strconv.Itoa(creds.Port)
	}
	if creds.KeyFile != "" {
		settings.identityFile = expandPath(creds.KeyFile)
	}

	return settings
}

// applySSHConfig fills settings from the ssh_config entry for alias, if any.
func applySSHConfig(settings *sshSettings, alias string, explicitUser, explicitPort bool) {
	// The kevinburke/ssh_config library doesn't support Match, so only the
	// content before the first Match block is parsed.
	content, matchLine, err := preprocessSSHConfig(sshConfigPath())
	if err != nil {
		return
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return
	}

	hostFound := false

	if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
		settings.hostname = hostname
		hostFound = true
	}

	if port, _ := cfg.Get(alias, "Port"); port != "" && !explicitPort {
		settings.port = port
		hostFound = true
	}

	if user, _ := cfg.Get(alias, "User"); user != "" && !explicitUser {
		settings.user = user
		hostFound = true
	}

	if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
		settings.identityFile = expandPath(identity)
		hostFound = true
	}

	if matchLine > 0 && !hostFound {
		matchWarningOnce.Do(func() {
			emitWarning(fmt.Sprintf(
				"Host '%s' not found in SSH config (config has a Match block at line %d that may hide later entries)",
				alias, matchLine))
		})
	}
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
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

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
