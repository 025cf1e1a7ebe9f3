package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ExpandTilde replaces ~ or ~/path with the user's home directory.
// Does not support ~username syntax - just ~ for the current user.
func ExpandTilde(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path // Return unchanged if we can't get home
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}

	return path
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${NAME} references with environment values so secrets
// can stay out of the config file. Unset variables expand to "".
// A bare $NAME is left alone since passwords often contain '$'.
func ExpandEnv(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envRef.FindStringSubmatch(m)[1])
	})
}

// expandTargets applies ExpandEnv to target secrets and ExpandTilde to key files.
func expandTargets(cfg *Config) {
	for id, t := range cfg.Targets {
		t.Host = ExpandEnv(t.Host)
		t.User = ExpandEnv(t.User)
		t.Password = ExpandEnv(t.Password)
		t.KeyFile = ExpandTilde(ExpandEnv(t.KeyFile))
		cfg.Targets[id] = t
	}
	cfg.Notify.Telegram.Token = ExpandEnv(cfg.Notify.Telegram.Token)
}
