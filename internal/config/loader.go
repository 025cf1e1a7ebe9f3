package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "hostwatch.yaml"
	// GlobalConfigDir is the directory for the per-user config, relative to home.
	GlobalConfigDir = ".config/hostwatch"
	// GlobalConfigFile is the per-user config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. HOSTWATCH_MONITOR_BASE_INTERVAL.
	EnvPrefix = "HOSTWATCH"
)

// Load reads config from the specified path. Environment variables override
// file values.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'hostwatch config init' to create one, or pass --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. hostwatch.yaml in the current directory
// 3. ~/.config/hostwatch/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
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

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}
	local := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	if global := GlobalConfigPath(); global != "" {
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// GlobalConfigPath returns ~/.config/hostwatch/config.yaml, or "" without a home directory.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// LoadOrDefault finds and loads the config, falling back to defaults (plus
// environment overrides) when no file exists. The returned path is empty in
// that case.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := parseConfig(newViper(), "")
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every scalar key so environment overrides apply
// even when the file omits it.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("version", d.Version)
	v.SetDefault("monitor.thresholds.cpu", d.Monitor.Thresholds.CPU)
	v.SetDefault("monitor.thresholds.ram", d.Monitor.Thresholds.RAM)
	v.SetDefault("monitor.thresholds.disk", d.Monitor.Thresholds.Disk)
	v.SetDefault("monitor.base_interval", d.Monitor.BaseInterval)
	v.SetDefault("monitor.min_interval", d.Monitor.MinInterval)
	v.SetDefault("monitor.cache_ttl", d.Monitor.CacheTTL)
	v.SetDefault("monitor.pool_idle_timeout", d.Monitor.PoolIdleTimeout)
	v.SetDefault("monitor.false_positive_threshold", d.Monitor.FalsePositiveThreshold)
	v.SetDefault("monitor.alert_cooldown", d.Monitor.AlertCooldown)
	v.SetDefault("monitor.spike_rejection_delta", d.Monitor.SpikeRejectionDelta)
	v.SetDefault("ssh.connect_timeout", d.SSH.ConnectTimeout)
	v.SetDefault("ssh.probe_timeout", d.SSH.ProbeTimeout)
	v.SetDefault("ssh.command_timeout", d.SSH.CommandTimeout)
	v.SetDefault("ssh.strict_host_key_checking", d.SSH.StrictHostKeyChecking)
	v.SetDefault("ssh.known_hosts", d.SSH.KnownHosts)
	v.SetDefault("notify.console", d.Notify.Console)
	v.SetDefault("notify.telegram.token", d.Notify.Telegram.Token)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "the environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the values in "+where)
	}
	if cfg.Targets == nil {
		cfg.Targets = map[string]sshutil.Credentials{}
	}

	expandTargets(cfg)
	return cfg, nil
}
