package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but hostwatch only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade hostwatch or lower the version field.")
	}

	if err := validateMonitor(cfg.Monitor); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'monitor' section in your hostwatch.yaml.")
	}

	if err := validateSSH(cfg.SSH); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'ssh' section in your hostwatch.yaml.")
	}

	// Sorted so the first reported problem is stable.
	keys := make([]string, 0, len(cfg.Targets))
	for k := range cfg.Targets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := validateTarget(key, cfg); err != nil {
			return err
		}
	}

	return nil
}

func validateMonitor(m MonitorConfig) error {
	for name, v := range map[string]float64{
		"cpu":  m.Thresholds.CPU,
		"ram":  m.Thresholds.RAM,
		"disk": m.Thresholds.Disk,
	} {
		if v <= 0 || v > 100 {
			return fmt.Errorf("thresholds.%s must be in (0, 100], got %g", name, v)
		}
	}

	if m.BaseInterval <= 0 {
		return fmt.Errorf("base_interval must be positive, got %s", m.BaseInterval)
	}
	if m.MinInterval <= 0 {
		return fmt.Errorf("min_interval must be positive, got %s", m.MinInterval)
	}
	if m.MinInterval > m.BaseInterval {
		return fmt.Errorf("min_interval (%s) can't be longer than base_interval (%s)", m.MinInterval, m.BaseInterval)
	}
	if m.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive, got %s", m.CacheTTL)
	}
	if m.PoolIdleTimeout <= 0 {
		return fmt.Errorf("pool_idle_timeout must be positive, got %s", m.PoolIdleTimeout)
	}
	if m.FalsePositiveThreshold < 1 {
		return fmt.Errorf("false_positive_threshold must be at least 1, got %d", m.FalsePositiveThreshold)
	}
	if m.AlertCooldown <= 0 {
		return fmt.Errorf("alert_cooldown must be positive, got %s", m.AlertCooldown)
	}
	if m.SpikeRejectionDelta <= 0 {
		return fmt.Errorf("spike_rejection_delta must be positive, got %g", m.SpikeRejectionDelta)
	}
	return nil
}

func validateSSH(s SSHConfig) error {
	if s.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", s.ConnectTimeout)
	}
	if s.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive, got %s", s.ProbeTimeout)
	}
	if s.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be positive, got %s", s.CommandTimeout)
	}
	return nil
}

func validateTarget(key string, cfg *Config) error {
	if _, err := ParseUserID(key); err != nil {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Target key '%s' isn't a user id", key),
			"Targets are keyed by numeric user id, e.g. \"123456789\":")
	}

	t := cfg.Targets[key]
	if err := t.Validate(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Target for user %s is invalid", key),
			"Check targets."+key+" in your hostwatch.yaml.")
	}

	if strings.TrimSpace(t.Password) == "" && strings.TrimSpace(t.KeyFile) == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Target for user %s has no password or key_file", key),
			"Set one of them so hostwatch can log in without prompting.")
	}
	return nil
}
