package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete hostwatch.yaml configuration file.
type Config struct {
	Version int           `yaml:"version" mapstructure:"version"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
	SSH     SSHConfig     `yaml:"ssh" mapstructure:"ssh"`
	// Targets maps a user id (decimal string) to that user's host.
	Targets map[string]sshutil.Credentials `yaml:"targets,omitempty" mapstructure:"targets"`
	Notify  NotifyConfig                   `yaml:"notify" mapstructure:"notify"`
}

// MonitorConfig holds the sampling and alerting policy.
type MonitorConfig struct {
	Thresholds ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`

	// BaseInterval is the polling delay for an idle host.
	BaseInterval time.Duration `yaml:"base_interval" mapstructure:"base_interval"`

	// MinInterval is the polling delay for a host at or above 90% load.
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval"`

	CacheTTL        time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	PoolIdleTimeout time.Duration `yaml:"pool_idle_timeout" mapstructure:"pool_idle_timeout"`

	// FalsePositiveThreshold is how many consecutive critical samples raise an alert.
	FalsePositiveThreshold int `yaml:"false_positive_threshold" mapstructure:"false_positive_threshold"`

	// AlertCooldown is the minimum gap between repeated alerts for one resource.
	AlertCooldown time.Duration `yaml:"alert_cooldown" mapstructure:"alert_cooldown"`

	// SpikeRejectionDelta is the jump, in percentage points, treated as a glitch.
	SpikeRejectionDelta float64 `yaml:"spike_rejection_delta" mapstructure:"spike_rejection_delta"`
}

// ThresholdsConfig holds the critical percentage per resource.
type ThresholdsConfig struct {
	CPU  float64 `yaml:"cpu" mapstructure:"cpu"`
	RAM  float64 `yaml:"ram" mapstructure:"ram"`
	Disk float64 `yaml:"disk" mapstructure:"disk"`
}

// SSHConfig controls how target connections are made.
type SSHConfig struct {
	ConnectTimeout        time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	ProbeTimeout          time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
	CommandTimeout        time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
	StrictHostKeyChecking bool          `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`
	// KnownHosts overrides ~/.ssh/known_hosts.
	KnownHosts string `yaml:"known_hosts,omitempty" mapstructure:"known_hosts"`
}

// NotifyConfig selects where alerts go.
type NotifyConfig struct {
	Console  bool           `yaml:"console" mapstructure:"console"`
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
}

// TelegramConfig configures the Telegram bot. Empty token disables it.
type TelegramConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() *Config {
	s := monitor.DefaultSettings()
	return &Config{
		Version: CurrentConfigVersion,
		Monitor: MonitorConfig{
			Thresholds: ThresholdsConfig{
				CPU:  s.Thresholds.CPU,
				RAM:  s.Thresholds.RAM,
				Disk: s.Thresholds.Disk,
			},
			BaseInterval:           s.BaseInterval,
			MinInterval:            s.MinInterval,
			CacheTTL:               s.CacheTTL,
			PoolIdleTimeout:        s.PoolIdleTimeout,
			FalsePositiveThreshold: s.FalsePositiveThreshold,
			AlertCooldown:          s.AlertCooldown,
			SpikeRejectionDelta:    s.SpikeRejectionDelta,
		},
		SSH: SSHConfig{
			ConnectTimeout:        sshutil.DefaultConnectTimeout,
			ProbeTimeout:          s.ProbeTimeout,
			CommandTimeout:        s.CommandTimeout,
			StrictHostKeyChecking: true,
		},
		Targets: map[string]sshutil.Credentials{},
		Notify: NotifyConfig{
			Console: true,
		},
	}
}

// Settings converts the config into monitoring core settings.
func (c *Config) Settings() monitor.Settings {
	return monitor.Settings{
		Thresholds: monitor.Thresholds{
			CPU:  c.Monitor.Thresholds.CPU,
			RAM:  c.Monitor.Thresholds.RAM,
			Disk: c.Monitor.Thresholds.Disk,
		},
		BaseInterval:           c.Monitor.BaseInterval,
		MinInterval:            c.Monitor.MinInterval,
		CacheTTL:               c.Monitor.CacheTTL,
		PoolIdleTimeout:        c.Monitor.PoolIdleTimeout,
		FalsePositiveThreshold: c.Monitor.FalsePositiveThreshold,
		AlertCooldown:          c.Monitor.AlertCooldown,
		SpikeRejectionDelta:    c.Monitor.SpikeRejectionDelta,
		// Dialing covers TCP connect plus handshake.
		DialTimeout:    2 * c.SSH.ConnectTimeout,
		ProbeTimeout:   c.SSH.ProbeTimeout,
		CommandTimeout: c.SSH.CommandTimeout,
	}.WithDefaults()
}

// DialOptions converts the ssh section into dial options.
func (c *Config) DialOptions() sshutil.DialOptions {
	return sshutil.DialOptions{
		ConnectTimeout:        c.SSH.ConnectTimeout,
		HandshakeTimeout:      c.SSH.ConnectTimeout,
		StrictHostKeyChecking: c.SSH.StrictHostKeyChecking,
		KnownHostsPath:        ExpandTilde(c.SSH.KnownHosts),
	}
}

// Target returns the credentials configured for userID.
func (c *Config) Target(userID monitor.UserID) (sshutil.Credentials, bool) {
	creds, ok := c.Targets[strconv.FormatInt(int64(userID), 10)]
	return creds, ok
}

// UserIDs returns every configured user id in ascending order.
func (c *Config) UserIDs() ([]monitor.UserID, error) {
	ids := make([]monitor.UserID, 0, len(c.Targets))
	for key := range c.Targets {
		id, err := ParseUserID(key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ParseUserID parses a decimal user id.
func ParseUserID(s string) (monitor.UserID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("user id '%s' is not a number", s)
	}
	return monitor.UserID(id), nil
}
