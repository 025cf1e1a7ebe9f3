package monitor

import "time"

// Settings holds every tunable of the monitoring core.
// Zero fields are replaced by their defaults when a component is built.
type Settings struct {
	Thresholds             Thresholds
	BaseInterval           time.Duration
	MinInterval            time.Duration
	CacheTTL               time.Duration
	PoolIdleTimeout        time.Duration
	FalsePositiveThreshold int
	AlertCooldown          time.Duration
	SpikeRejectionDelta    float64

	// Remote call budgets.
	DialTimeout    time.Duration
	ProbeTimeout   time.Duration
	CommandTimeout time.Duration
}

// Defaults for Settings.
const (
	DefaultThreshold              = 90.0
	DefaultBaseInterval           = 300 * time.Second
	DefaultMinInterval            = 60 * time.Second
	DefaultCacheTTL               = 30 * time.Second
	DefaultPoolIdleTimeout        = 300 * time.Second // equal to DefaultBaseInterval, see Pool
	DefaultFalsePositiveThreshold = 3
	DefaultAlertCooldown          = 3600 * time.Second
	DefaultSpikeRejectionDelta    = 40.0
	DefaultDialTimeout            = 10 * time.Second
	DefaultProbeTimeout           = 2 * time.Second
	DefaultCommandTimeout         = 5 * time.Second
)

// DefaultSettings returns the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		Thresholds: Thresholds{
			CPU:  DefaultThreshold,
			RAM:  DefaultThreshold,
			Disk: DefaultThreshold,
		},
		BaseInterval:           DefaultBaseInterval,
		MinInterval:            DefaultMinInterval,
		CacheTTL:               DefaultCacheTTL,
		PoolIdleTimeout:        DefaultPoolIdleTimeout,
		FalsePositiveThreshold: DefaultFalsePositiveThreshold,
		AlertCooldown:          DefaultAlertCooldown,
		SpikeRejectionDelta:    DefaultSpikeRejectionDelta,
		DialTimeout:            DefaultDialTimeout,
		ProbeTimeout:           DefaultProbeTimeout,
		CommandTimeout:         DefaultCommandTimeout,
	}
}

// WithDefaults fills zero fields from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.Thresholds.CPU <= 0 {
		s.Thresholds.CPU = d.Thresholds.CPU
	}
	if s.Thresholds.RAM <= 0 {
		s.Thresholds.RAM = d.Thresholds.RAM
	}
	if s.Thresholds.Disk <= 0 {
		s.Thresholds.Disk = d.Thresholds.Disk
	}
	if s.BaseInterval <= 0 {
		s.BaseInterval = d.BaseInterval
	}
	if s.MinInterval <= 0 {
		s.MinInterval = d.MinInterval
	}
	if s.CacheTTL <= 0 {
		s.CacheTTL = d.CacheTTL
	}
	if s.PoolIdleTimeout <= 0 {
		s.PoolIdleTimeout = d.PoolIdleTimeout
	}
	if s.FalsePositiveThreshold <= 0 {
		s.FalsePositiveThreshold = d.FalsePositiveThreshold
	}
	if s.AlertCooldown <= 0 {
		s.AlertCooldown = d.AlertCooldown
	}
	if s.SpikeRejectionDelta <= 0 {
		s.SpikeRejectionDelta = d.SpikeRejectionDelta
	}
	if s.DialTimeout <= 0 {
		s.DialTimeout = d.DialTimeout
	}
	if s.ProbeTimeout <= 0 {
		s.ProbeTimeout = d.ProbeTimeout
	}
	if s.CommandTimeout <= 0 {
		s.CommandTimeout = d.CommandTimeout
	}
	return s
}
