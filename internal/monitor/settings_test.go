package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, Thresholds{CPU: 90, RAM: 90, Disk: 90}, s.Thresholds)
	assert.Equal(t, 300*time.Second, s.BaseInterval)
	assert.Equal(t, 60*time.Second, s.MinInterval)
	assert.Equal(t, 30*time.Second, s.CacheTTL)
	assert.Equal(t, 300*time.Second, s.PoolIdleTimeout)
	assert.Equal(t, 3, s.FalsePositiveThreshold)
	assert.Equal(t, 3600*time.Second, s.AlertCooldown)
	assert.Equal(t, 40.0, s.SpikeRejectionDelta)
	assert.Equal(t, 2*time.Second, s.ProbeTimeout)
	assert.Equal(t, 5*time.Second, s.CommandTimeout)
}

func TestSettingsWithDefaults(t *testing.T) {
	assert.Equal(t, DefaultSettings(), Settings{}.WithDefaults())

	custom := Settings{Thresholds: Thresholds{CPU: 70}, MinInterval: time.Second}.WithDefaults()
	assert.Equal(t, 70.0, custom.Thresholds.CPU)
	assert.Equal(t, 90.0, custom.Thresholds.RAM)
	assert.Equal(t, time.Second, custom.MinInterval)
	assert.Equal(t, DefaultBaseInterval, custom.BaseInterval)
}
