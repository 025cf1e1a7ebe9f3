package monitor

import "time"

// Load tiers, compared against the highest of the three percentages.
const (
	tierCritical = 90.0
	tierHigh     = 75.0
	tierElevated = 50.0
)

// IntervalController picks the delay before the next sample from the current load.
// Busier targets are sampled more often.
type IntervalController struct {
	base time.Duration
	min  time.Duration
}

// NewIntervalController creates a controller. Zero durations fall back to the defaults.
func NewIntervalController(base, min time.Duration) IntervalController {
	if base <= 0 {
		base = DefaultBaseInterval
	}
	if min <= 0 {
		min = DefaultMinInterval
	}
	return IntervalController{base: base, min: min}
}

// Next returns the sleep duration after s.
func (c IntervalController) Next(s Sample) time.Duration {
	peak := s.Max()
	switch {
	case peak >= tierCritical:
		return c.min
	case peak >= tierHigh:
		return 2 * c.min
	case peak >= tierElevated:
		return c.base / 2
	default:
		return c.base
	}
}
