package monitor

import (
	"fmt"
	"math"
	"time"
)

// UserID identifies a monitored user (a chat id in the bot front end).
type UserID int64

// Resource names one of the three sampled utilization metrics.
type Resource string

const (
	ResourceCPU  Resource = "cpu"
	ResourceRAM  Resource = "ram"
	ResourceDisk Resource = "disk"
)

// Resources lists every sampled resource in display order.
var Resources = []Resource{ResourceCPU, ResourceRAM, ResourceDisk}

// Sample is one normalized reading of a target. Every value is a percentage in [0, 100].
type Sample struct {
	CPU  float64
	RAM  float64
	Disk float64
}

// Value returns the percentage for r.
func (s Sample) Value(r Resource) float64 {
	switch r {
	case ResourceCPU:
		return s.CPU
	case ResourceRAM:
		return s.RAM
	case ResourceDisk:
		return s.Disk
	default:
		return 0
	}
}

// With returns a copy of s with r set to the clamped value v.
func (s Sample) With(r Resource, v float64) Sample {
	v = ClampPercent(v)
	switch r {
	case ResourceCPU:
		s.CPU = v
	case ResourceRAM:
		s.RAM = v
	case ResourceDisk:
		s.Disk = v
	}
	return s
}

// Max returns the highest of the three percentages.
func (s Sample) Max() float64 {
	return math.Max(s.CPU, math.Max(s.RAM, s.Disk))
}

func (s Sample) String() string {
	return fmt.Sprintf("cpu=%.1f%% ram=%.1f%% disk=%.1f%%", s.CPU, s.RAM, s.Disk)
}

// ClampPercent forces v into [0, 100]. NaN maps to 0.
func ClampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Thresholds holds the critical level for each resource.
type Thresholds struct {
	CPU  float64
	RAM  float64
	Disk float64
}

// For returns the threshold for r.
func (t Thresholds) For(r Resource) float64 {
	switch r {
	case ResourceCPU:
		return t.CPU
	case ResourceRAM:
		return t.RAM
	case ResourceDisk:
		return t.Disk
	default:
		return 100
	}
}

// EventKind distinguishes raised alerts from recoveries.
type EventKind int

const (
	EventRaised EventKind = iota
	EventResolved
)

func (k EventKind) String() string {
	switch k {
	case EventRaised:
		return "raised"
	case EventResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// AlertEvent is produced by the AlertEngine for a single resource in a single cycle.
// Threshold is only meaningful for raised events.
type AlertEvent struct {
	Kind      EventKind
	Resource  Resource
	Value     float64
	Threshold float64
	At        time.Time
}

// Raised builds a raised event.
func Raised(r Resource, value, threshold float64) AlertEvent {
	return AlertEvent{Kind: EventRaised, Resource: r, Value: value, Threshold: threshold}
}

// Resolved builds a resolved event.
func Resolved(r Resource, value float64) AlertEvent {
	return AlertEvent{Kind: EventResolved, Resource: r, Value: value}
}
