package monitor

import (
	"context"
	"fmt"
	"strings"
)

// BatchKind classifies an outbound notification.
type BatchKind int

const (
	// BatchCritical carries every Raised event of one cycle.
	BatchCritical BatchKind = iota
	// BatchResolved carries every Resolved event of one cycle.
	BatchResolved
	// BatchStopped tells the user their session ended after a failure.
	BatchStopped
)

func (k BatchKind) String() string {
	switch k {
	case BatchCritical:
		return "critical"
	case BatchResolved:
		return "resolved"
	case BatchStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Batch is one notification for one user.
type Batch struct {
	Kind   BatchKind
	Events []AlertEvent
	// Reason is set for BatchStopped.
	Reason string
}

// Notifier delivers batches to a user. Errors are logged by the caller and
// never change how monitoring proceeds.
type Notifier interface {
	Notify(ctx context.Context, userID UserID, batch Batch) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, userID UserID, batch Batch) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, userID UserID, batch Batch) error {
	return f(ctx, userID, batch)
}

// BatchEvents groups one cycle's events into at most one critical batch
// followed by at most one resolved batch.
func BatchEvents(events []AlertEvent) []Batch {
	var raised, resolved []AlertEvent
	for _, ev := range events {
		switch ev.Kind {
		case EventRaised:
			raised = append(raised, ev)
		case EventResolved:
			resolved = append(resolved, ev)
		}
	}

	var batches []Batch
	if len(raised) > 0 {
		batches = append(batches, Batch{Kind: BatchCritical, Events: raised})
	}
	if len(resolved) > 0 {
		batches = append(batches, Batch{Kind: BatchResolved, Events: resolved})
	}
	return batches
}

var hints = map[Resource][]string{
	ResourceCPU: {
		"Check running processes with `top` or `htop`",
		"Stop processes that are no longer needed",
		"Consider a bigger CPU or spreading the load",
	},
	ResourceRAM: {
		"Clear caches and temporary files",
		"Look for processes using a lot of memory",
		"Consider adding RAM or enabling swap",
	},
	ResourceDisk: {
		"Delete unneeded files and empty the trash",
		"Find the largest directories with `du -h`",
		"Consider growing the disk",
	},
}

// Hints returns static remediation advice for r.
func Hints(r Resource) []string {
	return hints[r]
}

// ResourceName returns the display name of r.
func ResourceName(r Resource) string {
	switch r {
	case ResourceCPU:
		return "CPU load"
	case ResourceRAM:
		return "Memory usage"
	case ResourceDisk:
		return "Disk usage"
	default:
		return string(r)
	}
}

// FormatBatch renders a batch as plain text.
func FormatBatch(b Batch) string {
	var sb strings.Builder

	switch b.Kind {
	case BatchCritical:
		sb.WriteString("Critical resource usage detected\n")
		for _, ev := range b.Events {
			fmt.Fprintf(&sb, "\n%s: %.1f%% (threshold %.0f%%)\n", ResourceName(ev.Resource), ev.Value, ev.Threshold)
			for _, h := range Hints(ev.Resource) {
				fmt.Fprintf(&sb, "  - %s\n", h)
			}
		}
	case BatchResolved:
		sb.WriteString("Resource usage back to normal\n")
		for _, ev := range b.Events {
			fmt.Fprintf(&sb, "\n%s: %.1f%%\n", ResourceName(ev.Resource), ev.Value)
		}
	case BatchStopped:
		sb.WriteString("Monitoring stopped\n")
		if b.Reason != "" {
			fmt.Fprintf(&sb, "\n%s\n", b.Reason)
		}
		sb.WriteString("\nStart monitoring again once the host is reachable.\n")
	}

	return sb.String()
}
