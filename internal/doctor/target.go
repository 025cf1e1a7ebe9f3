package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
)

// TargetCheck connects to one target, detects its platform and runs every
// metric command once, reporting which ones produce a usable percentage.
type TargetCheck struct {
	UserID         monitor.UserID
	Creds          sshutil.Credentials
	Dial           monitor.DialFunc
	DialTimeout    time.Duration
	CommandTimeout time.Duration
}

func (c *TargetCheck) Name() string     { return fmt.Sprintf("target_%d", c.UserID) }
func (c *TargetCheck) Category() string { return "TARGETS" }

func (c *TargetCheck) Run(ctx context.Context) CheckResult {
	label := fmt.Sprintf("user %d (%s)", c.UserID, c.Creds.String())

	dialCtx, cancel := context.WithTimeout(ctx, c.DialTimeout)
	start := time.Now()
	exec, err := c.Dial(dialCtx, c.Creds)
	latency := time.Since(start)
	cancel()
	if err != nil {
		reason := Classify(err)
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s", label, reason),
			Suggestion: reason.Suggestion(),
		}
	}
	defer exec.Close()

	platform := monitor.PlatformUnknown
	if out, err := c.run(ctx, exec, monitor.PlatformDetectCommand); err == nil {
		platform = monitor.ParsePlatform(out)
	}
	commands := monitor.CommandSetFor(platform)

	var readings, broken []string
	for _, r := range monitor.Resources {
		out, err := c.run(ctx, exec, commands.Command(r))
		if err == nil {
			var v float64
			if v, err = monitor.ParsePercent(out); err == nil {
				readings = append(readings, fmt.Sprintf("%s %.0f%%", r, v))
				continue
			}
		}
		broken = append(broken, fmt.Sprintf("%s (%s)", r, errors.Summary(err)))
	}

	detail := fmt.Sprintf("%s, %s, %s", platform, strings.Join(readings, " "), latency.Round(time.Millisecond))
	switch {
	case len(broken) == len(monitor.Resources):
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: no metric command works: %s", label, strings.Join(broken, "; ")),
			Suggestion: "Make sure vmstat, free and df are installed on Linux targets",
		}
	case len(broken) > 0:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s: %s; failing: %s", label, detail, strings.Join(broken, "; ")),
			Suggestion: "Failing metrics read as 0% and never alert",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: %s", label, detail),
	}
}

func (c *TargetCheck) run(ctx context.Context, exec sshutil.Executor, cmd string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, c.CommandTimeout)
	defer cancel()
	return exec.Run(cmdCtx, cmd)
}

// NewTargetChecks creates one TargetCheck per configured target, ordered by user id.
func NewTargetChecks(cfg *config.Config, dial monitor.DialFunc) []Check {
	ids, err := cfg.UserIDs()
	if err != nil {
		return nil
	}

	settings := cfg.Settings()
	checks := make([]Check, 0, len(ids))
	for _, id := range ids {
		creds, _ := cfg.Target(id)
		checks = append(checks, &TargetCheck{
			UserID:         id,
			Creds:          creds,
			Dial:           dial,
			DialTimeout:    settings.DialTimeout,
			CommandTimeout: settings.CommandTimeout,
		})
	}
	return checks
}
