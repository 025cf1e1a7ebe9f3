package doctor

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// ConfigFileCheck verifies the config file loads and validates.
type ConfigFileCheck struct {
	// Path is the resolved config path; empty means none was found.
	Path string
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return "CONFIG" }

func (c *ConfigFileCheck) Run(context.Context) CheckResult {
	if c.Path == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No config file found, running on defaults",
			Suggestion: "Create one with: hostwatch config init",
		}
	}

	cfg, err := config.Load(c.Path)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s", c.Path, errors.Summary(err)),
			Suggestion: suggestion(err, "Check the file with: hostwatch config validate"),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Config is valid: " + c.Path,
	}
}

// TargetsCheck verifies at least one target is configured.
type TargetsCheck struct {
	Config *config.Config
}

func (c *TargetsCheck) Name() string     { return "targets" }
func (c *TargetsCheck) Category() string { return "CONFIG" }

func (c *TargetsCheck) Run(context.Context) CheckResult {
	n := 0
	if c.Config != nil {
		n = len(c.Config.Targets)
	}
	if n == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "No targets configured",
			Suggestion: "Add hosts under 'targets', keyed by user id",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%d target%s configured", n, pluralize(n)),
	}
}

// NewConfigChecks creates the config checks. cfg may be nil when loading failed.
func NewConfigChecks(path string, cfg *config.Config) []Check {
	return []Check{
		&ConfigFileCheck{Path: path},
		&TargetsCheck{Config: cfg},
	}
}

// suggestion returns the structured error's suggestion, or fallback.
func suggestion(err error, fallback string) string {
	var hwErr *errors.Error
	if stderrors.As(err, &hwErr) && hwErr.Suggestion != "" {
		return hwErr.Suggestion
	}
	return fallback
}
