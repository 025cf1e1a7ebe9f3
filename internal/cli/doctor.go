package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/doctor"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/ui"
	"github.com/spf13/cobra"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config, SSH and target issues",
	Long: `Run diagnostic checks to find problems before a watch session does.

Checks:
  - Config file validity and configured targets
  - SSH agent, key files and known_hosts
  - Each target: connection, platform detection and every metric command

Examples:
  hostwatch doctor
  hostwatch doctor --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		machineMode = doctorJSON
		return doctorCommand(cmd.Context(), cmd.OutOrStdout(), doctorJSON)
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	AllClear bool `json:"all_clear"`
}

func doctorCommand(ctx context.Context, out io.Writer, jsonOut bool) error {
	checks := collectChecks()
	results := doctor.RunAllParallel(ctx, checks)

	if jsonOut {
		if err := WriteJSONSuccess(out, buildDoctorOutput(checks, results)); err != nil {
			return err
		}
	} else {
		renderDoctor(out, checks, results)
	}

	if doctor.HasFailures(results) {
		return errors.New(errors.ErrConfig,
			doctor.Summary(results),
			"Fix the failing checks above, then run 'hostwatch doctor' again.")
	}
	return nil
}

// collectChecks gathers every check the current config allows. Load errors
// are reported by the config checks rather than aborting the run.
func collectChecks() []doctor.Check {
	path, _ := config.Find(cfgFile)
	cfg, _, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		cfg = nil
	}

	checks := doctor.NewConfigChecks(path, cfg)
	checks = append(checks, doctor.NewSSHChecks(cfg)...)
	if cfg != nil && config.Validate(cfg) == nil {
		checks = append(checks, doctor.NewTargetChecks(cfg, newDialer(cfg.DialOptions()))...)
	}
	return checks
}

func buildDoctorOutput(checks []doctor.Check, results []doctor.CheckResult) DoctorOutput {
	grouped := groupResults(checks, results)

	output := DoctorOutput{Categories: make([]CategoryOutput, 0, len(grouped))}
	for _, cat := range doctor.Categories {
		if rs, ok := grouped[cat]; ok {
			output.Categories = append(output.Categories, CategoryOutput{Name: cat, Results: rs})
		}
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		AllClear: !doctor.HasIssues(results),
	}
	return output
}

func groupResults(checks []doctor.Check, results []doctor.CheckResult) map[string][]doctor.CheckResult {
	grouped := make(map[string][]doctor.CheckResult)
	for i, check := range checks {
		grouped[check.Category()] = append(grouped[check.Category()], results[i])
	}
	return grouped
}

func renderDoctor(out io.Writer, checks []doctor.Check, results []doctor.CheckResult) {
	header := ui.HeaderStyle()

	fmt.Fprintln(out)
	fmt.Fprintln(out, header.Render("hostwatch Diagnostic Report"))
	fmt.Fprintln(out)

	grouped := groupResults(checks, results)
	for _, cat := range doctor.Categories {
		rs, ok := grouped[cat]
		if !ok {
			continue
		}
		fmt.Fprintln(out, header.Render(cat))
		for _, r := range rs {
			renderCheckResult(out, r)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, strings.Repeat("━", 60))
	fmt.Fprintln(out)
	if doctor.HasIssues(results) {
		fmt.Fprintf(out, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), doctor.Summary(results))
	} else {
		fmt.Fprintf(out, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
	}
	fmt.Fprintln(out)
}

func renderCheckResult(out io.Writer, r doctor.CheckResult) {
	symbol := ui.SuccessStyle().Render(ui.SymbolComplete)
	switch r.Status {
	case doctor.StatusWarn:
		symbol = ui.WarningStyle().Render(ui.SymbolWarning)
	case doctor.StatusFail:
		symbol = ui.ErrorStyle().Render(ui.SymbolFail)
	}

	fmt.Fprintf(out, "  %s %s\n", symbol, r.Message)
	if r.Suggestion != "" && r.Status != doctor.StatusPass {
		for _, line := range strings.Split(r.Suggestion, "\n") {
			fmt.Fprintf(out, "    %s\n", ui.MutedStyle().Render(line))
		}
	}
}
