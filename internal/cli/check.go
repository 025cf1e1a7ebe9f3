package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/ui"
	"github.com/spf13/cobra"
)

const checkBarWidth = 24

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check [user-id]...",
	Short: "Sample each target once and print the result",
	Long: `Connect to each target, take one CPU, memory and disk sample, and print it.

No alerts are sent and no session is started. With no user ids every
configured target is checked.

Examples:
  hostwatch check
  hostwatch check 42
  hostwatch check --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		machineMode = checkJSON
		return checkCommand(cmd.Context(), cmd.OutOrStdout(), args, checkJSON)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(checkCmd)
}

// checkReport is the machine-readable result for one target.
type checkReport struct {
	UserID       monitor.UserID `json:"user_id"`
	Target       string         `json:"target"`
	CPU          float64        `json:"cpu"`
	RAM          float64        `json:"ram"`
	Disk         float64        `json:"disk"`
	NextInterval string         `json:"next_interval,omitempty"`
	Critical     []string       `json:"critical,omitempty"`
	Error        *JSONError     `json:"error,omitempty"`
}

func checkCommand(ctx context.Context, out io.Writer, args []string, jsonOut bool) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return reportError(out, jsonOut, err, nil)
	}
	ids, err := selectUsers(cfg, args)
	if err != nil {
		return reportError(out, jsonOut, err, nil)
	}

	settings := cfg.Settings()
	sup := monitor.NewSupervisor(monitor.Options{
		Settings: settings,
		Dialer:   newDialer(cfg.DialOptions()),
		Logger:   newLogger("[check]"),
	})
	defer sup.Shutdown()

	reports := make([]checkReport, 0, len(ids))
	failed := 0
	for _, id := range ids {
		creds, _ := cfg.Target(id)
		report := checkReport{UserID: id, Target: creds.String()}

		var spin *ui.Spinner
		if !jsonOut {
			spin = ui.NewSpinner(out, fmt.Sprintf("Checking %s (user %d)", report.Target, id))
			spin.Start()
		}

		res, err := sup.Check(ctx, id, creds)
		if err != nil {
			failed++
			report.Error = ErrorToJSON(err)
			reports = append(reports, report)
			if spin != nil {
				spin.Fail()
				fmt.Fprintln(out, "  "+ui.MutedStyle().Render(errors.Summary(err)))
				fmt.Fprintln(out)
			}
			continue
		}

		report.CPU = res.Sample.CPU
		report.RAM = res.Sample.RAM
		report.Disk = res.Sample.Disk
		report.NextInterval = res.Interval.String()
		for _, r := range res.Critical {
			report.Critical = append(report.Critical, string(r))
		}
		reports = append(reports, report)

		if spin != nil {
			spin.Success()
			fmt.Fprint(out, renderCheck(res, settings.Thresholds))
		}
	}

	if failed > 0 {
		err := errors.New(errors.ErrCollection,
			fmt.Sprintf("%d of %d checks failed", failed, len(ids)),
			"Run with --verbose to see connection details.")
		return reportError(out, jsonOut, err, reports)
	}
	if jsonOut {
		return WriteJSONSuccess(out, reports)
	}
	return nil
}

func renderCheck(res monitor.CheckResult, thresholds monitor.Thresholds) string {
	rows := make([]ui.MetricRow, 0, len(monitor.Resources))
	for _, r := range monitor.Resources {
		rows = append(rows, ui.MetricRow{
			Name:      monitor.ResourceName(r),
			Percent:   res.Sample.Value(r),
			Threshold: thresholds.For(r),
		})
	}

	var b strings.Builder
	b.WriteString(ui.RenderMetrics(rows, checkBarWidth))
	if len(res.Critical) > 0 {
		names := make([]string, len(res.Critical))
		for i, r := range res.Critical {
			names[i] = monitor.ResourceName(r)
		}
		b.WriteString("  " + ui.ErrorStyle().Render("Critical: "+strings.Join(names, ", ")) + "\n")
	}
	b.WriteString("  " + ui.MutedStyle().Render("watch would sample again in "+res.Interval.String()) + "\n\n")
	return b.String()
}

// reportError writes err as a JSON envelope in machine mode, then returns it
// so the exit status reflects the failure.
func reportError(out io.Writer, jsonOut bool, err error, data interface{}) error {
	if jsonOut {
		_ = WriteJSONFromError(out, err, data)
	}
	return err
}
