package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/ui"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
)

// newDialer builds the connection factory for the monitoring core.
// Tests swap it for a mock dialer.
var newDialer = func(opts sshutil.DialOptions) monitor.DialFunc {
	return monitor.SSHDialer(opts)
}

var rootCmd = &cobra.Command{
	Use:   "hostwatch",
	Short: "Watch CPU, memory and disk usage on remote hosts over SSH",
	Long: `hostwatch samples CPU load, memory usage and disk usage on remote hosts
over SSH and raises an alert when a resource stays critical.

Polling speeds up as a host gets busier and backs off when it is idle.
Alerts are debounced, short spikes are ignored, and a recovery message is
sent once the resource drops back below its threshold.

Examples:
  hostwatch config init
  hostwatch check
  hostwatch watch
  hostwatch watch --user 42`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.DisableColors()
		} else {
			ui.ConfigureColors(cmd.OutOrStdout())
		}

		warn := newLogger("[ssh]")
		sshutil.WarningHandler = func(message string) {
			warn.Warn("%s", message)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./hostwatch.yaml, then ~/.config/hostwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Machine-readable commands have already reported the error as JSON.
		if !machineMode {
			fmt.Fprint(os.Stderr, formatError(err))
		}
		os.Exit(1)
	}
}

// formatError renders err the way every command reports failures:
// a red headline, then the cause and suggestion indented beneath it.
func formatError(err error) string {
	var hwErr *errors.Error
	if !stderrors.As(err, &hwErr) {
		return ui.ErrorStyle().Render(ui.SymbolFail+" "+err.Error()) + "\n"
	}

	var b strings.Builder
	b.WriteString(ui.ErrorStyle().Render(ui.SymbolFail+" "+hwErr.Message) + "\n")
	if hwErr.Cause != nil {
		b.WriteString("\n  " + ui.MutedStyle().Render(errors.Summary(hwErr.Cause)) + "\n")
	}
	if hwErr.Suggestion != "" {
		b.WriteString("\n  " + hwErr.Suggestion + "\n")
	}
	return b.String()
}

func newLogger(prefix string) logger.Logger {
	if verbose {
		return logger.NewVerboseLogger(prefix)
	}
	return logger.NewEnvLogger(prefix)
}

// loadConfig resolves, loads and validates the config named by --config.
// The returned path is empty when running on defaults.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
