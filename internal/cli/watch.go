package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/notify"
	"github.com/rileyhilliard/hostwatch/internal/ui"
	"github.com/spf13/cobra"
)

var (
	watchUsersFlag  []string
	watchStatusFlag time.Duration
)

// sessionPollInterval is how often watch checks whether any session is left.
var sessionPollInterval = time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor targets until interrupted",
	Long: `Start a monitoring session per target and run until Ctrl+C.

Each session samples CPU, memory and disk usage. The delay between samples
shrinks as load rises (down to monitor.min_interval) and grows back to
monitor.base_interval when the host is idle. A resource must stay critical
for monitor.false_positive_threshold samples in a row before an alert goes
out, and repeated alerts are spaced by monitor.alert_cooldown.

Alerts are printed to the console and, when notify.telegram.token is set,
sent to the user id as a Telegram chat.

Examples:
  hostwatch watch
  hostwatch watch --user 42 --user 7
  hostwatch watch --status 1m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watchCommand(ctx, cmd.OutOrStdout(), watchUsersFlag, watchStatusFlag)
	},
}

func init() {
	watchCmd.Flags().StringSliceVarP(&watchUsersFlag, "user", "u", nil, "only watch these user ids (repeatable)")
	watchCmd.Flags().DurationVar(&watchStatusFlag, "status", 0, "print the session table this often (0 disables)")
	rootCmd.AddCommand(watchCmd)
}

func watchCommand(ctx context.Context, out io.Writer, users []string, statusEvery time.Duration) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ids, err := selectUsers(cfg, users)
	if err != nil {
		return err
	}

	log := newLogger("[watch]")
	notifier, err := buildNotifier(cfg, out, log)
	if err != nil {
		return err
	}

	settings := cfg.Settings()
	sup := monitor.NewSupervisor(monitor.Options{
		Settings: settings,
		Dialer:   newDialer(cfg.DialOptions()),
		Notifier: notifier,
		Logger:   log,
	})
	defer sup.Shutdown()

	started := 0
	for _, id := range ids {
		creds, _ := cfg.Target(id)
		spin := ui.NewSpinner(out, fmt.Sprintf("Connecting to %s (user %d)", creds.String(), id))
		spin.Start()
		if sup.Start(ctx, id, creds) {
			spin.Success()
			started++
		} else {
			spin.Fail()
		}
	}

	if started == 0 {
		return errors.New(errors.ErrConnection,
			"Couldn't start monitoring any target",
			"Run 'hostwatch check --verbose' to see why the connections failed.")
	}

	fmt.Fprintf(out, "\n%s\n\n", ui.HeaderStyle().Render(fmt.Sprintf("Watching %d of %d targets", started, len(ids))))
	fmt.Fprintln(out, renderSessions(sup.Sessions(), time.Now()))

	var status <-chan time.Time
	if statusEvery > 0 {
		ticker := time.NewTicker(statusEvery)
		defer ticker.Stop()
		status = ticker.C
	}
	poll := time.NewTicker(sessionPollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, ui.MutedStyle().Render("Stopping..."))
			return nil
		case <-status:
			fmt.Fprintln(out, renderSessions(sup.Sessions(), time.Now()))
		case <-poll.C:
			if len(sup.Sessions()) == 0 {
				return errors.New(errors.ErrCollection,
					"Every monitoring session has stopped",
					"The targets became unreachable. Run 'hostwatch check' once they are back.")
			}
		}
	}
}

// buildNotifier assembles the sinks enabled in the notify section.
func buildNotifier(cfg *config.Config, out io.Writer, log logger.Logger) (monitor.Notifier, error) {
	var sinks notify.Multi
	if cfg.Notify.Console {
		if ui.IsTerminal(out) {
			sinks = append(sinks, notify.NewConsole(out))
		} else {
			sinks = append(sinks, notify.NewPlainConsole(out))
		}
	}
	if cfg.Notify.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram.Token, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, tg)
	}
	if len(sinks) == 0 {
		log.Warn("no notifier enabled; alerts will only appear in the log")
	}
	return sinks, nil
}

func renderSessions(sessions []monitor.SessionInfo, now time.Time) string {
	rows := make([]ui.SessionRow, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, ui.SessionRow{
			User:     strconv.FormatInt(int64(s.UserID), 10),
			Target:   s.Target,
			Load:     formatLoad(s.LastSample),
			Interval: s.Interval.String(),
			Since:    now.Sub(s.StartedAt).Truncate(time.Second).String(),
		})
	}
	return ui.RenderSessionsTable(rows)
}

func formatLoad(s monitor.Sample) string {
	return fmt.Sprintf("cpu %.0f%%  ram %.0f%%  disk %.0f%%", s.CPU, s.RAM, s.Disk)
}
