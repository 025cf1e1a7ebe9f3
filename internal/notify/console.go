// Package notify delivers monitoring batches to people: the local console,
// Telegram chats, or several sinks at once.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

// Console prints batches to a writer, one block per batch. Plain consoles
// write unstyled text suited to log files.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	plain bool
	now   func() time.Time
}

var _ monitor.Notifier = (*Console)(nil)

// NewConsole creates a console notifier writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out, now: time.Now}
}

// NewPlainConsole creates a console notifier that writes plain text.
func NewPlainConsole(out io.Writer) *Console {
	return &Console{out: out, plain: true, now: time.Now}
}

// Notify writes the batch. Writes are serialized so blocks from different
// users never interleave.
func (c *Console) Notify(_ context.Context, userID monitor.UserID, batch monitor.Batch) error {
	block := c.render(userID, batch)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.out, block)
	return err
}

func (c *Console) render(userID monitor.UserID, batch monitor.Batch) string {
	if c.plain {
		return fmt.Sprintf("[%s] user %d: %s\n", c.now().Format(time.RFC3339), userID, monitor.FormatBatch(batch))
	}

	var sb strings.Builder

	stamp := ui.MutedStyle().Render(c.now().Format("15:04:05"))
	user := ui.MutedStyle().Render(fmt.Sprintf("user %d", userID))

	switch batch.Kind {
	case monitor.BatchCritical:
		title := ui.ErrorStyle().Bold(true).Render(ui.SymbolWarning + " Critical resource usage")
		fmt.Fprintf(&sb, "%s %s %s\n", stamp, title, user)
		for _, ev := range batch.Events {
			line := fmt.Sprintf("%s %.1f%% (threshold %.0f%%)", monitor.ResourceName(ev.Resource), ev.Value, ev.Threshold)
			sb.WriteString("  " + ui.ErrorStyle().Render(ui.SymbolFail) + " " + line + "\n")
			for _, h := range monitor.Hints(ev.Resource) {
				sb.WriteString("      " + ui.MutedStyle().Render(h) + "\n")
			}
		}
	case monitor.BatchResolved:
		title := ui.SuccessStyle().Bold(true).Render(ui.SymbolSuccess + " Back to normal")
		fmt.Fprintf(&sb, "%s %s %s\n", stamp, title, user)
		for _, ev := range batch.Events {
			line := fmt.Sprintf("%s %.1f%%", monitor.ResourceName(ev.Resource), ev.Value)
			sb.WriteString("  " + ui.SuccessStyle().Render(ui.SymbolComplete) + " " + line + "\n")
		}
	case monitor.BatchStopped:
		title := ui.WarningStyle().Bold(true).Render(ui.SymbolFail + " Monitoring stopped")
		fmt.Fprintf(&sb, "%s %s %s\n", stamp, title, user)
		if batch.Reason != "" {
			sb.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(batch.Reason) + "\n")
		}
	}

	return sb.String()
}
