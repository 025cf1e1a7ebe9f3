package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// DefaultTelegramAttempts is how many times a message is tried before giving up.
const DefaultTelegramAttempts = 3

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends batches as chat messages. The user id is the chat id.
type Telegram struct {
	bot      Sender
	log      logger.Logger
	attempts int
	backoff  time.Duration
}

var _ monitor.Notifier = (*Telegram)(nil)

// NewTelegram authenticates with the Bot API using token.
func NewTelegram(token string, log logger.Logger) (*Telegram, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New(errors.ErrConfig,
			"Telegram token is empty",
			"Set notify.telegram.token or HOSTWATCH_NOTIFY_TELEGRAM_TOKEN.")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrNotify,
			"Couldn't log in to Telegram",
			"Check the bot token with @BotFather.")
	}
	if log != nil {
		log.Info("telegram: authorized as @%s", bot.Self.UserName)
	}
	return NewTelegramWithSender(bot, log), nil
}

// NewTelegramWithSender wraps an existing sender.
func NewTelegramWithSender(bot Sender, log logger.Logger) *Telegram {
	if log == nil {
		log = logger.Noop()
	}
	return &Telegram{
		bot:      bot,
		log:      log,
		attempts: DefaultTelegramAttempts,
		backoff:  300 * time.Millisecond,
	}
}

// Notify sends one message for the batch, retrying with a linear backoff.
func (t *Telegram) Notify(ctx context.Context, userID monitor.UserID, batch monitor.Batch) error {
	msg := tgbotapi.NewMessage(int64(userID), FormatTelegram(batch))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	var err error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		if _, err = t.bot.Send(msg); err == nil {
			return nil
		}
		t.log.Debug("telegram: send to %d failed (attempt %d): %v", userID, attempt, err)

		if attempt == t.attempts {
			break
		}
		timer := time.NewTimer(time.Duration(attempt) * t.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.WrapWithCode(ctx.Err(), errors.ErrNotify,
				fmt.Sprintf("Telegram message to %d not sent", userID), "")
		case <-timer.C:
		}
	}

	return errors.WrapWithCode(err, errors.ErrNotify,
		fmt.Sprintf("Telegram message to %d not sent after %d attempts", userID, t.attempts), "")
}

// FormatTelegram renders a batch as legacy Markdown.
func FormatTelegram(batch monitor.Batch) string {
	var sb strings.Builder

	switch batch.Kind {
	case monitor.BatchCritical:
		sb.WriteString("⚠️ *Critical resource usage*\n")
		for _, ev := range batch.Events {
			fmt.Fprintf(&sb, "\n*%s:* `%.1f%%` (threshold `%.0f%%`)\n", monitor.ResourceName(ev.Resource), ev.Value, ev.Threshold)
			sb.WriteString("_What to try:_\n")
			for _, h := range monitor.Hints(ev.Resource) {
				sb.WriteString("• " + h + "\n")
			}
		}
	case monitor.BatchResolved:
		sb.WriteString("✅ *Back to normal*\n")
		for _, ev := range batch.Events {
			fmt.Fprintf(&sb, "\n*%s:* `%.1f%%`", monitor.ResourceName(ev.Resource), ev.Value)
		}
		sb.WriteString("\n")
	case monitor.BatchStopped:
		sb.WriteString("🛑 *Monitoring stopped*\n")
		if batch.Reason != "" {
			fmt.Fprintf(&sb, "\n`%s`\n", strings.ReplaceAll(batch.Reason, "`", "'"))
		}
		sb.WriteString("\nStart monitoring again once the server is reachable.\n")
	}

	return sb.String()
}
