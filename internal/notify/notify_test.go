package notify

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var criticalBatch = monitor.Batch{
	Kind: monitor.BatchCritical,
	Events: []monitor.AlertEvent{
		monitor.Raised(monitor.ResourceCPU, 95, 90),
		monitor.Raised(monitor.ResourceDisk, 97.5, 90),
	},
}

func TestConsoleRendersBatches(t *testing.T) {
	ui.DisableColors()
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, c.Notify(ctx, 42, criticalBatch))
	out := buf.String()
	assert.Contains(t, out, "09:30:00")
	assert.Contains(t, out, "Critical resource usage")
	assert.Contains(t, out, "user 42")
	assert.Contains(t, out, "CPU load 95.0% (threshold 90%)")
	assert.Contains(t, out, "Disk usage 97.5%")
	assert.Contains(t, out, "du -h")

	buf.Reset()
	require.NoError(t, c.Notify(ctx, 42, monitor.Batch{
		Kind:   monitor.BatchResolved,
		Events: []monitor.AlertEvent{monitor.Resolved(monitor.ResourceRAM, 41)},
	}))
	assert.Contains(t, buf.String(), "Back to normal")
	assert.Contains(t, buf.String(), "Memory usage 41.0%")

	buf.Reset()
	require.NoError(t, c.Notify(ctx, 42, monitor.Batch{Kind: monitor.BatchStopped, Reason: "host down"}))
	assert.Contains(t, buf.String(), "Monitoring stopped")
	assert.Contains(t, buf.String(), "host down")
}

func TestPlainConsoleWritesFormattedBatch(t *testing.T) {
	var buf bytes.Buffer
	c := NewPlainConsole(&buf)
	c.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

	require.NoError(t, c.Notify(context.Background(), 42, criticalBatch))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[2024-03-01T09:30:00Z] user 42: Critical resource usage detected"))
	assert.Contains(t, out, "CPU load: 95.0% (threshold 90%)")
	assert.Contains(t, out, "Disk usage: 97.5% (threshold 90%)")
	assert.NotContains(t, out, "\x1b[", "no styling")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, stderrors.New("closed pipe") }

func TestConsoleWriteError(t *testing.T) {
	err := NewConsole(failingWriter{}).Notify(context.Background(), 1, criticalBatch)
	assert.Error(t, err)
}

// fakeSender records messages; the first `failures` sends fail.
type fakeSender struct {
	mu       sync.Mutex
	failures int
	sent     []tgbotapi.MessageConfig
	calls    int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return tgbotapi.Message{}, stderrors.New("bad gateway")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func newTestTelegram(sender *fakeSender) *Telegram {
	tg := NewTelegramWithSender(sender, nil)
	tg.backoff = time.Millisecond
	return tg
}

func TestTelegramSendsToUserChat(t *testing.T) {
	sender := &fakeSender{}
	tg := newTestTelegram(sender)

	require.NoError(t, tg.Notify(context.Background(), 123456, criticalBatch))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, int64(123456), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	assert.Contains(t, msg.Text, "*CPU load:* `95.0%`")
}

func TestTelegramRetries(t *testing.T) {
	sender := &fakeSender{failures: 2}
	tg := newTestTelegram(sender)

	require.NoError(t, tg.Notify(context.Background(), 1, criticalBatch))
	assert.Equal(t, 3, sender.calls)
	assert.Len(t, sender.sent, 1)
}

func TestTelegramGivesUp(t *testing.T) {
	sender := &fakeSender{failures: 10}
	tg := newTestTelegram(sender)

	err := tg.Notify(context.Background(), 1, criticalBatch)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotify))
	assert.Equal(t, DefaultTelegramAttempts, sender.calls)
}

func TestTelegramStopsOnCancel(t *testing.T) {
	sender := &fakeSender{failures: 10}
	tg := newTestTelegram(sender)
	tg.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tg.Notify(ctx, 1, criticalBatch)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotify))
	assert.Equal(t, 1, sender.calls)
}

func TestNewTelegramRequiresToken(t *testing.T) {
	_, err := NewTelegram("  ", nil)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFormatTelegram(t *testing.T) {
	critical := FormatTelegram(criticalBatch)
	assert.True(t, strings.HasPrefix(critical, "⚠️"))
	assert.Equal(t, 2, strings.Count(critical, "_What to try:_"))

	resolved := FormatTelegram(monitor.Batch{
		Kind:   monitor.BatchResolved,
		Events: []monitor.AlertEvent{monitor.Resolved(monitor.ResourceCPU, 12)},
	})
	assert.Contains(t, resolved, "Back to normal")
	assert.Contains(t, resolved, "`12.0%`")

	stopped := FormatTelegram(monitor.Batch{Kind: monitor.BatchStopped, Reason: "dial `tcp` failed"})
	assert.Contains(t, stopped, "`dial 'tcp' failed`")
}

func TestMultiFansOut(t *testing.T) {
	var got []string
	ok := monitor.NotifierFunc(func(_ context.Context, _ monitor.UserID, b monitor.Batch) error {
		got = append(got, "ok:"+b.Kind.String())
		return nil
	})
	bad := monitor.NotifierFunc(func(context.Context, monitor.UserID, monitor.Batch) error {
		got = append(got, "bad")
		return stderrors.New("boom")
	})

	err := Multi{bad, ok}.Notify(context.Background(), 1, monitor.Batch{Kind: monitor.BatchResolved})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"bad", "ok:resolved"}, got)

	assert.NoError(t, Multi{}.Notify(context.Background(), 1, monitor.Batch{}))
}
