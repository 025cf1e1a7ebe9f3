package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/ui"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
	sshtesting "github.com/rileyhilliard/hostwatch/pkg/sshutil/testing"
	"github.com/stretchr/testify/require"
)

// testConfig uses tiny intervals so watch loops cycle within a test.
const testConfig = `
monitor:
  base_interval: 50ms
  min_interval: 10ms
  cache_ttl: 10ms
targets:
  "42":
    host: web-1.example.com
    user: deploy
    password: secret
  "7":
    host: db-1.example.com
    user: deploy
    key_file: /tmp/id_test
`

func init() {
	ui.DisableColors()
}

// useConfig writes content to a temp file and points --config at it.
func useConfig(t *testing.T, content string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "hostwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	old := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = old })
	return path
}

// useDialer replaces SSH dialing with a mock dialer.
func useDialer(t *testing.T, setup func(*sshtesting.MockClient)) *sshtesting.MockDialer {
	t.Helper()
	d := sshtesting.NewMockDialer(setup)

	old := newDialer
	newDialer = func(sshutil.DialOptions) monitor.DialFunc {
		return func(ctx context.Context, creds sshutil.Credentials) (sshutil.Executor, error) {
			return d.Dial(ctx, creds)
		}
	}
	t.Cleanup(func() { newDialer = old })
	return d
}

// linuxHost scripts a Linux target reporting fixed metric outputs.
func linuxHost(cpu, ram, disk string) func(*sshtesting.MockClient) {
	return func(c *sshtesting.MockClient) {
		c.SetCommandResponse("^vmstat", sshtesting.CommandResponse{Stdout: []byte(cpu)})
		c.SetCommandResponse("^free", sshtesting.CommandResponse{Stdout: []byte(ram)})
		c.SetCommandResponse("^df -P", sshtesting.CommandResponse{Stdout: []byte(disk)})
	}
}

// syncBuffer is a bytes.Buffer that tolerates writes from sample loops.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
