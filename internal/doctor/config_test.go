package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestConfigFileCheck(t *testing.T) {
	ctx := context.Background()

	r := (&ConfigFileCheck{}).Run(ctx)
	assert.Equal(t, StatusWarn, r.Status)
	assert.Contains(t, r.Suggestion, "hostwatch config init")

	valid := filepath.Join(t.TempDir(), "hostwatch.yaml")
	require.NoError(t, config.WriteDefault(valid, false))
	r = (&ConfigFileCheck{Path: valid}).Run(ctx)
	assert.Equal(t, StatusPass, r.Status, r.Message)

	invalid := writeFile(t, "monitor:\n  min_interval: 10m\n  base_interval: 1m\n", 0o600)
	r = (&ConfigFileCheck{Path: invalid}).Run(ctx)
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "min_interval")
	assert.Contains(t, r.Suggestion, "monitor")
}

func TestTargetsCheck(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, StatusFail, (&TargetsCheck{}).Run(ctx).Status)

	cfg := config.DefaultConfig()
	assert.Equal(t, StatusFail, (&TargetsCheck{Config: cfg}).Run(ctx).Status)

	cfg.Targets["42"] = sshutil.Credentials{Host: "web-1", Password: "pw"}
	r := (&TargetsCheck{Config: cfg}).Run(ctx)
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, "1 target configured", r.Message)
}

func TestKeyFilesCheck(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()

	r := (&KeyFilesCheck{Config: cfg}).Run(ctx)
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, "No key files to check", r.Message)

	private := writeFile(t, "key", 0o600)
	cfg.Targets["1"] = sshutil.Credentials{Host: "a", KeyFile: private}
	cfg.Targets["2"] = sshutil.Credentials{Host: "b", KeyFile: private}
	r = (&KeyFilesCheck{Config: cfg}).Run(ctx)
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, "1 key file OK", r.Message)

	open := writeFile(t, "key", 0o644)
	require.NoError(t, os.Chmod(open, 0o644))
	cfg.Targets["3"] = sshutil.Credentials{Host: "c", KeyFile: open}
	r = (&KeyFilesCheck{Config: cfg}).Run(ctx)
	assert.Equal(t, StatusWarn, r.Status)
	assert.Contains(t, r.Message, open)

	cfg.Targets["4"] = sshutil.Credentials{Host: "d", KeyFile: "/nonexistent/id_test"}
	r = (&KeyFilesCheck{Config: cfg}).Run(ctx)
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "/nonexistent/id_test")
}

func TestKnownHostsCheck(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()

	cfg.SSH.StrictHostKeyChecking = false
	assert.Equal(t, StatusWarn, (&KnownHostsCheck{Config: cfg}).Run(ctx).Status)

	cfg.SSH.StrictHostKeyChecking = true
	cfg.SSH.KnownHosts = filepath.Join(t.TempDir(), "missing")
	r := (&KnownHostsCheck{Config: cfg}).Run(ctx)
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "missing")

	cfg.SSH.KnownHosts = writeFile(t, "", 0o600)
	assert.Equal(t, StatusPass, (&KnownHostsCheck{Config: cfg}).Run(ctx).Status)
}

func TestSSHAgentCheck_NoAgent(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	r := (&SSHAgentCheck{}).Run(context.Background())
	assert.Equal(t, StatusWarn, r.Status)
	assert.Equal(t, "SSH agent not running", r.Message)

	r = (&SSHAgentCheck{Socket: filepath.Join(t.TempDir(), "agent.sock")}).Run(context.Background())
	assert.Equal(t, StatusWarn, r.Status)
	assert.Equal(t, "SSH agent socket not accessible", r.Message)
}

func TestNewChecks(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Len(t, NewConfigChecks("", cfg), 2)
	assert.Len(t, NewSSHChecks(cfg), 3)
}
