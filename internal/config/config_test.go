package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
version: 1
monitor:
  thresholds:
    cpu: 85
  base_interval: 10m
  min_interval: 30s
  alert_cooldown: 2h
ssh:
  probe_timeout: 3s
  strict_host_key_checking: false
targets:
  "42":
    host: web-1.example.com
    user: deploy
    password: ${HW_TEST_PASSWORD}
  "7":
    host: db-1
    key_file: ~/.ssh/id_db
notify:
  telegram:
    token: abc123
`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, 90.0, cfg.Monitor.Thresholds.CPU)
	assert.Equal(t, 5*time.Minute, cfg.Monitor.BaseInterval)
	assert.Equal(t, time.Minute, cfg.Monitor.MinInterval)
	assert.Equal(t, 30*time.Second, cfg.Monitor.CacheTTL)
	assert.Equal(t, 3, cfg.Monitor.FalsePositiveThreshold)
	assert.Equal(t, time.Hour, cfg.Monitor.AlertCooldown)
	assert.Equal(t, 40.0, cfg.Monitor.SpikeRejectionDelta)
	assert.Equal(t, 5*time.Second, cfg.SSH.ConnectTimeout)
	assert.True(t, cfg.SSH.StrictHostKeyChecking)
	assert.True(t, cfg.Notify.Console)
	assert.NoError(t, Validate(cfg))
}

func TestLoad(t *testing.T) {
	t.Setenv("HW_TEST_PASSWORD", "hunter2")
	path := writeConfig(t, t.TempDir(), "hostwatch.yaml", sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 85.0, cfg.Monitor.Thresholds.CPU)
	assert.Equal(t, 90.0, cfg.Monitor.Thresholds.RAM, "unset keys keep defaults")
	assert.Equal(t, 10*time.Minute, cfg.Monitor.BaseInterval)
	assert.Equal(t, 30*time.Second, cfg.Monitor.MinInterval)
	assert.Equal(t, 2*time.Hour, cfg.Monitor.AlertCooldown)
	assert.Equal(t, 3*time.Second, cfg.SSH.ProbeTimeout)
	assert.False(t, cfg.SSH.StrictHostKeyChecking)
	assert.Equal(t, "abc123", cfg.Notify.Telegram.Token)

	require.Len(t, cfg.Targets, 2)
	web, ok := cfg.Target(42)
	require.True(t, ok)
	assert.Equal(t, "web-1.example.com", web.Host)
	assert.Equal(t, "deploy", web.User)
	assert.Equal(t, "hunter2", web.Password)

	db, ok := cfg.Target(7)
	require.True(t, ok)
	assert.NotContains(t, db.KeyFile, "~")
	assert.True(t, filepath.IsAbs(db.KeyFile))

	ids, err := cfg.UserIDs()
	require.NoError(t, err)
	assert.Equal(t, []monitor.UserID{7, 42}, ids)

	assert.NoError(t, Validate(cfg))
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "hostwatch.yaml", sampleConfig)
	t.Setenv("HOSTWATCH_MONITOR_BASE_INTERVAL", "20m")
	t.Setenv("HOSTWATCH_MONITOR_THRESHOLDS_DISK", "70")
	t.Setenv("HOSTWATCH_NOTIFY_CONSOLE", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, cfg.Monitor.BaseInterval)
	assert.Equal(t, 70.0, cfg.Monitor.Thresholds.Disk)
	assert.False(t, cfg.Notify.Console)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	bad := writeConfig(t, t.TempDir(), "hostwatch.yaml", "monitor: [unclosed")
	_, err = Load(bad)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	wrongType := writeConfig(t, t.TempDir(), "hostwatch.yaml", "monitor:\n  base_interval: soon\n")
	_, err = Load(wrongType)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFind(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, work)

	path, err := Find("")
	require.NoError(t, err)
	assert.Empty(t, path)

	global := writeConfig(t, home, filepath.Join(GlobalConfigDir, GlobalConfigFile), "version: 1\n")
	path, err = Find("")
	require.NoError(t, err)
	assert.Equal(t, global, path)

	local := writeConfig(t, work, ConfigFileName, "version: 1\n")
	path, err = Find("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(local), filepath.Base(path))

	explicit := writeConfig(t, t.TempDir(), "custom.yaml", "version: 1\n")
	path, err = Find(explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, path)

	_, err = Find(filepath.Join(work, "nope.yaml"))
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	t.Setenv("HOSTWATCH_MONITOR_MIN_INTERVAL", "45s")

	cfg, path, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, 45*time.Second, cfg.Monitor.MinInterval)
	assert.Empty(t, cfg.Targets)
}

func TestSettingsAndDialOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Monitor.Thresholds.RAM = 80
	cfg.SSH.StrictHostKeyChecking = false
	cfg.SSH.KnownHosts = "~/known"

	s := cfg.Settings()
	assert.Equal(t, 80.0, s.Thresholds.RAM)
	assert.Equal(t, 10*time.Second, s.DialTimeout)
	assert.Equal(t, monitor.DefaultCommandTimeout, s.CommandTimeout)

	opts := cfg.DialOptions()
	assert.False(t, opts.StrictHostKeyChecking)
	assert.Equal(t, 5*time.Second, opts.HandshakeTimeout)
	assert.True(t, filepath.IsAbs(opts.KnownHostsPath))
}

func TestUserIDsRejectsNonNumericKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Targets["alice"] = sshutil.Credentials{Host: "h"}

	_, err := cfg.UserIDs()
	assert.Error(t, err)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("HW_SECRET", "s3cret")

	assert.Equal(t, "s3cret", ExpandEnv("${HW_SECRET}"))
	assert.Equal(t, "pre-s3cret-post", ExpandEnv("pre-${HW_SECRET}-post"))
	assert.Equal(t, "", ExpandEnv("${HW_DEFINITELY_UNSET}"))
	assert.Equal(t, "pa$$word", ExpandEnv("pa$$word"))
	assert.Equal(t, "$HW_SECRET", ExpandEnv("$HW_SECRET"))
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandTilde("~"))
	assert.Equal(t, filepath.Join(home, ".ssh", "id"), ExpandTilde("~/.ssh/id"))
	assert.Equal(t, "/abs/path", ExpandTilde("/abs/path"))
	assert.Equal(t, "~other/x", ExpandTilde("~other/x"))
	assert.Equal(t, "", ExpandTilde(""))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
