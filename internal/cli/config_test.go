package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitThenValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "hostwatch.yaml")
	old := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = old })

	var buf bytes.Buffer
	require.NoError(t, configInitCommand(&buf, false, false))
	assert.Contains(t, buf.String(), "Wrote "+path)
	assert.FileExists(t, path)

	buf.Reset()
	require.NoError(t, configValidateCommand(&buf))
	assert.Contains(t, buf.String(), "Config is valid")
	assert.Contains(t, buf.String(), "1 target(s) configured")

	err := configInitCommand(&buf, false, false)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	require.NoError(t, configInitCommand(&buf, true, false))
}

func TestConfigInitGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	old := cfgFile
	cfgFile = ""
	t.Cleanup(func() { cfgFile = old })

	var buf bytes.Buffer
	require.NoError(t, configInitCommand(&buf, false, true))
	assert.FileExists(t, filepath.Join(home, config.GlobalConfigDir, config.GlobalConfigFile))
}

func TestConfigShowMasksSecrets(t *testing.T) {
	path := useConfig(t, testConfig)

	var buf bytes.Buffer
	require.NoError(t, configShowCommand(&buf, false))
	out := buf.String()
	assert.Contains(t, out, "# Source: "+path)
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "base_interval: 50ms")

	buf.Reset()
	require.NoError(t, configShowCommand(&buf, true))
	assert.Contains(t, buf.String(), "password: secret")
}

func TestConfigShowDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	old := cfgFile
	cfgFile = ""
	t.Cleanup(func() { cfgFile = old })

	var buf bytes.Buffer
	require.NoError(t, configShowCommand(&buf, false))
	assert.Contains(t, buf.String(), "# No config file found")
	assert.Contains(t, buf.String(), "base_interval: 5m0s")
}

func TestConfigValidateRejectsBadConfig(t *testing.T) {
	useConfig(t, "monitor:\n  thresholds:\n    cpu: 150\n")

	var buf bytes.Buffer
	err := configValidateCommand(&buf)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "thresholds.cpu")
	assert.Empty(t, buf.String())
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
