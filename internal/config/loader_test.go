package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
	assert.Equal(t, "file", cfg.History.Backend)
}

func TestLoadWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrscan.yaml")
	yaml := `
log_level: debug
detector:
  formats: [qr_code, ean_13]
  weighting: studio
scan:
  dedup: session
  interval_ms: 100
history:
  max: 30
  policy: append
  backend: memory
media:
  camera: 1
  devices:
    - id: desk
      kind: gif
      path: /tmp/desk.gif
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"qr_code", "ean_13"}, cfg.Detector.Formats)
	assert.Equal(t, "session", cfg.Scan.Dedup)
	assert.Equal(t, 100, cfg.Scan.IntervalMS)
	assert.Equal(t, 30, cfg.History.Max)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Media.Camera)
	require.Len(t, cfg.Media.Devices, 1)
	assert.Equal(t, "desk", cfg.Media.Devices[0].ID)
	assert.Equal(t, "gif", cfg.Media.Devices[0].Kind)
	// Untouched keys keep defaults.
	assert.True(t, cfg.Scan.StopOnDetect)
}

func TestLoadWithFile_Errors(t *testing.T) {
	_, err := NewLoaderWith(viper.New()).LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "does not exist")

	bad := filepath.Join(t.TempDir(), "qrscan.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("scan:\n  dedup: forever\n"), 0o600))
	_, err = NewLoaderWith(viper.New()).LoadWithFile(bad)
	assert.ErrorContains(t, err, "validation failed")

	cfg, err := NewLoaderWith(viper.New()).LoadWithFileWithoutValidation(bad)
	require.NoError(t, err)
	assert.Equal(t, "forever", cfg.Scan.Dedup)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QRSCAN_SERVER_PORT", "7070")
	t.Setenv("QRSCAN_HISTORY_MAX", "5")
	t.Setenv("QRSCAN_SCAN_STOP_ON_DETECT", "false")

	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 5, cfg.History.Max)
	assert.False(t, cfg.Scan.StopOnDetect)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrscan.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().History.Max, cfg.History.Max)
	assert.Equal(t, DefaultConfig().Overlay.EngineColor, cfg.Overlay.EngineColor)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/xdg", "qrscan"))
	assert.Equal(t, "/etc/qrscan", paths[len(paths)-1])
}
