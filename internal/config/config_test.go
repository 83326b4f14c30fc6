package config

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/dedup"
	"github.com/MeKo-Tech/qrscan/internal/history"
	"github.com/MeKo-Tech/qrscan/internal/luma"
	"github.com/MeKo-Tech/qrscan/internal/overlay"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 200, cfg.Scan.IntervalMS)
	assert.Equal(t, 100, cfg.History.Max)
	assert.True(t, cfg.History.Save)
	assert.True(t, cfg.Scan.StopOnDetect)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"output format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"formats", func(c *Config) { c.Detector.Formats = []string{"qr_code", "hologram"} }, "detector.formats"},
		{"weighting", func(c *Config) { c.Detector.Weighting = "bt2020" }, "detector.weighting"},
		{"dedup", func(c *Config) { c.Scan.Dedup = "forever" }, "scan.dedup"},
		{"style", func(c *Config) { c.Overlay.Style = "glow" }, "overlay.style"},
		{"history policy", func(c *Config) { c.History.Policy = "lifo" }, "history.policy"},
		{"color", func(c *Config) { c.Overlay.EngineColor = "blue" }, "overlay.engine_color"},
		{"backend", func(c *Config) { c.History.Backend = "sqlite" }, "invalid history backend"},
		{"redis addr", func(c *Config) { c.History.Backend = "redis" }, "redis_addr"},
		{"alpha", func(c *Config) { c.Overlay.Alpha = 1.5 }, "overlay.alpha"},
		{"interval", func(c *Config) { c.Scan.IntervalMS = 0 }, "scan interval"},
		{"history max", func(c *Config) { c.History.Max = 0 }, "history max"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server port"},
		{"pool size", func(c *Config) { c.Server.PoolSize = 0 }, "pool size"},
		{"batch workers", func(c *Config) { c.Batch.Workers = 0 }, "batch workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToScanOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.Dedup = "session"
	cfg.Scan.IntervalMS = 50
	cfg.Scan.StopOnDetect = false
	cfg.Overlay.Style = "stroke"
	cfg.Overlay.EngineColor = "#0f0"
	cfg.Overlay.Labels = true

	opts, err := cfg.ToScanOptions()
	require.NoError(t, err)
	assert.Equal(t, dedup.PerSession, opts.Dedup)
	assert.Equal(t, 50*time.Millisecond, opts.Interval)
	assert.False(t, opts.StopOnDetect)
	assert.True(t, opts.DrawOverlay)
	assert.Equal(t, overlay.StyleStroke, opts.Overlay.Style)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, opts.Overlay.EngineColor)
	assert.True(t, opts.Overlay.Labels)
}

func TestConverters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.History.Policy = "append"
	cfg.History.Max = 30
	cfg.Detector.Weighting = "studio"
	cfg.Detector.Formats = []string{"qr_code", "ean_13"}
	cfg.History.Backend = "redis"
	cfg.History.RedisAddr = "localhost:6379"

	h, err := cfg.ToHistoryOptions()
	require.NoError(t, err)
	assert.Equal(t, history.Options{Max: 30, Save: true, Policy: history.AllowDuplicates}, h)

	assert.Equal(t, luma.Studio, cfg.Weighting())
	assert.Equal(t, 256<<20, cfg.HeapLimit())

	eo, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.Len(t, eo, 2)

	p := cfg.ToPrefsOptions()
	assert.Equal(t, "redis", p.Backend)
	assert.Equal(t, "localhost:6379", p.RedisAddr)
	assert.Equal(t, "qrscan:prefs", p.RedisKey)
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#0000FF", color.RGBA{B: 255, A: 255}, false},
		{"ff0000", color.RGBA{R: 255, A: 255}, false},
		{"#abc", color.RGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 255}, false},
		{"", color.RGBA{A: 255}, false},
		{"#12345", color.RGBA{}, true},
		{"#gggggg", color.RGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
