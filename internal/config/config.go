package config

import (
	"fmt"
	"image/color"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
	"github.com/MeKo-Tech/qrscan/internal/dedup"
	"github.com/MeKo-Tech/qrscan/internal/engine"
	"github.com/MeKo-Tech/qrscan/internal/history"
	"github.com/MeKo-Tech/qrscan/internal/luma"
	"github.com/MeKo-Tech/qrscan/internal/overlay"
	"github.com/MeKo-Tech/qrscan/internal/prefs"
	"github.com/MeKo-Tech/qrscan/internal/scan"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Detector: DetectorConfig{
			Weighting:   "rec601",
			HeapLimitMB: 256,
			ISBN:        false,
			Native:      false,
		},
		Scan: ScanConfig{
			IntervalMS:   200,
			Dedup:        "frame",
			StopOnDetect: true,
			AutoStart:    false,
		},
		Overlay: OverlayConfig{
			Enabled:     true,
			Style:       "fill",
			Padding:     10,
			Alpha:       0.2,
			EngineColor: "#0000FF",
			NativeColor: "#FF0000",
		},
		History: HistoryConfig{
			Max:      100,
			Save:     true,
			Policy:   "move-to-front",
			Backend:  "file",
			RedisKey: "qrscan:prefs",
		},
		Media: MediaConfig{
			FetchTimeoutSec: 15,
			MaxImageMB:      32,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			OverlayEnabled:  true,
			PoolSize:        4,
			RateLimitRPS:    10,
			RateLimitBurst:  20,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "yaml", "csv"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if _, err := barcode.ParseFormats(c.Detector.Formats); err != nil {
		return fmt.Errorf("invalid detector.formats: %w", err)
	}
	if _, err := luma.ParseWeighting(c.Detector.Weighting); err != nil {
		return fmt.Errorf("invalid detector.weighting: %w", err)
	}
	if _, err := dedup.ParsePolicy(c.Scan.Dedup); err != nil {
		return fmt.Errorf("invalid scan.dedup: %w", err)
	}
	if _, err := overlay.ParseStyle(c.Overlay.Style); err != nil {
		return fmt.Errorf("invalid overlay.style: %w", err)
	}
	if _, err := history.ParsePolicy(c.History.Policy); err != nil {
		return fmt.Errorf("invalid history.policy: %w", err)
	}
	for name, v := range map[string]string{"overlay.engine_color": c.Overlay.EngineColor, "overlay.native_color": c.Overlay.NativeColor} {
		if _, err := ParseHexColor(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	validBackends := []string{"memory", "file", "redis"}
	if !slices.Contains(validBackends, c.History.Backend) {
		return fmt.Errorf("invalid history backend: %s (must be one of: %s)", c.History.Backend, strings.Join(validBackends, ", "))
	}
	if c.History.Backend == "redis" && c.History.RedisAddr == "" {
		return fmt.Errorf("history.redis_addr is required for the redis backend")
	}

	if c.Overlay.Alpha < 0 || c.Overlay.Alpha > 1 {
		return fmt.Errorf("invalid overlay.alpha: %.2f (must be between 0.0 and 1.0)", c.Overlay.Alpha)
	}
	if c.Scan.IntervalMS <= 0 {
		return fmt.Errorf("invalid scan interval: %d (must be positive)", c.Scan.IntervalMS)
	}
	if c.History.Max <= 0 {
		return fmt.Errorf("invalid history max: %d (must be positive)", c.History.Max)
	}
	if c.Detector.HeapLimitMB < 0 {
		return fmt.Errorf("invalid heap limit: %d (must not be negative)", c.Detector.HeapLimitMB)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.PoolSize <= 0 {
		return fmt.Errorf("invalid server pool size: %d (must be positive)", c.Server.PoolSize)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return nil
}

// EngineOptions converts the detector section to engine options.
func (c *Config) EngineOptions() ([]engine.ZXingOption, error) {
	formats, err := barcode.ParseFormats(c.Detector.Formats)
	if err != nil {
		return nil, err
	}
	return []engine.ZXingOption{
		engine.WithDecodeOptions(barcode.Options{
			Formats:   formats,
			TryHarder: c.Detector.TryHarder,
			Multi:     c.Detector.Multi,
		}),
		engine.WithISBN(c.Detector.ISBN),
	}, nil
}

// HeapLimit returns the engine heap limit in bytes.
func (c *Config) HeapLimit() int { return c.Detector.HeapLimitMB << 20 }

// Weighting returns the configured luma weighting.
func (c *Config) Weighting() luma.Weighting {
	w, _ := luma.ParseWeighting(c.Detector.Weighting)
	return w
}

// ToScanOptions converts the scan and overlay sections.
func (c *Config) ToScanOptions() (scan.Options, error) {
	opts := scan.DefaultOptions()

	policy, err := dedup.ParsePolicy(c.Scan.Dedup)
	if err != nil {
		return opts, err
	}
	ov, err := c.ToOverlayOptions()
	if err != nil {
		return opts, err
	}
	opts.Dedup = policy
	opts.Overlay = ov
	opts.DrawOverlay = c.Overlay.Enabled
	opts.StopOnDetect = c.Scan.StopOnDetect
	opts.Interval = time.Duration(c.Scan.IntervalMS) * time.Millisecond
	return opts, nil
}

// ToOverlayOptions converts the overlay section.
func (c *Config) ToOverlayOptions() (overlay.Options, error) {
	opts := overlay.DefaultOptions()
	style, err := overlay.ParseStyle(c.Overlay.Style)
	if err != nil {
		return opts, err
	}
	engineColor, err := ParseHexColor(c.Overlay.EngineColor)
	if err != nil {
		return opts, err
	}
	nativeColor, err := ParseHexColor(c.Overlay.NativeColor)
	if err != nil {
		return opts, err
	}
	opts.Style = style
	opts.Padding = c.Overlay.Padding
	opts.Alpha = c.Overlay.Alpha
	opts.EngineColor = engineColor
	opts.NativeColor = nativeColor
	opts.Labels = c.Overlay.Labels
	return opts, nil
}

// ToHistoryOptions converts the history section.
func (c *Config) ToHistoryOptions() (history.Options, error) {
	policy, err := history.ParsePolicy(c.History.Policy)
	if err != nil {
		return history.Options{}, err
	}
	return history.Options{Max: c.History.Max, Save: c.History.Save, Policy: policy}, nil
}

// ToPrefsOptions converts the history section to a preference backend
// selection.
func (c *Config) ToPrefsOptions() prefs.Options {
	return prefs.Options{
		Backend:       c.History.Backend,
		Path:          c.History.Path,
		RedisAddr:     c.History.RedisAddr,
		RedisPassword: c.History.RedisPassword,
		RedisDB:       c.History.RedisDB,
		RedisKey:      c.History.RedisKey,
	}
}

// ParseHexColor parses "#RRGGBB" or "#RGB". An empty string is opaque black.
func ParseHexColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 255}
	if s == "" {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return c, fmt.Errorf("color %q must be #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return c, fmt.Errorf("color %q: %w", s, err)
	}
	c.R = uint8(v >> 16)
	c.G = uint8(v >> 8)
	c.B = uint8(v)
	return c, nil
}
