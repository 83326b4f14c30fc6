//nolint:lll
package config

import "github.com/MeKo-Tech/qrscan/internal/media"

// Config is the complete configuration of qrscan. It is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file" json:"log_file"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`
	Scan     ScanConfig     `mapstructure:"scan" yaml:"scan" json:"scan"`
	Overlay  OverlayConfig  `mapstructure:"overlay" yaml:"overlay" json:"overlay"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history" json:"history"`
	Media    MediaConfig    `mapstructure:"media" yaml:"media" json:"media"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// DetectorConfig selects what the decoding engine searches for.
type DetectorConfig struct {
	Formats     []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	TryHarder   bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	Multi       bool     `mapstructure:"multi" yaml:"multi" json:"multi"`
	ISBN        bool     `mapstructure:"isbn" yaml:"isbn" json:"isbn"`
	Weighting   string   `mapstructure:"weighting" yaml:"weighting" json:"weighting"`
	HeapLimitMB int      `mapstructure:"heap_limit_mb" yaml:"heap_limit_mb" json:"heap_limit_mb"`
	Native      bool     `mapstructure:"native" yaml:"native" json:"native"`
}

// ScanConfig controls detect cycles.
type ScanConfig struct {
	IntervalMS   int    `mapstructure:"interval_ms" yaml:"interval_ms" json:"interval_ms"`
	Dedup        string `mapstructure:"dedup" yaml:"dedup" json:"dedup"`
	StopOnDetect bool   `mapstructure:"stop_on_detect" yaml:"stop_on_detect" json:"stop_on_detect"`
	AutoStart    bool   `mapstructure:"auto_start" yaml:"auto_start" json:"auto_start"`
}

// OverlayConfig controls detection markers.
type OverlayConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Style       string  `mapstructure:"style" yaml:"style" json:"style"`
	Padding     int     `mapstructure:"padding" yaml:"padding" json:"padding"`
	Alpha       float64 `mapstructure:"alpha" yaml:"alpha" json:"alpha"`
	EngineColor string  `mapstructure:"engine_color" yaml:"engine_color" json:"engine_color"`
	NativeColor string  `mapstructure:"native_color" yaml:"native_color" json:"native_color"`
	Labels      bool    `mapstructure:"labels" yaml:"labels" json:"labels"`
}

// HistoryConfig controls the history list and the preference backend it is
// stored in.
type HistoryConfig struct {
	Max           int    `mapstructure:"max" yaml:"max" json:"max"`
	Save          bool   `mapstructure:"save" yaml:"save" json:"save"`
	Policy        string `mapstructure:"policy" yaml:"policy" json:"policy"`
	Backend       string `mapstructure:"backend" yaml:"backend" json:"backend"`
	Path          string `mapstructure:"path" yaml:"path" json:"path"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password" json:"-"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db" json:"redis_db"`
	RedisKey      string `mapstructure:"redis_key" yaml:"redis_key" json:"redis_key"`
}

// MediaConfig lists video inputs and limits for still images.
type MediaConfig struct {
	Camera          int            `mapstructure:"camera" yaml:"camera" json:"camera"`
	Devices         []media.Device `mapstructure:"devices" yaml:"devices" json:"devices"`
	FetchTimeoutSec int            `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec" json:"fetch_timeout_sec"`
	MaxImageMB      int            `mapstructure:"max_image_mb" yaml:"max_image_mb" json:"max_image_mb"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	File       string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string  `mapstructure:"host" yaml:"host" json:"host"`
	Port            int     `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string  `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int     `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int     `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int     `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	OverlayEnabled  bool    `mapstructure:"overlay_enabled" yaml:"overlay_enabled" json:"overlay_enabled"`
	PoolSize        int     `mapstructure:"pool_size" yaml:"pool_size" json:"pool_size"`
	RateLimitRPS    float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst" json:"rate_limit_burst"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
