package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "qrscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "QRSCAN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader uses the global viper instance so cobra flag bindings apply.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWith wraps a specific viper instance.
func NewLoaderWith(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads the first config file found on the search path, applies
// environment overrides and defaults, and validates the result.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without the validation step.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation loads a specific file without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &config, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so environment variables can override
// values that no config file mentions.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("log_file", d.LogFile)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("detector.formats", d.Detector.Formats)
	l.v.SetDefault("detector.try_harder", d.Detector.TryHarder)
	l.v.SetDefault("detector.multi", d.Detector.Multi)
	l.v.SetDefault("detector.isbn", d.Detector.ISBN)
	l.v.SetDefault("detector.weighting", d.Detector.Weighting)
	l.v.SetDefault("detector.heap_limit_mb", d.Detector.HeapLimitMB)
	l.v.SetDefault("detector.native", d.Detector.Native)

	l.v.SetDefault("scan.interval_ms", d.Scan.IntervalMS)
	l.v.SetDefault("scan.dedup", d.Scan.Dedup)
	l.v.SetDefault("scan.stop_on_detect", d.Scan.StopOnDetect)
	l.v.SetDefault("scan.auto_start", d.Scan.AutoStart)

	l.v.SetDefault("overlay.enabled", d.Overlay.Enabled)
	l.v.SetDefault("overlay.style", d.Overlay.Style)
	l.v.SetDefault("overlay.padding", d.Overlay.Padding)
	l.v.SetDefault("overlay.alpha", d.Overlay.Alpha)
	l.v.SetDefault("overlay.engine_color", d.Overlay.EngineColor)
	l.v.SetDefault("overlay.native_color", d.Overlay.NativeColor)
	l.v.SetDefault("overlay.labels", d.Overlay.Labels)

	l.v.SetDefault("history.max", d.History.Max)
	l.v.SetDefault("history.save", d.History.Save)
	l.v.SetDefault("history.policy", d.History.Policy)
	l.v.SetDefault("history.backend", d.History.Backend)
	l.v.SetDefault("history.path", d.History.Path)
	l.v.SetDefault("history.redis_addr", d.History.RedisAddr)
	l.v.SetDefault("history.redis_password", d.History.RedisPassword)
	l.v.SetDefault("history.redis_db", d.History.RedisDB)
	l.v.SetDefault("history.redis_key", d.History.RedisKey)

	l.v.SetDefault("media.camera", d.Media.Camera)
	l.v.SetDefault("media.fetch_timeout_sec", d.Media.FetchTimeoutSec)
	l.v.SetDefault("media.max_image_mb", d.Media.MaxImageMB)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)
	l.v.SetDefault("output.overlay_dir", d.Output.OverlayDir)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.overlay_enabled", d.Server.OverlayEnabled)
	l.v.SetDefault("server.pool_size", d.Server.PoolSize)
	l.v.SetDefault("server.rate_limit_rps", d.Server.RateLimitRPS)
	l.v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)

	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.continue_on_error", d.Batch.ContinueOnError)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// GenerateDefaultConfigFile writes the defaults as YAML.
func GenerateDefaultConfigFile(filename string) error {
	l := NewLoaderWith(viper.New())
	l.setDefaults()
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	return l.v.WriteConfigAs(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "qrscan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "qrscan"))
	}
	return append(paths, "/etc/qrscan")
}

// PrintConfigInfo prints information about configuration loading.
func (l *Loader) PrintConfigInfo() {
	fmt.Printf("Configuration file used: %s\n", l.GetConfigFileUsed())
	fmt.Printf("Configuration search paths: %v\n", GetConfigSearchPaths())
	fmt.Printf("Environment prefix: %s\n", EnvPrefix)
}
