//nolint:lll
package config

// Config represents the complete configuration for qrscan. It covers every
// command (image, batch, pdf, watch, serve) and is loaded from configuration
// files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner" json:"scanner"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// ScannerConfig contains detector limits and scan retries.
type ScannerConfig struct {
	MaxRegions       int     `mapstructure:"max_regions" yaml:"max_regions" json:"max_regions"`
	MaxCapstones     int     `mapstructure:"max_capstones" yaml:"max_capstones" json:"max_capstones"`
	MaxGrids         int     `mapstructure:"max_grids" yaml:"max_grids" json:"max_grids"`
	GroupingScoreMax float64 `mapstructure:"grouping_score_max" yaml:"grouping_score_max" json:"grouping_score_max"`
	ThresholdDivisor int     `mapstructure:"threshold_divisor" yaml:"threshold_divisor" json:"threshold_divisor"`
	ThresholdBias    int     `mapstructure:"threshold_bias" yaml:"threshold_bias" json:"threshold_bias"`
	JigglePasses     int     `mapstructure:"jiggle_passes" yaml:"jiggle_passes" json:"jiggle_passes"`

	TryInverted  bool   `mapstructure:"try_inverted" yaml:"try_inverted" json:"try_inverted"`
	TryMirrored  bool   `mapstructure:"try_mirrored" yaml:"try_mirrored" json:"try_mirrored"`
	MaxDimension int    `mapstructure:"max_dimension" yaml:"max_dimension" json:"max_dimension"`
	Workers      int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	MaxPixels    int    `mapstructure:"max_pixels" yaml:"max_pixels" json:"max_pixels"`
	DebugDir     string `mapstructure:"debug_dir" yaml:"debug_dir,omitempty" json:"debug_dir,omitempty"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	File       string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir string `mapstructure:"overlay_dir" yaml:"overlay_dir,omitempty" json:"overlay_dir,omitempty"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MetricsEnabled  bool            `mapstructure:"metrics_enabled" yaml:"metrics_enabled" json:"metrics_enabled"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig bounds per-client request rates. Zero disables a limit.
type RateLimitConfig struct {
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}
