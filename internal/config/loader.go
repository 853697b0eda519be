package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "qrscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "QRSCAN"

	// DefaultConfigFile is the file written by GenerateDefaultConfigFile
	// when no name is given.
	DefaultConfigFile = ConfigFileName + ".yaml"
)

// Loader handles loading configuration from files, environment variables
// and bound flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so that flags
// bound by the root command take part in resolution.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on a private viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads the configuration from the search paths and validates it.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithFile loads configuration from configFile, or from the search
// paths when configFile is empty, and validates the result.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	cfg, err := l.LoadWithFileWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithFileWithoutValidation is LoadWithFile without the final Validate.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
		if err := l.v.ReadInConfig(); err != nil {
			// Defaults and environment variables are enough without a file.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// ConfigFileUsed returns the path of the config file read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// scanner.max_grids is read from QRSCAN_SCANNER_MAX_GRIDS
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("scanner.max_regions", d.Scanner.MaxRegions)
	l.v.SetDefault("scanner.max_capstones", d.Scanner.MaxCapstones)
	l.v.SetDefault("scanner.max_grids", d.Scanner.MaxGrids)
	l.v.SetDefault("scanner.grouping_score_max", d.Scanner.GroupingScoreMax)
	l.v.SetDefault("scanner.threshold_divisor", d.Scanner.ThresholdDivisor)
	l.v.SetDefault("scanner.threshold_bias", d.Scanner.ThresholdBias)
	l.v.SetDefault("scanner.jiggle_passes", d.Scanner.JigglePasses)
	l.v.SetDefault("scanner.try_inverted", d.Scanner.TryInverted)
	l.v.SetDefault("scanner.try_mirrored", d.Scanner.TryMirrored)
	l.v.SetDefault("scanner.max_dimension", d.Scanner.MaxDimension)
	l.v.SetDefault("scanner.workers", d.Scanner.Workers)
	l.v.SetDefault("scanner.max_pixels", d.Scanner.MaxPixels)
	l.v.SetDefault("scanner.debug_dir", d.Scanner.DebugDir)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)
	l.v.SetDefault("output.overlay_dir", d.Output.OverlayDir)

	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.include", d.Batch.Include)
	l.v.SetDefault("batch.exclude", d.Batch.Exclude)
	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.continue_on_error", d.Batch.ContinueOnError)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.metrics_enabled", d.Server.MetricsEnabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", d.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.requests_per_hour", d.Server.RateLimit.RequestsPerHour)
	l.v.SetDefault("server.rate_limit.max_requests_per_day", d.Server.RateLimit.MaxRequestsPerDay)
	l.v.SetDefault("server.rate_limit.max_data_per_day", d.Server.RateLimit.MaxDataPerDay)
}

// MarshalYAML renders cfg as a YAML document.
func MarshalYAML(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// GenerateDefaultConfigFile writes the defaults to filename on fsys. It
// refuses to overwrite an existing file unless force is set.
func GenerateDefaultConfigFile(fsys afero.Fs, filename string, force bool) (string, error) {
	if filename == "" {
		filename = DefaultConfigFile
	}
	if !force {
		exists, err := afero.Exists(fsys, filename)
		if err != nil {
			return "", err
		}
		if exists {
			return "", fmt.Errorf("config file already exists: %s", filename)
		}
	}

	cfg := DefaultConfig()
	data, err := MarshalYAML(&cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := fsys.MkdirAll(dir, 0o750); err != nil {
			return "", err
		}
	}
	if err := afero.WriteFile(fsys, filename, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return filename, nil
}

// GetConfigSearchPaths returns the directories searched for qrscan.yaml.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}

	return append(paths, "/etc/"+ConfigFileName)
}
