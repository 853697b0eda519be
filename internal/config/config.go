package config

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/MeKo-Tech/qrscan/internal/batch"
	"github.com/MeKo-Tech/qrscan/internal/detector"
	"github.com/MeKo-Tech/qrscan/internal/scanner"
	"github.com/MeKo-Tech/qrscan/internal/server"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	return Config{
		LogLevel: "info",
		Scanner: ScannerConfig{
			MaxRegions:       det.MaxRegions,
			MaxCapstones:     det.MaxCapstones,
			MaxGrids:         det.MaxGrids,
			GroupingScoreMax: det.GroupingScoreMax,
			ThresholdDivisor: det.ThresholdDivisor,
			ThresholdBias:    det.ThresholdBias,
			JigglePasses:     det.JigglePasses,
			TryInverted:      true,
			TryMirrored:      true,
			MaxDimension:     0,
			Workers:          runtime.NumCPU(),
		},
		Output: OutputConfig{
			Format: "text",
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			MetricsEnabled:  true,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("%w: log level %q (must be one of: %s)", ErrInvalid, c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(batch.Formats, c.Output.Format) {
		return fmt.Errorf("%w: output format %q (must be one of: %s)", ErrInvalid, c.Output.Format, strings.Join(batch.Formats, ", "))
	}
	if err := c.ToScannerConfig().Validate(); err != nil {
		return fmt.Errorf("%w: scanner: %w", ErrInvalid, err)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("%w: batch workers %d (must be positive)", ErrInvalid, c.Batch.Workers)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d (must be between 1 and 65535)", ErrInvalid, c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("%w: max upload size %d (must be positive)", ErrInvalid, c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("%w: timeout %d (must be positive)", ErrInvalid, c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown timeout %d (must not be negative)", ErrInvalid, c.Server.ShutdownTimeout)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDay < 0 {
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalid)
	}
	return nil
}

// ToScannerConfig converts to the scanner package configuration.
func (c *Config) ToScannerConfig() scanner.Config {
	s := c.Scanner
	return scanner.Config{
		Detector: detector.Config{
			MaxRegions:       s.MaxRegions,
			MaxCapstones:     s.MaxCapstones,
			MaxGrids:         s.MaxGrids,
			GroupingScoreMax: s.GroupingScoreMax,
			ThresholdDivisor: s.ThresholdDivisor,
			ThresholdBias:    s.ThresholdBias,
			JigglePasses:     s.JigglePasses,
		},
		TryInverted:  s.TryInverted,
		TryMirrored:  s.TryMirrored,
		MaxDimension: s.MaxDimension,
		Workers:      s.Workers,
		MaxPixels:    s.MaxPixels,
		DebugDir:     s.DebugDir,
	}
}

// ToBatchConfig converts to the batch package configuration.
func (c *Config) ToBatchConfig() *batch.Config {
	cfg := batch.DefaultConfig()
	cfg.Scanner = c.ToScannerConfig()
	if c.Output.Format != "" {
		cfg.Format = c.Output.Format
	}
	cfg.OutputFile = c.Output.File
	cfg.OverlayDir = c.Output.OverlayDir
	cfg.Workers = c.Batch.Workers
	cfg.Recursive = c.Batch.Recursive
	cfg.IncludePatterns = c.Batch.Include
	cfg.ExcludePatterns = c.Batch.Exclude
	cfg.ContinueOnError = c.Batch.ContinueOnError
	return cfg
}

// ToServerConfig converts to the server package configuration.
func (c *Config) ToServerConfig() server.Config {
	return server.Config{
		Host:           c.Server.Host,
		Port:           c.Server.Port,
		CORSOrigin:     c.Server.CORSOrigin,
		MaxUploadMB:    int64(c.Server.MaxUploadMB),
		TimeoutSec:     c.Server.TimeoutSec,
		MetricsEnabled: c.Server.MetricsEnabled,
		Scanner:        c.ToScannerConfig(),
		RateLimit: server.RateLimitConfig{
			RequestsPerMinute: c.Server.RateLimit.RequestsPerMinute,
			RequestsPerHour:   c.Server.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: c.Server.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     c.Server.RateLimit.MaxDataPerDay,
		},
	}
}
