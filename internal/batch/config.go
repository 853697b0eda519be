package batch

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/afero"

	"github.com/MeKo-Tech/qrscan/internal/scanner"
)

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "yaml", "csv"}

// Config holds all configuration for batch scanning.
type Config struct {
	Scanner scanner.Config

	// Output settings
	Format     string
	OutputFile string
	OverlayDir string

	// Workers bounds how many files are scanned at once.
	Workers int

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// ContinueOnError records per-file failures instead of aborting.
	ContinueOnError bool

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration

	// Fs is the filesystem images are read from and results written to.
	// Nil means the OS filesystem.
	Fs afero.Fs
}

// DefaultConfig returns the batch defaults.
func DefaultConfig() *Config {
	return &Config{
		Scanner:          scanner.DefaultConfig(),
		Format:           "text",
		Workers:          4,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Workers)
	}
	if c.Format != "" && !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("invalid output format: %q", c.Format)
	}
	if c.ProgressInterval < 0 {
		return errors.New("progress interval must not be negative")
	}
	return c.Scanner.Validate()
}

func (c *Config) fs() afero.Fs {
	if c.Fs == nil {
		return afero.NewOsFs()
	}
	return c.Fs
}
