// Package scanner runs the full QR pipeline over images: luminance
// conversion, detection, extraction and decoding, with the retries a
// camera-facing reader needs.
package scanner

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/qrscan/internal/detector"
)

// Config holds configuration for a Scanner and its detector.
type Config struct {
	Detector detector.Config

	// TryInverted rescans the negative image when nothing was detected,
	// for light-on-dark symbols.
	TryInverted bool
	// TryMirrored retries a symbol transposed when its format information
	// cannot be read.
	TryMirrored bool
	// MaxDimension downscales larger images before scanning (0 = off).
	MaxDimension int
	// Workers bounds concurrent symbol decoding (0 = runtime.NumCPU()).
	Workers int
	// MaxPixels bounds the luminance buffer (0 = luma.DefaultMaxPixels).
	MaxPixels int
	// DebugDir receives overlay and rectified PNGs when set.
	DebugDir string
}

// DefaultConfig returns the scanner defaults.
func DefaultConfig() Config {
	return Config{
		Detector:    detector.DefaultConfig(),
		TryInverted: true,
		TryMirrored: true,
		Workers:     runtime.NumCPU(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return err
	}
	if c.MaxDimension < 0 {
		return errors.New("max dimension must be >= 0")
	}
	if c.Workers < 0 {
		return errors.New("workers must be >= 0")
	}
	if c.MaxPixels < 0 {
		return errors.New("max pixels must be >= 0")
	}
	return nil
}

// Builder constructs a Scanner with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithMaxGrids caps the symbols reported per image.
func (b *Builder) WithMaxGrids(n int) *Builder {
	b.cfg.Detector.MaxGrids = n
	return b
}

// WithGroupingScore sets the capstone grouping score limit.
func (b *Builder) WithGroupingScore(score float64) *Builder {
	b.cfg.Detector.GroupingScoreMax = score
	return b
}

// WithInverted toggles the light-on-dark retry.
func (b *Builder) WithInverted(enabled bool) *Builder {
	b.cfg.TryInverted = enabled
	return b
}

// WithMirrored toggles the transposed retry.
func (b *Builder) WithMirrored(enabled bool) *Builder {
	b.cfg.TryMirrored = enabled
	return b
}

// WithMaxDimension sets the downscale limit.
func (b *Builder) WithMaxDimension(px int) *Builder {
	b.cfg.MaxDimension = px
	return b
}

// WithWorkers sets the decode concurrency.
func (b *Builder) WithWorkers(n int) *Builder {
	b.cfg.Workers = n
	return b
}

// WithMaxPixels bounds the image buffer.
func (b *Builder) WithMaxPixels(n int) *Builder {
	b.cfg.MaxPixels = n
	return b
}

// WithDebugDir enables debug image dumps.
func (b *Builder) WithDebugDir(dir string) *Builder {
	b.cfg.DebugDir = dir
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and returns a Scanner.
func (b *Builder) Build() (*Scanner, error) {
	return New(b.cfg)
}

// Scanner scans images for QR symbols. It keeps a pool of Contexts, so a
// single Scanner may be shared between goroutines.
type Scanner struct {
	cfg  Config
	pool sync.Pool
}

// New returns a scanner for cfg.
func New(cfg Config) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scanner config: %w", err)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Scanner{cfg: cfg}, nil
}

// Config returns the scanner configuration.
func (s *Scanner) Config() Config { return s.cfg }

func (s *Scanner) acquire() (*Context, error) {
	if c, ok := s.pool.Get().(*Context); ok {
		return c, nil
	}
	return NewContext(s.cfg.Detector, s.cfg.MaxPixels)
}

func (s *Scanner) release(c *Context) {
	s.pool.Put(c)
}
