package detector

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Validate and New for unusable settings.
var ErrInvalidConfig = errors.New("detector: invalid config")

const (
	// maxLabel is the largest value the uint16 label plane can hold.
	maxLabel = 1<<16 - 1
	// firstRegionLabel is the label of region 0; 0 and 1 mean light and dark.
	firstRegionLabel = 2
)

// Config holds the detector limits and tuning constants.
type Config struct {
	MaxRegions   int // labeled dark areas per image (default: 65534)
	MaxCapstones int // finder patterns per image (default: 32)
	MaxGrids     int // symbols per image (default: 8)

	// GroupingScoreMax discards capstone triples whose arm lengths differ
	// by more than this ratio (default: 2.5).
	GroupingScoreMax float64

	ThresholdDivisor int // threshold window is width/ThresholdDivisor (default: 8)
	ThresholdBias    int // percent below the local mean counted as dark (default: 5)

	JigglePasses int // perspective refinement passes (default: 5)
}

// DefaultConfig returns the standard detector configuration.
func DefaultConfig() Config {
	return Config{
		MaxRegions:       maxLabel - firstRegionLabel + 1,
		MaxCapstones:     32,
		MaxGrids:         8,
		GroupingScoreMax: 2.5,
		ThresholdDivisor: 8,
		ThresholdBias:    5,
		JigglePasses:     5,
	}
}

// Validate checks that every limit is usable.
func (c Config) Validate() error {
	switch {
	case c.MaxRegions < 1 || c.MaxRegions > maxLabel-firstRegionLabel+1:
		return fmt.Errorf("%w: max regions %d outside 1..%d", ErrInvalidConfig, c.MaxRegions, maxLabel-firstRegionLabel+1)
	case c.MaxCapstones < 3:
		return fmt.Errorf("%w: max capstones %d below 3", ErrInvalidConfig, c.MaxCapstones)
	case c.MaxGrids < 1:
		return fmt.Errorf("%w: max grids %d below 1", ErrInvalidConfig, c.MaxGrids)
	case c.GroupingScoreMax <= 0:
		return fmt.Errorf("%w: grouping score %.2f must be positive", ErrInvalidConfig, c.GroupingScoreMax)
	case c.ThresholdDivisor < 1:
		return fmt.Errorf("%w: threshold divisor %d below 1", ErrInvalidConfig, c.ThresholdDivisor)
	case c.ThresholdBias < 0 || c.ThresholdBias >= 100:
		return fmt.Errorf("%w: threshold bias %d outside 0..99", ErrInvalidConfig, c.ThresholdBias)
	case c.JigglePasses < 0:
		return fmt.Errorf("%w: jiggle passes %d negative", ErrInvalidConfig, c.JigglePasses)
	}
	return nil
}
