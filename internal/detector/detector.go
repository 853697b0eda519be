// Package detector finds QR symbols in a luminance plane. It thresholds the
// image into a label plane, labels dark regions, looks for finder patterns
// along every row, groups finders into triples and fits a perspective
// transform for each symbol.
package detector

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/bitgrid"
	"github.com/MeKo-Tech/qrscan/internal/luma"
	"github.com/MeKo-Tech/qrscan/internal/qrcode"
)

var (
	// ErrNoSymbol is returned for a symbol index outside 0..Count()-1.
	ErrNoSymbol = errors.New("detector: no such symbol")
	// ErrStale is returned when the plane was resized or replaced after
	// the last Detect.
	ErrStale = errors.New("detector: results are stale")
)

// Detector holds the per-image working state. It is reused across images
// and is not safe for concurrent use.
type Detector struct {
	cfg Config

	labels        []uint16
	width, height int
	plane         *luma.Plane
	generation    uint64

	regions   []Region
	capstones []Capstone
	grids     []Grid

	fillStack  []image.Point
	rowAverage []int
}

// New returns a detector for cfg.
func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

// Config returns the configuration the detector was built with.
func (d *Detector) Config() Config { return d.cfg }

func (d *Detector) reset() {
	d.regions = d.regions[:0]
	d.capstones = d.capstones[:0]
	d.grids = d.grids[:0]
}

// Detect runs the full search over p and returns the number of symbols
// found. The plane's label buffer is overwritten; its pixels are not.
func (d *Detector) Detect(p *luma.Plane) int {
	start := time.Now()
	d.reset()
	d.plane = p
	d.generation = p.Generation()
	d.width, d.height = p.Width(), p.Height()
	d.labels = p.Labels()
	if d.width == 0 || d.height == 0 {
		return 0
	}

	d.threshold(p.Pix(), d.labels, d.width, d.height)
	for y := range d.height {
		d.finderScan(y)
	}
	for i := range d.capstones {
		d.testGrouping(i)
	}

	slog.Debug("Detection finished",
		"width", d.width,
		"height", d.height,
		"regions", len(d.regions),
		"capstones", len(d.capstones),
		"grids", len(d.grids),
		"duration", time.Since(start))
	return len(d.grids)
}

// Count returns the number of symbols found by the last Detect.
func (d *Detector) Count() int { return len(d.grids) }

// Generation returns the plane generation the last Detect ran against.
func (d *Detector) Generation() uint64 { return d.generation }

// Regions, Capstones and Grids expose the intermediate results of the last
// Detect. The slices are reused by the next call.
func (d *Detector) Regions() []Region     { return d.regions }
func (d *Detector) Capstones() []Capstone { return d.capstones }
func (d *Detector) Grids() []Grid         { return d.grids }

// Extract samples symbol i into a module grid.
func (d *Detector) Extract(i int, p *luma.Plane) (*qrcode.Code, error) {
	if p == nil || p != d.plane || p.Generation() != d.generation ||
		p.Width() != d.width || p.Height() != d.height {
		return nil, ErrStale
	}
	if i < 0 || i >= len(d.grids) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrNoSymbol, i, len(d.grids))
	}

	qr := &d.grids[i]
	size := float64(qr.Size)
	code := &qrcode.Code{
		Size:       qr.Size,
		Generation: d.generation,
	}
	code.Corners[0] = qr.Perspective.Map(0, 0)
	code.Corners[1] = qr.Perspective.Map(size, 0)
	code.Corners[2] = qr.Perspective.Map(size, size)
	code.Corners[3] = qr.Perspective.Map(0, size)

	grid, err := bitgrid.New(qr.Size)
	if err != nil {
		return nil, err
	}
	for y := range qr.Size {
		for x := range qr.Size {
			if d.moduleDark(qr, x, y) {
				grid.Set(x, y, true)
			}
		}
	}
	code.Grid = grid
	return code, nil
}

// moduleDark samples the center of module (x, y). Samples outside the
// image read as light.
func (d *Detector) moduleDark(qr *Grid, x, y int) bool {
	p := qr.Perspective.Map(float64(x)+0.5, float64(y)+0.5)
	if p.Y < 0 || p.Y >= d.height || p.X < 0 || p.X >= d.width {
		return false
	}
	return d.labels[p.Y*d.width+p.X] != labelLight
}
