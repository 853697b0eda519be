package qrcode

import (
	"image"

	"github.com/MeKo-Tech/qrscan/internal/bitgrid"
)

// Code is a sampled symbol: its module bitmap plus where it sat in the image.
type Code struct {
	// Corners are the image positions of grid points (0,0), (s,0), (s,s)
	// and (0,s), in that order.
	Corners [4]image.Point
	Size    int
	Grid    *bitgrid.Grid
	// Generation is the image buffer generation the code was sampled from.
	Generation uint64
	// Mirrored is set on codes produced by Flip.
	Mirrored bool
}

// Flip returns the code transposed along its main diagonal, which is how a
// mirrored symbol reads. Corners 1 and 3 swap places.
func (c *Code) Flip() *Code {
	f := &Code{
		Corners:    [4]image.Point{c.Corners[0], c.Corners[3], c.Corners[2], c.Corners[1]},
		Size:       c.Size,
		Generation: c.Generation,
		Mirrored:   !c.Mirrored,
	}
	if c.Grid != nil {
		f.Grid = c.Grid.Transpose()
	}
	return f
}

// Bounds returns the smallest rectangle containing all four corners.
func (c *Code) Bounds() image.Rectangle {
	r := image.Rectangle{Min: c.Corners[0], Max: c.Corners[0]}
	for _, p := range c.Corners[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}
