// Package bitgrid provides the packed module bitmap shared by the sampler and
// the symbol decoder.
//
// Addressing: module (x, y) of a size×size grid is bit index i = y*size + x.
// Bit i lives in byte i>>3 at position i&7, least significant bit first.
// A set bit is a dark module.
package bitgrid

import (
	"errors"
	"fmt"
)

const (
	// MinSize is the module count of a version 1 symbol.
	MinSize = 21
	// MaxSize is the module count of a version 40 symbol.
	MaxSize = 177
	// MaxBytes is the storage needed for the largest symbol.
	MaxBytes = (MaxSize*MaxSize + 7) / 8
)

// ErrSize is returned for sizes outside 1..MaxSize.
var ErrSize = errors.New("bitgrid: invalid size")

// Grid is a square bitmap of QR modules.
type Grid struct {
	size int
	bits []byte
}

// New allocates an all-light grid.
func New(size int) (*Grid, error) {
	if size <= 0 || size > MaxSize {
		return nil, fmt.Errorf("%w: %d", ErrSize, size)
	}
	return &Grid{size: size, bits: make([]byte, (size*size+7)/8)}, nil
}

// FromBools builds a grid from rows of booleans (true = dark).
func FromBools(rows [][]bool) (*Grid, error) {
	g, err := New(len(rows))
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		if len(row) != g.size {
			return nil, fmt.Errorf("%w: row %d has %d modules, want %d", ErrSize, y, len(row), g.size)
		}
		for x, dark := range row {
			if dark {
				g.Set(x, y, true)
			}
		}
	}
	return g, nil
}

// Size returns the number of modules per side.
func (g *Grid) Size() int { return g.size }

// Bytes exposes the packed storage.
func (g *Grid) Bytes() []byte { return g.bits }

// Index returns the bit index of module (x, y).
func (g *Grid) Index(x, y int) int { return y*g.size + x }

func (g *Grid) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.size && y < g.size
}

// Get reports whether module (x, y) is dark. Outside the grid is light.
func (g *Grid) Get(x, y int) bool {
	if !g.inside(x, y) {
		return false
	}
	i := g.Index(x, y)
	return g.bits[i>>3]>>(i&7)&1 == 1
}

// Set stores a module value. Writes outside the grid are ignored.
func (g *Grid) Set(x, y int, dark bool) {
	if !g.inside(x, y) {
		return
	}
	i := g.Index(x, y)
	if dark {
		g.bits[i>>3] |= 1 << (i & 7)
	} else {
		g.bits[i>>3] &^= 1 << (i & 7)
	}
}

// Toggle inverts module (x, y).
func (g *Grid) Toggle(x, y int) {
	if !g.inside(x, y) {
		return
	}
	i := g.Index(x, y)
	g.bits[i>>3] ^= 1 << (i & 7)
}

// Transpose returns a copy mirrored along the main diagonal.
func (g *Grid) Transpose() *Grid {
	t := &Grid{size: g.size, bits: make([]byte, len(g.bits))}
	for y := range g.size {
		for x := range g.size {
			if g.Get(x, y) {
				t.Set(y, x, true)
			}
		}
	}
	return t
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{size: g.size, bits: make([]byte, len(g.bits))}
	copy(c.bits, g.bits)
	return c
}

// Equal reports whether both grids hold the same modules.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.size != o.size {
		return false
	}
	for i := range g.bits {
		if g.bits[i] != o.bits[i] {
			return false
		}
	}
	return true
}

// String renders the grid with '#' for dark and '.' for light modules.
func (g *Grid) String() string {
	buf := make([]byte, 0, g.size*(g.size+1))
	for y := range g.size {
		for x := range g.size {
			if g.Get(x, y) {
				buf = append(buf, '#')
			} else {
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
