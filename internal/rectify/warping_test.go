package rectify

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkerboard draws size×size modules of cell pixels each, dark where
// x+y is even, offset by margin pixels of white.
func checkerboard(size, cell, margin int) *image.Gray {
	n := size*cell + 2*margin
	img := image.NewGray(image.Rect(0, 0, n, n))
	for y := range n {
		for x := range n {
			img.Pix[y*n+x] = 255
			mx, my := (x-margin)/cell, (y-margin)/cell
			if x >= margin && y >= margin && mx < size && my < size && (mx+my)%2 == 0 {
				img.Pix[y*n+x] = 0
			}
		}
	}
	return img
}

func TestWarpRecoversModules(t *testing.T) {
	const size, cell, margin = 5, 8, 6
	src := checkerboard(size, cell, margin)
	lo, hi := margin, margin+size*cell
	p, err := Setup([4]image.Point{{X: lo, Y: lo}, {X: hi, Y: lo}, {X: hi, Y: hi}, {X: lo, Y: hi}}, size, size)
	require.NoError(t, err)

	const scale = 4
	out := Warp(src, p, size, scale)
	require.NotNil(t, out)
	assert.Equal(t, image.Rect(0, 0, size*scale, size*scale), out.Bounds())

	for my := range size {
		for mx := range size {
			c := out.RGBAAt(mx*scale+scale/2, my*scale+scale/2)
			if (mx+my)%2 == 0 {
				assert.Less(t, c.R, uint8(64), "module (%d,%d)", mx, my)
			} else {
				assert.Greater(t, c.R, uint8(192), "module (%d,%d)", mx, my)
			}
		}
	}
}

func TestWarpOutsideIsWhite(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	p := Perspective{C: [8]float64{1, 0, 100, 0, 1, 100, 0, 0}}
	out := Warp(src, p, 3, 2)
	require.NotNil(t, out)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(0, 0))
}

func TestWarpInvalidInput(t *testing.T) {
	p := Perspective{C: [8]float64{1, 0, 0, 0, 1, 0, 0, 0}}
	assert.Nil(t, Warp(nil, p, 21, 4))
	assert.Nil(t, Warp(image.NewGray(image.Rect(0, 0, 4, 4)), p, 0, 4))
	assert.Nil(t, Warp(image.NewGray(image.Rect(0, 0, 4, 4)), p, 21, 0))
}

func TestBilinearSample(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.Pix[0], img.Pix[1] = 0, 200

	assert.Equal(t, uint8(100), bilinearSample(img, 0.5, 0).R)
	assert.Equal(t, uint8(0), bilinearSample(img, 0, 0).R)
	assert.Equal(t, uint8(255), bilinearSample(img, -1, 0).R)
	assert.InDelta(t, 50.0, lerp(0, 100, 0.5), 1e-9)
}
