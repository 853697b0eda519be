package luma

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResize(t *testing.T) {
	p := New(0)
	assert.Zero(t, p.Generation())
	assert.Empty(t, p.Pix())

	require.NoError(t, p.Resize(4, 3))
	assert.Len(t, p.Pix(), 12)
	assert.Len(t, p.Labels(), 12)
	assert.Equal(t, uint64(1), p.Generation())

	t.Run("same dimensions keep generation and contents", func(t *testing.T) {
		p.Pix()[5] = 77
		require.NoError(t, p.Resize(4, 3))
		assert.Equal(t, uint64(1), p.Generation())
		assert.Equal(t, byte(77), p.Pix()[5])
	})

	t.Run("new dimensions bump generation", func(t *testing.T) {
		require.NoError(t, p.Resize(2, 2))
		assert.Equal(t, uint64(2), p.Generation())
		assert.Equal(t, 2, p.Width())
		assert.Equal(t, 2, p.Height())
		assert.Len(t, p.Pix(), 4)
	})

	t.Run("invalid dimensions leave the plane alone", func(t *testing.T) {
		err := p.Resize(0, 5)
		assert.ErrorIs(t, err, ErrInvalidDimensions)
		err = p.Resize(-1, 5)
		assert.ErrorIs(t, err, ErrInvalidDimensions)
		assert.Equal(t, uint64(2), p.Generation())
		assert.Len(t, p.Pix(), 4)
	})
}

func TestResizeTooLarge(t *testing.T) {
	p := New(100)
	require.NoError(t, p.Resize(10, 10))
	err := p.Resize(11, 10)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, 10, p.Width())
	assert.Equal(t, uint64(1), p.Generation())
}

func TestRelease(t *testing.T) {
	p := New(0)
	require.NoError(t, p.Resize(8, 8))
	p.Release()
	assert.Nil(t, p.Pix())
	assert.Zero(t, p.Width())

	require.NoError(t, p.Resize(8, 8))
	assert.Equal(t, uint64(2), p.Generation())
}

func TestCopyRGBA(t *testing.T) {
	p := New(0)
	frame := []byte{
		255, 255, 255, 255,
		0, 0, 0, 255,
		255, 0, 0, 255,
		0, 255, 0, 255,
	}
	require.NoError(t, p.CopyRGBA(frame, 2, 2))
	// (r*59 + g*150 + b*29) >> 8
	assert.Equal(t, []byte{237, 0, 58, 149}, p.Pix())

	err := p.CopyRGBA(frame[:8], 2, 2)
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestCopyGray(t *testing.T) {
	p := New(0)
	require.NoError(t, p.CopyGray([]byte{1, 2, 3, 4, 5, 6}, 3, 2))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, p.Pix())
	assert.ErrorIs(t, p.CopyGray([]byte{1}, 3, 2), ErrShortBuffer)
}

func TestFromImage(t *testing.T) {
	t.Run("gray subimage", func(t *testing.T) {
		g := image.NewGray(image.Rect(0, 0, 4, 4))
		for i := range g.Pix {
			g.Pix[i] = byte(i)
		}
		sub, ok := g.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray)
		require.True(t, ok)

		p := New(0)
		require.NoError(t, p.FromImage(sub))
		assert.Equal(t, []byte{5, 6, 9, 10}, p.Pix())
	})

	t.Run("rgba", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 2, 1))
		img.Set(0, 0, color.RGBA{255, 255, 255, 255})
		img.Set(1, 0, color.RGBA{0, 255, 0, 255})
		p := New(0)
		require.NoError(t, p.FromImage(img))
		assert.Equal(t, []byte{237, 149}, p.Pix())
	})

	t.Run("generic image", func(t *testing.T) {
		img := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{color.White, color.Black})
		img.SetColorIndex(1, 0, 1)
		p := New(0)
		require.NoError(t, p.FromImage(img))
		assert.Equal(t, []byte{237, 0}, p.Pix())
	})

	t.Run("ycbcr uses the luma plane", func(t *testing.T) {
		img := image.NewYCbCr(image.Rect(0, 0, 2, 2), image.YCbCrSubsampleRatio420)
		copy(img.Y, []byte{10, 20, 30, 40})
		p := New(0)
		require.NoError(t, p.FromImage(img))
		assert.Equal(t, []byte{10, 20, 30, 40}, p.Pix())
	})

	t.Run("empty image", func(t *testing.T) {
		p := New(0)
		err := p.FromImage(image.NewGray(image.Rect(0, 0, 0, 0)))
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})
}

func TestInvert(t *testing.T) {
	p := New(0)
	require.NoError(t, p.CopyGray([]byte{0, 100, 255, 1}, 2, 2))
	p.Invert()
	assert.Equal(t, []byte{255, 155, 0, 254}, p.Pix())
	assert.Equal(t, p.Pix(), p.Gray().Pix)
}
