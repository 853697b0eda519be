// Package luma holds the 8-bit luminance plane the detector works on, plus
// a same-sized label plane for thresholding and region labeling.
package luma

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/MeKo-Tech/qrscan/internal/mempool"
)

// DefaultMaxPixels bounds a plane to 64 megapixels.
const DefaultMaxPixels = 1 << 26

var (
	ErrInvalidDimensions = errors.New("luma: invalid dimensions")
	ErrTooLarge          = errors.New("luma: image exceeds pixel limit")
	ErrShortBuffer       = errors.New("luma: source buffer too short")
)

// Plane is a row-major luminance buffer with stride equal to its width.
// It is not safe for concurrent use.
type Plane struct {
	// MaxPixels caps width*height; zero means DefaultMaxPixels.
	MaxPixels int

	width, height int
	pix           []byte
	labels        []uint16
	generation    uint64
}

// New returns an empty plane. Call Resize before writing pixels.
func New(maxPixels int) *Plane {
	return &Plane{MaxPixels: maxPixels}
}

func (p *Plane) limit() int {
	if p.MaxPixels > 0 {
		return p.MaxPixels
	}
	return DefaultMaxPixels
}

// Resize (re)allocates the plane for w×h pixels. Resizing to the current
// dimensions keeps the buffers and the generation; any other successful
// resize bumps the generation, invalidating everything derived from the
// previous contents. On error the plane is left unchanged.
func (p *Plane) Resize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	if w > p.limit()/h {
		return fmt.Errorf("%w: %dx%d > %d", ErrTooLarge, w, h, p.limit())
	}
	if w == p.width && h == p.height && p.pix != nil {
		return nil
	}

	p.Release()
	p.pix = mempool.GetBytes(w * h)
	p.labels = mempool.GetUint16(w * h)
	p.width, p.height = w, h
	p.generation++
	return nil
}

// Release hands the buffers back to the pool. The plane reads as empty
// afterwards; the generation still advances on the next Resize.
func (p *Plane) Release() {
	mempool.PutBytes(p.pix)
	mempool.PutUint16(p.labels)
	p.pix, p.labels = nil, nil
	p.width, p.height = 0, 0
}

func (p *Plane) Width() int  { return p.width }
func (p *Plane) Height() int { return p.height }

// Pix returns the writable luminance samples, width*height bytes.
func (p *Plane) Pix() []byte { return p.pix }

// Labels returns the label plane used by the detector.
func (p *Plane) Labels() []uint16 { return p.labels }

// Generation identifies the current buffer allocation.
func (p *Plane) Generation() uint64 { return p.generation }

// Invert replaces every sample v with 255-v.
func (p *Plane) Invert() {
	for i, v := range p.pix {
		p.pix[i] = 255 - v
	}
}

// Gray returns an image.Gray view sharing the luminance buffer.
func (p *Plane) Gray() *image.Gray {
	return &image.Gray{Pix: p.pix, Stride: p.width, Rect: image.Rect(0, 0, p.width, p.height)}
}

// luminance is the integer RGB weighting used for every conversion.
func luminance(r, g, b uint32) byte {
	return byte((r*59 + g*150 + b*29) >> 8)
}

// CopyRGBA converts a tightly packed RGBA frame (4 bytes per pixel).
func (p *Plane) CopyRGBA(rgba []byte, w, h int) error {
	if err := p.Resize(w, h); err != nil {
		return err
	}
	if len(rgba) < 4*w*h {
		return fmt.Errorf("%w: %d bytes for %dx%d RGBA", ErrShortBuffer, len(rgba), w, h)
	}
	for i := range p.pix {
		s := rgba[4*i : 4*i+3 : 4*i+3]
		p.pix[i] = luminance(uint32(s[0]), uint32(s[1]), uint32(s[2]))
	}
	return nil
}

// CopyGray copies a tightly packed 8-bit grayscale frame.
func (p *Plane) CopyGray(gray []byte, w, h int) error {
	if err := p.Resize(w, h); err != nil {
		return err
	}
	if len(gray) < w*h {
		return fmt.Errorf("%w: %d bytes for %dx%d gray", ErrShortBuffer, len(gray), w, h)
	}
	copy(p.pix, gray)
	return nil
}

// FromImage resizes the plane to img's bounds and converts it.
func (p *Plane) FromImage(img image.Image) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if err := p.Resize(w, h); err != nil {
		return err
	}

	switch src := img.(type) {
	case *image.Gray:
		draw.Draw(p.Gray(), p.Gray().Rect, src, b.Min, draw.Src)
	case *image.YCbCr:
		for y := range h {
			row := src.YOffset(b.Min.X, b.Min.Y+y)
			copy(p.pix[y*w:(y+1)*w], src.Y[row:row+w])
		}
	case *image.RGBA:
		p.copyInterleaved(src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y))
	case *image.NRGBA:
		p.copyInterleaved(src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y))
	default:
		for y := range h {
			for x := range w {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				p.pix[y*w+x] = luminance(r>>8, g>>8, bl>>8)
			}
		}
	}
	return nil
}

func (p *Plane) copyInterleaved(pix []byte, stride, off int) {
	for y := range p.height {
		row := pix[off+y*stride:]
		dst := p.pix[y*p.width : (y+1)*p.width]
		for x := range dst {
			s := row[4*x : 4*x+3 : 4*x+3]
			dst[x] = luminance(uint32(s[0]), uint32(s[1]), uint32(s[2]))
		}
	}
}
