package rectify

import (
	"image"
	"image/color"
)

// Warp renders the grid-space square [0,modules]² of src through p into an
// upright image with scale pixels per module. Sampling is bilinear; points
// outside src come out white so the quiet zone reads as light.
func Warp(src image.Image, p Perspective, modules, scale int) *image.RGBA {
	if src == nil || modules <= 0 || scale <= 0 {
		return nil
	}
	n := modules * scale
	out := image.NewRGBA(image.Rect(0, 0, n, n))
	sb := src.Bounds()
	inv := 1 / float64(scale)

	for y := range n {
		for x := range n {
			sx, sy := p.MapF((float64(x)+0.5)*inv, (float64(y)+0.5)*inv)
			out.SetRGBA(x, y, bilinearSample(src, sx+float64(sb.Min.X), sy+float64(sb.Min.Y)))
		}
	}
	return out
}

func bilinearSample(src image.Image, x, y float64) color.RGBA {
	b := src.Bounds()
	if x < float64(b.Min.X) || y < float64(b.Min.Y) || x > float64(b.Max.X-1) || y > float64(b.Max.Y-1) {
		return color.RGBA{255, 255, 255, 255}
	}
	x0, y0 := int(x), int(y)
	x1 := min(x0+1, b.Max.X-1)
	y1 := min(y0+1, b.Max.Y-1)
	fx := x - float64(x0)
	fy := y - float64(y0)

	c00 := toRGBA(src.At(x0, y0))
	c10 := toRGBA(src.At(x1, y0))
	c01 := toRGBA(src.At(x0, y1))
	c11 := toRGBA(src.At(x1, y1))
	r := lerp(lerp(c00.R, c10.R, fx), lerp(c01.R, c11.R, fx), fy)
	g := lerp(lerp(c00.G, c10.G, fx), lerp(c01.G, c11.G, fx), fy)
	bl := lerp(lerp(c00.B, c10.B, fx), lerp(c01.B, c11.B, fx), fy)
	return color.RGBA{uint8(r + 0.5), uint8(g + 0.5), uint8(bl + 0.5), 255}
}

type rgba struct{ R, G, B float64 }

func toRGBA(c color.Color) rgba {
	r, g, b, _ := c.RGBA()
	return rgba{R: float64(r >> 8), G: float64(g >> 8), B: float64(b >> 8)}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
