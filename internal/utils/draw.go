package utils

import (
	"image"
	"image/color"
	"math"
)

// Point is a 2D coordinate in float space.
type Point struct {
	X float64
	Y float64
}

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	thickness = max(thickness, 1)
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, rect.Min.Y+t, col)
			dst.Set(x, rect.Max.Y-1-t, col)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(rect.Min.X+t, y, col)
			dst.Set(rect.Max.X-1-t, y, col)
		}
	}
}

// DrawPolygon draws the closed outline through pts.
func DrawPolygon(dst *image.RGBA, pts []Point, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	ip := make([]image.Point, len(pts))
	for i, p := range pts {
		ip[i] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	}
	for i, a := range ip {
		drawLine(dst, a, ip[(i+1)%len(ip)], col, thickness)
	}
}

// drawLine is Bresenham with a square brush.
func drawLine(dst *image.RGBA, a, b image.Point, col color.Color, thickness int) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, a.X, a.Y, col, thickness)
		if a == b {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			a.X += sx
		}
		if e2 <= dx {
			err += dx
			a.Y += sy
		}
	}
}

func drawThickPoint(dst *image.RGBA, x, y int, col color.Color, thickness int) {
	r := (max(thickness, 1) - 1) / 2
	bounds := dst.Bounds()
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(bounds) {
				dst.Set(xx, yy, col)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
