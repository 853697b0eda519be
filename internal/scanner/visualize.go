package scanner

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// FailedColor outlines symbols that were detected but not decoded.
var FailedColor = color.RGBA{R: 255, A: 255}

// RenderOverlay returns an RGBA copy of img with every symbol's bounding box
// and corner quadrilateral drawn on top. Coordinates are shifted so the
// copy starts at (0,0).
func RenderOverlay(img image.Image, res *ImageResult, boxColor, polyColor color.Color) *image.RGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	if res == nil {
		return dst
	}

	for _, s := range res.Symbols {
		box := image.Rect(s.BoundingBox.X, s.BoundingBox.Y,
			s.BoundingBox.X+s.BoundingBox.Width+1, s.BoundingBox.Y+s.BoundingBox.Height+1).Sub(b.Min)
		pc := polyColor
		if !s.OK() {
			pc = FailedColor
		}
		utils.DrawRect(dst, box, boxColor, 1)

		pts := make([]utils.Point, len(s.CornerPoints))
		for i, p := range s.CornerPoints {
			pts[i] = utils.Point{X: float64(p.X - b.Min.X), Y: float64(p.Y - b.Min.Y)}
		}
		utils.DrawPolygon(dst, pts, pc, 2)
	}
	return dst
}
