package rectify

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/utils"
)

func quadPoints(q [4]image.Point) []utils.Point {
	pts := make([]utils.Point, len(q))
	for i, p := range q {
		pts[i] = utils.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return pts
}

func writePNG(dir, prefix string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", prefix, time.Now().UnixNano()))
	f, err := os.Create(path) //nolint:gosec // G304: path is constructed from timestamp in debug directory
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return path, png.Encode(f, img)
}

// DumpOverlayPNG writes src with every quad outlined in red.
func DumpOverlayPNG(dir string, src image.Image, quads [][4]image.Point) (string, error) {
	b := src.Bounds()
	canvas := image.NewRGBA(b)
	draw.Draw(canvas, b, src, b.Min, draw.Src)
	for _, q := range quads {
		utils.DrawPolygon(canvas, quadPoints(q), color.RGBA{255, 0, 0, 255}, 2)
	}
	return writePNG(dir, "qr_overlay", canvas)
}

// DumpComparePNG writes src with quad outlined on the left and the rectified
// symbol dst on the right.
func DumpComparePNG(dir string, src image.Image, quad [4]image.Point, dst image.Image) (string, error) {
	sb := src.Bounds()
	db := dst.Bounds()
	gap := 10
	outW := sb.Dx() + gap + db.Dx()
	outH := max(sb.Dy(), db.Dy())

	canvas := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.Draw(canvas, image.Rect(0, 0, sb.Dx(), sb.Dy()), src, sb.Min, draw.Src)
	xoff := sb.Dx() + gap
	draw.Draw(canvas, image.Rect(xoff, 0, xoff+db.Dx(), db.Dy()), dst, db.Min, draw.Src)

	shifted := quad
	for i := range shifted {
		shifted[i] = shifted[i].Sub(sb.Min)
	}
	utils.DrawPolygon(canvas, quadPoints(shifted), color.RGBA{255, 0, 0, 255}, 2)
	utils.DrawRect(canvas, image.Rect(xoff, 0, xoff+db.Dx(), db.Dy()), color.RGBA{0, 255, 0, 255}, 2)
	return writePNG(dir, "qr_compare", canvas)
}
