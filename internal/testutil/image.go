package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	encoder "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common test canvas sizes.
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
	LargeSize  = ImageSize{1024, 768}
)

// Recovery levels of the reference encoder, indexed L, M, Q, H.
var encoderLevels = map[byte]encoder.RecoveryLevel{
	'L': encoder.Low,
	'M': encoder.Medium,
	'Q': encoder.High,
	'H': encoder.Highest,
}

// SymbolConfig describes a rendered QR fixture.
type SymbolConfig struct {
	Content string
	Version int  // 0 lets the encoder pick the smallest version
	Level   byte // 'L', 'M', 'Q' or 'H'
	Scale   int  // pixels per module
	Quiet   int  // quiet zone in modules
	// Rotation in degrees, counter-clockwise, applied after rendering.
	Rotation   float64
	Background color.Color
	Foreground color.Color
	// Caption is drawn below the symbol when set.
	Caption string
}

// DefaultSymbolConfig returns a 4 px/module, level M fixture config.
func DefaultSymbolConfig() SymbolConfig {
	return SymbolConfig{
		Content:    "qrscan",
		Level:      'M',
		Scale:      4,
		Quiet:      4,
		Background: color.White,
		Foreground: color.Black,
	}
}

// SymbolModules encodes content and returns the module matrix without a
// quiet zone, indexed [y][x].
func SymbolModules(content string, version int, level byte) ([][]bool, error) {
	lvl, ok := encoderLevels[level]
	if !ok {
		return nil, fmt.Errorf("unknown error correction level %q", level)
	}
	var (
		q   *encoder.QRCode
		err error
	)
	if version > 0 {
		q, err = encoder.NewWithForcedVersion(content, version, lvl)
	} else {
		q, err = encoder.New(content, lvl)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", content, err)
	}
	q.DisableBorder = true
	return q.Bitmap(), nil
}

// GenerateSymbolImage renders a QR fixture described by config.
func GenerateSymbolImage(config SymbolConfig) (*image.RGBA, error) {
	modules, err := SymbolModules(config.Content, config.Version, config.Level)
	if err != nil {
		return nil, err
	}
	scale := max(config.Scale, 1)
	side := (len(modules) + 2*config.Quiet) * scale
	height := side
	if config.Caption != "" {
		height += basicfont.Face7x13.Metrics().Height.Ceil() + scale
	}

	img := image.NewRGBA(image.Rect(0, 0, side, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{config.Background}, image.Point{}, draw.Src)
	fg := &image.Uniform{config.Foreground}
	for y, row := range modules {
		for x, dark := range row {
			if !dark {
				continue
			}
			x0 := (x + config.Quiet) * scale
			y0 := (y + config.Quiet) * scale
			draw.Draw(img, image.Rect(x0, y0, x0+scale, y0+scale), fg, image.Point{}, draw.Src)
		}
	}

	if config.Caption != "" {
		drawer := &font.Drawer{Dst: img, Src: fg, Face: basicfont.Face7x13}
		width := font.MeasureString(basicfont.Face7x13, config.Caption).Ceil()
		drawer.Dot = fixed.P((side-width)/2, height-scale)
		drawer.DrawString(config.Caption)
	}

	if config.Rotation != 0 {
		rotated := imaging.Rotate(img, config.Rotation, config.Background)
		rgba := image.NewRGBA(rotated.Bounds())
		draw.Draw(rgba, rgba.Bounds(), rotated, rotated.Bounds().Min, draw.Src)
		return rgba, nil
	}
	return img, nil
}

// MustSymbolImage is GenerateSymbolImage for tests.
func MustSymbolImage(t *testing.T, config SymbolConfig) *image.RGBA {
	t.Helper()

	img, err := GenerateSymbolImage(config)
	require.NoError(t, err, "Failed to render symbol %q", config.Content)
	return img
}

// Compose pastes each image onto a white canvas at the given offset.
func Compose(size ImageSize, images []image.Image, offsets []image.Point) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	for i, img := range images {
		r := img.Bounds().Sub(img.Bounds().Min).Add(offsets[i])
		draw.Draw(canvas, r, img, img.Bounds().Min, draw.Src)
	}
	return canvas
}

// Negative returns the photographic negative of img.
func Negative(img image.Image) *image.NRGBA {
	return imaging.Invert(img)
}

// Mirror returns img flipped left to right.
func Mirror(img image.Image) *image.NRGBA {
	return imaging.FlipH(img)
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o750)
}

// SaveImage saves an image to the specified path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	err = png.Encode(file, img)
	require.NoError(t, err, "Failed to encode PNG image")
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	img, err := LoadImageFile(path)
	require.NoError(t, err)
	return img
}

// CompareImages reports whether two images of the same bounds differ by at
// most tolerance (0..1) on average.
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	bounds1 := img1.Bounds()
	if bounds1 != img2.Bounds() {
		return false
	}

	var totalDiff, pixelCount float64
	for y := bounds1.Min.Y; y < bounds1.Max.Y; y++ {
		for x := bounds1.Min.X; x < bounds1.Max.X; x++ {
			r1, g1, b1, a1 := img1.At(x, y).RGBA()
			r2, g2, b2, a2 := img2.At(x, y).RGBA()

			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			da := float64(a1) - float64(a2)

			totalDiff += math.Sqrt(dr*dr + dg*dg + db*db + da*da)
			pixelCount++
		}
	}

	maxDiff := math.Sqrt(4 * 65535 * 65535)
	return totalDiff/pixelCount/maxDiff <= tolerance
}

// CreateTestImage creates a uniformly colored image.
func CreateTestImage(width, height int, backgroundColor color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return img
}

// LoadImageFile loads an image from the specified path (non-testing version).
func LoadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: Opening user-provided image file is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
