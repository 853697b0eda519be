package rectify

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/qrscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpOverlayPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	src := testutil.CreateTestImage(64, 48, color.White)
	quads := [][4]image.Point{{{X: 5, Y: 5}, {X: 40, Y: 5}, {X: 40, Y: 40}, {X: 5, Y: 40}}}

	path, err := DumpOverlayPNG(dir, src, quads)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "qr_overlay_"))

	img := testutil.LoadImage(t, path)
	assert.Equal(t, src.Bounds(), img.Bounds())
	r, g, _, _ := img.At(20, 5).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
}

func TestDumpComparePNG(t *testing.T) {
	dir := t.TempDir()
	src := testutil.CreateTestImage(50, 40, color.White)
	dst := testutil.CreateTestImage(20, 60, color.Black)
	quad := [4]image.Point{{X: 2, Y: 2}, {X: 30, Y: 2}, {X: 30, Y: 30}, {X: 2, Y: 30}}

	path, err := DumpComparePNG(dir, src, quad, dst)
	require.NoError(t, err)

	img := testutil.LoadImage(t, path)
	assert.Equal(t, image.Rect(0, 0, 50+10+20, 60), img.Bounds())
}

func TestDumpUnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := DumpOverlayPNG(filepath.Join(file, "sub"), testutil.CreateTestImage(4, 4, color.White), nil)
	require.Error(t, err)
}
