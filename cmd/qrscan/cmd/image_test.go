package cmd

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/scanner"
	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

func TestImageCommandText(t *testing.T) {
	path := writeSymbol(t, t.TempDir(), "ticket.png", "ticket 42")
	out, _, err := execute(t, "image", path)
	require.NoError(t, err)
	assert.Equal(t, "ticket 42\n", out)
}

func TestImageCommandJSON(t *testing.T) {
	path := writeSymbol(t, t.TempDir(), "ticket.png", "json payload")
	out, _, err := execute(t, "image", path, "--format", "json")
	require.NoError(t, err)

	var res scanner.ImageResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Symbols, 1)
	assert.Equal(t, "json payload", res.Symbols[0].RawValue)
	assert.Positive(t, res.Width)
}

func TestImageCommandCSV(t *testing.T) {
	path := writeSymbol(t, t.TempDir(), "ticket.png", "csv payload")
	out, _, err := execute(t, "image", path, "-f", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(scanner.CSVHeader(), ","), lines[0])
	assert.Contains(t, lines[1], "csv payload")
}

func TestImageCommandMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeSymbol(t, dir, "a.png", "first")
	b := writeSymbol(t, dir, "b.png", "second")

	out, _, err := execute(t, "image", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "# "+a+"\nfirst\n")
	assert.Contains(t, out, "# "+b+"\nsecond\n")
}

func TestImageCommandStdin(t *testing.T) {
	cfg := testutil.DefaultSymbolConfig()
	cfg.Content = "from stdin"
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.MustSymbolImage(t, cfg)))

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetIn(&buf)
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"image", "-"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "from stdin\n", out.String())
}

func TestImageCommandOutputFileAndOverlay(t *testing.T) {
	dir := t.TempDir()
	path := writeSymbol(t, dir, "code.png", "to file")
	outFile := filepath.Join(dir, "result.txt")
	overlays := filepath.Join(dir, "overlays")

	out, _, err := execute(t, "image", path, "--output", outFile, "--overlay-dir", overlays)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "to file\n", string(data))
	assert.FileExists(t, filepath.Join(overlays, "code_overlay.png"))
}

func TestImageCommandConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSymbol(t, dir, "code.png", "configured")
	cfgFile := filepath.Join(dir, "qrscan.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("output:\n  format: json\n"), 0o600))

	out, _, err := execute(t, "image", path, "--config", cfgFile)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)), out)

	// Flags override the file.
	out, _, err = execute(t, "image", path, "--config", cfgFile, "--format", "text")
	require.NoError(t, err)
	assert.Equal(t, "configured\n", out)
}

func TestImageCommandRepeat(t *testing.T) {
	path := writeSymbol(t, t.TempDir(), "code.png", "timed")
	out, errOut, err := execute(t, "image", path, "--repeat", "2")
	require.NoError(t, err)
	assert.Equal(t, "timed\n", out)
	assert.Contains(t, errOut, "code.png")
}

func TestImageCommandErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeSymbol(t, dir, "code.png", "x")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", []string{"image"}, "requires at least 1 arg"},
		{"missing file", []string{"image", filepath.Join(dir, "missing.png")}, "missing.png"},
		{"bad format", []string{"image", path, "--format", "xml"}, "output format"},
		{"bad color", []string{"image", path, "--box-color", "#12"}, "invalid color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#FF8000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 128, A: 255}, c)

	c, err = parseHexColor("00c800")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{G: 200, A: 255}, c)

	for _, bad := range []string{"", "#FFF", "#GGGGGG", "#1234567"} {
		_, err := parseHexColor(bad)
		require.ErrorIs(t, err, errBadColor, bad)
	}
}
