package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCommandDirectory(t *testing.T) {
	dir := t.TempDir()
	a := writeSymbol(t, dir, "a.png", "alpha")
	b := writeSymbol(t, dir, "b.png", "beta")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip"), 0o600))

	out, _, err := execute(t, "batch", dir, "--workers", "2")
	require.NoError(t, err)
	assert.Equal(t, "# "+a+"\nalpha\n\n# "+b+"\nbeta\n", out)
}

func TestBatchCommandRecursiveJSON(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o750))
	writeSymbol(t, dir, "top.png", "top")
	writeSymbol(t, sub, "deep.png", "deep")

	out, _, err := execute(t, "batch", dir, "-r", "-f", "json")
	require.NoError(t, err)

	var doc struct {
		Images []struct {
			File string `json:"file"`
		} `json:"images"`
		Stats struct {
			Files   int `json:"files"`
			Symbols int `json:"symbols"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 2, doc.Stats.Files)
	assert.Equal(t, 2, doc.Stats.Symbols)
	require.Len(t, doc.Images, 2)
	assert.Equal(t, filepath.Join(sub, "deep.png"), doc.Images[0].File)
}

func TestBatchCommandContinueOnError(t *testing.T) {
	dir := t.TempDir()
	writeSymbol(t, dir, "good.png", "good")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not a png"), 0o600))

	_, _, err := execute(t, "batch", dir)
	require.ErrorContains(t, err, "bad.png")

	out, errOut, err := execute(t, "batch", dir, "--continue-on-error", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "good\n")
	assert.Contains(t, out, "error: ")
	assert.Contains(t, errOut, "Files: 2 (1 failed)")
}

func TestBatchCommandOutputFile(t *testing.T) {
	dir := t.TempDir()
	writeSymbol(t, dir, "a.png", "saved")
	outFile := filepath.Join(t.TempDir(), "out.csv")

	out, _, err := execute(t, "batch", dir, "--format", "csv", "--output", outFile)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "saved")
}

func TestBatchCommandErrors(t *testing.T) {
	empty := t.TempDir()
	_, _, err := execute(t, "batch", empty)
	require.ErrorContains(t, err, "no image files found")

	_, _, err = execute(t, "batch")
	require.Error(t, err)

	_, _, err = execute(t, "batch", empty, "--workers", "0")
	require.ErrorContains(t, err, "workers")
}
