package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

// execute runs a fresh command tree and returns its stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// writeSymbol renders content as a PNG in dir.
func writeSymbol(t *testing.T, dir, name, content string) string {
	t.Helper()
	cfg := testutil.DefaultSymbolConfig()
	cfg.Content = content
	path := filepath.Join(dir, name)
	testutil.SaveImage(t, testutil.MustSymbolImage(t, cfg), path)
	return path
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "qrscan", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"image", "batch", "pdf", "watch", "serve", "config"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "qrscan finds QR codes")
}

func TestRootCommandVersion(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "qrscan version "))
	assert.Contains(t, out, "Commit: ")
	assert.Contains(t, out, "Built: ")
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, _, err := execute(t, "--no-such-flag")
	require.Error(t, err)
}

func TestRootCommandBadLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := writeSymbol(t, dir, "a.png", "x")
	_, _, err := execute(t, "image", path, "--log-level", "loud")
	require.ErrorContains(t, err, "error loading configuration")
}

func TestRootCommandVerboseLogsToStderr(t *testing.T) {
	dir := t.TempDir()
	path := writeSymbol(t, dir, "a.png", "verbose")
	out, errOut, err := execute(t, "image", path, "--verbose")
	require.NoError(t, err)
	assert.Equal(t, "verbose\n", out)
	assert.Contains(t, errOut, `"msg":"Scanned image"`)
}
