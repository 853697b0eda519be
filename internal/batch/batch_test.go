package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/qrscan/internal/scanner"
	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

// writeSymbol renders content as a PNG on fsys.
func writeSymbol(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	cfg := testutil.DefaultSymbolConfig()
	cfg.Content = content
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.MustSymbolImage(t, cfg)))
	require.NoError(t, afero.WriteFile(fsys, path, buf.Bytes(), 0o644))
}

func memConfig(fsys afero.Fs) *Config {
	cfg := DefaultConfig()
	cfg.Fs = fsys
	cfg.Workers = 2
	return cfg
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Workers = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Format = "xml"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Scanner.Detector.MaxGrids = 0
	require.Error(t, cfg.Validate())
}

func TestProcessBatchNoImages(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/empty", 0o755))

	res, err := ProcessBatch(context.Background(), []string{"/empty"}, memConfig(fsys))
	require.ErrorIs(t, err, ErrNoImages)
	assert.Nil(t, res)
}

func TestProcessBatchMissingPath(t *testing.T) {
	res, err := ProcessBatch(context.Background(), []string{"/nonexistent/file.png"}, memConfig(afero.NewMemMapFs()))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestProcessBatchScansFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeSymbol(t, fsys, "/in/a.png", "alpha")
	writeSymbol(t, fsys, "/in/b.png", "beta")
	writeSymbol(t, fsys, "/in/sub/c.png", "gamma")
	require.NoError(t, afero.WriteFile(fsys, "/in/notes.txt", []byte("x"), 0o644))

	res, err := ProcessBatch(context.Background(), []string{"/in"}, memConfig(fsys))
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "/in/a.png", res.Files[0].Path)
	assert.Equal(t, []string{"alpha"}, res.Files[0].Result.Values())
	assert.Equal(t, []string{"beta"}, res.Files[1].Result.Values())
	assert.Equal(t, 2, res.WorkerCount)

	cfg := memConfig(fsys)
	cfg.Recursive = true
	res, err = ProcessBatch(context.Background(), []string{"/in"}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Files, 3)

	st := res.Stats()
	assert.Equal(t, 3, st.Files)
	assert.Equal(t, 3, st.WithSymbols)
	assert.Equal(t, 3, st.Symbols)
	assert.Zero(t, st.Failed)
}

func TestProcessBatchContinueOnError(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeSymbol(t, fsys, "/in/good.png", "good")
	require.NoError(t, afero.WriteFile(fsys, "/in/broken.png", []byte("not an image"), 0o644))

	_, err := ProcessBatch(context.Background(), []string{"/in"}, memConfig(fsys))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.png")

	cfg := memConfig(fsys)
	cfg.ContinueOnError = true
	res, err := ProcessBatch(context.Background(), []string{"/in"}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)

	broken, good := res.Files[0], res.Files[1]
	assert.Equal(t, "/in/broken.png", broken.Path)
	require.Error(t, broken.Err)
	assert.NotEmpty(t, broken.Error)
	assert.Nil(t, broken.Result)
	assert.Equal(t, []string{"good"}, good.Result.Values())

	st := res.Stats()
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, 1, st.Symbols)
}

func TestProcessBatchOverlays(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeSymbol(t, fsys, "/in/code.png", "overlay")

	cfg := memConfig(fsys)
	cfg.OverlayDir = "/out"
	_, err := ProcessBatch(context.Background(), []string{"/in/code.png"}, cfg)
	require.NoError(t, err)

	ok, err := afero.Exists(fsys, "/out/code_overlay.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProcessBatchCancelled(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeSymbol(t, fsys, "/in/a.png", "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ProcessBatch(ctx, []string{"/in"}, memConfig(fsys))
	require.ErrorIs(t, err, context.Canceled)
}

func sampleResult() *Result {
	ok := &scanner.ImageResult{Width: 100, Height: 100, Detected: 2}
	ok.Symbols = []scanner.Result{
		{RawValue: "first", DataType: "byte", Version: 1, ECLevel: "M", BoundingBox: scanner.Rect{X: 1, Y: 2, Width: 30, Height: 30}},
		{Error: "qrcode: format information not found", Reason: "format_ecc"},
	}
	return &Result{
		Files: []FileResult{
			{Path: "a.png", Result: ok},
			{Path: "b.png", Err: assert.AnError, Error: assert.AnError.Error()},
		},
		WorkerCount: 1,
	}
}

func TestFormatText(t *testing.T) {
	out, err := sampleResult().FormatResults("text")
	require.NoError(t, err)
	assert.Equal(t, "# a.png\nfirst\n\n# b.png\nerror: "+assert.AnError.Error()+"\n", out)
}

func TestFormatJSON(t *testing.T) {
	out, err := sampleResult().FormatResults("json")
	require.NoError(t, err)

	var doc struct {
		Images []struct {
			File   string `json:"file"`
			Error  string `json:"error"`
			Result *struct {
				Symbols []struct {
					RawValue string `json:"rawValue"`
					Reason   string `json:"reason"`
				} `json:"symbols"`
			} `json:"result"`
		} `json:"images"`
		Stats Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Images, 2)
	assert.Equal(t, "first", doc.Images[0].Result.Symbols[0].RawValue)
	assert.Equal(t, "format_ecc", doc.Images[0].Result.Symbols[1].Reason)
	assert.Nil(t, doc.Images[1].Result)
	assert.NotEmpty(t, doc.Images[1].Error)
	assert.Equal(t, 1, doc.Stats.Failed)
	assert.Equal(t, 1, doc.Stats.Undecoded)
}

func TestFormatYAML(t *testing.T) {
	out, err := sampleResult().FormatResults("yaml")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "images")
	assert.Contains(t, out, "raw_value: first")
}

func TestFormatCSV(t *testing.T) {
	out, err := sampleResult().FormatResults("csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "file,index,value"))
	assert.True(t, strings.HasPrefix(lines[1], "a.png,0,first,byte,1,M,1,2,30,30,"))
	assert.True(t, strings.HasPrefix(lines[3], "b.png,"))
}

func TestFormatUnknown(t *testing.T) {
	_, err := sampleResult().FormatResults("xml")
	require.Error(t, err)
}

func TestWriteResults(t *testing.T) {
	fsys := afero.NewMemMapFs()
	r := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, r.WriteResults(&buf, fsys, "text", ""))
	assert.Contains(t, buf.String(), "# a.png")

	require.NoError(t, r.WriteResults(&buf, fsys, "json", "/results.json"))
	data, err := afero.ReadFile(fsys, "/results.json")
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	require.Error(t, r.WriteResults(&buf, fsys, "xml", ""))
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	sampleResult().PrintStats(&buf)
	assert.Contains(t, buf.String(), "Files: 2 (1 failed)")
	assert.Contains(t, buf.String(), "Symbols decoded: 1 (1 undecodable)")
}
