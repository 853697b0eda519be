package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SymbolFixture pairs a rendered symbol with what a scan should report.
type SymbolFixture struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	InputFile   string       `json:"input_file"`
	Symbol      SymbolConfig `json:"-"`
	Expected    ExpectedScan `json:"expected"`
}

// ExpectedScan is the expected outcome for one fixture image.
type ExpectedScan struct {
	Payloads []string `json:"payloads"`
	Version  int      `json:"version,omitempty"`
	Level    string   `json:"level,omitempty"`
	DataType string   `json:"data_type,omitempty"`
}

// StandardFixtures returns the symbol fixtures shared by the scanner,
// batch and CLI tests.
func StandardFixtures() []SymbolFixture {
	plain := DefaultSymbolConfig()
	plain.Content = "HELLO WORLD"
	plain.Version = 1
	plain.Level = 'Q'

	url := DefaultSymbolConfig()
	url.Content = "https://example.com/qrscan?id=42"
	url.Version = 3
	url.Level = 'M'

	numeric := DefaultSymbolConfig()
	numeric.Content = "0123456789012345"
	numeric.Version = 1
	numeric.Level = 'L'
	numeric.Scale = 6

	rotated := DefaultSymbolConfig()
	rotated.Content = "rotated symbol"
	rotated.Version = 2
	rotated.Level = 'H'
	rotated.Scale = 6
	rotated.Rotation = 90

	captioned := DefaultSymbolConfig()
	captioned.Content = "captioned"
	captioned.Version = 2
	captioned.Caption = "scan me"

	return []SymbolFixture{
		{
			Name: "alphanumeric_v1", Description: "Alphanumeric payload in a version 1 symbol",
			InputFile: "alphanumeric_v1.png", Symbol: plain,
			Expected: ExpectedScan{Payloads: []string{"HELLO WORLD"}, Version: 1, Level: "Q", DataType: "alphanumeric"},
		},
		{
			Name: "url_v3", Description: "Byte payload holding a URL",
			InputFile: "url_v3.png", Symbol: url,
			Expected: ExpectedScan{Payloads: []string{url.Content}, Version: 3, Level: "M", DataType: "byte"},
		},
		{
			Name: "numeric_v1", Description: "Numeric payload at 6 px per module",
			InputFile: "numeric_v1.png", Symbol: numeric,
			Expected: ExpectedScan{Payloads: []string{numeric.Content}, Version: 1, Level: "L", DataType: "numeric"},
		},
		{
			Name: "rotated_v2", Description: "Symbol rotated by 90 degrees",
			InputFile: "rotated_v2.png", Symbol: rotated,
			Expected: ExpectedScan{Payloads: []string{rotated.Content}, Version: 2, Level: "H", DataType: "byte"},
		},
		{
			Name: "captioned_v2", Description: "Symbol with a text caption underneath",
			InputFile: "captioned_v2.png", Symbol: captioned,
			Expected: ExpectedScan{Payloads: []string{captioned.Content}, Version: 2, Level: "M", DataType: "byte"},
		},
	}
}

// WriteFixtures renders every fixture into dir as PNG plus a JSON sidecar
// and returns the image paths in fixture order.
func WriteFixtures(t *testing.T, dir string, fixtures []SymbolFixture) []string {
	t.Helper()

	paths := make([]string, 0, len(fixtures))
	for _, f := range fixtures {
		img := MustSymbolImage(t, f.Symbol)
		path := filepath.Join(dir, f.InputFile)
		SaveImage(t, img, path)
		SaveFixture(t, dir, f)
		paths = append(paths, path)
	}
	return paths
}

// SaveFixture writes fixture as <dir>/<name>.json.
func SaveFixture(t *testing.T, dir string, fixture SymbolFixture) {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	data, err := json.MarshalIndent(fixture, "", "  ")
	require.NoError(t, err, "Failed to marshal fixture to JSON")

	path := filepath.Join(dir, fixture.Name+".json")
	require.NoError(t, os.WriteFile(path, data, 0o600), "Failed to write fixture file: %s", path)
}

// LoadFixture reads <dir>/<name>.json.
func LoadFixture(t *testing.T, dir, name string) SymbolFixture {
	t.Helper()

	path := filepath.Join(dir, name+".json")
	data, err := os.ReadFile(path) //nolint:gosec // G304: Reading test fixture files with controlled paths
	require.NoError(t, err, "Failed to read fixture file: %s", path)

	var fixture SymbolFixture
	require.NoError(t, json.Unmarshal(data, &fixture), "Failed to unmarshal fixture JSON")
	return fixture
}
