package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardFixturesRender(t *testing.T) {
	for _, f := range StandardFixtures() {
		t.Run(f.Name, func(t *testing.T) {
			img, err := GenerateSymbolImage(f.Symbol)
			require.NoError(t, err)
			assert.NotEmpty(t, f.Expected.Payloads)
			assert.Positive(t, img.Bounds().Dx())
		})
	}
}

func TestWriteAndLoadFixtures(t *testing.T) {
	dir := t.TempDir()
	fixtures := StandardFixtures()[:2]

	paths := WriteFixtures(t, dir, fixtures)
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.FileExists(t, p)
	}

	loaded := LoadFixture(t, dir, fixtures[1].Name)
	assert.Equal(t, fixtures[1].Name, loaded.Name)
	assert.Equal(t, fixtures[1].Expected, loaded.Expected)
	assert.Equal(t, filepath.Base(paths[1]), loaded.InputFile)
}
