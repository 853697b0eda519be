package batch

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discoveryFs(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, p := range []string{
		"/img/a.png",
		"/img/b.jpg",
		"/img/notes.txt",
		"/img/skip_me.png",
		"/img/sub/c.png",
		"/img/sub/deeper/d.bmp",
	} {
		require.NoError(t, afero.WriteFile(fsys, p, []byte("x"), 0o644))
	}
	return fsys
}

func TestDiscoverEmptyArgs(t *testing.T) {
	files, err := discoverImageFiles(afero.NewMemMapFs(), nil, false, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverDirectory(t *testing.T) {
	files, err := discoverImageFiles(discoveryFs(t), []string{"/img"}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/img/a.png", "/img/b.jpg", "/img/skip_me.png"}, files)
}

func TestDiscoverRecursive(t *testing.T) {
	files, err := discoverImageFiles(discoveryFs(t), []string{"/img"}, true, nil, nil)
	require.NoError(t, err)
	assert.Len(t, files, 5)
	assert.Contains(t, files, "/img/sub/deeper/d.bmp")
	assert.NotContains(t, files, "/img/notes.txt")
}

func TestDiscoverPatterns(t *testing.T) {
	files, err := discoverImageFiles(discoveryFs(t), []string{"/img"}, true, []string{"*.png"}, []string{"skip_*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/img/a.png", "/img/sub/c.png"}, files)
}

func TestDiscoverExplicitFile(t *testing.T) {
	fsys := discoveryFs(t)
	files, err := discoverImageFiles(fsys, []string{"/img/b.jpg", "/img/a.png"}, false, []string{"*.jpg"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/img/b.jpg"}, files)

	_, err = discoverImageFiles(fsys, []string{"/missing"}, false, nil, nil)
	require.Error(t, err)
}

func TestShouldIncludeFile(t *testing.T) {
	assert.True(t, shouldIncludeFile("/x/a.png", nil, nil))
	assert.False(t, shouldIncludeFile("/x/a.png", nil, []string{"a.*"}))
	assert.True(t, shouldIncludeFile("/x/a.png", []string{"*.png"}, []string{"b.*"}))
	assert.False(t, shouldIncludeFile("/x/a.png", []string{"*.jpg"}, nil))
	assert.False(t, matchesAnyPattern("/x/a.png", nil))
}

func TestMatchImage(t *testing.T) {
	assert.True(t, MatchImage("/x/a.PNG", nil, nil))
	assert.False(t, MatchImage("/x/notes.txt", nil, nil))
	assert.False(t, MatchImage("/x/notes.txt", []string{"*.txt"}, nil))
	assert.False(t, MatchImage("/x/tmp.png", nil, []string{"tmp*"}))
}
