package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	require.NotNil(t, l)
	assert.Same(t, viper.GetViper(), l.Viper())
}

func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	def := DefaultConfig()
	assert.Equal(t, def.LogLevel, cfg.LogLevel)
	assert.Equal(t, def.Scanner, cfg.Scanner)
	assert.Equal(t, def.Output, cfg.Output)
	assert.Equal(t, def.Server, cfg.Server)
	assert.Empty(t, cfg.Batch.Include)
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := "log_level: debug\nscanner:\n  max_grids: 2\n  try_inverted: false\noutput:\n  format: json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qrscan.yaml"), []byte(content), 0o600))

	l := newTestLoader()
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Scanner.MaxGrids)
	assert.False(t, cfg.Scanner.TryInverted)
	assert.True(t, cfg.Scanner.TryMirrored)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.NotEmpty(t, l.ConfigFileUsed())
}

func TestLoadWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := "batch:\n  recursive: true\n  include: [\"*.png\", \"*.jpg\"]\nserver:\n  port: 9000\n  rate_limit:\n    requests_per_minute: 30\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := newTestLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Batch.Recursive)
	assert.Equal(t, []string{"*.png", "*.jpg"}, cfg.Batch.Include)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.RateLimit.RequestsPerMinute)
}

func TestLoadWithMissingFile(t *testing.T) {
	_, err := newTestLoader().LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0o600))

	_, err := newTestLoader().LoadWithFile(path)
	require.ErrorIs(t, err, ErrInvalid)

	cfg, err := newTestLoader().LoadWithFileWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "loud", cfg.LogLevel)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scanner: [unclosed\n"), 0o600))

	_, err := newTestLoader().LoadWithFile(path)
	require.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QRSCAN_LOG_LEVEL", "warn")
	t.Setenv("QRSCAN_SCANNER_MAX_GRIDS", "5")
	t.Setenv("QRSCAN_SERVER_PORT", "7070")
	t.Setenv("QRSCAN_SCANNER_TRY_MIRRORED", "false")

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Scanner.MaxGrids)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.False(t, cfg.Scanner.TryMirrored)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	fsys := afero.NewMemMapFs()

	name, err := GenerateDefaultConfigFile(fsys, "", false)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigFile, name)

	data, err := afero.ReadFile(fsys, name)
	require.NoError(t, err)
	var got Config
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, DefaultConfig().Scanner, got.Scanner)
	assert.Equal(t, DefaultConfig().Server, got.Server)

	_, err = GenerateDefaultConfigFile(fsys, "", false)
	require.Error(t, err)
	_, err = GenerateDefaultConfigFile(fsys, "", true)
	require.NoError(t, err)

	name, err = GenerateDefaultConfigFile(fsys, "/etc/qrscan/qrscan.yaml", false)
	require.NoError(t, err)
	ok, err := afero.Exists(fsys, name)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, "/xdg/qrscan")
	assert.Equal(t, "/etc/qrscan", paths[len(paths)-1])
}
