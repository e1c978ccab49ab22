package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sub", DefaultDBName), cfg.DBPath)
	assert.Equal(t, "date-desc", cfg.DefaultSort)
	assert.True(t, cfg.CaseInsensitive)
	assert.Equal(t, "/", cfg.Keys.Search)
}

func TestLoadOrCreateReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	content := `
db_path = "/var/lib/planner/tasks.db"
default_sort = "title-asc"
case_insensitive = false

[keys]
quit = "Q"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/planner/tasks.db", cfg.DBPath)
	assert.Equal(t, "title-asc", cfg.DefaultSort)
	assert.False(t, cfg.CaseInsensitive)
	assert.Equal(t, "Q", cfg.Keys.Quit)
	assert.Equal(t, "a", cfg.Keys.Add)
	assert.Equal(t, "en", cfg.Locale)
}

func TestLoadOrCreateEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	t.Setenv("PLANNER_DB_PATH", "/tmp/override.db")
	t.Setenv("PLANNER_LOG_LEVEL", "debug")
	t.Setenv("PLANNER_CASE_INSENSITIVE", "false")

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.CaseInsensitive)
}

func TestLoadOrCreateIgnoresUnprefixedEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_PATH", "/tmp/other.db")
	t.Setenv("LOCALE", "de")

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join(filepath.Dir(path), DefaultDBName), cfg.DBPath)
	assert.Equal(t, "en", cfg.Locale)
}

func TestLoadOrCreateNormalizesSort(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`default_sort = " Title-Asc "`), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, "title-asc", cfg.DefaultSort)
}

func TestLoadOrCreateBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("db_path = ["), 0o644))

	_, err := LoadOrCreate(path)
	assert.Error(t, err)
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("PLANNER_CONFIG", "/etc/planner.toml")
	assert.Equal(t, "/etc/planner.toml", ResolveConfigPath())
}
