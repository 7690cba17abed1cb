package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "EVENTS", cfg.Storage.Key)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
listen: ":9000"
week_start: Monday
storage:
  driver: sqlite
layout:
  cell_height: 120
  gap: -4
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, filepath.Join("~/.local/share/monthcal", "monthcal.db"), cfg.Storage.Path)
	assert.Equal(t, 120, cfg.Layout.CellHeight)
	assert.Equal(t, 20, cfg.Layout.EventHeight)
	assert.Equal(t, 0, cfg.Layout.Gap)
	assert.False(t, cfg.BasicAuthEnabled())
}

func TestUnknownValuesFallBack(t *testing.T) {
	cfg := &Config{WeekStart: "friday", Storage: StorageConfig{Driver: "redis"}}
	cfg.Normalize()
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, "file", cfg.Storage.Driver)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestBasicAuthEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BasicAuth = &BasicAuthConfig{Username: "u"}
	assert.False(t, cfg.BasicAuthEnabled())
	cfg.BasicAuth.Password = "p"
	assert.True(t, cfg.BasicAuthEnabled())
}

func TestSaveRejectsEmptyPath(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}
