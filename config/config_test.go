package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Source.Kind)
	assert.Equal(t, 25, cfg.Engine.DefaultLimit)
	assert.Equal(t, 100, cfg.Engine.MaxLimit)
	assert.Equal(t, 30, cfg.Engine.CacheTTLSeconds)
	assert.Equal(t, "qe:results", cfg.Redis.Prefix)
	assert.Equal(t, "forum-query-engine", cfg.Log.ServiceName)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
engine:
  max_limit: 40
  enable_scroll_cursors: true
source:
  kind: postgres
  database_url: postgres://forum@localhost/forum
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("QE_ENGINE_DEFAULT_LIMIT", "10")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 40, cfg.Engine.MaxLimit)
	assert.Equal(t, 10, cfg.Engine.DefaultLimit)
	assert.True(t, cfg.Engine.EnableScrollCursors)
	assert.Equal(t, "postgres", cfg.Source.Kind)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  kind: ftp\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
