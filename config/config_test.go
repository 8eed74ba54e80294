package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlog/session-engine/config"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "harborlog.db", cfg.Database.Path)
	assert.NotEmpty(t, cfg.Server.AllowedOrigins)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harborlog.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 3000

[database]
path = "/tmp/test.db"
`), 0o644))

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HARBORLOG_PORT", "9090")
	t.Setenv("HARBORLOG_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_BadPort(t *testing.T) {
	t.Setenv("HARBORLOG_PORT", "not-a-port")

	_, err := config.Load("")

	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/does/not/exist.toml")

	assert.Error(t, err)
}
