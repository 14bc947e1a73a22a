package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "mlstudio.db", cfg.DatabaseURL)
	assert.Equal(t, "data/uploads", cfg.DataDir)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 2, cfg.FlushEvery)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_port: "9090"
database_url: postgres://localhost/mlstudio?sslmode=disable
tick_interval: 100ms
flush_every: 5
`), 0o644))
	t.Setenv("MLSTUDIO_CONFIG", path)

	cfg := Load()
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "postgres://localhost/mlstudio?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 5, cfg.FlushEvery)
	// Unset file fields keep their defaults.
	assert.Equal(t, "data/uploads", cfg.DataDir)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_port: \"9090\"\n"), 0o644))
	t.Setenv("MLSTUDIO_CONFIG", path)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("TICK_INTERVAL", "50ms")

	cfg := Load()
	assert.Equal(t, "7070", cfg.ServerPort)
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval)
}
