package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsToMemoryStore(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "chat.events", cfg.AMQPExchange)
}

func TestLoadSelectsPostgresWhenDSNSet(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DSN", "postgres://u:p@localhost:5432/db?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StoreBackend)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9000\"\nlog_level: debug\ndebug_routes: true\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_DSN", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.DebugRoutes)
}

func TestValidateRejectsPostgresWithoutDSN(t *testing.T) {
	cfg := defaults()
	cfg.StoreBackend = "postgres"
	require.Error(t, cfg.Validate())

	cfg.StoreBackend = "cassandra"
	require.Error(t, cfg.Validate())
}
