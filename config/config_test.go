package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
version = "1"

[log]
level = "debug"
format = "text"

[forest]
trees = 80
features = 4
method = "BALANCED"
seed = 42

[storage]
backend = "local"
dir = "/tmp/models"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	var cfg Config
	require.NoError(t, Load(writeConfig(t, sample), &cfg))

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 80, cfg.Forest.Trees)
	assert.Equal(t, 4, cfg.Forest.Features)
	assert.Equal(t, "BALANCED", cfg.Forest.Method)
	assert.Equal(t, uint64(42), cfg.Forest.Seed)
	assert.Zero(t, cfg.Forest.MaxDepth)
	assert.Equal(t, "/tmp/models", cfg.Storage.Dir)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RF_FOREST_TREES", "7")
	t.Setenv("RF_FOREST_WORKERS", "3")

	var cfg Config
	require.NoError(t, Load(writeConfig(t, sample), &cfg))
	assert.Equal(t, 7, cfg.Forest.Trees)
	assert.Equal(t, 3, cfg.Forest.Workers)
}

func TestLoadRejectsUnknownMethod(t *testing.T) {
	var cfg Config
	err := Load(writeConfig(t, "[forest]\nmethod = \"BOOTSTRAP\"\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoadMissingFile(t *testing.T) {
	var cfg Config
	assert.Error(t, Load(filepath.Join(t.TempDir(), "absent.toml"), &cfg))
}

func TestMask(t *testing.T) {
	m := map[string]any{
		"Minio": map[string]any{"SecretAccessKey": "s3cr3t", "Endpoint": "localhost:9000"},
	}
	mask(m)
	minio := m["Minio"].(map[string]any)
	assert.Equal(t, "******", minio["SecretAccessKey"])
	assert.Equal(t, "localhost:9000", minio["Endpoint"])
}

func TestLoggingConfig(t *testing.T) {
	cfg := Config{Log: LogConfig{Level: "warn", File: "x.log", MaxSize: 10}}
	lc := cfg.LoggingConfig("trainer")
	assert.Equal(t, "trainer", lc.Service)
	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, 10, lc.MaxSize)
}
