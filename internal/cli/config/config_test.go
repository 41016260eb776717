package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nested", "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.ScrollGuardDelay)
	assert.Equal(t, filepath.Join(dir, "nested", "credentials"), cfg.CredentialsPath())
	assert.DirExists(t, filepath.Join(dir, "nested"))
}

func TestLoadReadsTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[api]
base_url = "https://commune.example.org"
timeout = "5s"

[tui]
scroll_guard_delay = "120ms"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://commune.example.org", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 120*time.Millisecond, cfg.ScrollGuardDelay)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("COMMUNE_API_BASE_URL", "http://10.0.0.5:8080")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8080", cfg.APIBaseURL)
}

func TestRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api\nbase_url = "), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}
