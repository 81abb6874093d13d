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
	t.Setenv("GIAOAN_CONFIG", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("JOURNAL_RETENTION", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, int32(65536), cfg.MaxOutputTokens)
	assert.Equal(t, int32(4096), cfg.ThinkingBudget)
	assert.Equal(t, 180*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 90*24*time.Hour, cfg.JournalRetention)
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestLoadEnvAlias(t *testing.T) {
	t.Setenv("GIAOAN_CONFIG", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "  from-google-alias  ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-google-alias", cfg.GeminiAPIKey)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "giaoan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\ngemini_model: gemini-2.5-pro\nrequest_timeout: 30s\n"), 0o600))

	t.Setenv("GIAOAN_CONFIG", path)
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("PORT", "")
	t.Setenv("REQUEST_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "gemini-2.5-pro", cfg.GeminiModel)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "giaoan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\n"), 0o600))

	t.Setenv("GIAOAN_CONFIG", path)
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("GIAOAN_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{GeminiModel: "m", MaxOutputTokens: 1, RequestTimeout: time.Second}
	assert.NoError(t, cfg.validate())

	cfg.MaxOutputTokens = 0
	assert.Error(t, cfg.validate())
}

func TestCredentialDir(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/giaoan"}
	assert.Equal(t, filepath.Join("/tmp/giaoan", "credential"), cfg.CredentialDir())
}
