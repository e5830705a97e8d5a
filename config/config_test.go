package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
	assert.Equal(t, "gpt-4.1-mini", cfg.Model)
	assert.Equal(t, 30, cfg.IdleTimeoutSecs)
	assert.Equal(t, "**/*.pdf", cfg.Document.Pattern)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromPath(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
base_url = "https://chat.example.com"
model = "gpt-4.1"

[document]
dir = "/data/papers"
pattern = "*.pdf"
`)

		cfg, err := config.LoadFromPath(path)
		require.NoError(t, err)

		assert.Equal(t, "https://chat.example.com", cfg.BaseURL)
		assert.Equal(t, "gpt-4.1", cfg.Model)
		assert.Equal(t, "/data/papers", cfg.Document.Dir)
		assert.Equal(t, "*.pdf", cfg.Document.Pattern)
		// Unset keys keep their defaults.
		assert.Equal(t, 30, cfg.IdleTimeoutSecs)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := config.LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})

	t.Run("malformed TOML errors", func(t *testing.T) {
		path := writeConfig(t, "base_url = [broken")
		_, err := config.LoadFromPath(path)
		assert.Error(t, err)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("RAGCHAT_BASE_URL", "http://10.0.0.5:9000")
		t.Setenv("RAGCHAT_MODEL", "gpt-4o-mini")

		path := writeConfig(t, `base_url = "http://localhost:8000"`)
		cfg, err := config.LoadFromPath(path)
		require.NoError(t, err)

		assert.Equal(t, "http://10.0.0.5:9000", cfg.BaseURL)
		assert.Equal(t, "gpt-4o-mini", cfg.Model)
	})

	t.Run("malformed idle timeout env errors", func(t *testing.T) {
		t.Setenv("RAGCHAT_IDLE_TIMEOUT_SECS", "soon")

		path := writeConfig(t, `base_url = "http://localhost:8000"`)
		_, err := config.LoadFromPath(path)
		assert.ErrorIs(t, err, ragchat.ErrValidation)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("rejects unusable base URL", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.BaseURL = "not a url"
		assert.ErrorIs(t, cfg.Validate(), ragchat.ErrValidation)
	})

	t.Run("rejects empty model", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Model = ""
		assert.ErrorIs(t, cfg.Validate(), ragchat.ErrValidation)
	})

	t.Run("rejects non-positive idle timeout", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.IdleTimeoutSecs = 0
		assert.ErrorIs(t, cfg.Validate(), ragchat.ErrValidation)
	})

	t.Run("rejects invalid document glob", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Document.Pattern = "[unclosed"
		assert.ErrorIs(t, cfg.Validate(), ragchat.ErrValidation)
	})
}

func TestConfig_IdleTimeout(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.IdleTimeoutSecs = 45
	assert.Equal(t, "45s", cfg.IdleTimeout().String())
}
