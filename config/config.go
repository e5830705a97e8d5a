// Package config loads ragchat configuration from a TOML file with
// defaults and environment variable overrides.
//
// The config file lives at ~/.ragchat/config.toml. A missing file is not
// an error: defaults are used, with the environment applied on top.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/fwojciec/ragchat"
)

// Config is the complete ragchat configuration.
type Config struct {
	// BaseURL is the root URL of the chat service.
	BaseURL string `toml:"base_url"`
	// Model is the model identifier sent with every turn.
	Model string `toml:"model"`
	// IdleTimeoutSecs aborts a turn when the stream stalls for this long.
	IdleTimeoutSecs int `toml:"idle_timeout_secs"`

	Document DocumentConfig `toml:"document"`
	Prompts  PromptsConfig  `toml:"prompts"`
	Log      LogConfig      `toml:"log"`
}

// DocumentConfig controls the startup document upload.
type DocumentConfig struct {
	// Dir is scanned for a PDF to upload on startup. Empty disables the scan.
	Dir string `toml:"dir"`
	// Pattern is the glob matched against file paths under Dir.
	Pattern string `toml:"pattern"`
}

// PromptsConfig holds the system prompts seeded into each conversation.
type PromptsConfig struct {
	Chat     string `toml:"chat"`
	Document string `toml:"document"`
}

// LogConfig controls debug logging.
type LogConfig struct {
	// Path is the debug log file. Empty disables logging.
	Path string `toml:"path"`
	// Level is a zerolog level name ("debug", "info", ...).
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:         "http://localhost:8000",
		Model:           "gpt-4.1-mini",
		IdleTimeoutSecs: 30,
		Document: DocumentConfig{
			Pattern: "**/*.pdf",
		},
		Prompts: PromptsConfig{
			Chat:     "You are a helpful assistant.",
			Document: "You are a helpful assistant that answers questions based on the provided PDF content.",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".ragchat", "config.toml"), nil
}

// Load reads the config file at the default location. A missing file yields
// the defaults. Environment overrides are applied last, then the result is
// validated.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("config: decoding %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads the config file at an explicit location. The file must
// exist.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays RAGCHAT_* environment variables. The credential is
// deliberately not part of the config: it is read from RAGCHAT_API_KEY by
// the caller and never written to disk.
func (c *Config) applyEnv() error {
	if v := os.Getenv("RAGCHAT_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("RAGCHAT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("RAGCHAT_DOC_DIR"); v != "" {
		c.Document.Dir = v
	}
	if v := os.Getenv("RAGCHAT_IDLE_TIMEOUT_SECS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: RAGCHAT_IDLE_TIMEOUT_SECS %q: %w", v, ragchat.ErrValidation)
		}
		c.IdleTimeoutSecs = secs
	}
	return nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: base_url %q is not a valid URL: %w", c.BaseURL, ragchat.ErrValidation)
	}
	if c.Model == "" {
		return fmt.Errorf("config: model must not be empty: %w", ragchat.ErrValidation)
	}
	if c.IdleTimeoutSecs <= 0 {
		return fmt.Errorf("config: idle_timeout_secs must be positive: %w", ragchat.ErrValidation)
	}
	if c.Document.Pattern != "" && !doublestar.ValidatePattern(c.Document.Pattern) {
		return fmt.Errorf("config: document.pattern %q is not a valid glob: %w", c.Document.Pattern, ragchat.ErrValidation)
	}
	return nil
}

// IdleTimeout returns the stall timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSecs) * time.Second
}
