// Package config reads hairtry settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/manash/hairtry/internal/logging"
	"github.com/manash/hairtry/pkg/models"
)

const (
	DefaultAddr      = "127.0.0.1:8080"
	DefaultOutputDir = "."
	DefaultFFmpeg    = "ffmpeg"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Provider     models.ProviderType
	Model        string
	GeminiAPIKey string
	OpenAIAPIKey string

	OutputDir      string
	HistoryLimit   int
	CatalogPath    string
	PreviewBaseURL string

	CameraDevice string
	FFmpegPath   string

	Addr       string
	LogLevel   string
	Env        string
	TimeoutSec int
}

// LoadDotEnv reads KEY=VALUE files into the process environment.
// Missing files are skipped; variables already set are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds a Config from getenv, applying defaults for unset keys.
func Load(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Provider:       models.ProviderType(strings.ToLower(get("HAIRTRY_PROVIDER", string(models.ProviderGemini)))),
		Model:          get("HAIRTRY_MODEL", ""),
		GeminiAPIKey:   get("GEMINI_API_KEY", getenv("GOOGLE_API_KEY")),
		OpenAIAPIKey:   get("OPENAI_API_KEY", ""),
		OutputDir:      get("HAIRTRY_OUTPUT_DIR", DefaultOutputDir),
		CatalogPath:    get("HAIRTRY_CATALOG", ""),
		PreviewBaseURL: get("HAIRTRY_PREVIEW_BASE_URL", ""),
		CameraDevice:   get("HAIRTRY_CAMERA_DEVICE", ""),
		FFmpegPath:     get("HAIRTRY_FFMPEG", DefaultFFmpeg),
		Addr:           get("HAIRTRY_ADDR", DefaultAddr),
		LogLevel:       strings.ToLower(get("HAIRTRY_LOG_LEVEL", logging.DefaultLevel)),
		Env:            get("HAIRTRY_ENV", "production"),
	}

	var err error
	if cfg.HistoryLimit, err = nonNegativeInt("HAIRTRY_HISTORY_LIMIT", get("HAIRTRY_HISTORY_LIMIT", "0")); err != nil {
		return nil, err
	}
	if cfg.TimeoutSec, err = nonNegativeInt("HAIRTRY_TIMEOUT_SEC", get("HAIRTRY_TIMEOUT_SEC", "0")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func nonNegativeInt(key, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", ErrInvalid, key, raw)
	}
	return n, nil
}

func (c *Config) Validate() error {
	if !c.Provider.IsValid() {
		return fmt.Errorf("%w: HAIRTRY_PROVIDER must be one of %v, got %q", ErrInvalid, models.ValidProviders(), c.Provider)
	}

	if c.Model != "" {
		cap, ok := models.DefaultRegistry().Get(c.Model)
		if !ok {
			return fmt.Errorf("%w: unknown model %q", ErrInvalid, c.Model)
		}
		if cap.Provider != c.Provider {
			return fmt.Errorf("%w: model %s is served by %s, not %s", ErrInvalid, c.Model, cap.Provider, c.Provider)
		}
	}

	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("%w: HAIRTRY_LOG_LEVEL %q", ErrInvalid, c.LogLevel)
	}

	if c.PreviewBaseURL != "" && !strings.HasPrefix(c.PreviewBaseURL, "http://") && !strings.HasPrefix(c.PreviewBaseURL, "https://") {
		return fmt.Errorf("%w: HAIRTRY_PREVIEW_BASE_URL must be an http(s) URL", ErrInvalid)
	}
	return nil
}

// EffectiveModel is the configured model or the provider's default.
func (c *Config) EffectiveModel() string {
	if c.Model != "" {
		return c.Model
	}
	return models.DefaultModelFor(c.Provider)
}

// APIKey returns the key configured in the environment for p.
func (c *Config) APIKey(p models.ProviderType) string {
	switch p {
	case models.ProviderGemini:
		return c.GeminiAPIKey
	case models.ProviderOpenAI:
		return c.OpenAIAPIKey
	}
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
