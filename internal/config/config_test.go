package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/manash/hairtry/pkg/models"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(envMap(nil))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Provider != models.ProviderGemini {
		t.Errorf("Provider = %s, want gemini", cfg.Provider)
	}
	if cfg.EffectiveModel() != models.DefaultModel {
		t.Errorf("EffectiveModel() = %s, want %s", cfg.EffectiveModel(), models.DefaultModel)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %s", cfg.Addr)
	}
	if cfg.OutputDir != DefaultOutputDir || cfg.FFmpegPath != DefaultFFmpeg {
		t.Errorf("OutputDir = %s, FFmpegPath = %s", cfg.OutputDir, cfg.FFmpegPath)
	}
	if cfg.HistoryLimit != 0 {
		t.Errorf("HistoryLimit = %d, want unbounded", cfg.HistoryLimit)
	}
	if cfg.LogLevel != "warn" || cfg.IsDevelopment() {
		t.Errorf("LogLevel = %s, Env = %s", cfg.LogLevel, cfg.Env)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{
		"HAIRTRY_PROVIDER":         "OpenAI",
		"HAIRTRY_MODEL":            "gpt-image-1",
		"OPENAI_API_KEY":           "sk-test",
		"HAIRTRY_OUTPUT_DIR":       "/tmp/looks",
		"HAIRTRY_HISTORY_LIMIT":    "20",
		"HAIRTRY_CATALOG":          "styles.yaml",
		"HAIRTRY_PREVIEW_BASE_URL": "https://cdn.example.com/previews",
		"HAIRTRY_CAMERA_DEVICE":    "/dev/video2",
		"HAIRTRY_FFMPEG":           "/usr/local/bin/ffmpeg",
		"HAIRTRY_ADDR":             ":9000",
		"HAIRTRY_LOG_LEVEL":        "DEBUG",
		"HAIRTRY_ENV":              "development",
		"HAIRTRY_TIMEOUT_SEC":      "45",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Provider != models.ProviderOpenAI || cfg.EffectiveModel() != "gpt-image-1" {
		t.Errorf("Provider = %s, model = %s", cfg.Provider, cfg.EffectiveModel())
	}
	if cfg.APIKey(models.ProviderOpenAI) != "sk-test" || cfg.APIKey(models.ProviderGemini) != "" {
		t.Error("APIKey() mismatch")
	}
	if cfg.HistoryLimit != 20 || cfg.TimeoutSec != 45 {
		t.Errorf("HistoryLimit = %d, TimeoutSec = %d", cfg.HistoryLimit, cfg.TimeoutSec)
	}
	if cfg.LogLevel != "debug" || !cfg.IsDevelopment() {
		t.Errorf("LogLevel = %s, Env = %s", cfg.LogLevel, cfg.Env)
	}
	if cfg.CameraDevice != "/dev/video2" || cfg.Addr != ":9000" || cfg.CatalogPath != "styles.yaml" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_GoogleKeyFallback(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{"GOOGLE_API_KEY": "google-key"}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GeminiAPIKey != "google-key" {
		t.Errorf("GeminiAPIKey = %q", cfg.GeminiAPIKey)
	}

	cfg, _ = Load(envMap(map[string]string{"GOOGLE_API_KEY": "google-key", "GEMINI_API_KEY": "gemini-key"}))
	if cfg.GeminiAPIKey != "gemini-key" {
		t.Errorf("GEMINI_API_KEY should win, got %q", cfg.GeminiAPIKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown provider", map[string]string{"HAIRTRY_PROVIDER": "stability"}},
		{"unknown model", map[string]string{"HAIRTRY_MODEL": "dall-e-2"}},
		{"model of other provider", map[string]string{"HAIRTRY_MODEL": "gpt-image-1"}},
		{"negative history limit", map[string]string{"HAIRTRY_HISTORY_LIMIT": "-1"}},
		{"non-numeric timeout", map[string]string{"HAIRTRY_TIMEOUT_SEC": "soon"}},
		{"bad log level", map[string]string{"HAIRTRY_LOG_LEVEL": "chatty"}},
		{"preview base without scheme", map[string]string{"HAIRTRY_PREVIEW_BASE_URL": "cdn.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(envMap(tt.env))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "HAIRTRY_DOTENV_TEST_MODEL=gemini-3-pro-image-preview\nHAIRTRY_DOTENV_TEST_KEPT=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HAIRTRY_DOTENV_TEST_KEPT", "from-env")
	t.Cleanup(func() { os.Unsetenv("HAIRTRY_DOTENV_TEST_MODEL") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}

	if got := os.Getenv("HAIRTRY_DOTENV_TEST_MODEL"); got != "gemini-3-pro-image-preview" {
		t.Errorf("model = %q, want value from file", got)
	}
	if got := os.Getenv("HAIRTRY_DOTENV_TEST_KEPT"); got != "from-env" {
		t.Errorf("existing variable overridden: %q", got)
	}
}
