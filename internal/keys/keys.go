// Package keys stores image service API keys in the user's config directory.
package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/manash/hairtry/pkg/models"
)

const appDir = "hairtry"

var (
	ErrKeyNotFound     = errors.New("no stored key")
	ErrAPIKeyRequired  = errors.New("API key required")
	ErrUnknownProvider = errors.New("unknown provider")
)

// Store reads and writes keys.json.
type Store struct {
	configDir string
}

type KeyEntry struct {
	Key string `json:"key"`
}

type Keys map[string]KeyEntry

// NewStore opens the store in the platform config directory.
// HAIRTRY_CONFIG_DIR overrides the location.
func NewStore(getenv func(string) string) (*Store, error) {
	configDir, err := configDir(getenv)
	if err != nil {
		return nil, err
	}
	return &Store{configDir: configDir}, nil
}

// NewStoreAt opens a store rooted at dir.
func NewStoreAt(dir string) *Store {
	return &Store{configDir: dir}
}

func configDir(getenv func(string) string) (string, error) {
	if dir := getenv("HAIRTRY_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", appDir), nil
	case "windows":
		appData := getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, appDir), nil
	default:
		configHome := getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, appDir), nil
	}
}

func (s *Store) Path() string {
	return filepath.Join(s.configDir, "keys.json")
}

func (s *Store) load() (Keys, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(Keys), nil
		}
		return nil, err
	}

	var keys Keys
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keys.json: %w", err)
	}
	if keys == nil {
		keys = make(Keys)
	}
	return keys, nil
}

func (s *Store) save(keys Keys) error {
	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}

	// Owner read/write only.
	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write keys.json: %w", err)
	}
	return nil
}

func (s *Store) Set(provider models.ProviderType, key string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrAPIKeyRequired
	}

	keys, err := s.load()
	if err != nil {
		return err
	}
	keys[string(provider)] = KeyEntry{Key: key}
	return s.save(keys)
}

// Get returns the stored key, or "" when none is stored.
func (s *Store) Get(provider models.ProviderType) (string, error) {
	keys, err := s.load()
	if err != nil {
		return "", err
	}
	return keys[string(provider)].Key, nil
}

func (s *Store) Delete(provider models.ProviderType) error {
	keys, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := keys[string(provider)]; !ok {
		return fmt.Errorf("%w for %s", ErrKeyNotFound, provider)
	}

	delete(keys, string(provider))
	return s.save(keys)
}

// List returns the providers with a stored key, sorted.
func (s *Store) List() ([]string, error) {
	keys, err := s.load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(keys))
	for provider := range keys {
		providers = append(providers, provider)
	}
	slices.Sort(providers)
	return providers, nil
}

// MaskKey hides all but the first and last four characters.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// EnvVars lists the environment variables checked for a provider, in order.
func EnvVars(provider models.ProviderType) []string {
	switch provider {
	case models.ProviderGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case models.ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	}
	return nil
}

// Resolve finds a key for provider: explicit flag, then the store, then the
// environment. It returns the key and a description of where it came from.
func Resolve(explicit string, provider models.ProviderType, store *Store, getenv func(string) string) (string, string, error) {
	if explicit != "" {
		return explicit, "command-line flag", nil
	}

	if store != nil {
		if key, err := store.Get(provider); err == nil && key != "" {
			return key, fmt.Sprintf("stored key (%s)", store.Path()), nil
		}
	}

	vars := EnvVars(provider)
	for _, name := range vars {
		if key := getenv(name); key != "" {
			return key, fmt.Sprintf("environment variable (%s)", name), nil
		}
	}

	return "", "", fmt.Errorf("%w: run 'hairtry keys set %s' or set %s", ErrAPIKeyRequired, provider, strings.Join(vars, " or "))
}
