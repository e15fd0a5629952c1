// Package keys stores per-provider API keys in a keys.json file under the
// user's config directory, keeping secrets out of shell history and argv.
package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// keyfile is the on-disk format: provider name to key.
type keyfile map[string]string

type Store struct {
	path string
}

func NewStore() (*Store, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return &Store{path: filepath.Join(dir, "keys.json")}, nil
}

// configDir resolves the promptpix config directory. PROMPTPIX_CONFIG_DIR
// overrides the platform default, which tests rely on.
func configDir() (string, error) {
	if dir := os.Getenv("PROMPTPIX_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(base, "promptpix"), nil
}

// Path returns the location of the keys file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) read() (keyfile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return keyfile{}, nil
	}
	if err != nil {
		return nil, err
	}

	var kf keyfile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return kf, nil
}

func (s *Store) write(kf keyfile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return err
	}

	// Owner-only: the file holds secrets.
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// Set stores the key for a provider, replacing any existing one.
func (s *Store) Set(provider, key string) error {
	kf, err := s.read()
	if err != nil {
		return err
	}
	kf[provider] = key
	return s.write(kf)
}

// Get returns the stored key for a provider, or "" when none is stored.
func (s *Store) Get(provider string) (string, error) {
	kf, err := s.read()
	if err != nil {
		return "", err
	}
	return kf[provider], nil
}

// Delete removes a provider's key; it is an error if none is stored.
func (s *Store) Delete(provider string) error {
	kf, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := kf[provider]; !ok {
		return fmt.Errorf("no key found for %s", provider)
	}
	delete(kf, provider)
	return s.write(kf)
}

// List returns the providers that have a stored key.
func (s *Store) List() ([]string, error) {
	kf, err := s.read()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(kf))
	for provider := range kf {
		providers = append(providers, provider)
	}
	return providers, nil
}

// MaskKey hides the middle of a key for display, leaving at most the
// first and last four characters visible.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// GetAPIKey resolves the key to use, in priority order: an explicitly
// passed key (flag), then the stored key, then the environment variable.
// The returned source string describes where the key came from.
func GetAPIKey(explicitKey, provider, envVar string) (string, string, error) {
	if explicitKey != "" {
		return explicitKey, "command-line flag", nil
	}

	if store, err := NewStore(); err == nil {
		if key, err := store.Get(provider); err == nil && key != "" {
			return key, "stored key (keys.json)", nil
		}
	}

	if key := os.Getenv(envVar); key != "" {
		return key, fmt.Sprintf("environment variable (%s)", envVar), nil
	}

	return "", "", fmt.Errorf("API key required: run 'promptpix keys set' or set %s environment variable", envVar)
}
