// Package config handles the client configuration: defaults, the JSON
// profile file, and saving credentials back to it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultEndpoint is the public API server.
const DefaultEndpoint = "https://api.zotero.org"

// Config holds the runtime settings for one synced library.
//
// Fields:
//   - UserID: numeric id of the user library on the server.
//   - APIKey: bearer key with read/write access to that library.
//   - Endpoint: API base URL, override for self-hosted servers.
//   - LibraryPath: path of the local snapshot database.
//   - Backups: how many numbered backups of the snapshot to keep.
type Config struct {
	UserID      int64  `json:"user_id"`
	APIKey      string `json:"api_key"`
	Endpoint    string `json:"endpoint"`
	LibraryPath string `json:"library_path"`
	Backups     int    `json:"backups"`
}

// LoadDefaults populates the config with working defaults. The library
// database lands next to the profile file.
func (c *Config) LoadDefaults(dir string) {
	c.Endpoint = DefaultEndpoint
	c.LibraryPath = filepath.Join(dir, "library.db")
	c.Backups = 5
}

// DefaultDir returns the per-user profile directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".zotsync"), nil
}

func profilePath(dir string) string {
	return filepath.Join(dir, "config.json")
}

// Load builds the config for dir by applying defaults and overlaying the
// profile file when it exists.
func Load(dir string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults(dir)

	raw, err := os.ReadFile(profilePath(dir))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.LibraryPath == "" {
		cfg.LibraryPath = filepath.Join(dir, "library.db")
	}
	return cfg, nil
}

// Save writes the config into dir, creating the directory if needed. The
// file is user-readable only since it carries the API key.
func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(profilePath(dir), raw, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
