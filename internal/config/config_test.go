package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutProfile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, filepath.Join(dir, "library.db"), cfg.LibraryPath)
	assert.Equal(t, 5, cfg.Backups)
	assert.Zero(t, cfg.UserID)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")
	cfg := &Config{}
	cfg.LoadDefaults(dir)
	cfg.UserID = 475425
	cfg.APIKey = "secret"

	require.NoError(t, cfg.Save(dir))

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "profile carries the API key")

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_FillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"user_id": 7, "api_key": "k"}`), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.UserID)
	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.NotEmpty(t, cfg.LibraryPath)
}

func TestLoad_RejectsBrokenJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0o600))
	_, err := Load(dir)
	require.Error(t, err)
}
