package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/zotsync/internal/config"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInit_WritesProfile(t *testing.T) {
	dir := t.TempDir()

	_, err := runCommand(t, "secret-key\n", "--profile", dir, "init", "--user", "475425")
	require.NoError(t, err)

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(475425), cfg.UserID)
	assert.Equal(t, "secret-key", cfg.APIKey)
	assert.Equal(t, config.DefaultEndpoint, cfg.Endpoint)
}

func TestInit_RequiresUser(t *testing.T) {
	dir := t.TempDir()
	_, err := runCommand(t, "key\n", "--profile", dir, "init")
	require.Error(t, err)
}

func TestSync_RequiresCredentials(t *testing.T) {
	dir := t.TempDir()
	_, err := runCommand(t, "", "--profile", dir, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init")
}

func TestStatus_NeverSyncedLibrary(t *testing.T) {
	dir := t.TempDir()
	_, err := runCommand(t, "key\n", "--profile", dir, "init", "--user", "7")
	require.NoError(t, err)

	out, err := runCommand(t, "", "--profile", dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "never synced")
	assert.Contains(t, out, "documents:   0")
}

func TestRevert_WithoutBackupsFails(t *testing.T) {
	dir := t.TempDir()
	_, err := runCommand(t, "key\n", "--profile", dir, "init", "--user", "7")
	require.NoError(t, err)

	_, err = runCommand(t, "", "--profile", dir, "revert")
	require.Error(t, err)
}
