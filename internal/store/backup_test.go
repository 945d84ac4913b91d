package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDB(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestBackup_NumbersGrowMonotonically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	writeDB(t, path, "v1")

	first, err := Backup(path, 0)
	require.NoError(t, err)
	assert.Equal(t, path+".backup-1", first)

	writeDB(t, path, "v2")
	second, err := Backup(path, 0)
	require.NoError(t, err)
	assert.Equal(t, path+".backup-2", second)

	backups, err := Backups(path)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, backups)
}

func TestBackup_PrunesOldCopies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	writeDB(t, path, "x")

	for i := 0; i < 4; i++ {
		_, err := Backup(path, 2)
		require.NoError(t, err)
	}

	backups, err := Backups(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path + ".backup-3", path + ".backup-4"}, backups)
}

func TestRevert_RestoresLatestBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	writeDB(t, path, "good")
	_, err := Backup(path, 0)
	require.NoError(t, err)

	writeDB(t, path, "broken")
	src, err := Revert(path)
	require.NoError(t, err)
	assert.Equal(t, path+".backup-1", src)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "good", string(content))

	// The restored backup is consumed; a second revert has nothing left.
	_, err = Revert(path)
	require.Error(t, err)
}
