package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *UploadStore {
	t.Helper()
	store, err := NewUploadStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return store
}

func TestGenerateNameKeepsExtension(t *testing.T) {
	store := newTestStore(t)

	name := store.GenerateName("Draft Thesis.PDF")
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.NotContains(t, name, " ")

	other := store.GenerateName("Draft Thesis.PDF")
	assert.NotEqual(t, name, other)
}

func TestMoveFromTempRelocatesFile(t *testing.T) {
	store := newTestStore(t)

	tempPath := filepath.Join(t.TempDir(), "incoming.pdf")
	require.NoError(t, os.WriteFile(tempPath, []byte("report body"), 0o644))

	name, url, err := store.MoveFromTemp(tempPath, "incoming.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/reports/"+name, url)

	_, err = os.Stat(tempPath)
	assert.True(t, os.IsNotExist(err), "temp file should be gone")

	content, err := store.ReadContent(name)
	require.NoError(t, err)
	assert.Equal(t, "report body", string(content))
}

func TestBackupCopiesBeforeEdit(t *testing.T) {
	store := newTestStore(t)

	size, err := store.WriteContent("notes.txt", []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	backupPath, err := store.Backup("notes.txt")
	require.NoError(t, err)
	assert.Contains(t, backupPath, ".backup_")

	_, err = store.WriteContent("notes.txt", []byte("v2 edited"))
	require.NoError(t, err)

	backup, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(backup))

	current, err := store.ReadContent("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2 edited", string(current))
}

func TestResolveStripsPathTraversal(t *testing.T) {
	store := newTestStore(t)

	_, err := store.WriteContent("../../escape.txt", []byte("x"))
	require.NoError(t, err)

	content, err := store.ReadContent("escape.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(content))
}

func TestDeleteMissingFileIsNoop(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete("never-existed.pdf"))
}
