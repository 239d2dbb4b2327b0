package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.json")

	exists, info := FileExists(path)
	assert.False(t, exists)
	assert.Nil(t, info)

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	exists, info = FileExists(path)
	assert.True(t, exists)
	assert.Equal(t, int64(2), info.Size())
}

func TestEnsureWritableDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureWritableDir(dir, 0o755))

	ok, err := IsWritable(dir)
	assert.True(t, ok)
	assert.NoError(t, err)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, EnsureWritableDir(file, 0o755))
}
