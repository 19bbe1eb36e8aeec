package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathledger/pathledger/internal/errors"
)

func TestReadFileInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	fi, err := readFileInfo(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), fi.Size)
	assert.Equal(t, uint32(0o644), fi.Mode)
	require.NotNil(t, fi.ModifyTS)
	assert.Positive(t, *fi.ModifyTS)
}

func TestReadFileInfo_NotFound(t *testing.T) {
	_, err := readFileInfo(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
