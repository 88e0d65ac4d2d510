//go:build linux || darwin

package heap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExtendGrowsFile(t *testing.T) {
	page := int64(PageSize())
	path := filepath.Join(t.TempDir(), "heap.bin")

	f, err := NewFile(path, 8*page)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()
	assert.Equal(t, int64(0), f.Size(), "nothing is backed before the first extend")

	old, err := f.Extend(100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), old)
	assert.Equal(t, page, f.Size(), "file grows in whole pages")

	copy(f.Mem()[10:], "heapkit")
	require.NoError(t, f.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, int(page))
	assert.Equal(t, "heapkit", string(data[10:17]))

	_, err = f.Extend(2 * page)
	require.NoError(t, err)
	assert.Equal(t, 3*page, f.Size())

	_, err = f.Extend(8 * page)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 100+2*page, f.Break())
}

func TestFileClose(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "heap.bin"), 4096)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Extend(8)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, f.Sync(), ErrClosed)
}

func TestFileRejectsNonPositive(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "heap.bin"), 0)
	assert.Error(t, err)
}
