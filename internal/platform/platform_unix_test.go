//go:build unix

package platform

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRoot(t *testing.T, dir string) *os.Root {
	t.Helper()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { root.Close() })
	return root
}

func TestOpenRegular(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("hello"), 0o644))
	root := openRoot(t, dir)

	f, info, err := OpenRegular(root, "file.txt")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(5), info.Size())
	assert.True(t, info.Mode().IsRegular())
}

func TestOpenRegular_Symlink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "target"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("target", filepath.Join(dir, "link")))
	root := openRoot(t, dir)

	_, _, err := OpenRegular(root, "link")
	require.ErrorIs(t, err, ErrSymlink)
}

func TestOpenRegular_Directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	root := openRoot(t, dir)

	_, _, err := OpenRegular(root, "sub")
	require.ErrorIs(t, err, ErrNotRegular)
}

func TestOpenRegular_FIFO(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := syscall.Mkfifo(filepath.Join(dir, "pipe"), 0o644); err != nil {
		t.Skipf("mkfifo unavailable: %v", err)
	}
	root := openRoot(t, dir)

	_, _, err := OpenRegular(root, "pipe")
	require.ErrorIs(t, err, ErrNotRegular)
}

func TestOpenRegular_Missing(t *testing.T) {
	t.Parallel()

	root := openRoot(t, t.TempDir())
	_, _, err := OpenRegular(root, "nope")
	require.ErrorIs(t, err, os.ErrNotExist)
}
