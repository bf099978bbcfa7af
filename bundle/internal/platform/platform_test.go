package platform

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tex_0.png"), []byte("png"), 0o600))
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	defer root.Close()

	f, err := OpenInput(root, "tex_0.png")
	require.NoError(t, err)
	data := make([]byte, 3)
	_, err = f.Read(data)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	require.NoError(t, f.Close())

	_, err = OpenInput(root, "tex_1.png")
	require.ErrorIs(t, err, fs.ErrNotExist)
	var pe *fs.PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "open bundle input", pe.Op)
	assert.Equal(t, filepath.Join(dir, "tex_1.png"), pe.Path)
}

func TestOpenInput_Symlink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.png"), []byte("png"), 0o600))
	if err := os.Symlink("real.png", filepath.Join(dir, "link.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	defer root.Close()

	_, err = OpenInput(root, "link.png")
	require.ErrorIs(t, err, ErrSymlink)
	assert.Contains(t, err.Error(), "link.png")
}
