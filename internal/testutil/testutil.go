// Package testutil builds on-disk fixtures shared by package tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/bundlebench/internal/group"
	"github.com/meigma/bundlebench/internal/imagegen"
)

// Fixture texture dimensions; small enough to keep tests fast.
const (
	TextureWidth  = 8
	TextureHeight = 8
)

// Corpus is a generated set of textures and the groups that reference them.
type Corpus struct {
	// Root contains TexturesDir and GroupsDir.
	Root string

	TexturesDir string
	GroupsDir   string

	Textures int
	Groups   int
}

// NewCorpus generates n textures and assembles them into groups under a
// fresh temporary directory.
func NewCorpus(tb testing.TB, n int) Corpus {
	tb.Helper()

	root := tb.TempDir()
	c := Corpus{
		Root:        root,
		TexturesDir: filepath.Join(root, "textures"),
		GroupsDir:   filepath.Join(root, "groups"),
	}
	ctx := context.Background()
	gen, err := imagegen.Generate(ctx, imagegen.Options{
		Dir:    c.TexturesDir,
		Count:  n,
		Width:  TextureWidth,
		Height: TextureHeight,
	})
	require.NoError(tb, err)
	c.Textures = gen.Files

	stats, err := group.Assemble(ctx, group.AssembleOptions{
		SourceDir: c.TexturesDir,
		OutputDir: c.GroupsDir,
	})
	require.NoError(tb, err)
	c.Groups = stats.Groups
	return c
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(tb testing.TB, path string, data []byte) {
	tb.Helper()
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(tb, os.WriteFile(path, data, 0o600))
}

// CorruptByte flips every bit of the byte at off in the file at path.
func CorruptByte(tb testing.TB, path string, off int64) {
	tb.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test fixture path
	require.NoError(tb, err)
	require.Less(tb, off, int64(len(data)))
	data[off] ^= 0xff
	require.NoError(tb, os.WriteFile(path, data, 0o600))
}
