package bundle

import (
	"context"
	"encoding/binary"
	"errors"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bundlebench/internal/group"
	"github.com/meigma/bundlebench/internal/imagegen"
	"github.com/meigma/bundlebench/internal/progress"
	"github.com/meigma/bundlebench/internal/testutil"
)

func inputs(c testutil.Corpus) []Input {
	return []Input{
		{Dir: c.TexturesDir, Prefix: "textures", Type: AssetTypeTexture},
		{Dir: c.GroupsDir, Prefix: "groups", Type: AssetTypeGroup},
	}
}

func buildBundle(t *testing.T, c testutil.Corpus, mode Compression, opts ...CreateOption) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out", FileName("textures", mode))
	opts = append([]CreateOption{CreateWithCompression(mode), CreateWithName("textures"), CreateWithChunkSize(1024)}, opts...)
	_, err := CreateFile(context.Background(), inputs(c), path, opts...)
	require.NoError(t, err)
	return path
}

func TestCreateOpen_AllModes(t *testing.T) {
	t.Parallel()

	c := testutil.NewCorpus(t, 25)
	for _, mode := range Compressions {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			var events []progress.Event
			path := filepath.Join(t.TempDir(), FileName("textures", mode))
			stats, err := CreateFile(context.Background(), inputs(c), path,
				CreateWithCompression(mode),
				CreateWithName("textures"),
				CreateWithChunkSize(1024),
				CreateWithProgress(func(ev progress.Event) { events = append(events, ev) }))
			require.NoError(t, err)
			assert.Equal(t, 28, stats.Entries)
			assert.Equal(t, 25, stats.Textures)
			assert.Equal(t, 3, stats.Groups)
			require.NotEmpty(t, events)
			assert.Equal(t, progress.StageEnumerating, events[0].Stage)
			last := events[len(events)-1]
			assert.Equal(t, progress.StagePacking, last.Stage)
			assert.Equal(t, 28, last.Done)

			counter := &group.AwakeCounter{}
			b, err := NewLoader().Open(context.Background(), path, WithAwakeCounter(counter))
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Unload() })

			assert.Equal(t, "textures", b.Name())
			assert.Equal(t, mode, b.Compression())
			assert.Equal(t, 28, b.Len())
			assert.Len(t, b.AssetNamesOfType(AssetTypeTexture), 25)
			assert.Equal(t, []string{
				"groups/DummyTextureGroup_000.asset",
				"groups/DummyTextureGroup_001.asset",
				"groups/DummyTextureGroup_002.asset",
			}, b.AssetNamesOfType(AssetTypeGroup))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, info.Size(), b.Size())

			want, err := os.ReadFile(filepath.Join(c.TexturesDir, imagegen.FileName(7)))
			require.NoError(t, err)
			got, err := b.ReadFile(TexturePrefix + imagegen.FileName(7))
			require.NoError(t, err)
			assert.Equal(t, want, got)

			g, err := b.LoadAsset(context.Background(), "groups/DummyTextureGroup_000.asset")
			require.NoError(t, err)
			assert.Equal(t, "DummyTextureGroup_000", g.Name())
			assert.Equal(t, 10, g.Len())
			tex := g.Textures()[3]
			require.NotNil(t, tex)
			assert.Equal(t, imagegen.FileName(3), tex.Name)
			assert.Equal(t, image.Rect(0, 0, testutil.TextureWidth, testutil.TextureHeight), tex.Image.Bounds())
			assert.Nil(t, tex.Mips)
			assert.Equal(t, int64(1), counter.Load())
		})
	}
}

func TestCreate_StoreIsLargest(t *testing.T) {
	t.Parallel()

	c := testutil.NewCorpus(t, 20)
	sizes := map[Compression]int64{}
	for _, mode := range Compressions {
		info, err := os.Stat(buildBundle(t, c, mode))
		require.NoError(t, err)
		sizes[mode] = info.Size()
	}
	assert.Greater(t, sizes[CompressionStore], int64(0))
	assert.LessOrEqual(t, sizes[CompressionWhole], sizes[CompressionStore])
}

func TestLoadAssetAsync_AllGroups(t *testing.T) {
	t.Parallel()

	c := testutil.NewCorpus(t, 25)
	counter := &group.AwakeCounter{}
	b, err := Open(context.Background(), buildBundle(t, c, CompressionChunk),
		WithAwakeCounter(counter), WithPriority(PriorityLow), WithMipMaps(true))
	require.NoError(t, err)
	defer b.Unload()

	var reqs []*AssetRequest
	for _, name := range b.AssetNamesOfType(AssetTypeGroup) {
		reqs = append(reqs, b.LoadAssetAsync(name))
	}
	require.Len(t, reqs, 3)

	require.Eventually(t, func() bool {
		for _, r := range reqs {
			if !r.Done() {
				return false
			}
		}
		return true
	}, 10*time.Second, time.Millisecond)

	lens := make([]int, 0, len(reqs))
	for _, r := range reqs {
		require.NoError(t, r.Err())
		require.NotNil(t, r.Group())
		lens = append(lens, r.Group().Len())
	}
	assert.Equal(t, []int{10, 10, 5}, lens)
	assert.Equal(t, int64(3), counter.Load())

	tex := reqs[2].Group().Textures()[0]
	require.NotNil(t, tex)
	assert.Len(t, tex.Mips, 3)
}

func TestLoadAssetAsync_Errors(t *testing.T) {
	t.Parallel()

	c := testutil.NewCorpus(t, 5)
	counter := &group.AwakeCounter{}
	b, err := Open(context.Background(), buildBundle(t, c, CompressionStore), WithAwakeCounter(counter))
	require.NoError(t, err)

	req := b.LoadAssetAsync("groups/missing.asset")
	require.True(t, req.Done())
	require.ErrorIs(t, req.Err(), ErrNotFound)
	var pathErr *fs.PathError
	require.ErrorAs(t, req.Err(), &pathErr)
	assert.Equal(t, "groups/missing.asset", pathErr.Path)

	req = b.LoadAssetAsync(TexturePrefix + imagegen.FileName(0))
	require.True(t, req.Done())
	require.ErrorIs(t, req.Err(), ErrWrongType)

	require.NoError(t, b.Unload())
	require.NoError(t, b.Unload())
	assert.True(t, b.Unloaded())

	req = b.LoadAssetAsync("groups/DummyTextureGroup_000.asset")
	require.True(t, req.Done())
	require.ErrorIs(t, req.Err(), ErrUnloaded)

	_, err = b.ReadFile(TexturePrefix + imagegen.FileName(0))
	require.ErrorIs(t, err, ErrUnloaded)
	assert.Zero(t, counter.Load())
}

func TestUnload_WaitsForInflightLoads(t *testing.T) {
	t.Parallel()

	c := testutil.NewCorpus(t, 60)
	b, err := Open(context.Background(), buildBundle(t, c, CompressionWhole), WithPriority(PriorityLow))
	require.NoError(t, err)

	var reqs []*AssetRequest
	for _, name := range b.AssetNamesOfType(AssetTypeGroup) {
		reqs = append(reqs, b.LoadAssetAsync(name))
	}
	require.NoError(t, b.Unload())

	for _, r := range reqs {
		require.True(t, r.Done(), r.Name())
		if err := r.Err(); err != nil {
			require.ErrorIs(t, err, ErrUnloaded)
		}
	}
}

func TestReadFile_HashMismatch(t *testing.T) {
	t.Parallel()

	c := testutil.NewCorpus(t, 25)
	path := buildBundle(t, c, CompressionStore)
	info, err := os.Stat(path)
	require.NoError(t, err)
	// The last byte of a store bundle belongs to the last texture.
	testutil.CorruptByte(t, path, info.Size()-1)

	counter := &group.AwakeCounter{}
	b, err := Open(context.Background(), path, WithAwakeCounter(counter))
	require.NoError(t, err)
	defer b.Unload()

	_, err = b.ReadFile(TexturePrefix + imagegen.FileName(24))
	require.ErrorIs(t, err, ErrHashMismatch)

	_, err = b.LoadAsset(context.Background(), "groups/DummyTextureGroup_002.asset")
	require.ErrorIs(t, err, ErrHashMismatch)
	assert.Zero(t, counter.Load())

	_, err = b.LoadAsset(context.Background(), "groups/DummyTextureGroup_000.asset")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counter.Load())
}

func TestReadFile_InvalidPaths(t *testing.T) {
	t.Parallel()

	b, err := Open(context.Background(), buildBundle(t, testutil.NewCorpus(t, 1), CompressionStore))
	require.NoError(t, err)
	defer b.Unload()

	_, err = b.ReadFile("../escape")
	require.ErrorIs(t, err, fs.ErrInvalid)
	_, err = b.ReadFile("textures/none.png")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_Failures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	_, err := Open(ctx, filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	junk := filepath.Join(dir, "junk")
	testutil.WriteFile(t, junk, []byte("definitely not a bundle file at all"))
	_, err = Open(ctx, junk)
	require.ErrorIs(t, err, ErrNotBundle)

	short := filepath.Join(dir, "short")
	testutil.WriteFile(t, short, magic[:])
	_, err = Open(ctx, short)
	require.ErrorIs(t, err, ErrNotBundle)

	path := buildBundle(t, testutil.NewCorpus(t, 1), CompressionStore)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(data[8:], FormatVersion+1)
	future := filepath.Join(dir, "future")
	testutil.WriteFile(t, future, data)
	_, err = Open(ctx, future)
	require.ErrorIs(t, err, ErrVersion)
}

func TestOpenAsync(t *testing.T) {
	t.Parallel()

	path := buildBundle(t, testutil.NewCorpus(t, 3), CompressionWhole)
	req := NewLoader().OpenAsync(path)
	assert.Equal(t, path, req.Path())

	require.Eventually(t, req.Done, 10*time.Second, time.Millisecond)
	require.NoError(t, req.Err())
	b := req.Bundle()
	require.NotNil(t, b)
	defer b.Unload()

	again, err := req.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, b, again)
}

func TestOpenAsync_Failure(t *testing.T) {
	t.Parallel()

	req := NewLoader().OpenAsync(filepath.Join(t.TempDir(), "nope"))
	_, err := req.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, req.Done())
	assert.Nil(t, req.Bundle())
	require.ErrorIs(t, req.Err(), fs.ErrNotExist)
}

func TestCreate_Limits(t *testing.T) {
	t.Parallel()

	c := testutil.NewCorpus(t, 5)
	var sink nopWriter

	_, err := Create(context.Background(), inputs(c), &sink, CreateWithMaxFiles(3))
	require.ErrorIs(t, err, ErrTooManyFiles)

	dup := []Input{
		{Dir: c.TexturesDir, Prefix: "textures", Type: AssetTypeTexture},
		{Dir: c.TexturesDir, Prefix: "textures/", Type: AssetTypeTexture},
	}
	_, err = Create(context.Background(), dup, &sink)
	require.ErrorIs(t, err, ErrDuplicatePath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Create(ctx, inputs(c), &sink)
	require.ErrorIs(t, err, context.Canceled)

	_, err = Create(context.Background(), []Input{{Dir: filepath.Join(c.Root, "absent")}}, &sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	partial := []Input{
		{Dir: c.TexturesDir, Prefix: "textures", Type: AssetTypeTexture},
		{Dir: filepath.Join(c.Root, "absent"), Prefix: "groups", Type: AssetTypeGroup},
	}
	_, err = Create(context.Background(), partial, &sink)
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "absent")
}

func TestCreateFile_NoPartialOutput(t *testing.T) {
	t.Parallel()

	c := testutil.NewCorpus(t, 5)
	dir := t.TempDir()
	target := filepath.Join(dir, "bundle")
	_, err := CreateFile(context.Background(), inputs(c), target, CreateWithMaxFiles(1))
	require.ErrorIs(t, err, ErrTooManyFiles)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Priority
		workers int
	}{
		{"low", PriorityLow, 1},
		{"BelowNormal", PriorityBelowNormal, 2},
		{"below_normal", PriorityBelowNormal, 2},
		{"normal", PriorityNormal, 4},
		{"", PriorityNormal, 4},
		{"HIGH", PriorityHigh, 0},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		if tt.workers > 0 {
			assert.Equal(t, tt.workers, got.Workers())
		}
	}
	assert.GreaterOrEqual(t, PriorityHigh.Workers(), PriorityNormal.Workers())
	assert.Equal(t, "below-normal", PriorityBelowNormal.String())

	_, err := ParsePriority("urgent")
	require.Error(t, err)
}

func TestMipChain(t *testing.T) {
	t.Parallel()

	mips := MipChain(image.NewNRGBA(image.Rect(0, 0, 8, 2)))
	require.Len(t, mips, 3)
	assert.Equal(t, image.Rect(0, 0, 4, 1), mips[0].Bounds())
	assert.Equal(t, image.Rect(0, 0, 2, 1), mips[1].Bounds())
	assert.Equal(t, image.Rect(0, 0, 1, 1), mips[2].Bounds())

	assert.Empty(t, MipChain(image.NewNRGBA(image.Rect(0, 0, 1, 1))))
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "textures_store", FileName("textures", CompressionStore))
	assert.Equal(t, "textures_whole", FileName("textures", CompressionWhole))
	assert.Equal(t, "textures_chunk", FileName("textures", CompressionChunk))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func BenchmarkOpenAndLoad(b *testing.B) {
	c := testutil.NewCorpus(b, 100)
	for _, mode := range Compressions {
		path := filepath.Join(b.TempDir(), FileName("bench", mode))
		if _, err := CreateFile(context.Background(), inputs(c), path, CreateWithCompression(mode)); err != nil {
			b.Fatal(err)
		}
		b.Run(mode.String(), func(b *testing.B) {
			loader := NewLoader()
			for b.Loop() {
				bnd, err := loader.Open(context.Background(), path)
				if err != nil {
					b.Fatal(err)
				}
				for _, name := range bnd.AssetNamesOfType(AssetTypeGroup) {
					if _, err := bnd.LoadAsset(context.Background(), name); err != nil {
						b.Fatal(err)
					}
				}
				if err := bnd.Unload(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func TestCreate_ExtensionFilter(t *testing.T) {
	t.Parallel()

	c := testutil.NewCorpus(t, 4)
	testutil.WriteFile(t, filepath.Join(c.TexturesDir, "notes.txt"), []byte("ignored"))
	testutil.WriteFile(t, filepath.Join(c.TexturesDir, "UPPER.PNG"), []byte("kept"))

	stats, err := Create(context.Background(), []Input{
		{Dir: c.TexturesDir, Prefix: "textures", Type: AssetTypeTexture, Ext: ".png"},
	}, nopWriter{})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Textures)
}
