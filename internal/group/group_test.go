package group

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, k      int
		wantCount int
		wantLast  int
	}{
		{n: 1000, k: 10, wantCount: 100, wantLast: 10},
		{n: 95, k: 10, wantCount: 10, wantLast: 5},
		{n: 10, k: 10, wantCount: 1, wantLast: 10},
		{n: 1, k: 10, wantCount: 1, wantLast: 1},
		{n: 7, k: 3, wantCount: 3, wantLast: 1},
	}
	for _, tt := range tests {
		got := Partition(tt.n, tt.k)
		require.Len(t, got, tt.wantCount, "n=%d k=%d", tt.n, tt.k)
		last := got[len(got)-1]
		assert.Equal(t, tt.wantLast, last[1]-last[0], "n=%d k=%d", tt.n, tt.k)
		assert.Equal(t, tt.n, last[1])
		for i := 1; i < len(got); i++ {
			assert.Equal(t, got[i-1][1], got[i][0], "ranges must be consecutive")
		}
	}
	assert.Empty(t, Partition(0, 10))
}

func TestNewRecord(t *testing.T) {
	t.Parallel()

	rec, err := NewRecord("g", "a.png", "b.png")
	require.NoError(t, err)
	assert.Equal(t, "a.png", rec.Textures[0])
	assert.Equal(t, "b.png", rec.Textures[1])
	assert.Empty(t, rec.Textures[2])
	assert.Equal(t, 2, rec.Len())
	assert.Equal(t, []string{"a.png", "b.png"}, rec.Refs())

	refs := make([]string, Capacity+1)
	_, err = NewRecord("full", refs...)
	require.ErrorIs(t, err, ErrGroupFull)
}

func TestRecord_EncodeKeepsEmptySlots(t *testing.T) {
	t.Parallel()

	rec, err := NewRecord("DummyTextureGroup_009", "x.png")
	require.NoError(t, err)
	data, err := rec.Encode()
	require.NoError(t, err)

	got, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.Contains(t, string(data), "name: DummyTextureGroup_009")
}

func TestDecodeRecord_Invalid(t *testing.T) {
	t.Parallel()

	_, err := DecodeRecord([]byte("version: 1\ntextures: []\n"))
	require.ErrorIs(t, err, ErrInvalidRecord)

	_, err = DecodeRecord([]byte("version: 7\nname: g\n"))
	require.ErrorIs(t, err, ErrInvalidRecord)

	_, err = DecodeRecord([]byte("[unterminated"))
	require.ErrorIs(t, err, ErrInvalidRecord)

	_, err = DecodeRecord([]byte("version: 1\nname: g\ntextures: [a,b,c,d,e,f,g,h,i,j,k]\n"))
	require.ErrorIs(t, err, ErrGroupFull)
}

func TestMaterialize_IncrementsOnce(t *testing.T) {
	t.Parallel()

	rec, err := NewRecord("g", "a.png", "b.png")
	require.NoError(t, err)

	var counter AwakeCounter
	resolved := 0
	g, err := Materialize(rec, func(ref string) (*Texture, error) {
		resolved++
		return &Texture{Name: ref}, nil
	}, &counter)
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)
	assert.Equal(t, int64(1), counter.Load())
	assert.Equal(t, "g", g.Name())
	assert.Equal(t, 2, g.Len())
	assert.Nil(t, g.Textures()[2])
}

func TestMaterialize_ResolveErrorSkipsAwake(t *testing.T) {
	t.Parallel()

	rec, err := NewRecord("g", "a.png")
	require.NoError(t, err)

	var counter AwakeCounter
	boom := errors.New("boom")
	_, err = Materialize(rec, func(string) (*Texture, error) { return nil, boom }, &counter)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, counter.Load())
}

func TestAwakeCounter_Concurrent(t *testing.T) {
	t.Parallel()

	var counter AwakeCounter
	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			counter.Inc()
		})
	}
	wg.Wait()
	assert.Equal(t, int64(100), counter.Load())

	counter.Reset()
	assert.Zero(t, counter.Load())
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	// Written out of order; assembly must sort.
	for _, i := range []int{3, 0, 11, 7, 1, 2, 10, 4, 5, 6, 8, 9} {
		path := filepath.Join(src, textureName(i))
		require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("skip"), 0o644))

	out := filepath.Join(t.TempDir(), "groups")
	stats, err := Assemble(context.Background(), AssembleOptions{SourceDir: src, OutputDir: out})
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Textures)
	assert.Equal(t, 2, stats.Groups)

	data, err := os.ReadFile(filepath.Join(out, AssetName(0)))
	require.NoError(t, err)
	first, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, "DummyTextureGroup_000", first.Name)
	assert.Equal(t, textureName(0), first.Textures[0])
	assert.Equal(t, textureName(9), first.Textures[9])

	data, err = os.ReadFile(filepath.Join(out, AssetName(1)))
	require.NoError(t, err)
	second, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, []string{textureName(10), textureName(11)}, second.Refs())
}

func TestAssemble_MissingSource(t *testing.T) {
	t.Parallel()

	_, err := Assemble(context.Background(), AssembleOptions{
		SourceDir: filepath.Join(t.TempDir(), "missing"),
		OutputDir: t.TempDir(),
	})
	require.ErrorIs(t, err, ErrSourceNotFound)
}

func textureName(i int) string {
	return fmt.Sprintf("DummyTexture_%04d.png", i)
}
