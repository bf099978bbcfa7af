package codec

import (
	"bytes"
	"io"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bundlebench/bundle/internal/bundletype"
)

func payload(n int, seed int64) []byte {
	data := make([]byte, n)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // test data
	for i := range data {
		// Half-compressible: runs of a byte with noise between them.
		if i%64 < 32 {
			data[i] = byte(i / 64)
		} else {
			data[i] = byte(rng.Intn(256))
		}
	}
	return data
}

// encode writes data through a Writer in uneven pieces and returns the
// encoded bytes and layout.
func encode(t *testing.T, mode bundletype.Compression, data []byte, opts ...WriterOption) ([]byte, Layout) {
	t.Helper()

	var out bytes.Buffer
	w, err := NewWriter(&out, mode, opts...)
	require.NoError(t, err)
	for rest := data; len(rest) > 0; {
		n := min(len(rest), 1000)
		_, err := w.Write(rest[:n])
		require.NoError(t, err)
		rest = rest[n:]
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, uint64(len(data)), w.RawSize())
	assert.Equal(t, uint64(out.Len()), w.StoredSize())

	return out.Bytes(), Layout{
		Mode:      mode,
		DataSize:  w.RawSize(),
		ChunkSize: w.ChunkSize(),
		Chunks:    w.Chunks(),
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	data := payload(10_000, 1)
	for _, mode := range bundletype.Compressions {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			stored, layout := encode(t, mode, data, WithChunkSize(4096))
			sec, err := Open(io.NewSectionReader(bytes.NewReader(stored), 0, int64(len(stored))), layout, OpenOptions{
				Pool: NewDecompressPool(0, 1),
			})
			require.NoError(t, err)
			require.Equal(t, int64(len(data)), sec.Size())

			got, err := io.ReadAll(io.NewSectionReader(sec, 0, sec.Size()))
			require.NoError(t, err)
			assert.Equal(t, data, got)

			// A read that straddles a block boundary.
			buf := make([]byte, 300)
			n, err := sec.ReadAt(buf, 4096-150)
			require.NoError(t, err)
			assert.Equal(t, 300, n)
			assert.Equal(t, data[4096-150:4096+150], buf)

			// A read running past the end.
			n, err = sec.ReadAt(buf, int64(len(data)-10))
			assert.Equal(t, 10, n)
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestWriter_ChunkTable(t *testing.T) {
	t.Parallel()

	_, layout := encode(t, bundletype.CompressionChunk, payload(10_000, 2), WithChunkSize(4096))
	require.Len(t, layout.Chunks, 3)
	assert.Equal(t, uint32(4096), layout.Chunks[0].RawSize)
	assert.Equal(t, uint32(4096), layout.Chunks[1].RawSize)
	assert.Equal(t, uint32(10_000-8192), layout.Chunks[2].RawSize)
	assert.Equal(t, uint64(0), layout.Chunks[0].Offset)
	assert.Equal(t, uint64(layout.Chunks[0].Size), layout.Chunks[1].Offset)
}

func TestWriter_WriteAfterClose(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(io.Discard, bundletype.CompressionStore)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	_, err = w.Write([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestWriter_Empty(t *testing.T) {
	t.Parallel()

	for _, mode := range bundletype.Compressions {
		stored, layout := encode(t, mode, nil)
		sec, err := Open(io.NewSectionReader(bytes.NewReader(stored), 0, int64(len(stored))), layout, OpenOptions{})
		require.NoError(t, err, mode.String())
		assert.Zero(t, sec.Size())
	}
}

func TestOpen_CorruptLayouts(t *testing.T) {
	t.Parallel()

	data := payload(9000, 3)
	stored, layout := encode(t, bundletype.CompressionChunk, data, WithChunkSize(4096))
	src := io.NewSectionReader(bytes.NewReader(stored), 0, int64(len(stored)))

	bad := layout
	bad.DataSize++
	_, err := Open(src, bad, OpenOptions{})
	require.ErrorIs(t, err, bundletype.ErrCorrupt)

	bad = layout
	bad.Chunks = layout.Chunks[:2]
	_, err = Open(src, bad, OpenOptions{})
	require.ErrorIs(t, err, bundletype.ErrCorrupt)

	storeStored, storeLayout := encode(t, bundletype.CompressionStore, data)
	storeLayout.DataSize--
	_, err = Open(io.NewSectionReader(bytes.NewReader(storeStored), 0, int64(len(storeStored))), storeLayout, OpenOptions{})
	require.ErrorIs(t, err, bundletype.ErrCorrupt)

	wholeStored, wholeLayout := encode(t, bundletype.CompressionWhole, data)
	wholeLayout.DataSize -= 100
	_, err = Open(io.NewSectionReader(bytes.NewReader(wholeStored), 0, int64(len(wholeStored))), wholeLayout, OpenOptions{})
	require.ErrorIs(t, err, bundletype.ErrCorrupt)
}

func TestChunked_DamagedBlock(t *testing.T) {
	t.Parallel()

	stored, layout := encode(t, bundletype.CompressionChunk, payload(9000, 4), WithChunkSize(4096))
	damaged := bytes.Clone(stored)
	for i := range int(layout.Chunks[1].Size) {
		damaged[int(layout.Chunks[1].Offset)+i] = 0xff
	}
	sec, err := Open(io.NewSectionReader(bytes.NewReader(damaged), 0, int64(len(damaged))), layout, OpenOptions{})
	require.NoError(t, err)

	buf := make([]byte, 10)
	_, err = sec.ReadAt(buf, 0)
	require.NoError(t, err)
	_, err = sec.ReadAt(buf, 5000)
	require.Error(t, err)
}

func TestChunked_ConcurrentReadsShareCache(t *testing.T) {
	t.Parallel()

	data := payload(64<<10, 5)
	stored, layout := encode(t, bundletype.CompressionChunk, data, WithChunkSize(8<<10))
	sec, err := openChunked(io.NewSectionReader(bytes.NewReader(stored), 0, int64(len(stored))), layout, 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Go(func() {
			off := int64(i*2048) % int64(len(data)-100)
			buf := make([]byte, 100)
			_, err := sec.ReadAt(buf, off)
			assert.NoError(t, err)
			assert.Equal(t, data[off:off+100], buf)
		})
	}
	wg.Wait()
	assert.LessOrEqual(t, sec.cache.len(), 4)
}

func TestChunkCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := newChunkCache(2)
	c.put(1, []byte{1})
	c.put(2, []byte{2})
	_, ok := c.get(1)
	require.True(t, ok)
	c.put(3, []byte{3})

	_, ok = c.get(2)
	assert.False(t, ok)
	got, ok := c.get(1)
	assert.True(t, ok)
	assert.Equal(t, []byte{1}, got)

	// A repeated put keeps the first value and refreshes recency.
	c.put(3, []byte{9})
	c.put(4, []byte{4})
	_, ok = c.get(1)
	assert.False(t, ok)
	got, ok = c.get(3)
	assert.True(t, ok)
	assert.Equal(t, []byte{3}, got)
	assert.Equal(t, 2, c.len())
}

func BenchmarkSectionRead(b *testing.B) {
	data := payload(4<<20, 6)
	for _, mode := range bundletype.Compressions {
		b.Run(mode.String(), func(b *testing.B) {
			var out bytes.Buffer
			w, err := NewWriter(&out, mode)
			if err != nil {
				b.Fatal(err)
			}
			if _, err := w.Write(data); err != nil {
				b.Fatal(err)
			}
			if err := w.Close(); err != nil {
				b.Fatal(err)
			}
			layout := Layout{Mode: mode, DataSize: w.RawSize(), ChunkSize: w.ChunkSize(), Chunks: w.Chunks()}
			stored := out.Bytes()
			pool := NewDecompressPool(0, 1)
			b.SetBytes(int64(len(data)))
			b.ResetTimer()
			for b.Loop() {
				sec, err := Open(io.NewSectionReader(bytes.NewReader(stored), 0, int64(len(stored))), layout, OpenOptions{Pool: pool})
				if err != nil {
					b.Fatal(err)
				}
				if _, err := io.Copy(io.Discard, io.NewSectionReader(sec, 0, sec.Size())); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
