package codec

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/klauspost/compress/s2"
	"golang.org/x/sync/singleflight"

	"github.com/meigma/bundlebench/bundle/internal/bundletype"
	"github.com/meigma/bundlebench/bundle/internal/index"
)

// DefaultChunkCache is the default number of decoded blocks kept in memory.
const DefaultChunkCache = 16

// chunkedSection decodes s2 blocks on demand.
//
// Concurrent reads of the same block share one decode.
type chunkedSection struct {
	stored    *io.SectionReader
	chunks    []index.Chunk
	chunkSize int64
	size      int64
	cache     *chunkCache
	group     singleflight.Group
}

func openChunked(stored *io.SectionReader, l Layout, cacheSize int) (*chunkedSection, error) {
	if err := validateChunks(stored.Size(), l); err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		cacheSize = DefaultChunkCache
	}
	return &chunkedSection{
		stored:    stored,
		chunks:    l.Chunks,
		chunkSize: int64(l.ChunkSize),
		size:      int64(l.DataSize), //nolint:gosec // checked by Open
		cache:     newChunkCache(cacheSize),
	}, nil
}

// validateChunks checks that the block table tiles both the stored and the
// decoded stream exactly.
func validateChunks(storedSize int64, l Layout) error {
	if len(l.Chunks) > 0 && l.ChunkSize == 0 {
		return fmt.Errorf("%w: zero chunk size", bundletype.ErrCorrupt)
	}
	var offset, raw uint64
	for i, c := range l.Chunks {
		if c.Offset != offset {
			return fmt.Errorf("%w: chunk %d at %d, want %d", bundletype.ErrCorrupt, i, c.Offset, offset)
		}
		last := i == len(l.Chunks)-1
		if !last && c.RawSize != l.ChunkSize {
			return fmt.Errorf("%w: chunk %d decodes to %d bytes, want %d", bundletype.ErrCorrupt, i, c.RawSize, l.ChunkSize)
		}
		if c.RawSize == 0 || c.RawSize > l.ChunkSize {
			return fmt.Errorf("%w: chunk %d has size %d", bundletype.ErrCorrupt, i, c.RawSize)
		}
		offset += uint64(c.Size)
		raw += uint64(c.RawSize)
	}
	if offset != uint64(storedSize) { //nolint:gosec // section sizes are non-negative
		return fmt.Errorf("%w: chunks cover %d of %d stored bytes", bundletype.ErrCorrupt, offset, storedSize)
	}
	if raw != l.DataSize {
		return fmt.Errorf("%w: chunks decode to %d bytes, index says %d", bundletype.ErrCorrupt, raw, l.DataSize)
	}
	return nil
}

// Size implements Section.
func (s *chunkedSection) Size() int64 {
	return s.size
}

// ReadAt implements io.ReaderAt.
func (s *chunkedSection) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("codec: negative offset %d", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && off < s.size {
		ci := int(off / s.chunkSize)
		data, err := s.chunk(ci)
		if err != nil {
			return n, err
		}
		copied := copy(p[n:], data[off-int64(ci)*s.chunkSize:])
		n += copied
		off += int64(copied)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// chunk returns the decoded block i, decoding it if it is not cached.
func (s *chunkedSection) chunk(i int) ([]byte, error) {
	if data, ok := s.cache.get(i); ok {
		return data, nil
	}
	v, err, _ := s.group.Do(strconv.Itoa(i), func() (any, error) {
		if data, ok := s.cache.get(i); ok {
			return data, nil
		}
		c := s.chunks[i]
		encoded := make([]byte, c.Size)
		if _, err := s.stored.ReadAt(encoded, int64(c.Offset)); err != nil { //nolint:gosec // validated against stored size
			return nil, fmt.Errorf("read chunk %d: %w", i, err)
		}
		data, err := s2.Decode(make([]byte, c.RawSize), encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %w", bundletype.ErrDecompression, i, err)
		}
		if len(data) != int(c.RawSize) {
			return nil, fmt.Errorf("%w: chunk %d decoded to %d bytes, want %d", bundletype.ErrCorrupt, i, len(data), c.RawSize)
		}
		s.cache.put(i, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

// chunkCache keeps the most recently used decoded blocks. order runs from
// least to most recently used.
type chunkCache struct {
	mu    sync.Mutex
	max   int
	items map[int][]byte
	order []int
}

func newChunkCache(size int) *chunkCache {
	return &chunkCache{
		max:   size,
		items: make(map[int][]byte, size),
		order: make([]int, 0, size),
	}
}

func (c *chunkCache) get(i int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[i]
	if ok {
		c.touch(i)
	}
	return data, ok
}

// touch moves i to the most recently used end of order.
func (c *chunkCache) touch(i int) {
	for j, v := range c.order {
		if v == i {
			c.order = append(c.order[:j], c.order[j+1:]...)
			break
		}
	}
	c.order = append(c.order, i)
}

func (c *chunkCache) put(i int, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[i]; ok {
		c.touch(i)
		return
	}
	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.items[i] = data
	c.order = append(c.order, i)
}

// len returns the number of cached blocks.
func (c *chunkCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
