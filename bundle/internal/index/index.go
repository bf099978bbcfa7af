// Package index reads and writes the FlatBuffers bundle index.
package index

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"sort"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/meigma/bundlebench/bundle/internal/bundletype"
	"github.com/meigma/bundlebench/bundle/internal/fb"
)

// Version is the index format version written by Build.
const Version = 1

// Chunk locates one compressed block of a chunked data section.
type Chunk struct {
	// Offset is the block's offset within the stored data section.
	Offset uint64

	// Size is the stored (compressed) size of the block.
	Size uint32

	// RawSize is the decoded size of the block.
	RawSize uint32
}

// Meta holds the bundle-level fields of an index.
type Meta struct {
	Name        string
	Compression bundletype.Compression
	ChunkSize   uint32
	Chunks      []Chunk
	DataSize    uint64
	DataHash    []byte
}

// Index provides access to bundle entries.
//
// Entries are sorted by path, enabling O(log n) lookups and prefix scans.
// Accessors return read-only EntryView values that alias index data.
type Index struct {
	data []byte
	root *fb.Index
}

// Load parses a FlatBuffers-encoded index.
//
// The provided data is retained by the index; callers must not modify it
// after calling Load.
func Load(data []byte) (idx *Index, err error) {
	defer func() {
		if r := recover(); r != nil {
			idx = nil
			err = fmt.Errorf("bundle: failed to parse index: %v", r)
		}
	}()
	if len(data) == 0 {
		return nil, errors.New("bundle: empty index data")
	}

	root := fb.GetRootAsIndex(data, 0)
	if root == nil {
		return nil, errors.New("bundle: failed to parse index")
	}
	idx = &Index{data: data, root: root}

	// Touch every vector once so a truncated buffer fails here rather than
	// on first use.
	_ = idx.root.Version()
	_ = idx.root.Name()
	for i := range idx.root.ChunksLength() {
		var c fb.Chunk
		idx.root.Chunks(&c, i)
		_ = c.RawSize()
	}
	if n := idx.root.EntriesLength(); n > 0 {
		var e fb.Entry
		idx.root.Entries(&e, n-1)
		_ = e.Path()
	}
	return idx, nil
}

// Bytes returns the raw index buffer.
func (idx *Index) Bytes() []byte {
	return idx.data
}

// Version returns the format version of the index.
func (idx *Index) Version() uint32 {
	return idx.root.Version()
}

// Name returns the bundle name recorded at build time.
func (idx *Index) Name() string {
	return string(idx.root.Name())
}

// Compression returns the data section's compression mode.
func (idx *Index) Compression() bundletype.Compression {
	return bundletype.Compression(idx.root.Compression())
}

// ChunkSize returns the nominal decoded chunk size for chunked bundles.
func (idx *Index) ChunkSize() uint32 {
	return idx.root.ChunkSize()
}

// Chunks returns a copy of the chunk table.
func (idx *Index) Chunks() []Chunk {
	n := idx.root.ChunksLength()
	chunks := make([]Chunk, n)
	var c fb.Chunk
	for i := range n {
		idx.root.Chunks(&c, i)
		chunks[i] = Chunk{Offset: c.Offset(), Size: c.Size(), RawSize: c.RawSize()}
	}
	return chunks
}

// DataSize returns the decoded size of the data stream.
func (idx *Index) DataSize() uint64 {
	return idx.root.DataSize()
}

// DataHash returns the SHA-256 of the decoded data stream.
// The returned slice aliases the index buffer and must be treated as immutable.
func (idx *Index) DataHash() []byte {
	return idx.root.DataHashBytes()
}

// Len returns the number of entries in the index.
func (idx *Index) Len() int {
	return idx.root.EntriesLength()
}

// LookupView returns a read-only view of the entry for the given path.
func (idx *Index) LookupView(path string) (bundletype.EntryView, bool) {
	var fbEntry fb.Entry
	if !idx.root.EntriesByKey(&fbEntry, path) {
		return bundletype.EntryView{}, false
	}
	return bundletype.EntryViewFromFlatBuffers(fbEntry), true
}

// EntriesView returns an iterator over all entries in path order.
func (idx *Index) EntriesView() iter.Seq[bundletype.EntryView] {
	return func(yield func(bundletype.EntryView) bool) {
		var fbEntry fb.Entry
		for i := range idx.root.EntriesLength() {
			if !idx.root.Entries(&fbEntry, i) {
				return
			}
			if !yield(bundletype.EntryViewFromFlatBuffers(fbEntry)) {
				return
			}
		}
	}
}

// EntriesOfType returns an iterator over entries of type t in path order.
func (idx *Index) EntriesOfType(t bundletype.AssetType) iter.Seq[bundletype.EntryView] {
	return func(yield func(bundletype.EntryView) bool) {
		for view := range idx.EntriesView() {
			if view.Type() != t {
				continue
			}
			if !yield(view) {
				return
			}
		}
	}
}

// EntriesWithPrefixView returns an iterator over entries whose path starts
// with prefix.
func (idx *Index) EntriesWithPrefixView(prefix string) iter.Seq[bundletype.EntryView] {
	return func(yield func(bundletype.EntryView) bool) {
		n := idx.root.EntriesLength()
		if n == 0 {
			return
		}
		prefixBytes := []byte(prefix)

		start := sort.Search(n, func(i int) bool {
			var fbEntry fb.Entry
			if !idx.root.Entries(&fbEntry, i) {
				return false
			}
			return bytes.Compare(fbEntry.Path(), prefixBytes) >= 0
		})

		var fbEntry fb.Entry
		for i := start; i < n; i++ {
			if !idx.root.Entries(&fbEntry, i) {
				return
			}
			if !bytes.HasPrefix(fbEntry.Path(), prefixBytes) {
				return
			}
			if !yield(bundletype.EntryViewFromFlatBuffers(fbEntry)) {
				return
			}
		}
	}
}

// Build serializes entries and meta to FlatBuffers format.
//
// Entries must already be sorted by path; lookups rely on it.
func Build(entries []bundletype.Entry, meta Meta) []byte {
	builder := flatbuffers.NewBuilder(1024)

	// Build entries in reverse order (FlatBuffers requirement)
	entryOffsets := make([]flatbuffers.UOffsetT, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]

		pathOffset := builder.CreateString(e.Path)
		hashOffset := builder.CreateByteVector(e.Hash)

		fb.EntryStart(builder)
		fb.EntryAddPath(builder, pathOffset)
		fb.EntryAddType(builder, fb.AssetType(e.Type))
		fb.EntryAddDataOffset(builder, e.DataOffset)
		fb.EntryAddDataSize(builder, e.DataSize)
		fb.EntryAddHash(builder, hashOffset)
		entryOffsets[i] = fb.EntryEnd(builder)
	}

	fb.IndexStartEntriesVector(builder, len(entries))
	for i := len(entryOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(entryOffsets[i])
	}
	entriesOffset := builder.EndVector(len(entries))

	var chunksOffset flatbuffers.UOffsetT
	if len(meta.Chunks) > 0 {
		fb.IndexStartChunksVector(builder, len(meta.Chunks))
		for i := len(meta.Chunks) - 1; i >= 0; i-- {
			c := meta.Chunks[i]
			fb.CreateChunk(builder, c.Offset, c.Size, c.RawSize)
		}
		chunksOffset = builder.EndVector(len(meta.Chunks))
	}

	nameOffset := builder.CreateString(meta.Name)

	var dataHashOffset flatbuffers.UOffsetT
	if len(meta.DataHash) > 0 {
		dataHashOffset = builder.CreateByteVector(meta.DataHash)
	}

	fb.IndexStart(builder)
	fb.IndexAddVersion(builder, Version)
	fb.IndexAddName(builder, nameOffset)
	fb.IndexAddCompression(builder, fb.Compression(meta.Compression))
	fb.IndexAddChunkSize(builder, meta.ChunkSize)
	fb.IndexAddEntries(builder, entriesOffset)
	if chunksOffset != 0 {
		fb.IndexAddChunks(builder, chunksOffset)
	}
	fb.IndexAddDataSize(builder, meta.DataSize)
	if dataHashOffset != 0 {
		fb.IndexAddDataHash(builder, dataHashOffset)
	}
	indexOffset := fb.IndexEnd(builder)

	fb.FinishIndexBuffer(builder, indexOffset)
	return builder.FinishedBytes()
}
