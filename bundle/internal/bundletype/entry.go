package bundletype

import (
	"github.com/meigma/bundlebench/bundle/internal/fb"
)

// Entry describes one asset in a bundle.
type Entry struct {
	// Path is the asset name within the bundle (e.g., "textures/a.png").
	Path string

	// Type is the asset's type from the bundle manifest.
	Type AssetType

	// DataOffset is the offset of the content in the decoded data stream.
	DataOffset uint64

	// DataSize is the size of the content in bytes.
	DataSize uint64

	// Hash is the SHA-256 hash of the content.
	Hash []byte
}

// EntryView is a read-only view of an index entry backed by the index buffer.
type EntryView struct {
	fb fb.Entry
}

// EntryViewFromFlatBuffers wraps a decoded FlatBuffers entry.
func EntryViewFromFlatBuffers(e fb.Entry) EntryView {
	return EntryView{fb: e}
}

// Path returns the entry path as a string.
func (v EntryView) Path() string {
	return string(v.fb.Path())
}

// PathBytes returns the entry path without allocating.
// The returned slice aliases the index buffer and must be treated as immutable.
func (v EntryView) PathBytes() []byte {
	return v.fb.Path()
}

// Type returns the entry's asset type.
func (v EntryView) Type() AssetType {
	return AssetType(v.fb.Type())
}

// DataOffset returns the offset of the content in the decoded data stream.
func (v EntryView) DataOffset() uint64 {
	return v.fb.DataOffset()
}

// DataSize returns the size of the content.
func (v EntryView) DataSize() uint64 {
	return v.fb.DataSize()
}

// HashBytes returns the content hash.
// The returned slice aliases the index buffer and must be treated as immutable.
func (v EntryView) HashBytes() []byte {
	return v.fb.HashBytes()
}

// Entry returns a detached copy of the view.
func (v EntryView) Entry() Entry {
	return Entry{
		Path:       v.Path(),
		Type:       v.Type(),
		DataOffset: v.DataOffset(),
		DataSize:   v.DataSize(),
		Hash:       append([]byte(nil), v.HashBytes()...),
	}
}
