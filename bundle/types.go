package bundle

import (
	"github.com/meigma/bundlebench/bundle/internal/bundletype"
	"github.com/meigma/bundlebench/internal/group"
	"github.com/meigma/bundlebench/internal/progress"
)

// Re-export types from internal/bundletype for the public API.
type (
	// Entry describes one asset in a bundle.
	Entry = bundletype.Entry

	// EntryView is a read-only view of an index entry.
	EntryView = bundletype.EntryView

	// Compression identifies how a bundle's data section is stored.
	Compression = bundletype.Compression

	// AssetType classifies a bundle entry.
	AssetType = bundletype.AssetType

	// ProgressFunc receives progress updates while a bundle is built.
	ProgressFunc = progress.Func

	// TextureGroup is a materialized group asset.
	TextureGroup = group.TextureGroup
)

// Re-export compression constants.
const (
	CompressionStore = bundletype.CompressionStore
	CompressionWhole = bundletype.CompressionWhole
	CompressionChunk = bundletype.CompressionChunk
)

// Re-export asset type constants.
const (
	AssetTypeUnknown = bundletype.AssetTypeUnknown
	AssetTypeTexture = bundletype.AssetTypeTexture
	AssetTypeGroup   = bundletype.AssetTypeGroup
)

// Compressions lists every mode in build order.
var Compressions = bundletype.Compressions

// ParseCompression parses a mode name such as "store", "whole" or "chunk".
var ParseCompression = bundletype.ParseCompression

// ParseAssetType parses "texture" or "group".
var ParseAssetType = bundletype.ParseAssetType

// TexturePrefix is the directory under which group records resolve their
// texture references.
const TexturePrefix = "textures/"

// GroupPrefix is the directory group records are packed under.
const GroupPrefix = "groups/"

// FileName returns the runtime file name for a bundle built in mode c.
func FileName(name string, c Compression) string {
	return name + "_" + c.String()
}
