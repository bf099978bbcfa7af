//go:generate flatc --go --go-namespace fb -o internal schema/index.fbs

// Package bundle builds and loads texture bundles.
//
// A bundle is a single file holding a set of named assets: PNG textures and
// the YAML group records that reference them. The file starts with a fixed
// header, followed by a FlatBuffers index and the data section:
//
//	header (24 bytes) | index | data
//
// The index lists every entry sorted by path, with its asset type, its
// offset and size in the decoded data stream, and its SHA-256 hash. The
// data section is stored in one of three modes:
//
//   - store keeps the bytes as they are.
//   - whole compresses the section as a single zstd stream. Opening the
//     bundle decodes all of it.
//   - chunk compresses the section in fixed-size s2 blocks. Blocks are
//     decoded on first read and kept in a small cache.
//
// Bundles are opened asynchronously through a Loader; groups are
// materialized asynchronously through Bundle.LoadAssetAsync. Both return
// request handles that can be polled once per frame or waited on.
package bundle
