package bundletype

import (
	"fmt"
	"strings"
)

// AssetType classifies a bundle entry. It is recorded in the index when the
// bundle is built, so loaders never infer it from the entry's name.
type AssetType uint8

const (
	AssetTypeUnknown AssetType = iota
	AssetTypeTexture
	AssetTypeGroup
)

// String returns the type's name.
func (t AssetType) String() string {
	switch t {
	case AssetTypeTexture:
		return "texture"
	case AssetTypeGroup:
		return "group"
	default:
		return "unknown"
	}
}

// ParseAssetType parses a type name as returned by String.
func ParseAssetType(s string) (AssetType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "texture":
		return AssetTypeTexture, nil
	case "group":
		return AssetTypeGroup, nil
	default:
		return AssetTypeUnknown, fmt.Errorf("unknown asset type %q", s)
	}
}
