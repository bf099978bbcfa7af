package bundle

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"

	"github.com/meigma/bundlebench/internal/group"
)

// materialize decodes the group record at view and resolves its textures.
func (b *Bundle) materialize(view EntryView) (*TextureGroup, error) {
	data, err := b.read(view)
	if err != nil {
		return nil, err
	}
	rec, err := group.DecodeRecord(data)
	if err != nil {
		return nil, err
	}
	return group.Materialize(rec, b.resolveTexture, b.cfg.counter)
}

// resolveTexture loads the texture a record slot refers to.
//
// Textures are decoded once per bundle and shared by every group that
// references them; concurrent first loads are deduplicated.
func (b *Bundle) resolveTexture(ref string) (*group.Texture, error) {
	if tex, ok := b.cachedTexture(ref); ok {
		return tex, nil
	}
	v, err, _ := b.texGroup.Do(ref, func() (any, error) {
		if tex, ok := b.cachedTexture(ref); ok {
			return tex, nil
		}
		tex, err := b.decodeTexture(ref)
		if err != nil {
			return nil, err
		}
		b.texMu.Lock()
		if b.textures != nil {
			b.textures[ref] = tex
		}
		b.texMu.Unlock()
		return tex, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*group.Texture), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

func (b *Bundle) cachedTexture(ref string) (*group.Texture, bool) {
	b.texMu.Lock()
	defer b.texMu.Unlock()
	tex, ok := b.textures[ref]
	return tex, ok
}

func (b *Bundle) decodeTexture(ref string) (*group.Texture, error) {
	name := TexturePrefix + ref
	view, ok := b.idx.LookupView(name)
	if !ok {
		return nil, fmt.Errorf("texture %s: %w", ref, ErrNotFound)
	}
	if t := view.Type(); t != AssetTypeTexture {
		return nil, fmt.Errorf("texture %s: %w: %s", ref, ErrWrongType, t)
	}
	data, err := b.read(view)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", ref, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", ref, err)
	}
	tex := &group.Texture{Name: ref, Image: img}
	if b.cfg.mipMaps {
		tex.Mips = MipChain(img)
	}
	return tex, nil
}

// MipChain returns the levels below img, each half the size of the one
// above it (rounding down, never below 1), ending at 1x1.
func MipChain(img image.Image) []image.Image {
	var mips []image.Image
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	prev := img
	for w > 1 || h > 1 {
		w, h = max(w/2, 1), max(h/2, 1)
		//nolint:gosec // dimensions are bounded by the source image
		next := resize.Resize(uint(w), uint(h), prev, resize.Bilinear)
		mips = append(mips, next)
		prev = next
	}
	return mips
}
