package group

import (
	"fmt"
	"image"
)

// Texture is a decoded image referenced by a group.
type Texture struct {
	// Name is the texture's file name.
	Name string

	// Image is the full-resolution image.
	Image image.Image

	// Mips holds successively halved levels below Image, if built.
	Mips []image.Image
}

// TextureGroup is a materialized group: a record whose references have been
// resolved to loaded textures.
type TextureGroup struct {
	name     string
	textures [Capacity]*Texture
}

// Name returns the group's name.
func (g *TextureGroup) Name() string {
	return g.name
}

// Textures returns the slots in order; empty slots are nil.
func (g *TextureGroup) Textures() [Capacity]*Texture {
	return g.textures
}

// Len returns the number of filled slots.
func (g *TextureGroup) Len() int {
	n := 0
	for _, t := range g.textures {
		if t != nil {
			n++
		}
	}
	return n
}

// ResolveFunc loads the texture a record slot refers to.
type ResolveFunc func(ref string) (*Texture, error)

// Materialize resolves every non-empty slot of rec and constructs the group.
//
// Construction is the group's one-time initialization: counter is
// incremented exactly once, and only when every reference resolved. A nil
// counter skips the increment.
func Materialize(rec Record, resolve ResolveFunc, counter *AwakeCounter) (*TextureGroup, error) {
	g := &TextureGroup{name: rec.Name}
	for i, ref := range rec.Textures {
		if ref == "" {
			continue
		}
		tex, err := resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("group %s slot %d: %w", rec.Name, i, err)
		}
		g.textures[i] = tex
	}
	g.awake(counter)
	return g, nil
}

// awake runs the group's initialization hook.
func (g *TextureGroup) awake(counter *AwakeCounter) {
	if counter != nil {
		counter.Inc()
	}
}
