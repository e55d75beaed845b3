// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rgraph

import (
	"gviegas/rgraph/driver"
)

// None is the value of unresolved physical indices.
const None = -1

// SizeClass determines how the dimensions of a texture
// resource are computed during baking.
type SizeClass int

// Size classes.
const (
	// Scaled against the swapchain extent.
	SizeSwapchainRelative SizeClass = iota
	// Used verbatim.
	SizeAbsolute
	// Scaled against another resource's resolved extent.
	SizeInputRelative
)

// AttachmentInfo describes a texture resource declared as
// a pass output.
// The zero value is a swapchain-sized, swapchain-formatted,
// non-persistent single-layer attachment.
type AttachmentInfo struct {
	SizeClass SizeClass
	// Width/Height are either absolute pixel counts
	// (SizeAbsolute) or scale factors (relative classes).
	// A zero scale factor means 1.0.
	Width  float32
	Height float32
	// FUndefined resolves to the swapchain's format.
	Format driver.PixelFmt
	// Name of the resource that relative sizing refers to.
	// Used only by SizeInputRelative.
	SizeRelativeName string
	// Zero Layers/Levels mean one.
	Layers int
	Levels int
	// Persistent contents must survive the frame, which
	// makes the resource ineligible for memory aliasing.
	Persistent bool
}

// BufferInfo describes a buffer resource declared as a
// pass output.
type BufferInfo struct {
	Size  int64
	Usage driver.Usage
	// Persistent contents survive rebakes. The backing
	// buffer can be extracted before a Reset and
	// reinstalled afterwards.
	Persistent bool
}

// ResourceDimensions is the fully resolved description of a
// physical resource.
// Two resources with equal ResourceDimensions and disjoint
// live ranges may share backing memory.
type ResourceDimensions struct {
	Format driver.PixelFmt
	BufferInfo
	Width  int
	Height int
	Depth  int
	Layers int
	Levels int
	// Transient resources are eligible for aliasing.
	Transient bool
	// Persistent contents survive the frame (textures)
	// or the bake (buffers).
	Persistent bool
	// Storage resources support shader writes.
	Storage bool
}

// isBuffer returns whether d describes a buffer.
func (d *ResourceDimensions) isBuffer() bool {
	return d.BufferInfo != BufferInfo{}
}

type resKind int

const (
	resTexture resKind = iota
	resBuffer
)

// resource is an arena record owned by a Graph.
// All cross references are stable indices, never pointers.
type resource struct {
	kind     resKind
	name     string
	index    int
	physical int

	// Pass indices in declaration order, deduplicated.
	writtenIn []int
	readIn    []int
	// Passes that read the previous frame's contents.
	historyIn []int

	// Texture state.
	info    AttachmentInfo
	storage bool

	// Buffer state.
	buf BufferInfo
}

func (r *resource) writtenBy(pass int) {
	for _, p := range r.writtenIn {
		if p == pass {
			return
		}
	}
	r.writtenIn = append(r.writtenIn, pass)
}

func (r *resource) readBy(pass int) {
	for _, p := range r.readIn {
		if p == pass {
			return
		}
	}
	r.readIn = append(r.readIn, pass)
}

func (r *resource) historyReadBy(pass int) {
	for _, p := range r.historyIn {
		if p == pass {
			return
		}
	}
	r.historyIn = append(r.historyIn, pass)
}

// TextureResource is a handle to a texture resource of
// a Graph.
type TextureResource struct {
	g     *Graph
	index int
}

// Name returns the resource's name.
func (r *TextureResource) Name() string { return r.g.resources[r.index].name }

// Index returns the resource's stable index.
func (r *TextureResource) Index() int { return r.index }

// PhysicalIndex returns the physical index assigned during
// the last successful bake, or None.
func (r *TextureResource) PhysicalIndex() int { return r.g.resources[r.index].physical }

// AttachmentInfo returns the resource's declared sizing
// and format policy.
func (r *TextureResource) AttachmentInfo() AttachmentInfo { return r.g.resources[r.index].info }

// BufferResource is a handle to a buffer resource of
// a Graph.
type BufferResource struct {
	g     *Graph
	index int
}

// Name returns the resource's name.
func (r *BufferResource) Name() string { return r.g.resources[r.index].name }

// Index returns the resource's stable index.
func (r *BufferResource) Index() int { return r.index }

// PhysicalIndex returns the physical index assigned during
// the last successful bake, or None.
func (r *BufferResource) PhysicalIndex() int { return r.g.resources[r.index].physical }

// BufferInfo returns the resource's declared buffer
// description.
func (r *BufferResource) BufferInfo() BufferInfo { return r.g.resources[r.index].buf }
