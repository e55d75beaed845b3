// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rgraph

import (
	"gviegas/rgraph/driver"
)

// PassImpl is the capability that records a pass's commands.
// The graph stores it per pass and never inspects the
// concrete type; render techniques provide their own
// implementations.
type PassImpl interface {
	// Record records the pass's commands.
	// It is called once per frame for each sub-stage,
	// after the graph has recorded the required
	// synchronization into cmd.
	Record(cmd driver.CmdBuffer, pass *Pass)
}

// ColorClearer is the interface that a PassImpl may
// implement to request literal clears of its color
// outputs.
type ColorClearer interface {
	// ClearColorValue returns the clear value for the
	// i-th color output, or false if the contents may
	// be discarded instead.
	ClearColorValue(i int) ([4]float32, bool)
}

// DSClearer is the interface that a PassImpl may
// implement to request a literal clear of its
// depth/stencil output.
type DSClearer interface {
	// ClearDSValue returns the depth and stencil clear
	// values, or false if the contents may be discarded
	// instead.
	ClearDSValue() (depth float32, stencil uint32, ok bool)
}

// Pass is a declared unit of GPU work.
// Its resource roles are declared by the Add*/Set* methods,
// each of which returns a handle to the referenced resource,
// implicitly creating it on first reference.
type Pass struct {
	g        *Graph
	name     string
	index    int
	stages   driver.Sync
	physical int
	impl     PassImpl

	// Parallel slices: colorInputs[i] and colorScaleInputs[i]
	// belong to colorOutputs[i] and hold None when absent.
	colorOutputs     []int
	colorInputs      []int
	colorScaleInputs []int

	textureInputs    []int
	attachmentInputs []int
	historyInputs    []int
	uniformInputs    []int

	// storageInputs is parallel to storageOutputs;
	// storageTexInputs is parallel to storageTexOutputs.
	storageOutputs    []int
	storageInputs     []int
	storageReadInputs []int
	storageTexOutputs []int
	storageTexInputs  []int

	depthStencilInput  int
	depthStencilOutput int
}

// Name returns the pass's name.
func (p *Pass) Name() string { return p.name }

// Index returns the pass's stable index.
func (p *Pass) Index() int { return p.index }

// Stages returns the synchronization scope where the
// pass executes.
func (p *Pass) Stages() driver.Sync { return p.stages }

// PhysicalIndex returns the physical pass this pass was
// merged into during the last successful bake, or None.
func (p *Pass) PhysicalIndex() int { return p.physical }

// SetImpl sets the pass's command recording capability.
func (p *Pass) SetImpl(impl PassImpl) { p.impl = impl }

// Impl returns the pass's command recording capability.
func (p *Pass) Impl() PassImpl { return p.impl }

// AddColorOutput declares that the pass renders to the named
// color attachment.
// If input is non-empty, it names a resource whose contents
// the pass blends with in place; the input aliases the
// output's physical storage.
func (p *Pass) AddColorOutput(name string, info AttachmentInfo, input string) *TextureResource {
	if info.Format.IsDS() {
		panic("rgraph: color output declared with depth/stencil format: " + name)
	}
	r := p.g.textureResource(name)
	r.info = info
	r.writtenBy(p.index)
	p.colorOutputs = append(p.colorOutputs, r.index)
	if input != "" {
		in := p.g.textureResource(input)
		in.readBy(p.index)
		p.colorInputs = append(p.colorInputs, in.index)
	} else {
		p.colorInputs = append(p.colorInputs, None)
	}
	p.colorScaleInputs = append(p.colorScaleInputs, None)
	return &TextureResource{p.g, r.index}
}

// MakeColorInputScaled turns the i-th color input into a
// scaled input: instead of aliasing the output's storage,
// the input is blitted into the attachment before the
// physical pass executes, scaling as needed.
func (p *Pass) MakeColorInputScaled(i int) {
	p.colorInputs[i], p.colorScaleInputs[i] = p.colorScaleInputs[i], p.colorInputs[i]
}

// SetDepthStencilOutput declares that the pass writes the
// named depth/stencil attachment.
func (p *Pass) SetDepthStencilOutput(name string, info AttachmentInfo) *TextureResource {
	if info.Format != driver.FUndefined && !info.Format.IsDS() {
		panic("rgraph: depth/stencil output declared with color format: " + name)
	}
	r := p.g.textureResource(name)
	r.info = info
	r.writtenBy(p.index)
	p.depthStencilOutput = r.index
	return &TextureResource{p.g, r.index}
}

// SetDepthStencilInput declares that the pass tests against
// the named depth/stencil attachment without writing it.
func (p *Pass) SetDepthStencilInput(name string) *TextureResource {
	r := p.g.textureResource(name)
	r.readBy(p.index)
	p.depthStencilInput = r.index
	return &TextureResource{p.g, r.index}
}

// AddTextureInput declares that the pass samples the named
// texture.
func (p *Pass) AddTextureInput(name string) *TextureResource {
	r := p.g.textureResource(name)
	r.readBy(p.index)
	p.textureInputs = append(p.textureInputs, r.index)
	return &TextureResource{p.g, r.index}
}

// AddAttachmentInput declares that the pass reads the named
// texture as a per-pixel input attachment. Unlike sampled
// reads, attachment inputs may observe writes from other
// passes merged into the same physical pass.
func (p *Pass) AddAttachmentInput(name string) *TextureResource {
	r := p.g.textureResource(name)
	r.readBy(p.index)
	p.attachmentInputs = append(p.attachmentInputs, r.index)
	return &TextureResource{p.g, r.index}
}

// AddHistoryInput declares that the pass samples the named
// texture's contents from the previous frame.
// History inputs do not create dependencies on the current
// frame's writers.
func (p *Pass) AddHistoryInput(name string) *TextureResource {
	r := p.g.textureResource(name)
	r.historyReadBy(p.index)
	p.historyInputs = append(p.historyInputs, r.index)
	return &TextureResource{p.g, r.index}
}

// AddUniformInput declares that the pass reads the named
// buffer as constant data.
func (p *Pass) AddUniformInput(name string) *BufferResource {
	r := p.g.bufferResource(name)
	r.readBy(p.index)
	p.uniformInputs = append(p.uniformInputs, r.index)
	return &BufferResource{p.g, r.index}
}

// AddStorageOutput declares that the pass writes the named
// storage buffer.
// If input is non-empty, it names a resource whose contents
// the pass updates in place; the input aliases the output's
// physical storage.
func (p *Pass) AddStorageOutput(name string, info BufferInfo, input string) *BufferResource {
	r := p.g.bufferResource(name)
	r.buf = info
	r.writtenBy(p.index)
	p.storageOutputs = append(p.storageOutputs, r.index)
	if input != "" {
		in := p.g.bufferResource(input)
		in.readBy(p.index)
		p.storageInputs = append(p.storageInputs, in.index)
	} else {
		p.storageInputs = append(p.storageInputs, None)
	}
	return &BufferResource{p.g, r.index}
}

// AddStorageReadOnlyInput declares that the pass reads the
// named storage buffer.
func (p *Pass) AddStorageReadOnlyInput(name string) *BufferResource {
	r := p.g.bufferResource(name)
	r.readBy(p.index)
	p.storageReadInputs = append(p.storageReadInputs, r.index)
	return &BufferResource{p.g, r.index}
}

// AddStorageTextureOutput declares that the pass writes the
// named storage texture from shaders.
// If input is non-empty, it names a resource whose contents
// the pass updates in place; the input aliases the output's
// physical storage.
func (p *Pass) AddStorageTextureOutput(name string, info AttachmentInfo, input string) *TextureResource {
	r := p.g.textureResource(name)
	r.info = info
	r.storage = true
	r.writtenBy(p.index)
	p.storageTexOutputs = append(p.storageTexOutputs, r.index)
	if input != "" {
		in := p.g.textureResource(input)
		in.readBy(p.index)
		p.storageTexInputs = append(p.storageTexInputs, in.index)
	} else {
		p.storageTexInputs = append(p.storageTexInputs, None)
	}
	return &TextureResource{p.g, r.index}
}

// eachRead calls fn for every resource the pass reads
// during the current frame. History inputs are excluded;
// they refer to the previous frame's contents.
func (p *Pass) eachRead(fn func(res int)) {
	for _, r := range p.colorInputs {
		if r != None {
			fn(r)
		}
	}
	for _, r := range p.colorScaleInputs {
		if r != None {
			fn(r)
		}
	}
	for _, r := range p.textureInputs {
		fn(r)
	}
	for _, r := range p.attachmentInputs {
		fn(r)
	}
	for _, r := range p.uniformInputs {
		fn(r)
	}
	for _, r := range p.storageReadInputs {
		fn(r)
	}
	for _, r := range p.storageInputs {
		if r != None {
			fn(r)
		}
	}
	for _, r := range p.storageTexInputs {
		if r != None {
			fn(r)
		}
	}
	if p.depthStencilInput != None {
		fn(p.depthStencilInput)
	}
}

// eachWritten calls fn for every resource the pass writes.
func (p *Pass) eachWritten(fn func(res int)) {
	for _, r := range p.colorOutputs {
		fn(r)
	}
	for _, r := range p.storageOutputs {
		fn(r)
	}
	for _, r := range p.storageTexOutputs {
		fn(r)
	}
	if p.depthStencilOutput != None {
		fn(p.depthStencilOutput)
	}
}

// eachReference calls fn for every resource the pass
// references in any role, history inputs included.
func (p *Pass) eachReference(fn func(res int)) {
	p.eachRead(fn)
	p.eachWritten(fn)
	for _, r := range p.historyInputs {
		fn(r)
	}
}

// readsNonLocal reports whether the pass reads res through a role
// other than attachment input or in-place feedback, i.e., a
// read that cannot stay framebuffer-local.
func (p *Pass) readsNonLocal(res int) bool {
	for _, r := range p.textureInputs {
		if r == res {
			return true
		}
	}
	for _, r := range p.colorScaleInputs {
		if r == res {
			return true
		}
	}
	for _, r := range p.historyInputs {
		if r == res {
			return true
		}
	}
	for _, r := range p.uniformInputs {
		if r == res {
			return true
		}
	}
	for _, r := range p.storageReadInputs {
		if r == res {
			return true
		}
	}
	for _, r := range p.storageInputs {
		if r == res {
			return true
		}
	}
	for _, r := range p.storageTexInputs {
		if r == res {
			return true
		}
	}
	return false
}

// isGraphics reports whether the pass renders to
// attachments, which is a precondition for merging.
func (p *Pass) isGraphics() bool {
	if p.stages&driver.SComputeShading != 0 {
		return false
	}
	return len(p.colorOutputs) > 0 || p.depthStencilOutput != None
}
