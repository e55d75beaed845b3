// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package rgraph compiles a declarative description of GPU
// work into an executable frame schedule.
// Callers declare named passes that read and write named
// resources; baking the graph computes a pass execution
// order, merges compatible passes into physical passes,
// assigns aliased backing storage to transient resources
// and synthesizes the layout/access/stage barriers that
// make the schedule correct.
//
// A Graph's mutable state is not safe for concurrent use;
// callers must serialize declaration, bake and recording
// calls.
package rgraph

import (
	"errors"
	"fmt"
	"log"

	"gviegas/rgraph/driver"
)

// Errors returned by Graph.AddPass and Graph.Bake.
var (
	ErrDuplicatePass           = errors.New("rgraph: duplicate pass name")
	ErrNoBackbufferProducer    = errors.New("rgraph: no backbuffer producer")
	ErrCyclicDependency        = errors.New("rgraph: cyclic dependency")
	ErrUnresolvedSizeReference = errors.New("rgraph: unresolved size reference")
)

// Graph owns a set of declared passes and resources and the
// physical schedule compiled from them.
type Graph struct {
	passes    []*Pass
	resources []*resource
	passIdx   map[string]int
	resIdx    map[string]int

	backbuffer string
	swapDim    ResourceDimensions

	// State of the last successful bake.
	baked     bool
	order     []int
	physical  []PhysicalPass
	physDims  []ResourceDimensions
	initial   []Barrier
	swapIndex int

	// Physical backing storage, reconciled lazily by
	// SetupAttachments. Survives bakes when dimensions
	// do not change.
	gpu           driver.GPU
	images        []driver.Image
	views         []driver.ImageView
	historyImages []driver.Image
	historyViews  []driver.ImageView
	historyValid  []bool
	hasHistory    []bool
	buffers       []driver.Buffer
	installed     []driver.Buffer
	setupDims     []ResourceDimensions
	swapView      driver.ImageView
	stale         bool

	// Per-resource state tracked across recorded frames.
	curLayout  []driver.Layout
	curAccess  []driver.Access
	curStages  []driver.Sync
	histLayout []driver.Layout
	histAccess []driver.Access
	histStages []driver.Sync
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		passIdx: make(map[string]int),
		resIdx:  make(map[string]int),
	}
}

// AddPass registers a new pass executing in the given
// synchronization scope.
// It fails with ErrDuplicatePass if the name is taken.
func (g *Graph) AddPass(name string, stages driver.Sync) (*Pass, error) {
	if _, ok := g.passIdx[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicatePass, name)
	}
	p := &Pass{
		g:                  g,
		name:               name,
		index:              len(g.passes),
		stages:             stages,
		physical:           None,
		depthStencilInput:  None,
		depthStencilOutput: None,
	}
	g.passIdx[name] = p.index
	g.passes = append(g.passes, p)
	return p, nil
}

// Pass returns the pass registered under name, or nil.
func (g *Graph) Pass(name string) *Pass {
	if i, ok := g.passIdx[name]; ok {
		return g.passes[i]
	}
	return nil
}

// SetBackbuffer designates the named resource as the
// graph's final output.
func (g *Graph) SetBackbuffer(name string) { g.backbuffer = name }

// SetSwapchainDimensions sets the extent and format that
// swapchain-relative resources resolve against.
func (g *Graph) SetSwapchainDimensions(dim ResourceDimensions) { g.swapDim = dim }

// textureResource returns the texture resource registered
// under name, creating it on first reference.
// Referencing the name as a different kind is a declaration
// bug and panics.
func (g *Graph) textureResource(name string) *resource {
	if i, ok := g.resIdx[name]; ok {
		r := g.resources[i]
		if r.kind != resTexture {
			panic("rgraph: resource kind mismatch: " + name)
		}
		return r
	}
	r := &resource{
		kind:     resTexture,
		name:     name,
		index:    len(g.resources),
		physical: None,
	}
	g.resIdx[name] = r.index
	g.resources = append(g.resources, r)
	return r
}

// bufferResource returns the buffer resource registered
// under name, creating it on first reference.
func (g *Graph) bufferResource(name string) *resource {
	if i, ok := g.resIdx[name]; ok {
		r := g.resources[i]
		if r.kind != resBuffer {
			panic("rgraph: resource kind mismatch: " + name)
		}
		return r
	}
	r := &resource{
		kind:     resBuffer,
		name:     name,
		index:    len(g.resources),
		physical: None,
	}
	g.resIdx[name] = r.index
	g.resources = append(g.resources, r)
	return r
}

// TextureResource returns a handle to the named texture
// resource, or nil if no such resource was declared.
func (g *Graph) TextureResource(name string) *TextureResource {
	if i, ok := g.resIdx[name]; ok && g.resources[i].kind == resTexture {
		return &TextureResource{g, i}
	}
	return nil
}

// BufferResource returns a handle to the named buffer
// resource, or nil if no such resource was declared.
func (g *Graph) BufferResource(name string) *BufferResource {
	if i, ok := g.resIdx[name]; ok && g.resources[i].kind == resBuffer {
		return &BufferResource{g, i}
	}
	return nil
}

// Bake compiles the declared passes into a physical
// schedule.
// It needs to run again only when the graph's topology
// changes: new declarations, a Reset or a swapchain
// resize. On failure, the state of the last successful
// bake remains valid.
func (g *Graph) Bake() error {
	order, err := g.resolvePasses()
	if err != nil {
		return err
	}
	dims, _, err := g.resolveDimensions(order)
	if err != nil {
		return err
	}
	groups := g.mergePasses(order, dims)
	physDims, swapIndex, hasHistory := g.allocPhysical(order, dims)
	physical := g.buildRenderTargets(order, groups)
	initial := g.buildBarriers(physical, physDims, swapIndex, hasHistory)

	g.order = order
	g.physical = physical
	g.physDims = physDims
	g.initial = initial
	g.swapIndex = swapIndex
	g.hasHistory = hasHistory
	g.baked = true
	return nil
}

// Reset clears every declared pass and resource, retaining
// nothing.
// Physical backing storage still owned by the graph is
// destroyed; persistent buffers the caller wants to keep
// across the reset must be consumed beforehand.
func (g *Graph) Reset() {
	g.destroyPhysical()
	*g = Graph{
		passIdx: make(map[string]int),
		resIdx:  make(map[string]int),
		swapDim: g.swapDim,
	}
}

// PhysicalPasses returns the physical schedule of the last
// successful bake, in execution order.
// The returned slice and its contents must not be modified.
func (g *Graph) PhysicalPasses() []PhysicalPass {
	g.mustBake()
	return g.physical
}

// PhysicalDimensions returns the resolved dimensions of the
// given physical resource.
func (g *Graph) PhysicalDimensions(i int) ResourceDimensions {
	g.mustBake()
	return g.physDims[i]
}

// InitialBarriers returns the transitions required before
// the first use of each physical resource in a frame.
func (g *Graph) InitialBarriers() []Barrier {
	g.mustBake()
	return g.initial
}

// BackbufferIndex returns the physical index of the
// backbuffer resource.
func (g *Graph) BackbufferIndex() int {
	g.mustBake()
	return g.swapIndex
}

func (g *Graph) mustBake() {
	if !g.baked {
		panic("rgraph: graph not baked")
	}
}

// SwapchainChanged implements driver.SwapchainHandler.
// Cached physical images are invalidated and recreated by
// the next SetupAttachments call; the caller must rebake
// before then so that swapchain-relative resources pick up
// the new extent.
func (g *Graph) SwapchainChanged(pf driver.PixelFmt, dim driver.Dim3D) {
	g.swapDim.Format = pf
	g.swapDim.Width = dim.Width
	g.swapDim.Height = dim.Height
	g.swapDim.Depth = 1
	g.swapView = nil
	g.stale = true
}

// SwapchainDestroyed implements driver.SwapchainHandler.
func (g *Graph) SwapchainDestroyed() {
	g.swapView = nil
	g.stale = true
}

// Log writes a human-readable dump of the baked schedule
// to the standard logger.
func (g *Graph) Log() {
	if !g.baked {
		log.Print("rgraph: graph not baked")
		return
	}
	for i := range g.physical {
		pp := &g.physical[i]
		log.Printf("rgraph: physical pass #%d", i)
		for _, p := range pp.Passes {
			log.Printf("rgraph:   sub-stage %q", g.passes[p].name)
		}
		for _, a := range pp.ColorAttachments {
			log.Printf("rgraph:   color attachment #%d (%dx%d)", a, g.physDims[a].Width, g.physDims[a].Height)
		}
		if pp.DepthStencilAttachment != None {
			a := pp.DepthStencilAttachment
			log.Printf("rgraph:   depth/stencil attachment #%d (%dx%d)", a, g.physDims[a].Width, g.physDims[a].Height)
		}
		for _, b := range pp.Invalidate {
			log.Printf("rgraph:   invalidate #%d layout %d access %#x stages %#x", b.Resource, b.Layout, b.Access, b.Stages)
		}
		for _, b := range pp.Flush {
			log.Printf("rgraph:   flush #%d layout %d access %#x stages %#x", b.Resource, b.Layout, b.Access, b.Stages)
		}
	}
}
