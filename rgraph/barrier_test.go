// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rgraph

import (
	"testing"

	"gviegas/rgraph/driver"
)

// findBarrier returns the barrier of the given physical
// resource, or nil.
func findBarrier(bs []Barrier, res int, history bool) *Barrier {
	for i := range bs {
		if bs[i].Resource == res && bs[i].History == history {
			return &bs[i]
		}
	}
	return nil
}

func TestFlushInvalidatePair(t *testing.T) {
	g := New()
	declareForward(t, g)
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	pps := g.PhysicalPasses()
	if len(pps) != 2 {
		t.Fatalf("physical passes:\nhave %d\nwant 2", len(pps))
	}
	depth := g.TextureResource("depth").PhysicalIndex()

	fl := findBarrier(pps[0].Flush, depth, false)
	if fl == nil {
		t.Fatal("prepass: no flush of depth")
	}
	inv := findBarrier(pps[1].Invalidate, depth, false)
	if inv == nil {
		t.Fatal("lighting: no invalidate of depth")
	}
	// The producer's flush leaves the resource in exactly
	// the layout its next consumer invalidates for.
	if fl.Layout != inv.Layout {
		t.Fatalf("flush/invalidate layouts:\nhave %v and %v\nwant equal", fl.Layout, inv.Layout)
	}
	if inv.Layout != driver.LShaderRead {
		t.Fatalf("invalidate layout:\nhave %v\nwant %v", inv.Layout, driver.LShaderRead)
	}
	if inv.Access != driver.AShaderRead {
		t.Fatalf("invalidate access:\nhave %v\nwant %v", inv.Access, driver.AShaderRead)
	}
	if fl.Access != driver.ADSWrite|driver.ADSRead || fl.Stages != driver.SDSOutput {
		t.Fatalf("flush scopes:\nhave %v %v\nwant %v %v",
			fl.Access, fl.Stages, driver.ADSWrite|driver.ADSRead, driver.SDSOutput)
	}
}

func TestBackbufferFlushPresent(t *testing.T) {
	g := New()
	declareForward(t, g)
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	pps := g.PhysicalPasses()
	fl := findBarrier(pps[len(pps)-1].Flush, g.BackbufferIndex(), false)
	if fl == nil {
		t.Fatal("no flush of the backbuffer")
	}
	if fl.Layout != driver.LPresent {
		t.Fatalf("backbuffer flush layout:\nhave %v\nwant %v", fl.Layout, driver.LPresent)
	}
}

func TestInitialBarriers(t *testing.T) {
	g := New()
	declareForward(t, g)
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	initial := g.InitialBarriers()
	if len(initial) != 2 {
		t.Fatalf("initial barriers:\nhave %d\nwant 2", len(initial))
	}
	seen := make(map[int]bool)
	for _, b := range initial {
		if seen[b.Resource] {
			t.Fatalf("initial barriers: resource %d listed twice", b.Resource)
		}
		seen[b.Resource] = true
	}
	depth := g.TextureResource("depth").PhysicalIndex()
	if b := findBarrier(initial, depth, false); b == nil || b.Layout != driver.LDSTarget {
		t.Fatalf("initial depth barrier:\nhave %v\nwant layout %v", b, driver.LDSTarget)
	}
	if b := findBarrier(initial, g.BackbufferIndex(), false); b == nil || b.Layout != driver.LColorTarget {
		t.Fatalf("initial backbuffer barrier:\nhave %v\nwant layout %v", b, driver.LColorTarget)
	}
}

func TestMergedPassCoalesces(t *testing.T) {
	g := New()
	declareDeferred(t, g)
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	pp := &g.PhysicalPasses()[0]
	// Three resources, one invalidate each; the attachment
	// input and the depth test read are framebuffer-local.
	if len(pp.Invalidate) != 3 {
		t.Fatalf("invalidates:\nhave %v\nwant 3 entries", pp.Invalidate)
	}
	depth := g.TextureResource("depth").PhysicalIndex()
	if b := findBarrier(pp.Invalidate, depth, false); b == nil || b.Layout != driver.LDSTarget {
		t.Fatalf("depth invalidate:\nhave %v\nwant layout %v", b, driver.LDSTarget)
	}
	// Only the backbuffer write outlives the frame; the
	// g-buffer and depth flushes are dropped.
	if len(pp.Flush) != 1 || pp.Flush[0].Resource != g.BackbufferIndex() {
		t.Fatalf("flushes:\nhave %v\nwant backbuffer only", pp.Flush)
	}
	if pp.Flush[0].Layout != driver.LPresent {
		t.Fatalf("backbuffer flush layout:\nhave %v\nwant %v", pp.Flush[0].Layout, driver.LPresent)
	}
}

func TestHistoryBarriers(t *testing.T) {
	g := New()
	g.SetSwapchainDimensions(swapDim1280)
	sc, _ := g.AddPass("scene", driver.SFragmentShading|driver.SColorOutput)
	sc.AddColorOutput("scene", AttachmentInfo{Format: driver.RGBA16f}, "")
	taa, _ := g.AddPass("taa", driver.SFragmentShading|driver.SColorOutput)
	taa.AddTextureInput("scene")
	taa.AddHistoryInput("resolved")
	taa.AddColorOutput("resolved", AttachmentInfo{Format: driver.RGBA16f}, "")
	tone, _ := g.AddPass("tonemap", driver.SFragmentShading|driver.SColorOutput)
	tone.AddTextureInput("resolved")
	tone.AddColorOutput("color", AttachmentInfo{}, "")
	g.SetBackbuffer("color")
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	resolved := g.TextureResource("resolved").PhysicalIndex()
	var pp *PhysicalPass
	for i := range g.PhysicalPasses() {
		x := &g.PhysicalPasses()[i]
		if len(x.Passes) == 1 && x.Passes[0] == taa.Index() {
			pp = x
		}
	}
	if pp == nil {
		t.Fatal("no physical pass for taa")
	}
	// The previous frame's image and the current frame's
	// are distinct states of the same physical resource.
	hist := findBarrier(pp.Invalidate, resolved, true)
	if hist == nil || hist.Layout != driver.LShaderRead {
		t.Fatalf("history invalidate:\nhave %v\nwant layout %v", hist, driver.LShaderRead)
	}
	cur := findBarrier(pp.Invalidate, resolved, false)
	if cur == nil || cur.Layout != driver.LColorTarget {
		t.Fatalf("current-frame invalidate:\nhave %v\nwant layout %v", cur, driver.LColorTarget)
	}
	// The write is flushed for the tonemap read.
	fl := findBarrier(pp.Flush, resolved, false)
	if fl == nil || fl.Layout != driver.LShaderRead {
		t.Fatalf("flush:\nhave %v\nwant layout %v", fl, driver.LShaderRead)
	}
	// History images are initialized on first write, not
	// by frame-initial barriers.
	for _, b := range g.InitialBarriers() {
		if b.History {
			t.Fatalf("initial barriers:\nhave history entry %v\nwant none", b)
		}
	}
}

func TestBufferBarriers(t *testing.T) {
	g := New()
	g.SetSwapchainDimensions(swapDim1280)
	p, _ := g.AddPass("cull", driver.SComputeShading)
	p.AddStorageOutput("visible", BufferInfo{Size: 4096}, "")
	q, _ := g.AddPass("draw", driver.SVertexShading|driver.SFragmentShading|driver.SColorOutput)
	q.AddStorageReadOnlyInput("visible")
	q.AddColorOutput("color", AttachmentInfo{}, "")
	g.SetBackbuffer("color")
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	pps := g.PhysicalPasses()
	visible := g.BufferResource("visible").PhysicalIndex()

	fl := findBarrier(pps[0].Flush, visible, false)
	if fl == nil || fl.Access != driver.AShaderWrite || fl.Stages != driver.SComputeShading {
		t.Fatalf("buffer flush:\nhave %v\nwant %v at %v", fl, driver.AShaderWrite, driver.SComputeShading)
	}
	inv := findBarrier(pps[1].Invalidate, visible, false)
	if inv == nil || inv.Access != driver.AShaderRead {
		t.Fatalf("buffer invalidate:\nhave %v\nwant access %v", inv, driver.AShaderRead)
	}
	// Buffers have no layout.
	if fl.Layout != driver.LUndefined || inv.Layout != driver.LUndefined {
		t.Fatalf("buffer layouts:\nhave %v and %v\nwant %v", fl.Layout, inv.Layout, driver.LUndefined)
	}
	// And never appear in the frame-initial transitions.
	if b := findBarrier(g.InitialBarriers(), visible, false); b != nil {
		t.Fatalf("initial barriers:\nhave buffer entry %v\nwant none", b)
	}
}
