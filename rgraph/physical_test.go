// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rgraph

import (
	"testing"

	"gviegas/rgraph/driver"
)

// declareDeferred declares a g-buffer pass and a shading
// pass that consumes the g-buffer per pixel, which is the
// mergeable arrangement.
func declareDeferred(t *testing.T, g *Graph) (gbuf, shade *Pass) {
	t.Helper()
	g.SetSwapchainDimensions(swapDim1280)
	gbuf, _ = g.AddPass("gbuffer", driver.SVertexShading|driver.SFragmentShading|driver.SColorOutput|driver.SDSOutput)
	gbuf.AddColorOutput("albedo", AttachmentInfo{Format: driver.RGBA8un}, "")
	gbuf.SetDepthStencilOutput("depth", AttachmentInfo{Format: driver.D32f})
	shade, _ = g.AddPass("shading", driver.SFragmentShading|driver.SColorOutput)
	shade.AddAttachmentInput("albedo")
	shade.SetDepthStencilInput("depth")
	shade.AddColorOutput("color", AttachmentInfo{}, "")
	g.SetBackbuffer("color")
	return
}

func TestMergeAttachmentInput(t *testing.T) {
	g := New()
	gbuf, shade := declareDeferred(t, g)
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	pps := g.PhysicalPasses()
	if len(pps) != 1 {
		t.Fatalf("physical passes:\nhave %d\nwant 1", len(pps))
	}
	pp := &pps[0]
	if len(pp.Passes) != 2 || pp.Passes[0] != gbuf.Index() || pp.Passes[1] != shade.Index() {
		t.Fatalf("sub-stages:\nhave %v\nwant [%d %d]", pp.Passes, gbuf.Index(), shade.Index())
	}
	if gbuf.PhysicalIndex() != 0 || shade.PhysicalIndex() != 0 {
		t.Fatalf("pass physical indices:\nhave %d and %d\nwant 0 and 0",
			gbuf.PhysicalIndex(), shade.PhysicalIndex())
	}
	if x := g.TextureResource("depth").PhysicalIndex(); pp.DepthStencilAttachment != x {
		t.Fatalf("depth/stencil attachment:\nhave %d\nwant %d", pp.DepthStencilAttachment, x)
	}
	if len(pp.ColorAttachments) != 2 {
		t.Fatalf("color attachments:\nhave %d\nwant 2", len(pp.ColorAttachments))
	}
}

func TestNoMergeSampledRead(t *testing.T) {
	g := New()
	g.SetSwapchainDimensions(swapDim1280)
	p, _ := g.AddPass("scene", driver.SFragmentShading|driver.SColorOutput)
	p.AddColorOutput("scene", AttachmentInfo{}, "")
	q, _ := g.AddPass("blur", driver.SFragmentShading|driver.SColorOutput)
	q.AddTextureInput("scene")
	q.AddColorOutput("color", AttachmentInfo{}, "")
	g.SetBackbuffer("color")
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	if x := len(g.PhysicalPasses()); x != 2 {
		t.Fatalf("physical passes:\nhave %d\nwant 2", x)
	}
}

func TestNoMergeAreaMismatch(t *testing.T) {
	g := New()
	g.SetSwapchainDimensions(swapDim1280)
	p, _ := g.AddPass("half", driver.SFragmentShading|driver.SColorOutput)
	p.AddColorOutput("half", AttachmentInfo{Width: 0.5, Height: 0.5}, "")
	q, _ := g.AddPass("full", driver.SFragmentShading|driver.SColorOutput)
	q.AddAttachmentInput("half")
	q.AddColorOutput("color", AttachmentInfo{}, "")
	g.SetBackbuffer("color")
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	if x := len(g.PhysicalPasses()); x != 2 {
		t.Fatalf("physical passes:\nhave %d\nwant 2", x)
	}
}

func TestNoMergeCompute(t *testing.T) {
	g := New()
	g.SetSwapchainDimensions(swapDim1280)
	p, _ := g.AddPass("cull", driver.SComputeShading)
	p.AddStorageOutput("visible", BufferInfo{Size: 4096}, "")
	q, _ := g.AddPass("draw", driver.SFragmentShading|driver.SColorOutput)
	q.AddStorageReadOnlyInput("visible")
	q.AddColorOutput("color", AttachmentInfo{}, "")
	g.SetBackbuffer("color")
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	if x := len(g.PhysicalPasses()); x != 2 {
		t.Fatalf("physical passes:\nhave %d\nwant 2", x)
	}
}

func TestNoMergeDepthConflict(t *testing.T) {
	g := New()
	g.SetSwapchainDimensions(swapDim1280)
	p, _ := g.AddPass("main", driver.SFragmentShading|driver.SColorOutput|driver.SDSOutput)
	p.AddColorOutput("scene", AttachmentInfo{}, "")
	p.SetDepthStencilOutput("depth1", AttachmentInfo{Format: driver.D32f})
	q, _ := g.AddPass("decals", driver.SFragmentShading|driver.SColorOutput|driver.SDSOutput)
	q.AddAttachmentInput("scene")
	q.SetDepthStencilOutput("depth2", AttachmentInfo{Format: driver.D32f})
	q.AddColorOutput("color", AttachmentInfo{}, "")
	g.SetBackbuffer("color")
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	if x := len(g.PhysicalPasses()); x != 2 {
		t.Fatalf("physical passes:\nhave %d\nwant 2", x)
	}
}

func TestClearRequests(t *testing.T) {
	g := New()
	gbuf, _ := declareDeferred(t, g)
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	pp := &g.PhysicalPasses()[0]
	// Every first write without input contents may clear:
	// both color outputs and the depth buffer.
	if len(pp.ColorClears) != 2 {
		t.Fatalf("color clears:\nhave %d\nwant 2", len(pp.ColorClears))
	}
	if c := pp.ColorClears[0]; c.Pass != gbuf.Index() || c.Output != 0 {
		t.Fatalf("color clear:\nhave pass %d output %d\nwant pass %d output 0", c.Pass, c.Output, gbuf.Index())
	}
	if pp.DepthClear != gbuf.Index() {
		t.Fatalf("depth clear:\nhave %d\nwant %d", pp.DepthClear, gbuf.Index())
	}
}

func TestScaledBlit(t *testing.T) {
	g := New()
	g.SetSwapchainDimensions(swapDim1280)
	p, _ := g.AddPass("particles", driver.SFragmentShading|driver.SColorOutput)
	p.AddColorOutput("lowres", AttachmentInfo{Width: 0.5, Height: 0.5, Format: driver.RGBA16f}, "")
	q, _ := g.AddPass("compose", driver.SFragmentShading|driver.SColorOutput)
	q.AddColorOutput("color", AttachmentInfo{}, "lowres")
	q.MakeColorInputScaled(0)
	g.SetBackbuffer("color")
	if err := g.Bake(); err != nil {
		t.Fatalf("g.Bake failed:\n%v", err)
	}
	pps := g.PhysicalPasses()
	if len(pps) != 2 {
		t.Fatalf("physical passes:\nhave %d\nwant 2", len(pps))
	}
	pp := &pps[1]
	if len(pp.ScaledBlits) != 1 || len(pp.ScaledBlits[0]) != 1 {
		t.Fatalf("scaled blits:\nhave %v\nwant one for one sub-stage", pp.ScaledBlits)
	}
	blit := pp.ScaledBlits[0][0]
	if x := g.TextureResource("lowres").PhysicalIndex(); blit.Source != x {
		t.Fatalf("blit source:\nhave %d\nwant %d", blit.Source, x)
	}
	if x := pp.ColorAttachments[blit.Attachment]; x != g.BackbufferIndex() {
		t.Fatalf("blit attachment:\nhave physical %d\nwant %d", x, g.BackbufferIndex())
	}
	// The blitted-into attachment must not also be cleared.
	if len(pp.ColorClears) != 0 {
		t.Fatalf("color clears:\nhave %v\nwant none", pp.ColorClears)
	}
}
