// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rgraph

import (
	"gviegas/rgraph/driver"
)

// SetupAttachments reconciles the graph's backing storage
// with the dimensions of the last successful bake.
// Images and buffers whose dimensions did not change are
// kept; the rest are destroyed and recreated. swapView is
// the view of the current swapchain image that backs the
// backbuffer; the graph does not own it.
// It must be called after a successful Bake and before
// Record, and again whenever the swapchain changes.
func (g *Graph) SetupAttachments(gpu driver.GPU, swapView driver.ImageView) error {
	g.mustBake()
	n := len(g.physDims)
	if g.gpu != gpu || len(g.setupDims) != n {
		g.releaseBacking()
		g.gpu = gpu
		g.images = make([]driver.Image, n)
		g.views = make([]driver.ImageView, n)
		g.historyImages = make([]driver.Image, n)
		g.historyViews = make([]driver.ImageView, n)
		g.historyValid = make([]bool, n)
		g.buffers = make([]driver.Buffer, n)
		g.setupDims = make([]ResourceDimensions, n)
		g.curLayout = make([]driver.Layout, n)
		g.curAccess = make([]driver.Access, n)
		g.curStages = make([]driver.Sync, n)
		g.histLayout = make([]driver.Layout, n)
		g.histAccess = make([]driver.Access, n)
		g.histStages = make([]driver.Sync, n)
	}
	if len(g.installed) < n {
		g.installed = append(g.installed, make([]driver.Buffer, n-len(g.installed))...)
	}

	for i := 0; i < n; i++ {
		d := g.physDims[i]
		switch {
		case d.isBuffer():
			if err := g.setupBuffer(i, d); err != nil {
				return err
			}
		case i == g.swapIndex:
			// Caller-owned; the nil image marks it as such.
			g.destroyImage(i)
			g.images[i] = nil
			g.views[i] = swapView
			g.curLayout[i] = driver.LUndefined
			g.curAccess[i] = driver.ANone
			g.curStages[i] = driver.SNone
		default:
			if g.images[i] != nil && g.setupDims[i] == d {
				break
			}
			if err := g.setupImage(i, d); err != nil {
				return err
			}
		}
		g.setupDims[i] = d
	}
	g.swapView = swapView
	g.stale = false
	return nil
}

func (g *Graph) setupBuffer(i int, d ResourceDimensions) error {
	if b := g.installed[i]; b != nil {
		g.installed[i] = nil
		if b.Cap() >= d.BufferInfo.Size {
			if g.buffers[i] != nil {
				g.buffers[i].Destroy()
			}
			g.buffers[i] = b
			return nil
		}
		b.Destroy()
	}
	if g.buffers[i] != nil && g.buffers[i].Cap() >= d.BufferInfo.Size {
		return nil
	}
	if g.buffers[i] != nil {
		g.buffers[i].Destroy()
		g.buffers[i] = nil
	}
	usg := d.BufferInfo.Usage
	if usg == 0 {
		usg = driver.UShaderRead | driver.UShaderWrite | driver.UShaderConst | driver.UCopySrc | driver.UCopyDst
	}
	b, err := g.gpu.NewBuffer(d.BufferInfo.Size, usg)
	if err != nil {
		return err
	}
	g.buffers[i] = b
	g.curAccess[i] = driver.ANone
	g.curStages[i] = driver.SNone
	return nil
}

func (g *Graph) setupImage(i int, d ResourceDimensions) error {
	g.destroyImage(i)
	usg := driver.URenderTarget | driver.UShaderSample | driver.UCopySrc | driver.UCopyDst
	if d.Storage {
		usg |= driver.UShaderRead | driver.UShaderWrite
	}
	typ := driver.IView2D
	if d.Layers > 1 {
		typ = driver.IView2DArray
	}
	size := driver.Dim3D{Width: d.Width, Height: d.Height, Depth: d.Depth}

	newPair := func() (driver.Image, driver.ImageView, error) {
		img, err := g.gpu.NewImage(d.Format, size, d.Layers, d.Levels, usg)
		if err != nil {
			return nil, nil, err
		}
		view, err := img.NewView(typ, 0, d.Layers, 0, d.Levels)
		if err != nil {
			img.Destroy()
			return nil, nil, err
		}
		return img, view, nil
	}

	img, view, err := newPair()
	if err != nil {
		return err
	}
	g.images[i] = img
	g.views[i] = view
	g.curLayout[i] = driver.LUndefined
	g.curAccess[i] = driver.ANone
	g.curStages[i] = driver.SNone
	if g.hasHistory[i] {
		img, view, err := newPair()
		if err != nil {
			return err
		}
		g.historyImages[i] = img
		g.historyViews[i] = view
		g.historyValid[i] = false
		g.histLayout[i] = driver.LUndefined
		g.histAccess[i] = driver.ANone
		g.histStages[i] = driver.SNone
	}
	return nil
}

// destroyImage destroys the i-th physical image pair, if
// owned by the graph.
func (g *Graph) destroyImage(i int) {
	if g.images[i] != nil {
		if g.views[i] != nil {
			g.views[i].Destroy()
		}
		g.images[i].Destroy()
		g.images[i] = nil
	}
	g.views[i] = nil
	if g.historyImages[i] != nil {
		if g.historyViews[i] != nil {
			g.historyViews[i].Destroy()
		}
		g.historyImages[i].Destroy()
		g.historyImages[i] = nil
		g.historyViews[i] = nil
	}
	g.historyValid[i] = false
}

// releaseBacking destroys all graph-owned backing storage.
// Installed buffers not yet adopted are kept; they still
// belong to the graph and are destroyed by destroyPhysical.
func (g *Graph) releaseBacking() {
	for i := range g.images {
		g.destroyImage(i)
	}
	for i, b := range g.buffers {
		if b != nil {
			b.Destroy()
			g.buffers[i] = nil
		}
	}
	g.images = nil
	g.views = nil
	g.historyImages = nil
	g.historyViews = nil
	g.historyValid = nil
	g.buffers = nil
	g.setupDims = nil
	g.swapView = nil
}

func (g *Graph) destroyPhysical() {
	g.releaseBacking()
	for i, b := range g.installed {
		if b != nil {
			b.Destroy()
			g.installed[i] = nil
		}
	}
	g.installed = nil
	g.gpu = nil
}

// ConsumePhysicalBuffers transfers ownership of every
// physical buffer to the caller, indexed by physical
// resource index. Entries of non-buffer resources are nil.
// Used together with InstallPhysicalBuffers to carry
// persistent buffer contents across a Reset and rebake.
func (g *Graph) ConsumePhysicalBuffers() []driver.Buffer {
	bufs := g.buffers
	g.buffers = make([]driver.Buffer, len(bufs))
	return bufs
}

// InstallPhysicalBuffers hands previously consumed buffers
// back to the graph. The next SetupAttachments call adopts
// each installed buffer whose capacity still suffices for
// the physical resource at the same index, and destroys
// the rest. The graph owns the given buffers from here on.
func (g *Graph) InstallPhysicalBuffers(bufs []driver.Buffer) {
	for i, b := range g.installed {
		if b != nil {
			b.Destroy()
			g.installed[i] = nil
		}
	}
	g.installed = bufs
}

// ConsumePersistentBuffer transfers ownership of the i-th
// physical buffer to the caller.
// It panics if the resource is not a persistent buffer.
func (g *Graph) ConsumePersistentBuffer(i int) driver.Buffer {
	g.mustBake()
	if !g.physDims[i].isBuffer() || !g.physDims[i].Persistent {
		panic("rgraph: not a persistent buffer")
	}
	b := g.buffers[i]
	g.buffers[i] = nil
	return b
}

// InstallPersistentBuffer hands a previously consumed
// buffer back to the graph at physical index i.
func (g *Graph) InstallPersistentBuffer(i int, b driver.Buffer) {
	if len(g.installed) <= i {
		g.installed = append(g.installed, make([]driver.Buffer, i+1-len(g.installed))...)
	}
	if g.installed[i] != nil {
		g.installed[i].Destroy()
	}
	g.installed[i] = b
}

func (g *Graph) mustSetup() {
	g.mustBake()
	if g.setupDims == nil || g.stale {
		panic("rgraph: attachments not set up")
	}
}

// PhysicalImageView returns the image view backing the i-th
// physical resource, so pass implementations can bind their
// inputs and outputs during recording.
// For the backbuffer slot it is the swapchain view given to
// the last SetupAttachments call.
func (g *Graph) PhysicalImageView(i int) driver.ImageView {
	g.mustSetup()
	if g.physDims[i].isBuffer() {
		panic("rgraph: not an image resource")
	}
	return g.views[i]
}

// PhysicalHistoryView returns the view of the previous
// frame's image of the i-th physical resource.
// It panics if the resource is not double-buffered.
func (g *Graph) PhysicalHistoryView(i int) driver.ImageView {
	g.mustSetup()
	if !g.hasHistory[i] {
		panic("rgraph: not a history resource")
	}
	return g.historyViews[i]
}

// PhysicalBuffer returns the buffer backing the i-th
// physical resource. The graph retains ownership; use
// ConsumePersistentBuffer to take it instead.
func (g *Graph) PhysicalBuffer(i int) driver.Buffer {
	g.mustSetup()
	if !g.physDims[i].isBuffer() {
		panic("rgraph: not a buffer resource")
	}
	return g.buffers[i]
}

const writeAccess = driver.AColorWrite | driver.ADSWrite | driver.AShaderWrite | driver.ACopyWrite

// ensure records into cmd whatever synchronization brings
// the i-th physical resource from its tracked state to the
// given layout/access/stages.
// A layout mismatch records a Transition; a matching layout
// with a pending write records an access-only Barrier.
func (g *Graph) ensure(cmd driver.CmdBuffer, i int, layout driver.Layout, access driver.Access, stages driver.Sync, history bool) {
	curL, curA, curS := &g.curLayout[i], &g.curAccess[i], &g.curStages[i]
	view := g.views[i]
	if history {
		curL, curA, curS = &g.histLayout[i], &g.histAccess[i], &g.histStages[i]
		view = g.historyViews[i]
	}
	if g.physDims[i].isBuffer() {
		if *curA&writeAccess != 0 || (access&writeAccess != 0 && *curA != driver.ANone) {
			cmd.Barrier([]driver.Barrier{{
				SyncBefore:   *curS,
				SyncAfter:    stages,
				AccessBefore: *curA,
				AccessAfter:  access,
			}})
		}
		*curA, *curS = access, stages
		return
	}
	if *curL != layout {
		cmd.Transition([]driver.Transition{{
			Barrier: driver.Barrier{
				SyncBefore:   *curS,
				SyncAfter:    stages,
				AccessBefore: *curA,
				AccessAfter:  access,
			},
			LayoutBefore: *curL,
			LayoutAfter:  layout,
			IView:        view,
		}})
	} else if *curA&writeAccess != 0 || (access&writeAccess != 0 && *curA != driver.ANone) {
		cmd.Barrier([]driver.Barrier{{
			SyncBefore:   *curS,
			SyncAfter:    stages,
			AccessBefore: *curA,
			AccessAfter:  access,
		}})
	}
	*curL, *curA, *curS = layout, access, stages
}

// Record records one frame of the baked schedule into cmd:
// scaled blits and literal clears, the synchronization each
// physical pass requires, and the sub-stage implementations'
// own commands. History image pairs are swapped at the end
// of the frame.
// The command buffer must be in the recording state.
func (g *Graph) Record(cmd driver.CmdBuffer) {
	g.mustSetup()
	for ppi := range g.physical {
		pp := &g.physical[ppi]

		for _, blits := range pp.ScaledBlits {
			for _, b := range blits {
				dst := pp.ColorAttachments[b.Attachment]
				sd, dd := &g.physDims[b.Source], &g.physDims[dst]
				g.ensure(cmd, b.Source, driver.LCopySrc, driver.ACopyRead, driver.SCopy, false)
				g.ensure(cmd, dst, driver.LCopyDst, driver.ACopyWrite, driver.SCopy, false)
				cmd.Blit(g.views[b.Source], g.views[dst],
					driver.Dim3D{Width: sd.Width, Height: sd.Height, Depth: sd.Depth},
					driver.Dim3D{Width: dd.Width, Height: dd.Height, Depth: dd.Depth})
			}
		}
		for _, c := range pp.ColorClears {
			clearer, ok := g.passes[c.Pass].impl.(ColorClearer)
			if !ok {
				continue
			}
			v, ok := clearer.ClearColorValue(c.Output)
			if !ok {
				continue
			}
			att := pp.ColorAttachments[c.Attachment]
			g.ensure(cmd, att, driver.LCopyDst, driver.ACopyWrite, driver.SCopy, false)
			cmd.ClearColor(g.views[att], v)
		}
		if pp.DepthClear != None {
			if clearer, ok := g.passes[pp.DepthClear].impl.(DSClearer); ok {
				if d, s, ok := clearer.ClearDSValue(); ok {
					att := pp.DepthStencilAttachment
					g.ensure(cmd, att, driver.LCopyDst, driver.ACopyWrite, driver.SCopy, false)
					cmd.ClearDS(g.views[att], d, s)
				}
			}
		}

		for _, b := range pp.Invalidate {
			g.ensure(cmd, b.Resource, b.Layout, b.Access, b.Stages, b.History)
		}
		for _, m := range pp.Passes {
			p := g.passes[m]
			if p.impl != nil {
				p.impl.Record(cmd, p)
			}
		}
		for _, b := range pp.Flush {
			if g.physDims[b.Resource].isBuffer() {
				g.curAccess[b.Resource] = b.Access
				g.curStages[b.Resource] = b.Stages
				continue
			}
			if g.curLayout[b.Resource] != b.Layout {
				cmd.Transition([]driver.Transition{{
					Barrier: driver.Barrier{
						SyncBefore:   b.Stages,
						SyncAfter:    b.Stages,
						AccessBefore: b.Access,
						AccessAfter:  driver.ANone,
					},
					LayoutBefore: g.curLayout[b.Resource],
					LayoutAfter:  b.Layout,
					IView:        g.views[b.Resource],
				}})
				g.curLayout[b.Resource] = b.Layout
			}
			g.curAccess[b.Resource] = b.Access
			g.curStages[b.Resource] = b.Stages
		}
	}

	// Double-buffered resources: what was written this frame
	// becomes next frame's history.
	for i, h := range g.hasHistory {
		if !h || g.images[i] == nil {
			continue
		}
		g.images[i], g.historyImages[i] = g.historyImages[i], g.images[i]
		g.views[i], g.historyViews[i] = g.historyViews[i], g.views[i]
		g.curLayout[i], g.histLayout[i] = g.histLayout[i], g.curLayout[i]
		g.curAccess[i], g.histAccess[i] = g.histAccess[i], g.curAccess[i]
		g.curStages[i], g.histStages[i] = g.histStages[i], g.curStages[i]
		g.historyValid[i] = true
	}
}
