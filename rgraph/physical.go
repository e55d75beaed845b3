// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rgraph

// PhysicalPass is a group of one or more passes sharing one
// render-target configuration, executed as a unit.
// Sub-stages preserve the merged passes' resolved order.
type PhysicalPass struct {
	// Member pass indices, in execution order.
	Passes []int
	// Physical indices of the group's render targets.
	ColorAttachments       []int
	DepthStencilAttachment int
	// Transitions required before and after the group
	// executes, coalesced across sub-stages.
	Invalidate []Barrier
	Flush      []Barrier
	// Literal clear requests, resolved against the pass
	// implementations at record time.
	ColorClears []ColorClear
	// Pass whose implementation provides the depth/stencil
	// clear value, or None.
	DepthClear int
	// Scaled blit requests, per sub-stage, executed before
	// the group.
	ScaledBlits [][]ScaledBlit
}

// ColorClear requests a literal clear of a color attachment
// whose first write discards previous contents.
type ColorClear struct {
	// Pass whose implementation provides the value.
	Pass int
	// Ordinal of the color output within the pass.
	Output int
	// Index into the physical pass's ColorAttachments.
	Attachment int
}

// ScaledBlit requests that a resolution-mismatched input be
// blitted into an attachment before the physical pass runs.
type ScaledBlit struct {
	// Index into the physical pass's ColorAttachments.
	Attachment int
	// Physical index of the source resource.
	Source int
}

// mergePasses folds consecutive passes of the resolved
// order into physical pass groups.
func (g *Graph) mergePasses(order []int, dims []ResourceDimensions) [][]int {
	var groups [][]int
	for _, p := range order {
		if n := len(groups); n > 0 && g.canMerge(groups[n-1], p, dims) {
			groups[n-1] = append(groups[n-1], p)
		} else {
			groups = append(groups, []int{p})
		}
	}
	return groups
}

// renderArea returns the common width/height/layers of the
// pass's attachments. ok is false if the pass has no
// attachments or if they disagree among themselves.
func (g *Graph) renderArea(pi int, dims []ResourceDimensions) (area [3]int, ok bool) {
	p := g.passes[pi]
	var has bool
	check := func(res int) bool {
		d := &dims[res]
		a := [3]int{d.Width, d.Height, d.Layers}
		if !has {
			area, has = a, true
			return true
		}
		return a == area
	}
	for _, r := range p.colorOutputs {
		if !check(r) {
			return area, false
		}
	}
	if p.depthStencilOutput != None && !check(p.depthStencilOutput) {
		return area, false
	}
	if p.depthStencilInput != None && !check(p.depthStencilInput) {
		return area, false
	}
	for _, r := range p.attachmentInputs {
		if !check(r) {
			return area, false
		}
	}
	return area, has
}

// canMerge reports whether pass pi can become a sub-stage of
// the given group.
// Merging requires graphics passes rendering to targets of
// identical dimensions, a shared depth/stencil chain, and no
// member-produced resource consumed by pi through anything
// other than a framebuffer-local relation.
func (g *Graph) canMerge(group []int, pi int, dims []ResourceDimensions) bool {
	p := g.passes[pi]
	if !p.isGraphics() || !g.passes[group[0]].isGraphics() {
		return false
	}
	ga, ok := g.renderArea(group[0], dims)
	if !ok {
		return false
	}
	pa, ok := g.renderArea(pi, dims)
	if !ok || ga != pa {
		return false
	}

	// At most one depth/stencil chain per physical pass.
	gd := None
	for _, m := range group {
		mp := g.passes[m]
		if mp.depthStencilOutput != None {
			gd = mp.depthStencilOutput
			break
		}
		if gd == None && mp.depthStencilInput != None {
			gd = mp.depthStencilInput
		}
	}
	pd := p.depthStencilOutput
	if pd == None {
		pd = p.depthStencilInput
	}
	if gd != None && pd != None && gd != pd {
		return false
	}

	// A sub-stage may observe member writes only through
	// attachment inputs or in-place feedback; sampled,
	// uniform or storage reads of a member's output force
	// a new physical pass.
	for _, m := range group {
		nonLocal := false
		g.passes[m].eachWritten(func(res int) {
			if p.readsNonLocal(res) {
				nonLocal = true
			}
		})
		if nonLocal {
			return false
		}
	}
	return true
}

// buildRenderTargets assembles the physical pass records:
// member lists, physical attachment indices, clear requests
// and scaled blit requests.
// It must run after physical resource allocation.
func (g *Graph) buildRenderTargets(order []int, groups [][]int) []PhysicalPass {
	for _, p := range g.passes {
		p.physical = None
	}

	// First writer of each resource in the resolved order;
	// only the first write may discard or clear.
	firstWrite := make(map[int]int)
	for _, pi := range order {
		g.passes[pi].eachWritten(func(res int) {
			if _, ok := firstWrite[res]; !ok {
				firstWrite[res] = pi
			}
		})
	}

	physical := make([]PhysicalPass, len(groups))
	for gi, group := range groups {
		pp := &physical[gi]
		pp.Passes = group
		pp.DepthStencilAttachment = None
		pp.DepthClear = None
		for _, m := range group {
			g.passes[m].physical = gi
		}

		attachment := func(phys int) int {
			for i, a := range pp.ColorAttachments {
				if a == phys {
					return i
				}
			}
			pp.ColorAttachments = append(pp.ColorAttachments, phys)
			return len(pp.ColorAttachments) - 1
		}

		for _, m := range group {
			mp := g.passes[m]
			var blits []ScaledBlit
			for k, res := range mp.colorOutputs {
				att := attachment(g.resources[res].physical)
				switch {
				case mp.colorScaleInputs[k] != None:
					src := g.resources[mp.colorScaleInputs[k]].physical
					blits = append(blits, ScaledBlit{Attachment: att, Source: src})
				case mp.colorInputs[k] == None && firstWrite[res] == m:
					pp.ColorClears = append(pp.ColorClears, ColorClear{Pass: m, Output: k, Attachment: att})
				}
			}
			if o := mp.depthStencilOutput; o != None {
				pp.DepthStencilAttachment = g.resources[o].physical
				if mp.depthStencilInput == None && firstWrite[o] == m {
					pp.DepthClear = m
				}
			} else if i := mp.depthStencilInput; i != None {
				pp.DepthStencilAttachment = g.resources[i].physical
			}
			pp.ScaledBlits = append(pp.ScaledBlits, blits)
		}
	}
	return physical
}
