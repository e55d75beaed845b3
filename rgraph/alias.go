// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rgraph

import (
	"fmt"

	"gviegas/rgraph/internal/bitvec"
)

// resolveDimensions computes the concrete dimensions of
// every resource referenced by a live pass.
// It fails with ErrUnresolvedSizeReference when relative
// sizing refers to a resource that is unknown, dead or
// part of a sizing cycle.
func (g *Graph) resolveDimensions(order []int) ([]ResourceDimensions, bitvec.V[uint32], error) {
	var live bitvec.V[uint32]
	live.GrowFor(len(g.resources))
	for _, p := range order {
		g.passes[p].eachReference(func(res int) { live.Set(res) })
	}

	dims := make([]ResourceDimensions, len(g.resources))
	const (
		unresolved = iota
		resolving
		resolved
	)
	state := make([]int8, len(g.resources))

	var resolve func(res int) error
	resolve = func(res int) error {
		switch state[res] {
		case resolved:
			return nil
		case resolving:
			return fmt.Errorf("%w: %q", ErrUnresolvedSizeReference, g.resources[res].name)
		}
		state[res] = resolving
		r := g.resources[res]
		if r.kind == resBuffer {
			dims[res] = ResourceDimensions{
				BufferInfo: r.buf,
				Persistent: r.buf.Persistent,
			}
			state[res] = resolved
			return nil
		}
		d := ResourceDimensions{
			Format:     r.info.Format,
			Depth:      1,
			Layers:     max(1, r.info.Layers),
			Levels:     max(1, r.info.Levels),
			Persistent: r.info.Persistent,
			Storage:    r.storage,
		}
		if d.Format == 0 {
			d.Format = g.swapDim.Format
		}
		sx, sy := r.info.Width, r.info.Height
		switch r.info.SizeClass {
		case SizeAbsolute:
			d.Width = int(sx)
			d.Height = int(sy)
		case SizeSwapchainRelative:
			if sx == 0 {
				sx = 1
			}
			if sy == 0 {
				sy = 1
			}
			d.Width = int(sx * float32(g.swapDim.Width))
			d.Height = int(sy * float32(g.swapDim.Height))
		case SizeInputRelative:
			si, ok := g.resIdx[r.info.SizeRelativeName]
			if !ok || !live.IsSet(si) {
				return fmt.Errorf("%w: %q (referenced by %q)",
					ErrUnresolvedSizeReference, r.info.SizeRelativeName, r.name)
			}
			if err := resolve(si); err != nil {
				return err
			}
			if sx == 0 {
				sx = 1
			}
			if sy == 0 {
				sy = 1
			}
			d.Width = int(sx * float32(dims[si].Width))
			d.Height = int(sy * float32(dims[si].Height))
		}
		dims[res] = d
		state[res] = resolved
		return nil
	}

	for i := range g.resources {
		if !live.IsSet(i) {
			continue
		}
		if err := resolve(i); err != nil {
			return nil, live, err
		}
	}
	return dims, live, nil
}

// physSlot tracks the occupancy of one physical resource
// slot during allocation.
type physSlot struct {
	dims    ResourceDimensions
	lastUse int
	// Aliasable slots may be reassigned to another
	// transient resource once their occupant's live
	// range ends.
	aliasable bool
	history   bool
}

// allocPhysical assigns a physical slot to every live
// resource.
// Resources are processed in live-range order. In-place
// feedback inputs share their output's slot. Transient
// resources reuse, first-fit, the lowest-indexed dead slot
// with equal dimensions; everything else gets a dedicated
// slot. History resources are never aliased and are backed
// by an image pair.
func (g *Graph) allocPhysical(order []int, dims []ResourceDimensions) ([]ResourceDimensions, int, []bool) {
	for _, r := range g.resources {
		r.physical = None
	}

	// Live ranges as positions in the resolved order.
	first := make([]int, len(g.resources))
	last := make([]int, len(g.resources))
	for i := range first {
		first[i] = len(order)
		last[i] = -1
	}
	for i, p := range order {
		g.passes[p].eachReference(func(res int) {
			first[res] = min(first[res], i)
			last[res] = max(last[res], i)
		})
	}

	bi := g.resIdx[g.backbuffer]
	var slots []physSlot

	assign := func(res int) {
		r := g.resources[res]
		if r.physical != None {
			s := &slots[r.physical]
			s.lastUse = max(s.lastUse, last[res])
			return
		}
		aliasable := r.kind == resTexture &&
			!r.info.Persistent &&
			!r.storage &&
			len(r.historyIn) == 0 &&
			res != bi
		dims[res].Transient = aliasable
		if aliasable {
			for i := range slots {
				s := &slots[i]
				if s.aliasable && s.dims == dims[res] && s.lastUse < first[res] {
					r.physical = i
					s.lastUse = last[res]
					return
				}
			}
		}
		r.physical = len(slots)
		slots = append(slots, physSlot{
			dims:      dims[res],
			lastUse:   last[res],
			aliasable: aliasable,
			history:   len(r.historyIn) > 0,
		})
	}

	// In-place feedback: the output continues the input's
	// physical storage.
	unify := func(out, in int) {
		ro := g.resources[out]
		ri := g.resources[in]
		if ro.physical != None {
			slots[ro.physical].lastUse = max(slots[ro.physical].lastUse, last[out])
			return
		}
		do, di := &dims[out], &dims[in]
		if do.Format != di.Format || do.Width != di.Width || do.Height != di.Height ||
			do.Layers != di.Layers || do.Levels != di.Levels || do.BufferInfo.Size != di.BufferInfo.Size {
			panic("rgraph: mismatched in-place feedback: " + ro.name + " <- " + ri.name)
		}
		s := &slots[ri.physical]
		ro.physical = ri.physical
		s.lastUse = max(s.lastUse, last[out])
		if ro.info.Persistent || ro.storage || len(ro.historyIn) > 0 || out == bi {
			s.aliasable = false
			s.dims.Transient = false
			dims[out].Transient = false
			dims[in].Transient = false
		}
		if len(ro.historyIn) > 0 {
			s.history = true
		}
	}

	for _, pi := range order {
		p := g.passes[pi]
		p.eachRead(assign)
		for _, res := range p.historyInputs {
			assign(res)
		}
		for k, out := range p.colorOutputs {
			if in := p.colorInputs[k]; in != None {
				unify(out, in)
			} else {
				assign(out)
			}
		}
		for k, out := range p.storageOutputs {
			if in := p.storageInputs[k]; in != None {
				unify(out, in)
			} else {
				assign(out)
			}
		}
		for k, out := range p.storageTexOutputs {
			if in := p.storageTexInputs[k]; in != None {
				unify(out, in)
			} else {
				assign(out)
			}
		}
		if p.depthStencilOutput != None {
			assign(p.depthStencilOutput)
		}
	}

	physDims := make([]ResourceDimensions, len(slots))
	hasHistory := make([]bool, len(slots))
	for i := range slots {
		physDims[i] = slots[i].dims
		hasHistory[i] = slots[i].history
	}
	return physDims, g.resources[bi].physical, hasHistory
}
