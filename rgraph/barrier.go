// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rgraph

import (
	"gviegas/rgraph/driver"
)

// Barrier is a required state transition of a physical
// resource, taken either before (invalidate) or after
// (flush) a physical pass executes.
// For buffer resources the layout is meaningless and left
// as LUndefined; only the access and stage scopes apply.
type Barrier struct {
	// Physical resource index.
	Resource int
	Layout   driver.Layout
	Access   driver.Access
	Stages   driver.Sync
	// History barriers apply to the previous frame's
	// image of a double-buffered resource.
	History bool
}

// barrierState accumulates a resource's uses across the
// sub-stages of one physical pass, so that a single
// transition is taken at the pass boundary.
type barrierState struct {
	inv     Barrier
	flush   Barrier
	hasInv  bool
	written bool
}

type barrierKey struct {
	phys    int
	history bool
}

// buildBarriers computes the invalidate and flush lists of
// every physical pass and the frame-initial barrier list.
// Flushes pre-transition written resources into the layout
// required by their next consumer, so a matching
// flush/invalidate pair brackets every cross-pass
// write-then-read. Writes never consumed again are not
// flushed, except the backbuffer, which is flushed for
// presentation, and history/persistent resources, whose
// contents must survive the frame.
func (g *Graph) buildBarriers(physical []PhysicalPass, physDims []ResourceDimensions, swapIndex int, hasHistory []bool) []Barrier {
	for ppi := range physical {
		pp := &physical[ppi]
		var states []*barrierState
		index := make(map[barrierKey]*barrierState)

		get := func(phys int, history bool) *barrierState {
			k := barrierKey{phys, history}
			if s, ok := index[k]; ok {
				return s
			}
			s := &barrierState{}
			index[k] = s
			states = append(states, s)
			return s
		}
		read := func(res int, layout driver.Layout, access driver.Access, stages driver.Sync, history bool) {
			phys := g.resources[res].physical
			s := get(phys, history)
			if s.written {
				// Produced by an earlier sub-stage of this
				// physical pass; ordering is framebuffer-local.
				return
			}
			if !s.hasInv {
				s.inv = Barrier{phys, layout, access, stages, history}
				s.hasInv = true
				return
			}
			if s.inv.Layout != layout {
				panic("rgraph: conflicting layouts within physical pass: " + g.resources[res].name)
			}
			s.inv.Access |= access
			s.inv.Stages |= stages
		}
		write := func(res int, layout driver.Layout, access driver.Access, stages driver.Sync) {
			phys := g.resources[res].physical
			s := get(phys, false)
			if !s.written {
				if s.hasInv && s.inv.Layout != layout {
					panic("rgraph: conflicting layouts within physical pass: " + g.resources[res].name)
				}
				if !s.hasInv {
					s.inv = Barrier{phys, layout, access, stages, false}
					s.hasInv = true
				}
				s.flush = Barrier{phys, layout, access, stages, false}
				s.written = true
				return
			}
			if s.flush.Layout != layout {
				panic("rgraph: conflicting layouts within physical pass: " + g.resources[res].name)
			}
			s.flush.Access |= access
			s.flush.Stages |= stages
		}

		for _, m := range pp.Passes {
			p := g.passes[m]
			st := p.stages
			for _, in := range p.colorInputs {
				if in != None {
					read(in, driver.LColorTarget, driver.AColorRead, driver.SColorOutput, false)
				}
			}
			for _, in := range p.colorScaleInputs {
				if in != None {
					read(in, driver.LCopySrc, driver.ACopyRead, driver.SCopy, false)
				}
			}
			for _, in := range p.textureInputs {
				read(in, driver.LShaderRead, driver.AShaderRead, st, false)
			}
			for _, in := range p.attachmentInputs {
				read(in, driver.LShaderRead, driver.AInputRead, driver.SFragmentShading, false)
			}
			for _, in := range p.historyInputs {
				read(in, driver.LShaderRead, driver.AShaderRead, st, true)
			}
			for _, in := range p.uniformInputs {
				read(in, driver.LUndefined, driver.AConstRead, st, false)
			}
			for _, in := range p.storageReadInputs {
				read(in, driver.LUndefined, driver.AShaderRead, st, false)
			}
			for _, in := range p.storageInputs {
				if in != None {
					read(in, driver.LUndefined, driver.AShaderRead, st, false)
				}
			}
			for _, in := range p.storageTexInputs {
				if in != None {
					read(in, driver.LCommon, driver.AShaderRead, st, false)
				}
			}
			if in := p.depthStencilInput; in != None && in != p.depthStencilOutput {
				read(in, driver.LDSRead, driver.ADSRead, driver.SDSOutput, false)
			}

			for k, out := range p.colorOutputs {
				access := driver.AColorWrite
				if p.colorInputs[k] != None {
					access |= driver.AColorRead
				}
				write(out, driver.LColorTarget, access, driver.SColorOutput)
			}
			for k, out := range p.storageOutputs {
				access := driver.AShaderWrite
				if p.storageInputs[k] != None {
					access |= driver.AShaderRead
				}
				write(out, driver.LUndefined, access, st)
			}
			for k, out := range p.storageTexOutputs {
				access := driver.AShaderWrite
				if p.storageTexInputs[k] != None {
					access |= driver.AShaderRead
				}
				write(out, driver.LCommon, access, st)
			}
			if out := p.depthStencilOutput; out != None {
				write(out, driver.LDSTarget, driver.ADSWrite|driver.ADSRead, driver.SDSOutput)
			}
		}

		for _, s := range states {
			if s.hasInv {
				pp.Invalidate = append(pp.Invalidate, s.inv)
			}
			if s.written {
				pp.Flush = append(pp.Flush, s.flush)
			}
		}
	}

	// Retarget flushes to the layout their next consumer
	// needs; drop flushes of writes never consumed again.
	for ppi := range physical {
		pp := &physical[ppi]
		flush := pp.Flush[:0]
		for _, f := range pp.Flush {
			phys := f.Resource
			target, found := driver.LUndefined, false
		consumer:
			for j := ppi + 1; j < len(physical); j++ {
				for _, inv := range physical[j].Invalidate {
					if inv.Resource == phys && !inv.History {
						target, found = inv.Layout, true
						break consumer
					}
				}
			}
			switch {
			case found:
				if !physDims[phys].isBuffer() {
					f.Layout = target
				}
			case phys == swapIndex:
				f.Layout = driver.LPresent
			case hasHistory[phys] || physDims[phys].Persistent:
				// Keep the write layout; the contents are
				// consumed beyond this frame.
			default:
				continue
			}
			flush = append(flush, f)
		}
		pp.Flush = flush
	}

	// Every physical image's first use in the frame
	// requires a transition out of the undefined state.
	var initial []Barrier
	seen := make(map[int]bool)
	for ppi := range physical {
		for _, inv := range physical[ppi].Invalidate {
			if inv.History || seen[inv.Resource] || physDims[inv.Resource].isBuffer() {
				continue
			}
			seen[inv.Resource] = true
			initial = append(initial, inv)
		}
	}
	return initial
}
