// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rgraph

import (
	"fmt"
	"strings"

	"gviegas/rgraph/internal/bitvec"
)

// resolvePasses computes the minimal ordered set of passes
// reachable backward from the backbuffer's writers.
// Passes with no path to the backbuffer are pruned.
// The returned order respects write-before-read and
// write-before-write dependencies, with ties broken by
// declaration order.
func (g *Graph) resolvePasses() ([]int, error) {
	bi, ok := g.resIdx[g.backbuffer]
	if !ok || len(g.resources[bi].writtenIn) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoBackbufferProducer, g.backbuffer)
	}

	// Backward reachability over the write->read relation.
	// History inputs are excluded: they consume the
	// previous frame's contents and must not keep the
	// current frame's writers alive on their own.
	var live bitvec.V[uint32]
	live.GrowFor(len(g.passes))
	stack := make([]int, 0, len(g.passes))
	for _, w := range g.resources[bi].writtenIn {
		live.Set(w)
		stack = append(stack, w)
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		g.passes[p].eachRead(func(res int) {
			for _, w := range g.resources[res].writtenIn {
				if w != p && !live.IsSet(w) {
					live.Set(w)
					stack = append(stack, w)
				}
			}
		})
	}

	var lp []int
	for i := range g.passes {
		if live.IsSet(i) {
			lp = append(lp, i)
		}
	}

	// Dependency edges between live passes:
	// write-before-read, plus write-before-write between
	// successive writers of a shared resource.
	edges := make(map[[2]int]struct{})
	addEdge := func(from, to int) {
		if from != to && live.IsSet(from) && live.IsSet(to) {
			edges[[2]int{from, to}] = struct{}{}
		}
	}
	for _, p := range lp {
		g.passes[p].eachRead(func(res int) {
			for _, w := range g.resources[res].writtenIn {
				addEdge(w, p)
			}
		})
	}
	for _, r := range g.resources {
		var prev = None
		for _, w := range r.writtenIn {
			if !live.IsSet(w) {
				continue
			}
			if prev != None {
				addEdge(prev, w)
			}
			prev = w
		}
	}

	indeg := make(map[int]int, len(lp))
	for _, p := range lp {
		indeg[p] = 0
	}
	for e := range edges {
		indeg[e[1]]++
	}

	// Stable topological sort: among ready passes, always
	// schedule the one declared first.
	order := make([]int, 0, len(lp))
	done := make(map[int]bool, len(lp))
	for len(order) < len(lp) {
		next := None
		for _, p := range lp {
			if !done[p] && indeg[p] == 0 {
				next = p
				break
			}
		}
		if next == None {
			return nil, fmt.Errorf("%w: %s", ErrCyclicDependency, g.cycleNames(lp, done, edges))
		}
		done[next] = true
		order = append(order, next)
		for e := range edges {
			if e[0] == next {
				indeg[e[1]]--
			}
		}
	}
	return order, nil
}

// cycleNames names the passes that participate in a
// dependency cycle among the unscheduled remainder.
// Passes that are merely downstream of a cycle are peeled
// off so the report points at the cycle itself.
func (g *Graph) cycleNames(lp []int, done map[int]bool, edges map[[2]int]struct{}) string {
	rem := make(map[int]bool)
	for _, p := range lp {
		if !done[p] {
			rem[p] = true
		}
	}
	for {
		removed := false
		for p := range rem {
			out := false
			for e := range edges {
				if e[0] == p && rem[e[1]] {
					out = true
					break
				}
			}
			if !out {
				delete(rem, p)
				removed = true
			}
		}
		if !removed {
			break
		}
	}
	var names []string
	for _, p := range lp {
		if rem[p] {
			names = append(names, g.passes[p].name)
		}
	}
	return strings.Join(names, " -> ")
}
