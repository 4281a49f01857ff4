// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dominance computes the dominator sets, immediate dominators, dominator tree and dominance frontiers of
// the blocks of an analysis graph.
//
// Dominator sets are computed by the iterative dataflow algorithm: every set starts full, except the entry's which
// is {entry}, and each block's set is recomputed as itself plus the intersection of the sets of its sources until
// no set changes. Sets only shrink, so the worklist empties.
package dominance

import (
	"github.com/awslabs/ar-cil-tools/analysis/ir"
	"github.com/awslabs/ar-cil-tools/internal/graphutil"
	"golang.org/x/tools/container/intsets"
)

// Info holds the dominance information of a method. It is not updated when the graph changes.
type Info struct {
	entry    ir.BlockID
	layout   []ir.BlockID
	dom      map[ir.BlockID]*intsets.Sparse
	idom     map[ir.BlockID]ir.BlockID
	children map[ir.BlockID][]ir.BlockID
	frontier map[ir.BlockID]*intsets.Sparse

	// Iterations is the number of blocks processed by the fixpoint
	Iterations int
}

// Compute returns the dominance information of the method's blocks
func Compute(m *ir.Method) *Info {
	blocks := m.Blocks()
	info := &Info{
		entry:    m.Entry,
		dom:      make(map[ir.BlockID]*intsets.Sparse, len(blocks)),
		idom:     make(map[ir.BlockID]ir.BlockID, len(blocks)),
		children: make(map[ir.BlockID][]ir.BlockID, len(blocks)),
		frontier: make(map[ir.BlockID]*intsets.Sparse, len(blocks)),
	}
	all := &intsets.Sparse{}
	for _, b := range blocks {
		info.layout = append(info.layout, b.ID)
		all.Insert(int(b.ID))
	}
	for _, b := range blocks {
		s := &intsets.Sparse{}
		if b.ID == m.Entry {
			s.Insert(int(b.ID))
		} else {
			s.Copy(all)
		}
		info.dom[b.ID] = s
	}

	// worklist seeded with every block, in layout order
	worklist := append([]ir.BlockID{}, info.layout...)
	queued := make(map[ir.BlockID]bool, len(blocks))
	for _, id := range worklist {
		queued[id] = true
	}
	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		queued[id] = false
		info.Iterations++
		if id == m.Entry {
			continue
		}
		b := m.Block(id)
		next := intersectSources(info, b)
		next.Insert(int(id))
		if next.Equals(info.dom[id]) {
			continue
		}
		info.dom[id] = next
		for _, t := range b.Targets {
			if _, ok := info.dom[t]; ok && !queued[t] {
				worklist = append(worklist, t)
				queued[t] = true
			}
		}
	}

	info.computeTree()
	info.computeFrontiers(m)
	return info
}

func intersectSources(info *Info, b *ir.Block) *intsets.Sparse {
	res := &intsets.Sparse{}
	first := true
	for _, s := range b.Sources {
		ds, ok := info.dom[s]
		if !ok {
			continue
		}
		if first {
			res.Copy(ds)
			first = false
		} else {
			res.IntersectionWith(ds)
		}
	}
	return res
}

// computeTree sets the immediate dominator of each block: its strict dominator with the largest dominator set,
// since the dominators of a block form a chain.
func (info *Info) computeTree() {
	for _, id := range info.layout {
		info.idom[id] = ir.NoBlock
		if id == info.entry {
			continue
		}
		best := ir.NoBlock
		bestLen := -1
		for _, d := range info.Dominators(id) {
			if d == id {
				continue
			}
			if l := info.dom[d].Len(); l > bestLen {
				best, bestLen = d, l
			}
		}
		info.idom[id] = best
		if best != ir.NoBlock {
			info.children[best] = append(info.children[best], id)
		}
	}
}

// computeFrontiers adds T to the frontier of every X dominating a source of T without strictly dominating T, by
// walking up the dominator tree from each source of T.
func (info *Info) computeFrontiers(m *ir.Method) {
	for _, id := range info.layout {
		info.frontier[id] = &intsets.Sparse{}
	}
	for _, t := range info.layout {
		for _, p := range m.Block(t).Sources {
			if _, ok := info.dom[p]; !ok {
				continue
			}
			for x := p; x != ir.NoBlock && !info.StrictlyDominates(x, t); x = info.idom[x] {
				info.frontier[x].Insert(int(t))
			}
		}
	}
}

// Dominators returns the dominators of b, in increasing id order
func (info *Info) Dominators(b ir.BlockID) []ir.BlockID {
	return toIDs(info.dom[b])
}

// Dominates returns true if a dominates b. Every block dominates itself.
func (info *Info) Dominates(a, b ir.BlockID) bool {
	s, ok := info.dom[b]
	return ok && s.Has(int(a))
}

// StrictlyDominates returns true if a dominates b and a != b
func (info *Info) StrictlyDominates(a, b ir.BlockID) bool {
	return a != b && info.Dominates(a, b)
}

// IDom returns the immediate dominator of b, or ir.NoBlock for the entry
func (info *Info) IDom(b ir.BlockID) ir.BlockID {
	if d, ok := info.idom[b]; ok {
		return d
	}
	return ir.NoBlock
}

// Frontier returns the dominance frontier of b, in increasing id order
func (info *Info) Frontier(b ir.BlockID) []ir.BlockID {
	return toIDs(info.frontier[b])
}

// Children returns the blocks immediately dominated by b, in layout order
func (info *Info) Children(b ir.BlockID) []ir.BlockID {
	return info.children[b]
}

// PreOrder returns the blocks in a preorder of the dominator tree, visiting children in layout order
func (info *Info) PreOrder() []ir.BlockID {
	var order []ir.BlockID
	if _, ok := info.dom[info.entry]; !ok {
		return order
	}
	stack := []ir.BlockID{info.entry}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, b)
		children := info.children[b]
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return order
}

// Tree returns the dominator tree rooted at the entry block, or nil if the method has no entry
func (info *Info) Tree() *graphutil.Tree[ir.BlockID] {
	if _, ok := info.dom[info.entry]; !ok {
		return nil
	}
	root := graphutil.NewTree(info.entry)
	var grow func(t *graphutil.Tree[ir.BlockID])
	grow = func(t *graphutil.Tree[ir.BlockID]) {
		for _, c := range info.children[t.Label] {
			grow(t.AddChild(c))
		}
	}
	grow(root)
	return root
}

func toIDs(s *intsets.Sparse) []ir.BlockID {
	if s == nil {
		return nil
	}
	var res []ir.BlockID
	for _, x := range s.AppendTo(nil) {
		res = append(res, ir.BlockID(x))
	}
	return res
}
