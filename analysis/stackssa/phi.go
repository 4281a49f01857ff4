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

package stackssa

import (
	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/dominance"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
	"github.com/awslabs/ar-cil-tools/internal/funcutil"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// placement is the set of blocks needing a join node, per slot
type placement map[int]map[ir.BlockID]bool

// defSites is a snapshot of the blocks writing each stack slot and each local variable slot, taken before any
// join node is inserted
type defSites struct {
	stack placement
	vars  placement
}

func (p placement) add(slot int, b ir.BlockID) {
	if p[slot] == nil {
		p[slot] = map[ir.BlockID]bool{}
	}
	p[slot][b] = true
}

// collectDefSites returns the definition sites of every slot. The entry block defines the initial value of
// every local, and handler blocks entered with the exception object define stack slot 0.
func collectDefSites(m *ir.Method) defSites {
	d := defSites{stack: placement{}, vars: placement{}}
	for k := 0; k < m.NumLocals(); k++ {
		d.vars.add(k, m.Entry)
	}
	for _, b := range m.Blocks() {
		if b.Handler != nil && b.Handler.EntryDepth() > 0 {
			d.stack.add(0, b.ID)
		}
		for _, n := range b.Nodes {
			for _, slot := range n.WrittenStackSlots() {
				d.stack.add(slot, b.ID)
			}
			if k, ok := storedLocal(n); ok {
				d.vars.add(k, b.ID)
			}
		}
	}
	return d
}

// storedLocal returns the index of the local variable written by the node
func storedLocal(n *ir.Node) (int, bool) {
	if n.IsPhi() || n.Code() != cil.Stloc {
		return 0, false
	}
	k, ok := n.Operand().(int64)
	return int(k), ok
}

// iteratedFrontier computes the blocks needing a join node for one slot with the minimal SSA worklist: a join
// is placed at every block of the dominance frontier of a definition, and counts as a definition itself.
// Blocks rejected by allowed get no join and do not define the slot.
func iteratedFrontier(dom *dominance.Info, sites map[ir.BlockID]bool, allowed func(ir.BlockID) bool) map[ir.BlockID]bool {
	hasAlready := map[ir.BlockID]bool{}
	everOnWorklist := map[ir.BlockID]bool{}
	worklist := funcutil.SetToOrderedSlice(sites)
	for _, b := range worklist {
		everOnWorklist[b] = true
	}
	for len(worklist) > 0 {
		n := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, d := range dom.Frontier(n) {
			if hasAlready[d] || !allowed(d) {
				continue
			}
			hasAlready[d] = true
			if !everOnWorklist[d] {
				everOnWorklist[d] = true
				worklist = append(worklist, d)
			}
		}
	}
	return hasAlready
}

// placeJoins computes where join nodes are needed from a snapshot of the method, then inserts them at the
// head of their blocks: stack joins first, then variable joins, each by increasing slot.
func placeJoins(m *ir.Method, dom *dominance.Info, dep depths) (stackJoins int, varJoins int) {
	sites := collectDefSites(m)
	stack := placement{}
	for slot, blocks := range sites.stack {
		slot := slot
		stack[slot] = iteratedFrontier(dom, blocks, func(b ir.BlockID) bool {
			block := m.Block(b)
			return block != nil && block.Handler == nil && dep.in[b] > slot
		})
	}
	vars := placement{}
	for slot, blocks := range sites.vars {
		vars[slot] = iteratedFrontier(dom, blocks, func(ir.BlockID) bool { return true })
	}

	stackSlots := maps.Keys(stack)
	slices.Sort(stackSlots)
	varSlots := maps.Keys(vars)
	slices.Sort(varSlots)
	for _, b := range m.Blocks() {
		var joins []*ir.Node
		for _, slot := range stackSlots {
			if stack[slot][b.ID] {
				joins = append(joins, newJoin(ir.KindStackPhi, slot, dep.in[b.ID]))
			}
		}
		n := len(joins)
		for _, slot := range varSlots {
			if vars[slot][b.ID] {
				joins = append(joins, newJoin(ir.KindVarPhi, slot, dep.in[b.ID]))
			}
		}
		if len(joins) > 0 {
			b.InsertNodes(0, joins...)
		}
		stackJoins += n
		varJoins += len(joins) - n
	}
	return stackJoins, varJoins
}

func newJoin(kind ir.NodeKind, slot int, depth int) *ir.Node {
	n := ir.NewPhiNode(kind, slot)
	n.Depth = depth
	return n
}
