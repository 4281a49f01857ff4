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

package normalize

import (
	"fmt"

	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
	"github.com/awslabs/ar-cil-tools/internal/funcutil"
)

// DecomposeSwitches rewrites every switch with N cases into a chain of N link blocks. Link i duplicates the
// switch value, compares it to i and branches to case i when equal; the last link falls through to the block
// following the switch. When the switch is the only node of its block, that block becomes the first link. The
// exception edges of the switch block are copied onto every link. The switch value is
// left on the stack by the chain and popped exactly once per distinct destination: at the head of the
// destination when all its sources are links, otherwise in an intermediary block between the links and the
// destination.
func DecomposeSwitches(m *ir.Method) (int, error) {
	count := 0
	for _, b := range m.Blocks() {
		for i := switchIndex(b); i >= 0; i = switchIndex(b) {
			n := b.Nodes[i]
			var err error
			if i == len(b.Nodes)-1 && len(n.Operand().(cil.SwitchTargets)) > 0 {
				err = decomposeSwitch(m, b, n)
			} else {
				// all the destinations of a switch inside a block are the next node
				err = dropSwitch(m, b, i)
			}
			if err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func switchIndex(b *ir.Block) int {
	for i, n := range b.Nodes {
		if !n.IsPhi() && n.Code() == cil.Switch {
			return i
		}
	}
	return -1
}

func dropSwitch(m *ir.Method, b *ir.Block, i int) error {
	pop, err := b.Nodes[i].Derive(cil.Pop, nil, m.Ref())
	if err != nil {
		return ir.Unsupported(m.Name(), b.Nodes[i].Offset(), "%v", err)
	}
	b.ReplaceNode(i, pop)
	return nil
}

func decomposeSwitch(m *ir.Method, b *ir.Block, sw *ir.Node) error {
	cases := sw.Operand().(cil.SwitchTargets)
	if len(b.Targets) == 0 {
		return ir.Invariant(m.Name(), "normalize", "switch block %s has no fallthrough", b.ID)
	}
	fall := b.Targets[0]
	dests := make([]ir.BlockID, len(cases))
	for i, offset := range cases {
		d, err := blockStartingAt(m, b, offset)
		if err != nil {
			return ir.Unsupported(m.Name(), sw.Offset(), "%v", err)
		}
		dests[i] = d
	}
	var handlers []ir.BlockID
	for _, t := range b.Targets {
		if target := m.Block(t); target.IsHandlerStart() && t != fall && !funcutil.Contains(dests, t) {
			handlers = append(handlers, t)
		}
	}

	// remove the switch and the normal edges of its block
	b.Nodes = b.Nodes[:len(b.Nodes)-1]
	m.RemoveEdge(b.ID, fall)
	for _, d := range dests {
		m.RemoveEdge(b.ID, d)
	}

	links := make([]*ir.Block, len(cases))
	after := b.ID
	for i := range cases {
		var link *ir.Block
		if i == 0 && len(b.Nodes) == 0 {
			// a switch alone in its block turns that block into the first link
			link = b
		} else {
			link = m.InsertBlockAfter(after)
		}
		nodes, err := derive(m, sw,
			op{cil.Dup, nil},
			op{cil.LdcI8, int64(i)},
			op{cil.Ceq, nil},
			op{cil.Brtrue, cil.BranchTarget(cases[i])})
		if err != nil {
			return ir.Unsupported(m.Name(), sw.Offset(), "%v", err)
		}
		link.Nodes = nodes
		links[i] = link
		after = link.ID
	}
	if links[0] != b {
		m.AddEdge(b.ID, links[0].ID)
	}
	for i, link := range links {
		if i+1 < len(links) {
			m.AddEdge(link.ID, links[i+1].ID)
		} else {
			m.AddEdge(link.ID, fall)
		}
		m.AddEdge(link.ID, dests[i])
		for _, h := range handlers {
			m.AddEdge(link.ID, h)
		}
	}

	isLink := map[ir.BlockID]bool{}
	for _, link := range links {
		isLink[link.ID] = true
	}
	distinct := []ir.BlockID{}
	for _, d := range append(dests, fall) {
		if !funcutil.Contains(distinct, d) {
			distinct = append(distinct, d)
		}
	}
	for _, d := range distinct {
		if err := insertPop(m, sw, d, isLink, after); err != nil {
			return err
		}
	}
	return nil
}

// insertPop pops the switch value once on every path from the links to the destination d
func insertPop(m *ir.Method, sw *ir.Node, d ir.BlockID, isLink map[ir.BlockID]bool, lastLink ir.BlockID) error {
	pop, err := sw.Derive(cil.Pop, nil, m.Ref())
	if err != nil {
		return ir.Unsupported(m.Name(), sw.Offset(), "%v", err)
	}
	dest := m.Block(d)
	onlyLinks := d != m.Entry
	for _, s := range dest.Sources {
		if !isLink[s] {
			onlyLinks = false
		}
	}
	if onlyLinks {
		dest.InsertNodes(len(dest.Phis()), pop)
		return nil
	}
	inter := m.InsertBlockAfter(lastLink)
	inter.Nodes = []*ir.Node{pop}
	for _, s := range append([]ir.BlockID{}, dest.Sources...) {
		if isLink[s] {
			m.RedirectEdge(s, d, inter.ID)
		}
	}
	m.AddEdge(inter.ID, d)
	return nil
}

// blockStartingAt returns the block whose first instruction is at offset
func blockStartingAt(m *ir.Method, from *ir.Block, offset int) (ir.BlockID, error) {
	for _, t := range from.Targets {
		if first := m.Block(t).First(); first != nil && first.Offset() == offset {
			return t, nil
		}
	}
	return ir.NoBlock, fmt.Errorf("switch case %s does not start a block", cil.OffsetLabel(offset))
}
