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
	"github.com/awslabs/ar-cil-tools/analysis/ir"
)

const stageJoins = "join simplification"

// aliases maps the names of removed join nodes to the name replacing them
type aliases map[string]string

func (a aliases) resolve(name string) string {
	seen := 0
	for {
		next, ok := a[name]
		if !ok || seen > len(a) {
			return name
		}
		name = next
		seen++
	}
}

func (a aliases) resolveAll(names []string) {
	for i, name := range names {
		names[i] = a.resolve(name)
	}
}

// distinctParents returns the parents of the join that differ from its own name, without duplicates, with the
// source of their first occurrence
func distinctParents(n *ir.Node, a aliases) ([]string, []ir.BlockID) {
	var parents []string
	var sources []ir.BlockID
	seen := map[string]bool{}
	for i, p := range n.Phi.Parents {
		p = a.resolve(p)
		if p == n.Name || seen[p] {
			continue
		}
		seen[p] = true
		parents = append(parents, p)
		sources = append(sources, n.Phi.Sources[i])
	}
	return parents, sources
}

// pruneJoins removes join nodes merging at most one distinct value, until none is left, and substitutes their
// name with the merged value everywhere. The parents of the remaining joins are deduplicated.
func pruneJoins(m *ir.Method) (int, error) {
	a := aliases{}
	removed := 0
	for changed := true; changed; {
		changed = false
		for _, b := range m.Blocks() {
			for i := 0; i < len(b.Nodes) && b.Nodes[i].IsPhi(); {
				n := b.Nodes[i]
				parents, _ := distinctParents(n, a)
				if len(parents) > 1 {
					i++
					continue
				}
				if len(parents) == 0 {
					return removed, ir.Invariant(m.Name(), stageJoins, "join %s in %s merges no value", n.Name, b.ID)
				}
				a[n.Name] = parents[0]
				b.ReplaceNode(i)
				removed++
				changed = true
			}
		}
	}

	for _, b := range m.Blocks() {
		if b.HandlerValue != "" {
			b.HandlerValue = a.resolve(b.HandlerValue)
		}
		for _, n := range b.Nodes {
			if n.IsPhi() {
				n.Phi.Parents, n.Phi.Sources = distinctParents(n, a)
				continue
			}
			a.resolveAll(n.PopNames)
			if n.RefName != "" {
				n.RefName = a.resolve(n.RefName)
			}
		}
	}
	return removed, nil
}

// flattenJoins rewrites every join with more than two parents into a left-leaning chain of binary joins. The
// last link keeps the name of the original join; the other links get fresh names in the same slot.
func flattenJoins(m *ir.Method, naming *Naming) int {
	links := 0
	for _, b := range m.Blocks() {
		for i := 0; i < len(b.Nodes) && b.Nodes[i].IsPhi(); {
			n := b.Nodes[i]
			if len(n.Phi.Parents) <= 2 {
				i++
				continue
			}
			chain := make([]*ir.Node, 0, len(n.Phi.Parents)-1)
			prev := ""
			for k := 1; k < len(n.Phi.Parents); k++ {
				link := newJoin(n.Kind, n.Phi.Slot, n.Depth)
				if k == 1 {
					link.Phi.Sources = []ir.BlockID{n.Phi.Sources[0], n.Phi.Sources[1]}
					link.Phi.Parents = []string{n.Phi.Parents[0], n.Phi.Parents[1]}
				} else {
					link.Phi.Sources = []ir.BlockID{ir.NoBlock, n.Phi.Sources[k]}
					link.Phi.Parents = []string{prev, n.Phi.Parents[k]}
				}
				if k == len(n.Phi.Parents)-1 {
					link.Name = n.Name
				} else {
					link.Name = naming.Fresh(n.Kind, n.Phi.Slot)
				}
				prev = link.Name
				chain = append(chain, link)
			}
			i = b.ReplaceNode(i, chain...)
			links += len(chain) - 1
		}
	}
	return links
}
