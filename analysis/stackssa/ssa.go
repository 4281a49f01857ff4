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

// Package stackssa turns the normalized analysis graph of a method into SSA form over the abstract evaluation
// stack and the local variables.
//
// Construction runs in three steps. The depth simulation computes the abstract stack depth before every node.
// Join nodes are then placed at the iterated dominance frontiers of the definitions of each slot, where stack
// slots only get joins in blocks they are live in. Finally, names are assigned in a preorder of the dominator
// tree: every push and local definition gets a fresh version, every pop and local use the live version.
// Joins merging a single value are removed, and joins merging more than two values become chains of binary
// joins.
//
// Arguments and fields are not versioned; they are named by their qualified identity.
package stackssa

import (
	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/analysis/dominance"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
)

// Summary counts the join nodes handled by a construction
type Summary struct {
	StackJoins int
	VarJoins   int
	Pruned     int
	ChainLinks int
}

// Construct builds the SSA form of the method. The dominance information must have been computed on the
// current graph; the naming state may be nil, in which case a fresh one is used.
//
// All errors returned are *ir.InvariantError: the input graph is assumed to be well-formed.
func Construct(m *ir.Method, dom *dominance.Info, naming *Naming, logger *config.LogGroup) (Summary, error) {
	var s Summary
	if naming == nil {
		naming = NewNaming(m.ID)
	}
	dep, err := simulateDepth(m, logger)
	if err != nil {
		return s, err
	}
	s.StackJoins, s.VarJoins = placeJoins(m, dom, dep)
	if err := rename(m, dom, dep, naming); err != nil {
		return s, err
	}
	if s.Pruned, err = pruneJoins(m); err != nil {
		return s, err
	}
	s.ChainLinks = flattenJoins(m, naming)
	if err := Check(m); err != nil {
		return s, err
	}
	logger.Tracef("ssa %s: %d stack joins, %d variable joins, %d pruned, %d chain links\n",
		m.Name(), s.StackJoins, s.VarJoins, s.Pruned, s.ChainLinks)
	return s, nil
}

// Check verifies that the names assigned to the nodes of the method match their stack effect, and that every
// join merges two distinct values
func Check(m *ir.Method) error {
	for _, b := range m.Blocks() {
		for _, n := range b.Nodes {
			if n.IsPhi() {
				if n.Name == "" || len(n.Phi.Parents) != 2 || n.Phi.Parents[0] == n.Phi.Parents[1] {
					return ir.Invariant(m.Name(), "check", "malformed join in %s: %s", b.ID, n)
				}
				continue
			}
			if len(n.PopNames) != n.Pops || len(n.PushNames) != n.Pushes {
				return ir.Invariant(m.Name(), "check", "%s in %s has %d pop names and %d push names",
					n, b.ID, len(n.PopNames), len(n.PushNames))
			}
		}
	}
	return nil
}
