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

package ir

// Visitor is visited by Walk on every element of a module. Any error stops the walk.
type Visitor interface {
	VisitModule(mod *Module) error
	VisitType(t *Type) error
	VisitMethod(m *Method) error
	VisitBlock(m *Method, b *Block) error
	VisitNode(m *Method, b *Block, n *Node) error
}

// Walk visits the module, then each of its types, methods, blocks (in layout order) and nodes, in structural
// order.
func Walk(v Visitor, mod *Module) error {
	if err := v.VisitModule(mod); err != nil {
		return err
	}
	for _, t := range mod.Types {
		if err := v.VisitType(t); err != nil {
			return err
		}
		for _, m := range t.Methods {
			if err := WalkMethod(v, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// WalkMethod visits the method, then its blocks in layout order and their nodes
func WalkMethod(v Visitor, m *Method) error {
	if err := v.VisitMethod(m); err != nil {
		return err
	}
	for _, b := range m.Blocks() {
		if err := v.VisitBlock(m, b); err != nil {
			return err
		}
		for _, n := range b.Nodes {
			if err := v.VisitNode(m, b, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// IterativeAnalysis is a forward analysis over the blocks of a method. NewBlock is called when a block is
// entered, VisitNode on each of its nodes, and ChangedOnEndBlock when the block has been visited; it must
// return true when the information flowing to the targets of the block has changed.
type IterativeAnalysis interface {
	NewBlock(b *Block)
	VisitNode(b *Block, n *Node)
	ChangedOnEndBlock(b *Block) bool
}

// RunForwardIterative visits the blocks of the method starting from the entry. The targets of a block are
// queued when the information changed after visiting the block. The analysis is responsible for ensuring
// termination.
func RunForwardIterative(op IterativeAnalysis, m *Method) {
	entry := m.EntryBlock()
	if entry == nil {
		return
	}
	worklist := []*Block{entry}
	queued := map[BlockID]bool{entry.ID: true}
	for len(worklist) > 0 {
		block := worklist[0]
		worklist = worklist[1:]
		queued[block.ID] = false
		op.NewBlock(block)
		for _, n := range block.Nodes {
			op.VisitNode(block, n)
		}
		if op.ChangedOnEndBlock(block) {
			for _, t := range block.Targets {
				if next := m.Block(t); next != nil && !queued[t] {
					worklist = append(worklist, next)
					queued[t] = true
				}
			}
		}
	}
}
