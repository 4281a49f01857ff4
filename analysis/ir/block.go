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

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/internal/funcutil"
)

// BlockID is the stable index of a block in the block arena of its method
type BlockID int

// NoBlock is the invalid block id
const NoBlock BlockID = -1

func (id BlockID) String() string {
	return fmt.Sprintf("B%d", int(id))
}

// Block is an ordered, non-branching run of nodes. Control flow only enters at the first node and only leaves
// after the last node (or through an exception edge). Edges are stored as block ids in the method's arena.
type Block struct {
	ID BlockID

	Nodes []*Node

	// Sources are the predecessors of the block, in insertion order
	Sources []BlockID
	// Targets are the successors of the block. For conditional branches, the fallthrough comes first, then
	// the branch destination. Exception edges come after the normal edges.
	Targets []BlockID

	// Handler is the exception handler whose handler (or filter) code starts at this block, if any
	Handler *cil.ExceptionHandler
	// HandlerValue is the name of the exception object available at the start of a catch or filter block
	HandlerValue string

	annotations
}

// IsHandlerStart returns true if the block is the entry of an exception handler or a filter
func (b *Block) IsHandlerStart() bool {
	return b.Handler != nil
}

// First returns the first instruction node of the block, skipping join nodes, or nil
func (b *Block) First() *Node {
	for _, n := range b.Nodes {
		if !n.IsPhi() {
			return n
		}
	}
	return nil
}

// Last returns the last node of the block, or nil if the block is empty
func (b *Block) Last() *Node {
	if len(b.Nodes) == 0 {
		return nil
	}
	return b.Nodes[len(b.Nodes)-1]
}

// Phis returns the join nodes at the head of the block
func (b *Block) Phis() []*Node {
	i := 0
	for i < len(b.Nodes) && b.Nodes[i].IsPhi() {
		i++
	}
	return b.Nodes[:i]
}

// HasSource returns true if id is a source of the block
func (b *Block) HasSource(id BlockID) bool {
	return funcutil.Contains(b.Sources, id)
}

// HasTarget returns true if id is a target of the block
func (b *Block) HasTarget(id BlockID) bool {
	return funcutil.Contains(b.Targets, id)
}

// ReplaceNode replaces the node at index i with the nodes given, which may be empty. It returns the index
// following the last inserted node.
func (b *Block) ReplaceNode(i int, nodes ...*Node) int {
	tail := append([]*Node{}, b.Nodes[i+1:]...)
	b.Nodes = append(append(b.Nodes[:i], nodes...), tail...)
	return i + len(nodes)
}

// InsertNodes inserts nodes before the node at index i
func (b *Block) InsertNodes(i int, nodes ...*Node) {
	tail := append([]*Node{}, b.Nodes[i:]...)
	b.Nodes = append(append(b.Nodes[:i], nodes...), tail...)
}

// PushCount returns the cumulative number of values pushed by the instructions of the block
func (b *Block) PushCount() int {
	c := 0
	for _, n := range b.Nodes {
		if !n.IsPhi() {
			c += n.Pushes
		}
	}
	return c
}

// PopCount returns the cumulative number of values popped by the instructions of the block
func (b *Block) PopCount() int {
	c := 0
	for _, n := range b.Nodes {
		if !n.IsPhi() {
			c += n.Pops
		}
	}
	return c
}

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s", b.ID)
	if b.Handler != nil {
		fmt.Fprintf(&sb, " (%s handler)", b.Handler.Kind)
	}
	fmt.Fprintf(&sb, " <- %v -> %v\n", b.Sources, b.Targets)
	for _, n := range b.Nodes {
		sb.WriteString("  ")
		if n.Instr != nil && !n.Overridden() {
			sb.WriteString(n.Instr.Label() + ": ")
		}
		sb.WriteString(n.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
