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
	"github.com/cespare/xxhash/v2"
	"github.com/yourbasic/graph"
)

// Method is the analysis graph of one method. Blocks live in an arena indexed by BlockID; removed blocks
// leave a nil slot so ids stay stable during the whole analysis.
type Method struct {
	Def *cil.MethodDef

	// Type is the enclosing type. It is nil for methods analyzed outside of a module.
	Type *Type

	// ID is the fingerprint scoping every symbolic name of the method
	ID string

	Entry BlockID

	blocks []*Block
	layout []BlockID
}

// This is a compile-time check that Method can be traversed by the graph library
var _ graph.Iterator = (*Method)(nil)

// NewMethod returns an empty analysis graph for the method definition
func NewMethod(def *cil.MethodDef) *Method {
	return &Method{
		Def:   def,
		ID:    MethodID(def.FullName()),
		Entry: NoBlock,
	}
}

// MethodID returns the fingerprint of a method full name, used as the prefix of its symbolic names
func MethodID(fullName string) string {
	return fmt.Sprintf("m%016x", xxhash.Sum64String(fullName))
}

// Name returns the full name of the method
func (m *Method) Name() string {
	return m.Def.FullName()
}

// Ref returns the method reference of the method definition
func (m *Method) Ref() *cil.MethodRef {
	return m.Def.Ref
}

// NewBlock allocates a new empty block at the end of the layout
func (m *Method) NewBlock() *Block {
	b := m.alloc()
	m.layout = append(m.layout, b.ID)
	return b
}

// InsertBlockAfter allocates a new empty block placed right after the block after in the layout
func (m *Method) InsertBlockAfter(after BlockID) *Block {
	b := m.alloc()
	pos := m.layoutIndex(after)
	if pos < 0 {
		m.layout = append(m.layout, b.ID)
		return b
	}
	m.layout = append(m.layout[:pos+1], append([]BlockID{b.ID}, m.layout[pos+1:]...)...)
	return b
}

func (m *Method) alloc() *Block {
	b := &Block{ID: BlockID(len(m.blocks))}
	m.blocks = append(m.blocks, b)
	return b
}

func (m *Method) layoutIndex(id BlockID) int {
	for i, x := range m.layout {
		if x == id {
			return i
		}
	}
	return -1
}

// Block returns the block with id, or nil if it does not exist or has been removed
func (m *Method) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(m.blocks) {
		return nil
	}
	return m.blocks[id]
}

// EntryBlock returns the entry block of the method
func (m *Method) EntryBlock() *Block {
	return m.Block(m.Entry)
}

// Blocks returns the live blocks of the method in layout order
func (m *Method) Blocks() []*Block {
	res := make([]*Block, 0, len(m.layout))
	for _, id := range m.layout {
		if b := m.blocks[id]; b != nil {
			res = append(res, b)
		}
	}
	return res
}

// NumBlocks returns the number of live blocks
func (m *Method) NumBlocks() int {
	return len(m.layout)
}

// AddEdge adds an edge from -> to. Duplicate edges are ignored.
func (m *Method) AddEdge(from, to BlockID) {
	a, b := m.Block(from), m.Block(to)
	if a == nil || b == nil || a.HasTarget(to) {
		return
	}
	a.Targets = append(a.Targets, to)
	b.Sources = append(b.Sources, from)
}

// RemoveEdge removes the edge from -> to, if it exists
func (m *Method) RemoveEdge(from, to BlockID) {
	if a := m.Block(from); a != nil {
		a.Targets = removeID(a.Targets, to)
	}
	if b := m.Block(to); b != nil {
		b.Sources = removeID(b.Sources, from)
	}
}

// RedirectEdge replaces the edge from -> oldTo by from -> newTo, keeping the position of the edge in the
// targets of from. If from already targets newTo, the edge is simply removed.
func (m *Method) RedirectEdge(from, oldTo, newTo BlockID) {
	a := m.Block(from)
	if a == nil || !a.HasTarget(oldTo) {
		return
	}
	if a.HasTarget(newTo) {
		m.RemoveEdge(from, oldTo)
		return
	}
	for i, t := range a.Targets {
		if t == oldTo {
			a.Targets[i] = newTo
		}
	}
	if b := m.Block(oldTo); b != nil {
		b.Sources = removeID(b.Sources, from)
	}
	if c := m.Block(newTo); c != nil {
		c.Sources = append(c.Sources, from)
	}
}

// Merge concatenates the nodes of block b at the end of block a, and removes b. The targets of b become the
// targets of a. The caller is responsible for checking that a is the unique source of b and b the unique
// target of a.
func (m *Method) Merge(a, b BlockID) error {
	x, y := m.Block(a), m.Block(b)
	if x == nil || y == nil {
		return fmt.Errorf("cannot merge missing blocks %s and %s", a, b)
	}
	if a == b {
		return fmt.Errorf("cannot merge block %s with itself", a)
	}
	m.RemoveEdge(a, b)
	x.Nodes = append(x.Nodes, y.Nodes...)
	for _, t := range append([]BlockID{}, y.Targets...) {
		m.RemoveEdge(b, t)
		if t == b {
			m.AddEdge(a, a)
		} else {
			m.AddEdge(a, t)
		}
	}
	for _, s := range append([]BlockID{}, y.Sources...) {
		m.RemoveEdge(s, b)
		m.AddEdge(s, a)
	}
	if m.Entry == b {
		m.Entry = a
	}
	m.drop(b)
	return nil
}

// RemoveBlock removes the block and all its edges
func (m *Method) RemoveBlock(id BlockID) {
	b := m.Block(id)
	if b == nil {
		return
	}
	for _, t := range append([]BlockID{}, b.Targets...) {
		m.RemoveEdge(id, t)
	}
	for _, s := range append([]BlockID{}, b.Sources...) {
		m.RemoveEdge(s, id)
	}
	m.drop(id)
}

func (m *Method) drop(id BlockID) {
	m.blocks[id] = nil
	if i := m.layoutIndex(id); i >= 0 {
		m.layout = append(m.layout[:i], m.layout[i+1:]...)
	}
}

// Retain removes every block that is not in keep
func (m *Method) Retain(keep map[BlockID]bool) {
	for _, b := range m.Blocks() {
		if !keep[b.ID] {
			m.RemoveBlock(b.ID)
		}
	}
}

// Reachable returns the set of blocks reachable from the entry block by following targets
func (m *Method) Reachable() map[BlockID]bool {
	reached := map[BlockID]bool{}
	if m.EntryBlock() == nil {
		return reached
	}
	reached[m.Entry] = true
	graph.BFS(m, int(m.Entry), func(_, w int, _ int64) {
		reached[BlockID(w)] = true
	})
	return reached
}

// Order returns the size of the block arena. Removed blocks are isolated vertices.
func (m *Method) Order() int {
	return len(m.blocks)
}

// Visit calls do for each target of block v
func (m *Method) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	b := m.Block(BlockID(v))
	if b == nil {
		return false
	}
	for _, t := range b.Targets {
		if do(int(t), 0) {
			return true
		}
	}
	return false
}

// NumLocals returns the number of local variables declared by the method body
func (m *Method) NumLocals() int {
	if m.Def.Body == nil {
		return 0
	}
	return len(m.Def.Body.Locals)
}

func (m *Method) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "method %s (%s) entry %s\n", m.Name(), m.ID, m.Entry)
	for _, b := range m.Blocks() {
		sb.WriteString(b.String())
	}
	return sb.String()
}

func removeID(ids []BlockID, id BlockID) []BlockID {
	res := ids[:0]
	for _, x := range ids {
		if x != id {
			res = append(res, x)
		}
	}
	return res
}
