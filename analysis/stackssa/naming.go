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
)

const stageNaming = "naming"

// Naming holds the version counters of one naming run. Versions increase monotonically per slot; stack slots
// and local variable slots have separate counters.
//
// A Naming must not be shared between concurrent analyses.
type Naming struct {
	methodID string
	stack    map[int]int
	vars     map[int]int
}

// NewNaming returns a fresh naming state for the method with the given id
func NewNaming(methodID string) *Naming {
	return &Naming{methodID: methodID, stack: map[int]int{}, vars: map[int]int{}}
}

// Stack returns a fresh name for the stack slot
func (n *Naming) Stack(slot int) string {
	v := n.stack[slot]
	n.stack[slot] = v + 1
	return ir.StackName(n.methodID, slot, v)
}

// Var returns a fresh name for the local variable slot
func (n *Naming) Var(slot int) string {
	v := n.vars[slot]
	n.vars[slot] = v + 1
	return ir.VarName(n.methodID, slot, v)
}

// Fresh returns a fresh name in the slot space of the join node kind
func (n *Naming) Fresh(kind ir.NodeKind, slot int) string {
	if kind == ir.KindVarPhi {
		return n.Var(slot)
	}
	return n.Stack(slot)
}

// state is the symbolic content of the abstract stack and the local variables at a program point
type state struct {
	stack []string
	vars  []string
}

func (s state) clone() state {
	return state{
		stack: append([]string{}, s.stack...),
		vars:  append([]string{}, s.vars...),
	}
}

// renamer assigns names to every node of a method in a preorder of the dominator tree. A block starts with the
// exit state of its immediate dominator, overridden by its join nodes; the exit state of every block is kept to
// resolve the parents of join nodes once every block is named.
type renamer struct {
	m      *ir.Method
	dom    *dominance.Info
	dep    depths
	naming *Naming
	// initial holds the names of the initial values of the locals
	initial []string
	out     map[ir.BlockID]state
}

func rename(m *ir.Method, dom *dominance.Info, dep depths, naming *Naming) error {
	r := &renamer{m: m, dom: dom, dep: dep, naming: naming, out: map[ir.BlockID]state{}}
	for k := 0; k < m.NumLocals(); k++ {
		r.initial = append(r.initial, naming.Var(k))
	}
	for _, id := range dom.PreOrder() {
		if err := r.block(m.Block(id)); err != nil {
			return err
		}
	}
	for _, b := range m.Blocks() {
		if err := r.joinParents(b); err != nil {
			return err
		}
	}
	return nil
}

func (r *renamer) entryState(b *ir.Block) (state, error) {
	var s state
	if b.ID == r.m.Entry {
		s = state{vars: append([]string{}, r.initial...)}
	} else {
		idom := r.dom.IDom(b.ID)
		parent, ok := r.out[idom]
		if !ok {
			return s, ir.Invariant(r.m.Name(), stageNaming, "block %s is named before its immediate dominator %s",
				b.ID, idom)
		}
		s = parent.clone()
	}
	depth := r.dep.in[b.ID]
	if b.Handler != nil {
		s.stack = nil
		if depth > 0 {
			b.HandlerValue = ir.HandlerName(r.m.ID, b.ID)
			s.stack = append(s.stack, b.HandlerValue)
		}
		return s, nil
	}
	// slots live at the entry of b and not redefined by a join are defined in a dominator; the dominator may
	// have deeper slots that are popped on the way to b
	if len(s.stack) > depth {
		s.stack = s.stack[:depth]
	}
	for len(s.stack) < depth {
		// placeholder, a stack join must define the slot
		s.stack = append(s.stack, "")
	}
	return s, nil
}

func (r *renamer) block(b *ir.Block) error {
	s, err := r.entryState(b)
	if err != nil {
		return err
	}
	for _, n := range b.Phis() {
		n.Name = r.naming.Fresh(n.Kind, n.Phi.Slot)
		if n.Kind == ir.KindStackPhi {
			s.stack[n.Phi.Slot] = n.Name
		} else {
			s.vars[n.Phi.Slot] = n.Name
		}
	}
	for k, name := range s.stack {
		if name == "" {
			return ir.Invariant(r.m.Name(), stageNaming, "stack slot %d has no reaching definition in %s", k, b.ID)
		}
	}
	for _, n := range b.Nodes {
		if n.IsPhi() {
			continue
		}
		if err := r.node(b, n, &s); err != nil {
			return err
		}
	}
	r.out[b.ID] = s
	return nil
}

func (r *renamer) node(b *ir.Block, n *ir.Node, s *state) error {
	if len(s.stack) != n.Depth {
		return ir.Invariant(r.m.Name(), stageNaming, "%s at %s in %s: %d names on the stack, depth %d",
			n, cil.OffsetLabel(n.Offset()), b.ID, len(s.stack), n.Depth)
	}
	if n.Pops > len(s.stack) {
		return ir.Invariant(r.m.Name(), stageNaming, "%s at %s in %s pops %d names from %d",
			n, cil.OffsetLabel(n.Offset()), b.ID, n.Pops, len(s.stack))
	}
	base := len(s.stack) - n.Pops
	n.PopNames = append([]string{}, s.stack[base:]...)
	s.stack = s.stack[:base]

	n.RefName = ""
	switch n.Code() {
	case cil.Ldloc, cil.Ldloca:
		k, err := r.local(b, n, s)
		if err != nil {
			return err
		}
		n.RefName = s.vars[k]
	case cil.Stloc:
		k, err := r.local(b, n, s)
		if err != nil {
			return err
		}
		s.vars[k] = r.naming.Var(k)
		n.RefName = s.vars[k]
	case cil.Ldarg, cil.Ldarga, cil.Starg:
		if i, ok := n.Operand().(int64); ok {
			n.RefName = r.m.Ref().ArgRef(int(i))
		}
	default:
		if f, ok := n.Operand().(*cil.FieldRef); ok {
			n.RefName = f.QualifiedName()
		}
	}

	n.PushNames = nil
	for i := 0; i < n.Pushes; i++ {
		name := r.naming.Stack(base + i)
		n.PushNames = append(n.PushNames, name)
		s.stack = append(s.stack, name)
	}
	if clearsStack(n.Code()) {
		s.stack = nil
	}
	if len(n.PopNames) != n.Pops || len(n.PushNames) != n.Pushes {
		return ir.Invariant(r.m.Name(), stageNaming, "%s at %s: %d/%d pop names, %d/%d push names",
			n, cil.OffsetLabel(n.Offset()), len(n.PopNames), n.Pops, len(n.PushNames), n.Pushes)
	}
	return nil
}

func (r *renamer) local(b *ir.Block, n *ir.Node, s *state) (int, error) {
	k, ok := n.Operand().(int64)
	if !ok || k < 0 || int(k) >= len(s.vars) {
		return 0, ir.Invariant(r.m.Name(), stageNaming, "%s at %s in %s references an undeclared local",
			n, cil.OffsetLabel(n.Offset()), b.ID)
	}
	return int(k), nil
}

// joinParents sets one parent per source block on every join node of b, read from the exit state of the source.
// The joins of the entry block also merge the initial values of the locals.
func (r *renamer) joinParents(b *ir.Block) error {
	for _, n := range b.Phis() {
		n.Phi.Sources = nil
		n.Phi.Parents = nil
		if b.ID == r.m.Entry && n.Kind == ir.KindVarPhi {
			n.Phi.Sources = append(n.Phi.Sources, ir.NoBlock)
			n.Phi.Parents = append(n.Phi.Parents, r.initial[n.Phi.Slot])
		}
		for _, src := range b.Sources {
			out, ok := r.out[src]
			if !ok {
				return ir.Invariant(r.m.Name(), stageNaming, "source %s of %s was not named", src, b.ID)
			}
			slots := out.vars
			if n.Kind == ir.KindStackPhi {
				slots = out.stack
			}
			if n.Phi.Slot >= len(slots) {
				return ir.Invariant(r.m.Name(), stageNaming, "join %s of %s: slot %d undefined at the exit of %s",
					n.Name, b.ID, n.Phi.Slot, src)
			}
			n.Phi.Sources = append(n.Phi.Sources, src)
			n.Phi.Parents = append(n.Phi.Parents, slots[n.Phi.Slot])
		}
	}
	return nil
}
