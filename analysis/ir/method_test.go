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
	"testing"

	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/google/go-cmp/cmp"
)

func testMethod() *Method {
	def := &cil.MethodDef{
		Ref:  &cil.MethodRef{DeclaringType: "Sample.Program", Name: "Main", ReturnType: cil.VoidType},
		Body: &cil.MethodBody{},
	}
	return NewMethod(def)
}

// diamond builds 0 -> {1, 2} -> 3
func diamond() *Method {
	m := testMethod()
	for i := 0; i < 4; i++ {
		m.NewBlock()
	}
	m.Entry = 0
	m.AddEdge(0, 1)
	m.AddEdge(0, 2)
	m.AddEdge(1, 3)
	m.AddEdge(2, 3)
	return m
}

func TestEdges(t *testing.T) {
	m := diamond()
	m.AddEdge(0, 1)
	if diff := cmp.Diff([]BlockID{1, 2}, m.Block(0).Targets); diff != "" {
		t.Errorf("duplicate edge added (-want +got):\n%s", diff)
	}
	m.RemoveEdge(1, 3)
	if m.Block(3).HasSource(1) || m.Block(1).HasTarget(3) {
		t.Errorf("edge 1 -> 3 should be removed")
	}
	extra := m.InsertBlockAfter(0)
	m.RedirectEdge(0, 2, extra.ID)
	if diff := cmp.Diff([]BlockID{1, extra.ID}, m.Block(0).Targets); diff != "" {
		t.Errorf("redirect did not keep the edge position (-want +got):\n%s", diff)
	}
	if m.Block(2).HasSource(0) || !extra.HasSource(0) {
		t.Errorf("sources not updated by redirect")
	}
	var layout []BlockID
	for _, b := range m.Blocks() {
		layout = append(layout, b.ID)
	}
	if diff := cmp.Diff([]BlockID{0, extra.ID, 1, 2, 3}, layout); diff != "" {
		t.Errorf("unexpected layout (-want +got):\n%s", diff)
	}
}

func TestMerge(t *testing.T) {
	m := testMethod()
	a, b, c := m.NewBlock(), m.NewBlock(), m.NewBlock()
	m.Entry = a.ID
	a.Nodes = []*Node{{Kind: KindInstr, code: cil.Nop}}
	b.Nodes = []*Node{{Kind: KindInstr, code: cil.Ret}}
	m.AddEdge(a.ID, b.ID)
	m.AddEdge(b.ID, c.ID)
	m.AddEdge(b.ID, b.ID)
	if err := m.Merge(a.ID, b.ID); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if m.Block(b.ID) != nil {
		t.Fatalf("merged block should be removed")
	}
	if len(a.Nodes) != 2 {
		t.Errorf("expected 2 nodes after merge, got %d", len(a.Nodes))
	}
	if diff := cmp.Diff([]BlockID{c.ID, a.ID}, a.Targets); diff != "" {
		t.Errorf("unexpected targets after merge (-want +got):\n%s", diff)
	}
	if !c.HasSource(a.ID) || !a.HasSource(a.ID) {
		t.Errorf("sources not rewired after merge: %v %v", c.Sources, a.Sources)
	}
	if err := m.Merge(a.ID, a.ID); err == nil {
		t.Errorf("merging a block with itself should fail")
	}
}

func TestReachable(t *testing.T) {
	m := diamond()
	dead := m.NewBlock()
	m.AddEdge(dead.ID, 3)
	r := m.Reachable()
	for i := BlockID(0); i < 4; i++ {
		if !r[i] {
			t.Errorf("%s should be reachable", i)
		}
	}
	if r[dead.ID] {
		t.Errorf("%s should not be reachable", dead.ID)
	}
	m.Retain(r)
	if m.NumBlocks() != 4 || m.Block(dead.ID) != nil {
		t.Errorf("retain did not remove the unreachable block")
	}
	if m.Block(3).HasSource(dead.ID) {
		t.Errorf("edges of removed block should be removed")
	}
}

func TestReplaceAndInsertNodes(t *testing.T) {
	b := &Block{}
	mk := func(c cil.Code) *Node { return &Node{Kind: KindInstr, code: c} }
	b.Nodes = []*Node{mk(cil.Nop), mk(cil.Dup), mk(cil.Ret)}
	next := b.ReplaceNode(1, mk(cil.Pop), mk(cil.Pop))
	if next != 3 {
		t.Errorf("expected next index 3, got %d", next)
	}
	b.InsertNodes(0, NewPhiNode(KindStackPhi, 0))
	b.ReplaceNode(4)
	var got []string
	for _, n := range b.Nodes {
		if n.IsPhi() {
			got = append(got, "phi")
		} else {
			got = append(got, n.Code().String())
		}
	}
	if diff := cmp.Diff([]string{"phi", "nop", "pop", "pop"}, got); diff != "" {
		t.Errorf("unexpected nodes (-want +got):\n%s", diff)
	}
	if len(b.Phis()) != 1 || b.First().Code() != cil.Nop {
		t.Errorf("phis must be at the head of the block")
	}
}

func TestStackEffect(t *testing.T) {
	owner := &cil.MethodRef{DeclaringType: "A", Name: "F", ReturnType: "System.Int32"}
	callee := &cil.MethodRef{DeclaringType: "A", Name: "G", Params: []string{"System.Int32", "System.String"},
		ReturnType: "System.String", HasThis: true}
	ctor := &cil.MethodRef{DeclaringType: "A", Name: ".ctor", Params: []string{"System.Int32"}, HasThis: true}
	tests := []struct {
		code    cil.Code
		operand any
		pops    int
		pushes  int
	}{
		{cil.Add, nil, 2, 1},
		{cil.Dup, nil, 1, 2},
		{cil.Call, callee, 3, 1},
		{cil.Callvirt, ctor, 2, 0},
		{cil.Newobj, ctor, 1, 1},
		{cil.Calli, &cil.CallSig{Params: []string{"System.Int32"}, ReturnType: "System.Int32"}, 2, 1},
		{cil.Ret, nil, 1, 0},
		{cil.Leave, cil.BranchTarget(4), 0, 0},
		{cil.Stelem, &cil.TypeRef{FullName: "System.Int32"}, 3, 0},
	}
	for _, test := range tests {
		pops, pushes, err := StackEffect(test.code, test.operand, owner)
		if err != nil {
			t.Errorf("%s: unexpected error %v", test.code, err)
			continue
		}
		if pops != test.pops || pushes != test.pushes {
			t.Errorf("%s: expected %d/%d, got %d/%d", test.code, test.pops, test.pushes, pops, pushes)
		}
	}
	if _, _, err := StackEffect(cil.Call, "not a method", owner); err == nil {
		t.Errorf("expected an error for a call without method operand")
	}
	pops, _, _ := StackEffect(cil.Ret, nil, &cil.MethodRef{Name: "V"})
	if pops != 0 {
		t.Errorf("ret of a void method should not pop")
	}
}

func TestErrors(t *testing.T) {
	err := fmt.Errorf("while building: %w", Unsupported("M", 0x10, "bad operand %d", 3))
	if !IsUnsupported(err) || IsInvariant(err) {
		t.Errorf("wrapped unsupported error not recognized")
	}
	if !strings.Contains(err.Error(), "IL_0010") {
		t.Errorf("expected offset label in %q", err.Error())
	}
	err = fmt.Errorf("ssa: %w", Invariant("M", "naming", "mismatch"))
	if !IsInvariant(err) {
		t.Errorf("wrapped invariant error not recognized")
	}
	if !IsResolution(&ResolutionError{Ref: "T"}) {
		t.Errorf("resolution error not recognized")
	}
}

func TestMethodID(t *testing.T) {
	a := MethodID("System.Void A::F()")
	if a != MethodID("System.Void A::F()") {
		t.Errorf("method id should be stable")
	}
	if a == MethodID("System.Void A::G()") {
		t.Errorf("method ids of different methods should differ")
	}
	if len(a) != 17 || a[0] != 'm' {
		t.Errorf("unexpected method id format %q", a)
	}
}

type countingVisitor struct {
	counts map[string]int
}

func (c *countingVisitor) VisitModule(*Module) error {
	c.counts["module"]++
	return nil
}

func (c *countingVisitor) VisitType(*Type) error {
	c.counts["type"]++
	return nil
}

func (c *countingVisitor) VisitMethod(*Method) error {
	c.counts["method"]++
	return nil
}

func (c *countingVisitor) VisitBlock(*Method, *Block) error {
	c.counts["block"]++
	return nil
}

func (c *countingVisitor) VisitNode(*Method, *Block, *Node) error {
	c.counts["node"]++
	return nil
}

func TestWalk(t *testing.T) {
	m := diamond()
	for _, b := range m.Blocks() {
		b.Nodes = []*Node{{Kind: KindInstr, code: cil.Nop}}
	}
	mod := NewModule(&cil.Module{Name: "sample", Types: []*cil.TypeDef{{FullName: "Sample.Program"}, {FullName: "Other"}}})
	mod.Type("Sample.Program").AddMethod(m)
	v := &countingVisitor{counts: map[string]int{}}
	if err := Walk(v, mod); err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"module": 1, "type": 2, "method": 1, "block": 4, "node": 4}
	if diff := cmp.Diff(want, v.counts); diff != "" {
		t.Errorf("unexpected visit counts (-want +got):\n%s", diff)
	}
	if m.Type.Name() != "Sample.Program" {
		t.Errorf("method type not set")
	}
}

// visitOnce counts how many times each block is entered, and only changes on the first visit
type visitOnce struct {
	seen map[BlockID]int
}

func (v *visitOnce) NewBlock(b *Block) { v.seen[b.ID]++ }

func (v *visitOnce) VisitNode(*Block, *Node) {}

func (v *visitOnce) ChangedOnEndBlock(b *Block) bool { return v.seen[b.ID] == 1 }

func TestRunForwardIterative(t *testing.T) {
	m := diamond()
	m.AddEdge(3, 0)
	v := &visitOnce{seen: map[BlockID]int{}}
	RunForwardIterative(v, m)
	for i := BlockID(0); i < 4; i++ {
		if v.seen[i] == 0 {
			t.Errorf("%s not visited", i)
		}
	}
	if v.seen[0] != 2 {
		t.Errorf("expected the loop header to be visited twice, got %d", v.seen[0])
	}
}
