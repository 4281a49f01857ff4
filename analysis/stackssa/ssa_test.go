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
	"bytes"
	"strings"
	"testing"

	"github.com/awslabs/ar-cil-tools/analysis/cfg"
	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/analysis/dominance"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
	"github.com/awslabs/ar-cil-tools/analysis/normalize"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/exp/slices"
)

var (
	readInt   = &cil.MethodRef{DeclaringType: "System.Console", Name: "Read", ReturnType: "System.Int32"}
	writeLine = &cil.MethodRef{DeclaringType: "System.Console", Name: "WriteLine", Params: []string{"System.Int32"}}
	foo       = &cil.MethodRef{DeclaringType: "Sample.Program", Name: "Foo"}
)

func in(offset int, code cil.Code, operand any) cil.Instruction {
	return cil.Instruction{Offset: offset, Code: code, Operand: operand}
}

func def(params []string, ret string, locals []string, handlers []cil.ExceptionHandler,
	instrs ...cil.Instruction) *cil.MethodDef {
	return &cil.MethodDef{
		Ref: &cil.MethodRef{DeclaringType: "Sample.Program", Name: "Test", Params: params, ReturnType: ret},
		Body: &cil.MethodBody{
			Instructions: instrs,
			Handlers:     handlers,
			Locals:       locals,
		},
	}
}

func logger() *config.LogGroup {
	l := config.NewLogGroup(config.NewDefault())
	l.SetAllOutput(&bytes.Buffer{})
	return l
}

// construct runs every stage up to the SSA construction on the method
func construct(d *cil.MethodDef, logger *config.LogGroup) (*ir.Method, Summary, error) {
	m, err := cfg.Build(d, logger)
	if err != nil {
		return nil, Summary{}, err
	}
	if _, err := normalize.Run(m, logger, normalize.DefaultPasses()...); err != nil {
		return nil, Summary{}, err
	}
	s, err := Construct(m, dominance.Compute(m), nil, logger)
	return m, s, err
}

func mustConstruct(t *testing.T, d *cil.MethodDef) (*ir.Method, Summary) {
	t.Helper()
	m, s, err := construct(d, logger())
	if err != nil {
		t.Fatalf("failed to construct ssa: %v\n%v", err, m)
	}
	return m, s
}

func joins(m *ir.Method, kind ir.NodeKind) []*ir.Node {
	var res []*ir.Node
	for _, b := range m.Blocks() {
		for _, n := range b.Phis() {
			if n.Kind == kind {
				res = append(res, n)
			}
		}
	}
	return res
}

// blockAt returns the block whose first instruction is at offset
func blockAt(t *testing.T, m *ir.Method, offset int) *ir.Block {
	t.Helper()
	for _, b := range m.Blocks() {
		if f := b.First(); f != nil && f.Offset() == offset {
			return b
		}
	}
	t.Fatalf("no block starts at offset %d:\n%s", offset, m)
	return nil
}

func checkNameCounts(t *testing.T, m *ir.Method) {
	t.Helper()
	for _, b := range m.Blocks() {
		pushes, pops := 0, 0
		for _, n := range b.Nodes {
			if !n.IsPhi() {
				pushes += len(n.PushNames)
				pops += len(n.PopNames)
			}
		}
		if pushes != b.PushCount() || pops != b.PopCount() {
			t.Errorf("block %s: %d push names for %d pushes, %d pop names for %d pops",
				b.ID, pushes, b.PushCount(), pops, b.PopCount())
		}
	}
}

func checkMinimal(t *testing.T, m *ir.Method) {
	t.Helper()
	for _, b := range m.Blocks() {
		for _, n := range b.Phis() {
			if len(n.Phi.Parents) != 2 || n.Phi.Parents[0] == n.Phi.Parents[1] {
				t.Errorf("join %s in %s does not merge two distinct values", n, b.ID)
			}
		}
	}
}

func TestBranchFree(t *testing.T) {
	m, s := mustConstruct(t, def(nil, "System.Int32", []string{"System.Int32"}, nil,
		in(0, cil.LdcI41, nil),
		in(1, cil.LdcI42, nil),
		in(2, cil.Add, nil),
		in(3, cil.Stloc0, nil),
		in(4, cil.Ldloc0, nil),
		in(5, cil.Ret, nil)))
	if s.StackJoins+s.VarJoins != 0 {
		t.Errorf("expected no joins, got %+v", s)
	}
	id := m.ID
	b := m.EntryBlock()
	add, store, load, ret := b.Nodes[2], b.Nodes[3], b.Nodes[4], b.Nodes[5]
	if diff := cmp.Diff([]string{ir.StackName(id, 0, 0), ir.StackName(id, 1, 0)}, add.PopNames); diff != "" {
		t.Errorf("unexpected add operands (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{ir.StackName(id, 0, 1)}, add.PushNames); diff != "" {
		t.Errorf("unexpected add result (-want +got):\n%s", diff)
	}
	// version 0 of the local is its initial value
	if store.RefName != ir.VarName(id, 0, 1) || load.RefName != ir.VarName(id, 0, 1) {
		t.Errorf("expected store and load of %s, got %s and %s", ir.VarName(id, 0, 1), store.RefName, load.RefName)
	}
	if diff := cmp.Diff([]string{ir.StackName(id, 0, 2)}, ret.PopNames); diff != "" {
		t.Errorf("unexpected returned value (-want +got):\n%s", diff)
	}
	if depth := ret.Depth - ret.Pops + ret.Pushes; depth != 0 {
		t.Errorf("expected depth 0 at exit, got %d", depth)
	}
	checkNameCounts(t, m)
}

func TestArgumentAndFieldNames(t *testing.T) {
	count := &cil.FieldRef{DeclaringType: "Sample.Program", Name: "count", FieldType: "System.Int32", Static: true}
	m, _ := mustConstruct(t, def([]string{"System.Int32"}, "", nil, nil,
		in(0, cil.Ldarg0, nil),
		in(1, cil.Stsfld, count),
		in(6, cil.Ret, nil)))
	b := m.EntryBlock()
	if want := "Sample.Program::Test(System.Int32)#arg0"; b.Nodes[0].RefName != want {
		t.Errorf("expected argument name %q, got %q", want, b.Nodes[0].RefName)
	}
	if want := "Sample.Program::count"; b.Nodes[1].RefName != want {
		t.Errorf("expected field name %q, got %q", want, b.Nodes[1].RefName)
	}
}

// read, branch on equality to 10, push one of two values, print the merged value
func TestDiamondStackJoin(t *testing.T) {
	m, s := mustConstruct(t, def(nil, "", nil, nil,
		in(0, cil.Call, readInt),
		in(5, cil.LdcI4S, int64(10)),
		in(7, cil.BeqS, cil.BranchTarget(12)),
		in(9, cil.LdcI42, nil),
		in(10, cil.BrS, cil.BranchTarget(13)),
		in(12, cil.LdcI41, nil),
		in(13, cil.Call, writeLine),
		in(18, cil.Ret, nil)))
	stack := joins(m, ir.KindStackPhi)
	if len(stack) != 1 || s.StackJoins != 1 {
		t.Fatalf("expected exactly one stack join, got %d:\n%s", len(stack), m)
	}
	if len(joins(m, ir.KindVarPhi)) != 0 {
		t.Errorf("expected no variable join:\n%s", m)
	}
	merge := blockAt(t, m, 13)
	phis := merge.Phis()
	if len(phis) != 1 || phis[0] != stack[0] {
		t.Fatalf("expected the join at the head of the merge block:\n%s", m)
	}
	j := phis[0]
	if j.Phi.Slot != 0 || len(j.Phi.Parents) != 2 {
		t.Fatalf("expected a join of slot 0 with two parents, got %s", j)
	}
	left := blockAt(t, m, 9).Nodes[0].PushNames[0]
	right := blockAt(t, m, 12).Nodes[0].PushNames[0]
	got := append([]string{}, j.Phi.Parents...)
	want := []string{left, right}
	slices.Sort(got)
	slices.Sort(want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected join parents (-want +got):\n%s", diff)
	}
	call := merge.First()
	if diff := cmp.Diff([]string{j.Name}, call.PopNames); diff != "" {
		t.Errorf("expected the call to consume the join (-want +got):\n%s", diff)
	}
	checkNameCounts(t, m)
	checkMinimal(t, m)
}

func TestLoopVariableJoin(t *testing.T) {
	m, s := mustConstruct(t, def(nil, "", []string{"System.Int32"}, nil,
		in(0, cil.LdcI40, nil),
		in(1, cil.Stloc0, nil),
		in(2, cil.BrS, cil.BranchTarget(8)),
		in(4, cil.Ldloc0, nil),
		in(5, cil.LdcI41, nil),
		in(6, cil.Add, nil),
		in(7, cil.Stloc0, nil),
		in(8, cil.Ldloc0, nil),
		in(9, cil.LdcI4S, int64(10)),
		in(11, cil.BltS, cil.BranchTarget(4)),
		in(13, cil.Ret, nil)))
	if n := len(joins(m, ir.KindStackPhi)); n != 0 {
		t.Errorf("expected no stack join, got %d:\n%s", n, m)
	}
	vars := joins(m, ir.KindVarPhi)
	if len(vars) != 1 {
		t.Fatalf("expected one variable join, got %d (%+v):\n%s", len(vars), s, m)
	}
	header := blockAt(t, m, 8)
	if header.Phis()[0] != vars[0] {
		t.Errorf("expected the join at the loop header:\n%s", m)
	}
	initial := blockAt(t, m, 0).Nodes[1].RefName
	body := blockAt(t, m, 4)
	if body.Nodes[0].RefName != vars[0].Name {
		t.Errorf("expected the loop body to read the join %s, got %s", vars[0].Name, body.Nodes[0].RefName)
	}
	got := append([]string{}, vars[0].Phi.Parents...)
	want := []string{initial, body.Nodes[3].RefName}
	slices.Sort(got)
	slices.Sort(want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected join parents (-want +got):\n%s", diff)
	}
	checkNameCounts(t, m)
	checkMinimal(t, m)
}

func TestJoinChain(t *testing.T) {
	m, s := mustConstruct(t, def([]string{"System.Int32", "System.Int32"}, "System.Int32",
		[]string{"System.Int32"}, nil,
		in(0, cil.Ldarg0, nil),
		in(1, cil.BrtrueS, cil.BranchTarget(10)),
		in(3, cil.Ldarg1, nil),
		in(4, cil.BrtrueS, cil.BranchTarget(14)),
		in(6, cil.LdcI41, nil),
		in(7, cil.Stloc0, nil),
		in(8, cil.BrS, cil.BranchTarget(16)),
		in(10, cil.LdcI42, nil),
		in(11, cil.Stloc0, nil),
		in(12, cil.BrS, cil.BranchTarget(16)),
		in(14, cil.LdcI43, nil),
		in(15, cil.Stloc0, nil),
		in(16, cil.Ldloc0, nil),
		in(17, cil.Ret, nil)))
	if s.ChainLinks != 1 {
		t.Errorf("expected one additional chain link, got %+v", s)
	}
	merge := blockAt(t, m, 16)
	chain := merge.Phis()
	if len(chain) != 2 {
		t.Fatalf("expected a chain of two joins:\n%s", m)
	}
	first, last := chain[0], chain[1]
	if last.Phi.Parents[0] != first.Name || last.Phi.Sources[0] != ir.NoBlock {
		t.Errorf("expected the last link to merge the first one, got %s", last)
	}
	if merge.First().RefName != last.Name {
		t.Errorf("expected the load to read %s, got %s", last.Name, merge.First().RefName)
	}
	stores := []string{
		blockAt(t, m, 6).Nodes[1].RefName,
		blockAt(t, m, 10).Nodes[1].RefName,
		blockAt(t, m, 14).Nodes[1].RefName,
	}
	got := []string{first.Phi.Parents[0], first.Phi.Parents[1], last.Phi.Parents[1]}
	slices.Sort(got)
	slices.Sort(stores)
	if diff := cmp.Diff(stores, got); diff != "" {
		t.Errorf("unexpected chain parents (-want +got):\n%s", diff)
	}
	checkNameCounts(t, m)
	checkMinimal(t, m)
}

func TestHandlerDepths(t *testing.T) {
	catch := cil.ExceptionHandler{Kind: cil.HandlerCatch, TryStart: 0, TryEnd: 7, HandlerStart: 7, HandlerEnd: 10,
		FilterStart: -1, CatchType: "System.Exception"}
	m, _ := mustConstruct(t, def(nil, "", nil, []cil.ExceptionHandler{catch},
		in(0, cil.Call, foo),
		in(5, cil.LeaveS, cil.BranchTarget(10)),
		in(7, cil.Pop, nil),
		in(8, cil.LeaveS, cil.BranchTarget(10)),
		in(10, cil.Ret, nil)))
	h := blockAt(t, m, 7)
	if !h.IsHandlerStart() || h.First().Depth != 1 {
		t.Fatalf("expected depth 1 at the catch handler, got %d:\n%s", h.First().Depth, m)
	}
	if want := ir.HandlerName(m.ID, h.ID); h.HandlerValue != want {
		t.Errorf("expected handler value %s, got %s", want, h.HandlerValue)
	}
	if diff := cmp.Diff([]string{h.HandlerValue}, h.First().PopNames); diff != "" {
		t.Errorf("expected the handler to pop the exception (-want +got):\n%s", diff)
	}

	finally := cil.ExceptionHandler{Kind: cil.HandlerFinally, TryStart: 0, TryEnd: 7, HandlerStart: 7,
		HandlerEnd: 13, FilterStart: -1}
	m, _ = mustConstruct(t, def(nil, "", nil, []cil.ExceptionHandler{finally},
		in(0, cil.Call, foo),
		in(5, cil.LeaveS, cil.BranchTarget(13)),
		in(7, cil.Call, foo),
		in(12, cil.Endfinally, nil),
		in(13, cil.Ret, nil)))
	h = blockAt(t, m, 7)
	if !h.IsHandlerStart() || h.First().Depth != 0 {
		t.Fatalf("expected depth 0 at the finally handler, got %d:\n%s", h.First().Depth, m)
	}
	if h.HandlerValue != "" {
		t.Errorf("expected no handler value for finally, got %s", h.HandlerValue)
	}
	checkNameCounts(t, m)

	// leave empties the stack, whatever is left on it
	catch = cil.ExceptionHandler{Kind: cil.HandlerCatch, TryStart: 0, TryEnd: 4, HandlerStart: 4, HandlerEnd: 7,
		FilterStart: -1, CatchType: "System.Exception"}
	m, _ = mustConstruct(t, def(nil, "", nil, []cil.ExceptionHandler{catch},
		in(0, cil.LdcI41, nil),
		in(1, cil.LdcI42, nil),
		in(2, cil.LeaveS, cil.BranchTarget(7)),
		in(4, cil.Pop, nil),
		in(5, cil.LeaveS, cil.BranchTarget(7)),
		in(7, cil.Ret, nil)))
	leave := blockAt(t, m, 2).First()
	if leave.Code() != cil.LeaveS || leave.Depth != 2 {
		t.Fatalf("expected leave.s at depth 2, got %s at depth %d:\n%s", leave, leave.Depth, m)
	}
	if len(leave.PopNames) != 0 {
		t.Errorf("expected leave to pop no names, got %v", leave.PopNames)
	}
	if d := blockAt(t, m, 7).First().Depth; d != 0 {
		t.Errorf("expected depth 0 at the leave destination, got %d:\n%s", d, m)
	}
	checkNameCounts(t, m)
}

func TestFilterDepthIsProvisional(t *testing.T) {
	filter := cil.ExceptionHandler{Kind: cil.HandlerFilter, TryStart: 0, TryEnd: 7, FilterStart: 7,
		HandlerStart: 10, HandlerEnd: 13}
	l := config.NewLogGroup(config.NewDefault())
	var logs bytes.Buffer
	l.SetAllOutput(&logs)
	m, _, err := construct(def(nil, "", nil, []cil.ExceptionHandler{filter},
		in(0, cil.Call, foo),
		in(5, cil.LeaveS, cil.BranchTarget(13)),
		in(7, cil.Pop, nil),
		in(8, cil.LdcI41, nil),
		in(9, cil.Endfilter, nil),
		in(10, cil.Pop, nil),
		in(11, cil.LeaveS, cil.BranchTarget(13)),
		in(13, cil.Ret, nil)), l)
	if err != nil {
		t.Fatalf("failed to construct ssa: %v", err)
	}
	for _, offset := range []int{7, 10} {
		b := blockAt(t, m, offset)
		if b.First().Depth != 1 {
			t.Errorf("expected depth 1 at %d, got %d", offset, b.First().Depth)
		}
		if _, ok := b.Annotation(ProvisionalDepthAnnotation); !ok {
			t.Errorf("expected block at %d to be flagged", offset)
		}
	}
	if !strings.Contains(logs.String(), "filter block") {
		t.Errorf("expected a warning, got %q", logs.String())
	}
}

func TestInvariantErrors(t *testing.T) {
	for name, d := range map[string]*cil.MethodDef{
		"underflow": def(nil, "", nil, nil,
			in(0, cil.Pop, nil),
			in(1, cil.Ret, nil)),
		"exit depth": def(nil, "", nil, nil,
			in(0, cil.LdcI41, nil),
			in(1, cil.Ret, nil)),
		"jmp depth": def(nil, "", nil, nil,
			in(0, cil.LdcI41, nil),
			in(1, cil.Jmp, foo)),
		"merge depth": def([]string{"System.Boolean"}, "", nil, nil,
			in(0, cil.Ldarg0, nil),
			in(1, cil.BrtrueS, cil.BranchTarget(5)),
			in(3, cil.LdcI41, nil),
			in(4, cil.Nop, nil),
			in(5, cil.Ret, nil)),
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := construct(d, logger())
			if !ir.IsInvariant(err) {
				t.Errorf("expected an invariant error, got %v", err)
			}
		})
	}
}

func TestThrowLeavesStack(t *testing.T) {
	ctor := &cil.MethodRef{DeclaringType: "System.Exception", Name: ".ctor", HasThis: true}
	m, _ := mustConstruct(t, def(nil, "", nil, nil,
		in(0, cil.LdcI41, nil),
		in(1, cil.Newobj, ctor),
		in(6, cil.Throw, nil)))
	throw := m.EntryBlock().Last()
	if throw.Code() != cil.Throw || throw.Depth != 2 {
		t.Fatalf("expected throw at depth 2, got %s at depth %d", throw, throw.Depth)
	}
	checkNameCounts(t, m)
}

func TestNaming(t *testing.T) {
	n := NewNaming("m0")
	got := []string{n.Stack(0), n.Stack(0), n.Var(0), n.Stack(1), n.Fresh(ir.KindVarPhi, 0), n.Fresh(ir.KindStackPhi, 0)}
	want := []string{"m0_s0_0", "m0_s0_1", "m0_v0_0", "m0_s1_0", "m0_v0_1", "m0_s0_2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected names (-want +got):\n%s", diff)
	}
}
