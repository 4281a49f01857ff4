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

package cfg

import (
	"testing"

	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
	"github.com/google/go-cmp/cmp"
)

func in(offset int, code cil.Code, operand any) cil.Instruction {
	return cil.Instruction{Offset: offset, Code: code, Operand: operand}
}

func def(params []string, ret string, handlers []cil.ExceptionHandler, instrs ...cil.Instruction) *cil.MethodDef {
	return &cil.MethodDef{
		Ref: &cil.MethodRef{DeclaringType: "Sample.Program", Name: "Test", Params: params, ReturnType: ret},
		Body: &cil.MethodBody{
			Instructions: instrs,
			Handlers:     handlers,
			Locals:       []string{"System.Int32"},
		},
	}
}

func build(t *testing.T, d *cil.MethodDef) *ir.Method {
	t.Helper()
	m, err := Build(d, config.NewLogGroup(config.NewDefault()))
	if err != nil {
		t.Fatalf("failed to build cfg: %v", err)
	}
	return m
}

func ids(m *ir.Method) []ir.BlockID {
	var res []ir.BlockID
	for _, b := range m.Blocks() {
		res = append(res, b.ID)
	}
	return res
}

func codes(b *ir.Block) []string {
	var res []string
	for _, n := range b.Nodes {
		res = append(res, n.Code().String())
	}
	return res
}

func TestStraightLine(t *testing.T) {
	m := build(t, def(nil, "", nil,
		in(0, cil.LdcI41, nil),
		in(1, cil.LdcI42, nil),
		in(2, cil.Add, nil),
		in(3, cil.Pop, nil),
		in(4, cil.Ret, nil)))
	if m.NumBlocks() != 1 {
		t.Fatalf("expected a single block, got:\n%s", m)
	}
	if diff := cmp.Diff([]string{"ldc.i4.1", "ldc.i4.2", "add", "pop", "ret"}, codes(m.EntryBlock())); diff != "" {
		t.Errorf("unexpected nodes (-want +got):\n%s", diff)
	}
}

func TestDiamond(t *testing.T) {
	m := build(t, def([]string{"System.Int32"}, "System.Int32", nil,
		in(0, cil.Ldarg0, nil),
		in(1, cil.BrtrueS, cil.BranchTarget(7)),
		in(3, cil.LdcI41, nil),
		in(4, cil.Stloc0, nil),
		in(5, cil.BrS, cil.BranchTarget(9)),
		in(7, cil.LdcI42, nil),
		in(8, cil.Stloc0, nil),
		in(9, cil.Ldloc0, nil),
		in(10, cil.Ret, nil)))
	if diff := cmp.Diff([]ir.BlockID{0, 2, 5, 7}, ids(m)); diff != "" {
		t.Fatalf("unexpected blocks (-want +got):\n%s\n%s", diff, m)
	}
	entry := m.EntryBlock()
	if diff := cmp.Diff([]ir.BlockID{2, 5}, entry.Targets); diff != "" {
		t.Errorf("fallthrough must come before the branch destination (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ldc.i4.1", "stloc.0", "br.s"}, codes(m.Block(2))); diff != "" {
		t.Errorf("unexpected then block (-want +got):\n%s", diff)
	}
	merge := m.Block(7)
	if diff := cmp.Diff([]ir.BlockID{2, 5}, merge.Sources); diff != "" {
		t.Errorf("unexpected merge sources (-want +got):\n%s", diff)
	}
}

func TestLoop(t *testing.T) {
	m := build(t, def(nil, "", nil,
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
	if diff := cmp.Diff([]ir.BlockID{0, 3, 7, 10}, ids(m)); diff != "" {
		t.Fatalf("unexpected blocks (-want +got):\n%s\n%s", diff, m)
	}
	header := m.Block(7)
	if diff := cmp.Diff([]ir.BlockID{10, 3}, header.Targets); diff != "" {
		t.Errorf("unexpected loop header targets (-want +got):\n%s", diff)
	}
	if !header.HasSource(3) || !header.HasSource(0) {
		t.Errorf("loop header should have the entry and the body as sources")
	}
}

func TestDeadCode(t *testing.T) {
	m := build(t, def(nil, "", nil,
		in(0, cil.Ret, nil),
		in(1, cil.Nop, nil),
		in(2, cil.Nop, nil),
		in(3, cil.Ret, nil)))
	if diff := cmp.Diff([]ir.BlockID{0}, ids(m)); diff != "" {
		t.Errorf("dead blocks should be removed (-want +got):\n%s", diff)
	}
}

func TestTryCatch(t *testing.T) {
	handlers := []cil.ExceptionHandler{{
		Kind: cil.HandlerCatch, TryStart: 0, TryEnd: 5, HandlerStart: 5, HandlerEnd: 8, FilterStart: -1,
		CatchType: "System.Exception",
	}}
	m := build(t, def(nil, "", handlers,
		in(0, cil.Nop, nil),
		in(1, cil.LdcI41, nil),
		in(2, cil.Pop, nil),
		in(3, cil.LeaveS, cil.BranchTarget(8)),
		in(5, cil.Pop, nil),
		in(6, cil.LeaveS, cil.BranchTarget(8)),
		in(8, cil.Ret, nil)))
	if diff := cmp.Diff([]ir.BlockID{0, 1, 2, 3, 4, 6}, ids(m)); diff != "" {
		t.Fatalf("unexpected blocks (-want +got):\n%s\n%s", diff, m)
	}
	handler := m.Block(4)
	if !handler.IsHandlerStart() || handler.Handler.CatchType != "System.Exception" {
		t.Errorf("handler start not marked")
	}
	if diff := cmp.Diff([]ir.BlockID{0, 1, 2, 3}, handler.Sources); diff != "" {
		t.Errorf("every protected instruction should reach the handler (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"pop", "leave.s"}, codes(handler)); diff != "" {
		t.Errorf("unexpected handler block (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ir.BlockID{6, 4}, m.Block(3).Targets); diff != "" {
		t.Errorf("exception edges come after normal edges (-want +got):\n%s", diff)
	}
}

func TestSwitchTargets(t *testing.T) {
	m := build(t, def([]string{"System.Int32"}, "", nil,
		in(0, cil.Ldarg0, nil),
		in(1, cil.Switch, cil.SwitchTargets{15, 16, 15}),
		in(14, cil.Ret, nil),
		in(15, cil.Ret, nil),
		in(16, cil.Ret, nil)))
	if diff := cmp.Diff([]ir.BlockID{2, 3, 4}, m.EntryBlock().Targets); diff != "" {
		t.Errorf("switch targets should be the fallthrough then the distinct cases (-want +got):\n%s", diff)
	}
}

func TestJmpEndsMethod(t *testing.T) {
	target := &cil.MethodRef{DeclaringType: "Sample.Program", Name: "Other", Params: []string{"System.Int32"}}
	m := build(t, def([]string{"System.Int32"}, "", nil,
		in(0, cil.Ldarg0, nil),
		in(1, cil.Brtrue, cil.BranchTarget(11)),
		in(6, cil.Jmp, target),
		in(11, cil.Ret, nil)))
	jmp := m.Block(2)
	if diff := cmp.Diff([]string{"jmp"}, codes(jmp)); diff != "" {
		t.Fatalf("unexpected jmp block (-want +got):\n%s\n%s", diff, m)
	}
	if len(jmp.Targets) != 0 {
		t.Errorf("jmp should have no successor, got %v", jmp.Targets)
	}
	if m.Block(3).HasSource(2) {
		t.Errorf("jmp should not fall through to the next instruction")
	}

	m = build(t, def(nil, "", nil, in(0, cil.Jmp, target)))
	if m.NumBlocks() != 1 || len(m.EntryBlock().Targets) != 0 {
		t.Errorf("a body ending with jmp should be a single exit block, got:\n%s", m)
	}
}

func TestUnsupported(t *testing.T) {
	badHandler := []cil.ExceptionHandler{{Kind: cil.HandlerFinally, TryStart: 0, TryEnd: 1, HandlerStart: 7,
		HandlerEnd: 8}}
	tests := map[string]*cil.MethodDef{
		"bad branch target": def(nil, "", nil, in(0, cil.BrS, cil.BranchTarget(99)), in(2, cil.Ret, nil)),
		"bad operand":       def(nil, "", nil, in(0, cil.LdcI4S, "ten"), in(2, cil.Ret, nil)),
		"falls off the end": def(nil, "", nil, in(0, cil.Nop, nil)),
		"no body":           {Ref: &cil.MethodRef{DeclaringType: "A", Name: "F"}},
		"bad handler":       def(nil, "", badHandler, in(0, cil.Ret, nil)),
	}
	for name, d := range tests {
		_, err := Build(d, config.NewLogGroup(config.NewDefault()))
		if !ir.IsUnsupported(err) {
			t.Errorf("%s: expected an unsupported construct error, got %v", name, err)
		}
	}
}
