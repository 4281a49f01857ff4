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

package rendering

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/ar-cil-tools/analysis/cfg"
	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/analysis/dominance"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
)

func in(offset int, code cil.Code, operand any) cil.Instruction {
	return cil.Instruction{Offset: offset, Code: code, Operand: operand}
}

// loop builds the graph B0 -> B7, B3 -> B7, B7 -> {B10, B3}
func loop(t *testing.T) *ir.Method {
	logger := config.NewLogGroup(config.NewDefault())
	logger.SetAllOutput(&bytes.Buffer{})
	m, err := cfg.Build(&cil.MethodDef{
		Ref: &cil.MethodRef{DeclaringType: "Sample.Program", Name: "Count"},
		Body: &cil.MethodBody{
			Locals: []string{"System.Int32"},
			Instructions: []cil.Instruction{
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
				in(13, cil.Ret, nil),
			},
		},
	}, logger)
	if err != nil {
		t.Fatalf("failed to build the graph: %v", err)
	}
	return m
}

func TestWriteGraphviz(t *testing.T) {
	m := loop(t)
	var buf bytes.Buffer
	if err := WriteGraphviz(m, false, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"// " + m.Name(),
		"digraph " + m.ID,
		"0 [label=B0];",
		"3 [label=B10];",
		"0 -> 2;",
		"1 -> 2;",
		"2 -> 1;",
		"2 -> 3;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestWriteGraphvizWithNodes(t *testing.T) {
	m := loop(t)
	var buf bytes.Buffer
	if err := WriteGraphviz(m, true, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `label="B10\nIL_000d: ret\n"`) {
		t.Errorf("block labels should list the instructions:\n%s", buf.String())
	}
}

func TestWriteDominatorTree(t *testing.T) {
	m := loop(t)
	var buf bytes.Buffer
	if err := WriteDominatorTree(m, dominance.Compute(m), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		m.Name(),
		"B0 df=[]",
		"  B7 df=[B7]",
		"    B3 df=[B7]",
		"    B10 df=[]",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got:\n%s", len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestGraphvizToFile(t *testing.T) {
	m := loop(t)
	filename := filepath.Join(t.TempDir(), "graph.dot")
	if err := GraphvizToFile([]*ir.Method{m, m}, false, filename); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("could not read output: %v", err)
	}
	if n := strings.Count(string(b), "digraph"); n != 2 {
		t.Errorf("expected 2 graphs, got %d", n)
	}
}
