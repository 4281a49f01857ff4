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

// Package rendering writes analysis graphs in human readable forms: Graphviz DOT for the block graphs, an
// indented dominator tree, and the textual form of methods.
package rendering

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/ar-cil-tools/analysis/dominance"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
	"github.com/awslabs/ar-cil-tools/internal/graphutil"
	"gonum.org/v1/gonum/graph/encoding/dot"
)

// blockLabel returns the label of a block node: the block id followed by one line per node, left-aligned
func blockLabel(b *ir.Block) string {
	var sb strings.Builder
	sb.WriteString(b.ID.String())
	if b.Handler != nil {
		fmt.Fprintf(&sb, " (%s)", b.Handler.Kind)
	}
	sb.WriteString("\n")
	for _, n := range b.Nodes {
		if n.Instr != nil && !n.Overridden() {
			sb.WriteString(n.Instr.Label() + ": ")
		}
		sb.WriteString(n.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteGraphviz writes a graphviz representation of the block graph of the method to w. When withNodes is
// false, blocks are only labeled with their id.
func WriteGraphviz(m *ir.Method, withNodes bool, w io.Writer) error {
	var label func(*ir.Block) string
	if withNodes {
		label = blockLabel
	}
	b, err := dot.Marshal(m.Digraph(label), m.ID, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode the graph of %s: %w", m.Name(), err)
	}
	if _, err := fmt.Fprintf(w, "// %s\n%s\n", m.Name(), b); err != nil {
		return fmt.Errorf("error while writing graph: %w", err)
	}
	return nil
}

// GraphvizToFile writes the graphviz representation of the block graphs of the methods in filename
func GraphvizToFile(methods []*ir.Method, withNodes bool, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	for _, m := range methods {
		if err := WriteGraphviz(m, withNodes, w); err != nil {
			return err
		}
	}
	return nil
}

// WriteDominatorTree writes the dominator tree of the method, one block per line, indented by depth. Each line
// ends with the dominance frontier of the block.
func WriteDominatorTree(m *ir.Method, info *dominance.Info, w io.Writer) error {
	tree := info.Tree()
	if tree == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s\n", m.Name()); err != nil {
		return err
	}
	return tree.Walk(func(t *graphutil.Tree[ir.BlockID], depth int) error {
		_, err := fmt.Fprintf(w, "%s%s df=%v\n", strings.Repeat("  ", depth), t.Label, info.Frontier(t.Label))
		return err
	})
}

// OutputMethods writes the textual form of each method in dirName, one file per type
func OutputMethods(mod *ir.Module, dirName string) error {
	if err := os.MkdirAll(dirName, 0700); err != nil {
		return fmt.Errorf("could not create directory %s: %v", dirName, err)
	}
	for _, t := range mod.Types {
		if len(t.Methods) == 0 {
			continue
		}
		filename := filepath.Join(dirName, strings.ReplaceAll(t.Name(), "/", "_")+".ir")
		if err := typeToFile(t, filename); err != nil {
			return err
		}
	}
	return nil
}

func typeToFile(t *ir.Type, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file %s: %w", filename, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	defer w.Flush()
	for _, m := range t.Methods {
		if _, err := fmt.Fprintf(w, "%s\n", m); err != nil {
			return err
		}
	}
	return nil
}
