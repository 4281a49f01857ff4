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

// Package normalize rewrites the nodes of an analysis graph into canonical shapes: indexed argument and variable
// accesses, wide constants, a single conditional branch primitive and no multi-way dispatch. Every pass keeps the
// aggregate number of popped and pushed values of the nodes it replaces, and running the passes on their own
// output rewrites nothing.
package normalize

import (
	"fmt"

	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
)

// A Pass is one rewrite of the analysis graph. Run returns the number of nodes rewritten.
type Pass struct {
	Name string
	Run  func(m *ir.Method) (int, error)
}

// DefaultPasses returns the passes in the order they must run
func DefaultPasses() []Pass {
	return []Pass{
		{Name: config.PassFoldArgVar, Run: FoldArgVar},
		{Name: config.PassWidenConstants, Run: WidenConstants},
		{Name: config.PassDecomposeBranch, Run: DecomposeBranches},
		{Name: config.PassDecomposeSwitch, Run: DecomposeSwitches},
	}
}

// EnabledPasses returns the default passes that are not disabled in the config
func EnabledPasses(c *config.Config) []Pass {
	var passes []Pass
	for _, p := range DefaultPasses() {
		if c.PassEnabled(p.Name) {
			passes = append(passes, p)
		}
	}
	return passes
}

// Run runs the passes on the method in order, and returns the number of nodes rewritten by each pass
func Run(m *ir.Method, logger *config.LogGroup, passes ...Pass) (map[string]int, error) {
	counts := make(map[string]int, len(passes))
	for _, p := range passes {
		n, err := p.Run(m)
		if err != nil {
			return counts, fmt.Errorf("normalization pass %s: %w", p.Name, err)
		}
		counts[p.Name] += n
		logger.Tracef("pass %s rewrote %d nodes in %s\n", p.Name, n, m.Name())
	}
	return counts, nil
}

// nodeRewrite returns the nodes replacing n, and false if n is left untouched
type nodeRewrite func(m *ir.Method, n *ir.Node) ([]*ir.Node, bool, error)

// rewriteNodes applies the rewrite to every instruction node of the method. The nodes returned replace the node
// at the same position; edges are not modified.
func rewriteNodes(m *ir.Method, f nodeRewrite) (int, error) {
	count := 0
	for _, b := range m.Blocks() {
		for i := 0; i < len(b.Nodes); {
			n := b.Nodes[i]
			if n.IsPhi() {
				i++
				continue
			}
			res, changed, err := f(m, n)
			if err != nil {
				return count, ir.Unsupported(m.Name(), n.Offset(), "%v", err)
			}
			if !changed {
				i++
				continue
			}
			i = b.ReplaceNode(i, res...)
			count++
		}
	}
	return count, nil
}

// derive builds the nodes replacing n, all sharing the decoded instruction of n
func derive(m *ir.Method, n *ir.Node, ops ...op) ([]*ir.Node, error) {
	res := make([]*ir.Node, 0, len(ops))
	for _, o := range ops {
		d, err := n.Derive(o.code, o.operand, m.Ref())
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, nil
}
