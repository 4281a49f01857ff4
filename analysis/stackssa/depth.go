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
	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
)

// ProvisionalDepthAnnotation is set on filter blocks, whose entry depth of 1 is assumed rather than verified
const ProvisionalDepthAnnotation = "filter-depth-provisional"

const stageDepth = "depth simulation"

// depths records the abstract stack depth at the entry and the exit of every visited block
type depths struct {
	in  map[ir.BlockID]int
	out map[ir.BlockID]int
}

// depthAnalysis simulates the abstract stack depth of a method. The entry depth of a block is the exit depth of
// the first visited predecessor; every further predecessor must agree with it.
type depthAnalysis struct {
	m       *ir.Method
	logger  *config.LogGroup
	depths  depths
	visited map[ir.BlockID]bool
	cur     int
	err     error
}

var _ ir.IterativeAnalysis = (*depthAnalysis)(nil)

// simulateDepth sets the Depth of every node of the method and returns the entry and exit depth of its blocks
func simulateDepth(m *ir.Method, logger *config.LogGroup) (depths, error) {
	a := &depthAnalysis{
		m:       m,
		logger:  logger,
		depths:  depths{in: map[ir.BlockID]int{m.Entry: 0}, out: map[ir.BlockID]int{}},
		visited: map[ir.BlockID]bool{},
	}
	ir.RunForwardIterative(a, m)
	if a.err != nil {
		return a.depths, a.err
	}
	for _, b := range m.Blocks() {
		if !a.visited[b.ID] {
			return a.depths, ir.Invariant(m.Name(), stageDepth, "block %s is not reachable from the entry", b.ID)
		}
		if isExit(b) && a.depths.out[b.ID] != 0 {
			return a.depths, ir.Invariant(m.Name(), stageDepth, "block %s exits with stack depth %d",
				b.ID, a.depths.out[b.ID])
		}
	}
	return a.depths, nil
}

// isExit returns true for blocks leaving the method normally: returning blocks and blocks without targets.
// Thrown exceptions discard the stack, so blocks ending with a throw are not exits.
func isExit(b *ir.Block) bool {
	last := b.Last()
	if last == nil {
		return len(b.Targets) == 0
	}
	switch last.Flow() {
	case cil.FlowThrow:
		return false
	case cil.FlowReturn:
		return true
	}
	return len(b.Targets) == 0
}

// clearsStack returns true for the opcodes after which the evaluation stack is empty
func clearsStack(code cil.Code) bool {
	switch code {
	case cil.Leave, cil.LeaveS, cil.Endfinally:
		return true
	}
	return false
}

func (a *depthAnalysis) NewBlock(b *ir.Block) {
	a.visited[b.ID] = true
	if b.Handler != nil {
		a.depths.in[b.ID] = b.Handler.EntryDepth()
		if b.Handler.Kind == cil.HandlerFilter {
			if _, ok := b.Annotation(ProvisionalDepthAnnotation); !ok {
				a.logger.Warnf("%s: assuming stack depth 1 at the start of filter block %s\n", a.m.Name(), b.ID)
				b.SetAnnotation(ProvisionalDepthAnnotation, true)
			}
		}
	}
	a.cur = a.depths.in[b.ID]
}

func (a *depthAnalysis) VisitNode(b *ir.Block, n *ir.Node) {
	if a.err != nil {
		return
	}
	n.Depth = a.cur
	if n.IsPhi() {
		return
	}
	if a.cur < n.Pops {
		a.err = ir.Invariant(a.m.Name(), stageDepth, "stack underflow in %s at %s: %s pops %d values at depth %d",
			b.ID, cil.OffsetLabel(n.Offset()), n, n.Pops, a.cur)
		return
	}
	a.cur = a.cur - n.Pops + n.Pushes
	if clearsStack(n.Code()) {
		a.cur = 0
	}
}

func (a *depthAnalysis) ChangedOnEndBlock(b *ir.Block) bool {
	if a.err != nil {
		return false
	}
	a.depths.out[b.ID] = a.cur
	changed := false
	for _, t := range b.Targets {
		target := a.m.Block(t)
		if target == nil {
			continue
		}
		if !a.visited[t] {
			changed = true
		}
		if target.Handler != nil {
			// exception edges: the runtime resets the stack of the handler
			continue
		}
		known, ok := a.depths.in[t]
		if !ok {
			a.depths.in[t] = a.cur
			changed = true
		} else if known != a.cur {
			a.err = ir.Invariant(a.m.Name(), stageDepth, "inconsistent stack depth at the entry of %s: %d from %s, %d before",
				t, a.cur, b.ID, known)
			return false
		}
	}
	return changed
}
