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

// Package stats counts what the analysis sees and does: instruction frequencies before and after
// normalization, outcomes per method, joins placed by the SSA construction and loops in the control flow
// graphs. Counters are VictoriaMetrics counters and can be written in the Prometheus text format.
package stats

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
	"github.com/awslabs/ar-cil-tools/analysis/stackssa"
	"github.com/awslabs/ar-cil-tools/internal/funcutil"
	"github.com/awslabs/ar-cil-tools/internal/graphutil"
)

// Phases of the instruction counters
const (
	PhaseDecoded    = "decoded"
	PhaseNormalized = "normalized"
)

// Outcomes of the method counters
const (
	OutcomeAnalyzed    = "analyzed"
	OutcomeUnsupported = "unsupported"
	OutcomeInvariant   = "invariant"
	OutcomeFailed      = "failed"
)

// MaxElementaryCycles bounds the enumeration of elementary cycles of a single method
const MaxElementaryCycles = 1024

// Counters holds the counters of a run. It is safe for concurrent use.
type Counters struct {
	set *metrics.Set
}

// New returns a new set of counters, independent of any other set
func New() *Counters {
	return &Counters{set: metrics.NewSet()}
}

func (c *Counters) counter(name string) *metrics.Counter {
	return c.set.GetOrCreateCounter(name)
}

// Get returns the value of the counter with the full name given, e.g. `cil_methods_total{outcome="analyzed"}`
func (c *Counters) Get(name string) uint64 {
	return c.counter(name).Get()
}

// RecordInstructions counts the instruction nodes of the method per opcode, under the given phase
func (c *Counters) RecordInstructions(m *ir.Method, phase string) {
	for _, b := range m.Blocks() {
		for _, n := range b.Nodes {
			if n.IsPhi() {
				continue
			}
			c.counter(fmt.Sprintf(`cil_instructions_total{phase=%q,opcode=%q}`, phase, n.Code().String())).Inc()
		}
	}
}

// RecordMethod counts a method with its outcome
func (c *Counters) RecordMethod(outcome string) {
	c.counter(fmt.Sprintf(`cil_methods_total{outcome=%q}`, outcome)).Inc()
}

// RecordPasses adds the number of nodes rewritten by each normalization pass
func (c *Counters) RecordPasses(rewrites map[string]int) {
	for pass, n := range rewrites {
		c.counter(fmt.Sprintf(`cil_normalization_rewrites_total{pass=%q}`, pass)).Add(n)
	}
}

// RecordSSA adds the join counts of one construction
func (c *Counters) RecordSSA(s stackssa.Summary) {
	c.counter(`cil_joins_total{kind="stack"}`).Add(s.StackJoins)
	c.counter(`cil_joins_total{kind="var"}`).Add(s.VarJoins)
	c.counter(`cil_joins_pruned_total`).Add(s.Pruned)
	c.counter(`cil_join_chain_links_total`).Add(s.ChainLinks)
}

// RecordFacts adds the number of facts emitted for one method
func (c *Counters) RecordFacts(n int) {
	c.counter(`cil_facts_total`).Add(n)
}

// RecordLoops counts the loops of the method's graph: the strongly connected components that contain a cycle,
// and the elementary cycles (bounded by MaxElementaryCycles per method). It returns the number of loops.
func (c *Counters) RecordLoops(m *ir.Method) int {
	g := m.Digraph(nil)
	loops := len(graphutil.CyclicComponents(g.Keys, func(id int64) []int64 {
		return funcutil.SetToOrderedSlice(g.Edges[id])
	}))
	cycles := len(graphutil.FindElementaryCycles(g, MaxElementaryCycles))
	for _, id := range g.Keys {
		if g.Edges[id][id] {
			cycles++
		}
	}
	c.counter(`cil_loops_total`).Add(loops)
	c.counter(`cil_elementary_cycles_total`).Add(cycles)
	return loops
}

// WritePrometheus writes all the counters in the Prometheus text exposition format, sorted by name
func (c *Counters) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}
