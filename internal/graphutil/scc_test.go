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

package graphutil

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
)

type intGraph map[int][]int

// checkComponents returns an error if the components do not partition the graph into strongly connected sets in
// reverse topological order
func checkComponents(m intGraph, sccs [][]int) error {
	covered := map[int]bool{}
	for i, scc := range sccs {
		for _, x := range scc {
			if covered[x] {
				return fmt.Errorf("repeated node %v\nin:%v", x, m)
			}
			covered[x] = true
			for _, y := range scc {
				if x != y && !reaches(m, x, y) {
					return fmt.Errorf("%v does not reach %v in the same component\nin:%v", x, y, m)
				}
			}
			for j := i + 1; j < len(sccs); j++ {
				for _, y := range sccs[j] {
					if reaches(m, x, y) {
						return fmt.Errorf("node %v appears before reachable node %v\nin:%v", x, y, m)
					}
				}
			}
		}
	}
	for n := range m {
		if !covered[n] {
			return fmt.Errorf("missing node %v\nin:%v", n, m)
		}
	}
	return nil
}

func TestStronglyConnectedComponents(t *testing.T) {
	for i, m := range []intGraph{
		{0: {0}},
		{0: {}},
		{0: {0, 1}, 1: {}},
		{0: {1, 2}, 1: {3}, 2: {1}, 3: {}},
		{0: {1, 2}, 1: {3}, 2: {1, 0}, 3: {}},
		{0: {3, 1}, 1: {0}, 2: {1}, 3: {3}},
	} {
		if err := checkComponents(m, StronglyConnectedComponents(nodesOf(m), succFunc(m))); err != nil {
			t.Errorf("graph %d: %v", i, err)
		}
	}
	for i := 0; i < 100; i++ {
		m := randomGraph(10, 68348438+int64(i))
		if err := checkComponents(m, StronglyConnectedComponents(nodesOf(m), succFunc(m))); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 10; i++ {
		m := randomGraph(50, 184618+int64(i))
		if err := checkComponents(m, StronglyConnectedComponents(nodesOf(m), succFunc(m))); err != nil {
			t.Fatal(err)
		}
	}
}

func TestStronglyConnectedComponentsLongChain(t *testing.T) {
	const n = 200000
	m := intGraph{}
	for i := 0; i < n-1; i++ {
		m[i] = []int{i + 1}
	}
	m[n-1] = []int{0}
	sccs := StronglyConnectedComponents([]int{0}, succFunc(m))
	if len(sccs) != 1 || len(sccs[0]) != n {
		t.Errorf("expected a single component of %d nodes, got %d components", n, len(sccs))
	}
}

func TestCyclicComponents(t *testing.T) {
	m := intGraph{0: {1}, 1: {2, 4}, 2: {1}, 3: {3}, 4: {}}
	got := CyclicComponents(nodesOf(m), succFunc(m))
	if len(got) != 2 {
		t.Fatalf("expected 2 cyclic components, got %v", got)
	}
	sizes := []int{len(got[0]), len(got[1])}
	sort.Ints(sizes)
	if sizes[0] != 1 || sizes[1] != 2 {
		t.Errorf("expected the self loop and the 1-2 cycle, got %v", got)
	}
}

func randomGraph(size int, seed int64) intGraph {
	m := intGraph{}
	r := rand.New(rand.NewSource(seed))
	for i := 0; i < size; i++ {
		m[i] = []int{}
		for j := 0; j < 3; j++ {
			if r.Float32() < 0.7 {
				m[i] = append(m[i], int(r.Int63()%int64(size)))
			}
		}
	}
	return m
}

// reaches returns true if y is reachable from x
func reaches(m intGraph, x, y int) bool {
	visited := map[int]bool{}
	stack := []int{x}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		stack = append(stack, m[n]...)
	}
	return visited[y]
}

func nodesOf(m intGraph) []int {
	var ks []int
	for k := range m {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}

func succFunc(m intGraph) func(int) []int {
	return func(k int) []int { return m[k] }
}
