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

// StronglyConnectedComponents computes the strongly connected components (SCC) of the graph given by nodes and
// successors, with Tarjan's algorithm. The visit uses an explicit stack, so long chains of blocks do not grow
// the goroutine stack.
// The order within an SCC is arbitrary. SCCs are returned in reverse topological order: the components
// reachable from an SCC appear before it.
func StronglyConnectedComponents[T comparable](nodes []T, successors func(T) []T) [][]T {
	type frame struct {
		node  T
		succs []T
		next  int
	}
	var (
		sccs      [][]T
		stack     []T
		onStack   = map[T]bool{}
		index     = map[T]int{}
		lowlink   = map[T]int{}
		nextIndex = 0
		frames    []*frame
	)

	push := func(v T) {
		index[v] = nextIndex
		lowlink[v] = nextIndex
		nextIndex++
		stack = append(stack, v)
		onStack[v] = true
		frames = append(frames, &frame{node: v, succs: successors(v)})
	}

	for _, root := range nodes {
		if _, ok := index[root]; ok {
			continue
		}
		push(root)
		for len(frames) > 0 {
			f := frames[len(frames)-1]
			if f.next < len(f.succs) {
				w := f.succs[f.next]
				f.next++
				if _, ok := index[w]; !ok {
					push(w)
				} else if onStack[w] && index[w] < lowlink[f.node] {
					lowlink[f.node] = index[w]
				}
				continue
			}
			frames = frames[:len(frames)-1]
			v := f.node
			if len(frames) > 0 {
				if p := frames[len(frames)-1].node; lowlink[v] < lowlink[p] {
					lowlink[p] = lowlink[v]
				}
			}
			if lowlink[v] != index[v] {
				continue
			}
			var scc []T
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}
	return sccs
}

// CyclicComponents returns the strongly connected components that contain a cycle: the components with more
// than one node, and the single nodes with an edge to themselves.
func CyclicComponents[T comparable](nodes []T, successors func(T) []T) [][]T {
	var res [][]T
	for _, scc := range StronglyConnectedComponents(nodes, successors) {
		if len(scc) > 1 || hasSelfLoop(scc[0], successors) {
			res = append(res, scc)
		}
	}
	return res
}

func hasSelfLoop[T comparable](v T, successors func(T) []T) bool {
	for _, w := range successors(v) {
		if w == v {
			return true
		}
	}
	return false
}
