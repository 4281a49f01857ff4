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
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
)

// Digraph is a directed graph over the node ids 0..n-1, to work with existing graph libraries. It implements
// graph.Iterator and Gonum's graph.Directed.
type Digraph struct {
	// The order of the graph
	order int

	// IDMap maps from node IDs to nodes
	IDMap map[int64]Node

	// Keys are all the node IDs, sorted
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between IDMap[x] and IDMap[y]
	Edges map[int64]map[int64]bool
}

// NewDigraph returns a graph with one node per label, where node i has label labels[i], and the edges
// returned by successors
func NewDigraph(labels []string, successors func(int64) []int64) Digraph {
	n := len(labels)
	idmap := make(map[int64]Node, n)
	edges := make(map[int64]map[int64]bool, n)
	keys := make([]int64, n)
	for i, label := range labels {
		id := int64(i)
		keys[i] = id
		idmap[id] = Node{Id: id, Label: label}
		edges[id] = map[int64]bool{}
	}
	for _, id := range keys {
		for _, succ := range successors(id) {
			if _, ok := idmap[succ]; ok {
				edges[id][succ] = true
			}
		}
	}
	return Digraph{
		order: n,
		IDMap: idmap,
		Edges: edges,
		Keys:  keys,
	}
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The subgraph's order and IDMap are the same as in origin, meaning that node indices will stay consistent
// across subgraphs.
func Subgraph(original Digraph, include []int64) Digraph {
	idmap := make(map[int64]Node, len(include))
	edges := make(map[int64]map[int64]bool, len(include))
	keys := make([]int64, len(include))

	for j, i := range include {
		keys[j] = i
		idmap[i] = original.IDMap[i]
	}

	for _, i := range include {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if _, ok := idmap[e]; ok {
				edges[i][e] = true
			}
		}
	}

	return Digraph{
		order: original.Order(),
		IDMap: original.IDMap,
		Edges: edges,
		Keys:  keys,
	}
}

// Order implements the order of the graph.Iterator interface for the Digraph
func (c Digraph) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the Digraph
func (c Digraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if _, ok := c.Edges[int64(v)]; !ok {
		return false
	}
	for _, w := range sortedKeys(c.Edges[int64(v)]) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (c Digraph) Node(id int64) graph.Node {
	n, ok := c.IDMap[id]
	if !ok {
		return nil
	}
	return n
}

// Nodes returns the set of nodes in the graph
func (c Digraph) Nodes() graph.Nodes {
	return &NodeSet{
		nodes: c.IDMap,
		ids:   append([]int64{}, c.Keys...),
		cur:   -1,
	}
}

// From returns the set of nodes reachable from the id
func (c Digraph) From(id int64) graph.Nodes {
	return &NodeSet{
		nodes: c.IDMap,
		ids:   sortedKeys(c.Edges[id]),
		cur:   -1,
	}
}

// To returns the set of nodes from which id is directly reachable
func (c Digraph) To(id int64) graph.Nodes {
	var keys []int64
	for _, k := range c.Keys {
		if c.Edges[k][id] {
			keys = append(keys, k)
		}
	}
	return &NodeSet{
		nodes: c.IDMap,
		ids:   keys,
		cur:   -1,
	}
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c Digraph) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// HasEdgeFromTo returns whether an edge exists from u to v
func (c Digraph) HasEdgeFromTo(uid, vid int64) bool {
	return c.Edges[uid][vid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c Digraph) Edge(uid, vid int64) graph.Edge {
	if c.Edges[uid][vid] {
		return Edge{from: c.IDMap[uid], to: c.IDMap[vid]}
	}
	return nil
}

func sortedKeys(m map[int64]bool) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// *************** Nodes implementation **********************

// Node is a labeled node that implements the graph.Node interface. The label is used as the node label when the
// graph is encoded.
type Node struct {
	Id    int64
	Label string
}

// ID returns the id of the node
func (n Node) ID() int64 {
	return n.Id
}

func (n Node) String() string {
	return n.Label
}

// Attributes implements encoding.Attributer. The label is quoted by the encoder when needed.
func (n Node) Attributes() []encoding.Attribute {
	if n.Label == "" {
		return nil
	}
	return []encoding.Attribute{{Key: "label", Value: n.Label}}
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	// nodes is the set of nodes in the iterator
	nodes map[int64]Node

	// ids is the set of node ids in the iterator
	ids []int64

	// cur is the current index of the iterator. The current node is nodes[ids[cur]]; the iterator starts before
	// the first node.
	cur int
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of nodes remaining in the iterator
func (ns *NodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset resets the id of the current node in the set
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node return the current node in the set
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return ns.nodes[ns.ids[ns.cur]]
}

// *************** Edge implementation **********************

// Edge implements the graph.Edge interface
type Edge struct {
	from Node
	to   Node
}

// From returns the origin of the edge
func (e Edge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e Edge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e Edge) ReversedEdge() graph.Edge {
	return Edge{from: e.to, to: e.from}
}
