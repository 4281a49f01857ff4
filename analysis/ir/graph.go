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

package ir

import "github.com/awslabs/ar-cil-tools/internal/graphutil"

// Digraph returns a copy of the block graph of the method that implements the Gonum graph interfaces. Node i
// of the graph is the i-th live block in layout order. The label function may be nil, in which case nodes are
// labeled with the block ids.
func (m *Method) Digraph(label func(b *Block) string) graphutil.Digraph {
	blocks := m.Blocks()
	index := make(map[BlockID]int64, len(blocks))
	labels := make([]string, len(blocks))
	for i, b := range blocks {
		index[b.ID] = int64(i)
		if label != nil {
			labels[i] = label(b)
		} else {
			labels[i] = b.ID.String()
		}
	}
	return graphutil.NewDigraph(labels, func(i int64) []int64 {
		var succs []int64
		for _, t := range blocks[i].Targets {
			if j, ok := index[t]; ok {
				succs = append(succs, j)
			}
		}
		return succs
	})
}
