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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTreeWalk(t *testing.T) {
	root := NewTree("a")
	b := root.AddChild("b")
	b.AddChild("c")
	root.AddChild("d")

	var got []string
	var depths []int
	err := root.Walk(func(n *Tree[string], depth int) error {
		got = append(got, n.Label)
		depths = append(depths, depth)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, got); diff != "" {
		t.Errorf("unexpected preorder (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 1}, depths); diff != "" {
		t.Errorf("unexpected depths (-want +got):\n%s", diff)
	}

	stop := errors.New("stop")
	n := 0
	if err := root.Walk(func(*Tree[string], int) error { n++; return stop }); err != stop || n != 1 {
		t.Errorf("walk should stop at the first error, got %v after %d nodes", err, n)
	}
}

func TestAddChild(t *testing.T) {
	root := NewTree(0)
	c := root.AddChild(1).AddChild(2)
	if c.Parent == nil || c.Parent.Parent != root || root.Parent != nil {
		t.Fatalf("unexpected parent links")
	}
	if diff := cmp.Diff([]int{2}, []int{root.Children[0].Children[0].Label}); diff != "" {
		t.Errorf("unexpected child (-want +got):\n%s", diff)
	}
}
