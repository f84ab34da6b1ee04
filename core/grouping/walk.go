/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Tabula Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package grouping

import "github.com/nyneos/tabula/core/records"

// Visit describes one node reached by Walk.
type Visit struct {
	Node  Node
	Path  string // "" for the root
	Value string // group value of this node, "" for the root
	Depth int    // 0 for the root
}

// Walk visits n and its descendants depth-first in render order. Returning
// false from fn skips the node's children.
func Walk(n Node, fn func(v Visit) bool) {
	walk(Visit{Node: n}, fn)
}

func walk(v Visit, fn func(v Visit) bool) {
	if !fn(v) {
		return
	}
	b, ok := v.Node.(*Branch)
	if !ok {
		return
	}
	b.Children.Range(func(value string, child Node) bool {
		walk(Visit{
			Node:  child,
			Path:  ChildPath(v.Path, value),
			Value: value,
			Depth: v.Depth + 1,
		}, fn)
		return true
	})
}

// PathLeaf is a leaf with the path that reaches it.
type PathLeaf struct {
	Path string
	Leaf *Leaf
}

// Leaves returns every leaf in render order.
func Leaves(n Node) []PathLeaf {
	var out []PathLeaf
	Walk(n, func(v Visit) bool {
		if l, ok := v.Node.(*Leaf); ok {
			out = append(out, PathLeaf{Path: v.Path, Leaf: l})
		}
		return true
	})
	return out
}

// Rows flattens the tree into its rows in render order.
func Rows(n Node) []records.Record {
	out := make([]records.Record, 0, n.Count())
	for _, pl := range Leaves(n) {
		out = append(out, pl.Leaf.Rows...)
	}
	return out
}

// Find returns the node at path. The root has path "".
func Find(n Node, path string) (Node, bool) {
	var found Node
	Walk(n, func(v Visit) bool {
		if found != nil {
			return false
		}
		if v.Path == path {
			found = v.Node
			return false
		}
		return v.Path == "" || hasPrefixPath(path, v.Path)
	})
	return found, found != nil
}

func hasPrefixPath(path, prefix string) bool {
	return len(path) > len(prefix)+len(PathSeparator) &&
		path[:len(prefix)] == prefix &&
		path[len(prefix):len(prefix)+len(PathSeparator)] == PathSeparator
}

// Paths returns the path of every branch child, i.e. every expandable group.
func Paths(n Node) []string {
	var out []string
	Walk(n, func(v Visit) bool {
		if v.Path != "" {
			out = append(out, v.Path)
		}
		return true
	})
	return out
}
