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

// Package expansion tracks which rows or groups are expanded.
//
// A State holds opaque paths: a row id for row details, or a group path such
// as "BU1__USD". Row and group expansion use separate State values; nothing
// ties one namespace to the other.
package expansion

import (
	"maps"
	"slices"
)

// State is a set of expanded paths. The zero value is an empty, usable set.
// State values are copied on every transition, so a State can be shared
// between readers.
type State struct {
	paths map[string]struct{}
}

// New returns a state with the given paths expanded.
func New(paths ...string) State {
	return State{}.ExpandAll(paths)
}

// IsExpanded reports whether path is expanded.
func (s State) IsExpanded(path string) bool {
	_, ok := s.paths[path]
	return ok
}

// Toggle returns a new state with the membership of path flipped.
func (s State) Toggle(path string) State {
	next := s.clone()
	if _, ok := next.paths[path]; ok {
		delete(next.paths, path)
	} else {
		next.paths[path] = struct{}{}
	}
	return next
}

// Expand returns a new state with path expanded.
func (s State) Expand(path string) State {
	next := s.clone()
	next.paths[path] = struct{}{}
	return next
}

// Collapse returns a new state with path collapsed.
func (s State) Collapse(path string) State {
	next := s.clone()
	delete(next.paths, path)
	return next
}

// ExpandAll returns a new state with every path in paths expanded in
// addition to the current ones.
func (s State) ExpandAll(paths []string) State {
	next := s.clone()
	for _, p := range paths {
		next.paths[p] = struct{}{}
	}
	return next
}

// CollapseAll returns an empty state.
func (s State) CollapseAll() State {
	return State{paths: map[string]struct{}{}}
}

// Len returns the number of expanded paths.
func (s State) Len() int {
	return len(s.paths)
}

// Paths returns the expanded paths sorted.
func (s State) Paths() []string {
	return slices.Sorted(maps.Keys(s.paths))
}

func (s State) clone() State {
	next := State{paths: make(map[string]struct{}, len(s.paths)+1)}
	for p := range s.paths {
		next.paths[p] = struct{}{}
	}
	return next
}
