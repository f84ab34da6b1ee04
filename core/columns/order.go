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

package columns

import "slices"

// Order is a sequence of column ids, a permutation of a model's ids.
type Order []string

// Placement says on which side of the target a moved column lands.
type Placement int

const (
	Before Placement = iota
	After
	// AtTarget puts the moved column at the target's current index: after
	// the target when moving right, before it when moving left.
	AtTarget
)

// Reorder removes movedID from order and reinserts it immediately before or
// after targetID. It returns order unchanged when either id is missing or
// both are the same. The input slice is never modified.
func Reorder(order Order, movedID, targetID string, placement Placement) Order {
	if movedID == targetID {
		return order
	}
	from := slices.Index(order, movedID)
	if from < 0 || !slices.Contains(order, targetID) {
		return order
	}
	if placement == AtTarget {
		placement = Before
		if from < slices.Index(order, targetID) {
			placement = After
		}
	}
	out := make(Order, 0, len(order))
	for _, id := range order {
		if id == movedID {
			continue
		}
		if id == targetID && placement == Before {
			out = append(out, movedID)
		}
		out = append(out, id)
		if id == targetID && placement == After {
			out = append(out, movedID)
		}
	}
	return out
}

// IsPermutationOf reports whether o holds exactly ids, each once.
func (o Order) IsPermutationOf(ids []string) bool {
	if len(o) != len(ids) {
		return false
	}
	want := make(map[string]int, len(ids))
	for _, id := range ids {
		want[id]++
	}
	for _, id := range o {
		if want[id] == 0 {
			return false
		}
		want[id]--
	}
	return true
}

// Index returns the position of id, or -1.
func (o Order) Index(id string) int {
	return slices.Index(o, id)
}
