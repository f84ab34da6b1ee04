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

package tables

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nyneos/tabula/core/columns"
	"github.com/nyneos/tabula/core/records"
)

// Direction is a sort direction.
type Direction int

const (
	None Direction = iota
	Asc
	Desc
)

// String returns "none", "asc" or "desc".
func (d Direction) String() string {
	switch d {
	case Asc:
		return "asc"
	case Desc:
		return "desc"
	default:
		return "none"
	}
}

// ParseDirection parses "asc", "desc" or "none" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	case "", "none":
		return None, nil
	default:
		return None, fmt.Errorf("unknown sort direction %q", s)
	}
}

// SortState is the single-column sort of a view.
type SortState struct {
	Column    string
	Direction Direction
}

// Active reports whether a sort applies.
func (s SortState) Active() bool {
	return s.Column != "" && s.Direction != None
}

// Toggle advances the sort for column through none, asc, desc and back to
// none. Selecting another column drops the previous one and starts at asc.
func (s SortState) Toggle(column string) SortState {
	if s.Column != column {
		return SortState{Column: column, Direction: Asc}
	}
	switch s.Direction {
	case None:
		return SortState{Column: column, Direction: Asc}
	case Asc:
		return SortState{Column: column, Direction: Desc}
	default:
		return SortState{}
	}
}

// Sort orders rows by a field. See SortBy.
func Sort(rows []records.Record, columnID string, dir Direction) []records.Record {
	return SortBy(rows, columns.Descriptor{ID: columnID, Accessor: columns.FieldAccessor(columnID)}, dir)
}

// SortBy returns a stably sorted copy of rows. The comparator is chosen from
// the column's values: numbers compare numerically, ISO date-like strings as
// timestamps, anything else as case-sensitive strings. Rows with equal keys
// keep their input order in both directions. None returns an unsorted copy.
func SortBy(rows []records.Record, col columns.Descriptor, dir Direction) []records.Record {
	out := slices.Clone(rows)
	if dir == None || len(out) < 2 {
		return out
	}
	keys := make([]records.Value, len(out))
	for i, r := range out {
		keys[i] = col.Value(r)
	}
	kind := columns.DetectKind(keys)

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		cmp := columns.CompareValues(kind, keys[a], keys[b])
		if dir == Desc {
			return -cmp
		}
		return cmp
	})
	sorted := make([]records.Record, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}
