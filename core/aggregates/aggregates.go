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

// Package aggregates computes per-column totals for a set of rows.
//
// Policy, applied per column:
//   - every value is a number: the total is their sum
//   - the column is an always-sum column and every value coerces to a number
//     (numeric strings allowed): the total is the sum of the coerced values
//   - otherwise the total is blank
//
// A blank total is never a partial sum and never an error.
package aggregates

import (
	"strconv"

	"github.com/nyneos/tabula/core/columns"
	"github.com/nyneos/tabula/core/grouping"
	"github.com/nyneos/tabula/core/records"
)

// Row maps column ids to totals. Columns without a total are blank.
type Row struct {
	sums map[string]float64
}

// Sum returns the total for a column and false when it is blank.
func (r Row) Sum(id string) (float64, bool) {
	v, ok := r.sums[id]
	return v, ok
}

// IsBlank reports whether a column has no total.
func (r Row) IsBlank(id string) bool {
	_, ok := r.sums[id]
	return !ok
}

// Len returns the number of non-blank totals.
func (r Row) Len() int {
	return len(r.sums)
}

// Format returns the display string of a column total, "" when blank.
func (r Row) Format(id string) string {
	v, ok := r.sums[id]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Map returns the non-blank totals.
func (r Row) Map() map[string]float64 {
	m := make(map[string]float64, len(r.sums))
	for k, v := range r.sums {
		m[k] = v
	}
	return m
}

// SumState accumulates the values of one column.
type SumState struct {
	Count   int64
	Sum     float64
	Coerced float64 // sum of values coerced from strings
	// numeric is false once a value that is not a number was seen.
	numeric bool
	// coercible is false once a value that does not coerce was seen.
	coercible bool
}

// NewSumState creates an empty state.
func NewSumState() *SumState {
	return &SumState{numeric: true, coercible: true}
}

// Add folds one value into the state.
func (s *SumState) Add(v records.Value) {
	s.Count++
	if f, ok := records.AsFloat(v); ok {
		s.Sum += f
		s.Coerced += f
		return
	}
	s.numeric = false
	if f, ok := records.Coerce(v); ok {
		s.Coerced += f
		return
	}
	s.coercible = false
}

// Result returns the total under the policy and false when blank.
func (s *SumState) Result(alwaysSum bool) (float64, bool) {
	if s.Count == 0 {
		return 0, false
	}
	if s.numeric {
		return s.Sum, true
	}
	if alwaysSum && s.coercible {
		return s.Coerced, true
	}
	return 0, false
}

// Aggregate computes the totals of a leaf. Columns that are not aggregatable
// are blank; so is every column of an empty leaf.
func Aggregate(leaf *grouping.Leaf, cols []columns.Descriptor, alwaysSum map[string]bool) Row {
	if leaf == nil {
		return Row{sums: map[string]float64{}}
	}
	return Total(leaf.Rows, cols, alwaysSum)
}

// Total computes totals over a flat row set, such as the synthesized total
// row of an export.
func Total(rows []records.Record, cols []columns.Descriptor, alwaysSum map[string]bool) Row {
	out := Row{sums: make(map[string]float64, len(cols))}
	for _, c := range cols {
		if !c.Aggregatable {
			continue
		}
		state := NewSumState()
		for _, r := range rows {
			state.Add(c.Value(r))
		}
		if v, ok := state.Result(alwaysSum[c.ID]); ok {
			out.sums[c.ID] = v
		}
	}
	return out
}

// ForTree computes the totals of every leaf keyed by leaf path. An ungrouped
// tree has a single entry under "".
func ForTree(tree grouping.Node, cols []columns.Descriptor, alwaysSum map[string]bool) map[string]Row {
	leaves := grouping.Leaves(tree)
	out := make(map[string]Row, len(leaves))
	for _, pl := range leaves {
		out[pl.Path] = Aggregate(pl.Leaf, cols, alwaysSum)
	}
	return out
}

// Set builds an always-sum lookup from ids.
func Set(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
