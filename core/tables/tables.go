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

// Package tables holds the canonical rows of a table and the view pipeline
// that turns them into a projection: filter, sort, group or paginate.
package tables

import (
	"slices"
	"sync"

	"github.com/nyneos/tabula/core/records"
)

// DataTable is the canonical row set of one table. Rows are replaced
// copy-on-write, so a slice returned by Rows is never modified afterwards
// and can be used as a memoization key together with Generation.
type DataTable struct {
	mu         sync.RWMutex
	name       string
	idField    string
	rows       []records.Record
	index      map[string]int
	generation uint64
}

// NewDataTable creates a table. idField names the field that identifies rows.
func NewDataTable(name, idField string, rows []records.Record) *DataTable {
	dt := &DataTable{name: name, idField: idField}
	dt.replace(rows)
	return dt
}

// Name returns the table name.
func (dt *DataTable) Name() string {
	return dt.name
}

// IDField returns the name of the id field.
func (dt *DataTable) IDField() string {
	return dt.idField
}

// Rows returns the current rows and their generation.
func (dt *DataTable) Rows() ([]records.Record, uint64) {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.rows, dt.generation
}

// Generation changes every time the rows change.
func (dt *DataTable) Generation() uint64 {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.generation
}

// Length returns the number of rows.
func (dt *DataTable) Length() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return len(dt.rows)
}

// Row returns the row with the given id.
func (dt *DataTable) Row(id string) (records.Record, bool) {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	i, ok := dt.index[id]
	if !ok {
		return records.Record{}, false
	}
	return dt.rows[i], true
}

// Replace swaps in a new row set, e.g. after a fetch.
func (dt *DataTable) Replace(rows []records.Record) {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	dt.replace(rows)
}

func (dt *DataTable) replace(rows []records.Record) {
	if rows == nil {
		rows = []records.Record{}
	}
	dt.rows = slices.Clip(rows)
	dt.index = make(map[string]int, len(rows))
	for i, r := range rows {
		if id := r.ID(dt.idField); id != "" {
			dt.index[id] = i
		}
	}
	dt.generation++
}

// ApplyDiff merges diff into the row with the given id. Returns the merged
// row and false when the id is unknown.
func (dt *DataTable) ApplyDiff(id string, diff records.Record) (records.Record, bool) {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	i, ok := dt.index[id]
	if !ok {
		return records.Record{}, false
	}
	next := slices.Clone(dt.rows)
	next[i] = next[i].Merge(diff)
	dt.rows = next
	dt.generation++
	return next[i], true
}

// ApplyFields merges fields into every row named in ids and returns the ids
// that were found.
func (dt *DataTable) ApplyFields(ids []string, fields records.Record) []string {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	next := slices.Clone(dt.rows)
	applied := make([]string, 0, len(ids))
	for _, id := range ids {
		i, ok := dt.index[id]
		if !ok {
			continue
		}
		next[i] = next[i].Merge(fields)
		applied = append(applied, id)
	}
	if len(applied) > 0 {
		dt.rows = next
		dt.generation++
	}
	return applied
}

// Remove drops the rows named in ids and returns the ids that were found.
func (dt *DataTable) Remove(ids []string) []string {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	removed := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := dt.index[id]; ok && !drop[id] {
			drop[id] = true
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return removed
	}
	next := make([]records.Record, 0, len(dt.rows)-len(removed))
	for _, r := range dt.rows {
		if !drop[r.ID(dt.idField)] {
			next = append(next, r)
		}
	}
	dt.replace(next)
	return removed
}
