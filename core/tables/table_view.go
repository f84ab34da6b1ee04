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
	"sync"

	"github.com/nyneos/tabula/core/aggregates"
	"github.com/nyneos/tabula/core/columns"
	"github.com/nyneos/tabula/core/expansion"
	"github.com/nyneos/tabula/core/grouping"
	"github.com/nyneos/tabula/core/paging"
	"github.com/nyneos/tabula/core/records"
)

// memoSize bounds the number of cached projections per view.
const memoSize = 16

// ViewState is everything a caller controls about how a table is shown.
// It is a plain value; transitions return or mutate a copy owned by the
// caller, and TableView never holds on to it.
type ViewState struct {
	Columns  *columns.Model
	Sort     SortState
	GroupBy  []string
	Window   paging.Window
	Filters  map[string]string
	Groups   expansion.State // expanded group paths
	Details  expansion.State // expanded row ids
	Editable bool
}

// Grouped reports whether a grouping is active.
func (s *ViewState) Grouped() bool {
	return len(s.GroupBy) > 0
}

// ToggleSort advances the sort on column. Unknown or non-sortable columns
// leave the state untouched and return false.
func (s *ViewState) ToggleSort(column string) bool {
	if s.Columns != nil {
		d, ok := s.Columns.Descriptor(column)
		if !ok || !d.Sortable {
			return false
		}
	}
	s.Sort = s.Sort.Toggle(column)
	return true
}

// SetGrouping replaces the grouping keys. Paging is suspended while grouped
// and restarts at page 0 when the grouping is cleared. Group expansion is
// reset because paths of the previous grouping no longer apply.
func (s *ViewState) SetGrouping(keys []string) {
	clean := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || slices.Contains(clean, k) {
			continue
		}
		if s.Columns != nil && !s.Columns.Has(k) {
			continue
		}
		clean = append(clean, k)
	}
	if !slices.Equal(clean, s.GroupBy) {
		s.Groups = s.Groups.CollapseAll()
	}
	s.GroupBy = clean
	s.Window.SetGrouped(len(clean) > 0)
}

// ToggleGroupColumn adds column to the end of the grouping, or removes it
// when already grouped.
func (s *ViewState) ToggleGroupColumn(column string) {
	if i := slices.Index(s.GroupBy, column); i >= 0 {
		s.SetGrouping(slices.Delete(slices.Clone(s.GroupBy), i, i+1))
		return
	}
	s.SetGrouping(append(slices.Clone(s.GroupBy), column))
}

// SetFilter sets or clears the filter text of a column and returns to the
// first page.
func (s *ViewState) SetFilter(column, text string) {
	if s.Filters == nil {
		s.Filters = map[string]string{}
	}
	if strings.TrimSpace(text) == "" {
		delete(s.Filters, column)
	} else {
		s.Filters[column] = text
	}
	s.Window.SetPage(0)
}

// key identifies the row pipeline inputs of the state. Column visibility and
// order are not part of it since they do not change which rows are produced.
func (s *ViewState) key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "sort=%s:%s;group=%s;", s.Sort.Column, s.Sort.Direction, strings.Join(s.GroupBy, ","))
	if !s.Grouped() {
		fmt.Fprintf(&sb, "page=%d/%d;", s.Window.PageIndex, s.Window.PageSize)
	}
	ids := make([]string, 0, len(s.Filters))
	for id := range s.Filters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Fprintf(&sb, "f:%s=%s;", id, s.Filters[id])
	}
	return sb.String()
}

// Projection is the visible result of applying a ViewState to a table.
type Projection struct {
	Columns []columns.Descriptor
	// Rows are the rows on screen: the current page when ungrouped, every
	// filtered row in tree order when grouped.
	Rows       []records.Record
	Tree       grouping.Node // nil when ungrouped
	Aggregates map[string]aggregates.Row
	// Total covers every filtered row, PageTotal only Rows. They differ
	// when an ungrouped view spans several pages.
	Total     aggregates.Row
	PageTotal aggregates.Row
	Page      paging.Page
	Grouped    bool
	// Filtered is the row count after filtering, Count before.
	Filtered int
	Count    int
}

// HasTotal reports whether any visible column has a total.
func (p *Projection) HasTotal() bool {
	return anyTotal(p.Columns, p.Total)
}

// HasPageTotal reports whether any visible column has a total over Rows.
func (p *Projection) HasPageTotal() bool {
	return anyTotal(p.Columns, p.PageTotal)
}

func anyTotal(cols []columns.Descriptor, total aggregates.Row) bool {
	for _, c := range cols {
		if !total.IsBlank(c.ID) {
			return true
		}
	}
	return false
}

type pipelineResult struct {
	rows       []records.Record
	tree       grouping.Node
	aggregates map[string]aggregates.Row
	total      aggregates.Row
	pageTotal  aggregates.Row
	page       paging.Page
	filtered   int
	count      int
}

// TableView runs the row pipeline of a DataTable and caches the result per
// (table generation, state) pair.
type TableView struct {
	table     *DataTable
	hints     columns.Hints
	alwaysSum map[string]bool
	pageSize  int

	mu        sync.Mutex
	model     *columns.Model
	modelGen  uint64
	memo      map[string]*pipelineResult
	memoOrder []string
}

// NewTableView creates a view over table. hints drive column derivation,
// alwaysSum names the columns whose string values are coerced for totals.
func NewTableView(table *DataTable, hints columns.Hints, alwaysSum []string, pageSize int) *TableView {
	return &TableView{
		table:     table,
		hints:     hints,
		alwaysSum: aggregates.Set(alwaysSum),
		pageSize:  pageSize,
		memo:      make(map[string]*pipelineResult),
	}
}

// Table returns the underlying table.
func (tv *TableView) Table() *DataTable {
	return tv.table
}

// Model returns a copy of the table's default column model. It is derived
// from the first row and re-derived only when the field set changes.
func (tv *TableView) Model() *columns.Model {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return tv.modelLocked().Clone()
}

func (tv *TableView) modelLocked() *columns.Model {
	rows, gen := tv.table.Rows()
	if tv.model != nil && tv.modelGen == gen {
		return tv.model
	}
	tv.modelGen = gen
	var sample records.Record
	if len(rows) > 0 {
		sample = rows[0]
	}
	if tv.model == nil || !tv.model.SameSchema(sample) {
		tv.model = columns.Derive(sample, tv.hints)
	}
	return tv.model
}

// NewState returns the default state: default columns, no sort, no
// grouping, first page.
func (tv *TableView) NewState() ViewState {
	return ViewState{
		Columns: tv.Model(),
		Window:  paging.NewWindow(tv.pageSize),
		Filters: map[string]string{},
	}
}

// Project applies state to the current rows.
func (tv *TableView) Project(state ViewState) *Projection {
	tv.mu.Lock()
	base := tv.modelLocked()
	cols := state.Columns
	if cols == nil || !slices.Equal(sortedIDs(cols), sortedIDs(base)) {
		cols = base
	}
	res := tv.pipelineLocked(base, &state)
	tv.mu.Unlock()

	return &Projection{
		Columns:    cols.Visible(),
		Rows:       res.rows,
		Tree:       res.tree,
		Aggregates: res.aggregates,
		Total:      res.total,
		PageTotal:  res.pageTotal,
		Page:       res.page,
		Grouped:    res.tree != nil,
		Filtered:   res.filtered,
		Count:      res.count,
	}
}

func (tv *TableView) pipelineLocked(base *columns.Model, state *ViewState) *pipelineResult {
	rows, gen := tv.table.Rows()
	key := fmt.Sprintf("gen=%d;%s", gen, state.key())
	if res, ok := tv.memo[key]; ok {
		return res
	}

	descs := base.Descriptors()
	filtered := Filter(rows, base, state.Filters)
	ordered := filtered
	if state.Sort.Active() {
		if d, ok := base.Descriptor(state.Sort.Column); ok && d.Sortable {
			ordered = SortBy(filtered, d, state.Sort.Direction)
		}
	}

	res := &pipelineResult{
		filtered: len(filtered),
		count:    len(rows),
		total:    aggregates.Total(filtered, descs, tv.alwaysSum),
	}
	keys := make([]string, 0, len(state.GroupBy))
	for _, k := range state.GroupBy {
		if base.Has(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		keyOf := func(r records.Record, column string) records.Value {
			d, _ := base.Descriptor(column)
			return d.Value(r)
		}
		res.tree = grouping.GroupBy(ordered, keys, keyOf)
		res.aggregates = aggregates.ForTree(res.tree, descs, tv.alwaysSum)
		res.rows = grouping.Rows(res.tree)
		res.page = paging.Page{Records: res.rows, PageCount: 1, Total: len(res.rows)}
		res.pageTotal = res.total
	} else {
		size := state.Window.PageSize
		if size <= 0 {
			size = tv.pageSize
		}
		res.page = paging.Paginate(ordered, state.Window.PageIndex, size)
		res.rows = res.page.Records
		res.pageTotal = aggregates.Total(res.rows, descs, tv.alwaysSum)
	}

	tv.memo[key] = res
	tv.memoOrder = append(tv.memoOrder, key)
	if len(tv.memoOrder) > memoSize {
		delete(tv.memo, tv.memoOrder[0])
		tv.memoOrder = tv.memoOrder[1:]
	}
	return res
}

func sortedIDs(m *columns.Model) []string {
	ids := m.IDs()
	slices.Sort(ids)
	return ids
}
