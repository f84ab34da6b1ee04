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

package views

import (
	"slices"

	"github.com/google/safehtml"

	"github.com/nyneos/tabula/core/aggregates"
	"github.com/nyneos/tabula/core/columns"
	"github.com/nyneos/tabula/core/grouping"
	"github.com/nyneos/tabula/core/query"
	"github.com/nyneos/tabula/core/records"
	"github.com/nyneos/tabula/core/tables"
)

// RowKind tells a renderer what a display row stands for.
type RowKind string

const (
	RowGroup  RowKind = "group"
	RowRecord RowKind = "record"
	RowDetail RowKind = "detail"
	RowTotal  RowKind = "total"
)

// TableViewModel contains the data from the table formatted for template consumption
type TableViewModel struct {
	Title      string
	Headers    []HeaderInfo // Visible columns in display order
	Rows       []DisplayRow // Flattened rows in render order
	Total      *DisplayRow  // Total row, nil when no visible column has a total
	AllColumns []ColumnInfo // All available columns with metadata
	CurrentURL safehtml.URL // Current URL for building toggle links
	Grouped    bool
	Editable   bool

	// Pagination info
	TotalRows    int // Rows in the table
	FilteredRows int // Rows left after filtering
	PageIndex    int
	PageCount    int
	HasPrev      bool
	HasNext      bool
	PrevURL      safehtml.URL
	NextURL      safehtml.URL
}

// PageNumber is the one-based page index.
func (vm TableViewModel) PageNumber() int {
	return vm.PageIndex + 1
}

// HeaderInfo describes a visible column header
type HeaderInfo struct {
	ID        string
	Label     string
	Sortable  bool
	Draggable bool
	SortDir   tables.Direction
	SortURL   safehtml.URL // URL advancing the sort of this column
	Grouped   bool
	GroupURL  safehtml.URL // URL toggling grouping by this column
	Filter    string
}

// ColumnInfo contains information about a column for UI display
type ColumnInfo struct {
	Name            string       // Column internal name
	DisplayName     string       // Column display name
	IsVisible       bool         // Whether column is currently visible
	ToggleColumnURL safehtml.URL // URL to toggle column visibility (preserves all query params)
}

// Cell is one rendered value.
type Cell struct {
	ColumnID string
	Label    string
	Text     string
	Blank    bool
}

// DisplayRow is one line of the rendered table.
type DisplayRow struct {
	Kind  RowKind
	Depth int // nesting level, 0 for top-level groups and ungrouped records

	// Group rows
	Path      string
	GroupKey  string // column id of the group level
	Value     string
	Count     int
	Expanded  bool
	ToggleURL safehtml.URL

	// Record and detail rows
	RowID           string
	DetailOpen      bool
	DetailToggleURL safehtml.URL

	Cells []Cell
}

// Options tune BuildViewModel.
type Options struct {
	Title   string
	IDField string
}

// BuildViewModel flattens a projection into display rows. Group rows come
// first in each group, followed by either their sub-groups or their records
// when expanded. Records with an open detail panel are followed by a detail
// row listing every field.
func BuildViewModel(p *tables.Projection, model *columns.Model, q *query.Query, opts Options) TableViewModel {
	vm := TableViewModel{
		Title:        opts.Title,
		CurrentURL:   q.ToSafeURL(),
		Grouped:      p.Grouped,
		Editable:     q.Editable,
		TotalRows:    p.Count,
		FilteredRows: p.Filtered,
		PageIndex:    p.Page.PageIndex,
		PageCount:    p.Page.PageCount,
	}

	for _, c := range p.Columns {
		h := HeaderInfo{
			ID:        c.ID,
			Label:     c.Label,
			Sortable:  c.Sortable,
			Draggable: c.Draggable,
			Grouped:   q.IsColumnGrouped(c.ID),
			GroupURL:  q.WithGroupedColumnToggled(c.ID),
			Filter:    q.Filters[c.ID],
		}
		if c.Sortable {
			h.SortURL = q.WithSortToggled(c.ID)
		}
		if q.SortColumn == c.ID {
			h.SortDir = q.SortDirection
		}
		vm.Headers = append(vm.Headers, h)
	}

	if model != nil {
		for _, d := range model.Descriptors() {
			vm.AllColumns = append(vm.AllColumns, ColumnInfo{
				Name:            d.ID,
				DisplayName:     d.Label,
				IsVisible:       !d.Hidden,
				ToggleColumnURL: q.WithColumnToggled(d.ID),
			})
		}
		slices.SortStableFunc(vm.AllColumns, func(a, b ColumnInfo) int {
			switch {
			case a.DisplayName < b.DisplayName:
				return -1
			case a.DisplayName > b.DisplayName:
				return 1
			}
			return 0
		})
	}

	b := rowBuilder{p: p, q: q, idField: opts.IDField}
	if p.Grouped {
		if root, ok := p.Tree.(*grouping.Branch); ok {
			b.branch(root, "", 0)
		}
	} else {
		for _, r := range p.Rows {
			b.record(r, 0)
		}
		vm.HasPrev = p.Page.PageIndex > 0
		vm.HasNext = p.Page.PageIndex < p.Page.PageCount-1
		if vm.HasPrev {
			vm.PrevURL = q.WithPage(p.Page.PageIndex - 1)
		}
		if vm.HasNext {
			vm.NextURL = q.WithPage(p.Page.PageIndex + 1)
		}
	}
	vm.Rows = b.rows

	if p.HasTotal() {
		vm.Total = &DisplayRow{Kind: RowTotal, Count: p.Filtered, Cells: totalCells(p.Columns, p.Total)}
	}
	return vm
}

type rowBuilder struct {
	p       *tables.Projection
	q       *query.Query
	idField string
	rows    []DisplayRow
}

func (b *rowBuilder) branch(n *grouping.Branch, parentPath string, depth int) {
	n.Children.Range(func(value string, child grouping.Node) bool {
		path := grouping.ChildPath(parentPath, value)
		expanded := b.q.IsPathExpanded(path)
		row := DisplayRow{
			Kind:      RowGroup,
			Depth:     depth,
			Path:      path,
			GroupKey:  n.Key,
			Value:     value,
			Count:     child.Count(),
			Expanded:  expanded,
			ToggleURL: b.q.WithExpandedToggled(path),
		}
		if _, isLeaf := child.(*grouping.Leaf); isLeaf {
			row.Cells = totalCells(b.p.Columns, b.p.Aggregates[path])
		}
		b.rows = append(b.rows, row)
		if !expanded {
			return true
		}
		switch c := child.(type) {
		case *grouping.Branch:
			b.branch(c, path, depth+1)
		case *grouping.Leaf:
			for _, r := range c.Rows {
				b.record(r, depth+1)
			}
		}
		return true
	})
}

func (b *rowBuilder) record(r records.Record, depth int) {
	id := r.ID(b.idField)
	open := id != "" && slices.Contains(b.q.Details, id)
	row := DisplayRow{
		Kind:       RowRecord,
		Depth:      depth,
		RowID:      id,
		DetailOpen: open,
		Cells:      make([]Cell, len(b.p.Columns)),
	}
	if id != "" {
		row.DetailToggleURL = b.q.WithDetailToggled(id)
	}
	for i, c := range b.p.Columns {
		row.Cells[i] = valueCell(c.ID, c.Label, c.Value(r))
	}
	b.rows = append(b.rows, row)
	if open {
		b.rows = append(b.rows, DetailRow(r, id, depth))
	}
}

// DetailRow lists every field of r, including hidden columns.
func DetailRow(r records.Record, rowID string, depth int) DisplayRow {
	row := DisplayRow{Kind: RowDetail, Depth: depth, RowID: rowID, Cells: make([]Cell, 0, r.Len())}
	r.Range(func(k string, v records.Value) bool {
		row.Cells = append(row.Cells, valueCell(k, columns.Humanize(k), v))
		return true
	})
	return row
}

func valueCell(id, label string, v records.Value) Cell {
	text := records.Format(v)
	return Cell{ColumnID: id, Label: label, Text: text, Blank: text == ""}
}

func totalCells(cols []columns.Descriptor, totals aggregates.Row) []Cell {
	cells := make([]Cell, len(cols))
	for i, c := range cols {
		text := totals.Format(c.ID)
		cells[i] = Cell{ColumnID: c.ID, Label: c.Label, Text: text, Blank: text == ""}
	}
	return cells
}
