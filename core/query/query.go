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

package query

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/google/safehtml"

	"github.com/nyneos/tabula/core/expansion"
	"github.com/nyneos/tabula/core/paging"
	"github.com/nyneos/tabula/core/tables"
)

// Query represents the parsed state of a table view URL
type Query struct {
	// Base path (e.g., "/table")
	Path string

	Table          string            // The table being viewed
	Columns        []string          // Ordered list of visible columns
	SortColumn     string            // Column the rows are sorted by, empty when unsorted
	SortDirection  tables.Direction  // Direction of SortColumn
	GroupedColumns []string          // Ordered list of columns to group by
	Expanded       []string          // Expanded group paths
	Details        []string          // Row ids whose detail panel is open
	Filters        map[string]string // Column filters (columnName -> filterValue)
	Page           int               // Zero-based page index
	PageSize       int               // Rows per page, 0 means the table default
	Editable       bool              // Whether edit controls are shown
}

// NewQuery creates a Query from a URL
func NewQuery(u *url.URL) *Query {
	state := &Query{
		Path:    u.Path,
		Filters: make(map[string]string),
	}

	q := u.Query()
	state.Table = q.Get("table")
	state.Columns = splitList(q.Get("columns"))
	state.GroupedColumns = splitList(q.Get("grouped"))
	state.Expanded = splitList(q.Get("expanded"))
	state.Details = splitList(q.Get("details"))

	// Extract sort parameter (format: column:asc or column:desc)
	if sortStr := q.Get("sort"); sortStr != "" {
		col, dirStr, found := strings.Cut(sortStr, ":")
		dir := tables.Asc
		if found {
			if d, err := tables.ParseDirection(dirStr); err == nil {
				dir = d
			}
		}
		if col != "" && dir != tables.None {
			state.SortColumn = col
			state.SortDirection = dir
		}
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil && page >= 0 {
		state.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil && size > 0 {
		state.PageSize = size
	}
	state.Editable = q.Get("edit") == "1"

	// Extract filter parameters (format: filter:columnName=value)
	for key, values := range q {
		if strings.HasPrefix(key, "filter:") && len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			state.Filters[strings.TrimPrefix(key, "filter:")] = values[0]
		}
	}

	return state
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// FromViewState captures state as a Query for path and table.
func FromViewState(path, table string, state *tables.ViewState) *Query {
	q := &Query{
		Path:           path,
		Table:          table,
		SortColumn:     state.Sort.Column,
		SortDirection:  state.Sort.Direction,
		GroupedColumns: slices.Clone(state.GroupBy),
		Expanded:       state.Groups.Paths(),
		Details:        state.Details.Paths(),
		Filters:        make(map[string]string, len(state.Filters)),
		Page:           state.Window.PageIndex,
		PageSize:       state.Window.PageSize,
		Editable:       state.Editable,
	}
	if !state.Sort.Active() {
		q.SortColumn, q.SortDirection = "", tables.None
	}
	if state.Columns != nil {
		q.Columns = state.Columns.VisibleIDs()
	}
	for k, v := range state.Filters {
		q.Filters[k] = v
	}
	return q
}

// ApplyTo writes the query onto state. state must come from
// TableView.NewState so its column model is set. An empty column list keeps
// the default visible columns. Unknown columns are ignored.
func (s *Query) ApplyTo(state *tables.ViewState) {
	if len(s.Columns) > 0 && state.Columns != nil {
		state.Columns.ApplyVisibleList(s.Columns)
	}
	state.Sort = tables.SortState{}
	if s.SortColumn != "" && s.SortDirection != tables.None {
		if state.ToggleSort(s.SortColumn) && s.SortDirection == tables.Desc {
			state.ToggleSort(s.SortColumn)
		}
	}
	for k, v := range s.Filters {
		state.SetFilter(k, v)
	}
	state.SetGrouping(s.GroupedColumns)
	state.Groups = expansion.New(s.Expanded...)
	state.Details = expansion.New(s.Details...)
	if s.PageSize > 0 {
		state.Window.SetPageSize(s.PageSize)
	}
	if !state.Grouped() {
		state.Window.SetPage(s.Page)
	}
	state.Editable = s.Editable
}

// Clone creates a deep copy of the Query
func (s *Query) Clone() *Query {
	clone := *s
	clone.Columns = slices.Clone(s.Columns)
	clone.GroupedColumns = slices.Clone(s.GroupedColumns)
	clone.Expanded = slices.Clone(s.Expanded)
	clone.Details = slices.Clone(s.Details)
	clone.Filters = make(map[string]string, len(s.Filters))
	for colName, filterValue := range s.Filters {
		clone.Filters[colName] = filterValue
	}
	return &clone
}

// toggle removes item from list when present, appends it otherwise.
func toggle(list []string, item string) []string {
	if i := slices.Index(list, item); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return append(slices.Clone(list), item)
}

// WithColumnToggled returns a URL with the column toggled (added if not present, removed if present)
func (s *Query) WithColumnToggled(column string) safehtml.URL {
	newState := s.Clone()
	newState.Columns = toggle(s.Columns, column)
	return newState.ToSafeURL()
}

// WithColumnMoved returns a URL with column placed before target in the
// visible column list.
func (s *Query) WithColumnMoved(column, target string) safehtml.URL {
	newState := s.Clone()
	from := slices.Index(newState.Columns, column)
	if from < 0 || column == target || !slices.Contains(newState.Columns, target) {
		return newState.ToSafeURL()
	}
	newState.Columns = slices.Delete(newState.Columns, from, from+1)
	to := slices.Index(newState.Columns, target)
	newState.Columns = slices.Insert(newState.Columns, to, column)
	return newState.ToSafeURL()
}

// WithSortToggled returns a URL with the sort on column advanced through
// ascending, descending and unsorted.
func (s *Query) WithSortToggled(column string) safehtml.URL {
	newState := s.Clone()
	next := tables.SortState{Column: s.SortColumn, Direction: s.SortDirection}.Toggle(column)
	if next.Active() {
		newState.SortColumn, newState.SortDirection = next.Column, next.Direction
	} else {
		newState.SortColumn, newState.SortDirection = "", tables.None
	}
	newState.Page = 0
	return newState.ToSafeURL()
}

// WithExpandedToggled returns a URL with the group path toggled
func (s *Query) WithExpandedToggled(path string) safehtml.URL {
	newState := s.Clone()
	newState.Expanded = toggle(s.Expanded, path)
	return newState.ToSafeURL()
}

// WithDetailToggled returns a URL with the detail panel of a row toggled
func (s *Query) WithDetailToggled(rowID string) safehtml.URL {
	newState := s.Clone()
	newState.Details = toggle(s.Details, rowID)
	return newState.ToSafeURL()
}

// WithGroupedColumnToggled returns a URL with the grouped column toggled.
// A column already grouped is removed from the grouping, any other column is
// added at the end. Expanded paths are dropped since they belong to the old
// grouping.
func (s *Query) WithGroupedColumnToggled(column string) safehtml.URL {
	newState := s.Clone()
	newState.GroupedColumns = toggle(s.GroupedColumns, column)
	newState.Expanded = []string{}
	newState.Page = 0
	return newState.ToSafeURL()
}

// WithFilter returns a URL with the filter of a column set, or removed when
// value is blank.
func (s *Query) WithFilter(column, value string) safehtml.URL {
	newState := s.Clone()
	if strings.TrimSpace(value) == "" {
		delete(newState.Filters, column)
	} else {
		newState.Filters[column] = value
	}
	newState.Page = 0
	return newState.ToSafeURL()
}

// WithFilterAndUngrouped returns a URL that adds a filter for the column and removes it from grouping
func (s *Query) WithFilterAndUngrouped(column, value string) safehtml.URL {
	newState := s.Clone()
	newState.Filters[column] = value
	if slices.Contains(newState.GroupedColumns, column) {
		newState.GroupedColumns = toggle(newState.GroupedColumns, column)
		newState.Expanded = []string{}
	}
	newState.Page = 0
	return newState.ToSafeURL()
}

// WithPage returns a URL for another page
func (s *Query) WithPage(page int) safehtml.URL {
	newState := s.Clone()
	newState.Page = max(page, 0)
	return newState.ToSafeURL()
}

// WithPageSize returns a URL with a different page size, back on the first page
func (s *Query) WithPageSize(size int) safehtml.URL {
	newState := s.Clone()
	newState.PageSize = max(size, 0)
	newState.Page = 0
	return newState.ToSafeURL()
}

// ToURL converts the Query back to a URL string
func (s *Query) ToURL() string {
	u := &url.URL{
		Path: s.Path,
	}

	q := u.Query()

	if s.Table != "" {
		q.Set("table", s.Table)
	}
	if len(s.Columns) > 0 {
		q.Set("columns", strings.Join(s.Columns, ","))
	}
	if s.SortColumn != "" && s.SortDirection != tables.None {
		q.Set("sort", s.SortColumn+":"+s.SortDirection.String())
	}
	if len(s.GroupedColumns) > 0 {
		q.Set("grouped", strings.Join(s.GroupedColumns, ","))
	}
	if len(s.Expanded) > 0 {
		q.Set("expanded", strings.Join(s.Expanded, ","))
	}
	if len(s.Details) > 0 {
		q.Set("details", strings.Join(s.Details, ","))
	}
	for colName, filterValue := range s.Filters {
		if filterValue != "" {
			q.Set("filter:"+colName, filterValue)
		}
	}
	if s.Page > 0 {
		q.Set("page", strconv.Itoa(s.Page))
	}
	if s.PageSize > 0 && s.PageSize != paging.DefaultPageSize {
		q.Set("page_size", strconv.Itoa(s.PageSize))
	}
	if s.Editable {
		q.Set("edit", "1")
	}

	u.RawQuery = q.Encode()
	return u.String()
}

// ToSafeURL converts the Query to a safehtml.URL
func (s *Query) ToSafeURL() safehtml.URL {
	// URLSanitized sanitizes the input string and returns a URL
	return safehtml.URLSanitized(s.ToURL())
}

// IsColumnVisible checks if a column is in the visible columns list
func (s *Query) IsColumnVisible(column string) bool {
	return slices.Contains(s.Columns, column)
}

// IsPathExpanded checks if a group path is expanded
func (s *Query) IsPathExpanded(path string) bool {
	return slices.Contains(s.Expanded, path)
}

// IsColumnGrouped checks if a column is in the grouped columns list
func (s *Query) IsColumnGrouped(column string) bool {
	return slices.Contains(s.GroupedColumns, column)
}
