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
	"testing"

	"github.com/nyneos/tabula/core/columns"
	"github.com/nyneos/tabula/core/records"
	"github.com/nyneos/tabula/core/tables"
)

func reparse(t *testing.T, s string) *Query {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return NewQuery(u)
}

// TestGroupingToggle tests that grouping is toggled in order and resets expansion
func TestGroupingToggle(t *testing.T) {
	t.Run("Group multiple columns", func(t *testing.T) {
		q := reparse(t, "/table?table=test&columns=status,region,category,amount&expanded=x")

		q1 := reparse(t, q.WithGroupedColumnToggled("status").String())
		q2 := reparse(t, q1.WithGroupedColumnToggled("category").String())

		expectedGrouped := []string{"status", "category"}
		if !equalStringSlices(q2.GroupedColumns, expectedGrouped) {
			t.Errorf("Expected grouped columns %v, got %v", expectedGrouped, q2.GroupedColumns)
		}
		if len(q2.Expanded) != 0 {
			t.Errorf("Expected expansion to be reset, got %v", q2.Expanded)
		}
		expectedColumns := []string{"status", "region", "category", "amount"}
		if !equalStringSlices(q2.Columns, expectedColumns) {
			t.Errorf("Expected column order untouched %v, got %v", expectedColumns, q2.Columns)
		}
	})

	t.Run("Ungroup middle grouped column", func(t *testing.T) {
		q := reparse(t, "/table?table=test&grouped=status,region,category")
		newState := reparse(t, q.WithGroupedColumnToggled("region").String())

		expectedGrouped := []string{"status", "category"}
		if !equalStringSlices(newState.GroupedColumns, expectedGrouped) {
			t.Errorf("Expected grouped columns %v, got %v", expectedGrouped, newState.GroupedColumns)
		}
	})

	t.Run("Filter and ungroup", func(t *testing.T) {
		q := reparse(t, "/table?table=test&grouped=status,region")
		newState := reparse(t, q.WithFilterAndUngrouped("status", "Pending").String())

		if !equalStringSlices(newState.GroupedColumns, []string{"region"}) {
			t.Errorf("Expected grouped columns [region], got %v", newState.GroupedColumns)
		}
		if newState.Filters["status"] != "Pending" {
			t.Errorf("Expected status filter, got %v", newState.Filters)
		}
	})
}

func TestSortToggleCycle(t *testing.T) {
	q := reparse(t, "/table?table=test&page=3")

	q = reparse(t, q.WithSortToggled("amount").String())
	if q.SortColumn != "amount" || q.SortDirection != tables.Asc {
		t.Fatalf("Expected amount:asc, got %s:%s", q.SortColumn, q.SortDirection)
	}
	if q.Page != 0 {
		t.Errorf("Expected sorting to return to page 0, got %d", q.Page)
	}
	q = reparse(t, q.WithSortToggled("amount").String())
	if q.SortDirection != tables.Desc {
		t.Fatalf("Expected desc, got %s", q.SortDirection)
	}
	q = reparse(t, q.WithSortToggled("amount").String())
	if q.SortColumn != "" {
		t.Errorf("Expected no sort, got %s:%s", q.SortColumn, q.SortDirection)
	}
}

func TestNewQueryIgnoresBadValues(t *testing.T) {
	q := reparse(t, "/table?sort=amount:sideways&page=-2&page_size=0&filter:ccy=%20&columns=a,,b")
	if q.SortColumn != "amount" || q.SortDirection != tables.Asc {
		t.Errorf("Expected unknown direction to default to asc, got %s:%s", q.SortColumn, q.SortDirection)
	}
	if q.Page != 0 || q.PageSize != 0 {
		t.Errorf("Expected defaults for page and page size, got %d/%d", q.Page, q.PageSize)
	}
	if len(q.Filters) != 0 {
		t.Errorf("Expected blank filters to be dropped, got %v", q.Filters)
	}
	if !equalStringSlices(q.Columns, []string{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", q.Columns)
	}
}

func TestColumnMoved(t *testing.T) {
	q := reparse(t, "/table?columns=a,b,c")
	moved := reparse(t, q.WithColumnMoved("c", "a").String())
	if !equalStringSlices(moved.Columns, []string{"c", "a", "b"}) {
		t.Errorf("Expected [c a b], got %v", moved.Columns)
	}
	same := reparse(t, q.WithColumnMoved("c", "zz").String())
	if !equalStringSlices(same.Columns, q.Columns) {
		t.Errorf("Expected unknown target to be a no-op, got %v", same.Columns)
	}
}

func TestViewStateRoundTrip(t *testing.T) {
	rows := []records.Record{
		records.New(records.F("id", "1"), records.F("bu", "A"), records.F("ccy", "USD"), records.F("amt", 1)),
		records.New(records.F("id", "2"), records.F("bu", "B"), records.F("ccy", "EUR"), records.F("amt", 2)),
	}
	tv := tables.NewTableView(tables.NewDataTable("t", "id", rows), columns.Hints{AllVisible: true}, nil, 10)

	q := reparse(t, "/table?table=t&columns=amt,bu&sort=amt:desc&grouped=bu&expanded=A&details=2&filter:ccy=us&page_size=5&edit=1")
	state := tv.NewState()
	q.ApplyTo(&state)

	if got := state.Columns.VisibleIDs(); !equalStringSlices(got, []string{"amt", "bu"}) {
		t.Errorf("Expected visible [amt bu], got %v", got)
	}
	if state.Sort != (tables.SortState{Column: "amt", Direction: tables.Desc}) {
		t.Errorf("Expected amt desc, got %+v", state.Sort)
	}
	if !state.Groups.IsExpanded("A") || !state.Details.IsExpanded("2") {
		t.Errorf("Expected expansion to be restored")
	}
	if !state.Window.Suspended || state.Window.PageSize != 5 {
		t.Errorf("Expected suspended window of 5, got %+v", state.Window)
	}
	if !state.Editable {
		t.Errorf("Expected editable state")
	}

	back := FromViewState("/table", "t", &state)
	if back.ToURL() != q.ToURL() {
		t.Errorf("Expected %s, got %s", q.ToURL(), back.ToURL())
	}
}

// equalStringSlices compares two string slices for equality
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
