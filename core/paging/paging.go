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

// Package paging slices an ordered row collection into pages.
package paging

import "github.com/nyneos/tabula/core/records"

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 10

// Page is one window of rows.
type Page struct {
	Records   []records.Record
	PageIndex int // index actually served, after clamping
	PageCount int // at least 1
	Total     int // rows before slicing
}

// Paginate returns the rows of pageIndex. The index is clamped into
// [0, PageCount-1]; PageCount is never below 1 so an empty input still has
// one (empty) page. The returned slice aliases the input.
func Paginate(rows []records.Record, pageIndex, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	count := PageCount(len(rows), pageSize)
	if pageIndex >= count {
		pageIndex = count - 1
	}
	if pageIndex < 0 {
		pageIndex = 0
	}
	start := pageIndex * pageSize
	end := min(start+pageSize, len(rows))
	if start > end {
		start = end
	}
	return Page{
		Records:   rows[start:end:end],
		PageIndex: pageIndex,
		PageCount: count,
		Total:     len(rows),
	}
}

// PageCount returns ceil(n/pageSize), minimum 1.
func PageCount(n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	count := (n + pageSize - 1) / pageSize
	if count < 1 {
		return 1
	}
	return count
}
