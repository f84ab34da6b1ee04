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

package paging

// Window is the pagination state of one table view. Pagination is suspended
// while grouping is active; resuming starts again from the first page.
type Window struct {
	PageIndex int
	PageSize  int
	Suspended bool
}

// NewWindow returns a window on the first page.
func NewWindow(pageSize int) Window {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return Window{PageSize: pageSize}
}

// SetPage moves to pageIndex. Clamping happens when the window is applied.
func (w *Window) SetPage(pageIndex int) {
	if pageIndex < 0 {
		pageIndex = 0
	}
	w.PageIndex = pageIndex
}

// SetPageSize changes the page size and returns to the first page.
func (w *Window) SetPageSize(pageSize int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	w.PageSize = pageSize
	w.PageIndex = 0
}

// Suspend turns paging off, e.g. when a grouping becomes active.
func (w *Window) Suspend() {
	w.Suspended = true
}

// Resume turns paging back on at the first page.
func (w *Window) Resume() {
	w.Suspended = false
	w.PageIndex = 0
}

// SetGrouped suspends or resumes paging to match whether grouping is active.
// Nothing changes when the state already matches.
func (w *Window) SetGrouped(grouped bool) {
	switch {
	case grouped && !w.Suspended:
		w.Suspend()
	case !grouped && w.Suspended:
		w.Resume()
	}
}
