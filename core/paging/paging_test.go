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

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nyneos/tabula/core/records"
)

func makeRows(n int) []records.Record {
	rows := make([]records.Record, n)
	for i := range rows {
		rows[i] = records.New(records.F("i", i))
	}
	return rows
}

func TestPaginateBoundaries(t *testing.T) {
	rows := makeRows(23)
	tests := []struct {
		name      string
		index     int
		size      int
		wantLen   int
		wantIndex int
		wantCount int
		wantFirst float64
	}{
		{"first page", 0, 10, 10, 0, 3, 0},
		{"last partial page", 2, 10, 3, 2, 3, 20},
		{"clamps beyond end", 5, 10, 3, 2, 3, 20},
		{"negative index", -1, 10, 10, 0, 3, 0},
		{"exact fit", 0, 23, 23, 0, 1, 0},
		{"default size", 1, 0, 10, 1, 3, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(rows, tt.index, tt.size)
			assert.Len(t, p.Records, tt.wantLen)
			assert.Equal(t, tt.wantIndex, p.PageIndex)
			assert.Equal(t, tt.wantCount, p.PageCount)
			assert.Equal(t, 23, p.Total)
			assert.Equal(t, tt.wantFirst, p.Records[0].Value("i"))
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate(nil, 3, 10)
	assert.Empty(t, p.Records)
	assert.Equal(t, 1, p.PageCount)
	assert.Equal(t, 0, p.PageIndex)
}

func TestPaginateDoesNotLeakCapacity(t *testing.T) {
	rows := makeRows(5)
	p := Paginate(rows, 0, 2)
	_ = append(p.Records, records.New(records.F("i", 99)))
	assert.Equal(t, 2.0, rows[2].Value("i"))
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, PageCount(0, 10))
	assert.Equal(t, 1, PageCount(10, 10))
	assert.Equal(t, 2, PageCount(11, 10))
	assert.Equal(t, 3, PageCount(23, 10))
}

func TestWindowTransitions(t *testing.T) {
	w := NewWindow(0)
	assert.Equal(t, DefaultPageSize, w.PageSize)

	w.SetPage(4)
	assert.Equal(t, 4, w.PageIndex)

	w.SetPageSize(25)
	assert.Equal(t, 0, w.PageIndex, "page size change returns to the first page")
	assert.Equal(t, 25, w.PageSize)

	w.SetPage(2)
	w.SetGrouped(true)
	assert.True(t, w.Suspended)
	assert.Equal(t, 2, w.PageIndex)

	w.SetGrouped(true)
	assert.True(t, w.Suspended)

	w.SetGrouped(false)
	assert.False(t, w.Suspended)
	assert.Equal(t, 0, w.PageIndex, "leaving grouped view starts from page 0")

	w.SetPage(-3)
	assert.Equal(t, 0, w.PageIndex)
}
