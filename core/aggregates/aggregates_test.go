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

package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyneos/tabula/core/columns"
	"github.com/nyneos/tabula/core/grouping"
	"github.com/nyneos/tabula/core/records"
)

func cols(t *testing.T, ids ...string) []columns.Descriptor {
	t.Helper()
	ds := make([]columns.Descriptor, len(ids))
	for i, id := range ids {
		ds[i] = columns.Descriptor{ID: id, Aggregatable: true}
	}
	return ds
}

func leaf(rows ...records.Record) *grouping.Leaf {
	return &grouping.Leaf{Rows: rows}
}

func TestAggregateNumericSum(t *testing.T) {
	l := leaf(
		records.New(records.F("amt", 100), records.F("ccy", "USD")),
		records.New(records.F("amt", 2.5), records.F("ccy", "USD")),
		records.New(records.F("amt", -10), records.F("ccy", "EUR")),
	)
	row := Aggregate(l, cols(t, "amt", "ccy"), nil)

	sum, ok := row.Sum("amt")
	require.True(t, ok)
	assert.Equal(t, 92.5, sum)
	assert.True(t, row.IsBlank("ccy"))
	assert.Equal(t, "92.5", row.Format("amt"))
	assert.Equal(t, "", row.Format("ccy"))
}

func TestAggregateAlwaysSumCoerces(t *testing.T) {
	l := leaf(
		records.New(records.F("qty", "10")),
		records.New(records.F("qty", 5)),
		records.New(records.F("qty", " 1,000 ")),
	)
	row := Aggregate(l, cols(t, "qty"), Set([]string{"qty"}))
	sum, ok := row.Sum("qty")
	require.True(t, ok)
	assert.Equal(t, 1015.0, sum)

	withoutPolicy := Aggregate(l, cols(t, "qty"), nil)
	assert.True(t, withoutPolicy.IsBlank("qty"))
}

func TestAggregateAllOrBlank(t *testing.T) {
	l := leaf(
		records.New(records.F("qty", "10")),
		records.New(records.F("qty", 5)),
		records.New(records.F("qty", "n/a")),
	)
	row := Aggregate(l, cols(t, "qty"), Set([]string{"qty"}))
	assert.True(t, row.IsBlank("qty"), "a non-coercible value must blank the total, not drop out of it")
}

func TestAggregateMissingValues(t *testing.T) {
	l := leaf(
		records.New(records.F("amt", 1)),
		records.New(records.F("other", 1)),
	)
	row := Aggregate(l, cols(t, "amt"), Set([]string{"amt"}))
	assert.True(t, row.IsBlank("amt"))
}

func TestAggregateNonAggregatableAndEmpty(t *testing.T) {
	ds := []columns.Descriptor{{ID: "amt", Aggregatable: false}}
	row := Aggregate(leaf(records.New(records.F("amt", 1))), ds, nil)
	assert.True(t, row.IsBlank("amt"))

	empty := Aggregate(leaf(), cols(t, "amt"), nil)
	assert.Equal(t, 0, empty.Len())

	assert.Equal(t, 0, Aggregate(nil, cols(t, "amt"), nil).Len())
}

func TestAggregateUsesAccessor(t *testing.T) {
	ds := []columns.Descriptor{{
		ID:           "double",
		Aggregatable: true,
		Accessor: func(r records.Record) records.Value {
			f, _ := records.AsFloat(r.Value("amt"))
			return f * 2
		},
	}}
	row := Aggregate(leaf(records.New(records.F("amt", 2)), records.New(records.F("amt", 3))), ds, nil)
	sum, _ := row.Sum("double")
	assert.Equal(t, 10.0, sum)
}

func TestForTreeScenario(t *testing.T) {
	rows := []records.Record{
		records.New(records.F("bu", "BU1"), records.F("ccy", "USD"), records.F("amt", 100)),
		records.New(records.F("bu", "BU1"), records.F("ccy", "EUR"), records.F("amt", 50)),
		records.New(records.F("bu", "BU2"), records.F("ccy", "USD"), records.F("amt", 30)),
	}
	tree := grouping.Group(rows, []string{"bu", "ccy"})
	byPath := ForTree(tree, cols(t, "bu", "ccy", "amt"), nil)

	require.Len(t, byPath, 3)
	sum, ok := byPath["BU1__USD"].Sum("amt")
	require.True(t, ok)
	assert.Equal(t, 100.0, sum)
	assert.True(t, byPath["BU1__USD"].IsBlank("bu"))

	flat := ForTree(grouping.Group(rows, nil), cols(t, "amt"), nil)
	total, _ := flat[""].Sum("amt")
	assert.Equal(t, 180.0, total)
}

func TestRowMapIsCopy(t *testing.T) {
	row := Total([]records.Record{records.New(records.F("a", 1))}, cols(t, "a"), nil)
	m := row.Map()
	m["a"] = 99
	sum, _ := row.Sum("a")
	assert.Equal(t, 1.0, sum)
}
