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

package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkPaths(t *testing.T) {
	tree := Group(scenario(), []string{"bu", "ccy"})

	assert.Equal(t, []string{"BU1", "BU1__USD", "BU1__EUR", "BU2", "BU2__USD"}, Paths(tree))

	leaves := Leaves(tree)
	require.Len(t, leaves, 3)
	assert.Equal(t, "BU1__USD", leaves[0].Path)
	assert.Equal(t, "BU2__USD", leaves[2].Path)
}

func TestWalkSkipsChildren(t *testing.T) {
	tree := Group(scenario(), []string{"bu", "ccy"})
	var visited []string
	Walk(tree, func(v Visit) bool {
		visited = append(visited, v.Path)
		return v.Depth == 0 || v.Value == "BU2"
	})
	assert.Equal(t, []string{"", "BU1", "BU2", "BU2__USD"}, visited)
}

func TestRowsRenderOrder(t *testing.T) {
	tree := Group(scenario(), []string{"ccy"})
	rows := Rows(tree)
	require.Len(t, rows, 3)
	assert.Equal(t, 100.0, rows[0].Value("amt"))
	assert.Equal(t, 30.0, rows[1].Value("amt"))
	assert.Equal(t, 50.0, rows[2].Value("amt"))
}

func TestFind(t *testing.T) {
	tree := Group(scenario(), []string{"bu", "ccy"})

	n, ok := Find(tree, "BU1__EUR")
	require.True(t, ok)
	assert.Equal(t, 1, n.Count())

	n, ok = Find(tree, "BU1")
	require.True(t, ok)
	assert.Equal(t, 2, n.Count())

	root, ok := Find(tree, "")
	require.True(t, ok)
	assert.Equal(t, 3, root.Count())

	_, ok = Find(tree, "BU3")
	assert.False(t, ok)
}

func TestChildPath(t *testing.T) {
	assert.Equal(t, "BU1", ChildPath("", "BU1"))
	assert.Equal(t, "BU1__USD", ChildPath("BU1", "USD"))
}
