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

package expansion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggle(t *testing.T) {
	var s State
	assert.False(t, s.IsExpanded("BU1"))

	s1 := s.Toggle("BU1")
	assert.True(t, s1.IsExpanded("BU1"))
	assert.False(t, s.IsExpanded("BU1"), "toggle returns a new state")

	s2 := s1.Toggle("BU1")
	assert.False(t, s2.IsExpanded("BU1"))
	assert.Equal(t, 0, s2.Len())
}

func TestExpandAllCollapseAll(t *testing.T) {
	s := New("a").ExpandAll([]string{"b", "a__x"})
	assert.Equal(t, []string{"a", "a__x", "b"}, s.Paths())

	empty := s.CollapseAll()
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 3, s.Len())
}

func TestExpandCollapse(t *testing.T) {
	s := New().Expand("r1").Expand("r1")
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Collapse("r1").IsExpanded("r1"))
	assert.False(t, s.Collapse("missing").IsExpanded("missing"))
}

func TestNamespacesAreIndependent(t *testing.T) {
	rows := New("E1")
	groups := New("BU1")

	groups = groups.CollapseAll()
	assert.True(t, rows.IsExpanded("E1"))
	assert.False(t, groups.IsExpanded("BU1"))
}
