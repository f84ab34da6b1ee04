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

// Package grouping partitions records into a tree keyed by an ordered list of
// columns.
//
// Terminology:
//   - the columns that form the hierarchy are the grouped columns
//   - a Branch exists for every grouped column level, a Leaf terminates the
//     tree at depth len(keys) and holds the rows of one group
//   - sibling groups keep the order in which their value was first seen
//
// Every input row lands in exactly one leaf.
package grouping

import (
	"github.com/nyneos/tabula/core/orderedmap"
	"github.com/nyneos/tabula/core/records"
)

// Blank is the group value for rows whose key is absent, nil or empty.
const Blank = "(Blank)"

// PathSeparator joins a parent path and a group value.
const PathSeparator = "__"

// Node is either a *Leaf or a *Branch.
type Node interface {
	// Count returns the number of rows under the node.
	Count() int
	isNode()
}

// Leaf holds the rows of one terminal group.
type Leaf struct {
	Rows []records.Record
}

// Branch partitions rows by the value of Key. Depth is 0 for the top level.
type Branch struct {
	Key      string
	Depth    int
	Children *orderedmap.OrderedMap[string, Node]
	count    int
}

func (*Leaf) isNode()   {}
func (*Branch) isNode() {}

// Count returns the number of rows in the leaf.
func (l *Leaf) Count() int { return len(l.Rows) }

// Count returns the number of rows under the branch.
func (b *Branch) Count() int { return b.count }

// Keys returns the child group values in first-seen order.
func (b *Branch) Keys() []string { return b.Children.Keys() }

// Child returns the child node for a group value.
func (b *Branch) Child(value string) (Node, bool) { return b.Children.Get(value) }

// KeyFunc extracts the grouping value of a record for a column.
type KeyFunc func(r records.Record, column string) records.Value

// FieldKey reads the column straight from the record.
func FieldKey(r records.Record, column string) records.Value {
	return r.Value(column)
}

// Group partitions rows by keys. With no keys the result is a single leaf
// holding every row.
func Group(rows []records.Record, keys []string) Node {
	return GroupBy(rows, keys, FieldKey)
}

// GroupBy is Group with a custom key extractor, used when columns have
// accessors that differ from plain field reads.
func GroupBy(rows []records.Record, keys []string, keyOf KeyFunc) Node {
	return group(rows, keys, 0, keyOf)
}

func group(rows []records.Record, keys []string, depth int, keyOf KeyFunc) Node {
	if depth == len(keys) {
		return &Leaf{Rows: rows}
	}
	key := keys[depth]
	partitions := orderedmap.New[string, []records.Record]()
	for _, r := range rows {
		value := GroupValue(keyOf(r, key))
		bucket, _ := partitions.Get(value)
		partitions.Set(value, append(bucket, r))
	}
	b := &Branch{
		Key:      key,
		Depth:    depth,
		Children: orderedmap.WithCapacity[string, Node](partitions.Len()),
		count:    len(rows),
	}
	partitions.Range(func(value string, part []records.Record) bool {
		b.Children.Set(value, group(part, keys, depth+1, keyOf))
		return true
	})
	return b
}

// GroupValue maps a cell value to its group value.
func GroupValue(v records.Value) string {
	if v == nil {
		return Blank
	}
	s := records.Format(v)
	if s == "" {
		return Blank
	}
	return s
}

// ChildPath returns the expansion path of a child group.
func ChildPath(parentPath, value string) string {
	if parentPath == "" {
		return value
	}
	return parentPath + PathSeparator + value
}

// Depth returns the number of branch levels above the leaves.
func Depth(n Node) int {
	d := 0
	for {
		b, ok := n.(*Branch)
		if !ok {
			return d
		}
		d++
		var first Node
		b.Children.Range(func(_ string, c Node) bool {
			first = c
			return false
		})
		if first == nil {
			return d
		}
		n = first
	}
}
