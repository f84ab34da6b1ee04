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

// Package columns holds the column model of a table: one descriptor per
// record field, its visibility and the display order. The model is pure
// data; rendering and drag handling live elsewhere and speak to it through
// Reorder and SetVisibility.
package columns

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nyneos/tabula/core/records"
)

// Accessor extracts a column value from a record.
type Accessor func(records.Record) records.Value

// Descriptor describes one column.
type Descriptor struct {
	ID           string // must not contain any of the following characters: & = : ,
	Label        string
	Accessor     Accessor
	Draggable    bool
	Sortable     bool
	Aggregatable bool
	Hidden       bool
}

// Value returns the column value of r.
func (d Descriptor) Value(r records.Record) records.Value {
	if d.Accessor == nil {
		return r.Value(d.ID)
	}
	return d.Accessor(r)
}

// FieldAccessor returns an accessor that reads a field by name.
func FieldAccessor(field string) Accessor {
	return func(r records.Record) records.Value {
		return r.Value(field)
	}
}

// Hints is the configuration surface for Derive. Visibility is explicit:
// a column is visible by default only when AllVisible is set, when it is in
// DefaultVisible, or when it is among the first DefaultVisibleCount fields
// of the sample. Everything else starts hidden.
type Hints struct {
	DefaultVisible      []string
	DefaultVisibleCount int
	AllVisible          bool

	// Columns that may not be dragged.
	Locked []string
	// Columns that may not be sorted.
	NonSortable []string
	// Columns excluded from aggregation.
	NonAggregatable []string

	Labels map[string]string
}

// Model is the ordered, visibility-aware set of column descriptors.
// The set of ids is fixed at derivation; only visibility and order change.
type Model struct {
	descriptors map[string]*Descriptor
	ids         []string // derivation order
	order       Order
}

// Derive builds a model with one descriptor per field of sample, in field
// order.
func Derive(sample records.Record, hints Hints) *Model {
	keys := sample.Keys()
	visible := make(map[string]bool, len(hints.DefaultVisible))
	for _, id := range hints.DefaultVisible {
		visible[id] = true
	}
	m := &Model{
		descriptors: make(map[string]*Descriptor, len(keys)),
		ids:         keys,
		order:       slices.Clone(keys),
	}
	for i, key := range keys {
		label := hints.Labels[key]
		if label == "" {
			label = Humanize(key)
		}
		shown := hints.AllVisible || visible[key] || i < hints.DefaultVisibleCount
		m.descriptors[key] = &Descriptor{
			ID:           key,
			Label:        label,
			Accessor:     FieldAccessor(key),
			Draggable:    !slices.Contains(hints.Locked, key),
			Sortable:     !slices.Contains(hints.NonSortable, key),
			Aggregatable: !slices.Contains(hints.NonAggregatable, key),
			Hidden:       !shown,
		}
	}
	return m
}

// NewModel builds a model from explicit descriptors. Duplicate ids are
// rejected.
func NewModel(descriptors []Descriptor) (*Model, error) {
	m := &Model{descriptors: make(map[string]*Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("column descriptor without id")
		}
		if _, dup := m.descriptors[d.ID]; dup {
			return nil, fmt.Errorf("duplicate column id %q", d.ID)
		}
		d := d
		if d.Label == "" {
			d.Label = Humanize(d.ID)
		}
		m.descriptors[d.ID] = &d
		m.ids = append(m.ids, d.ID)
	}
	m.order = slices.Clone(m.ids)
	return m, nil
}

// Humanize turns a field name such as exposure_header_id into
// "Exposure Header Id".
func Humanize(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		parts[i] = string(unicode.ToUpper(r)) + p[size:]
	}
	return strings.Join(parts, " ")
}

// Clone returns a deep copy; mutations on the copy do not affect m.
func (m *Model) Clone() *Model {
	c := &Model{
		descriptors: make(map[string]*Descriptor, len(m.descriptors)),
		ids:         slices.Clone(m.ids),
		order:       slices.Clone(m.order),
	}
	for id, d := range m.descriptors {
		dd := *d
		c.descriptors[id] = &dd
	}
	return c
}

// IDs returns the column ids in derivation order.
func (m *Model) IDs() []string {
	return slices.Clone(m.ids)
}

// Len returns the number of columns.
func (m *Model) Len() int {
	return len(m.ids)
}

// Has reports whether the model has a column with the id.
func (m *Model) Has(id string) bool {
	_, ok := m.descriptors[id]
	return ok
}

// Descriptor returns a copy of the descriptor for id.
func (m *Model) Descriptor(id string) (Descriptor, bool) {
	d, ok := m.descriptors[id]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// Order returns the current display order.
func (m *Model) Order() Order {
	return slices.Clone(m.order)
}

// Descriptors returns all descriptors in display order, hidden ones included.
func (m *Model) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.descriptors[id])
	}
	return out
}

// Visible returns the visible descriptors in display order.
func (m *Model) Visible() []Descriptor {
	out := make([]Descriptor, 0, len(m.order))
	for _, id := range m.order {
		if d := m.descriptors[id]; !d.Hidden {
			out = append(out, *d)
		}
	}
	return out
}

// VisibleIDs returns the ids of the visible columns in display order.
func (m *Model) VisibleIDs() []string {
	vis := m.Visible()
	ids := make([]string, len(vis))
	for i, d := range vis {
		ids[i] = d.ID
	}
	return ids
}

// SetVisibility shows or hides a single column. Order is untouched.
// Returns false when the id is unknown.
func (m *Model) SetVisibility(id string, visible bool) bool {
	d, ok := m.descriptors[id]
	if !ok {
		return false
	}
	d.Hidden = !visible
	return true
}

// Reorder moves a column next to another. Non-draggable columns stay put.
// See Reorder for the no-op rules.
func (m *Model) Reorder(movedID, targetID string, placement Placement) {
	if d, ok := m.descriptors[movedID]; ok && !d.Draggable {
		return
	}
	m.order = Reorder(m.order, movedID, targetID, placement)
}

// SetOrder replaces the display order. The new order must be a permutation of
// the model's ids.
func (m *Model) SetOrder(order Order) error {
	if !order.IsPermutationOf(m.ids) {
		return fmt.Errorf("column order %v is not a permutation of %v", order, m.ids)
	}
	m.order = slices.Clone(order)
	return nil
}

// ApplyVisibleList makes exactly the listed columns visible and moves them,
// in the listed order, ahead of the hidden ones. Unknown ids are ignored.
func (m *Model) ApplyVisibleList(ids []string) {
	listed := make(map[string]bool, len(ids))
	front := make(Order, 0, len(ids))
	for _, id := range ids {
		if _, ok := m.descriptors[id]; ok && !listed[id] {
			listed[id] = true
			front = append(front, id)
		}
	}
	rest := make(Order, 0, len(m.order))
	for _, id := range m.order {
		if !listed[id] {
			rest = append(rest, id)
		}
	}
	for id, d := range m.descriptors {
		d.Hidden = !listed[id]
	}
	m.order = append(front, rest...)
}

// SameSchema reports whether sample has exactly the model's field set.
// Callers re-derive only when it does not.
func (m *Model) SameSchema(sample records.Record) bool {
	keys := sample.Keys()
	if len(keys) != len(m.ids) {
		return false
	}
	for _, k := range keys {
		if _, ok := m.descriptors[k]; !ok {
			return false
		}
	}
	return true
}
