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

// Package editing implements per-row edit sessions: a draft buffer over one
// row, the minimal diff against the original, and the begin, commit and
// cancel lifecycle against an external write collaborator.
package editing

import (
	"github.com/google/uuid"

	"github.com/nyneos/tabula/core/orderedmap"
	"github.com/nyneos/tabula/core/records"
)

// Session is the edit state of one row. A Session is not safe for
// concurrent use on its own; Arena serializes access.
type Session struct {
	id       uuid.UUID
	rowID    string
	original records.Record
	draft    *orderedmap.OrderedMap[string, records.Value]
	saving   bool
}

// Begin opens a session on row: original is row, the draft a copy of it.
func Begin(rowID string, row records.Record) *Session {
	draft := orderedmap.WithCapacity[string, records.Value](row.Len())
	row.Range(func(k string, v records.Value) bool {
		draft.Set(k, v)
		return true
	})
	return &Session{
		id:       uuid.New(),
		rowID:    rowID,
		original: row,
		draft:    draft,
	}
}

// ID identifies this session instance. A session reopened on the same row
// gets a new id.
func (s *Session) ID() uuid.UUID { return s.id }

// RowID returns the id of the edited row.
func (s *Session) RowID() string { return s.rowID }

// Original returns the row as it was when the session began.
func (s *Session) Original() records.Record { return s.original }

// Saving reports whether a commit is in flight.
func (s *Session) Saving() bool { return s.saving }

// Set stores value in the draft. Callers convert input before storing it,
// e.g. parse numeric fields from text; no coercion happens here.
func (s *Session) Set(field string, value records.Value) {
	s.draft.Set(field, records.Normalize(value))
}

// Draft returns the draft as a record.
func (s *Session) Draft() records.Record {
	fields := make([]records.Field, 0, s.draft.Len())
	s.draft.Range(func(k string, v records.Value) bool {
		fields = append(fields, records.F(k, v))
		return true
	})
	return records.New(fields...)
}

// Diff returns the draft fields whose value is not strictly equal to the
// original, in draft order. Fields added by the draft are included.
func (s *Session) Diff() records.Record {
	var fields []records.Field
	s.draft.Range(func(k string, v records.Value) bool {
		orig, ok := s.original.Get(k)
		if !ok || !records.StrictEqual(orig, v) {
			fields = append(fields, records.F(k, v))
		}
		return true
	})
	return records.New(fields...)
}
