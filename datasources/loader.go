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

// Package datasources provides the read and write collaborators of the
// engine: a common Fetcher interface, a CSV source with type detection, a
// SQLite store and a Manager that loads named record sets.
package datasources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nyneos/tabula/core/records"
)

// ColumnType represents the data type of a column.
type ColumnType int

const (
	TypeAuto ColumnType = iota
	TypeString
	TypeNumber
	TypeBool
)

// String returns the string representation of the column type.
func (t ColumnType) String() string {
	switch t {
	case TypeAuto:
		return "auto"
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Query narrows what a Fetcher returns. Sources ignore fields they do not
// support.
type Query struct {
	// Table names the record set for sources serving several.
	Table string
	// Where holds exact-match conditions by field.
	Where map[string]records.Value
	// Limit caps the number of records, 0 means no cap.
	Limit int
}

// Fetcher is the read collaborator.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) ([]records.Record, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q Query) ([]records.Record, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, q Query) ([]records.Record, error) {
	return f(ctx, q)
}

// FetchFailure describes a read that failed. Callers recover from it by
// showing an empty record set.
type FetchFailure struct {
	Source string
	Err    error
}

func (e *FetchFailure) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchFailure) Unwrap() error { return e.Err }

// FetchResult is the outcome of FetchOrEmpty. Records is never nil; on
// failure it is empty and Err is a *FetchFailure.
type FetchResult struct {
	Records []records.Record
	Err     error
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool { return r.Err == nil }

// FetchOrEmpty runs f and falls back to an empty record set on failure. The
// failure is logged and returned in the result, never a partial result.
func FetchOrEmpty(ctx context.Context, source string, f Fetcher, q Query, logger *zap.Logger) FetchResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	rows, err := f.Fetch(ctx, q)
	if err != nil {
		logger.Warn("fetch failed, showing no rows", zap.String("source", source), zap.Error(err))
		return FetchResult{Records: []records.Record{}, Err: &FetchFailure{Source: source, Err: err}}
	}
	if rows == nil {
		rows = []records.Record{}
	}
	return FetchResult{Records: rows}
}

// matches reports whether r satisfies every condition of where.
func matches(r records.Record, where map[string]records.Value) bool {
	for k, want := range where {
		got, ok := r.Get(k)
		if !ok || !records.StrictEqual(got, records.Normalize(want)) {
			return false
		}
	}
	return true
}

// applyQuery filters rows in memory for sources without native querying.
func applyQuery(rows []records.Record, q Query) []records.Record {
	if len(q.Where) == 0 && q.Limit <= 0 {
		return rows
	}
	out := make([]records.Record, 0, len(rows))
	for _, r := range rows {
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		if matches(r, q.Where) {
			out = append(out, r)
		}
	}
	return out
}
