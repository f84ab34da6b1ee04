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

package columns

import (
	"math"
	"strings"
	"time"

	"github.com/nyneos/tabula/core/records"
)

// Kind selects the comparator used for a column.
type Kind int

const (
	KindString Kind = iota
	KindNumeric
	KindDate
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// DetectKind picks a comparator kind from a column's values. Nil values are
// ignored. A column is numeric when every other value is a number, a date
// when every other value is an ISO date-like string, and a string otherwise.
// A column of only nils is a string column.
func DetectKind(values []records.Value) Kind {
	numeric, date, seen := true, true, false
	for _, v := range values {
		if v == nil {
			continue
		}
		seen = true
		if numeric && !records.IsNumeric(v) {
			numeric = false
		}
		if date && !records.IsDateLike(v) {
			date = false
		}
		if !numeric && !date {
			return KindString
		}
	}
	switch {
	case !seen:
		return KindString
	case numeric:
		return KindNumeric
	case date:
		return KindDate
	default:
		return KindString
	}
}

// CompareValues compares two values of a column of the given kind.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
// Nil values sort after all other values.
func CompareValues(kind Kind, a, b records.Value) int {
	if a == nil || b == nil {
		return compareNils(a == nil, b == nil)
	}
	switch kind {
	case KindNumeric:
		af, aok := records.AsFloat(a)
		bf, bok := records.AsFloat(b)
		if aok && bok {
			return compareFloat64s(af, bf)
		}
	case KindDate:
		at, aok := records.ParseTime(a)
		bt, bok := records.ParseTime(b)
		if aok && bok {
			return compareTimes(at, bt)
		}
	}
	return strings.Compare(records.Format(a), records.Format(b))
}

// compareTimes compares two time.Time values
func compareTimes(a, b time.Time) int {
	if a.Before(b) {
		return -1
	}
	if a.After(b) {
		return 1
	}
	return 0
}

// compareFloat64s compares two float64 values with NaN handling.
// NaN values are considered greater than all other values (sort to end).
func compareFloat64s(a, b float64) int {
	aNaN := math.IsNaN(a)
	bNaN := math.IsNaN(b)

	if aNaN && bNaN {
		return 0
	}
	if aNaN {
		return 1
	}
	if bNaN {
		return -1
	}

	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// compareNils orders nil after any value.
func compareNils(aNil, bNil bool) int {
	if aNil && bNil {
		return 0
	}
	if aNil {
		return 1
	}
	return -1
}
