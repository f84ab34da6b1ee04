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

package records

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Normalize converts any Go numeric type to float64 and leaves other values
// untouched. json.Number is parsed; an unparseable json.Number stays a string.
func Normalize(v Value) Value {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	default:
		return v
	}
}

// IsNumeric reports whether v is a number. Numeric strings are not numbers.
func IsNumeric(v Value) bool {
	f, ok := Normalize(v).(float64)
	return ok && !math.IsNaN(f)
}

// AsFloat returns v as a float64 when it is a number.
func AsFloat(v Value) (float64, bool) {
	f, ok := Normalize(v).(float64)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Coerce converts v to a number. Numbers pass through; strings holding a
// decimal number (surrounding spaces and thousands separators allowed) are
// parsed. Everything else, including nil, blank strings and booleans, does
// not coerce.
func Coerce(v Value) (float64, bool) {
	if f, ok := AsFloat(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// StrictEqual compares two values without type coercion: 1 and "1" differ,
// nil equals only nil.
func StrictEqual(a, b Value) bool {
	a, b = Normalize(a), Normalize(b)
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

// Format renders a value for display and for use as a group key.
// nil renders as "".
func Format(v Value) string {
	switch x := Normalize(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

var dateLike = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?$`)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// IsDateLike reports whether v is a string shaped like an ISO date or
// date-time.
func IsDateLike(v Value) bool {
	s, ok := v.(string)
	return ok && dateLike.MatchString(s)
}

// ParseTime parses an ISO date-like string. Strings without a zone are read
// as UTC.
func ParseTime(v Value) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || !dateLike.MatchString(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
