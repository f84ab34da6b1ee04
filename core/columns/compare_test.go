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
	"testing"

	"github.com/nyneos/tabula/core/records"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name   string
		values []records.Value
		want   Kind
	}{
		{"numbers", []records.Value{1.0, 2.0, nil}, KindNumeric},
		{"dates", []records.Value{"2024-01-01", nil, "2023-12-31T10:00:00Z"}, KindDate},
		{"strings", []records.Value{"b", "a"}, KindString},
		{"numeric strings are strings", []records.Value{"1", "2"}, KindString},
		{"mixed", []records.Value{1.0, "a"}, KindString},
		{"all nil", []records.Value{nil, nil}, KindString},
		{"empty", nil, KindString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectKind(tt.values); got != tt.want {
				t.Errorf("DetectKind(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		a, b records.Value
		want int
	}{
		{"numeric", KindNumeric, 9.0, 10.0, -1},
		{"numeric equal", KindNumeric, 1.0, 1.0, 0},
		{"lexical would differ", KindString, "9", "10", 1},
		{"dates", KindDate, "2024-01-02", "2023-12-31T23:59:59Z", 1},
		{"case sensitive", KindString, "Z", "a", -1},
		{"nil last", KindNumeric, nil, 1.0, 1},
		{"nil first arg", KindString, "a", nil, -1},
		{"both nil", KindString, nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareValues(tt.kind, tt.a, tt.b); got != tt.want {
				t.Errorf("CompareValues(%v, %v, %v) = %d, want %d", tt.kind, tt.a, tt.b, got, tt.want)
			}
		})
	}
}
