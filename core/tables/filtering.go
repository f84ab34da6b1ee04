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

package tables

import (
	"slices"
	"strings"

	"github.com/nyneos/tabula/core/columns"
	"github.com/nyneos/tabula/core/records"
)

// Filter keeps the rows whose displayed value contains the filter text of
// every filtered column, ignoring case. Filters naming unknown columns or
// holding blank text are ignored. The input is never modified.
func Filter(rows []records.Record, model *columns.Model, filters map[string]string) []records.Record {
	type active struct {
		col    columns.Descriptor
		needle string
	}
	ids := make([]string, 0, len(filters))
	for id := range filters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	var preds []active
	for _, id := range ids {
		needle := strings.ToLower(strings.TrimSpace(filters[id]))
		if needle == "" {
			continue
		}
		d, ok := model.Descriptor(id)
		if !ok {
			continue
		}
		preds = append(preds, active{col: d, needle: needle})
	}
	if len(preds) == 0 {
		return rows
	}
	out := make([]records.Record, 0, len(rows))
	for _, r := range rows {
		keep := true
		for _, p := range preds {
			if !strings.Contains(strings.ToLower(records.Format(p.col.Value(r))), p.needle) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}
