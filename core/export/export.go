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

// Package export writes the visible part of a projection: the visible
// columns in display order, the projected rows, and one total row over
// those rows when any visible column has a total.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/nyneos/tabula/core/permissions"
	"github.com/nyneos/tabula/core/records"
	"github.com/nyneos/tabula/core/tables"
)

// TotalLabel is written in the first column of the total row when that
// column has no total of its own.
const TotalLabel = "Total"

// Exporter writes a projection to w.
type Exporter interface {
	Export(w io.Writer, p *tables.Projection) error
	// ContentType is the MIME type of the output.
	ContentType() string
	// Extension is the file extension of the output, without the dot.
	Extension() string
}

// ForFormat returns the exporter for a format name: csv, tsv or ascii.
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "csv":
		return CSV{}, nil
	case "tsv":
		return CSV{Comma: '\t'}, nil
	case "ascii", "txt", "text":
		return ASCII{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// Guarded checks the export capability before writing anything.
func Guarded(caps permissions.Capabilities, e Exporter, w io.Writer, p *tables.Projection) error {
	if err := caps.Check(permissions.ActionExport); err != nil {
		return err
	}
	return e.Export(w, p)
}

// Grid is the text content of an export: a header line, the row lines and
// an optional total line.
type Grid struct {
	Header []string
	Rows   [][]string
	Total  []string // nil when there is no total row
}

// BuildGrid renders the projection cells as text.
func BuildGrid(p *tables.Projection) Grid {
	g := Grid{
		Header: make([]string, len(p.Columns)),
		Rows:   make([][]string, len(p.Rows)),
	}
	for i, c := range p.Columns {
		g.Header[i] = c.Label
	}
	for i, r := range p.Rows {
		line := make([]string, len(p.Columns))
		for j, c := range p.Columns {
			line[j] = records.Format(c.Value(r))
		}
		g.Rows[i] = line
	}
	if p.HasPageTotal() {
		g.Total = make([]string, len(p.Columns))
		for i, c := range p.Columns {
			g.Total[i] = p.PageTotal.Format(c.ID)
		}
		if len(g.Total) > 0 && g.Total[0] == "" {
			g.Total[0] = TotalLabel
		}
	}
	return g
}

// CSV writes RFC 4180 records. The zero value uses a comma.
type CSV struct {
	Comma rune
}

// Export writes the header, the rows and the total row.
func (c CSV) Export(w io.Writer, p *tables.Projection) error {
	g := BuildGrid(p)
	cw := csv.NewWriter(w)
	if c.Comma != 0 {
		cw.Comma = c.Comma
	}
	if err := cw.Write(g.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(g.Rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	if g.Total != nil {
		if err := cw.Write(g.Total); err != nil {
			return fmt.Errorf("writing total: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ContentType implements Exporter.
func (c CSV) ContentType() string {
	if c.Comma == '\t' {
		return "text/tab-separated-values"
	}
	return "text/csv"
}

// Extension implements Exporter.
func (c CSV) Extension() string {
	if c.Comma == '\t' {
		return "tsv"
	}
	return "csv"
}
