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

package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nyneos/tabula/core/tables"
)

// ASCII writes a bordered plain-text table.
//
//	+-------+-----+
//	| Id    | Amt |
//	+-------+-----+
//	| 1     | 10  |
//	+-------+-----+
//	| Total | 10  |
//	+-------+-----+
type ASCII struct{}

// Export writes the table with a border line between header, rows and the
// total row.
func (ASCII) Export(w io.Writer, p *tables.Projection) error {
	g := BuildGrid(p)
	widths := columnWidths(g)

	bw := bufio.NewWriter(w)
	border := borderLine(widths)
	bw.WriteString(border)
	writeLine(bw, g.Header, widths)
	bw.WriteString(border)
	for _, row := range g.Rows {
		writeLine(bw, row, widths)
	}
	if g.Total != nil {
		bw.WriteString(border)
		writeLine(bw, g.Total, widths)
	}
	bw.WriteString(border)
	return bw.Flush()
}

// ContentType implements Exporter.
func (ASCII) ContentType() string { return "text/plain; charset=utf-8" }

// Extension implements Exporter.
func (ASCII) Extension() string { return "txt" }

// columnWidths calculates the width needed for each column
func columnWidths(g Grid) []int {
	widths := make([]int, len(g.Header))
	// Set minimum width to 1
	for i := range widths {
		widths[i] = 1
	}
	grow := func(line []string) {
		for i, s := range line {
			if n := utf8.RuneCountInString(s); n > widths[i] {
				widths[i] = n
			}
		}
	}
	grow(g.Header)
	for _, row := range g.Rows {
		grow(row)
	}
	if g.Total != nil {
		grow(g.Total)
	}
	return widths
}

func borderLine(widths []int) string {
	var sb strings.Builder
	for _, w := range widths {
		sb.WriteString("+")
		sb.WriteString(strings.Repeat("-", w+2))
	}
	sb.WriteString("+\n")
	return sb.String()
}

func writeLine(bw *bufio.Writer, cells []string, widths []int) {
	for i, s := range cells {
		pad := widths[i] - utf8.RuneCountInString(s)
		fmt.Fprintf(bw, "| %s%s ", s, strings.Repeat(" ", pad))
	}
	bw.WriteString("|\n")
}
