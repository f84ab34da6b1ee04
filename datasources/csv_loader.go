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

package datasources

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nyneos/tabula/core/records"
)

// CSVOptions configures CSV reading.
type CSVOptions struct {
	// HasHeader indicates whether the first row contains column names.
	HasHeader bool
	// Delimiter is the field delimiter (defaults to comma).
	Delimiter rune
	// Types forces the type of specific columns by name.
	Types map[string]ColumnType
	// SampleSize is the number of rows sampled for type detection (default: 100).
	SampleSize int
}

// DefaultCSVOptions returns default options.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		HasHeader:  true,
		Delimiter:  ',',
		SampleSize: 100,
	}
}

// CSVSource is a Fetcher reading a CSV file on every fetch.
type CSVSource struct {
	Path    string
	Options CSVOptions
}

// NewCSVSource creates a CSV source with default options. idField is always
// read as a string so ids keep leading zeros.
func NewCSVSource(path, idField string) *CSVSource {
	opts := DefaultCSVOptions()
	if idField != "" {
		opts.Types = map[string]ColumnType{idField: TypeString}
	}
	return &CSVSource{Path: path, Options: opts}
}

// Fetch reads the file and applies q in memory.
func (s *CSVSource) Fetch(ctx context.Context, q Query) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := ReadCSV(file, s.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return applyQuery(rows, q), nil
}

// ReadCSV reads CSV data into records. Column types are detected from a
// sample of the data unless forced through options: numbers become float64,
// true/false become bool, everything else stays a string. Empty cells of
// number and bool columns are nil.
func ReadCSV(r io.Reader, options CSVOptions) ([]records.Record, error) {
	reader := csv.NewReader(r)
	if options.Delimiter != 0 {
		reader.Comma = options.Delimiter
	}
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return []records.Record{}, nil
	}

	var headers []string
	dataRows := rows
	if options.HasHeader {
		headers = make([]string, len(rows[0]))
		for i, h := range rows[0] {
			headers[i] = strings.TrimSpace(h)
		}
		dataRows = rows[1:]
	} else {
		// Generate column names if no header
		headers = make([]string, len(rows[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	sampleSize := options.SampleSize
	if sampleSize <= 0 {
		sampleSize = 100
	}
	types := detectColumnTypes(headers, dataRows, sampleSize, options.Types)

	out := make([]records.Record, 0, len(dataRows))
	for _, row := range dataRows {
		fields := make([]records.Field, len(headers))
		for i, h := range headers {
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			fields[i] = records.F(h, convert(value, types[i]))
		}
		out = append(out, records.New(fields...))
	}
	return out, nil
}

func convert(value string, t ColumnType) records.Value {
	switch t {
	case TypeNumber:
		if value == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		return value
	case TypeBool:
		if value == "" {
			return nil
		}
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		return value
	default:
		return value
	}
}

// detectColumnTypes samples data to determine if columns are numeric, bool
// or string. A column of only empty cells is a string column.
func detectColumnTypes(headers []string, dataRows [][]string, sampleSize int, forced map[string]ColumnType) []ColumnType {
	types := make([]ColumnType, len(headers))
	rowsToSample := min(sampleSize, len(dataRows))

	for i, header := range headers {
		if t, ok := forced[header]; ok && t != TypeAuto {
			types[i] = t
			continue
		}
		isNumber, isBool, seen := true, true, false
		for _, row := range dataRows[:rowsToSample] {
			if i >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[i])
			if value == "" {
				continue
			}
			seen = true
			if !looksNumeric(value) {
				isNumber = false
			}
			if lower := strings.ToLower(value); lower != "true" && lower != "false" {
				isBool = false
			}
		}
		switch {
		case !seen:
			types[i] = TypeString
		case isNumber:
			types[i] = TypeNumber
		case isBool:
			types[i] = TypeBool
		default:
			types[i] = TypeString
		}
	}
	return types
}

// looksNumeric accepts decimal numbers but not codes with leading zeros such
// as "007", nor hex, inf or nan spellings.
func looksNumeric(s string) bool {
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return false
	}
	for _, r := range digits {
		if (r < '0' || r > '9') && r != '.' && r != 'e' && r != 'E' && r != '-' && r != '+' {
			return false
		}
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
