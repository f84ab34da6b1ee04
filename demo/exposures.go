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

// Package demo seeds and serves a sample exposure workflow table.
package demo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nyneos/tabula/core/records"
	"github.com/nyneos/tabula/datasources"
)

// DefaultExposureRows is the number of rows seeded by default.
const DefaultExposureRows = 500

// ExposureIDField identifies exposure rows.
const ExposureIDField = "exposure_header_id"

// Values cycled through when generating rows. Cycle lengths are pairwise
// coprime so every combination shows up.
var (
	businessUnits  = []string{"Treasury", "Trading", "Retail", "Corporate", "Wealth", ""}
	currencies     = []string{"USD", "EUR", "GBP", "JPY", "INR", "CHF", "SGD"}
	counterparties = []string{"Acme Corp", "Globex", "Initech", "Umbrella", "Hooli", "Stark Industries", "Wayne Enterprises", "Tyrell", "Cyberdyne", "Soylent", "Massive Dynamic"}
	statuses       = []string{"Pending", "Pending", "Approved", "Rejected", "Pending"}
	exposureTypes  = []string{"Payable", "Receivable", "Loan", "Deposit", "Forward", "Swap", "Option", "Bond", "Guarantee", "Letter of Credit", "Collateral", "Margin", "Fee"}
)

// Exposures generates n deterministic exposure rows. An empty business unit
// is stored as nil so it groups under the blank group.
func Exposures(n int) []records.Record {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]records.Record, n)
	for i := 0; i < n; i++ {
		var bu records.Value
		if v := businessUnits[i%len(businessUnits)]; v != "" {
			bu = v
		}
		// Spread amounts over several orders of magnitude, rounded to cents.
		amount := math.Round((float64((i*7919)%100000)+0.37*float64(i%100))*math.Pow(10, float64(i%3))) / 100

		rows[i] = records.New(
			records.F(ExposureIDField, fmt.Sprintf("EXP-%05d", i+1)),
			records.F("business_unit", bu),
			records.F("counterparty", counterparties[i%len(counterparties)]),
			records.F("currency", currencies[i%len(currencies)]),
			records.F("exposure_type", exposureTypes[i%len(exposureTypes)]),
			records.F("document_date", base.AddDate(0, 0, (i*13)%365).Format("2006-01-02")),
			records.F("total_open_amount", amount),
			records.F("hedged", i%4 == 0),
			records.F("status", statuses[i%len(statuses)]),
			records.F("checker_by", nil),
			records.F("checker_comment", nil),
			records.F(datasources.UpdatedAtField, nil),
		)
	}
	return rows
}

// Seed creates table in store if needed and writes n generated exposures.
// Existing rows with the same ids are replaced.
func Seed(ctx context.Context, store *datasources.Store, table string, n int) error {
	if n <= 0 {
		return fmt.Errorf("row count must be positive, got %d", n)
	}
	rows := Exposures(n)
	if err := store.CreateTable(ctx, table, ExposureIDField, rows[0]); err != nil {
		return err
	}
	return store.Insert(ctx, table, rows)
}
