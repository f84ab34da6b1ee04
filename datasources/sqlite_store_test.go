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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nyneos/tabula/core/editing"
	"github.com/nyneos/tabula/core/records"
)

func exposure(id, bu string, amount float64, status string) records.Record {
	return records.New(
		records.F("id", id),
		records.F("bu", bu),
		records.F("amount", amount),
		records.F("hedged", false),
		records.F("status", status),
		records.F("checker_by", nil),
		records.F("checker_comment", nil),
		records.F("updated_at", nil),
	)
}

func openSeeded(t *testing.T) (*Store, *Table) {
	t.Helper()
	ctx := context.Background()
	store, err := OpenStore(filepath.Join(t.TempDir(), "db", "test.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rows := []records.Record{
		exposure("E1", "BU1", 100, "Pending"),
		exposure("E2", "BU2", 50.5, "Pending"),
		exposure("E3", "BU1", 7, "Approved"),
	}
	require.NoError(t, store.CreateTable(ctx, "exposures", "id", rows[0]))
	require.NoError(t, store.Insert(ctx, "exposures", rows))

	store.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return store, store.Table("exposures", "id", editing.DefaultStatusFields)
}

func TestStoreFetchRestoresTypes(t *testing.T) {
	_, table := openSeeded(t)

	rows, err := table.Fetch(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, []string{"id", "bu", "amount", "hedged", "status", "checker_by", "checker_comment", "updated_at"}, first.Keys())
	assert.Equal(t, "E1", first.Value("id"))
	assert.Equal(t, 100.0, first.Value("amount"))
	assert.Equal(t, false, first.Value("hedged"))
	v, ok := first.Get("checker_by")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, 50.5, rows[1].Value("amount"))
}

func TestStoreFetchWhereAndLimit(t *testing.T) {
	_, table := openSeeded(t)
	ctx := context.Background()

	rows, err := table.Fetch(ctx, Query{Where: map[string]records.Value{"bu": "BU1"}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "E3", rows[1].ID("id"))

	rows, err = table.Fetch(ctx, Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = table.Fetch(ctx, Query{Where: map[string]records.Value{"nope": 1}})
	assert.Error(t, err)
}

func TestStoreFetchMissingTable(t *testing.T) {
	store, _ := openSeeded(t)
	_, err := store.Fetch(context.Background(), Query{Table: "absent"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestTableUpdateRecord(t *testing.T) {
	_, table := openSeeded(t)
	ctx := context.Background()

	res, err := table.UpdateRecord(ctx, "E2", records.New(records.F("amount", 60.0)))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "2024-05-01T12:00:00Z", res.Record.Value("updated_at"))

	rows, err := table.Fetch(ctx, Query{Where: map[string]records.Value{"id": "E2"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 60.0, rows[0].Value("amount"))
	assert.Equal(t, "2024-05-01T12:00:00Z", rows[0].Value("updated_at"))
}

func TestTableUpdateRecordRefusals(t *testing.T) {
	_, table := openSeeded(t)
	ctx := context.Background()

	res, err := table.UpdateRecord(ctx, "E9", records.New(records.F("amount", 1.0)))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "row E9 not found", res.Message)

	res, err = table.UpdateRecord(ctx, "E1", records.New(records.F("colour", "red")))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "colour")
}

func TestTableBulkTransitions(t *testing.T) {
	_, table := openSeeded(t)
	ctx := context.Background()

	done, err := table.BulkApprove(ctx, []string{"E1", "E3", "E9"}, "checker", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"E1"}, done, "already approved and unknown rows are not confirmed")

	done, err = table.BulkReject(ctx, []string{"E2"}, "checker", "bad rate")
	require.NoError(t, err)
	assert.Equal(t, []string{"E2"}, done)

	rows, err := table.Fetch(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, "Approved", rows[0].Value("status"))
	assert.Equal(t, "checker", rows[0].Value("checker_by"))
	assert.Nil(t, rows[0].Value("checker_comment"))
	assert.Equal(t, "Rejected", rows[1].Value("status"))
	assert.Equal(t, "bad rate", rows[1].Value("checker_comment"))
}

func TestTableBulkDelete(t *testing.T) {
	_, table := openSeeded(t)
	ctx := context.Background()

	done, err := table.BulkDelete(ctx, []string{"E2", "E9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"E2"}, done)

	rows, err := table.Fetch(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestTableBulkWithoutStatusColumn(t *testing.T) {
	store, _ := openSeeded(t)
	table := store.Table("exposures", "id", editing.StatusFields{Status: "state", Approved: "OK"})
	_, err := table.BulkApprove(context.Background(), []string{"E1"}, "", "")
	assert.Error(t, err)
}

func TestTableSatisfiesCollaborators(t *testing.T) {
	var _ Fetcher = (*Table)(nil)
	var _ editing.Updater = (*Table)(nil)
	var _ editing.BulkUpdater = (*Table)(nil)
}
