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

package editing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyneos/tabula/core/permissions"
	"github.com/nyneos/tabula/core/records"
)

type fakeBulk struct {
	accept map[string]bool
	err    error
	calls  int
}

func (f *fakeBulk) filter(ids []string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, id := range ids {
		if f.accept[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeBulk) BulkApprove(_ context.Context, ids []string, _, _ string) ([]string, error) {
	return f.filter(ids)
}

func (f *fakeBulk) BulkReject(_ context.Context, ids []string, _, _ string) ([]string, error) {
	return f.filter(ids)
}

func (f *fakeBulk) BulkDelete(_ context.Context, ids []string) ([]string, error) {
	return f.filter(ids)
}

type fakeRows struct {
	applied map[string]records.Record
	removed []string
}

func (r *fakeRows) ApplyFields(ids []string, fields records.Record) []string {
	if r.applied == nil {
		r.applied = map[string]records.Record{}
	}
	for _, id := range ids {
		r.applied[id] = fields
	}
	return ids
}

func (r *fakeRows) Remove(ids []string) []string {
	r.removed = append(r.removed, ids...)
	return ids
}

func TestBulkApproveAppliesOnlyConfirmed(t *testing.T) {
	up := &fakeBulk{accept: map[string]bool{"a": true, "c": true}}
	rows := &fakeRows{}
	b := NewBulk(up, rows, DefaultStatusFields, nil, nil)

	res, err := b.Approve(context.Background(), []string{"a", "b", "c", "a", ""}, "maker", "ok")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, res.Requested)
	assert.Equal(t, []string{"a", "c"}, res.Confirmed)
	assert.Equal(t, []string{"b"}, res.Skipped())

	require.Len(t, rows.applied, 2)
	fields := rows.applied["a"]
	assert.Equal(t, "Approved", fields.Value("status"))
	assert.Equal(t, "maker", fields.Value("checker_by"))
	assert.Equal(t, "ok", fields.Value("checker_comment"))
}

func TestBulkRejectOmitsEmptyComment(t *testing.T) {
	up := &fakeBulk{accept: map[string]bool{"a": true}}
	rows := &fakeRows{}
	b := NewBulk(up, rows, DefaultStatusFields, nil, nil)

	_, err := b.Reject(context.Background(), []string{"a"}, "checker", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"status", "checker_by"}, rows.applied["a"].Keys())
	assert.Equal(t, "Rejected", rows.applied["a"].Value("status"))
}

func TestBulkDeleteRemovesConfirmed(t *testing.T) {
	up := &fakeBulk{accept: map[string]bool{"b": true, "zz": true}}
	rows := &fakeRows{}
	b := NewBulk(up, rows, DefaultStatusFields, nil, nil)

	res, err := b.Delete(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, res.Confirmed, "ids that were not requested are ignored")
	assert.Equal(t, []string{"b"}, rows.removed)
}

func TestBulkEmptySelectionIsValidationGap(t *testing.T) {
	up := &fakeBulk{}
	b := NewBulk(up, &fakeRows{}, DefaultStatusFields, nil, nil)

	_, err := b.Approve(context.Background(), nil, "", "")
	assert.True(t, IsValidationGap(err))
	_, err = b.Delete(context.Background(), []string{""})
	assert.True(t, IsValidationGap(err))
	assert.Zero(t, up.calls)
}

func TestBulkRequiresCapability(t *testing.T) {
	up := &fakeBulk{}
	caps := func() permissions.Capabilities { return permissions.Capabilities{CanApprove: true} }
	b := NewBulk(up, &fakeRows{}, DefaultStatusFields, caps, nil)

	_, err := b.Reject(context.Background(), []string{"a"}, "", "")
	assert.ErrorIs(t, err, permissions.ErrNotPermitted)
	_, err = b.Delete(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, permissions.ErrNotPermitted)
	assert.Zero(t, up.calls)
}

func TestBulkCollaboratorErrorLeavesRowsUntouched(t *testing.T) {
	boom := errors.New("timeout")
	rows := &fakeRows{}
	b := NewBulk(&fakeBulk{err: boom}, rows, DefaultStatusFields, nil, nil)

	_, err := b.Approve(context.Background(), []string{"a"}, "", "")
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsUpdateFailure(err))
	assert.Empty(t, rows.applied)
}
