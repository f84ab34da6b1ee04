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
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/nyneos/tabula/core/permissions"
	"github.com/nyneos/tabula/core/records"
)

// BulkUpdater is the collaborator for workflow actions on many rows. Each
// method returns the ids it actually processed; ids it skipped are simply
// absent from the result.
type BulkUpdater interface {
	BulkApprove(ctx context.Context, ids []string, by, comment string) ([]string, error)
	BulkReject(ctx context.Context, ids []string, by, comment string) ([]string, error)
	BulkDelete(ctx context.Context, ids []string) ([]string, error)
}

// Rows is the canonical row store bulk actions write to.
type Rows interface {
	ApplyFields(ids []string, fields records.Record) []string
	Remove(ids []string) []string
}

// StatusFields names the fields a bulk approve or reject sets on confirmed
// rows. Empty names are not written.
type StatusFields struct {
	Status   string `yaml:"status"`
	By       string `yaml:"by"`
	Comment  string `yaml:"comment"`
	Approved string `yaml:"approved"`
	Rejected string `yaml:"rejected"`
}

// DefaultStatusFields matches a typical approval workflow table.
var DefaultStatusFields = StatusFields{
	Status:   "status",
	By:       "checker_by",
	Comment:  "checker_comment",
	Approved: "Approved",
	Rejected: "Rejected",
}

// BulkResult lists the ids the collaborator confirmed.
type BulkResult struct {
	Action    permissions.Action
	Requested []string
	Confirmed []string
}

// Skipped returns the requested ids that were not confirmed.
func (r BulkResult) Skipped() []string {
	var out []string
	for _, id := range r.Requested {
		if !slices.Contains(r.Confirmed, id) {
			out = append(out, id)
		}
	}
	return out
}

// Bulk runs workflow actions. Local rows change only after, and only for the
// ids, the collaborator confirms.
type Bulk struct {
	updater BulkUpdater
	rows    Rows
	fields  StatusFields
	caps    func() permissions.Capabilities
	logger  *zap.Logger
}

// NewBulk creates a Bulk that writes confirmed changes to rows. caps is
// consulted on every call; nil grants everything.
func NewBulk(updater BulkUpdater, rows Rows, fields StatusFields, caps func() permissions.Capabilities, logger *zap.Logger) *Bulk {
	if caps == nil {
		caps = permissions.All
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bulk{updater: updater, rows: rows, fields: fields, caps: caps, logger: logger}
}

// Approve marks ids approved.
func (b *Bulk) Approve(ctx context.Context, ids []string, by, comment string) (BulkResult, error) {
	return b.transition(ctx, permissions.ActionApprove, ids, by, comment)
}

// Reject marks ids rejected.
func (b *Bulk) Reject(ctx context.Context, ids []string, by, comment string) (BulkResult, error) {
	return b.transition(ctx, permissions.ActionReject, ids, by, comment)
}

// Delete removes ids.
func (b *Bulk) Delete(ctx context.Context, ids []string) (BulkResult, error) {
	ids, err := b.prepare(permissions.ActionDelete, ids)
	if err != nil {
		return BulkResult{}, err
	}
	confirmed, err := b.updater.BulkDelete(ctx, ids)
	if err != nil {
		b.logger.Warn("bulk delete failed", zap.Int("rows", len(ids)), zap.Error(err))
		return BulkResult{}, &UpdateFailure{RowID: fmt.Sprintf("%d rows", len(ids)), Err: err}
	}
	confirmed = intersect(ids, confirmed)
	b.rows.Remove(confirmed)
	b.logger.Info("bulk delete", zap.Int("requested", len(ids)), zap.Int("confirmed", len(confirmed)))
	return BulkResult{Action: permissions.ActionDelete, Requested: ids, Confirmed: confirmed}, nil
}

func (b *Bulk) transition(ctx context.Context, action permissions.Action, ids []string, by, comment string) (BulkResult, error) {
	ids, err := b.prepare(action, ids)
	if err != nil {
		return BulkResult{}, err
	}

	var confirmed []string
	status := b.fields.Approved
	if action == permissions.ActionApprove {
		confirmed, err = b.updater.BulkApprove(ctx, ids, by, comment)
	} else {
		status = b.fields.Rejected
		confirmed, err = b.updater.BulkReject(ctx, ids, by, comment)
	}
	if err != nil {
		b.logger.Warn("bulk transition failed", zap.String("action", string(action)), zap.Int("rows", len(ids)), zap.Error(err))
		return BulkResult{}, &UpdateFailure{RowID: fmt.Sprintf("%d rows", len(ids)), Err: err}
	}
	confirmed = intersect(ids, confirmed)

	var fields []records.Field
	if b.fields.Status != "" {
		fields = append(fields, records.F(b.fields.Status, status))
	}
	if b.fields.By != "" && by != "" {
		fields = append(fields, records.F(b.fields.By, by))
	}
	if b.fields.Comment != "" && comment != "" {
		fields = append(fields, records.F(b.fields.Comment, comment))
	}
	if len(fields) > 0 {
		b.rows.ApplyFields(confirmed, records.New(fields...))
	}
	b.logger.Info("bulk transition",
		zap.String("action", string(action)), zap.Int("requested", len(ids)), zap.Int("confirmed", len(confirmed)))
	return BulkResult{Action: action, Requested: ids, Confirmed: confirmed}, nil
}

func (b *Bulk) prepare(action permissions.Action, ids []string) ([]string, error) {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(clean, id) {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return nil, ErrValidation("no rows selected for %s", action)
	}
	if err := b.caps().Check(action); err != nil {
		return nil, err
	}
	return clean, nil
}

// intersect keeps the confirmed ids that were requested, in request order.
func intersect(requested, confirmed []string) []string {
	out := make([]string, 0, len(confirmed))
	for _, id := range requested {
		if slices.Contains(confirmed, id) {
			out = append(out, id)
		}
	}
	return out
}
