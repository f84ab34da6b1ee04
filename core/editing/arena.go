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
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/nyneos/tabula/core/permissions"
	"github.com/nyneos/tabula/core/records"
)

// UpdateResult is the answer of the write collaborator.
type UpdateResult struct {
	Success bool
	Message string
	// Record optionally carries fields the server changed on its own, such
	// as an updated_at stamp. They are applied on top of the diff.
	Record records.Record
}

// Updater is the write collaborator. It receives only the changed fields.
type Updater interface {
	UpdateRecord(ctx context.Context, rowID string, diff records.Record) (UpdateResult, error)
}

// UpdaterFunc adapts a function to Updater.
type UpdaterFunc func(ctx context.Context, rowID string, diff records.Record) (UpdateResult, error)

// UpdateRecord calls f.
func (f UpdaterFunc) UpdateRecord(ctx context.Context, rowID string, diff records.Record) (UpdateResult, error) {
	return f(ctx, rowID, diff)
}

// CommitHook receives the fields to merge into the canonical row after a
// successful commit.
type CommitHook func(rowID string, applied records.Record)

// Status tells how a commit ended.
type Status int

const (
	// StatusCommitted: the collaborator accepted the diff and the canonical
	// row was updated.
	StatusCommitted Status = iota
	// StatusUnchanged: the draft equals the original; nothing was sent.
	StatusUnchanged
	// StatusSuperseded: the session was cancelled while the call was in
	// flight; the result was discarded.
	StatusSuperseded
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusUnchanged:
		return "unchanged"
	case StatusSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// CommitResult describes a commit that did not fail.
type CommitResult struct {
	Status Status
	RowID  string
	// Diff is what was sent; Applied what was merged into canonical state.
	Diff    records.Record
	Applied records.Record
	Message string
}

// InFlight tracks the rows of a table with a write outstanding. Arenas that
// edit the same table share one, so a row never has two writes at once.
type InFlight struct {
	mu   sync.Mutex
	rows map[string]bool
}

// NewInFlight creates an empty tracker.
func NewInFlight() *InFlight {
	return &InFlight{rows: make(map[string]bool)}
}

// acquire marks rowID as in flight. It returns false if it already was.
func (f *InFlight) acquire(rowID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[rowID] {
		return false
	}
	f.rows[rowID] = true
	return true
}

func (f *InFlight) release(rowID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, rowID)
}

// Busy reports whether rowID has a write outstanding.
func (f *InFlight) Busy(rowID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[rowID]
}

// Arena holds the open edit sessions of one table, at most one per row id.
// All methods are safe for concurrent use. Collaborator calls are made
// without holding the arena lock, so commits on different rows proceed in
// parallel.
type Arena struct {
	idField string
	updater Updater
	onApply  CommitHook
	logger   *zap.Logger
	inflight *InFlight

	mu       sync.Mutex
	caps     permissions.Capabilities
	sessions map[string]*Session
}

// Option configures an Arena.
type Option func(*Arena)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Arena) { a.logger = l }
}

// WithCapabilities sets the capabilities the arena enforces. The default
// grants everything.
func WithCapabilities(c permissions.Capabilities) Option {
	return func(a *Arena) { a.caps = c }
}

// WithCommitHook sets the function that merges committed changes into the
// canonical rows.
func WithCommitHook(h CommitHook) Option {
	return func(a *Arena) { a.onApply = h }
}

// WithInFlight shares the tracker of outstanding writes with other arenas
// of the same table.
func WithInFlight(f *InFlight) Option {
	return func(a *Arena) { a.inflight = f }
}

// NewArena creates an arena for rows identified by idField.
func NewArena(idField string, updater Updater, opts ...Option) *Arena {
	a := &Arena{
		idField:  idField,
		updater:  updater,
		logger:   zap.NewNop(),
		caps:     permissions.All(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.inflight == nil {
		a.inflight = NewInFlight()
	}
	return a
}

// SetCapabilities replaces the enforced capabilities.
func (a *Arena) SetCapabilities(c permissions.Capabilities) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.caps = c
}

// Capabilities returns the enforced capabilities.
func (a *Arena) Capabilities() permissions.Capabilities {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.caps
}

// Begin opens an edit session on row. The row must carry a non-empty id.
// If a session is already open for the row it is returned unchanged.
func (a *Arena) Begin(row records.Record) (*Session, error) {
	rowID := row.ID(a.idField)
	if rowID == "" {
		return nil, ErrValidation("row has no %s", a.idField)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.caps.Check(permissions.ActionEdit); err != nil {
		return nil, err
	}
	if s, ok := a.sessions[rowID]; ok {
		return s, nil
	}
	s := Begin(rowID, row)
	a.sessions[rowID] = s
	a.logger.Debug("edit session opened", zap.String("row_id", rowID), zap.Stringer("session", s.ID()))
	return s, nil
}

// IsEditing reports whether rowID has an open session.
func (a *Arena) IsEditing(rowID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.sessions[rowID]
	return ok
}

// Open returns the row ids with open sessions, sorted.
func (a *Arena) Open() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.sessions))
	for id := range a.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SetField stores a draft value. Editing is refused while a commit for the
// row is in flight.
func (a *Arena) SetField(rowID, field string, value records.Value) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, err := a.sessionLocked(rowID)
	if err != nil {
		return err
	}
	if s.saving {
		return ErrCommitInFlight
	}
	if field == a.idField {
		return ErrValidation("%s cannot be edited", a.idField)
	}
	s.Set(field, value)
	return nil
}

// Draft returns the current draft of a row.
func (a *Arena) Draft(rowID string) (records.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, err := a.sessionLocked(rowID)
	if err != nil {
		return records.Record{}, err
	}
	return s.Draft(), nil
}

// Diff returns the pending changes of a row.
func (a *Arena) Diff(rowID string) (records.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, err := a.sessionLocked(rowID)
	if err != nil {
		return records.Record{}, err
	}
	return s.Diff(), nil
}

// Cancel discards the session of a row without calling the collaborator.
// A commit already in flight completes, but its result is discarded.
func (a *Arena) Cancel(rowID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, err := a.sessionLocked(rowID)
	if err != nil {
		return err
	}
	delete(a.sessions, rowID)
	a.logger.Debug("edit session cancelled", zap.String("row_id", rowID), zap.Bool("in_flight", s.saving))
	return nil
}

// Commit sends the diff of a row's session to the collaborator.
//
// An empty diff closes the session without a call. Otherwise at most one
// call is in flight per row id, across sessions and across arenas sharing
// an InFlight; a Commit on a row with a write outstanding returns
// ErrCommitInFlight, even from a session reopened after a Cancel. On success the applied fields go to the commit hook and
// the session closes. On failure the session stays open with its draft and
// an *UpdateFailure is returned. If the session was cancelled meanwhile the
// outcome is discarded and StatusSuperseded is reported.
func (a *Arena) Commit(ctx context.Context, rowID string) (CommitResult, error) {
	a.mu.Lock()
	s, err := a.sessionLocked(rowID)
	if err != nil {
		a.mu.Unlock()
		return CommitResult{}, err
	}
	if err := a.caps.Check(permissions.ActionEdit); err != nil {
		a.mu.Unlock()
		return CommitResult{}, err
	}
	if s.saving {
		a.mu.Unlock()
		return CommitResult{}, ErrCommitInFlight
	}
	diff := s.Diff()
	if diff.IsEmpty() {
		delete(a.sessions, rowID)
		a.mu.Unlock()
		return CommitResult{Status: StatusUnchanged, RowID: rowID}, nil
	}
	if !a.inflight.acquire(rowID) {
		a.mu.Unlock()
		return CommitResult{}, ErrCommitInFlight
	}
	s.saving = true
	a.mu.Unlock()

	res, callErr := a.updater.UpdateRecord(ctx, rowID, diff)

	a.mu.Lock()
	a.inflight.release(rowID)
	s.saving = false
	superseded := a.sessions[rowID] != s
	if !superseded && callErr == nil && res.Success {
		delete(a.sessions, rowID)
	}
	a.mu.Unlock()

	if superseded {
		a.logger.Info("discarding result of cancelled edit",
			zap.String("row_id", rowID), zap.Stringer("session", s.ID()), zap.Bool("success", callErr == nil && res.Success))
		return CommitResult{Status: StatusSuperseded, RowID: rowID, Diff: diff, Message: res.Message}, nil
	}
	if callErr != nil || !res.Success {
		failure := &UpdateFailure{RowID: rowID, Message: res.Message, Err: callErr}
		a.logger.Warn("update failed, keeping draft", zap.String("row_id", rowID), zap.Error(failure))
		return CommitResult{}, failure
	}

	applied := diff.Merge(res.Record)
	if a.onApply != nil {
		a.onApply(rowID, applied)
	}
	a.logger.Info("edit committed", zap.String("row_id", rowID), zap.Strings("fields", diff.Keys()))
	return CommitResult{Status: StatusCommitted, RowID: rowID, Diff: diff, Applied: applied, Message: res.Message}, nil
}

func (a *Arena) sessionLocked(rowID string) (*Session, error) {
	if rowID == "" {
		return nil, ErrValidation("row id is required")
	}
	s, ok := a.sessions[rowID]
	if !ok {
		return nil, ErrValidation("row %s is not being edited", rowID)
	}
	return s, nil
}
