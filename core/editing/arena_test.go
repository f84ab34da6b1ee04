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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/nyneos/tabula/core/permissions"
	"github.com/nyneos/tabula/core/records"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func row(id string, fields ...records.Field) records.Record {
	return records.New(append([]records.Field{records.F("id", id)}, fields...)...)
}

// recorder is an Updater that records calls and answers with a fixed result.
type recorder struct {
	mu     sync.Mutex
	calls  []records.Record
	result UpdateResult
	err    error
}

func (r *recorder) UpdateRecord(_ context.Context, _ string, diff records.Record) (UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, diff)
	return r.result, r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// gate is an Updater that blocks until released.
type gate struct {
	entered chan string
	release chan UpdateResult
}

func newGate() *gate {
	return &gate{entered: make(chan string, 4), release: make(chan UpdateResult, 4)}
}

func (g *gate) UpdateRecord(ctx context.Context, rowID string, _ records.Record) (UpdateResult, error) {
	g.entered <- rowID
	select {
	case res := <-g.release:
		return res, nil
	case <-ctx.Done():
		return UpdateResult{}, ctx.Err()
	}
}

type commitOutcome struct {
	res CommitResult
	err error
}

func commitAsync(a *Arena, rowID string) <-chan commitOutcome {
	out := make(chan commitOutcome, 1)
	go func() {
		res, err := a.Commit(context.Background(), rowID)
		out <- commitOutcome{res, err}
	}()
	return out
}

func TestDiffIsMinimal(t *testing.T) {
	s := Begin("1", row("1", records.F("a", 1), records.F("b", "x")))
	s.Set("b", "y")
	s.Set("a", 1)
	assert.True(t, s.Diff().Equal(records.New(records.F("b", "y"))))

	s.Set("b", "x")
	assert.True(t, s.Diff().IsEmpty())
}

func TestDiffStrictEquality(t *testing.T) {
	s := Begin("1", row("1", records.F("amt", 5), records.F("note", nil)))
	s.Set("amt", "5")
	s.Set("extra", nil)
	diff := s.Diff()
	assert.Equal(t, []string{"amt", "extra"}, diff.Keys(), "string 5 differs from number 5, an added field is a change")
}

func TestBeginValidatesAndReusesSession(t *testing.T) {
	a := NewArena("id", &recorder{}, WithLogger(zaptest.NewLogger(t)))

	_, err := a.Begin(records.New(records.F("name", "no id")))
	assert.True(t, IsValidationGap(err))

	s1, err := a.Begin(row("7"))
	require.NoError(t, err)
	s2, err := a.Begin(row("7", records.F("x", 1)))
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, []string{"7"}, a.Open())
}

func TestCommitUnchangedSkipsCollaborator(t *testing.T) {
	rec := &recorder{result: UpdateResult{Success: true}}
	a := NewArena("id", rec)
	_, err := a.Begin(row("1", records.F("a", 1)))
	require.NoError(t, err)

	res, err := a.Commit(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, res.Status)
	assert.Zero(t, rec.count())
	assert.False(t, a.IsEditing("1"))
}

func TestCommitAppliesDiffAndServerFields(t *testing.T) {
	rec := &recorder{result: UpdateResult{Success: true, Record: records.New(records.F("updated_at", "2024-05-01"))}}
	var applied records.Record
	a := NewArena("id", rec, WithCommitHook(func(rowID string, fields records.Record) {
		assert.Equal(t, "1", rowID)
		applied = fields
	}))
	_, err := a.Begin(row("1", records.F("a", 1), records.F("b", "x")))
	require.NoError(t, err)
	require.NoError(t, a.SetField("1", "b", "y"))

	res, err := a.Commit(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)
	require.Equal(t, 1, rec.count())
	assert.True(t, rec.calls[0].Equal(records.New(records.F("b", "y"))), "only changed fields are sent")
	assert.Equal(t, []string{"b", "updated_at"}, applied.Keys())
	assert.False(t, a.IsEditing("1"))
}

func TestCommitFailureKeepsDraft(t *testing.T) {
	rec := &recorder{result: UpdateResult{Success: false, Message: "row locked"}}
	a := NewArena("id", rec)
	_, err := a.Begin(row("1", records.F("b", "x")))
	require.NoError(t, err)
	require.NoError(t, a.SetField("1", "b", "y"))

	_, err = a.Commit(context.Background(), "1")
	var failure *UpdateFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "row locked", failure.Message)
	assert.True(t, a.IsEditing("1"))

	draft, err := a.Draft("1")
	require.NoError(t, err)
	assert.Equal(t, "y", draft.Value("b"))

	boom := errors.New("connection reset")
	rec.err = boom
	_, err = a.Commit(context.Background(), "1")
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsUpdateFailure(err))
}

func TestCommitInFlightRejectsSecondCommitAndEdits(t *testing.T) {
	g := newGate()
	a := NewArena("id", g)
	_, err := a.Begin(row("1", records.F("b", "x")))
	require.NoError(t, err)
	require.NoError(t, a.SetField("1", "b", "y"))

	first := commitAsync(a, "1")
	<-g.entered

	_, err = a.Commit(context.Background(), "1")
	assert.ErrorIs(t, err, ErrCommitInFlight)
	assert.ErrorIs(t, a.SetField("1", "b", "z"), ErrCommitInFlight)

	g.release <- UpdateResult{Success: true}
	out := <-first
	require.NoError(t, out.err)
	assert.Equal(t, StatusCommitted, out.res.Status)
}

func TestCommitsOnDifferentRowsAreIndependent(t *testing.T) {
	g := newGate()
	a := NewArena("id", g)
	for _, id := range []string{"1", "2"} {
		_, err := a.Begin(row(id, records.F("b", "x")))
		require.NoError(t, err)
		require.NoError(t, a.SetField(id, "b", "y"))
	}

	c1 := commitAsync(a, "1")
	c2 := commitAsync(a, "2")
	entered := []string{<-g.entered, <-g.entered}
	assert.ElementsMatch(t, []string{"1", "2"}, entered, "both calls are in flight at once")

	g.release <- UpdateResult{Success: true}
	g.release <- UpdateResult{Success: true}
	for _, c := range []<-chan commitOutcome{c1, c2} {
		out := <-c
		require.NoError(t, out.err)
		assert.Equal(t, StatusCommitted, out.res.Status)
	}
	assert.Empty(t, a.Open())
}

func TestCancelDuringCommitDiscardsResult(t *testing.T) {
	g := newGate()
	hookCalled := false
	a := NewArena("id", g, WithCommitHook(func(string, records.Record) { hookCalled = true }))
	_, err := a.Begin(row("1", records.F("b", "x")))
	require.NoError(t, err)
	require.NoError(t, a.SetField("1", "b", "y"))

	pending := commitAsync(a, "1")
	<-g.entered
	require.NoError(t, a.Cancel("1"))

	g.release <- UpdateResult{Success: true}
	out := <-pending
	require.NoError(t, out.err)
	assert.Equal(t, StatusSuperseded, out.res.Status)
	assert.False(t, hookCalled)
	assert.False(t, a.IsEditing("1"))
}

func TestCancelAndReopenDuringCommit(t *testing.T) {
	g := newGate()
	a := NewArena("id", g)
	_, err := a.Begin(row("1", records.F("b", "x")))
	require.NoError(t, err)
	require.NoError(t, a.SetField("1", "b", "y"))

	pending := commitAsync(a, "1")
	<-g.entered
	require.NoError(t, a.Cancel("1"))
	fresh, err := a.Begin(row("1", records.F("b", "x")))
	require.NoError(t, err)

	g.release <- UpdateResult{Success: false, Message: "stale"}
	out := <-pending
	require.NoError(t, out.err)
	assert.Equal(t, StatusSuperseded, out.res.Status)
	assert.True(t, a.IsEditing("1"), "the new session is untouched")
	assert.False(t, fresh.Saving())
}

func TestReopenedSessionWaitsForOutstandingWrite(t *testing.T) {
	g := newGate()
	a := NewArena("id", g)
	_, err := a.Begin(row("1", records.F("b", "x")))
	require.NoError(t, err)
	require.NoError(t, a.SetField("1", "b", "y"))

	pending := commitAsync(a, "1")
	<-g.entered
	require.NoError(t, a.Cancel("1"))
	_, err = a.Begin(row("1", records.F("b", "x")))
	require.NoError(t, err)
	require.NoError(t, a.SetField("1", "b", "z"))

	_, err = a.Commit(context.Background(), "1")
	assert.ErrorIs(t, err, ErrCommitInFlight, "the first write is still outstanding")
	assert.True(t, a.IsEditing("1"), "the reopened draft is kept")

	g.release <- UpdateResult{Success: true}
	out := <-pending
	require.NoError(t, out.err)
	assert.Equal(t, StatusSuperseded, out.res.Status)

	g.release <- UpdateResult{Success: true}
	res, err := a.Commit(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)
	assert.Equal(t, "z", res.Diff.Value("b"))
	assert.Equal(t, "1", <-g.entered)
}

func TestSharedInFlightSpansArenas(t *testing.T) {
	g := newGate()
	shared := NewInFlight()
	alice := NewArena("id", g, WithInFlight(shared))
	bob := NewArena("id", g, WithInFlight(shared))

	for _, a := range []*Arena{alice, bob} {
		_, err := a.Begin(row("1", records.F("b", "x")))
		require.NoError(t, err)
		require.NoError(t, a.SetField("1", "b", "y"))
	}

	pending := commitAsync(alice, "1")
	<-g.entered
	assert.True(t, shared.Busy("1"))

	_, err := bob.Commit(context.Background(), "1")
	assert.ErrorIs(t, err, ErrCommitInFlight)

	g.release <- UpdateResult{Success: true}
	out := <-pending
	require.NoError(t, out.err)
	assert.Equal(t, StatusCommitted, out.res.Status)
	assert.False(t, shared.Busy("1"))
	assert.True(t, bob.IsEditing("1"), "the other draft is kept")
}

func TestCancelWithoutSession(t *testing.T) {
	a := NewArena("id", &recorder{})
	assert.True(t, IsValidationGap(a.Cancel("1")))
	_, err := a.Commit(context.Background(), "1")
	assert.True(t, IsValidationGap(err))
}

func TestArenaEnforcesEditCapability(t *testing.T) {
	a := NewArena("id", &recorder{}, WithCapabilities(permissions.ReadOnly()))
	_, err := a.Begin(row("1"))
	assert.ErrorIs(t, err, permissions.ErrNotPermitted)

	a.SetCapabilities(permissions.All())
	_, err = a.Begin(row("1"))
	require.NoError(t, err)
	assert.True(t, IsValidationGap(a.SetField("1", "id", "2")), "the id field is not editable")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "committed", StatusCommitted.String())
	assert.Equal(t, "superseded", StatusSuperseded.String())
	assert.Equal(t, "unknown", Status(9).String())
}
