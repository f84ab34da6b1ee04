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

// Package server exposes configured tables over HTTP: an HTML table view,
// and a JSON API for projections, row editing, bulk workflow actions and
// export.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nyneos/tabula/core/config"
	"github.com/nyneos/tabula/core/editing"
	"github.com/nyneos/tabula/core/permissions"
	"github.com/nyneos/tabula/core/query"
	"github.com/nyneos/tabula/core/records"
	"github.com/nyneos/tabula/core/rendering"
	"github.com/nyneos/tabula/core/tables"
	"github.com/nyneos/tabula/core/views"
	"github.com/nyneos/tabula/datasources"
)

// SubjectHeader carries the name of the caller. Capabilities are looked up
// for it and bulk actions are stamped with it.
const SubjectHeader = "X-Tabula-User"

// Anonymous is the subject of requests without SubjectHeader.
const Anonymous = "anonymous"

var errTableNotFound = errors.New("table not found")

// Writer is the write collaborator of a table.
type Writer interface {
	editing.Updater
	editing.BulkUpdater
}

// Server represents the application server with all its dependencies
type Server struct {
	cfg      *config.Config
	manager  *datasources.Manager
	perms    permissions.Source
	renderer *rendering.Renderer
	logger   *zap.Logger

	mu      sync.Mutex
	writers map[string]Writer
	entries map[string]*tableEntry
}

// tableEntry is a loaded table with its view and the edit workspaces of
// each subject. The workspaces share inflight so a row has at most one
// outstanding write whoever commits it.
type tableEntry struct {
	cfg      config.TableConfig
	view     *tables.TableView
	inflight *editing.InFlight

	mu         sync.Mutex
	workspaces map[string]*workspace
}

type workspace struct {
	arena *editing.Arena
	bulk  *editing.Bulk
}

// NewServer creates a server for the tables of cfg. Sources must be
// registered in manager under the table names.
func NewServer(cfg *config.Config, manager *datasources.Manager, perms permissions.Source, logger *zap.Logger) (*Server, error) {
	renderer, err := rendering.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if perms == nil {
		perms = cfg.Permissions.Source()
	}
	return &Server{
		cfg:      cfg,
		manager:  manager,
		perms:    perms,
		renderer: renderer,
		logger:   logger,
		writers:  make(map[string]Writer),
		entries:  make(map[string]*tableEntry),
	}, nil
}

// SetWriter sets the write collaborator of a table. Tables without one are
// read-only.
func (s *Server) SetWriter(table string, w Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writers[table] = w
}

func (s *Server) writer(table string) (Writer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.writers[table]
	return w, ok
}

// entry returns the loaded table. When the load fails the returned entry
// holds an empty table, is not cached, and the error is a
// *datasources.FetchFailure.
func (s *Server) entry(ctx context.Context, name string) (*tableEntry, error) {
	tc, ok := s.cfg.Table(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errTableNotFound, name)
	}

	s.mu.Lock()
	if e, ok := s.entries[name]; ok {
		s.mu.Unlock()
		return e, nil
	}
	s.mu.Unlock()

	table, loadErr := s.manager.LoadTable(ctx, name, tc.IDField)
	e := &tableEntry{
		cfg:        tc,
		view:       tables.NewTableView(table, tc.Hints(), tc.AlwaysSum, s.cfg.PageSizeFor(tc)),
		inflight:   editing.NewInFlight(),
		workspaces: make(map[string]*workspace),
	}
	if loadErr != nil {
		return e, loadErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.entries[name]; ok {
		return cached, nil
	}
	s.entries[name] = e
	return e, nil
}

// capabilities returns what subject may do on a table. Tables without a
// writer only allow export.
func (s *Server) capabilities(subject, table string) permissions.Capabilities {
	caps := s.perms.Capabilities(subject)
	if _, ok := s.writer(table); !ok {
		caps = permissions.Capabilities{CanExport: caps.CanExport}
	}
	return caps
}

// workspace returns the edit arena and bulk runner of subject on e.
func (s *Server) workspace(e *tableEntry, subject string) *workspace {
	caps := s.capabilities(subject, e.cfg.Name)

	e.mu.Lock()
	defer e.mu.Unlock()
	if ws, ok := e.workspaces[subject]; ok {
		ws.arena.SetCapabilities(caps)
		return ws
	}

	w, ok := s.writer(e.cfg.Name)
	if !ok {
		w = readOnly{table: e.cfg.Name}
	}
	logger := s.logger.With(zap.String("table", e.cfg.Name), zap.String("subject", subject))
	data := e.view.Table()
	ws := &workspace{
		arena: editing.NewArena(e.cfg.IDField, w,
			editing.WithLogger(logger),
			editing.WithCapabilities(caps),
			editing.WithInFlight(e.inflight),
			editing.WithCommitHook(func(rowID string, applied records.Record) {
				data.ApplyDiff(rowID, applied)
			}),
		),
		bulk: editing.NewBulk(w, data, e.cfg.Status(), func() permissions.Capabilities {
			return s.capabilities(subject, e.cfg.Name)
		}, logger),
	}
	e.workspaces[subject] = ws
	return ws
}

// project applies the query to the table and returns the projection with
// the state it was computed from.
func (s *Server) project(e *tableEntry, q *query.Query, caps permissions.Capabilities) (*tables.Projection, tables.ViewState) {
	state := e.view.NewState()
	q.ApplyTo(&state)
	state.Editable = state.Editable && caps.CanEdit
	return e.view.Project(state), state
}

// buildViewModel runs a table request up to the view model.
func (s *Server) buildViewModel(ctx context.Context, requestURL *url.URL, subject string, timing *TimingCollector) (views.TableViewModel, error) {
	parseStart := time.Now()
	q := query.NewQuery(requestURL)
	timing.Record("Parse Query", time.Since(parseStart))

	loadStart := time.Now()
	e, err := s.entry(ctx, q.Table)
	timing.Record("Load Table", time.Since(loadStart))
	if e == nil {
		return views.TableViewModel{}, err
	}

	projectStart := time.Now()
	p, state := s.project(e, q, s.capabilities(subject, e.cfg.Name))
	timing.Record("Project", time.Since(projectStart))

	vmStart := time.Now()
	canonical := query.FromViewState(q.Path, q.Table, &state)
	title := e.cfg.Title
	if title == "" {
		title = e.cfg.Name
	}
	vm := views.BuildViewModel(p, state.Columns, canonical, views.Options{Title: title, IDField: e.cfg.IDField})
	timing.Record("Build ViewModel", time.Since(vmStart))
	return vm, err
}

// landing lists the configured tables.
func (s *Server) landing() views.LandingViewModel {
	return views.LandingViewModel{Title: "Tables", Tables: s.tableInfos()}
}

func (s *Server) tableInfos() []views.TableInfo {
	infos := make([]views.TableInfo, 0, len(s.cfg.Tables))
	for _, tc := range s.cfg.Tables {
		info := views.TableInfo{
			Name:  tc.Name,
			Title: tc.Title,
			URL:   (&query.Query{Path: "/table", Table: tc.Name}).ToSafeURL(),
		}
		if info.Title == "" {
			info.Title = tc.Name
		}
		s.mu.Lock()
		e, loaded := s.entries[tc.Name]
		s.mu.Unlock()
		if loaded {
			info.Loaded = true
			info.RecordCount = e.view.Table().Length()
			info.ColumnCount = len(e.view.Model().IDs())
		}
		if err := s.manager.LastFailure(tc.Name); err != nil {
			info.Warning = err.Error()
		}
		infos = append(infos, info)
	}
	return infos
}

// reload refetches a table. A table never loaded is loaded instead.
func (s *Server) reload(ctx context.Context, name string) error {
	tc, ok := s.cfg.Table(name)
	if !ok {
		return fmt.Errorf("%w: %s", errTableNotFound, name)
	}
	if !s.manager.IsLoaded(tc.Name) {
		_, err := s.entry(ctx, tc.Name)
		return err
	}
	return s.manager.Reload(ctx, tc.Name)
}

// TimingCollector collects timing measurements for various operations
type TimingCollector struct {
	fields []zap.Field
	start  time.Time
}

// NewTimingCollector creates a new timing collector
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{start: time.Now()}
}

// Record records a timing entry
func (tc *TimingCollector) Record(operation string, duration time.Duration) {
	tc.fields = append(tc.fields, zap.Duration(operation, duration))
}

// Fields returns the entries and the total as log fields.
func (tc *TimingCollector) Fields() []zap.Field {
	return append(tc.fields, zap.Duration("total", time.Since(tc.start)))
}

// readOnly refuses every write. It backs tables without a writer, whose
// capabilities already deny writes.
type readOnly struct {
	table string
}

func (r readOnly) err() error {
	return fmt.Errorf("table %s is read-only: %w", r.table, permissions.ErrNotPermitted)
}

func (r readOnly) UpdateRecord(context.Context, string, records.Record) (editing.UpdateResult, error) {
	return editing.UpdateResult{}, r.err()
}

func (r readOnly) BulkApprove(context.Context, []string, string, string) ([]string, error) {
	return nil, r.err()
}

func (r readOnly) BulkReject(context.Context, []string, string, string) ([]string, error) {
	return nil, r.err()
}

func (r readOnly) BulkDelete(context.Context, []string) ([]string, error) {
	return nil, r.err()
}
