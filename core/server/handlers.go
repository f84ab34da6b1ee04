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

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nyneos/tabula/core/editing"
	"github.com/nyneos/tabula/core/export"
	"github.com/nyneos/tabula/core/grouping"
	"github.com/nyneos/tabula/core/permissions"
	"github.com/nyneos/tabula/core/query"
	"github.com/nyneos/tabula/core/records"
	"github.com/nyneos/tabula/core/tables"
	"github.com/nyneos/tabula/datasources"
)

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Landing(w, s.landing()); err != nil {
		s.logger.Error("landing page rendering error", zap.Error(err))
		http.Error(w, "rendering failed", http.StatusInternalServerError)
	}
}

// handleTable renders the HTML view. A table whose source failed is shown
// empty.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("table") == "" {
		http.Error(w, "Table parameter is required", http.StatusBadRequest)
		return
	}
	timing := NewTimingCollector()
	vm, err := s.buildViewModel(r.Context(), r.URL, subject(r), timing)
	var fetch *datasources.FetchFailure
	switch {
	case errors.Is(err, errTableNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.As(err, &fetch):
		s.logger.Warn("showing empty table", zap.Error(err))
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Table(w, vm); err != nil {
		s.logger.Error("template rendering error", zap.Error(err))
		http.Error(w, "rendering failed", http.StatusInternalServerError)
		return
	}
	s.logger.Debug("table rendered", timing.Fields()...)
}

type tableJSON struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	IDField string `json:"id_field"`
	Loaded  bool   `json:"loaded"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	infos := s.tableInfos()
	out := make([]tableJSON, len(infos))
	for i, info := range infos {
		tc, _ := s.cfg.Table(info.Name)
		out[i] = tableJSON{
			Name:    info.Name,
			Title:   info.Title,
			IDField: tc.IDField,
			Loaded:  info.Loaded,
			Rows:    info.RecordCount,
			Columns: info.ColumnCount,
			Warning: info.Warning,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	sub := subject(r)
	caps := s.perms.Capabilities(sub)
	if table := r.URL.Query().Get("table"); table != "" {
		caps = s.capabilities(sub, table)
	}
	writeJSON(w, http.StatusOK, caps)
}

type columnJSON struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Sortable     bool   `json:"sortable"`
	Draggable    bool   `json:"draggable"`
	Aggregatable bool   `json:"aggregatable"`
	Sort         string `json:"sort,omitempty"`
}

type groupJSON struct {
	Path     string             `json:"path"`
	Column   string             `json:"column"`
	Value    string             `json:"value"`
	Depth    int                `json:"depth"`
	Count    int                `json:"count"`
	Expanded bool               `json:"expanded"`
	Totals   map[string]float64 `json:"totals,omitempty"`
}

type projectionJSON struct {
	Table     string             `json:"table"`
	Query     string             `json:"query"`
	Columns   []columnJSON       `json:"columns"`
	Rows      []records.Record   `json:"rows"`
	Groups    []groupJSON        `json:"groups,omitempty"`
	Total     map[string]float64 `json:"total"`
	PageTotal map[string]float64 `json:"page_total"`
	Grouped   bool               `json:"grouped"`
	Editable  bool               `json:"editable"`
	PageIndex int                `json:"page_index"`
	PageCount int                `json:"page_count"`
	PageSize  int                `json:"page_size"`
	Filtered  int                `json:"filtered"`
	Count     int                `json:"count"`
	Warning   string             `json:"warning,omitempty"`
}

// tableQuery parses the query parameters of an API request for the table in
// the route.
func tableQuery(r *http.Request) *query.Query {
	q := query.NewQuery(r.URL)
	q.Table = chi.URLParam(r, "table")
	return q
}

// loadEntry loads the table of the route. A fetch failure is tolerated and
// returned as a warning.
func (s *Server) loadEntry(r *http.Request) (*tableEntry, string, error) {
	e, err := s.entry(r.Context(), chi.URLParam(r, "table"))
	var fetch *datasources.FetchFailure
	switch {
	case e != nil && errors.As(err, &fetch):
		return e, err.Error(), nil
	case err != nil:
		return nil, "", err
	}
	return e, "", nil
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	e, warning, err := s.loadEntry(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := tableQuery(r)
	p, state := s.project(e, q, s.capabilities(subject(r), e.cfg.Name))

	out := projectionJSON{
		Table:     e.cfg.Name,
		Query:     query.FromViewState("/api/tables/"+e.cfg.Name, e.cfg.Name, &state).ToURL(),
		Rows:      p.Rows,
		Total:     p.Total.Map(),
		PageTotal: p.PageTotal.Map(),
		Grouped:   p.Grouped,
		Editable:  state.Editable,
		PageIndex: p.Page.PageIndex,
		PageCount: p.Page.PageCount,
		PageSize:  state.Window.PageSize,
		Filtered:  p.Filtered,
		Count:     p.Count,
		Warning:   warning,
	}
	for _, c := range p.Columns {
		col := columnJSON{ID: c.ID, Label: c.Label, Sortable: c.Sortable, Draggable: c.Draggable, Aggregatable: c.Aggregatable}
		if state.Sort.Active() && state.Sort.Column == c.ID {
			col.Sort = state.Sort.Direction.String()
		}
		out.Columns = append(out.Columns, col)
	}
	if p.Grouped {
		out.Groups = groupsJSON(p, &state)
	}
	writeJSON(w, http.StatusOK, out)
}

func groupsJSON(p *tables.Projection, state *tables.ViewState) []groupJSON {
	var out []groupJSON
	grouping.Walk(p.Tree, func(v grouping.Visit) bool {
		if v.Depth == 0 {
			return true
		}
		g := groupJSON{
			Path:     v.Path,
			Value:    v.Value,
			Depth:    v.Depth - 1,
			Count:    v.Node.Count(),
			Expanded: state.Groups.IsExpanded(v.Path),
		}
		if v.Depth-1 < len(state.GroupBy) {
			g.Column = state.GroupBy[v.Depth-1]
		}
		if _, leaf := v.Node.(*grouping.Leaf); leaf {
			g.Totals = p.Aggregates[v.Path].Map()
		}
		out = append(out, g)
		return true
	})
	return out
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reload(r.Context(), chi.URLParam(r, "table")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	e, _, err := s.loadEntry(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	exporter, err := export.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	caps := s.capabilities(subject(r), e.cfg.Name)
	p, _ := s.project(e, tableQuery(r), caps)

	var buf bytes.Buffer
	if err := export.Guarded(caps, exporter, &buf, p); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", e.cfg.Name+"."+exporter.Extension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// rowEntry loads the table of the route and the row named by {id}.
func (s *Server) rowEntry(r *http.Request) (*tableEntry, records.Record, error) {
	e, _, err := s.loadEntry(r)
	if err != nil {
		return nil, records.Record{}, err
	}
	id := chi.URLParam(r, "id")
	row, ok := e.view.Table().Row(id)
	if !ok {
		return nil, records.Record{}, fmt.Errorf("%w: %s", errRowNotFound, id)
	}
	return e, row, nil
}

func (s *Server) handleRow(w http.ResponseWriter, r *http.Request) {
	_, row, err := s.rowEntry(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

type sessionJSON struct {
	RowID   string         `json:"row_id"`
	Session string         `json:"session,omitempty"`
	Draft   records.Record `json:"draft"`
	Diff    records.Record `json:"diff"`
}

func (s *Server) sessionResponse(w http.ResponseWriter, r *http.Request, arena *editing.Arena, rowID, sessionID string) {
	draft, err := arena.Draft(rowID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	diff, err := arena.Diff(rowID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionJSON{RowID: rowID, Session: sessionID, Draft: draft, Diff: diff})
}

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	e, row, err := s.rowEntry(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	arena := s.workspace(e, subject(r)).arena
	session, err := arena.Begin(row)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.sessionResponse(w, r, arena, session.RowID(), session.ID().String())
}

type setFieldsRequest struct {
	Fields records.Record `json:"fields"`
}

func (s *Server) handleSetFields(w http.ResponseWriter, r *http.Request) {
	e, _, err := s.loadEntry(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req setFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	rowID := chi.URLParam(r, "id")
	arena := s.workspace(e, subject(r)).arena
	var setErr error
	req.Fields.Range(func(k string, v records.Value) bool {
		setErr = arena.SetField(rowID, k, v)
		return setErr == nil
	})
	if setErr != nil {
		s.writeError(w, r, setErr)
		return
	}
	s.sessionResponse(w, r, arena, rowID, "")
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	e, _, err := s.loadEntry(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.workspace(e, subject(r)).arena.Cancel(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commitJSON struct {
	Status  string          `json:"status"`
	RowID   string          `json:"row_id"`
	Diff    records.Record  `json:"diff"`
	Applied records.Record  `json:"applied"`
	Message string          `json:"message,omitempty"`
	Row     *records.Record `json:"row,omitempty"`
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	e, _, err := s.loadEntry(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.workspace(e, subject(r)).arena.Commit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := commitJSON{Status: res.Status.String(), RowID: res.RowID, Diff: res.Diff, Applied: res.Applied, Message: res.Message}
	if row, ok := e.view.Table().Row(res.RowID); ok {
		out.Row = &row
	}
	writeJSON(w, http.StatusOK, out)
}

type bulkRequest struct {
	IDs     []string `json:"ids"`
	Comment string   `json:"comment"`
}

type bulkJSON struct {
	Action    permissions.Action `json:"action"`
	Requested []string           `json:"requested"`
	Confirmed []string           `json:"confirmed"`
	Skipped   []string           `json:"skipped"`
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	e, _, err := s.loadEntry(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	sub := subject(r)
	bulk := s.workspace(e, sub).bulk
	var res editing.BulkResult
	switch permissions.Action(chi.URLParam(r, "action")) {
	case permissions.ActionApprove:
		res, err = bulk.Approve(r.Context(), req.IDs, sub, req.Comment)
	case permissions.ActionReject:
		res, err = bulk.Reject(r.Context(), req.IDs, sub, req.Comment)
	case permissions.ActionDelete:
		res, err = bulk.Delete(r.Context(), req.IDs)
	default:
		err = fmt.Errorf("%w: unknown bulk action %q", errBadRequest, chi.URLParam(r, "action"))
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkJSON{
		Action:    res.Action,
		Requested: nonNil(res.Requested),
		Confirmed: nonNil(res.Confirmed),
		Skipped:   nonNil(res.Skipped()),
	})
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
