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
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nyneos/tabula/core/editing"
	"github.com/nyneos/tabula/core/permissions"
	"github.com/nyneos/tabula/datasources"
)

var (
	errRowNotFound = errors.New("row not found")
	errBadRequest  = errors.New("bad request")
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps engine errors to HTTP status codes and stable codes.
func statusFor(err error) (int, string) {
	var (
		gap     *editing.ValidationGap
		failure *editing.UpdateFailure
		fetch   *datasources.FetchFailure
	)
	switch {
	case errors.Is(err, errTableNotFound):
		return http.StatusNotFound, "table_not_found"
	case errors.Is(err, errRowNotFound):
		return http.StatusNotFound, "row_not_found"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.As(err, &gap):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, permissions.ErrNotPermitted):
		return http.StatusForbidden, "not_permitted"
	case errors.Is(err, editing.ErrCommitInFlight):
		return http.StatusConflict, "commit_in_flight"
	case errors.As(err, &failure):
		return http.StatusBadGateway, "update_failed"
	case errors.As(err, &fetch):
		return http.StatusServiceUnavailable, "fetch_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.logger.Debug("request refused", zap.String("path", r.URL.Path), zap.String("code", code), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
