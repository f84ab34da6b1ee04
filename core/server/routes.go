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
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Handler returns the HTTP handler of the server.
//
//	GET    /                                      landing page
//	GET    /table?table=...                       HTML table view
//	GET    /api/capabilities                      capabilities of the caller
//	GET    /api/tables                            configured tables
//	GET    /api/tables/{table}                    projection for the query parameters
//	POST   /api/tables/{table}/reload             refetch from the source
//	GET    /api/tables/{table}/export             CSV, TSV or ASCII export
//	GET    /api/tables/{table}/rows/{id}          one row
//	POST   /api/tables/{table}/rows/{id}/edit     begin editing
//	PATCH  /api/tables/{table}/rows/{id}/edit     set draft fields
//	DELETE /api/tables/{table}/rows/{id}/edit     cancel editing
//	POST   /api/tables/{table}/rows/{id}/commit   commit the draft
//	POST   /api/tables/{table}/bulk/{action}      approve, reject or delete
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleLanding)
	r.Get("/table", s.handleTable)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.NoCache)
		r.Get("/capabilities", s.handleCapabilities)
		r.Get("/tables", s.handleListTables)
		r.Route("/tables/{table}", func(r chi.Router) {
			r.Get("/", s.handleProjection)
			r.Post("/reload", s.handleReload)
			r.Get("/export", s.handleExport)
			r.Post("/bulk/{action}", s.handleBulk)
			r.Route("/rows/{id}", func(r chi.Router) {
				r.Get("/", s.handleRow)
				r.Post("/edit", s.handleBeginEdit)
				r.Patch("/edit", s.handleSetFields)
				r.Delete("/edit", s.handleCancelEdit)
				r.Post("/commit", s.handleCommit)
			})
		})
	})
	return r
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", chimw.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// subject returns the caller named by SubjectHeader.
func subject(r *http.Request) string {
	if v := r.Header.Get(SubjectHeader); v != "" {
		return v
	}
	return Anonymous
}
