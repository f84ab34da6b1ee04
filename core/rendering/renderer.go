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

// Package rendering renders view models to HTML with contextually escaped
// templates.
package rendering

import (
	"bytes"
	"embed"
	"fmt"
	"io"

	"github.com/google/safehtml/template"

	"github.com/nyneos/tabula/core/views"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names, one per file under templates/.
const (
	pageTable   = "table.html"
	pageLanding = "landing.html"
)

// Renderer renders the table and landing pages. A page is rendered in full
// before anything reaches the writer, so a template error leaves the
// response untouched and the caller can still answer with an error status.
type Renderer struct {
	pages *template.Template
}

// New parses the embedded page templates.
func New() (*Renderer, error) {
	pages, err := template.New("tabula").ParseFS(template.TrustedFSFromEmbed(templateFS), "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	for _, name := range []string{pageTable, pageLanding} {
		if pages.Lookup(name) == nil {
			return nil, fmt.Errorf("template %s is missing", name)
		}
	}
	return &Renderer{pages: pages}, nil
}

// Table renders the view of one table.
func (r *Renderer) Table(w io.Writer, vm views.TableViewModel) error {
	return r.render(w, pageTable, vm.Title, vm)
}

// Landing renders the list of tables.
func (r *Renderer) Landing(w io.Writer, vm views.LandingViewModel) error {
	return r.render(w, pageLanding, vm.Title, vm)
}

func (r *Renderer) render(w io.Writer, page, title string, data any) error {
	var buf bytes.Buffer
	if err := r.pages.ExecuteTemplate(&buf, page, data); err != nil {
		return fmt.Errorf("rendering %s %q: %w", page, title, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
