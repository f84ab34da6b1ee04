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

package demo

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"go.uber.org/zap"

	"github.com/nyneos/tabula/core/config"
	"github.com/nyneos/tabula/core/export"
	"github.com/nyneos/tabula/core/query"
	"github.com/nyneos/tabula/core/server"
	"github.com/nyneos/tabula/core/tables"
	"github.com/nyneos/tabula/datasources"
)

// App wires the configured tables to their sources.
type App struct {
	Config  *config.Config
	Manager *datasources.Manager
	Store   *datasources.Store // nil when no table uses sqlite
	Logger  *zap.Logger

	writers map[string]server.Writer
}

// Open registers a source for every configured table. sqlite tables share
// one store and also get it as their writer; csv tables are read-only.
func Open(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		Config:  cfg,
		Manager: datasources.NewManager(logger),
		Logger:  logger,
		writers: make(map[string]server.Writer),
	}
	for _, tc := range cfg.Tables {
		switch tc.Source {
		case config.SourceSQLite:
			if app.Store == nil {
				store, err := datasources.OpenStore(cfg.DBPath, logger)
				if err != nil {
					return nil, err
				}
				app.Store = store
			}
			table := app.Store.Table(tc.SQLTableName(), tc.IDField, tc.Status())
			app.Manager.Register(tc.Name, table)
			app.writers[tc.Name] = table
		case config.SourceCSV:
			app.Manager.Register(tc.Name, datasources.NewCSVSource(tc.Path, tc.IDField))
		default:
			return nil, fmt.Errorf("table %q: unknown source %q", tc.Name, tc.Source)
		}
		logger.Debug("table registered", zap.String("table", tc.Name), zap.String("source", tc.Source))
	}
	return app, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Server creates the HTTP server for the app.
func (a *App) Server() (*server.Server, error) {
	srv, err := server.NewServer(a.Config, a.Manager, a.Config.Permissions.Source(), a.Logger)
	if err != nil {
		return nil, err
	}
	for name, w := range a.writers {
		srv.SetWriter(name, w)
	}
	return srv, nil
}

// SeedAll seeds n exposures into every sqlite table.
func (a *App) SeedAll(ctx context.Context, n int) error {
	for _, tc := range a.Config.Tables {
		if tc.Source != config.SourceSQLite {
			continue
		}
		if err := Seed(ctx, a.Store, tc.SQLTableName(), n); err != nil {
			return fmt.Errorf("seeding %s: %w", tc.Name, err)
		}
		a.Logger.Info("table seeded", zap.String("table", tc.Name), zap.Int("rows", n))
	}
	return nil
}

// Export writes a table projected by rawQuery, the query string of a table
// URL, in format. subject is checked for the export capability.
func (a *App) Export(ctx context.Context, w io.Writer, table, rawQuery, format, subject string) error {
	tc, ok := a.Config.Table(table)
	if !ok {
		return fmt.Errorf("table %q not found", table)
	}
	exporter, err := export.ForFormat(format)
	if err != nil {
		return err
	}
	data, err := a.Manager.LoadTable(ctx, tc.Name, tc.IDField)
	if err != nil {
		return err
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	values.Set("table", tc.Name)
	q := query.NewQuery(&url.URL{RawQuery: values.Encode()})

	view := tables.NewTableView(data, tc.Hints(), tc.AlwaysSum, a.Config.PageSizeFor(tc))
	state := view.NewState()
	q.ApplyTo(&state)
	caps := a.Config.Permissions.Source().Capabilities(subject)
	return export.Guarded(caps, exporter, w, view.Project(state))
}
