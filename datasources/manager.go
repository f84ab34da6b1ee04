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

package datasources

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nyneos/tabula/core/records"
	"github.com/nyneos/tabula/core/tables"
)

// DefaultFetchConcurrency bounds FetchAll.
const DefaultFetchConcurrency = 4

// Manager holds the registered sources and caches loaded tables. Sources are
// registered eagerly; data is loaded lazily on demand.
type Manager struct {
	mu sync.RWMutex

	// Registered fetchers indexed by source name
	sources map[string]Fetcher

	// Cached tables indexed by source name - populated lazily
	tables map[string]*tables.DataTable

	// Last load failure indexed by source name
	failures map[string]error

	logger      *zap.Logger
	concurrency int
}

// NewManager creates a new data source manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sources:     make(map[string]Fetcher),
		tables:      make(map[string]*tables.DataTable),
		failures:    make(map[string]error),
		logger:      logger,
		concurrency: DefaultFetchConcurrency,
	}
}

// SetConcurrency sets how many sources FetchAll reads at once.
func (m *Manager) SetConcurrency(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.concurrency = n
	}
}

// Register registers a source. A source registered again replaces the
// previous one and drops its cached table.
func (m *Manager) Register(name string, f Fetcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[name] = f
	delete(m.tables, name)
	delete(m.failures, name)
}

// Names returns the registered source names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (m *Manager) source(name string) (Fetcher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.sources[name]
	if !ok {
		return nil, fmt.Errorf("source %q not found", name)
	}
	return f, nil
}

// Fetch reads a source, falling back to an empty record set on failure.
func (m *Manager) Fetch(ctx context.Context, name string, q Query) FetchResult {
	f, err := m.source(name)
	if err != nil {
		return FetchResult{Records: []records.Record{}, Err: &FetchFailure{Source: name, Err: err}}
	}
	return FetchOrEmpty(ctx, name, f, q, m.logger)
}

// FetchAll reads the named sources concurrently, every registered source when
// names is empty. One failing source does not affect the others.
func (m *Manager) FetchAll(ctx context.Context, names ...string) map[string]FetchResult {
	if len(names) == 0 {
		names = m.Names()
	}
	m.mu.RLock()
	limit := m.concurrency
	m.mu.RUnlock()

	results := make([]FetchResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range names {
		g.Go(func() error {
			results[i] = m.Fetch(gctx, name, Query{})
			return nil
		})
	}
	g.Wait()

	out := make(map[string]FetchResult, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}

// LoadTable returns the cached table of a source, loading it on first use.
// A failed load yields an empty table and the failure; the empty table is not
// cached so the next call retries.
func (m *Manager) LoadTable(ctx context.Context, name, idField string) (*tables.DataTable, error) {
	m.mu.RLock()
	if table, ok := m.tables[name]; ok {
		m.mu.RUnlock()
		return table, nil
	}
	m.mu.RUnlock()

	res := m.Fetch(ctx, name, Query{})
	if !res.OK() {
		m.mu.Lock()
		m.failures[name] = res.Err
		m.mu.Unlock()
		return tables.NewDataTable(name, idField, res.Records), res.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have loaded it meanwhile.
	if table, ok := m.tables[name]; ok {
		return table, nil
	}
	table := tables.NewDataTable(name, idField, res.Records)
	m.tables[name] = table
	delete(m.failures, name)
	m.logger.Info("table loaded", zap.String("source", name), zap.Int("rows", len(res.Records)))
	return table, nil
}

// LoadAll loads the tables of idFields, source name to id field, reading the
// sources concurrently. Tables already cached are kept. It returns the
// failures by source name.
func (m *Manager) LoadAll(ctx context.Context, idFields map[string]string) map[string]error {
	var names []string
	for name := range idFields {
		if !m.IsLoaded(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	failures := make(map[string]error)
	if len(names) == 0 {
		return failures
	}

	results := m.FetchAll(ctx, names...)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		res := results[name]
		if !res.OK() {
			m.failures[name] = res.Err
			failures[name] = res.Err
			continue
		}
		if _, ok := m.tables[name]; !ok {
			m.tables[name] = tables.NewDataTable(name, idFields[name], res.Records)
		}
		delete(m.failures, name)
	}
	m.logger.Info("tables loaded", zap.Int("requested", len(names)), zap.Int("failed", len(failures)))
	return failures
}

// Reload refetches a loaded table in place. Views over the table see the new
// rows through its generation. On failure the table is emptied and the
// failure is recorded and returned; a later Reload refills it.
func (m *Manager) Reload(ctx context.Context, name string) error {
	m.mu.RLock()
	table, ok := m.tables[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("source %q is not loaded", name)
	}
	res := m.Fetch(ctx, name, Query{})
	table.Replace(res.Records)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !res.OK() {
		m.failures[name] = res.Err
		return res.Err
	}
	delete(m.failures, name)
	return nil
}

// LastFailure returns the error of the last failed load of a source.
func (m *Manager) LastFailure(name string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures[name]
}

// InvalidateCache removes a cached table.
func (m *Manager) InvalidateCache(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, name)
}

// InvalidateAllCaches removes all cached tables.
func (m *Manager) InvalidateAllCaches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = make(map[string]*tables.DataTable)
}

// IsLoaded checks if a source's table is cached.
func (m *Manager) IsLoaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tables[name]
	return ok
}

// LoadedNames returns the names of all cached tables, sorted.
func (m *Manager) LoadedNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
