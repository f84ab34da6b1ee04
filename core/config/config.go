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

// Package config holds the server and table configuration, loaded from YAML
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/nyneos/tabula/core/columns"
	"github.com/nyneos/tabula/core/editing"
	"github.com/nyneos/tabula/core/paging"
	"github.com/nyneos/tabula/core/permissions"
)

// Source kinds a table can be loaded from.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// Config is the root configuration.
type Config struct {
	ListenAddr      string            `yaml:"listen_addr"`
	LogLevel        string            `yaml:"log_level"` // debug, info, warn, error
	DBPath          string            `yaml:"db_path"`   // SQLite file backing sqlite tables
	DefaultPageSize int               `yaml:"default_page_size"`
	Permissions     PermissionsConfig `yaml:"permissions"`
	Tables          []TableConfig     `yaml:"tables"`
}

// PermissionsConfig grants capabilities per subject. Subjects without an
// entry get Default.
type PermissionsConfig struct {
	Default  permissions.Capabilities            `yaml:"default"`
	Subjects map[string]permissions.Capabilities `yaml:"subjects,omitempty"`
}

// Source returns the configured permission source.
func (p PermissionsConfig) Source() permissions.Static {
	return permissions.Static{Default: p.Default, Subjects: p.Subjects}
}

// TableConfig describes one table the server exposes.
type TableConfig struct {
	Name    string `yaml:"name"`
	Title   string `yaml:"title,omitempty"`
	IDField string `yaml:"id_field"`

	Source   string `yaml:"source"`              // csv or sqlite
	Path     string `yaml:"path,omitempty"`      // CSV file for csv sources
	SQLTable string `yaml:"sql_table,omitempty"` // table name for sqlite sources, defaults to Name

	// Column visibility: an explicit allow-list, the first N fields, or all.
	DefaultVisible      []string `yaml:"default_visible,omitempty"`
	DefaultVisibleCount int      `yaml:"default_visible_count,omitempty"`
	AllVisible          bool     `yaml:"all_visible,omitempty"`

	AlwaysSum       []string          `yaml:"always_sum,omitempty"`
	Locked          []string          `yaml:"locked,omitempty"`
	NonSortable     []string          `yaml:"non_sortable,omitempty"`
	NonAggregatable []string          `yaml:"non_aggregatable,omitempty"`
	Labels          map[string]string `yaml:"labels,omitempty"`

	PageSize     int                   `yaml:"page_size,omitempty"`
	StatusFields *editing.StatusFields `yaml:"status_fields,omitempty"`
}

// Hints returns the column derivation hints of the table.
func (t TableConfig) Hints() columns.Hints {
	return columns.Hints{
		DefaultVisible:      t.DefaultVisible,
		DefaultVisibleCount: t.DefaultVisibleCount,
		AllVisible:          t.AllVisible,
		Locked:              t.Locked,
		NonSortable:         t.NonSortable,
		NonAggregatable:     t.NonAggregatable,
		Labels:              t.Labels,
	}
}

// Status returns the bulk status fields, falling back to the defaults.
func (t TableConfig) Status() editing.StatusFields {
	if t.StatusFields == nil {
		return editing.DefaultStatusFields
	}
	return *t.StatusFields
}

// SQLTableName returns the SQLite table backing the table.
func (t TableConfig) SQLTableName() string {
	if t.SQLTable != "" {
		return t.SQLTable
	}
	return t.Name
}

// DefaultConfig returns a configuration serving the demo exposures table
// from a local SQLite file.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8097",
		LogLevel:        "info",
		DBPath:          "tabula.db",
		DefaultPageSize: paging.DefaultPageSize,
		Permissions: PermissionsConfig{
			Default: permissions.All(),
		},
		Tables: []TableConfig{
			{
				Name:                "exposures",
				Title:               "Exposures",
				IDField:             "exposure_header_id",
				Source:              SourceSQLite,
				DefaultVisibleCount: 4,
				AlwaysSum:           []string{"total_open_amount"},
				Locked:              []string{"exposure_header_id"},
				NonAggregatable:     []string{"exposure_header_id"},
			},
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TABULA_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("TABULA_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("TABULA_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("TABULA_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.DefaultPageSize = n
		}
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Tables))
	for i, t := range c.Tables {
		if t.Name == "" {
			return fmt.Errorf("tables[%d]: name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate table name %q", t.Name)
		}
		seen[t.Name] = true
		if t.IDField == "" {
			return fmt.Errorf("table %q: id_field is required", t.Name)
		}
		switch t.Source {
		case SourceCSV:
			if t.Path == "" {
				return fmt.Errorf("table %q: csv source needs a path", t.Name)
			}
		case SourceSQLite:
			if c.DBPath == "" {
				return fmt.Errorf("table %q: sqlite source needs db_path", t.Name)
			}
		default:
			return fmt.Errorf("table %q: unknown source %q (valid: %s, %s)", t.Name, t.Source, SourceCSV, SourceSQLite)
		}
		if t.PageSize < 0 {
			return fmt.Errorf("table %q: page_size must not be negative", t.Name)
		}
	}
	return nil
}

// Table returns the configuration of a table by name.
func (c *Config) Table(name string) (TableConfig, bool) {
	i := slices.IndexFunc(c.Tables, func(t TableConfig) bool { return t.Name == name })
	if i < 0 {
		return TableConfig{}, false
	}
	return c.Tables[i], true
}

// PageSizeFor returns the page size of a table, or the default.
func (c *Config) PageSizeFor(t TableConfig) int {
	if t.PageSize > 0 {
		return t.PageSize
	}
	return c.DefaultPageSize
}

// ZapLevel maps the LogLevel string to a zap level.
func (c *Config) ZapLevel() zapcore.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
