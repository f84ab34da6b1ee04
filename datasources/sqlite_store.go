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
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nyneos/tabula/core/editing"
	"github.com/nyneos/tabula/core/records"
)

// UpdatedAtField is stamped by the store on every update when the table has
// such a column.
const UpdatedAtField = "updated_at"

// Store is a SQLite database holding record tables. Columns are created from
// a sample record: numbers as REAL, booleans as BOOLEAN, everything else as
// TEXT, the id column as the TEXT primary key.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// OpenStore opens or creates the database at path. ":memory:" opens a
// private in-memory database.
func OpenStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases
	// shared across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db, path: path, logger: logger, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

type sqlColumn struct {
	name     string
	declType string
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func declTypeOf(v records.Value) string {
	switch v.(type) {
	case float64:
		return "REAL"
	case bool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// CreateTable creates table name with one column per field of sample, unless
// it already exists.
func (s *Store) CreateTable(ctx context.Context, name, idField string, sample records.Record) error {
	if !sample.Has(idField) {
		return fmt.Errorf("sample record has no %s field", idField)
	}
	defs := make([]string, 0, sample.Len())
	sample.Range(func(k string, v records.Value) bool {
		if k == idField {
			defs = append(defs, quoteIdent(k)+" TEXT PRIMARY KEY")
		} else {
			defs = append(defs, quoteIdent(k)+" "+declTypeOf(v))
		}
		return true
	})
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

// Insert writes rows into table, replacing rows with the same id.
func (s *Store) Insert(ctx context.Context, table string, rows []records.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rows {
		keys := r.Keys()
		cols := make([]string, len(keys))
		marks := make([]string, len(keys))
		args := make([]any, len(keys))
		for i, k := range keys {
			cols[i] = quoteIdent(k)
			marks[i] = "?"
			args[i] = r.Value(k)
		}
		stmt := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
			quoteIdent(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	s.logger.Debug("rows inserted", zap.String("table", table), zap.Int("rows", len(rows)))
	return nil
}

func (s *Store) columns(ctx context.Context, table string) ([]sqlColumn, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []sqlColumn
	for rows.Next() {
		var (
			cid       int
			name      string
			declType  string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to read schema of %s: %w", table, err)
		}
		cols = append(cols, sqlColumn{name: name, declType: strings.ToUpper(declType)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s does not exist", table)
	}
	return cols, nil
}

func hasColumn(cols []sqlColumn, name string) bool {
	return slices.ContainsFunc(cols, func(c sqlColumn) bool { return c.name == name })
}

// Fetch reads q.Table in insertion order.
func (s *Store) Fetch(ctx context.Context, q Query) ([]records.Record, error) {
	if q.Table == "" {
		return nil, fmt.Errorf("query names no table")
	}
	cols, err := s.columns(ctx, q.Table)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.name)
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), quoteIdent(q.Table))

	var conds []string
	var args []any
	whereKeys := make([]string, 0, len(q.Where))
	for k := range q.Where {
		whereKeys = append(whereKeys, k)
	}
	slices.Sort(whereKeys)
	for _, k := range whereKeys {
		if !hasColumn(cols, k) {
			return nil, fmt.Errorf("table %s has no column %s", q.Table, k)
		}
		conds = append(conds, quoteIdent(k)+" = ?")
		args = append(args, records.Normalize(q.Where[k]))
	}
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}
	stmt += " ORDER BY rowid"
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Table, err)
	}
	defer rows.Close()

	out := []records.Record{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", q.Table, err)
		}
		fields := make([]records.Field, len(cols))
		for i, c := range cols {
			fields[i] = records.F(c.name, fromSQL(values[i], c.declType))
		}
		out = append(out, records.New(fields...))
	}
	return out, rows.Err()
}

func fromSQL(v any, declType string) records.Value {
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		if declType == "BOOLEAN" {
			return x != 0
		}
		return float64(x)
	case float64:
		return x
	case bool:
		return x
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// Table returns the collaborator for one table.
func (s *Store) Table(name, idField string, status editing.StatusFields) *Table {
	return &Table{store: s, name: name, idField: idField, status: status}
}

// Table serves one SQLite table as the read, write and bulk collaborator.
type Table struct {
	store   *Store
	name    string
	idField string
	status  editing.StatusFields
}

// Fetch reads the table.
func (t *Table) Fetch(ctx context.Context, q Query) ([]records.Record, error) {
	q.Table = t.name
	return t.store.Fetch(ctx, q)
}

// UpdateRecord writes diff to the row. Unknown fields and missing rows are
// refused with a message; database errors are returned as errors. When the
// table has an updated_at column it is stamped and returned in the result.
func (t *Table) UpdateRecord(ctx context.Context, rowID string, diff records.Record) (editing.UpdateResult, error) {
	cols, err := t.store.columns(ctx, t.name)
	if err != nil {
		return editing.UpdateResult{}, err
	}
	var sets []string
	var args []any
	var unknown []string
	diff.Range(func(k string, v records.Value) bool {
		if !hasColumn(cols, k) {
			unknown = append(unknown, k)
			return true
		}
		sets = append(sets, quoteIdent(k)+" = ?")
		args = append(args, v)
		return true
	})
	if len(unknown) > 0 {
		return editing.UpdateResult{Message: "unknown field " + strings.Join(unknown, ", ")}, nil
	}
	if len(sets) == 0 {
		return editing.UpdateResult{Success: true}, nil
	}

	var server records.Record
	if hasColumn(cols, UpdatedAtField) && !diff.Has(UpdatedAtField) {
		stamp := t.store.now().UTC().Format(time.RFC3339)
		sets = append(sets, quoteIdent(UpdatedAtField)+" = ?")
		args = append(args, stamp)
		server = records.New(records.F(UpdatedAtField, stamp))
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", quoteIdent(t.name), strings.Join(sets, ", "), quoteIdent(t.idField))
	res, err := t.store.db.ExecContext(ctx, stmt, append(args, rowID)...)
	if err != nil {
		return editing.UpdateResult{}, fmt.Errorf("failed to update %s: %w", rowID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return editing.UpdateResult{Message: fmt.Sprintf("row %s not found", rowID)}, nil
	}
	t.store.logger.Debug("row updated", zap.String("table", t.name), zap.String("row_id", rowID), zap.Int("fields", diff.Len()))
	return editing.UpdateResult{Success: true, Record: server}, nil
}

// BulkApprove sets the approved status on ids not already approved.
func (t *Table) BulkApprove(ctx context.Context, ids []string, by, comment string) ([]string, error) {
	return t.transition(ctx, ids, t.status.Approved, by, comment)
}

// BulkReject sets the rejected status on ids not already rejected.
func (t *Table) BulkReject(ctx context.Context, ids []string, by, comment string) ([]string, error) {
	return t.transition(ctx, ids, t.status.Rejected, by, comment)
}

func (t *Table) transition(ctx context.Context, ids []string, status, by, comment string) ([]string, error) {
	cols, err := t.store.columns(ctx, t.name)
	if err != nil {
		return nil, err
	}
	if t.status.Status == "" || !hasColumn(cols, t.status.Status) {
		return nil, fmt.Errorf("table %s has no status column %q", t.name, t.status.Status)
	}
	statusCol := quoteIdent(t.status.Status)
	sets := []string{statusCol + " = ?"}
	args := []any{status}
	if t.status.By != "" && by != "" && hasColumn(cols, t.status.By) {
		sets = append(sets, quoteIdent(t.status.By)+" = ?")
		args = append(args, by)
	}
	if t.status.Comment != "" && comment != "" && hasColumn(cols, t.status.Comment) {
		sets = append(sets, quoteIdent(t.status.Comment)+" = ?")
		args = append(args, comment)
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? AND (%s IS NULL OR %s != ?)",
		quoteIdent(t.name), strings.Join(sets, ", "), quoteIdent(t.idField), statusCol, statusCol)

	return t.eachID(ctx, ids, stmt, func(id string) []any {
		return append(slices.Clone(args), id, status)
	})
}

// BulkDelete removes ids.
func (t *Table) BulkDelete(ctx context.Context, ids []string) ([]string, error) {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(t.name), quoteIdent(t.idField))
	return t.eachID(ctx, ids, stmt, func(id string) []any { return []any{id} })
}

// eachID runs stmt once per id in one transaction and returns the ids that
// affected a row.
func (t *Table) eachID(ctx context.Context, ids []string, stmt string, argsFor func(id string) []any) ([]string, error) {
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer prepared.Close()

	var done []string
	for _, id := range ids {
		res, err := prepared.ExecContext(ctx, argsFor(id)...)
		if err != nil {
			return nil, fmt.Errorf("failed on %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			done = append(done, id)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return done, nil
}
