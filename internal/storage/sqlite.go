/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gowhiteboard/internal/domain"
	applog "gowhiteboard/internal/log"
	"gowhiteboard/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the local SQLite schema.
// Bump this when you perform breaking schema changes and add migrations.
const schemaVersion = 2

// SQLiteStore keeps boards as JSON rows in an embedded SQLite database and
// mirrors element text into an FTS5 table for search.
type SQLiteStore struct {
	Path string
	db   *sql.DB
}

// OpenSQLite creates or opens the database at path, enables WAL mode, and
// brings the schema up to date.
func OpenSQLite(path string) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "sqlite_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureBoardSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("database ready")
	return &SQLiteStore{Path: path, db: db}, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Keep the stored schema; runMigrations moves it forward.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureBoardSchema creates the board tables, the FTS index and its triggers.
func ensureBoardSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS boards (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			last_modified TEXT NOT NULL,
			element_count INTEGER NOT NULL DEFAULT 0,
			doc           TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS elements (
			id         INTEGER PRIMARY KEY,
			board_id   TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			kind       TEXT NOT NULL,
			element_id TEXT NOT NULL,
			text       TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_elements_board ON elements(board_id);`,
		`CREATE INDEX IF NOT EXISTS idx_boards_modified ON boards(last_modified DESC);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_elements USING fts5(
			text,
			content='elements',
			content_rowid='id',
			tokenize = 'unicode61'
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure board schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS elements_ai AFTER INSERT ON elements BEGIN
			INSERT INTO fts_elements(rowid, text) VALUES (new.id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS elements_ad AFTER DELETE ON elements BEGIN
			INSERT INTO fts_elements(fts_elements, rowid, text) VALUES ('delete', old.id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS elements_au AFTER UPDATE OF text ON elements BEGIN
			INSERT INTO fts_elements(fts_elements, rowid, text) VALUES ('delete', old.id, old.text);
			INSERT INTO fts_elements(rowid, text) VALUES (new.id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Written by a newer build; never downgrade.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// v1 databases lacked the recency index used by List.
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_boards_modified ON boards(last_modified DESC);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// best-effort optimize; ignore errors
			_, _ = db.ExecContext(ctx, `INSERT INTO fts_elements(fts_elements) VALUES('optimize')`)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (domain.Board, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM boards WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Board{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return domain.Board{}, fmt.Errorf("load board: %w", err)
	}
	var b domain.Board
	if err := json.Unmarshal([]byte(doc), &b); err != nil {
		return domain.Board{}, fmt.Errorf("decode board %s: %w", id, err)
	}
	return b, nil
}

// Save replaces the board row and its element rows in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, b domain.Board) error {
	if err := checkID(b.ID); err != nil {
		return err
	}
	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO boards(id, name, last_modified, element_count, doc) VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, last_modified=excluded.last_modified,
			element_count=excluded.element_count, doc=excluded.doc`,
		b.ID, b.Name, b.LastModified.UTC().Format(time.RFC3339Nano), b.Elements.Len(), string(doc)); err != nil {
		return fmt.Errorf("upsert board: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM elements WHERE board_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear elements: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO elements(board_id, kind, element_id, text) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare element insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range elementRows(b) {
		if _, err := stmt.ExecContext(ctx, b.ID, string(r.kind), r.id, r.text); err != nil {
			return fmt.Errorf("insert element %s: %w", r.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit board: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.BoardInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, last_modified, element_count FROM boards`)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()
	var out []domain.BoardInfo
	for rows.Next() {
		var bi domain.BoardInfo
		var ts string
		if err := rows.Scan(&bi.ID, &bi.Name, &ts, &bi.Elements); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		bi.LastModified, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, bi)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortInfos(out)
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	// Delete elements explicitly so the FTS triggers fire.
	if _, err := tx.ExecContext(ctx, `DELETE FROM elements WHERE board_id = ?`, id); err != nil {
		return fmt.Errorf("delete elements: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

// Search runs an FTS5 prefix match over element text. With empty text it
// lists elements subject to the filters.
func (s *SQLiteStore) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	match := ftsQuery(q.Text)
	if match != "" {
		sb.WriteString("SELECT e.board_id, b.name, e.kind, e.element_id, e.text, snippet(fts_elements, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_elements JOIN elements e ON fts_elements.rowid = e.id JOIN boards b ON b.id = e.board_id\n")
		sb.WriteString("WHERE fts_elements MATCH ?\n")
		args = append(args, match)
	} else {
		sb.WriteString("SELECT e.board_id, b.name, e.kind, e.element_id, e.text, ''\n")
		sb.WriteString("FROM elements e JOIN boards b ON b.id = e.board_id\nWHERE 1=1\n")
	}
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND e.kind IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range q.Kinds {
			args = append(args, string(k))
		}
	}
	if q.BoardID != "" {
		sb.WriteString(" AND e.board_id = ?\n")
		args = append(args, q.BoardID)
	}
	limit, offset := q.page()
	sb.WriteString("ORDER BY e.board_id, e.id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var kind string
		var sn sql.NullString
		if err := rows.Scan(&r.BoardID, &r.BoardName, &kind, &r.Ref.ID, &r.Text, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Ref.Kind = domain.Kind(kind)
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Check runs PRAGMA quick_check and reports whether the database is healthy.
func (s *SQLiteStore) Check(ctx context.Context) error {
	var chk string
	if err := s.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(chk), "ok") {
		return fmt.Errorf("quick_check: %s", chk)
	}
	return nil
}

// Reindex rebuilds the FTS index from the elements table.
func (s *SQLiteStore) Reindex(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO fts_elements(fts_elements) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("rebuild fts: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
