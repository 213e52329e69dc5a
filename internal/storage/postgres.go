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
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"gowhiteboard/internal/domain"
	applog "gowhiteboard/internal/log"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps boards as JSONB rows in PostgreSQL and searches element
// text through a generated tsvector column.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects through the pgx driver, pings the server, and applies
// the embedded migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(pctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// applyMigrations applies embedded SQL migrations in filename order and records
// each applied version in schema_migrations.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	l := applog.WithOperation(applog.WithComponent("storage"), "pg_migrate")
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, fname := range files {
		v, err := parseMigrationVersion(fname)
		if err != nil {
			return err
		}
		if applied[v] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, v, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func parseMigrationVersion(name string) (int64, error) {
	base := path.Base(name)
	prefix, _, _ := strings.Cut(base, "_")
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (domain.Board, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM boards WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Board{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return domain.Board{}, fmt.Errorf("load board: %w", err)
	}
	var b domain.Board
	if err := json.Unmarshal(doc, &b); err != nil {
		return domain.Board{}, fmt.Errorf("decode board %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) Save(ctx context.Context, b domain.Board) error {
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
	if _, err := tx.ExecContext(ctx, `INSERT INTO boards(id, name, last_modified, element_count, doc) VALUES($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, last_modified = EXCLUDED.last_modified,
			element_count = EXCLUDED.element_count, doc = EXCLUDED.doc`,
		b.ID, b.Name, b.LastModified.UTC(), b.Elements.Len(), string(doc)); err != nil {
		return fmt.Errorf("upsert board: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM board_elements WHERE board_id = $1`, b.ID); err != nil {
		return fmt.Errorf("clear elements: %w", err)
	}
	for _, r := range elementRows(b) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO board_elements(board_id, kind, element_id, text) VALUES($1, $2, $3, $4)`,
			b.ID, string(r.kind), r.id, r.text); err != nil {
			return fmt.Errorf("insert element %s: %w", r.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit board: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]domain.BoardInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, last_modified, element_count FROM boards ORDER BY last_modified DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()
	var out []domain.BoardInfo
	for rows.Next() {
		var bi domain.BoardInfo
		if err := rows.Scan(&bi.ID, &bi.Name, &bi.LastModified, &bi.Elements); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, bi)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Search matches element text with plainto_tsquery and highlights via ts_headline.
func (s *PostgresStore) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		p := place(text)
		b.WriteString("SELECT e.board_id, bo.name, e.kind, e.element_id, e.text, ")
		b.WriteString("COALESCE(ts_headline('simple', e.text, plainto_tsquery('simple', " + p + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM board_elements e JOIN boards bo ON bo.id = e.board_id WHERE e.search_vector @@ plainto_tsquery('simple', " + p + ") ")
	} else {
		b.WriteString("SELECT e.board_id, bo.name, e.kind, e.element_id, e.text, '' FROM board_elements e JOIN boards bo ON bo.id = e.board_id WHERE TRUE ")
	}
	if len(q.Kinds) > 0 {
		kinds := make([]string, 0, len(q.Kinds))
		for _, k := range q.Kinds {
			kinds = append(kinds, string(k))
		}
		b.WriteString(" AND e.kind = ANY (" + place(kinds) + ") ")
	}
	if q.BoardID != "" {
		b.WriteString(" AND e.board_id = " + place(q.BoardID) + " ")
	}
	limit, offset := q.page()
	b.WriteString(" ORDER BY e.board_id, e.id LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var kind string
		if err := rows.Scan(&r.BoardID, &r.BoardName, &kind, &r.Ref.ID, &r.Text, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Ref.Kind = domain.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error { return s.db.Close() }
