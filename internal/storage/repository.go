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
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"gowhiteboard/internal/domain"
)

var (
	// ErrNotFound is returned when no board with the requested id is stored.
	ErrNotFound = errors.New("board not found")
	// ErrInvalidID rejects ids that cannot name a stored document.
	ErrInvalidID = errors.New("invalid board id")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Repository persists boards. Implementations are safe for concurrent use.
type Repository interface {
	Load(ctx context.Context, id string) (domain.Board, error)
	Save(ctx context.Context, b domain.Board) error
	List(ctx context.Context) ([]domain.BoardInfo, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q SearchQuery) ([]SearchResult, error)
	Close() error
}

// SearchQuery describes a search over element text.
// Kinds restricts matches to the given element kinds; BoardID to one board.
// Limit/Offset implement pagination; a zero Limit means 100.
type SearchQuery struct {
	Text    string
	Kinds   []domain.Kind
	BoardID string
	Limit   int
	Offset  int
}

// SearchResult is one matching element.
// Snippet marks the matched terms with [ ] when the backend supports it.
type SearchResult struct {
	BoardID   string
	BoardName string
	Ref       domain.Ref
	Text      string
	Snippet   string
}

// Drivers accepted by Open.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLiteFileName is the database file created under Options.Dir by the sqlite driver.
const SQLiteFileName = "boards.sqlite"

// Options selects and configures a backend.
type Options struct {
	Driver  string
	Dir     string
	DSN     string
	Backups int
}

// Open returns the repository selected by o.Driver. An empty driver means "file".
func Open(ctx context.Context, o Options) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(o.Driver)) {
	case "", DriverFile:
		return NewFileStore(o.Dir, o.Backups)
	case DriverSQLite:
		if strings.TrimSpace(o.Dir) == "" {
			return nil, errors.New("storage dir is required")
		}
		return OpenSQLite(filepath.Join(o.Dir, SQLiteFileName))
	case DriverPostgres:
		return OpenPostgres(ctx, o.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, o.Driver)
	}
}

// SaveAll stores every board, continuing past failures. The first error is returned.
func SaveAll(ctx context.Context, r Repository, boards []domain.Board) error {
	var first error
	for _, b := range boards {
		if err := r.Save(ctx, b); err != nil && first == nil {
			first = fmt.Errorf("save board %s: %w", b.ID, err)
		}
	}
	return first
}

// checkID rejects ids that are empty or could escape a directory when used as a file name.
func checkID(id string) error {
	if strings.TrimSpace(id) == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\:`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// elementRow is the searchable projection of one element.
type elementRow struct {
	kind domain.Kind
	id   string
	text string
}

func elementRows(b domain.Board) []elementRow {
	all := b.Elements.All()
	rows := make([]elementRow, 0, len(all))
	for _, e := range all {
		rows = append(rows, elementRow{kind: e.ElementKind(), id: e.ElementID(), text: e.ElementText()})
	}
	return rows
}

func kindAllowed(kinds []domain.Kind, k domain.Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

func (q SearchQuery) page() (limit, offset int) {
	limit, offset = q.Limit, q.Offset
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// searchTerms splits user text into lower-cased words.
func searchTerms(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchTerms reports whether text contains every term, and returns a snippet
// with the first occurrence of each term bracketed.
func matchTerms(text string, terms []string) (string, bool) {
	low := strings.ToLower(text)
	for _, t := range terms {
		if !strings.Contains(low, t) {
			return "", false
		}
	}
	if len(terms) == 0 {
		return "", true
	}
	snippet := text
	for _, t := range terms {
		// ToLower can change byte lengths for some runes; only mark when offsets line up.
		i := strings.Index(strings.ToLower(snippet), t)
		if i < 0 || len(strings.ToLower(snippet)) != len(snippet) {
			continue
		}
		snippet = snippet[:i] + "[" + snippet[i:i+len(t)] + "]" + snippet[i+len(t):]
	}
	return snippet, true
}

// ftsQuery turns user text into an FTS5 expression of quoted prefix terms
// joined by AND, so punctuation in the input never produces a syntax error.
func ftsQuery(s string) string {
	terms := searchTerms(s)
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, `"`+t+`"*`)
	}
	return strings.Join(parts, " AND ")
}
