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
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gowhiteboard/internal/domain"
	applog "gowhiteboard/internal/log"
)

const (
	// BoardExt is the file extension of board documents.
	BoardExt       = ".json"
	BackupsDirName = "backups"
	// DefaultBackups is the number of backups kept per board when none is configured.
	DefaultBackups = 5

	backupStamp = "20060102-150405.000"
)

// FileStore keeps one JSON document per board in Dir. Every save is written to a
// temp file and renamed over the target; the previous version is first copied to
// Dir/backups/<id>.json.<stamp>.bak and at most Backups copies are kept per board.
type FileStore struct {
	Dir     string
	Backups int
	// Now is the clock used for backup stamps.
	Now func() time.Time

	mu sync.Mutex
}

// NewFileStore creates dir (and its backups folder) if needed.
func NewFileStore(dir string, backups int) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if backups <= 0 {
		backups = DefaultBackups
	}
	return &FileStore{Dir: dir, Backups: backups, Now: time.Now}, nil
}

// Path returns the document path of board id.
func (s *FileStore) Path(id string) string { return filepath.Join(s.Dir, id+BoardExt) }

// Load reads board id. When the document is unreadable or invalid, the latest
// backup is used instead.
func (s *FileStore) Load(_ context.Context, id string) (domain.Board, error) {
	if err := checkID(id); err != nil {
		return domain.Board{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := applog.WithOperation(applog.WithComponent("storage"), "load").With(slog.String("board", id))

	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		if b, berr := s.latestBackup(id); berr == nil {
			l.Warn("board document missing; restored from backup")
			return b, nil
		}
		return domain.Board{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		b, berr := s.latestBackup(id)
		if berr != nil {
			return domain.Board{}, fmt.Errorf("read board: %w; backup attempt: %v", err, berr)
		}
		l.Warn("board document unreadable; restored from backup", slog.Any("err", err))
		return b, nil
	}
	b, derr := DecodeBoard(data)
	if derr != nil {
		rb, berr := s.latestBackup(id)
		if berr != nil {
			return domain.Board{}, fmt.Errorf("parse board: %w; backup attempt: %v", derr, berr)
		}
		l.Warn("board document invalid; restored from backup", slog.Any("err", derr))
		return rb, nil
	}
	return b, nil
}

// Save writes b transactionally, backing up the previous document first.
func (s *FileStore) Save(_ context.Context, b domain.Board) error {
	if err := checkID(b.ID); err != nil {
		return err
	}
	data, err := EncodeBoard(b)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.Path(b.ID)
	if _, statErr := os.Stat(target); statErr == nil {
		bpath := filepath.Join(s.Dir, BackupsDirName, fmt.Sprintf("%s%s.%s.bak", b.ID, BoardExt, s.now().Format(backupStamp)))
		if cerr := copyFile(target, bpath); cerr != nil {
			return fmt.Errorf("backup current board: %w", cerr)
		}
		s.pruneBackups(b.ID)
	}
	if err := writeFileAtomic(target, data); err != nil {
		return fmt.Errorf("write board: %w", err)
	}
	return nil
}

// List returns every readable board, most recently modified first.
// Documents that fail validation are skipped and logged.
func (s *FileStore) List(ctx context.Context) ([]domain.BoardInfo, error) {
	boards, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BoardInfo, 0, len(boards))
	for _, b := range boards {
		out = append(out, b.Info())
	}
	sortInfos(out)
	return out, nil
}

// Delete removes board id and its backups.
func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("delete board: %w", err)
	}
	for _, p := range s.backups(id) {
		_ = os.Remove(p)
	}
	return nil
}

// Search scans every board for elements whose text contains all query words.
func (s *FileStore) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var boards []domain.Board
	if q.BoardID != "" {
		b, err := s.Load(ctx, q.BoardID)
		if err != nil {
			return nil, err
		}
		boards = []domain.Board{b}
	} else {
		all, err := s.all(ctx)
		if err != nil {
			return nil, err
		}
		boards = all
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].ID < boards[j].ID })
	return searchBoards(boards, q), nil
}

// Close is a no-op; it exists to satisfy Repository.
func (s *FileStore) Close() error { return nil }

// CrashSnapshot writes b next to the backups as <id>.crash-<stamp>.json without
// touching the live document and returns the written path.
func (s *FileStore) CrashSnapshot(b domain.Board) (string, error) {
	if err := checkID(b.ID); err != nil {
		return "", err
	}
	data, err := EncodeBoard(b)
	if err != nil {
		return "", err
	}
	p := filepath.Join(s.Dir, BackupsDirName, fmt.Sprintf("%s.crash-%s%s", b.ID, s.now().Format("20060102-150405"), BoardExt))
	if err := writeFileAtomic(p, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return p, nil
}

func (s *FileStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *FileStore) all(ctx context.Context) ([]domain.Board, error) {
	ents, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "scan")
	var out []domain.Board
	for _, e := range ents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, BoardExt) || strings.HasPrefix(name, ".") {
			continue
		}
		b, err := s.Load(ctx, strings.TrimSuffix(name, BoardExt))
		if err != nil {
			l.Warn("skipping unreadable board", slog.String("file", name), slog.Any("err", err))
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// backups returns the backup paths of board id, oldest first.
func (s *FileStore) backups(id string) []string {
	bdir := filepath.Join(s.Dir, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	prefix := id + BoardExt + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out
}

func (s *FileStore) pruneBackups(id string) {
	all := s.backups(id)
	for len(all) > s.Backups {
		if err := os.Remove(all[0]); err != nil {
			applog.WithComponent("storage").Warn("prune backup failed", slog.String("path", all[0]), slog.Any("err", err))
		}
		all = all[1:]
	}
}

// latestBackup decodes the newest valid backup of board id.
func (s *FileStore) latestBackup(id string) (domain.Board, error) {
	candidates := s.backups(id)
	if len(candidates) == 0 {
		return domain.Board{}, errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		data, err := os.ReadFile(candidates[i])
		if err != nil {
			lastErr = err
			continue
		}
		b, err := DecodeBoard(data)
		if err != nil {
			lastErr = err
			continue
		}
		return b, nil
	}
	return domain.Board{}, fmt.Errorf("no usable backup: %w", lastErr)
}

// ReadBoardFile imports a board document from an arbitrary path.
func ReadBoardFile(path string) (domain.Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Board{}, fmt.Errorf("read board file: %w", err)
	}
	return DecodeBoard(data)
}

// WriteBoardFile exports b to path with the same transactional write the store uses.
func WriteBoardFile(path string, b domain.Board) error {
	data, err := EncodeBoard(b)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	return writeFileAtomic(path, data)
}

func searchBoards(boards []domain.Board, q SearchQuery) []SearchResult {
	terms := searchTerms(q.Text)
	limit, offset := q.page()
	var out []SearchResult
	for _, b := range boards {
		for _, r := range elementRows(b) {
			if !kindAllowed(q.Kinds, r.kind) {
				continue
			}
			snip, ok := matchTerms(r.text, terms)
			if !ok {
				continue
			}
			if offset > 0 {
				offset--
				continue
			}
			out = append(out, SearchResult{BoardID: b.ID, BoardName: b.Name, Ref: domain.Ref{Kind: r.kind, ID: r.id}, Text: r.text, Snippet: snip})
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

func sortInfos(infos []domain.BoardInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].LastModified.Equal(infos[j].LastModified) {
			return infos[i].LastModified.After(infos[j].LastModified)
		}
		return infos[i].ID < infos[j].ID
	})
}

// writeFileAtomic writes data to a temp file in the target's directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp file: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
