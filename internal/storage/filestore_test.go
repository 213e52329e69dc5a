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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gowhiteboard/internal/domain"

	"github.com/google/go-cmp/cmp"
)

func sampleBoard(id, name string) domain.Board {
	return domain.Board{
		ID:           id,
		Name:         name,
		LastModified: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Elements: domain.Elements{
			Notes: []domain.Note{{ID: id + "-n1", Position: domain.Position{X: 100, Y: 100}, Text: "Buy milk", Color: domain.NoteYellow}},
			Nodes: []domain.Node{
				{ID: id + "-c", Position: domain.Position{X: 400, Y: 300}, Text: "Central idea", Color: "#6366f1", Connections: []string{id + "-t"}},
				{ID: id + "-t", Position: domain.Position{X: 150, Y: 150}, Text: "Topic milkshake", Color: "#ec4899", Connections: []string{}},
			},
			TextBoxes: []domain.TextBox{{ID: id + "-tb", Position: domain.Position{X: 10, Y: 20}, Text: "Title", FontSize: 16, Width: 200}},
		},
	}
}

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestFileStore(t *testing.T, backups int) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), backups)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	s.Now = stepClock()
	return s
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	s := newTestFileStore(t, 3)
	ctx := context.Background()
	want := sampleBoard("b1", "Ideas")
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, "b1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	// No temp files are left behind.
	ents, _ := os.ReadDir(s.Dir)
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), ".") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	s := newTestFileStore(t, 3)
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load missing = %v, want ErrNotFound", err)
	}
}

func TestFileStoreRejectsPathLikeIDs(t *testing.T) {
	s := newTestFileStore(t, 3)
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		b := sampleBoard("x", "x")
		b.ID = id
		if err := s.Save(context.Background(), b); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("Save(%q) = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestFileStoreBackupsArePrunedAndUsedOnCorruption(t *testing.T) {
	s := newTestFileStore(t, 2)
	ctx := context.Background()
	b := sampleBoard("b1", "v0")
	for i := 0; i < 5; i++ {
		b.Name = "v" + string(rune('0'+i))
		if err := s.Save(ctx, b); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	if got := len(s.backups("b1")); got != 2 {
		t.Fatalf("backups kept = %d, want 2", got)
	}
	// Corrupt the live document; the newest backup holds v3.
	if err := os.WriteFile(s.Path("b1"), []byte("{ this is not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	got, err := s.Load(ctx, "b1")
	if err != nil {
		t.Fatalf("Load after corruption: %v", err)
	}
	if got.Name != "v3" {
		t.Fatalf("restored name = %q, want v3", got.Name)
	}
}

func TestFileStoreListSortedByRecency(t *testing.T) {
	s := newTestFileStore(t, 3)
	ctx := context.Background()
	older := sampleBoard("a", "Older")
	newer := sampleBoard("b", "Newer")
	newer.LastModified = older.LastModified.Add(time.Hour)
	for _, b := range []domain.Board{older, newer} {
		if err := s.Save(ctx, b); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	// A stray invalid document is skipped.
	if err := os.WriteFile(filepath.Join(s.Dir, "junk.json"), []byte(`{"id": ""}`), 0o644); err != nil {
		t.Fatal(err)
	}
	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []domain.BoardInfo{
		{ID: "b", Name: "Newer", LastModified: newer.LastModified, Elements: 4},
		{ID: "a", Name: "Older", LastModified: older.LastModified, Elements: 4},
	}
	if diff := cmp.Diff(want, infos); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStoreDeleteRemovesBackups(t *testing.T) {
	s := newTestFileStore(t, 3)
	ctx := context.Background()
	b := sampleBoard("b1", "x")
	_ = s.Save(ctx, b)
	_ = s.Save(ctx, b)
	if err := s.Delete(ctx, "b1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(s.backups("b1")) != 0 {
		t.Fatalf("backups left after delete")
	}
	if _, err := s.Load(ctx, "b1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load after delete = %v", err)
	}
	if err := s.Delete(ctx, "b1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestFileStoreSearch(t *testing.T) {
	s := newTestFileStore(t, 3)
	ctx := context.Background()
	_ = s.Save(ctx, sampleBoard("a", "A"))
	_ = s.Save(ctx, sampleBoard("b", "B"))

	res, err := s.Search(ctx, SearchQuery{Text: "MILK"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 4 {
		t.Fatalf("Search milk = %d results, want 4: %+v", len(res), res)
	}
	if res[0].BoardID != "a" || res[0].Ref != (domain.Ref{Kind: domain.KindNote, ID: "a-n1"}) || res[0].Snippet != "Buy [milk]" {
		t.Fatalf("first result = %+v", res[0])
	}

	res, _ = s.Search(ctx, SearchQuery{Text: "milk", Kinds: []domain.Kind{domain.KindNode}, BoardID: "b"})
	if len(res) != 1 || res[0].Ref.ID != "b-t" {
		t.Fatalf("filtered search = %+v", res)
	}
	res, _ = s.Search(ctx, SearchQuery{Text: "milk", Limit: 1, Offset: 1})
	if len(res) != 1 || res[0].Ref.ID != "a-t" {
		t.Fatalf("paged search = %+v", res)
	}
}

func TestCrashSnapshotLeavesLiveDocument(t *testing.T) {
	s := newTestFileStore(t, 3)
	ctx := context.Background()
	b := sampleBoard("b1", "saved")
	_ = s.Save(ctx, b)
	b.Name = "unsaved"
	p, err := s.CrashSnapshot(b)
	if err != nil {
		t.Fatalf("CrashSnapshot: %v", err)
	}
	got, err := ReadBoardFile(p)
	if err != nil || got.Name != "unsaved" {
		t.Fatalf("snapshot = %+v, %v", got, err)
	}
	live, _ := s.Load(ctx, "b1")
	if live.Name != "saved" {
		t.Fatalf("live document changed: %q", live.Name)
	}
}

func TestWriteReadBoardFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "board.json")
	want := sampleBoard("b1", "Export")
	if err := WriteBoardFile(p, want); err != nil {
		t.Fatalf("WriteBoardFile: %v", err)
	}
	got, err := ReadBoardFile(p)
	if err != nil {
		t.Fatalf("ReadBoardFile: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
