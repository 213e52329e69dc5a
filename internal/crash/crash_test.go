/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Whiteboard Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportListsBoards(t *testing.T) {
	dir := t.TempDir()
	target := &Target{
		ReportDir: dir,
		Boards: func() []domain.Board {
			return []domain.Board{{ID: "b1", Elements: domain.Elements{Notes: []domain.Note{{ID: "n1"}}}}}
		},
	}
	path, err := writeReport(target, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("report in %s, want %s", path, dir)
	}
	b, _ := os.ReadFile(path)
	if !bytes.Contains(b, []byte("Board: b1 (1 elements)")) {
		t.Fatalf("board line missing: %s", b)
	}
}

// silenceStderr redirects os.Stderr for the duration of the test.
func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, r)
		close(done)
	}()
	t.Cleanup(func() {
		os.Stderr = old
		_ = w.Close()
		<-done
		_ = r.Close()
	})
}

// Recover handles a panic, writes a report, autosaves every board through
// the file store, and attempts exit code 2 (intercepted).
func TestRecoverAutosavesBoards(t *testing.T) {
	silenceStderr(t)
	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	store, err := storage.NewFileStore(t.TempDir(), 3)
	if err != nil {
		t.Fatal(err)
	}
	boards := []domain.Board{
		{ID: "b1", Name: "one", Elements: domain.Elements{}},
		{ID: "bad/id", Name: "rejected"},
		{ID: "b2", Name: "two", Elements: domain.Elements{}},
	}
	var saved []string
	target := &Target{
		ReportDir: filepath.Join(store.Dir, storage.BackupsDirName),
		Boards:    func() []domain.Board { return boards },
		Autosave: func(b domain.Board) (string, error) {
			p, err := store.CrashSnapshot(b)
			if err == nil {
				saved = append(saved, p)
			}
			return p, err
		},
	}

	func() {
		defer Recover(target)
		panic("boom")
	}()

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if len(saved) != 2 {
		t.Fatalf("autosaved %d boards, want 2 (%v)", len(saved), saved)
	}
	for _, p := range saved {
		if _, err := storage.ReadBoardFile(p); err != nil {
			t.Fatalf("autosave %s unreadable: %v", p, err)
		}
	}
	files, _ := os.ReadDir(target.ReportDir)
	var report string
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log") {
			report = filepath.Join(target.ReportDir, f.Name())
		}
	}
	if report == "" {
		t.Fatalf("expected crash report under %s", target.ReportDir)
	}
	b, _ := os.ReadFile(report)
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", b)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(&Target{Autosave: func(domain.Board) (string, error) { return "", errors.New("unused") }})
	}()
	if called {
		t.Fatal("exit called without panic")
	}
}
