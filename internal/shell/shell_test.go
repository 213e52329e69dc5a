/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/ids"
	"gowhiteboard/internal/storage"
	"gowhiteboard/internal/workspace"

	"github.com/chzyer/readline"
	"github.com/google/go-cmp/cmp"
)

func newTestShell(t *testing.T) (*Shell, *workspace.Workspace, *bytes.Buffer) {
	t.Helper()
	ws := workspace.New(workspace.Options{IDs: ids.NewSequence("e"), Rand: rand.New(rand.NewPCG(3, 4))})
	fs, err := storage.NewFileStore(t.TempDir(), 2)
	if err != nil {
		t.Fatalf("filestore: %v", err)
	}
	var out bytes.Buffer
	return New(Options{Workspace: ws, Repo: fs, Out: &out}), ws, &out
}

func mustExec(t *testing.T, s *Shell, line string) {
	t.Helper()
	if err := s.Exec(context.Background(), line); err != nil {
		t.Fatalf("%s: %v", line, err)
	}
}

func TestParseArgs(t *testing.T) {
	cases := map[string][]string{
		`set e1 text "hello world"`: {"set", "e1", "text", "hello world"},
		`  add   note `:              {"add", "note"},
		`rename . ""`:                {"rename", ".", ""},
		``:                           nil,
	}
	for in, want := range cases {
		if diff := cmp.Diff(want, ParseArgs(in)); diff != "" {
			t.Fatalf("ParseArgs(%q) mismatch:\n%s", in, diff)
		}
	}
}

func TestBoardAndElementCommands(t *testing.T) {
	s, ws, out := newTestShell(t)
	mustExec(t, s, `new mindmap "Road map"`)
	b, ok := ws.ActiveBoard()
	if !ok || b.Name != "Road map" || len(b.Elements.Nodes) != 5 {
		t.Fatalf("unexpected board %+v", b)
	}
	if s.Prompt() != "Road map> " {
		t.Fatalf("prompt = %q", s.Prompt())
	}

	mustExec(t, s, "add note")
	b, _ = ws.ActiveBoard()
	note := b.Elements.Notes[0]
	mustExec(t, s, `set `+note.ID+` text "ship it"`)
	mustExec(t, s, "set "+note.ID+" color pink")
	mustExec(t, s, "set "+note.ID+" pos 100 100")
	mustExec(t, s, "zoom in")
	mustExec(t, s, "zoom reset")
	mustExec(t, s, "move "+note.ID+" 50 0")
	b, _ = ws.ActiveBoard()
	got := b.Elements.Notes[0]
	if got.Text != "ship it" || got.Color != domain.NotePink || got.Position != (domain.Position{X: 150, Y: 100}) {
		t.Fatalf("unexpected note %+v", got)
	}

	mustExec(t, s, "select "+note.ID)
	mustExec(t, s, "ls")
	if !strings.Contains(out.String(), "ship it") {
		t.Fatalf("ls output missing note text:\n%s", out.String())
	}
	mustExec(t, s, "rm "+note.ID)
	if ws.SelectedID() != "" {
		t.Fatalf("deleting the selected element clears the selection")
	}
	if err := s.Exec(context.Background(), "rm "+note.ID); !errors.Is(err, workspace.ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
	mustExec(t, s, "undo")
	b, _ = ws.ActiveBoard()
	if len(b.Elements.Notes) != 1 {
		t.Fatalf("undo should restore the note")
	}
}

func TestConnectAndPrune(t *testing.T) {
	s, ws, out := newTestShell(t)
	mustExec(t, s, "new")
	mustExec(t, s, "add node")
	mustExec(t, s, "add node")
	b, _ := ws.ActiveBoard()
	a, c := b.Elements.Nodes[0].ID, b.Elements.Nodes[1].ID
	mustExec(t, s, "connect "+a+" "+c)
	mustExec(t, s, "rm "+c)
	b, _ = ws.ActiveBoard()
	if diff := cmp.Diff([]string{c}, b.Elements.Nodes[0].Connections); diff != "" {
		t.Fatalf("deleting a node keeps dangling connections:\n%s", diff)
	}
	mustExec(t, s, "prune")
	if !strings.Contains(out.String(), "removed 1 dangling") {
		t.Fatalf("prune output:\n%s", out.String())
	}
}

func TestKeyCommand(t *testing.T) {
	s, ws, out := newTestShell(t)
	mustExec(t, s, "new")
	mustExec(t, s, "key M")
	b, _ := ws.ActiveBoard()
	if len(b.Elements.Nodes) != 1 {
		t.Fatalf("key M should add one node, got %d", len(b.Elements.Nodes))
	}
	mustExec(t, s, "key ?")
	if !strings.Contains(out.String(), "new sticky note") {
		t.Fatalf("? should print the shortcuts:\n%s", out.String())
	}
	if err := s.Exec(context.Background(), "key x"); err == nil {
		t.Fatalf("unbound key should fail")
	}
}

func TestSaveLoadSearch(t *testing.T) {
	s, ws, out := newTestShell(t)
	mustExec(t, s, `new brainstorm Ideas`)
	id := ws.ActiveID()
	mustExec(t, s, "save")
	mustExec(t, s, "rmboard .")
	if len(ws.Boards()) != 0 {
		t.Fatalf("rmboard should close the board")
	}
	mustExec(t, s, "stored")
	if !strings.Contains(out.String(), "Ideas") {
		t.Fatalf("stored output:\n%s", out.String())
	}
	mustExec(t, s, "load "+id)
	if ws.ActiveID() != id {
		t.Fatalf("load should activate the board")
	}
	out.Reset()
	mustExec(t, s, "search idea")
	if !strings.Contains(out.String(), "[Idea] 1") {
		t.Fatalf("search output:\n%s", out.String())
	}
	mustExec(t, s, "save all")
}

func TestExportCommand(t *testing.T) {
	s, _, _ := newTestShell(t)
	mustExec(t, s, "new mindmap")
	path := filepath.Join(t.TempDir(), "map.svg")
	mustExec(t, s, "export "+path+" 2")
	data, err := os.ReadFile(path)
	if err != nil || !bytes.Contains(data, []byte("<svg")) {
		t.Fatalf("export did not write svg: %v", err)
	}
	if err := s.Exec(context.Background(), "export out.gif"); err == nil {
		t.Fatalf("unknown extension should fail")
	}
}

func TestUsageAndUnknown(t *testing.T) {
	s, _, _ := newTestShell(t)
	if err := s.Exec(context.Background(), "move"); err == nil || !strings.Contains(err.Error(), "usage") {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := s.Exec(context.Background(), "frobnicate"); err == nil {
		t.Fatalf("expected unknown command error")
	}
	if err := s.Exec(context.Background(), "ls"); !errors.Is(err, workspace.ErrNoActiveBoard) {
		t.Fatalf("expected ErrNoActiveBoard, got %v", err)
	}
	if err := s.Exec(context.Background(), "# comment"); err != nil {
		t.Fatalf("comments are ignored: %v", err)
	}
}

type fakeReader struct {
	lines   []string
	errs    []error
	prompts []string
}

func (f *fakeReader) SetPrompt(p string) { f.prompts = append(f.prompts, p) }

func (f *fakeReader) Readline() (string, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return "", err
	}
	if len(f.lines) == 0 {
		return "", io.EOF
	}
	l := f.lines[0]
	f.lines = f.lines[1:]
	return l, nil
}

func TestRunLoop(t *testing.T) {
	s, ws, out := newTestShell(t)
	r := &fakeReader{
		errs:  []error{readline.ErrInterrupt},
		lines: []string{"new blank Notes", "bogus", "add text", "exit", "add note"},
	}
	if err := s.Run(context.Background(), r); err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, _ := ws.ActiveBoard()
	if len(b.Elements.TextBoxes) != 1 || len(b.Elements.Notes) != 0 {
		t.Fatalf("exit should stop the loop: %+v", b.Elements)
	}
	text := out.String()
	if !strings.Contains(text, "Use 'exit'") || !strings.Contains(text, "error: unknown command: bogus") {
		t.Fatalf("unexpected output:\n%s", text)
	}
	if r.prompts[len(r.prompts)-1] != "Notes> " {
		t.Fatalf("prompt should follow the active board, got %q", r.prompts)
	}
}

func TestExecScript(t *testing.T) {
	s, ws, _ := newTestShell(t)
	script := "new blank Scripted\nadd note\nadd node\n# done\n"
	if err := s.ExecScript(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatalf("ExecScript: %v", err)
	}
	b, _ := ws.ActiveBoard()
	if b.Elements.Len() != 2 {
		t.Fatalf("expected 2 elements, got %d", b.Elements.Len())
	}
	err := s.ExecScript(context.Background(), strings.NewReader("add note\nadd blob\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 failure, got %v", err)
	}
}
