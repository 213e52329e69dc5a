/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gowhiteboard/internal/domain"

	"github.com/google/go-cmp/cmp"
)

func mindmap() domain.Board {
	return domain.Board{
		ID:   "b1",
		Name: "Plan <Q3>",
		Elements: domain.Elements{
			Nodes: []domain.Node{
				{ID: "a", Position: domain.Position{X: 100, Y: 100}, Text: "Root", Color: "#3b82f6", Connections: []string{"b", "ghost"}},
				{ID: "b", Position: domain.Position{X: 300, Y: 200}, Text: "Leaf & branch", Color: "#10b981"},
			},
		},
	}
}

func TestBuildSceneShiftsToPaddedOrigin(t *testing.T) {
	s := BuildScene(mindmap(), DefaultOptions())
	if s.Width != 430 || s.Height != 230 {
		t.Fatalf("scene size = %gx%g, want 430x230", s.Width, s.Height)
	}
	if len(s.Curves) != 1 {
		t.Fatalf("dangling connection must be skipped, got %d curves", len(s.Curves))
	}
	if got, want := s.Curves[0].SVG(), "M 115 65 C 215 65 215 165 315 165"; got != want {
		t.Fatalf("curve = %q want %q", got, want)
	}
	var refs []string
	for _, it := range s.Items {
		refs = append(refs, it.Ref.ID)
	}
	if diff := cmp.Diff([]string{"a", "b"}, refs); diff != "" {
		t.Fatalf("item order mismatch:\n%s", diff)
	}
	if !s.Items[0].Centered || s.Items[0].Rect.X != 40 || s.Items[0].Rect.Y != 40 {
		t.Fatalf("unexpected first item %+v", s.Items[0])
	}
}

func TestBuildSceneEmptyBoard(t *testing.T) {
	s := BuildScene(domain.Board{ID: "e"}, DefaultOptions())
	if s.Width != 400 || s.Height != 280 {
		t.Fatalf("empty scene = %gx%g", s.Width, s.Height)
	}
	if len(s.Items) != 0 || len(s.Curves) != 0 {
		t.Fatalf("empty board should have nothing to draw")
	}
}

func TestBuildSceneNoteColors(t *testing.T) {
	b := domain.Board{Elements: domain.Elements{Notes: []domain.Note{
		{ID: "p", Color: domain.NotePink},
		{ID: "x", Color: "chartreuse"},
	}}}
	s := BuildScene(b, DefaultOptions())
	if s.Items[0].Fill != NotePalette[domain.NotePink] {
		t.Fatalf("pink note fill = %v", s.Items[0].Fill)
	}
	if s.Items[1].Fill != NotePalette[domain.NoteYellow] {
		t.Fatalf("unknown color should fall back to yellow, got %v", s.Items[1].Fill)
	}
}

func TestWrapText(t *testing.T) {
	got := WrapText("one two three\nfour", 7)
	want := []string{"one two", "three", "four"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("wrap mismatch:\n%s", diff)
	}
	if got := WrapText("abcdefghij", 3); len(got) != 1 {
		t.Fatalf("long words are not split: %v", got)
	}
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, mindmap(), DefaultOptions()); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	svg := buf.String()
	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg"`,
		`viewBox="0 0 430 230"`,
		`<title>Plan &lt;Q3&gt;</title>`,
		`d="M 115 65 C 215 65 215 165 315 165"`,
		`data-kind="node" data-id="a"`,
		`Leaf &amp; branch`,
		`fill="#3b82f6"`,
	} {
		if !strings.Contains(svg, want) {
			t.Fatalf("svg missing %q:\n%s", want, svg)
		}
	}
	if strings.Contains(svg, "ghost") {
		t.Fatalf("svg references dangling target")
	}
}

func TestWritePNGSize(t *testing.T) {
	var buf bytes.Buffer
	o := DefaultOptions()
	o.Scale = 2
	if err := WritePNG(&buf, mindmap(), o); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 860 || b.Dy() != 460 {
		t.Fatalf("png size = %dx%d want 860x460", b.Dx(), b.Dy())
	}
	// Background corner stays white.
	r, g, bl, _ := img.At(1, 1).RGBA()
	if r>>8 != 255 || g>>8 != 255 || bl>>8 != 255 {
		t.Fatalf("corner pixel not white: %d %d %d", r>>8, g>>8, bl>>8)
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, mindmap(), DefaultOptions()); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a pdf: %q", buf.Bytes()[:min(16, buf.Len())])
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"svg": FormatSVG, ".PNG": FormatPNG, " pdf ": FormatPDF} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("cbz"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if f, err := FormatFromPath("/tmp/x/board.pdf"); err != nil || f != FormatPDF {
		t.Fatalf("FormatFromPath = %q, %v", f, err)
	}
}

func TestExportFileCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.svg")
	if err := ExportFile(path, FormatSVG, mindmap(), DefaultOptions()); err != nil {
		t.Fatalf("ExportFile: %v", err)
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		t.Fatalf("expected non-empty file: %v", err)
	}
}

func TestExportFileRemovesPartialOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.cbz")
	if err := ExportFile(path, Format("cbz"), mindmap(), DefaultOptions()); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind: %v", err)
	}
}

func TestExportBoardsWebPreset(t *testing.T) {
	dir := t.TempDir()
	b2 := mindmap()
	b2.ID = "b2"
	paths, err := ExportBoards(context.Background(), []domain.Board{mindmap(), b2}, BatchOptions{Preset: PresetWeb, OutDir: dir, Workers: 2})
	if err != nil {
		t.Fatalf("ExportBoards: %v", err)
	}
	want := []string{
		filepath.Join(dir, "svg", "b1.svg"),
		filepath.Join(dir, "png", "b1.png"),
		filepath.Join(dir, "svg", "b2.svg"),
		filepath.Join(dir, "png", "b2.png"),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("paths mismatch:\n%s", diff)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
}

func TestExportBoardsRejectsUnknownFormat(t *testing.T) {
	_, err := ExportBoards(context.Background(), []domain.Board{mindmap()}, BatchOptions{Formats: []Format{"gif"}, OutDir: t.TempDir()})
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestExportBoardsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExportBoards(ctx, []domain.Board{mindmap()}, BatchOptions{OutDir: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
