package keys

import (
	"math/rand/v2"
	"testing"

	"gowhiteboard/internal/canvas"
	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/ids"
	"gowhiteboard/internal/vector"
	"gowhiteboard/internal/workspace"
)

func newDispatcher(t *testing.T) (*Dispatcher, *workspace.Workspace) {
	t.Helper()
	ws := workspace.New(workspace.Options{IDs: ids.NewSequence("k"), Rand: rand.New(rand.NewPCG(3, 4))})
	if _, err := ws.CreateBoard(workspace.Blank, "keys"); err != nil {
		t.Fatalf("create: %v", err)
	}
	return &Dispatcher{Workspace: ws, Viewport: canvas.NewViewport(canvas.DefaultLimits)}, ws
}

func TestLookup(t *testing.T) {
	cases := map[string]Action{"n": NewNote, "N": NewNote, "t": NewTextBox, "M": NewNode, "Delete": DeleteSelection,
		"esc": ClearSelection, "Escape": ClearSelection, "+": ZoomIn, "=": ZoomIn, "-": ZoomOut, "0": ZoomReset, "?": ShowHelp}
	for k, want := range cases {
		if got, ok := Lookup(k); !ok || got != want {
			t.Fatalf("Lookup(%q) = %v, %v", k, got, ok)
		}
	}
	if _, ok := Lookup("x"); ok {
		t.Fatalf("x should be unbound")
	}
}

func TestKeysIgnoredWhileTyping(t *testing.T) {
	d, ws := newDispatcher(t)
	res, err := d.Handle("n", true)
	if err != nil || res.Action != None {
		t.Fatalf("expected no-op, got %+v %v", res, err)
	}
	b, _ := ws.ActiveBoard()
	if b.Elements.Len() != 0 {
		t.Fatalf("element created while text focused")
	}
}

func TestCreateKeys(t *testing.T) {
	d, ws := newDispatcher(t)
	for key, kind := range map[string]domain.Kind{"n": domain.KindNote, "t": domain.KindTextBox, "m": domain.KindNode} {
		res, err := d.Handle(key, false)
		if err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		if res.Ref.Kind != kind || res.Ref.ID == "" {
			t.Fatalf("%s created %+v", key, res.Ref)
		}
	}
	b, _ := ws.ActiveBoard()
	if len(b.Elements.Notes) != 1 || len(b.Elements.Nodes) != 1 || len(b.Elements.TextBoxes) != 1 {
		t.Fatalf("unexpected elements %+v", b.Elements)
	}
}

func TestSelectionKeys(t *testing.T) {
	d, ws := newDispatcher(t)
	res, _ := d.Handle("n", false)
	ws.SelectElement(res.Ref.ID)
	if _, err := d.Handle("esc", false); err != nil {
		t.Fatalf("esc: %v", err)
	}
	if ws.SelectedID() != "" {
		t.Fatalf("escape should clear selection")
	}
	ws.SelectElement(res.Ref.ID)
	if _, err := d.Handle("delete", false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	b, _ := ws.ActiveBoard()
	if b.Elements.Len() != 0 || ws.SelectedID() != "" {
		t.Fatalf("delete key did not remove selection")
	}
	if _, err := d.Handle("delete", false); err != nil {
		t.Fatalf("delete with empty selection should be silent: %v", err)
	}
}

func TestZoomKeysAndHelp(t *testing.T) {
	d, _ := newDispatcher(t)
	helped := false
	d.OnHelp = func() { helped = true }
	for i := 0; i < 30; i++ {
		d.Handle("+", false)
	}
	if d.Viewport.Zoom != 2 {
		t.Fatalf("zoom in should clamp at 2, got %v", d.Viewport.Zoom)
	}
	d.Handle("0", false)
	d.Handle("-", false)
	if d.Viewport.Zoom != 0.9 {
		t.Fatalf("expected 0.9, got %v", d.Viewport.Zoom)
	}
	d.Handle("?", false)
	if !helped {
		t.Fatalf("help callback not invoked")
	}
}

// Note at (100,100) dragged by (50,0) at zoom 2, deleted, then M creates one
// fresh node.
func TestKeyboardScenario(t *testing.T) {
	d, ws := newDispatcher(t)
	if err := ws.Open(domain.Board{ID: "s", Elements: domain.Elements{
		Notes: []domain.Note{{ID: "N1", Position: domain.Position{X: 100, Y: 100}, Color: domain.NoteBlue}},
	}}); err != nil {
		t.Fatalf("open: %v", err)
	}
	d.Viewport.ZoomBy(1)
	pos, err := ws.MoveElement(domain.Ref{Kind: domain.KindNote, ID: "N1"}, vector.Pt{X: 50}, d.Viewport.Zoom)
	if err != nil || pos != (domain.Position{X: 125, Y: 100}) {
		t.Fatalf("move: %+v %v", pos, err)
	}
	ws.SelectElement("N1")
	d.Handle("delete", false)
	b, _ := ws.ActiveBoard()
	if len(b.Elements.Notes) != 0 || ws.SelectedID() != "" {
		t.Fatalf("delete failed")
	}
	prior := map[string]bool{"N1": true, "s": true}
	for _, info := range ws.Boards() {
		prior[info.ID] = true
	}
	res, err := d.Handle("M", false)
	if err != nil {
		t.Fatalf("M: %v", err)
	}
	b, _ = ws.ActiveBoard()
	if len(b.Elements.Nodes) != 1 || prior[res.Ref.ID] {
		t.Fatalf("expected one fresh node, got %+v (id %q)", b.Elements.Nodes, res.Ref.ID)
	}
}
