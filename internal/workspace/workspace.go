/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package workspace owns the boards of one session: board lifecycle, element
// CRUD, the single-element selection and undo history. Every change is
// announced on an event.Bus after the workspace lock is released.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"reflect"
	"slices"
	"sync"
	"time"

	"gowhiteboard/internal/canvas"
	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/event"
	"gowhiteboard/internal/ids"
	applog "gowhiteboard/internal/log"
	"gowhiteboard/internal/undo"
	"gowhiteboard/internal/vector"
)

var (
	ErrBoardNotFound   = errors.New("board not found")
	ErrElementNotFound = errors.New("element not found")
	ErrNoActiveBoard   = errors.New("no active board")
	ErrUnknownTemplate = errors.New("unknown template")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrNothingToRedo   = errors.New("nothing to redo")
)

// Random is the subset of *rand.Rand the workspace draws from.
type Random interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// TextBoxDefaults size new text boxes.
type TextBoxDefaults struct {
	FontSize float64 `yaml:"fontSize"`
	Width    float64 `yaml:"width"`
}

// Placement controls where new elements appear: Spawn + [0, Jitter) on both axes.
type Placement struct {
	Spawn  domain.Position `yaml:"spawn"`
	Jitter float64         `yaml:"jitter"`
}

// Options wires a Workspace. Zero fields get defaults.
type Options struct {
	IDs       ids.Allocator
	Rand      Random
	Clock     func() time.Time
	Bus       *event.Bus
	History   *undo.Manager
	Placement *Placement
	TextBox   *TextBoxDefaults
	Logger    *slog.Logger
}

// Workspace is safe for concurrent use. Event handlers run synchronously on
// the caller's goroutine and may call back into the workspace.
type Workspace struct {
	mu       sync.RWMutex
	boards   []*domain.Board
	active   string
	selected string

	ids     ids.Allocator
	rnd     Random
	now     func() time.Time
	bus     *event.Bus
	history *undo.Manager
	place   Placement
	tb      TextBoxDefaults
	log     *slog.Logger
}

func New(opts Options) *Workspace {
	w := &Workspace{
		ids:     opts.IDs,
		rnd:     opts.Rand,
		now:     opts.Clock,
		bus:     opts.Bus,
		history: opts.History,
		place:   Placement{Spawn: domain.Position{X: 100, Y: 100}, Jitter: 200},
		tb:      TextBoxDefaults{FontSize: 16, Width: 200},
		log:     opts.Logger,
	}
	if w.ids == nil {
		w.ids = ids.Default()
	}
	if w.rnd == nil {
		w.rnd = globalRand{}
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.bus == nil {
		w.bus = event.NewBus()
	}
	if w.history == nil {
		w.history = undo.NewManager(undo.Config{MaxPerBoard: 100, MinInterval: 500 * time.Millisecond})
	}
	if opts.Placement != nil {
		w.place = *opts.Placement
	}
	if opts.TextBox != nil {
		w.tb = *opts.TextBox
	}
	if w.log == nil {
		w.log = applog.WithComponent("workspace")
	}
	return w
}

// Bus returns the bus the workspace publishes on.
func (w *Workspace) Bus() *event.Bus { return w.bus }

func (w *Workspace) publish(evs []event.Event) {
	for _, e := range evs {
		w.bus.Publish(e)
	}
}

func (w *Workspace) boardLocked(id string) (*domain.Board, int) {
	for i, b := range w.boards {
		if b.ID == id {
			return b, i
		}
	}
	return nil, -1
}

func (w *Workspace) activeLocked() (*domain.Board, error) {
	if w.active == "" {
		return nil, ErrNoActiveBoard
	}
	b, _ := w.boardLocked(w.active)
	if b == nil {
		return nil, ErrNoActiveBoard
	}
	return b, nil
}

// snapshotLocked records b's current state for undo under label.
func (w *Workspace) snapshotLocked(b *domain.Board, label string) {
	blob, err := json.Marshal(b)
	if err != nil {
		w.log.Warn("undo snapshot failed", "board", b.ID, "err", err)
		return
	}
	w.history.Push(undo.Snapshot{Board: b.ID, Label: label, Blob: blob, TS: w.now()})
}

func (w *Workspace) touchLocked(b *domain.Board) { b.LastModified = w.now() }

// CreateBoard adds a board built from tmpl and makes it active. An empty name
// takes the template's default name.
func (w *Workspace) CreateBoard(tmpl Template, name string) (domain.Board, error) {
	tmpl, err := ParseTemplate(string(tmpl))
	if err != nil {
		return domain.Board{}, err
	}
	if name == "" {
		name = tmpl.defaultName()
	}
	w.mu.Lock()
	b := &domain.Board{ID: w.ids.Next(), Name: name, LastModified: w.now(), Elements: tmpl.populate(w.ids, w.tb)}
	w.boards = append(w.boards, b)
	evs := w.activateLocked(b.ID)
	out := b.Clone()
	w.mu.Unlock()

	w.log.Debug("board created", "board", out.ID, "template", string(tmpl))
	w.publish(append([]event.Event{{Type: event.BoardCreated, BoardID: out.ID, Template: string(tmpl)}}, evs...))
	return out, nil
}

// activateLocked switches the active board and clears a selection that
// belonged to the previous one.
func (w *Workspace) activateLocked(id string) []event.Event {
	if w.active == id {
		return nil
	}
	var evs []event.Event
	if w.selected != "" {
		w.selected = ""
		evs = append(evs, event.Event{Type: event.ElementSelected, BoardID: w.active})
	}
	w.active = id
	if id != "" {
		evs = append(evs, event.Event{Type: event.BoardActivated, BoardID: id})
	}
	return evs
}

// RenameBoard sets the board name. Empty names are allowed.
func (w *Workspace) RenameBoard(id, name string) error {
	w.mu.Lock()
	b, _ := w.boardLocked(id)
	if b == nil {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBoardNotFound, id)
	}
	w.snapshotLocked(b, "rename")
	b.Name = name
	w.touchLocked(b)
	w.mu.Unlock()
	w.publish([]event.Event{{Type: event.BoardRenamed, BoardID: id}})
	return nil
}

// DeleteBoard removes a board. When it was active, the first remaining board
// becomes active, or none.
func (w *Workspace) DeleteBoard(id string) error {
	w.mu.Lock()
	_, i := w.boardLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBoardNotFound, id)
	}
	w.boards = slices.Delete(w.boards, i, i+1)
	w.history.Clear(id)
	evs := []event.Event{{Type: event.BoardDeleted, BoardID: id}}
	if w.active == id {
		if w.selected != "" {
			w.selected = ""
			evs = append(evs, event.Event{Type: event.ElementSelected, BoardID: id})
		}
		w.active = ""
		if len(w.boards) > 0 {
			w.active = w.boards[0].ID
			evs = append(evs, event.Event{Type: event.BoardActivated, BoardID: w.active})
		}
	}
	w.mu.Unlock()
	w.publish(evs)
	return nil
}

// SelectBoard makes id the active board.
func (w *Workspace) SelectBoard(id string) error {
	w.mu.Lock()
	if b, _ := w.boardLocked(id); b == nil {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBoardNotFound, id)
	}
	evs := w.activateLocked(id)
	w.mu.Unlock()
	w.publish(evs)
	return nil
}

// Open adopts a board loaded from storage, replacing any board with the same
// id, and makes it active.
func (w *Workspace) Open(b domain.Board) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("open board: %w", err)
	}
	c := b.Clone()
	w.mu.Lock()
	if _, i := w.boardLocked(c.ID); i >= 0 {
		w.boards[i] = &c
		w.history.Clear(c.ID)
		if w.active == c.ID {
			w.selected = ""
		}
	} else {
		w.boards = append(w.boards, &c)
	}
	evs := w.activateLocked(c.ID)
	w.mu.Unlock()
	w.publish(evs)
	return nil
}

// Boards lists every board in creation order.
func (w *Workspace) Boards() []domain.BoardInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.BoardInfo, 0, len(w.boards))
	for _, b := range w.boards {
		out = append(out, b.Info())
	}
	return out
}

// All returns deep copies of every board.
func (w *Workspace) All() []domain.Board {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.Board, 0, len(w.boards))
	for _, b := range w.boards {
		out = append(out, b.Clone())
	}
	return out
}

// Board returns a copy of the board with id.
func (w *Workspace) Board(id string) (domain.Board, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, _ := w.boardLocked(id)
	if b == nil {
		return domain.Board{}, false
	}
	return b.Clone(), true
}

// ActiveBoard returns a copy of the active board.
func (w *Workspace) ActiveBoard() (domain.Board, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, err := w.activeLocked()
	if err != nil {
		return domain.Board{}, false
	}
	return b.Clone(), true
}

// ActiveID returns the active board id or "".
func (w *Workspace) ActiveID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

func (w *Workspace) spawnLocked() domain.Position {
	return domain.Position{
		X: w.place.Spawn.X + w.rnd.Float64()*w.place.Jitter,
		Y: w.place.Spawn.Y + w.rnd.Float64()*w.place.Jitter,
	}
}

// AddElement appends a new element of kind to boardID ("" means the active
// board) at a random spot inside the spawn window.
func (w *Workspace) AddElement(kind domain.Kind, boardID string) (domain.Element, error) {
	w.mu.Lock()
	var b *domain.Board
	if boardID == "" {
		var err error
		if b, err = w.activeLocked(); err != nil {
			w.mu.Unlock()
			return nil, err
		}
	} else if b, _ = w.boardLocked(boardID); b == nil {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrBoardNotFound, boardID)
	}

	var el domain.Element
	switch kind {
	case domain.KindNote:
		n := domain.Note{ID: w.ids.Next(), Position: w.spawnLocked(), Text: "New note",
			Color: domain.NoteColors[w.rnd.IntN(len(domain.NoteColors))]}
		w.snapshotLocked(b, "add")
		b.Elements.Notes = append(b.Elements.Notes, n)
		el = n
	case domain.KindNode:
		n := domain.Node{ID: w.ids.Next(), Position: w.spawnLocked(), Text: "New node",
			Color: domain.NodePalette[w.rnd.IntN(len(domain.NodePalette))], Connections: []string{}}
		w.snapshotLocked(b, "add")
		b.Elements.Nodes = append(b.Elements.Nodes, n)
		el = n
	case domain.KindTextBox:
		t := domain.TextBox{ID: w.ids.Next(), Position: w.spawnLocked(), Text: "Text",
			FontSize: w.tb.FontSize, Width: w.tb.Width}
		w.snapshotLocked(b, "add")
		b.Elements.TextBoxes = append(b.Elements.TextBoxes, t)
		el = t
	default:
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	w.touchLocked(b)
	bid := b.ID
	w.mu.Unlock()

	w.log.Debug("element added", "board", bid, "kind", string(kind), "id", el.ElementID())
	w.publish([]event.Event{{Type: event.ElementAdded, BoardID: bid, Ref: domain.Ref{Kind: kind, ID: el.ElementID()}}})
	return el, nil
}

// UpdateElement merges patch into the element of kind with id on the active
// board. Fields not applicable to kind are ignored. A patch that leaves the
// element as it was records no history and publishes nothing.
func (w *Workspace) UpdateElement(kind domain.Kind, id string, patch domain.Patch) error {
	w.mu.Lock()
	b, err := w.activeLocked()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	_, i, ok := b.Elements.LookupKind(kind, id)
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s %s", ErrElementNotFound, kind, id)
	}
	before := b.Clone()
	if err := b.Elements.Apply(kind, i, patch); err != nil {
		w.mu.Unlock()
		return err
	}
	prev, _, _ := before.Elements.LookupKind(kind, id)
	if cur, _, _ := b.Elements.LookupKind(kind, id); reflect.DeepEqual(prev, cur) {
		w.mu.Unlock()
		return nil
	}
	// Snapshot only once the patch is known to apply.
	if blob, err := json.Marshal(&before); err == nil {
		w.history.Push(undo.Snapshot{Board: b.ID, Label: historyLabel(patch, id), Blob: blob, TS: w.now()})
	}
	w.touchLocked(b)
	bid := b.ID
	w.mu.Unlock()

	w.publish([]event.Event{{Type: event.ElementUpdated, BoardID: bid, Ref: domain.Ref{Kind: kind, ID: id}, Patch: patch}})
	return nil
}

// historyLabel keys undo coalescing: repeated moves of one element merge, as
// do repeated edits, but a move never merges with an edit.
func historyLabel(p domain.Patch, id string) string {
	if rest := p; rest.Position != nil {
		rest.Position = nil
		if rest.IsZero() {
			return "move:" + id
		}
	}
	return "update:" + id
}

// MoveElement drops the element named by ref after a pointer drag of delta
// screen pixels at zoom.
func (w *Workspace) MoveElement(ref domain.Ref, delta vector.Pt, zoom float64) (domain.Position, error) {
	w.mu.RLock()
	b, err := w.activeLocked()
	if err != nil {
		w.mu.RUnlock()
		return domain.Position{}, err
	}
	e, _, ok := b.Elements.LookupKind(ref.Kind, ref.ID)
	w.mu.RUnlock()
	if !ok {
		return domain.Position{}, fmt.Errorf("%w: %s %s", ErrElementNotFound, ref.Kind, ref.ID)
	}
	pos := canvas.Drop(e.ElementPosition(), delta, zoom)
	return pos, w.UpdateElement(ref.Kind, ref.ID, domain.MoveTo(pos))
}

// DeleteElement removes id from the active board, scanning notes, nodes and
// text boxes in that order. A selection pointing at id is cleared. Connections
// that referenced a deleted node are left as they are.
func (w *Workspace) DeleteElement(id string) (domain.Ref, error) {
	w.mu.Lock()
	b, err := w.activeLocked()
	if err != nil {
		w.mu.Unlock()
		return domain.Ref{}, err
	}
	if _, _, ok := b.Elements.Find(id); !ok {
		w.mu.Unlock()
		return domain.Ref{}, fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	w.snapshotLocked(b, "delete")
	ref, _ := b.Elements.Remove(id)
	w.touchLocked(b)
	evs := []event.Event{{Type: event.ElementDeleted, BoardID: b.ID, Ref: ref}}
	if w.selected == id {
		w.selected = ""
		evs = append(evs, event.Event{Type: event.ElementSelected, BoardID: b.ID})
	}
	w.mu.Unlock()

	w.publish(evs)
	return ref, nil
}

// DeleteSelected deletes the selected element, if it still exists.
func (w *Workspace) DeleteSelected() (domain.Ref, error) {
	w.mu.RLock()
	id := w.selected
	w.mu.RUnlock()
	if id == "" {
		return domain.Ref{}, fmt.Errorf("%w: nothing selected", ErrElementNotFound)
	}
	return w.DeleteElement(id)
}

// SelectElement sets the selection without checking that id exists.
func (w *Workspace) SelectElement(id string) {
	w.mu.Lock()
	w.selected = id
	bid := w.active
	w.mu.Unlock()
	ref := domain.Ref{ID: id}
	if b, ok := w.Board(bid); ok {
		if r, _, found := b.Elements.Find(id); found {
			ref = r
		}
	}
	w.publish([]event.Event{{Type: event.ElementSelected, BoardID: bid, Ref: ref}})
}

// ClearSelection drops the selection.
func (w *Workspace) ClearSelection() {
	w.mu.Lock()
	had := w.selected != ""
	w.selected = ""
	bid := w.active
	w.mu.Unlock()
	if had {
		w.publish([]event.Event{{Type: event.ElementSelected, BoardID: bid}})
	}
}

// SelectedID returns the raw selection, which may be stale.
func (w *Workspace) SelectedID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.selected
}

// SelectedElement resolves the selection on the active board. Stale ids
// resolve to nothing.
func (w *Workspace) SelectedElement() (domain.Element, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, err := w.activeLocked()
	if err != nil || w.selected == "" {
		return nil, false
	}
	return b.Elements.Lookup(w.selected)
}

// Connect adds a one-directional edge from one node to another. Both nodes
// must exist on the active board; an existing edge is left alone.
func (w *Workspace) Connect(from, to string) error {
	w.mu.RLock()
	b, err := w.activeLocked()
	if err != nil {
		w.mu.RUnlock()
		return err
	}
	src, okFrom := b.Elements.Node(from)
	_, okTo := b.Elements.Node(to)
	w.mu.RUnlock()
	if !okFrom || !okTo {
		return fmt.Errorf("%w: connect %s -> %s", ErrElementNotFound, from, to)
	}
	if slices.Contains(src.Connections, to) {
		return nil
	}
	return w.UpdateElement(domain.KindNode, from, domain.SetConnections(append(slices.Clone(src.Connections), to)))
}

// Disconnect removes every edge from -> to.
func (w *Workspace) Disconnect(from, to string) error {
	w.mu.RLock()
	b, err := w.activeLocked()
	if err != nil {
		w.mu.RUnlock()
		return err
	}
	src, ok := b.Elements.Node(from)
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: node %s", ErrElementNotFound, from)
	}
	kept := slices.DeleteFunc(slices.Clone(src.Connections), func(id string) bool { return id == to })
	if len(kept) == len(src.Connections) {
		return nil
	}
	return w.UpdateElement(domain.KindNode, from, domain.SetConnections(kept))
}

// PruneDanglingConnections drops connections whose target node no longer
// exists on the active board and returns how many were removed. It is never
// run implicitly.
func (w *Workspace) PruneDanglingConnections() (int, error) {
	w.mu.Lock()
	b, err := w.activeLocked()
	if err != nil {
		w.mu.Unlock()
		return 0, err
	}
	dangling := canvas.Dangling(b.Elements)
	if len(dangling) == 0 {
		w.mu.Unlock()
		return 0, nil
	}
	w.snapshotLocked(b, "prune")
	exists := make(map[string]bool, len(b.Elements.Nodes))
	for _, n := range b.Elements.Nodes {
		exists[n.ID] = true
	}
	var evs []event.Event
	for i := range b.Elements.Nodes {
		n := &b.Elements.Nodes[i]
		kept := slices.DeleteFunc(slices.Clone(n.Connections), func(id string) bool { return !exists[id] })
		if len(kept) != len(n.Connections) {
			n.Connections = kept
			evs = append(evs, event.Event{Type: event.ElementUpdated, BoardID: b.ID,
				Ref: domain.Ref{Kind: domain.KindNode, ID: n.ID}, Patch: domain.SetConnections(kept)})
		}
	}
	w.touchLocked(b)
	w.mu.Unlock()
	w.publish(evs)
	return len(dangling), nil
}

// Undo restores the active board to its state before the last change.
func (w *Workspace) Undo() error { return w.travel(true) }

// Redo re-applies the last undone change.
func (w *Workspace) Redo() error { return w.travel(false) }

func (w *Workspace) travel(back bool) error {
	w.mu.Lock()
	b, err := w.activeLocked()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	cur, err := json.Marshal(b)
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("encode board: %w", err)
	}
	var s undo.Snapshot
	var ok bool
	if back {
		s, ok = w.history.Undo(b.ID, cur)
	} else {
		s, ok = w.history.Redo(b.ID, cur)
	}
	if !ok {
		w.mu.Unlock()
		if back {
			return ErrNothingToUndo
		}
		return ErrNothingToRedo
	}
	var restored domain.Board
	if err := json.Unmarshal(s.Blob, &restored); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("decode snapshot: %w", err)
	}
	*b = restored
	bid := b.ID
	w.mu.Unlock()
	w.publish([]event.Event{{Type: event.BoardRestored, BoardID: bid}})
	return nil
}
