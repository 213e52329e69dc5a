/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package tui is the terminal whiteboard: a bubbletea program that draws the
// active board with box characters, moves elements with mouse drags, pans on
// drags over empty canvas and zooms with the wheel or the +/- keys.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"gowhiteboard/internal/canvas"
	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/keys"
	applog "gowhiteboard/internal/log"
	"gowhiteboard/internal/storage"
	"gowhiteboard/internal/vector"
	"gowhiteboard/internal/workspace"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Options wires a Model. Workspace is required.
type Options struct {
	Workspace *workspace.Workspace
	// Repo enables ctrl+s and saving every board when the program exits.
	Repo   storage.Repository
	Limits canvas.Limits
	Anchor vector.Pt
	// Toast is how long status messages stay visible; 0 means 3s.
	Toast time.Duration
	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
	Logger    *slog.Logger
}

type toastExpiredMsg struct{ seq int }

type savedMsg struct {
	name string
	err  error
}

// Model is the bubbletea model. Viewport and drag state live behind pointers
// and are shared by the copies bubbletea makes.
type Model struct {
	ws       *workspace.Workspace
	repo     storage.Repository
	vp       *canvas.Viewport
	disp     keys.Dispatcher
	anchor   vector.Pt
	copyText func(string) error
	log      *slog.Logger
	km       keyMap
	help     help.Model
	input    textinput.Model
	editing  domain.Ref
	drag     *canvas.Drag
	dragAt   vector.Pt
	showHelp bool
	width    int
	height   int
	toast    string
	toastSeq int
	toastFor time.Duration
}

// New builds a model over o.Workspace.
func New(o Options) Model {
	vp := canvas.NewViewport(o.Limits)
	m := Model{
		ws:       o.Workspace,
		repo:     o.Repo,
		vp:       vp,
		disp:     keys.Dispatcher{Workspace: o.Workspace, Viewport: vp},
		anchor:   o.Anchor,
		copyText: o.Clipboard,
		log:      o.Logger,
		km:       newKeyMap(),
		help:     help.New(),
		input:    textinput.New(),
		toastFor: o.Toast,
		width:    80,
		height:   24,
	}
	if m.anchor == (vector.Pt{}) {
		m.anchor = canvas.DefaultAnchorOffset
	}
	if m.copyText == nil {
		m.copyText = clipboard.WriteAll
	}
	if m.log == nil {
		m.log = applog.WithComponent("tui")
	}
	if m.toastFor <= 0 {
		m.toastFor = 3 * time.Second
	}
	m.input.Prompt = "text> "
	m.input.CharLimit = 2000
	return m
}

// Run starts the program full screen with mouse support and blocks until it
// exits. Every board is saved to o.Repo afterwards.
func Run(ctx context.Context, o Options) error {
	p := tea.NewProgram(New(o), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	if o.Repo != nil {
		if serr := storage.SaveAll(context.WithoutCancel(ctx), o.Repo, o.Workspace.All()); serr != nil && err == nil {
			err = fmt.Errorf("save boards: %w", serr)
		}
	}
	return err
}

func (m Model) Init() tea.Cmd { return nil }

// Zoom returns the current zoom factor.
func (m Model) Zoom() float64 { return m.vp.Zoom }

// Toast returns the visible status message, if any.
func (m Model) Toast() string { return m.toast }

// Editing reports whether the text input has focus.
func (m Model) Editing() bool { return m.input.Focused() }

func (m *Model) flash(text string) tea.Cmd {
	m.toastSeq++
	seq := m.toastSeq
	m.toast = text
	return tea.Tick(m.toastFor, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}

func (m *Model) fail(op string, err error) tea.Cmd {
	m.log.Warn("operation failed", slog.String("op", op), slog.Any("err", err))
	return m.flash(op + ": " + err.Error())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil
	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil
	case savedMsg:
		if msg.err != nil {
			return m, m.fail("save", msg.err)
		}
		return m, m.flash("saved " + msg.name)
	case tea.MouseMsg:
		return m.mouse(msg)
	case tea.KeyMsg:
		if m.input.Focused() {
			return m.editKey(msg)
		}
		if m.showHelp {
			switch msg.String() {
			case "?", "esc", "q":
				m.showHelp = false
			}
			return m, nil
		}
		return m.key(msg)
	}
	return m, nil
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.km.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.km.Edit):
		return m.beginEdit()
	case key.Matches(msg, m.km.Color):
		return m.cycleColor()
	case key.Matches(msg, m.km.Copy):
		e, ok := m.ws.SelectedElement()
		if !ok {
			return m, m.flash("nothing selected")
		}
		if err := m.copyText(e.ElementText()); err != nil {
			return m, m.fail("copy", err)
		}
		return m, m.flash("copied")
	case key.Matches(msg, m.km.NextElement):
		m.selectNext()
		return m, nil
	case key.Matches(msg, m.km.Undo):
		if err := m.ws.Undo(); err != nil {
			return m, m.fail("undo", err)
		}
		return m, nil
	case key.Matches(msg, m.km.Redo):
		if err := m.ws.Redo(); err != nil {
			return m, m.fail("redo", err)
		}
		return m, nil
	case key.Matches(msg, m.km.Save):
		return m, m.save()
	case key.Matches(msg, m.km.PrevBoard):
		return m, m.switchBoard(-1)
	case key.Matches(msg, m.km.NextBoard):
		return m, m.switchBoard(1)
	case key.Matches(msg, m.km.Pan):
		step := map[string]vector.Pt{"left": {X: CellW * 4}, "right": {X: -CellW * 4}, "up": {Y: CellH * 2}, "down": {Y: -CellH * 2}}
		m.vp.Pan = m.vp.Pan.Add(step[msg.String()])
		return m, nil
	}

	res, err := m.disp.Handle(msg.String(), false)
	if err != nil {
		return m, m.fail(res.Action.String(), err)
	}
	switch res.Action {
	case keys.ShowHelp:
		m.showHelp = true
	case keys.NewNote, keys.NewNode, keys.NewTextBox:
		m.ws.SelectElement(res.Ref.ID)
	}
	return m, nil
}

func (m Model) beginEdit() (tea.Model, tea.Cmd) {
	e, ok := m.ws.SelectedElement()
	if !ok {
		return m, m.flash("nothing selected")
	}
	m.editing = domain.Ref{Kind: e.ElementKind(), ID: e.ElementID()}
	m.input.SetValue(e.ElementText())
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) editKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.input.Blur()
		if err := m.ws.UpdateElement(m.editing.Kind, m.editing.ID, domain.SetText(m.input.Value())); err != nil {
			return m, m.fail("edit", err)
		}
		return m, nil
	case tea.KeyEsc:
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) cycleColor() (tea.Model, tea.Cmd) {
	e, ok := m.ws.SelectedElement()
	if !ok {
		return m, m.flash("nothing selected")
	}
	next, ok := domain.NextColor(e)
	if !ok {
		return m, m.flash("text boxes have no color")
	}
	if err := m.ws.UpdateElement(e.ElementKind(), e.ElementID(), domain.SetColor(next)); err != nil {
		return m, m.fail("color", err)
	}
	return m, nil
}

func (m *Model) selectNext() {
	b, ok := m.ws.ActiveBoard()
	if !ok {
		return
	}
	all := b.Elements.All()
	if len(all) == 0 {
		return
	}
	cur := m.ws.SelectedID()
	next := 0
	for i, e := range all {
		if e.ElementID() == cur {
			next = (i + 1) % len(all)
			break
		}
	}
	m.ws.SelectElement(all[next].ElementID())
}

func (m *Model) switchBoard(dir int) tea.Cmd {
	infos := m.ws.Boards()
	if len(infos) == 0 {
		return m.flash("no boards")
	}
	i := slices.IndexFunc(infos, func(bi domain.BoardInfo) bool { return bi.ID == m.ws.ActiveID() })
	i = ((i+dir)%len(infos) + len(infos)) % len(infos)
	if err := m.ws.SelectBoard(infos[i].ID); err != nil {
		return m.fail("switch board", err)
	}
	return nil
}

func (m *Model) save() tea.Cmd {
	if m.repo == nil {
		return m.flash("no storage configured")
	}
	b, ok := m.ws.ActiveBoard()
	if !ok {
		return m.fail("save", workspace.ErrNoActiveBoard)
	}
	repo := m.repo
	return func() tea.Msg {
		ctx := applog.ContextWithBoard(context.Background(), b.ID)
		return savedMsg{name: b.Name, err: repo.Save(ctx, b)}
	}
}

func (m Model) mouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.input.Focused() || m.showHelp {
		return m, nil
	}
	pt := pointerPt(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.vp.ZoomIn()
	case msg.Button == tea.MouseButtonWheelDown:
		m.vp.ZoomOut()
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		b, ok := m.ws.ActiveBoard()
		if !ok {
			return m, nil
		}
		ref, hit := canvas.HitTest(b.Elements, m.vp.ToModel(pt))
		if !hit {
			m.ws.ClearSelection()
			m.vp.BeginPan(pt)
			return m, nil
		}
		e, _ := b.Elements.Lookup(ref.ID)
		m.ws.SelectElement(ref.ID)
		m.drag = canvas.BeginDrag(ref, e.ElementPosition(), pt)
		m.dragAt = pt
	case msg.Action == tea.MouseActionMotion:
		if m.drag != nil {
			m.dragAt = pt
		} else {
			m.vp.MovePan(pt)
		}
	case msg.Action == tea.MouseActionRelease:
		m.vp.EndPan()
		d := m.drag
		m.drag = nil
		if d == nil || !d.Moved(pt) {
			return m, nil
		}
		if _, err := m.ws.MoveElement(d.Ref, d.Delta(pt), m.vp.Zoom); err != nil {
			return m, m.fail("move", err)
		}
	}
	return m, nil
}
