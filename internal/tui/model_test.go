/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package tui

import (
	"errors"
	"math/rand/v2"
	"testing"

	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/ids"
	"gowhiteboard/internal/workspace"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, withBoard bool) (Model, *workspace.Workspace) {
	t.Helper()
	ws := workspace.New(workspace.Options{IDs: ids.NewSequence("e"), Rand: rand.New(rand.NewPCG(1, 2))})
	if withBoard {
		require.NoError(t, ws.Open(domain.Board{
			ID:   "b1",
			Name: "Test board",
			Elements: domain.Elements{
				Notes: []domain.Note{{ID: "n1", Position: domain.Position{X: 100, Y: 100}, Text: "Buy milk", Color: domain.NoteYellow}},
			},
		}))
	}
	m := New(Options{Workspace: ws, Clipboard: func(string) error { return nil }})
	m = send(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, ws
}

func send(m Model, msg tea.Msg) Model {
	nm, _ := m.Update(msg)
	return nm.(Model)
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestNewNodeKeyAddsAndSelects(t *testing.T) {
	m, ws := newTestModel(t, true)
	m = send(m, runes("m"))
	b, ok := ws.ActiveBoard()
	require.True(t, ok)
	require.Len(t, b.Elements.Nodes, 1)
	assert.Equal(t, b.Elements.Nodes[0].ID, ws.SelectedID())
	assert.NotEqual(t, "n1", b.Elements.Nodes[0].ID)

	m = send(m, runes("u"))
	b, _ = ws.ActiveBoard()
	assert.Empty(t, b.Elements.Nodes, "undo removes the node")
	_ = m
}

func TestDeleteAndEscape(t *testing.T) {
	m, ws := newTestModel(t, true)
	ws.SelectElement("n1")
	m = send(m, tea.KeyMsg{Type: tea.KeyDelete})
	b, _ := ws.ActiveBoard()
	assert.Empty(t, b.Elements.Notes)
	assert.Empty(t, ws.SelectedID())

	// Nothing selected: delete is a no-op, not an error toast.
	m = send(m, tea.KeyMsg{Type: tea.KeyDelete})
	assert.Empty(t, m.Toast())

	m = send(m, runes("n"))
	require.NotEmpty(t, ws.SelectedID())
	m = send(m, tea.KeyMsg{Type: tea.KeyEscape})
	assert.Empty(t, ws.SelectedID())
}

func TestZoomKeysClamp(t *testing.T) {
	m, _ := newTestModel(t, true)
	for range 20 {
		m = send(m, runes("+"))
	}
	assert.InDelta(t, 2.0, m.Zoom(), 1e-9)
	for range 20 {
		m = send(m, runes("-"))
	}
	assert.InDelta(t, 0.5, m.Zoom(), 1e-9)
	m = send(m, runes("0"))
	assert.InDelta(t, 1.0, m.Zoom(), 1e-9)
}

func TestEditingSuspendsShortcuts(t *testing.T) {
	m, ws := newTestModel(t, true)
	ws.SelectElement("n1")
	m = send(m, runes("e"))
	require.True(t, m.Editing())

	m = send(m, runes("n"))
	b, _ := ws.ActiveBoard()
	assert.Len(t, b.Elements.Notes, 1, "n is typed, not a new note")

	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.Editing())
	b, _ = ws.ActiveBoard()
	assert.Equal(t, "Buy milkn", b.Elements.Notes[0].Text)
}

func TestEditEscapeDiscards(t *testing.T) {
	m, ws := newTestModel(t, true)
	ws.SelectElement("n1")
	m = send(m, runes("e"))
	m = send(m, runes("x"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEscape})
	assert.False(t, m.Editing())
	b, _ := ws.ActiveBoard()
	assert.Equal(t, "Buy milk", b.Elements.Notes[0].Text)
	assert.Equal(t, "n1", ws.SelectedID(), "escape leaves the input, not the selection")
}

func TestMouseDragDropsAtZoom(t *testing.T) {
	m, ws := newTestModel(t, true)
	m.vp.Zoom = 2
	// The note covers screen pixels 200..500, i.e. cells 20..49 x 10..24.
	m = send(m, tea.MouseMsg{X: 21, Y: 11, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Equal(t, "n1", ws.SelectedID())
	m = send(m, tea.MouseMsg{X: 26, Y: 11, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m = send(m, tea.MouseMsg{X: 26, Y: 11, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	b, _ := ws.ActiveBoard()
	assert.Equal(t, domain.Position{X: 125, Y: 100}, b.Elements.Notes[0].Position)
	assert.Nil(t, m.drag)
}

func TestMouseClickWithoutMoveKeepsPosition(t *testing.T) {
	m, ws := newTestModel(t, true)
	m = send(m, tea.MouseMsg{X: 12, Y: 6, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = send(m, tea.MouseMsg{X: 12, Y: 6, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	b, _ := ws.ActiveBoard()
	assert.Equal(t, domain.Position{X: 100, Y: 100}, b.Elements.Notes[0].Position)
	assert.Equal(t, "n1", ws.SelectedID())
}

func TestMousePanOnEmptyCanvas(t *testing.T) {
	m, ws := newTestModel(t, true)
	ws.SelectElement("n1")
	m = send(m, tea.MouseMsg{X: 2, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Empty(t, ws.SelectedID(), "clicking empty canvas clears the selection")
	m = send(m, tea.MouseMsg{X: 5, Y: 4, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m = send(m, tea.MouseMsg{X: 5, Y: 4, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.Equal(t, 30.0, m.vp.Pan.X)
	assert.Equal(t, 40.0, m.vp.Pan.Y)

	// Further motion after release does not pan.
	m = send(m, tea.MouseMsg{X: 9, Y: 9, Action: tea.MouseActionMotion})
	assert.Equal(t, 30.0, m.vp.Pan.X)
}

func TestWheelZooms(t *testing.T) {
	m, _ := newTestModel(t, true)
	m = send(m, tea.MouseMsg{X: 1, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	assert.InDelta(t, 1.1, m.Zoom(), 1e-9)
	m = send(m, tea.MouseMsg{X: 1, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	m = send(m, tea.MouseMsg{X: 1, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	assert.InDelta(t, 0.9, m.Zoom(), 1e-9)
}

func TestErrorsShowToastUntilExpired(t *testing.T) {
	m, _ := newTestModel(t, false)
	nm, cmd := m.Update(runes("n"))
	m = nm.(Model)
	require.NotNil(t, cmd, "toast schedules its dismissal")
	assert.Contains(t, m.Toast(), workspace.ErrNoActiveBoard.Error())

	m = send(m, toastExpiredMsg{seq: m.toastSeq - 1})
	assert.NotEmpty(t, m.Toast(), "stale timers do not clear a newer toast")
	m = send(m, toastExpiredMsg{seq: m.toastSeq})
	assert.Empty(t, m.Toast())
}

func TestCopySelectedText(t *testing.T) {
	m, ws := newTestModel(t, true)
	var copied string
	m.copyText = func(s string) error { copied = s; return nil }
	ws.SelectElement("n1")
	m = send(m, runes("y"))
	assert.Equal(t, "Buy milk", copied)
	assert.Equal(t, "copied", m.Toast())

	m.copyText = func(string) error { return errors.New("no clipboard") }
	m = send(m, runes("y"))
	assert.Contains(t, m.Toast(), "no clipboard")
}

func TestCycleNoteColor(t *testing.T) {
	m, ws := newTestModel(t, true)
	ws.SelectElement("n1")
	m = send(m, runes("c"))
	b, _ := ws.ActiveBoard()
	assert.Equal(t, domain.NotePink, b.Elements.Notes[0].Color)
	_ = m
}

func TestTabCyclesSelection(t *testing.T) {
	m, ws := newTestModel(t, true)
	m = send(m, runes("t"))
	tb := ws.SelectedID()
	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "n1", ws.SelectedID())
	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tb, ws.SelectedID())
}

func TestSwitchBoards(t *testing.T) {
	m, ws := newTestModel(t, true)
	second, err := ws.CreateBoard(workspace.Blank, "Second")
	require.NoError(t, err)
	require.Equal(t, second.ID, ws.ActiveID())
	m = send(m, runes("]"))
	assert.Equal(t, "b1", ws.ActiveID())
	m = send(m, runes("["))
	assert.Equal(t, second.ID, ws.ActiveID())
}

func TestSaveWithoutRepo(t *testing.T) {
	m, _ := newTestModel(t, true)
	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, "no storage configured", m.Toast())
}

func TestHelpOverlay(t *testing.T) {
	m, _ := newTestModel(t, true)
	m = send(m, runes("?"))
	assert.Contains(t, m.View(), "Keyboard shortcuts")
	assert.Contains(t, m.View(), "new mind-map node")

	// Keys do not reach the board while the overlay is open.
	m = send(m, runes("m"))
	assert.Contains(t, m.View(), "Keyboard shortcuts")
	m = send(m, tea.KeyMsg{Type: tea.KeyEscape})
	assert.NotContains(t, m.View(), "Keyboard shortcuts")
}

func TestViewShowsBoard(t *testing.T) {
	m, _ := newTestModel(t, true)
	v := m.View()
	assert.Contains(t, v, "Test board")
	assert.Contains(t, v, "Buy milk")
	assert.Contains(t, v, "100%")

	empty, _ := newTestModel(t, false)
	assert.Contains(t, empty.View(), "no board open")
}
