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
	"gowhiteboard/internal/keys"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds the canvas shortcuts from the keys table plus the terminal
// session's own keys.
type keyMap struct {
	Canvas []key.Binding

	Edit        key.Binding
	Color       key.Binding
	Copy        key.Binding
	NextElement key.Binding
	Undo        key.Binding
	Redo        key.Binding
	Save        key.Binding
	PrevBoard   key.Binding
	NextBoard   key.Binding
	Pan         key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	km := keyMap{
		Edit:        key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter/e", "edit text")),
		Color:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cycle note color")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy text")),
		NextElement: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "select next")),
		Undo:        key.NewBinding(key.WithKeys("u", "ctrl+z"), key.WithHelp("u", "undo")),
		Redo:        key.NewBinding(key.WithKeys("U", "ctrl+r"), key.WithHelp("U", "redo")),
		Save:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save board")),
		PrevBoard:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous board")),
		NextBoard:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next board")),
		Pan:         key.NewBinding(key.WithKeys("left", "right", "up", "down"), key.WithHelp("←↑↓→", "pan")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
	for _, b := range keys.Bindings {
		km.Canvas = append(km.Canvas, key.NewBinding(key.WithKeys(b.Keys...), key.WithHelp(b.Keys[0], b.Help)))
	}
	return km
}

func (k keyMap) helpBinding() key.Binding {
	for i, b := range keys.Bindings {
		if b.Action == keys.ShowHelp {
			return k.Canvas[i]
		}
	}
	return key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help"))
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.helpBinding(), k.Edit, k.Undo, k.Save, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.Canvas,
		{k.Edit, k.Color, k.Copy, k.NextElement, k.Pan},
		{k.Undo, k.Redo, k.Save, k.PrevBoard, k.NextBoard, k.Quit},
	}
}
