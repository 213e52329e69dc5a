/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package keys is the fixed keyboard binding table of the whiteboard and its
// dispatch onto a workspace and viewport.
package keys

import (
	"errors"
	"strings"

	"gowhiteboard/internal/canvas"
	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/workspace"
)

type Action int

const (
	None Action = iota
	NewNote
	NewTextBox
	NewNode
	DeleteSelection
	ClearSelection
	ZoomIn
	ZoomOut
	ZoomReset
	ShowHelp
)

// Binding maps key names to an action. Help is the text shown in the
// shortcuts overlay.
type Binding struct {
	Keys   []string
	Action Action
	Help   string
}

// Bindings is the full table in display order.
var Bindings = []Binding{
	{Keys: []string{"n"}, Action: NewNote, Help: "new sticky note"},
	{Keys: []string{"t"}, Action: NewTextBox, Help: "new text box"},
	{Keys: []string{"m"}, Action: NewNode, Help: "new mind-map node"},
	{Keys: []string{"delete"}, Action: DeleteSelection, Help: "delete selection"},
	{Keys: []string{"esc", "escape"}, Action: ClearSelection, Help: "clear selection"},
	{Keys: []string{"+", "="}, Action: ZoomIn, Help: "zoom in"},
	{Keys: []string{"-"}, Action: ZoomOut, Help: "zoom out"},
	{Keys: []string{"0"}, Action: ZoomReset, Help: "reset zoom"},
	{Keys: []string{"?"}, Action: ShowHelp, Help: "keyboard shortcuts"},
}

var index = func() map[string]Action {
	m := make(map[string]Action)
	for _, b := range Bindings {
		for _, k := range b.Keys {
			m[k] = b.Action
		}
	}
	return m
}()

// Lookup normalizes key ("N" and "n" are the same key) and returns its action.
func Lookup(key string) (Action, bool) {
	a, ok := index[normalize(key)]
	return a, ok
}

func normalize(key string) string { return strings.ToLower(strings.TrimSpace(key)) }

// Dispatcher applies actions. OnHelp may be nil.
type Dispatcher struct {
	Workspace *workspace.Workspace
	Viewport  *canvas.Viewport
	OnHelp    func()
}

// Result reports what a key press did. Ref names a newly created element.
type Result struct {
	Action Action
	Ref    domain.Ref
}

// Handle runs the action bound to key. While a text input has focus every
// key is left to the input and Handle does nothing. Unbound keys return a
// zero Result and no error.
func (d *Dispatcher) Handle(key string, textFocused bool) (Result, error) {
	if textFocused {
		return Result{}, nil
	}
	a, ok := Lookup(key)
	if !ok {
		return Result{}, nil
	}
	res := Result{Action: a}
	add := func(k domain.Kind) error {
		el, err := d.Workspace.AddElement(k, "")
		if err != nil {
			return err
		}
		res.Ref = domain.Ref{Kind: k, ID: el.ElementID()}
		return nil
	}
	var err error
	switch a {
	case NewNote:
		err = add(domain.KindNote)
	case NewTextBox:
		err = add(domain.KindTextBox)
	case NewNode:
		err = add(domain.KindNode)
	case DeleteSelection:
		if _, derr := d.Workspace.DeleteSelected(); derr != nil && !errors.Is(derr, workspace.ErrElementNotFound) {
			err = derr
		}
	case ClearSelection:
		d.Workspace.ClearSelection()
	case ZoomIn:
		d.Viewport.ZoomIn()
	case ZoomOut:
		d.Viewport.ZoomOut()
	case ZoomReset:
		d.Viewport.ResetZoom()
	case ShowHelp:
		if d.OnHelp != nil {
			d.OnHelp()
		}
	}
	return res, err
}

func (a Action) String() string {
	for _, b := range Bindings {
		if b.Action == a {
			return b.Help
		}
	}
	return "none"
}
