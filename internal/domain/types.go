/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// This file defines the whiteboard data model. Boards serialize to a
// human-readable JSON document (see storage/board.schema.json).

// Kind discriminates the three element variants on a board.
type Kind string

const (
	KindNote    Kind = "note"
	KindNode    Kind = "node"
	KindTextBox Kind = "textBox"
)

// Kinds lists every element kind in selection scan order.
var Kinds = []Kind{KindNote, KindNode, KindTextBox}

// ErrUnknownKind is returned by ParseKind for anything outside Kinds.
var ErrUnknownKind = errors.New("unknown element kind")

// ParseKind accepts the canonical names plus a few shell-friendly aliases.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "note", "notes", "sticky":
		return KindNote, nil
	case "node", "nodes", "mindmap":
		return KindNode, nil
	case "textBox", "textbox", "text", "textBoxes":
		return KindTextBox, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Position is a point in model space (unscaled by zoom).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Position) Add(d Position) Position { return Position{X: p.X + d.X, Y: p.Y + d.Y} }

// NoteColor is the closed set of sticky note colors.
type NoteColor string

const (
	NoteYellow NoteColor = "yellow"
	NotePink   NoteColor = "pink"
	NoteBlue   NoteColor = "blue"
	NoteGreen  NoteColor = "green"
	NotePurple NoteColor = "purple"
	NoteOrange NoteColor = "orange"
)

// NoteColors lists the valid note colors in palette order.
var NoteColors = []NoteColor{NoteYellow, NotePink, NoteBlue, NoteGreen, NotePurple, NoteOrange}

// Valid reports whether c is one of NoteColors.
func (c NoteColor) Valid() bool {
	for _, v := range NoteColors {
		if v == c {
			return true
		}
	}
	return false
}

// NodePalette holds the colors picked for new mind-map nodes. Node colors are
// free strings, so anything a user types is accepted as well.
var NodePalette = []string{"#6366f1", "#ec4899", "#14b8a6", "#f59e0b", "#8b5cf6", "#22c55e"}

// NextColor returns the palette color after e's current one. Text boxes have
// no color and report false.
func NextColor(e Element) (string, bool) {
	switch v := e.(type) {
	case Note:
		i := slices.Index(NoteColors, v.Color)
		return string(NoteColors[(i+1)%len(NoteColors)]), true
	case Node:
		i := slices.Index(NodePalette, v.Color)
		return NodePalette[(i+1)%len(NodePalette)], true
	}
	return "", false
}

// Element is the tagged variant over Note, Node and TextBox.
type Element interface {
	ElementID() string
	ElementKind() Kind
	ElementPosition() Position
	ElementText() string
}

// Note is a sticky note.
type Note struct {
	ID       string    `json:"id"`
	Position Position  `json:"position"`
	Text     string    `json:"text"`
	Color    NoteColor `json:"color"`
}

// Node is a mind-map node. Connections are one-directional edges to other
// node ids on the same board; targets are not required to exist.
type Node struct {
	ID          string   `json:"id"`
	Position    Position `json:"position"`
	Text        string   `json:"text"`
	Color       string   `json:"color"`
	Connections []string `json:"connections"`
}

// TextBox is a free-floating text label.
type TextBox struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Text     string   `json:"text"`
	FontSize float64  `json:"fontSize"`
	Width    float64  `json:"width"`
}

func (n Note) ElementID() string            { return n.ID }
func (n Note) ElementKind() Kind            { return KindNote }
func (n Note) ElementPosition() Position    { return n.Position }
func (n Note) ElementText() string          { return n.Text }
func (n Node) ElementID() string            { return n.ID }
func (n Node) ElementKind() Kind            { return KindNode }
func (n Node) ElementPosition() Position    { return n.Position }
func (n Node) ElementText() string          { return n.Text }
func (t TextBox) ElementID() string         { return t.ID }
func (t TextBox) ElementKind() Kind         { return KindTextBox }
func (t TextBox) ElementPosition() Position { return t.Position }
func (t TextBox) ElementText() string       { return t.Text }

// Elements holds the three flat collections of a board.
type Elements struct {
	Notes     []Note    `json:"notes"`
	Nodes     []Node    `json:"nodes"`
	TextBoxes []TextBox `json:"textBoxes"`
}

// Board is one whiteboard canvas.
type Board struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LastModified time.Time `json:"lastModified"`
	Elements     Elements  `json:"elements"`
}

// Ref names an element together with its kind.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// Len returns the total number of elements on the board.
func (e Elements) Len() int { return len(e.Notes) + len(e.Nodes) + len(e.TextBoxes) }

// Find resolves id by scanning notes, then nodes, then text boxes.
// The returned index points into the collection named by Ref.Kind.
func (e Elements) Find(id string) (Ref, int, bool) {
	if id == "" {
		return Ref{}, -1, false
	}
	for i := range e.Notes {
		if e.Notes[i].ID == id {
			return Ref{Kind: KindNote, ID: id}, i, true
		}
	}
	for i := range e.Nodes {
		if e.Nodes[i].ID == id {
			return Ref{Kind: KindNode, ID: id}, i, true
		}
	}
	for i := range e.TextBoxes {
		if e.TextBoxes[i].ID == id {
			return Ref{Kind: KindTextBox, ID: id}, i, true
		}
	}
	return Ref{}, -1, false
}

// Lookup returns the element with id, using the same scan order as Find.
func (e Elements) Lookup(id string) (Element, bool) {
	ref, i, ok := e.Find(id)
	if !ok {
		return nil, false
	}
	return e.at(ref.Kind, i), true
}

// LookupKind searches only the collection for kind.
func (e Elements) LookupKind(kind Kind, id string) (Element, int, bool) {
	switch kind {
	case KindNote:
		for i := range e.Notes {
			if e.Notes[i].ID == id {
				return e.Notes[i], i, true
			}
		}
	case KindNode:
		for i := range e.Nodes {
			if e.Nodes[i].ID == id {
				return e.Nodes[i], i, true
			}
		}
	case KindTextBox:
		for i := range e.TextBoxes {
			if e.TextBoxes[i].ID == id {
				return e.TextBoxes[i], i, true
			}
		}
	}
	return nil, -1, false
}

func (e Elements) at(kind Kind, i int) Element {
	switch kind {
	case KindNote:
		return e.Notes[i]
	case KindNode:
		return e.Nodes[i]
	default:
		return e.TextBoxes[i]
	}
}

// All returns every element in scan order.
func (e Elements) All() []Element {
	out := make([]Element, 0, e.Len())
	for _, n := range e.Notes {
		out = append(out, n)
	}
	for _, n := range e.Nodes {
		out = append(out, n)
	}
	for _, t := range e.TextBoxes {
		out = append(out, t)
	}
	return out
}

// Remove deletes the first element with id in scan order and reports what was removed.
func (e *Elements) Remove(id string) (Ref, bool) {
	ref, i, ok := e.Find(id)
	if !ok {
		return Ref{}, false
	}
	switch ref.Kind {
	case KindNote:
		e.Notes = append(e.Notes[:i:i], e.Notes[i+1:]...)
	case KindNode:
		e.Nodes = append(e.Nodes[:i:i], e.Nodes[i+1:]...)
	case KindTextBox:
		e.TextBoxes = append(e.TextBoxes[:i:i], e.TextBoxes[i+1:]...)
	}
	return ref, true
}

// Node returns the node with id.
func (e Elements) Node(id string) (Node, bool) {
	for _, n := range e.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Clone returns a deep copy; mutations of the copy never reach b.
func (b Board) Clone() Board {
	c := b
	c.Elements.Notes = slices.Clone(b.Elements.Notes)
	c.Elements.TextBoxes = slices.Clone(b.Elements.TextBoxes)
	c.Elements.Nodes = slices.Clone(b.Elements.Nodes)
	for i := range c.Elements.Nodes {
		c.Elements.Nodes[i].Connections = slices.Clone(c.Elements.Nodes[i].Connections)
	}
	return c
}

// ErrDuplicateID is reported by Validate when a collection repeats an id.
var ErrDuplicateID = errors.New("duplicate element id")

// Validate checks the structural invariants a loaded board must satisfy:
// non-empty ids, ids unique within each collection, valid note colors.
func (b Board) Validate() error {
	if b.ID == "" {
		return errors.New("board id is empty")
	}
	check := func(kind Kind, ids []string) error {
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if id == "" {
				return fmt.Errorf("%s with empty id", kind)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: %s %q", ErrDuplicateID, kind, id)
			}
			seen[id] = struct{}{}
		}
		return nil
	}
	ids := make([]string, 0, len(b.Elements.Notes))
	for _, n := range b.Elements.Notes {
		if !n.Color.Valid() {
			return fmt.Errorf("note %q: invalid color %q", n.ID, n.Color)
		}
		ids = append(ids, n.ID)
	}
	if err := check(KindNote, ids); err != nil {
		return err
	}
	ids = ids[:0]
	for _, n := range b.Elements.Nodes {
		ids = append(ids, n.ID)
	}
	if err := check(KindNode, ids); err != nil {
		return err
	}
	ids = ids[:0]
	for _, t := range b.Elements.TextBoxes {
		ids = append(ids, t.ID)
	}
	return check(KindTextBox, ids)
}

// BoardInfo is the listing summary of a stored board.
type BoardInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LastModified time.Time `json:"lastModified"`
	Elements     int       `json:"elements"`
}

// Info summarizes b for listings.
func (b Board) Info() BoardInfo {
	return BoardInfo{ID: b.ID, Name: b.Name, LastModified: b.LastModified, Elements: b.Elements.Len()}
}
