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
	"strings"
)

// ErrInvalidColor is returned when a patch sets a note color outside NoteColors.
var ErrInvalidColor = errors.New("invalid note color")

// Patch is a partial element update. Nil fields are left untouched; fields
// that do not exist on the target kind are ignored.
type Patch struct {
	Position    *Position `json:"position,omitempty"`
	Text        *string   `json:"text,omitempty"`
	Color       *string   `json:"color,omitempty"`
	FontSize    *float64  `json:"fontSize,omitempty"`
	Width       *float64  `json:"width,omitempty"`
	Connections *[]string `json:"connections,omitempty"`
}

// MoveTo is a position-only patch.
func MoveTo(p Position) Patch { return Patch{Position: &p} }

// SetText is a text-only patch.
func SetText(s string) Patch { return Patch{Text: &s} }

// SetColor is a color-only patch.
func SetColor(c string) Patch { return Patch{Color: &c} }

// SetConnections is a connections-only patch.
func SetConnections(ids []string) Patch {
	c := slices.Clone(ids)
	return Patch{Connections: &c}
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.Position == nil && p.Text == nil && p.Color == nil && p.FontSize == nil && p.Width == nil && p.Connections == nil
}

// ApplyNote merges the note-relevant fields.
func (p Patch) ApplyNote(n Note) (Note, error) {
	if p.Color != nil {
		c := NoteColor(*p.Color)
		if !c.Valid() {
			return n, fmt.Errorf("%w: %q", ErrInvalidColor, *p.Color)
		}
		n.Color = c
	}
	if p.Position != nil {
		n.Position = *p.Position
	}
	if p.Text != nil {
		n.Text = *p.Text
	}
	return n, nil
}

// ApplyNode merges the node-relevant fields.
func (p Patch) ApplyNode(n Node) Node {
	if p.Position != nil {
		n.Position = *p.Position
	}
	if p.Text != nil {
		n.Text = *p.Text
	}
	if p.Color != nil {
		n.Color = *p.Color
	}
	if p.Connections != nil {
		n.Connections = slices.Clone(*p.Connections)
	}
	return n
}

// ApplyTextBox merges the text-box-relevant fields.
func (p Patch) ApplyTextBox(t TextBox) TextBox {
	if p.Position != nil {
		t.Position = *p.Position
	}
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.FontSize != nil {
		t.FontSize = *p.FontSize
	}
	if p.Width != nil {
		t.Width = *p.Width
	}
	return t
}

// Apply patches the element at index i of the collection for kind.
func (e *Elements) Apply(kind Kind, i int, p Patch) error {
	switch kind {
	case KindNote:
		n, err := p.ApplyNote(e.Notes[i])
		if err != nil {
			return err
		}
		e.Notes[i] = n
	case KindNode:
		e.Nodes[i] = p.ApplyNode(e.Nodes[i])
	case KindTextBox:
		e.TextBoxes[i] = p.ApplyTextBox(e.TextBoxes[i])
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil
}

// String renders the set fields, e.g. "position=(10,20) text=\"hi\"".
func (p Patch) String() string {
	var parts []string
	if p.Position != nil {
		parts = append(parts, fmt.Sprintf("position=(%g,%g)", p.Position.X, p.Position.Y))
	}
	if p.Text != nil {
		parts = append(parts, fmt.Sprintf("text=%q", *p.Text))
	}
	if p.Color != nil {
		parts = append(parts, "color="+*p.Color)
	}
	if p.FontSize != nil {
		parts = append(parts, fmt.Sprintf("fontSize=%g", *p.FontSize))
	}
	if p.Width != nil {
		parts = append(parts, fmt.Sprintf("width=%g", *p.Width))
	}
	if p.Connections != nil {
		parts = append(parts, "connections=["+strings.Join(*p.Connections, ",")+"]")
	}
	if len(parts) == 0 {
		return "{}"
	}
	return strings.Join(parts, " ")
}
