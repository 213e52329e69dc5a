/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package workspace

import (
	"fmt"
	"strings"

	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/ids"
)

// Template selects the initial contents of a new board.
type Template string

const (
	Blank      Template = "blank"
	Brainstorm Template = "brainstorm"
	MindMap    Template = "mindmap"
)

// Templates lists the built-in templates.
func Templates() []Template { return []Template{Blank, Brainstorm, MindMap} }

// ParseTemplate accepts a template name case-insensitively; "" means Blank.
func ParseTemplate(s string) (Template, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "blank":
		return Blank, nil
	case "brainstorm":
		return Brainstorm, nil
	case "mindmap", "mind-map", "mind_map":
		return MindMap, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, s)
}

func (t Template) defaultName() string {
	switch t {
	case Brainstorm:
		return "Brainstorm"
	case MindMap:
		return "Mind map"
	default:
		return "Untitled board"
	}
}

// populate fills el for t. Offsets are fixed so templates look the same on
// every machine; only ids differ.
func (t Template) populate(alloc ids.Allocator, tb TextBoxDefaults) domain.Elements {
	el := domain.Elements{Notes: []domain.Note{}, Nodes: []domain.Node{}, TextBoxes: []domain.TextBox{}}
	title := func(text string) domain.TextBox {
		return domain.TextBox{ID: alloc.Next(), Position: domain.Position{X: 100, Y: 40}, Text: text, FontSize: 28, Width: 2 * tb.Width}
	}
	switch t {
	case Brainstorm:
		el.TextBoxes = append(el.TextBoxes, title("Brainstorm"))
		slots := []domain.Position{{X: 100, Y: 120}, {X: 300, Y: 120}, {X: 100, Y: 320}, {X: 300, Y: 320}}
		for i, p := range slots {
			el.Notes = append(el.Notes, domain.Note{
				ID:       alloc.Next(),
				Position: p,
				Text:     fmt.Sprintf("Idea %d", i+1),
				Color:    domain.NoteColors[i%len(domain.NoteColors)],
			})
		}
	case MindMap:
		el.TextBoxes = append(el.TextBoxes, title("Mind map"))
		center := domain.Node{ID: alloc.Next(), Position: domain.Position{X: 400, Y: 300}, Text: "Central idea", Color: domain.NodePalette[0], Connections: []string{}}
		slots := []domain.Position{{X: 150, Y: 150}, {X: 650, Y: 150}, {X: 150, Y: 450}, {X: 650, Y: 450}}
		children := make([]domain.Node, 0, len(slots))
		for i, p := range slots {
			n := domain.Node{
				ID:          alloc.Next(),
				Position:    p,
				Text:        fmt.Sprintf("Topic %d", i+1),
				Color:       domain.NodePalette[(i+1)%len(domain.NodePalette)],
				Connections: []string{},
			}
			center.Connections = append(center.Connections, n.ID)
			children = append(children, n)
		}
		el.Nodes = append(append(el.Nodes, center), children...)
	}
	return el
}
