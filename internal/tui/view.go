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
	"fmt"
	"strings"

	"gowhiteboard/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.showHelp {
		title := lipgloss.NewStyle().Bold(true).Render("Keyboard shortcuts")
		box := helpBoxStyle.Render(title + "\n\n" + m.help.FullHelpView(m.km.FullHelp()))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	rows := m.height - 1
	if m.input.Focused() {
		rows--
	}
	b, ok := m.ws.ActiveBoard()
	var body string
	if !ok {
		body = lipgloss.Place(m.width, max(rows, 1), lipgloss.Center, lipgloss.Center, "no board open")
	} else {
		body = renderBoard(m.preview(b), m.vp, m.ws.SelectedID(), m.anchor, m.width, rows).String()
	}

	parts := []string{body}
	if m.input.Focused() {
		parts = append(parts, m.input.View())
	}
	parts = append(parts, m.statusLine(b, ok))
	return strings.Join(parts, "\n")
}

// preview moves the dragged element to where it would drop.
func (m Model) preview(b domain.Board) domain.Board {
	if m.drag == nil {
		return b
	}
	_, i, ok := b.Elements.LookupKind(m.drag.Ref.Kind, m.drag.Ref.ID)
	if !ok {
		return b
	}
	b = b.Clone()
	_ = b.Elements.Apply(m.drag.Ref.Kind, i, domain.MoveTo(m.drag.At(m.dragAt, m.vp.Zoom)))
	return b
}

func (m Model) statusLine(b domain.Board, ok bool) string {
	left := "no board"
	if ok {
		left = fmt.Sprintf("%s · %d elements · %d%%", b.Name, b.Elements.Len(), int(m.vp.Zoom*100+0.5))
		if e, sel := m.ws.SelectedElement(); sel {
			left += fmt.Sprintf(" · %s selected", e.ElementKind())
		}
	}
	status := statusStyle.Render(left)
	right := m.help.ShortHelpView(m.km.ShortHelp())
	if m.toast != "" {
		right = toastStyle.Render(m.toast)
	}
	gap := m.width - lipgloss.Width(status) - lipgloss.Width(right)
	if gap < 1 {
		return status + " " + right
	}
	return status + strings.Repeat(" ", gap) + right
}
