/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/vector"
)

// Footprints of the element kinds in model units. Text boxes are as wide as
// their Width field and one and a half lines tall.
const (
	NoteSize   = 150
	NodeWidth  = 150
	NodeHeight = 50
)

// Bounds returns the model-space rectangle an element occupies.
func Bounds(e domain.Element) vector.Rect {
	p := e.ElementPosition()
	switch v := e.(type) {
	case domain.Note:
		return vector.R(p.X, p.Y, NoteSize, NoteSize)
	case domain.Node:
		return vector.R(p.X, p.Y, NodeWidth, NodeHeight)
	case domain.TextBox:
		h := v.FontSize * 1.5
		if h <= 0 {
			h = 24
		}
		return vector.R(p.X, p.Y, v.Width, h)
	}
	return vector.Rect{X: p.X, Y: p.Y}
}

// Extent is the union of all element bounds, or the zero Rect for an empty board.
func Extent(el domain.Elements) vector.Rect {
	var r vector.Rect
	for _, e := range el.All() {
		r = r.Union(Bounds(e))
	}
	return r
}

// HitTest returns the top-most element under the model point. Elements are
// painted notes, nodes, text boxes, so the search runs in reverse.
func HitTest(el domain.Elements, p vector.Pt) (domain.Ref, bool) {
	all := el.All()
	for i := len(all) - 1; i >= 0; i-- {
		if Bounds(all[i]).Contains(p) {
			return domain.Ref{Kind: all[i].ElementKind(), ID: all[i].ElementID()}, true
		}
	}
	return domain.Ref{}, false
}
