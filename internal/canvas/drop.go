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

// Drop returns the model position of an element dragged by a screen-space
// pointer delta at the given zoom: orig + delta/zoom. A non-positive or
// non-finite zoom is treated as 1.
func Drop(orig domain.Position, delta vector.Pt, zoom float64) domain.Position {
	if zoom <= 0 || !finite(zoom) {
		zoom = 1
	}
	return domain.Position{X: orig.X + delta.X/zoom, Y: orig.Y + delta.Y/zoom}
}

// Drag tracks one pointer drag of a single element.
type Drag struct {
	Ref    domain.Ref
	Origin domain.Position
	start  vector.Pt
}

// BeginDrag records the element's position and the pointer at pointer-down.
func BeginDrag(ref domain.Ref, origin domain.Position, pointer vector.Pt) *Drag {
	return &Drag{Ref: ref, Origin: origin, start: pointer}
}

// At returns where the element would land with the pointer at p.
func (d *Drag) At(p vector.Pt, zoom float64) domain.Position {
	return Drop(d.Origin, p.Sub(d.start), zoom)
}

// Delta is the pointer travel since BeginDrag, in screen pixels.
func (d *Drag) Delta(p vector.Pt) vector.Pt { return p.Sub(d.start) }

// Moved reports whether the pointer left its starting point.
func (d *Drag) Moved(p vector.Pt) bool { return p != d.start }
