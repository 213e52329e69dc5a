/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package canvas holds the pure geometry of the whiteboard surface: the
// pan/zoom viewport, drag-and-drop placement and connection curves.
package canvas

import (
	"math"

	"gowhiteboard/internal/vector"
)

// Limits bounds the zoom factor and sets the keyboard step.
type Limits struct {
	MinZoom float64 `yaml:"minZoom"`
	MaxZoom float64 `yaml:"maxZoom"`
	Step    float64 `yaml:"step"`
}

// DefaultLimits are [0.5, 2.0] with 0.1 steps.
var DefaultLimits = Limits{MinZoom: 0.5, MaxZoom: 2.0, Step: 0.1}

// Apply returns clamp(current+delta) rounded to 6 places so repeated steps
// do not drift. A non-finite result leaves the zoom where it was; a non-finite
// current zoom resets to 1.
func (l Limits) Apply(current, delta float64) float64 {
	if !finite(current) {
		current = 1
	}
	z := current + delta
	if !finite(z) {
		z = current
	}
	return vector.Clamp(vector.FloatRound(z, 6), l.MinZoom, l.MaxZoom)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// ApplyZoomDelta uses DefaultLimits.
func ApplyZoomDelta(current, delta float64) float64 { return DefaultLimits.Apply(current, delta) }

// Viewport is the pan offset and zoom of one session. The zero value is not
// usable; call NewViewport.
type Viewport struct {
	Pan    vector.Pt
	Zoom   float64
	Limits Limits

	panning bool
	anchor  vector.Pt
}

// NewViewport returns a viewport at zoom 1 with no pan. Invalid limits fall
// back to DefaultLimits.
func NewViewport(l Limits) *Viewport {
	if l.MinZoom <= 0 || l.MaxZoom < l.MinZoom {
		l.MinZoom, l.MaxZoom = DefaultLimits.MinZoom, DefaultLimits.MaxZoom
	}
	if l.Step <= 0 {
		l.Step = DefaultLimits.Step
	}
	return &Viewport{Zoom: 1, Limits: l}
}

func (v *Viewport) ZoomIn()    { v.Zoom = v.Limits.Apply(v.Zoom, v.Limits.Step) }
func (v *Viewport) ZoomOut()   { v.Zoom = v.Limits.Apply(v.Zoom, -v.Limits.Step) }
func (v *Viewport) ResetZoom() { v.Zoom = v.Limits.Apply(1, 0) }

// ZoomBy applies an arbitrary delta, e.g. from a wheel event.
func (v *Viewport) ZoomBy(delta float64) { v.Zoom = v.Limits.Apply(v.Zoom, delta) }

// BeginPan starts a pan at the pointer position (pointer down on empty canvas).
func (v *Viewport) BeginPan(pointer vector.Pt) {
	v.panning = true
	v.anchor = pointer.Sub(v.Pan)
}

// MovePan moves the pan so the anchor follows the pointer. It reports false
// when no pan is active.
func (v *Viewport) MovePan(pointer vector.Pt) bool {
	if !v.panning {
		return false
	}
	v.Pan = pointer.Sub(v.anchor)
	return true
}

// EndPan ends the active pan, if any.
func (v *Viewport) EndPan()       { v.panning = false }
func (v *Viewport) Panning() bool { return v.panning }

// Transform maps model coordinates to screen coordinates.
func (v *Viewport) Transform() vector.Affine2D {
	return vector.Translate(v.Pan.X, v.Pan.Y).Mul(vector.Scale(v.Zoom, v.Zoom))
}

// ToScreen returns pan + model*zoom.
func (v *Viewport) ToScreen(model vector.Pt) vector.Pt { return v.Pan.Add(model.Mul(v.Zoom)) }

// ToModel is the inverse of ToScreen.
func (v *Viewport) ToModel(screen vector.Pt) vector.Pt { return screen.Sub(v.Pan).Div(v.Zoom) }
