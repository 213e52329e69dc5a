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

// DefaultAnchorOffset approximates the visual centre of a node box.
var DefaultAnchorOffset = vector.Pt{X: 75, Y: 25}

// Curve is one rendered node connection.
type Curve struct {
	From, To string
	A, B     vector.Pt
	Path     vector.Path
}

// Anchor returns pos + offset.
func Anchor(pos domain.Position, offset vector.Pt) vector.Pt {
	return vector.Pt{X: pos.X + offset.X, Y: pos.Y + offset.Y}
}

// CurvePath is a cubic Bézier from a to b with horizontal tangents at both ends.
func CurvePath(a, b vector.Pt) vector.Path {
	mx := (a.X + b.X) / 2
	var p vector.Path
	p.MoveTo(a.X, a.Y)
	p.CubicTo(mx, a.Y, mx, b.Y, b.X, b.Y)
	return p
}

// Connections computes a curve for every connection whose target node exists
// on the board. Dangling targets are skipped. Nothing is cached.
func Connections(el domain.Elements, offset vector.Pt) []Curve {
	if len(el.Nodes) == 0 {
		return nil
	}
	byID := make(map[string]domain.Position, len(el.Nodes))
	for _, n := range el.Nodes {
		if _, dup := byID[n.ID]; !dup {
			byID[n.ID] = n.Position
		}
	}
	var out []Curve
	for _, n := range el.Nodes {
		for _, target := range n.Connections {
			tp, ok := byID[target]
			if !ok {
				continue
			}
			a, b := Anchor(n.Position, offset), Anchor(tp, offset)
			out = append(out, Curve{From: n.ID, To: target, A: a, B: b, Path: CurvePath(a, b)})
		}
	}
	return out
}

// Dangling lists node connections whose target is missing, as from->to pairs.
func Dangling(el domain.Elements) [][2]string {
	exists := make(map[string]bool, len(el.Nodes))
	for _, n := range el.Nodes {
		exists[n.ID] = true
	}
	var out [][2]string
	for _, n := range el.Nodes {
		for _, t := range n.Connections {
			if !exists[t] {
				out = append(out, [2]string{n.ID, t})
			}
		}
	}
	return out
}
