/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestPathBounds(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.CubicTo(50, 0, 50, 100, 100, 100)
	b := p.Bounds()
	if b != R(0, 0, 100, 100) {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	if (Path{}).Bounds() != (Rect{}) {
		t.Fatalf("empty path should have empty bounds")
	}
}

func TestPathSVG(t *testing.T) {
	var p Path
	p.MoveTo(175, 125)
	p.CubicTo(237.5, 125, 237.5, 225.25, 300, 225.25)
	want := "M 175 125 C 237.5 125 237.5 225.25 300 225.25"
	if got := p.SVG(); got != want {
		t.Fatalf("SVG() = %q want %q", got, want)
	}
}

func TestPathTransform(t *testing.T) {
	var p Path
	p.MoveTo(1, 1)
	p.LineTo(2, 2)
	p.Close()
	q := p.Transform(Translate(10, 0).Mul(Scale(2, 2)))
	if q.Cmds[0].Data[0] != 12 || q.Cmds[1].Data[1] != 4 || q.Cmds[2].Op != Close {
		t.Fatalf("unexpected transformed path: %+v", q.Cmds)
	}
	if p.Cmds[0].Data[0] != 1 {
		t.Fatalf("transform mutated receiver")
	}
}
