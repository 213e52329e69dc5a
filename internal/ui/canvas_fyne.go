//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	wcanvas "gowhiteboard/internal/canvas"
	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/export"
	"gowhiteboard/internal/vector"
	"gowhiteboard/internal/workspace"
)

// curveSegments is how many straight lines approximate one connection curve.
const curveSegments = 24

// BoardCanvas draws the active board of a workspace and turns pointer input
// into selection, element drags, panning and zoom.
type BoardCanvas struct {
	widget.BaseWidget

	ws     *workspace.Workspace
	vp     *wcanvas.Viewport
	anchor vector.Pt

	drag   *wcanvas.Drag
	dragAt vector.Pt
	pan    bool

	// OnError receives failures of pointer-driven operations.
	OnError func(error)
	// OnEdit is called on double tap over an element.
	OnEdit func(domain.Ref)
}

func NewBoardCanvas(ws *workspace.Workspace, vp *wcanvas.Viewport, anchor vector.Pt) *BoardCanvas {
	if anchor == (vector.Pt{}) {
		anchor = wcanvas.DefaultAnchorOffset
	}
	bc := &BoardCanvas{ws: ws, vp: vp, anchor: anchor}
	bc.ExtendBaseWidget(bc)
	return bc
}

func (bc *BoardCanvas) CreateRenderer() fyne.WidgetRenderer {
	r := &boardRenderer{bc: bc, bg: canvas.NewRectangle(color.RGBA{R: 248, G: 250, B: 252, A: 255})}
	r.rebuild()
	return r
}

func (bc *BoardCanvas) MinSize() fyne.Size { return fyne.NewSize(640, 480) }

func pt(p fyne.Position) vector.Pt { return vector.Pt{X: float64(p.X), Y: float64(p.Y)} }

func pos(p vector.Pt) fyne.Position { return fyne.NewPos(float32(p.X), float32(p.Y)) }

func (bc *BoardCanvas) hit(screen vector.Pt) (domain.Ref, domain.Element, bool) {
	b, ok := bc.ws.ActiveBoard()
	if !ok {
		return domain.Ref{}, nil, false
	}
	ref, hit := wcanvas.HitTest(b.Elements, bc.vp.ToModel(screen))
	if !hit {
		return domain.Ref{}, nil, false
	}
	e, _, _ := b.Elements.LookupKind(ref.Kind, ref.ID)
	return ref, e, e != nil
}

// Tapped selects the element under the pointer or clears the selection.
func (bc *BoardCanvas) Tapped(e *fyne.PointEvent) {
	if ref, _, ok := bc.hit(pt(e.Position)); ok {
		bc.ws.SelectElement(ref.ID)
	} else {
		bc.ws.ClearSelection()
	}
	bc.Refresh()
}

func (bc *BoardCanvas) DoubleTapped(e *fyne.PointEvent) {
	ref, _, ok := bc.hit(pt(e.Position))
	if !ok {
		return
	}
	bc.ws.SelectElement(ref.ID)
	if bc.OnEdit != nil {
		bc.OnEdit(ref)
	}
}

// Dragged moves the element under the drag start, or pans when the drag
// started on empty canvas. Element positions are committed on DragEnd.
func (bc *BoardCanvas) Dragged(e *fyne.DragEvent) {
	at := pt(e.Position)
	if bc.drag == nil && !bc.pan {
		start := at.Sub(vector.Pt{X: float64(e.Dragged.DX), Y: float64(e.Dragged.DY)})
		if ref, el, ok := bc.hit(start); ok {
			bc.ws.SelectElement(ref.ID)
			bc.drag = wcanvas.BeginDrag(ref, el.ElementPosition(), start)
		} else {
			bc.pan = true
			bc.vp.BeginPan(start)
		}
	}
	if bc.drag != nil {
		bc.dragAt = at
	} else {
		bc.vp.MovePan(at)
	}
	bc.Refresh()
}

func (bc *BoardCanvas) DragEnd() {
	d := bc.drag
	bc.drag, bc.pan = nil, false
	bc.vp.EndPan()
	if d != nil && d.Moved(bc.dragAt) {
		if _, err := bc.ws.MoveElement(d.Ref, d.Delta(bc.dragAt), bc.vp.Zoom); err != nil && bc.OnError != nil {
			bc.OnError(err)
		}
	}
	bc.Refresh()
}

// Scrolled zooms one step per wheel notch.
func (bc *BoardCanvas) Scrolled(e *fyne.ScrollEvent) {
	switch {
	case e.Scrolled.DY > 0:
		bc.vp.ZoomIn()
	case e.Scrolled.DY < 0:
		bc.vp.ZoomOut()
	}
	bc.Refresh()
}

type boardRenderer struct {
	bc      *BoardCanvas
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *boardRenderer) Destroy()                     {}
func (r *boardRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *boardRenderer) MinSize() fyne.Size           { return r.bc.MinSize() }
func (r *boardRenderer) Layout(size fyne.Size)        { r.bg.Resize(size) }

func (r *boardRenderer) Refresh() {
	r.rebuild()
	r.Layout(r.bc.Size())
	canvas.Refresh(r.bc)
}

// rebuild recreates every drawable from the current board, viewport and drag.
func (r *boardRenderer) rebuild() {
	bc := r.bc
	r.objects = append(r.objects[:0], r.bg)
	b, ok := bc.ws.ActiveBoard()
	if !ok {
		return
	}
	if bc.drag != nil {
		if _, i, found := b.Elements.LookupKind(bc.drag.Ref.Kind, bc.drag.Ref.ID); found {
			b = b.Clone()
			_ = b.Elements.Apply(bc.drag.Ref.Kind, i, domain.MoveTo(bc.drag.At(bc.dragAt, bc.vp.Zoom)))
		}
	}
	z := bc.vp.Zoom

	for _, c := range wcanvas.Connections(b.Elements, bc.anchor) {
		for _, seg := range sampleCurve(c.Path, curveSegments) {
			ln := canvas.NewLine(rgba(export.CurveInk))
			ln.StrokeWidth = float32(2 * z)
			ln.Position1, ln.Position2 = pos(bc.vp.ToScreen(seg[0])), pos(bc.vp.ToScreen(seg[1]))
			r.objects = append(r.objects, ln)
		}
	}

	sel := bc.ws.SelectedID()
	for _, e := range b.Elements.All() {
		it := export.ItemFor(e)
		rect := bc.vp.Transform().ApplyRect(wcanvas.Bounds(e))
		if it.Fill.A > 0 || e.ElementID() == sel {
			box := canvas.NewRectangle(rgba(it.Fill))
			box.CornerRadius = float32(it.Rounded * z)
			if it.Stroke.Enabled {
				box.StrokeColor = rgba(it.Stroke.Color)
				box.StrokeWidth = float32(it.Stroke.Width)
			}
			if e.ElementID() == sel {
				box.StrokeColor = color.RGBA{R: 0xf4, G: 0x3f, B: 0x5e, A: 255}
				box.StrokeWidth = 3
			}
			box.Move(pos(rect.Min()))
			box.Resize(fyne.NewSize(float32(rect.W), float32(rect.H)))
			r.objects = append(r.objects, box)
		}
		r.objects = append(r.objects, textLines(it, rect, z)...)
	}
}

func textLines(it export.Item, rect vector.Rect, z float64) []fyne.CanvasObject {
	if it.Text == "" {
		return nil
	}
	fs := it.FontSize * z
	pad := 8 * z
	lh := fs * 1.2
	lines := export.WrapText(it.Text, export.CharsPerLine(rect.W-2*pad, fs))
	y := rect.Y + pad
	if it.Centered {
		y = rect.Y + rect.H/2 - lh*float64(len(lines))/2
	}
	out := make([]fyne.CanvasObject, 0, len(lines))
	for _, ln := range lines {
		t := canvas.NewText(ln, rgba(it.Ink))
		t.TextSize = float32(fs)
		x := rect.X + pad
		if it.Centered {
			t.Alignment = fyne.TextAlignCenter
			x = rect.X
			t.Resize(fyne.NewSize(float32(rect.W), float32(lh)))
		}
		t.Move(fyne.NewPos(float32(x), float32(y)))
		out = append(out, t)
		y += lh
	}
	return out
}

// sampleCurve flattens p into line segments, n per cubic.
func sampleCurve(p vector.Path, n int) [][2]vector.Pt {
	var out [][2]vector.Pt
	var cur vector.Pt
	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case vector.MoveTo:
			cur = vector.Pt{X: d[0], Y: d[1]}
		case vector.LineTo:
			next := vector.Pt{X: d[0], Y: d[1]}
			out = append(out, [2]vector.Pt{cur, next})
			cur = next
		case vector.CubicTo:
			c1, c2, end := vector.Pt{X: d[0], Y: d[1]}, vector.Pt{X: d[2], Y: d[3]}, vector.Pt{X: d[4], Y: d[5]}
			prev := cur
			for i := 1; i <= n; i++ {
				t := float64(i) / float64(n)
				u := 1 - t
				q := cur.Mul(u * u * u).Add(c1.Mul(3 * u * u * t)).Add(c2.Mul(3 * u * t * t)).Add(end.Mul(t * t * t))
				out = append(out, [2]vector.Pt{prev, q})
				prev = q
			}
			cur = end
		}
	}
	return out
}

func rgba(c vector.Color) color.Color { return c.RGBA() }
