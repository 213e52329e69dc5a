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
	"math"
	"strings"

	"gowhiteboard/internal/canvas"
	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/export"
	"gowhiteboard/internal/vector"

	"github.com/charmbracelet/lipgloss"
)

// One terminal cell covers CellW x CellH screen pixels. Screen pixels are what
// the viewport produces from model coordinates.
const (
	CellW = 10.0
	CellH = 20.0
)

var (
	curveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748b"))
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#e5e7eb"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f43f5e")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e5e7eb")).Background(lipgloss.Color("#334155")).Padding(0, 1)
	toastStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#111827")).Background(lipgloss.Color("#fbbf24")).Padding(0, 1)
	helpBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#6366f1")).Padding(1, 2)
)

// grid is a character canvas where every cell carries a style index.
// Index 0 renders unstyled.
type grid struct {
	w, h   int
	runes  [][]rune
	style  [][]int
	styles []lipgloss.Style
}

func newGrid(w, h int) *grid {
	w, h = max(w, 1), max(h, 1)
	g := &grid{w: w, h: h, styles: []lipgloss.Style{lipgloss.NewStyle()}}
	g.runes = make([][]rune, h)
	g.style = make([][]int, h)
	for y := range g.runes {
		g.runes[y] = []rune(strings.Repeat(" ", w))
		g.style[y] = make([]int, w)
	}
	return g
}

func (g *grid) addStyle(s lipgloss.Style) int {
	g.styles = append(g.styles, s)
	return len(g.styles) - 1
}

func (g *grid) set(x, y int, r rune, st int) {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return
	}
	g.runes[y][x] = r
	g.style[y][x] = st
}

// box draws a border from (x0,y0) to (x1,y1) inclusive, optionally filling
// the inside with blanks of the same style.
func (g *grid) box(x0, y0, x1, y1 int, b lipgloss.Border, fill bool, st int) {
	x1, y1 = max(x1, x0+1), max(y1, y0+1)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			var r rune
			switch {
			case y == y0 && x == x0:
				r = firstRune(b.TopLeft)
			case y == y0 && x == x1:
				r = firstRune(b.TopRight)
			case y == y1 && x == x0:
				r = firstRune(b.BottomLeft)
			case y == y1 && x == x1:
				r = firstRune(b.BottomRight)
			case y == y0:
				r = firstRune(b.Top)
			case y == y1:
				r = firstRune(b.Bottom)
			case x == x0:
				r = firstRune(b.Left)
			case x == x1:
				r = firstRune(b.Right)
			default:
				if !fill {
					continue
				}
				r = ' '
			}
			g.set(x, y, r, st)
		}
	}
}

// text writes s wrapped to width starting at (x,y), at most maxLines lines.
// Centered lines are centered in width.
func (g *grid) text(x, y, width, maxLines int, s string, centered bool, st int) {
	if width < 1 || maxLines < 1 || s == "" {
		return
	}
	wrapped := lipgloss.NewStyle().Width(width).Render(s)
	for i, ln := range strings.Split(wrapped, "\n") {
		if i >= maxLines {
			break
		}
		ln = strings.TrimRight(ln, " ")
		off := 0
		if centered {
			off = (width - lipgloss.Width(ln)) / 2
		}
		cx := x + max(off, 0)
		for _, r := range ln {
			g.set(cx, y+i, r, st)
			cx++
		}
	}
}

// String joins runs of equally styled cells and renders each run once.
func (g *grid) String() string {
	var b strings.Builder
	for y := 0; y < g.h; y++ {
		row := g.runes[y]
		start := 0
		for x := 1; x <= g.w; x++ {
			if x < g.w && g.style[y][x] == g.style[y][start] {
				continue
			}
			run := string(row[start:x])
			if st := g.style[y][start]; st != 0 {
				run = g.styles[st].Render(run)
			}
			b.WriteString(run)
			start = x
		}
		if y < g.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return ' '
}

// cellRect maps a model rectangle through the viewport to inclusive cell bounds.
func cellRect(vp *canvas.Viewport, r vector.Rect) (x0, y0, x1, y1 int) {
	s := vp.Transform().ApplyRect(r)
	x0 = int(math.Floor(s.X / CellW))
	y0 = int(math.Floor(s.Y / CellH))
	x1 = int(math.Ceil((s.X+s.W)/CellW)) - 1
	y1 = int(math.Ceil((s.Y+s.H)/CellH)) - 1
	return x0, y0, x1, y1
}

func cellOf(vp *canvas.Viewport, p vector.Pt) (int, int) {
	s := vp.ToScreen(p)
	return int(math.Floor(s.X / CellW)), int(math.Floor(s.Y / CellH))
}

// pointerPt returns the screen point at the center of cell (x,y).
func pointerPt(x, y int) vector.Pt {
	return vector.Pt{X: float64(x)*CellW + CellW/2, Y: float64(y)*CellH + CellH/2}
}

// renderBoard draws connections, then notes, nodes and text boxes.
func renderBoard(b domain.Board, vp *canvas.Viewport, selected string, anchor vector.Pt, w, h int) *grid {
	g := newGrid(w, h)
	cs := g.addStyle(curveStyle)
	for _, c := range canvas.Connections(b.Elements, anchor) {
		plotCurve(g, vp, c.Path, cs)
	}
	sel := g.addStyle(selectedStyle)
	for _, e := range b.Elements.All() {
		x0, y0, x1, y1 := cellRect(vp, canvas.Bounds(e))
		isSel := e.ElementID() == selected
		switch v := e.(type) {
		case domain.Note:
			fill, ok := export.NotePalette[v.Color]
			if !ok {
				fill = export.NotePalette[domain.NoteYellow]
			}
			st := g.addStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#111827")).Background(lipgloss.Color(fill.Hex())))
			border := lipgloss.NormalBorder()
			if isSel {
				border = lipgloss.ThickBorder()
			}
			g.box(x0, y0, x1, y1, border, true, st)
			g.text(x0+1, y0+1, x1-x0-1, y1-y0-1, v.Text, false, st)
		case domain.Node:
			st := g.addStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color(v.Color)).Bold(true))
			border := lipgloss.RoundedBorder()
			if isSel {
				border = lipgloss.DoubleBorder()
			}
			g.box(x0, y0, x1, y1, border, true, st)
			lines := max(y1-y0-1, 1)
			ty := y0 + max((y1-y0)/2-(lines-1)/2, 0)
			if y1-y0 < 2 {
				ty = y0
			}
			g.text(x0+1, ty, x1-x0-1, lines, v.Text, true, st)
		case domain.TextBox:
			st := g.addStyle(textStyle)
			if isSel {
				st = sel
			}
			g.text(x0, y0, x1-x0+1, max(y1-y0+1, 1), v.Text, false, st)
		}
	}
	return g
}

// plotCurve samples the cubic segments of p and marks every cell it crosses.
func plotCurve(g *grid, vp *canvas.Viewport, p vector.Path, st int) {
	var cur vector.Pt
	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case vector.MoveTo:
			cur = vector.Pt{X: d[0], Y: d[1]}
		case vector.LineTo, vector.CubicTo:
			c1, c2, end := cur, vector.Pt{X: d[0], Y: d[1]}, vector.Pt{X: d[0], Y: d[1]}
			if c.Op == vector.CubicTo {
				c1, c2, end = vector.Pt{X: d[0], Y: d[1]}, vector.Pt{X: d[2], Y: d[3]}, vector.Pt{X: d[4], Y: d[5]}
			}
			ax, ay := cellOf(vp, cur)
			bx, by := cellOf(vp, end)
			n := max(abs(bx-ax)+abs(by-ay), 1) * 2
			for i := 0; i <= n; i++ {
				t := float64(i) / float64(n)
				x, y := cellOf(vp, bezier(cur, c1, c2, end, t))
				g.set(x, y, '·', st)
			}
			cur = end
		}
	}
}

func bezier(p0, p1, p2, p3 vector.Pt, t float64) vector.Pt {
	u := 1 - t
	return p0.Mul(u * u * u).Add(p1.Mul(3 * u * u * t)).Add(p2.Mul(3 * u * t * t)).Add(p3.Mul(t * t * t))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
