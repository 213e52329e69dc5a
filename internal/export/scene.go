/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export renders boards to SVG, PNG and PDF.
// All three exporters draw the same Scene: connection curves first, then notes,
// nodes and text boxes in paint order.
package export

import (
	"strings"

	"gowhiteboard/internal/canvas"
	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/vector"
)

// Options controls layout shared by all formats.
type Options struct {
	// Padding around the element extent, in model units.
	Padding float64
	// Scale multiplies model units into output pixels (PNG) or points (PDF/SVG size).
	Scale float64
	// Anchor is the node-local point connections attach to.
	Anchor     vector.Pt
	Background vector.Color
	// Title is written as document metadata where the format supports it.
	Title string
}

// DefaultOptions returns white background, 40 units padding, scale 1.
func DefaultOptions() Options {
	return Options{Padding: 40, Scale: 1, Anchor: canvas.DefaultAnchorOffset, Background: vector.White}
}

func (o Options) normalized() Options {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	if o.Anchor == (vector.Pt{}) {
		o.Anchor = canvas.DefaultAnchorOffset
	}
	if o.Background == (vector.Color{}) {
		o.Background = vector.White
	}
	return o
}

// NotePalette maps note colors to fills.
var NotePalette = map[domain.NoteColor]vector.Color{
	domain.NoteYellow: {R: 0xfe, G: 0xf0, B: 0x8a, A: 255},
	domain.NotePink:   {R: 0xfb, G: 0xcf, B: 0xe8, A: 255},
	domain.NoteBlue:   {R: 0xbf, G: 0xdb, B: 0xfe, A: 255},
	domain.NoteGreen:  {R: 0xbb, G: 0xf7, B: 0xd0, A: 255},
	domain.NotePurple: {R: 0xe9, G: 0xd5, B: 0xff, A: 255},
	domain.NoteOrange: {R: 0xfe, G: 0xd7, B: 0xaa, A: 255},
}

var (
	outline   = vector.Color{R: 0x37, G: 0x41, B: 0x51, A: 255}
	CurveInk  = vector.Color{R: 0x64, G: 0x74, B: 0x8b, A: 255}
	textInk   = vector.Color{R: 0x11, G: 0x18, B: 0x27, A: 255}
	nodeLabel = vector.White
)

// Item is one element ready to draw, in scene coordinates.
type Item struct {
	Ref      domain.Ref
	Rect     vector.Rect
	Fill     vector.Color // Transparent for text boxes
	Stroke   vector.Stroke
	Ink      vector.Color
	Text     string
	FontSize float64
	Rounded  float64
	Centered bool
}

// Scene is a board laid out for drawing. The origin is the top-left corner of
// the padded element extent.
type Scene struct {
	Width, Height float64
	Background    vector.Color
	Curves        []vector.Path
	Items         []Item
}

// BuildScene lays out b. Dangling connections are skipped.
func BuildScene(b domain.Board, o Options) Scene {
	o = o.normalized()
	ext := canvas.Extent(b.Elements)
	if ext.Empty() {
		ext = vector.R(0, 0, 320, 200)
	}
	ext = ext.Inset(-o.Padding, -o.Padding)
	shift := vector.Translate(-ext.X, -ext.Y)

	s := Scene{Width: ext.W, Height: ext.H, Background: o.Background}
	for _, c := range canvas.Connections(b.Elements, o.Anchor) {
		s.Curves = append(s.Curves, c.Path.Transform(shift))
	}
	for _, e := range b.Elements.All() {
		it := ItemFor(e)
		it.Rect = shift.ApplyRect(it.Rect)
		s.Items = append(s.Items, it)
	}
	return s
}

// ItemFor styles a single element. Rect is in model coordinates.
func ItemFor(e domain.Element) Item {
	it := Item{
		Ref:      domain.Ref{Kind: e.ElementKind(), ID: e.ElementID()},
		Rect:     canvas.Bounds(e),
		Text:     e.ElementText(),
		FontSize: 14,
		Ink:      textInk,
	}
	switch v := e.(type) {
	case domain.Note:
		fill, ok := NotePalette[v.Color]
		if !ok {
			fill = NotePalette[domain.NoteYellow]
		}
		it.Fill = fill
		it.Stroke = vector.Stroke{Color: outline, Width: 1, Enabled: true}
		it.Rounded = 4
	case domain.Node:
		fill, err := vector.ParseHex(v.Color)
		if err != nil {
			fill = outline
		}
		it.Fill = fill
		it.Ink = nodeLabel
		it.Rounded = 8
		it.Centered = true
	case domain.TextBox:
		it.Fill = vector.Transparent
		if v.FontSize > 0 {
			it.FontSize = v.FontSize
		}
	}
	return it
}

// WrapText breaks s into lines no longer than maxChars, splitting on spaces
// and honoring explicit newlines.
func WrapText(s string, maxChars int) []string {
	if maxChars < 1 {
		maxChars = 1
	}
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len([]rune(line))+1+len([]rune(w)) > maxChars {
				out = append(out, line)
				line = w
				continue
			}
			line += " " + w
		}
		out = append(out, line)
	}
	return out
}

// CharsPerLine estimates how many glyphs of size fs fit into width.
func CharsPerLine(width, fs float64) int {
	if fs <= 0 {
		return 1
	}
	return int(width / (fs * 0.55))
}
