/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"gowhiteboard/internal/domain"
)

// WriteSVG renders b as a standalone SVG document. The viewBox is in model
// units; width/height are scaled by Options.Scale.
func WriteSVG(w io.Writer, b domain.Board, o Options) error {
	o = o.normalized()
	s := BuildScene(b, o)

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	pxW := int(math.Round(s.Width * o.Scale))
	pxH := int(math.Round(s.Height * o.Scale))
	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"0 0 %g %g\">\n", pxW, pxH, s.Width, s.Height)
	title := o.Title
	if title == "" {
		title = b.Name
	}
	if title != "" {
		wf("  <title>%s</title>\n", escText(title))
	}
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", s.Width, s.Height, s.Background.Hex())

	for _, c := range s.Curves {
		wf("  <path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\"/>\n", c.SVG(), CurveInk.Hex())
	}
	for _, it := range s.Items {
		r := it.Rect
		wf("  <g data-kind=\"%s\" data-id=\"%s\">\n", it.Ref.Kind, escAttr(it.Ref.ID))
		if it.Fill.A > 0 {
			stroke := "none"
			sw := 0.0
			if it.Stroke.Enabled {
				stroke, sw = it.Stroke.Color.Hex(), it.Stroke.Width
			}
			wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\" ry=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
				r.X, r.Y, r.W, r.H, it.Rounded, it.Rounded, it.Fill.Hex(), stroke, sw)
		}
		pad := 8.0
		var lines []string
		if it.Text != "" {
			lines = WrapText(it.Text, CharsPerLine(r.W-2*pad, it.FontSize))
		}
		lh := it.FontSize * 1.2
		x, anchor := r.X+pad, "start"
		y := r.Y + pad + it.FontSize
		if it.Centered {
			x, anchor = r.X+r.W/2, "middle"
			y = r.Y + r.H/2 - lh*float64(len(lines)-1)/2 + it.FontSize*0.35
		}
		for _, ln := range lines {
			wf("    <text x=\"%g\" y=\"%g\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"%g\" text-anchor=\"%s\" fill=\"%s\">%s</text>\n",
				x, y, it.FontSize, anchor, it.Ink.Hex(), escText(ln))
			y += lh
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
