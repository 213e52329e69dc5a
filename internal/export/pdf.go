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
	"fmt"
	"io"
	"math"

	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/vector"

	"github.com/jung-kurt/gofpdf"
)

// WritePDF writes b as a single-page PDF sized to the board extent.
// Units are points; one model unit maps to Options.Scale points.
// Text uses the built-in Helvetica so nothing is embedded.
func WritePDF(w io.Writer, b domain.Board, o Options) error {
	o = o.normalized()
	s := BuildScene(b, o)
	k := o.Scale
	pageW, pageH := s.Width*k, s.Height*k

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	title := o.Title
	if title == "" {
		title = b.Name
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("gowhiteboard", false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	setFillColor(pdf, s.Background)
	pdf.Rect(0, 0, pageW, pageH, "F")

	setDrawColor(pdf, CurveInk)
	pdf.SetLineWidth(2 * k)
	for _, c := range s.Curves {
		drawPDFPath(pdf, c.Transform(vector.Scale(k, k)))
	}

	for _, it := range s.Items {
		r := vector.Scale(k, k).ApplyRect(it.Rect)
		if it.Fill.A > 0 {
			setFillColor(pdf, it.Fill)
			style := "F"
			if it.Stroke.Enabled {
				setDrawColor(pdf, it.Stroke.Color)
				pdf.SetLineWidth(it.Stroke.Width * k)
				style = "FD"
			}
			pdf.Rect(r.X, r.Y, r.W, r.H, style)
		}
		if it.Text == "" {
			continue
		}
		fs := it.FontSize * k
		pdf.SetFont("Helvetica", "", fs)
		pdf.SetTextColor(int(it.Ink.R), int(it.Ink.G), int(it.Ink.B))
		pad := 8 * k
		lh := fs * 1.2
		lines := pdf.SplitText(tr(it.Text), math.Max(r.W-2*pad, fs))
		if it.Centered {
			y := r.Y + r.H/2 - lh*float64(len(lines)-1)/2 + fs*0.35
			for _, ln := range lines {
				pdf.Text(r.X+(r.W-pdf.GetStringWidth(ln))/2, y, ln)
				y += lh
			}
			continue
		}
		y := r.Y + pad + fs
		for _, ln := range lines {
			pdf.Text(r.X+pad, y, ln)
			y += lh
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawPDFPath(pdf *gofpdf.Fpdf, p vector.Path) {
	var cur vector.Pt
	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case vector.MoveTo:
			cur = vector.Pt{X: d[0], Y: d[1]}
		case vector.LineTo:
			pdf.Line(cur.X, cur.Y, d[0], d[1])
			cur = vector.Pt{X: d[0], Y: d[1]}
		case vector.CubicTo:
			pdf.CurveBezierCubic(cur.X, cur.Y, d[0], d[1], d[2], d[3], d[4], d[5], "D")
			cur = vector.Pt{X: d[4], Y: d[5]}
		}
	}
}

func setDrawColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
