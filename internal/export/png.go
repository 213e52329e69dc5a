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
	"image"
	"io"
	"math"
	"sync"

	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/vector"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var regularFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

// faceCache hands out one face per pixel size for a single render.
type faceCache struct {
	f     *truetype.Font
	faces map[float64]font.Face
}

func (c *faceCache) get(size float64) font.Face {
	if f, ok := c.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(c.f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	c.faces[size] = f
	return f
}

func (c *faceCache) close() {
	for _, f := range c.faces {
		_ = f.Close()
	}
}

// RenderPNG rasterises b. Output pixels are model units times Options.Scale.
func RenderPNG(b domain.Board, o Options) (image.Image, error) {
	dc, err := render(b, o)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG renders b and encodes it to w.
func WritePNG(w io.Writer, b domain.Board, o Options) error {
	dc, err := render(b, o)
	if err != nil {
		return err
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func render(b domain.Board, o Options) (*gg.Context, error) {
	o = o.normalized()
	s := BuildScene(b, o)
	ttf, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	faces := &faceCache{f: ttf, faces: map[float64]font.Face{}}
	defer faces.close()

	k := o.Scale
	w := int(math.Ceil(s.Width * k))
	h := int(math.Ceil(s.Height * k))
	dc := gg.NewContext(w, h)
	dc.SetColor(s.Background.RGBA())
	dc.Clear()

	// Connections first so they appear behind elements.
	dc.SetColor(CurveInk.RGBA())
	dc.SetLineWidth(2 * k)
	for _, c := range s.Curves {
		drawPath(dc, c.Transform(vector.Scale(k, k)))
		dc.Stroke()
	}

	for _, it := range s.Items {
		r := vector.Scale(k, k).ApplyRect(it.Rect)
		if it.Fill.A > 0 {
			dc.DrawRoundedRectangle(r.X, r.Y, r.W, r.H, it.Rounded*k)
			dc.SetColor(it.Fill.RGBA())
			if it.Stroke.Enabled {
				dc.FillPreserve()
				dc.SetColor(it.Stroke.Color.RGBA())
				dc.SetLineWidth(it.Stroke.Width * k)
				dc.Stroke()
			} else {
				dc.Fill()
			}
		}
		if it.Text == "" {
			continue
		}
		dc.SetFontFace(faces.get(it.FontSize * k))
		dc.SetColor(it.Ink.RGBA())
		pad := 8 * k
		lh := it.FontSize * k * 1.2
		lines := dc.WordWrap(it.Text, math.Max(r.W-2*pad, 1))
		if it.Centered {
			y := r.Y + r.H/2 - lh*float64(len(lines)-1)/2
			for _, ln := range lines {
				dc.DrawStringAnchored(ln, r.X+r.W/2, y, 0.5, 0.35)
				y += lh
			}
			continue
		}
		y := r.Y + pad + it.FontSize*k
		for _, ln := range lines {
			dc.DrawString(ln, r.X+pad, y)
			y += lh
		}
	}
	return dc, nil
}

func drawPath(dc *gg.Context, p vector.Path) {
	dc.NewSubPath()
	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case vector.MoveTo:
			dc.MoveTo(d[0], d[1])
		case vector.LineTo:
			dc.LineTo(d[0], d[1])
		case vector.CubicTo:
			dc.CubicTo(d[0], d[1], d[2], d[3], d[4], d[5])
		case vector.Close:
			dc.ClosePath()
		}
	}
}
