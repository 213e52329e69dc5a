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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gowhiteboard/internal/domain"

	"golang.org/x/sync/errgroup"
)

// Format names an output file type.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// ErrUnknownFormat is returned for format names other than svg, png and pdf.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts a format name or a file extension (".png").
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	switch f {
	case FormatSVG, FormatPNG, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath derives the format from a file name extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Write renders b in the given format.
func Write(w io.Writer, f Format, b domain.Board, o Options) error {
	switch f {
	case FormatSVG:
		return WriteSVG(w, b, o)
	case FormatPNG:
		return WritePNG(w, b, o)
	case FormatPDF:
		return WritePDF(w, b, o)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// ExportFile writes b to path, creating parent directories.
// A partially written file is removed on failure.
func ExportFile(path string, f Format, b domain.Board, o Options) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	if err := Write(out, f, b, o); err != nil {
		return fmt.Errorf("export %s %s: %w", b.ID, f, err)
	}
	return nil
}

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls ExportBoards.
//
// Files are written as <OutDir>/<format>/<board id>.<format>. An empty OutDir
// resolves to the preset name relative to the working directory.
type BatchOptions struct {
	Preset  PresetName
	Formats []Format // empty means preset defaults
	Scale   float64  // when > 0 overrides the preset scale
	OutDir  string
	// Workers bounds concurrent renders; 0 means 4.
	Workers int
}

// ExportBoards renders every board in every requested format concurrently and
// returns the written paths in board then format order. The first failure
// cancels the remaining work.
func ExportBoards(ctx context.Context, boards []domain.Board, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	for _, f := range formats {
		if _, err := ParseFormat(string(f)); err != nil {
			return nil, err
		}
	}
	base := opt.OutDir
	if base == "" {
		base = string(opt.Preset)
		if base == "" {
			base = "exports"
		}
	}
	o := presetOptions(opt.Preset)
	if opt.Scale > 0 {
		o.Scale = opt.Scale
	}
	workers := opt.Workers
	if workers <= 0 {
		workers = 4
	}

	paths := make([]string, len(boards)*len(formats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, b := range boards {
		for j, f := range formats {
			slot := i*len(formats) + j
			path := filepath.Join(base, string(f), b.ID+"."+string(f))
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				bo := o
				bo.Title = b.Name
				if err := ExportFile(path, f, b, bo); err != nil {
					return err
				}
				paths[slot] = path
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func presetDefaultFormats(p PresetName) []Format {
	switch p {
	case PresetWeb:
		return []Format{FormatSVG, FormatPNG}
	case PresetPrint:
		return []Format{FormatPDF}
	default:
		return []Format{FormatSVG}
	}
}

func presetOptions(p PresetName) Options {
	o := DefaultOptions()
	switch p {
	case PresetWeb:
		o.Scale = 2
	case PresetPrint:
		o.Padding = 72
	}
	return o
}
