/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/export"
	"gowhiteboard/internal/storage"
	"gowhiteboard/internal/workspace"
)

func newCmd(a *app) *cobra.Command {
	var tmpl string
	c := &cobra.Command{
		Use:   "new [name]",
		Short: "Create a board from a template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := workspace.ParseTemplate(tmpl)
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			b, err := a.ws.CreateBoard(t, name)
			if err != nil {
				return err
			}
			if err := a.repo.Save(cmd.Context(), b); err != nil {
				return fmt.Errorf("save board: %w", err)
			}
			a.log.Info("board created", "board", b.ID, "template", string(t))
			cmd.Printf("%s\t%s\n", b.ID, b.Name)
			return nil
		},
	}
	c.Flags().StringVarP(&tmpl, "template", "t", "blank", "blank, brainstorm or mindmap")
	return withStorage(c)
}

func listCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored boards",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := a.repo.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				cmd.Println("no boards")
				return nil
			}
			t := table.New().Headers("ID", "NAME", "ELEMENTS", "MODIFIED")
			for _, bi := range infos {
				t.Row(bi.ID, bi.Name, fmt.Sprint(bi.Elements), bi.LastModified.Format("2006-01-02 15:04"))
			}
			cmd.Println(t.Render())
			return nil
		},
	}
	return withStorage(c)
}

func showCmd(a *app) *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "show <board-id>",
		Short: "Print a board's elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.repo.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				data, err := storage.EncodeBoard(b)
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}
			cmd.Printf("%s  %s  (%d elements, modified %s)\n", b.ID, b.Name, b.Elements.Len(), b.LastModified.Format("2006-01-02 15:04"))
			t := table.New().Headers("KIND", "ID", "X", "Y", "TEXT", "EXTRA")
			for _, e := range b.Elements.All() {
				p := e.ElementPosition()
				t.Row(string(e.ElementKind()), e.ElementID(), fmt.Sprint(p.X), fmt.Sprint(p.Y), oneLine(e.ElementText()), extra(e))
			}
			cmd.Println(t.Render())
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print the board document")
	return withStorage(c)
}

func extra(e domain.Element) string {
	switch v := e.(type) {
	case domain.Note:
		return string(v.Color)
	case domain.Node:
		if len(v.Connections) == 0 {
			return v.Color
		}
		return v.Color + " → " + strings.Join(v.Connections, ",")
	case domain.TextBox:
		return fmt.Sprintf("%gpx w%g", v.FontSize, v.Width)
	}
	return ""
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > 40 {
		return string(r[:39]) + "…"
	}
	return s
}

func renameCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "rename <board-id> <name>",
		Short: "Rename a board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.loadBoard(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := a.ws.RenameBoard(args[0], args[1]); err != nil {
				return err
			}
			b, _ := a.ws.Board(args[0])
			return a.repo.Save(cmd.Context(), b)
		},
	}
	return withStorage(c)
}

func rmCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:     "rm <board-id>...",
		Aliases: []string{"delete"},
		Short:   "Delete stored boards",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if err := a.repo.Delete(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				a.log.Info("board deleted", "board", id)
			}
			return nil
		},
	}
	return withStorage(c)
}

func importCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "import <file.json>...",
		Short: "Validate board documents and add them to storage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				b, err := storage.ReadBoardFile(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := a.repo.Save(cmd.Context(), b); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				cmd.Printf("imported %s\t%s\n", b.ID, b.Name)
			}
			return nil
		},
	}
	return withStorage(c)
}

func exportCmd(a *app) *cobra.Command {
	var (
		out     string
		format  string
		scale   float64
		all     bool
		preset  string
		workers int
	)
	c := &cobra.Command{
		Use:   "export [board-id]",
		Short: "Render a board as SVG, PNG, PDF or JSON",
		Long: "Render one board to --output (format taken from the extension unless --format is set),\n" +
			"or every stored board with --all into <output>/<format>/<id>.<format> using a preset.",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if all {
				boards, err := storedBoards(ctx, a.repo)
				if err != nil {
					return err
				}
				opt := export.BatchOptions{Preset: export.PresetName(preset), Scale: scale, OutDir: out, Workers: workers}
				if format != "" {
					f, err := export.ParseFormat(format)
					if err != nil {
						return err
					}
					opt.Formats = []export.Format{f}
				}
				paths, err := export.ExportBoards(ctx, boards, opt)
				if err != nil {
					return err
				}
				for _, p := range paths {
					cmd.Println(p)
				}
				return nil
			}

			b, err := a.repo.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				ext := format
				if ext == "" {
					ext = string(export.FormatSVG)
				}
				out = b.ID + "." + strings.TrimPrefix(ext, ".")
			}
			if strings.EqualFold(format, "json") || (format == "" && strings.EqualFold(filepath.Ext(out), ".json")) {
				if err := storage.WriteBoardFile(out, b); err != nil {
					return err
				}
				cmd.Println(out)
				return nil
			}
			var f export.Format
			if format != "" {
				f, err = export.ParseFormat(format)
			} else {
				f, err = export.FormatFromPath(out)
			}
			if err != nil {
				return err
			}
			o := export.DefaultOptions()
			o.Title = b.Name
			o.Anchor = a.cfg.Canvas.Anchor()
			if scale > 0 {
				o.Scale = scale
			}
			if err := export.ExportFile(out, f, b, o); err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		},
	}
	fl := c.Flags()
	fl.StringVarP(&out, "output", "o", "", "output file, or output directory with --all")
	fl.StringVarP(&format, "format", "f", "", "svg, png, pdf or json")
	fl.Float64Var(&scale, "scale", 0, "pixels (png) or points (pdf) per canvas unit")
	fl.BoolVar(&all, "all", false, "export every stored board")
	fl.StringVar(&preset, "preset", string(export.PresetWeb), "web or print (with --all)")
	fl.IntVar(&workers, "workers", 0, "concurrent renders (with --all)")
	return withStorage(c)
}

func searchCmd(a *app) *cobra.Command {
	var (
		kinds   []string
		boardID string
		limit   int
		asJSON  bool
	)
	c := &cobra.Command{
		Use:   "search <text>...",
		Short: "Find elements by text across stored boards",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := storage.SearchQuery{Text: strings.Join(args, " "), BoardID: boardID, Limit: limit}
			for _, k := range kinds {
				kind, err := domain.ParseKind(k)
				if err != nil {
					return err
				}
				q.Kinds = append(q.Kinds, kind)
			}
			res, err := a.repo.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if len(res) == 0 {
				cmd.Println("no matches")
				return nil
			}
			t := table.New().Headers("BOARD", "KIND", "ID", "MATCH")
			for _, r := range res {
				t.Row(r.BoardName, string(r.Ref.Kind), r.Ref.ID, oneLine(r.Snippet))
			}
			cmd.Println(t.Render())
			return nil
		},
	}
	fl := c.Flags()
	fl.StringSliceVarP(&kinds, "kind", "k", nil, "restrict to note, node or text")
	fl.StringVarP(&boardID, "board", "b", "", "restrict to one board")
	fl.IntVarP(&limit, "limit", "n", 50, "maximum results")
	fl.BoolVar(&asJSON, "json", false, "print results as JSON")
	return withStorage(c)
}
