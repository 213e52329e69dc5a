/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package shell

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/export"
	"gowhiteboard/internal/keys"
	"gowhiteboard/internal/storage"
	"gowhiteboard/internal/vector"
	"gowhiteboard/internal/workspace"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type command struct {
	usage    string
	help     string
	minArgs  int
	complete []string
	run      func(ctx context.Context, s *Shell, args []string) error
}

var commands map[string]command

func init() {
	kinds := []string{"note", "node", "text"}
	commands = map[string]command{
		"help":       {usage: "help [command]", help: "list commands or show one command's usage", run: cmdHelp},
		"boards":     {usage: "boards", help: "list open boards", run: cmdBoards},
		"new":        {usage: "new [blank|brainstorm|mindmap] [name]", help: "create a board and make it active", complete: []string{"blank", "brainstorm", "mindmap"}, run: cmdNew},
		"use":        {usage: "use <board-id>", help: "activate a board", minArgs: 1, run: cmdUse},
		"rename":     {usage: "rename <board-id|.> <name>", help: "rename a board (. is the active board)", minArgs: 1, run: cmdRename},
		"rmboard":    {usage: "rmboard <board-id>", help: "close a board without deleting it from storage", minArgs: 1, run: cmdRemoveBoard},
		"ls":         {usage: "ls", help: "list elements of the active board", run: cmdList},
		"add":        {usage: "add <note|node|text>", help: "add an element at the spawn point", minArgs: 1, complete: kinds, run: cmdAdd},
		"set":        {usage: "set <id> <text|color|font|width|pos> <value...>", help: "change one field of an element", minArgs: 3, complete: []string{"text", "color", "font", "width", "pos"}, run: cmdSet},
		"move":       {usage: "move <id> <dx> <dy>", help: "drag an element by a screen delta at the current zoom", minArgs: 3, run: cmdMove},
		"rm":         {usage: "rm <id>", help: "delete an element", minArgs: 1, run: cmdRemove},
		"select":     {usage: "select <id>", help: "select an element", minArgs: 1, run: cmdSelect},
		"deselect":   {usage: "deselect", help: "clear the selection", run: cmdDeselect},
		"selected":   {usage: "selected", help: "show the selected element", run: cmdSelected},
		"connect":    {usage: "connect <from-node> <to-node>", help: "add a connection between nodes", minArgs: 2, run: cmdConnect},
		"disconnect": {usage: "disconnect <from-node> <to-node>", help: "remove a connection", minArgs: 2, run: cmdDisconnect},
		"prune":      {usage: "prune", help: "drop connections whose target no longer exists", run: cmdPrune},
		"zoom":       {usage: "zoom [in|out|reset]", help: "show or change the zoom", complete: []string{"in", "out", "reset"}, run: cmdZoom},
		"key":        {usage: "key <name>", help: "press a canvas shortcut (n, t, m, delete, esc, +, -, 0, ?)", minArgs: 1, run: cmdKey},
		"undo":       {usage: "undo", help: "undo the last change on the active board", run: cmdUndo},
		"redo":       {usage: "redo", help: "redo the last undone change", run: cmdRedo},
		"save":       {usage: "save [all]", help: "save the active board (or every board)", complete: []string{"all"}, run: cmdSave},
		"load":       {usage: "load <board-id>", help: "open a stored board", minArgs: 1, run: cmdLoad},
		"stored":     {usage: "stored", help: "list stored boards", run: cmdStored},
		"search":     {usage: "search <text>", help: "search element text across stored boards", minArgs: 1, run: cmdSearch},
		"export":     {usage: "export <file.svg|png|pdf> [scale]", help: "export the active board", minArgs: 1, run: cmdExport},
		"exit":       {usage: "exit", help: "leave the shell", run: cmdExit},
		"quit":       {usage: "quit", help: "leave the shell", run: cmdExit},
	}
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (s *Shell) printf(format string, args ...any) { fmt.Fprintf(s.out, format, args...) }

func (s *Shell) table(headers []string, rows [][]string) {
	t := table.New().Border(lipgloss.NormalBorder()).Headers(headers...).Rows(rows...)
	fmt.Fprintln(s.out, t.Render())
}

func (s *Shell) printKeys() {
	rows := make([][]string, 0, len(keys.Bindings))
	for _, b := range keys.Bindings {
		rows = append(rows, []string{strings.Join(b.Keys, ", "), b.Help})
	}
	s.table([]string{"KEY", "ACTION"}, rows)
}

func (s *Shell) active() (domain.Board, error) {
	b, ok := s.ws.ActiveBoard()
	if !ok {
		return domain.Board{}, workspace.ErrNoActiveBoard
	}
	return b, nil
}

func (s *Shell) resolve(id string) (domain.Ref, error) {
	b, err := s.active()
	if err != nil {
		return domain.Ref{}, err
	}
	ref, _, ok := b.Elements.Find(id)
	if !ok {
		return domain.Ref{}, fmt.Errorf("%w: %s", workspace.ErrElementNotFound, id)
	}
	return ref, nil
}

func (s *Shell) boardID(arg string) string {
	if arg == "." {
		return s.ws.ActiveID()
	}
	return arg
}

func (s *Shell) needRepo() error {
	if s.repo == nil {
		return fmt.Errorf("no storage configured")
	}
	return nil
}

func cmdHelp(_ context.Context, s *Shell, args []string) error {
	if len(args) > 0 {
		c, ok := commands[args[0]]
		if !ok {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		s.printf("%s\n  %s\n", c.usage, c.help)
		return nil
	}
	rows := make([][]string, 0, len(commands))
	for _, n := range commandNames() {
		rows = append(rows, []string{commands[n].usage, commands[n].help})
	}
	s.table([]string{"COMMAND", "DESCRIPTION"}, rows)
	return nil
}

func cmdBoards(_ context.Context, s *Shell, _ []string) error {
	infos := s.ws.Boards()
	if len(infos) == 0 {
		s.printf("no boards open\n")
		return nil
	}
	active := s.ws.ActiveID()
	rows := make([][]string, 0, len(infos))
	for _, bi := range infos {
		mark := ""
		if bi.ID == active {
			mark = "*"
		}
		rows = append(rows, []string{mark, bi.ID, bi.Name, strconv.Itoa(bi.Elements), bi.LastModified.Format(time.DateTime)})
	}
	s.table([]string{"", "ID", "NAME", "ELEMENTS", "MODIFIED"}, rows)
	return nil
}

func cmdNew(_ context.Context, s *Shell, args []string) error {
	var tmpl workspace.Template
	if len(args) > 0 {
		t, err := workspace.ParseTemplate(args[0])
		if err != nil {
			return err
		}
		tmpl, args = t, args[1:]
	}
	b, err := s.ws.CreateBoard(tmpl, strings.Join(args, " "))
	if err != nil {
		return err
	}
	s.printf("created %s %q with %d elements\n", b.ID, b.Name, b.Elements.Len())
	return nil
}

func cmdUse(_ context.Context, s *Shell, args []string) error {
	return s.ws.SelectBoard(args[0])
}

func cmdRename(_ context.Context, s *Shell, args []string) error {
	return s.ws.RenameBoard(s.boardID(args[0]), strings.Join(args[1:], " "))
}

func cmdRemoveBoard(_ context.Context, s *Shell, args []string) error {
	return s.ws.DeleteBoard(s.boardID(args[0]))
}

func cmdList(_ context.Context, s *Shell, _ []string) error {
	b, err := s.active()
	if err != nil {
		return err
	}
	sel := s.ws.SelectedID()
	var rows [][]string
	for _, e := range b.Elements.All() {
		p := e.ElementPosition()
		mark := ""
		if e.ElementID() == sel {
			mark = "*"
		}
		extra := ""
		switch v := e.(type) {
		case domain.Note:
			extra = string(v.Color)
		case domain.Node:
			extra = v.Color
			if len(v.Connections) > 0 {
				extra += " -> " + strings.Join(v.Connections, ",")
			}
		case domain.TextBox:
			extra = fmt.Sprintf("%gpx w=%g", v.FontSize, v.Width)
		}
		rows = append(rows, []string{mark, string(e.ElementKind()), e.ElementID(), fmt.Sprintf("%g,%g", p.X, p.Y), e.ElementText(), extra})
	}
	s.printf("%s (%s) zoom %d%%\n", b.Name, b.ID, int(s.vp.Zoom*100+0.5))
	s.table([]string{"", "KIND", "ID", "POS", "TEXT", ""}, rows)
	return nil
}

func cmdAdd(_ context.Context, s *Shell, args []string) error {
	k, err := domain.ParseKind(args[0])
	if err != nil {
		return err
	}
	e, err := s.ws.AddElement(k, "")
	if err != nil {
		return err
	}
	p := e.ElementPosition()
	s.printf("added %s %s at %g,%g\n", k, e.ElementID(), p.X, p.Y)
	return nil
}

func cmdSet(_ context.Context, s *Shell, args []string) error {
	ref, err := s.resolve(args[0])
	if err != nil {
		return err
	}
	value := strings.Join(args[2:], " ")
	var patch domain.Patch
	switch args[1] {
	case "text":
		patch = domain.SetText(value)
	case "color":
		patch = domain.SetColor(value)
	case "font", "width":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("%s must be a positive number, got %q", args[1], value)
		}
		if args[1] == "font" {
			patch.FontSize = &f
		} else {
			patch.Width = &f
		}
	case "pos":
		if len(args) < 4 {
			return fmt.Errorf("usage: set <id> pos <x> <y>")
		}
		x, errX := strconv.ParseFloat(args[2], 64)
		y, errY := strconv.ParseFloat(args[3], 64)
		if errX != nil || errY != nil {
			return fmt.Errorf("pos needs two numbers, got %q %q", args[2], args[3])
		}
		patch = domain.MoveTo(domain.Position{X: x, Y: y})
	default:
		return fmt.Errorf("unknown field %q", args[1])
	}
	return s.ws.UpdateElement(ref.Kind, ref.ID, patch)
}

func cmdMove(_ context.Context, s *Shell, args []string) error {
	ref, err := s.resolve(args[0])
	if err != nil {
		return err
	}
	dx, errX := strconv.ParseFloat(args[1], 64)
	dy, errY := strconv.ParseFloat(args[2], 64)
	if errX != nil || errY != nil {
		return fmt.Errorf("move needs two numbers, got %q %q", args[1], args[2])
	}
	pos, err := s.ws.MoveElement(ref, vector.Pt{X: dx, Y: dy}, s.vp.Zoom)
	if err != nil {
		return err
	}
	s.printf("%s now at %g,%g\n", ref.ID, pos.X, pos.Y)
	return nil
}

func cmdRemove(_ context.Context, s *Shell, args []string) error {
	ref, err := s.ws.DeleteElement(args[0])
	if err != nil {
		return err
	}
	s.printf("deleted %s %s\n", ref.Kind, ref.ID)
	return nil
}

func cmdSelect(_ context.Context, s *Shell, args []string) error {
	s.ws.SelectElement(args[0])
	return nil
}

func cmdDeselect(_ context.Context, s *Shell, _ []string) error {
	s.ws.ClearSelection()
	return nil
}

func cmdSelected(_ context.Context, s *Shell, _ []string) error {
	e, ok := s.ws.SelectedElement()
	if !ok {
		s.printf("nothing selected\n")
		return nil
	}
	s.printf("%s %s %q\n", e.ElementKind(), e.ElementID(), e.ElementText())
	return nil
}

func cmdConnect(_ context.Context, s *Shell, args []string) error {
	return s.ws.Connect(args[0], args[1])
}

func cmdDisconnect(_ context.Context, s *Shell, args []string) error {
	return s.ws.Disconnect(args[0], args[1])
}

func cmdPrune(_ context.Context, s *Shell, _ []string) error {
	n, err := s.ws.PruneDanglingConnections()
	if err != nil {
		return err
	}
	s.printf("removed %d dangling connections\n", n)
	return nil
}

func cmdZoom(_ context.Context, s *Shell, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "in":
			s.vp.ZoomIn()
		case "out":
			s.vp.ZoomOut()
		case "reset":
			s.vp.ResetZoom()
		default:
			return fmt.Errorf("usage: zoom [in|out|reset]")
		}
	}
	s.printf("zoom %d%%\n", int(s.vp.Zoom*100+0.5))
	return nil
}

func cmdKey(_ context.Context, s *Shell, args []string) error {
	res, err := s.disp.Handle(args[0], false)
	if err != nil {
		return err
	}
	switch {
	case res.Action == keys.None:
		return fmt.Errorf("no shortcut bound to %q", args[0])
	case res.Ref.ID != "":
		s.printf("%s: %s\n", res.Action, res.Ref.ID)
	case res.Action != keys.ShowHelp:
		s.printf("%s\n", res.Action)
	}
	return nil
}

func cmdUndo(_ context.Context, s *Shell, _ []string) error { return s.ws.Undo() }

func cmdRedo(_ context.Context, s *Shell, _ []string) error { return s.ws.Redo() }

func cmdSave(ctx context.Context, s *Shell, args []string) error {
	if err := s.needRepo(); err != nil {
		return err
	}
	if len(args) > 0 && args[0] == "all" {
		boards := s.ws.All()
		if err := storage.SaveAll(ctx, s.repo, boards); err != nil {
			return err
		}
		s.printf("saved %d boards\n", len(boards))
		return nil
	}
	b, err := s.active()
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, b); err != nil {
		return err
	}
	s.printf("saved %s\n", b.ID)
	return nil
}

func cmdLoad(ctx context.Context, s *Shell, args []string) error {
	if err := s.needRepo(); err != nil {
		return err
	}
	b, err := s.repo.Load(ctx, args[0])
	if err != nil {
		return err
	}
	if err := s.ws.Open(b); err != nil {
		return err
	}
	s.printf("opened %s %q\n", b.ID, b.Name)
	return nil
}

func cmdStored(ctx context.Context, s *Shell, _ []string) error {
	if err := s.needRepo(); err != nil {
		return err
	}
	infos, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(infos))
	for _, bi := range infos {
		rows = append(rows, []string{bi.ID, bi.Name, strconv.Itoa(bi.Elements), bi.LastModified.Format(time.DateTime)})
	}
	s.table([]string{"ID", "NAME", "ELEMENTS", "MODIFIED"}, rows)
	return nil
}

func cmdSearch(ctx context.Context, s *Shell, args []string) error {
	if err := s.needRepo(); err != nil {
		return err
	}
	res, err := s.repo.Search(ctx, storage.SearchQuery{Text: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	if len(res) == 0 {
		s.printf("no matches\n")
		return nil
	}
	rows := make([][]string, 0, len(res))
	for _, r := range res {
		rows = append(rows, []string{r.BoardName, string(r.Ref.Kind), r.Ref.ID, r.Snippet})
	}
	s.table([]string{"BOARD", "KIND", "ID", "MATCH"}, rows)
	return nil
}

func cmdExport(_ context.Context, s *Shell, args []string) error {
	b, err := s.active()
	if err != nil {
		return err
	}
	f, err := export.FormatFromPath(args[0])
	if err != nil {
		return err
	}
	o := export.DefaultOptions()
	o.Anchor = s.anchor
	if len(args) > 1 {
		sc, err := strconv.ParseFloat(args[1], 64)
		if err != nil || sc <= 0 {
			return fmt.Errorf("scale must be a positive number, got %q", args[1])
		}
		o.Scale = sc
	}
	if err := export.ExportFile(args[0], f, b, o); err != nil {
		return err
	}
	s.printf("wrote %s\n", args[0])
	return nil
}

func cmdExit(context.Context, *Shell, []string) error { return ErrExit }
