//go:build fyne && cgo

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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	wcanvas "gowhiteboard/internal/canvas"
	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/event"
	"gowhiteboard/internal/export"
	"gowhiteboard/internal/keys"
	applog "gowhiteboard/internal/log"
	"gowhiteboard/internal/storage"
	"gowhiteboard/internal/workspace"
)

const toastFor = 3 * time.Second

// Run opens the whiteboard window and blocks until it is closed or ctx is
// canceled. Open boards are saved to o.Repo on exit.
func Run(ctx context.Context, o Options) error {
	if o.Workspace == nil {
		return errors.New("ui: workspace is required")
	}
	l := o.Logger
	if l == nil {
		l = applog.WithComponent("ui")
	}
	l.Info("starting UI")
	ws := o.Workspace

	fyneApp := app.NewWithID("gowhiteboard")
	w := fyneApp.NewWindow("Whiteboard")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1200), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	vp := wcanvas.NewViewport(o.Limits)
	board := NewBoardCanvas(ws, vp, o.Anchor)
	status := widget.NewLabel("")
	toast := newToaster(status)

	fail := func(op string, err error) {
		l.Error(op+" failed", "err", err)
		toast.show(fmt.Sprintf("%s: %v", op, err))
	}
	board.OnError = func(err error) { fail("move", err) }

	var infos []domain.BoardInfo
	boardList := widget.NewList(
		func() int { return len(infos) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(infos[i].Name)
		},
	)
	syncing := false
	refresh := func() {
		infos = ws.Boards()
		syncing = true
		for i, bi := range infos {
			if bi.ID == ws.ActiveID() {
				boardList.Select(i)
			}
		}
		syncing = false
		boardList.Refresh()
		board.Refresh()
		toast.idle(statusLine(ws, vp))
	}
	boardList.OnSelected = func(i widget.ListItemID) {
		if syncing || i >= len(infos) || infos[i].ID == ws.ActiveID() {
			return
		}
		if err := ws.SelectBoard(infos[i].ID); err != nil {
			fail("select board", err)
		}
	}
	unsub := ws.Bus().SubscribeAll(func(event.Event) { fyne.Do(refresh) })
	defer unsub()

	editText := func(ref domain.Ref) {
		e, ok := ws.SelectedElement()
		if !ok || e.ElementID() != ref.ID {
			return
		}
		entry := widget.NewMultiLineEntry()
		entry.SetText(e.ElementText())
		dialog.ShowForm("Edit text", "Save", "Cancel", []*widget.FormItem{widget.NewFormItem("Text", entry)}, func(ok bool) {
			if !ok {
				return
			}
			if err := ws.UpdateElement(ref.Kind, ref.ID, domain.SetText(entry.Text)); err != nil {
				fail("edit", err)
			}
		}, w)
	}
	board.OnEdit = editText

	disp := &keys.Dispatcher{Workspace: ws, Viewport: vp, OnHelp: func() {
		var b strings.Builder
		for _, kb := range keys.Bindings {
			fmt.Fprintf(&b, "%-12s %s\n", strings.Join(kb.Keys, " / "), kb.Help)
		}
		dialog.ShowInformation("Keyboard shortcuts", b.String(), w)
	}}
	press := func(key string) {
		res, err := disp.Handle(key, w.Canvas().Focused() != nil)
		if err != nil {
			fail(res.Action.String(), err)
			return
		}
		switch res.Action {
		case keys.None:
			return
		case keys.NewNote, keys.NewNode, keys.NewTextBox:
			ws.SelectElement(res.Ref.ID)
		}
		refresh()
	}
	w.Canvas().SetOnTypedRune(func(r rune) { press(string(r)) })
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyEscape:
			press(string(ev.Name))
		case fyne.KeyReturn:
			if e, ok := ws.SelectedElement(); ok && w.Canvas().Focused() == nil {
				editText(domain.Ref{Kind: e.ElementKind(), ID: e.ElementID()})
			}
		}
	})

	undo := func() {
		if err := ws.Undo(); err != nil {
			toast.show(err.Error())
		}
	}
	redo := func() {
		if err := ws.Redo(); err != nil {
			toast.show(err.Error())
		}
	}
	save := func() {
		if o.Repo == nil {
			toast.show("no storage configured")
			return
		}
		b, ok := ws.ActiveBoard()
		if !ok {
			fail("save", workspace.ErrNoActiveBoard)
			return
		}
		go func() {
			err := o.Repo.Save(ctx, b)
			fyne.Do(func() {
				if err != nil {
					fail("save", err)
					return
				}
				toast.show("saved " + b.Name)
			})
		}()
	}
	exportBoard := func() {
		b, ok := ws.ActiveBoard()
		if !ok {
			fail("export", workspace.ErrNoActiveBoard)
			return
		}
		fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil || uc == nil {
				return
			}
			path := uc.URI().Path()
			_ = uc.Close()
			f, ferr := export.FormatFromPath(path)
			if ferr != nil {
				fail("export", ferr)
				return
			}
			opt := export.DefaultOptions()
			opt.Title = b.Name
			opt.Anchor = board.anchor
			if err := export.ExportFile(path, f, b, opt); err != nil {
				fail("export", err)
				return
			}
			toast.show("exported " + path)
		}, w)
		fd.SetFileName(b.ID + ".svg")
		fd.Show()
	}
	newBoard := func() {
		name := widget.NewEntry()
		var names []string
		for _, t := range workspace.Templates() {
			names = append(names, string(t))
		}
		tmpl := widget.NewSelect(names, nil)
		tmpl.SetSelected(string(workspace.Blank))
		dialog.ShowForm("New board", "Create", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Name", name),
			widget.NewFormItem("Template", tmpl),
		}, func(ok bool) {
			if !ok {
				return
			}
			t, err := workspace.ParseTemplate(tmpl.Selected)
			if err != nil {
				fail("new board", err)
				return
			}
			if _, err := ws.CreateBoard(t, name.Text); err != nil {
				fail("new board", err)
			}
		}, w)
	}
	add := func(k domain.Kind) func() {
		return func() {
			el, err := ws.AddElement(k, "")
			if err != nil {
				fail("add "+string(k), err)
				return
			}
			ws.SelectElement(el.ElementID())
		}
	}
	zoom := func(f func()) func() { return func() { f(); refresh() } }

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderNewIcon(), newBoard),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), save),
		widget.NewToolbarAction(theme.DownloadIcon(), exportBoard),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentAddIcon(), add(domain.KindNote)),
		widget.NewToolbarAction(theme.RadioButtonIcon(), add(domain.KindNode)),
		widget.NewToolbarAction(theme.DocumentCreateIcon(), add(domain.KindTextBox)),
		widget.NewToolbarAction(theme.ColorPaletteIcon(), func() {
			e, ok := ws.SelectedElement()
			if !ok {
				toast.show("nothing selected")
				return
			}
			next, ok := domain.NextColor(e)
			if !ok {
				toast.show("text boxes have no color")
				return
			}
			if err := ws.UpdateElement(e.ElementKind(), e.ElementID(), domain.SetColor(next)); err != nil {
				fail("color", err)
			}
		}),
		widget.NewToolbarAction(theme.DeleteIcon(), func() { press("delete") }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), undo),
		widget.NewToolbarAction(theme.ContentRedoIcon(), redo),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomInIcon(), zoom(vp.ZoomIn)),
		widget.NewToolbarAction(theme.ZoomOutIcon(), zoom(vp.ZoomOut)),
		widget.NewToolbarAction(theme.ZoomFitIcon(), zoom(vp.ResetZoom)),
		widget.NewToolbarSpacer(),
		widget.NewToolbarAction(theme.HelpIcon(), func() { press("?") }),
	)

	mod := fyne.KeyModifierShortcutDefault
	shortcut := func(k fyne.KeyName, m fyne.KeyModifier, f func()) {
		w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: k, Modifier: m}, func(fyne.Shortcut) { f() })
	}
	shortcut(fyne.KeyZ, mod, undo)
	shortcut(fyne.KeyZ, mod|fyne.KeyModifierShift, redo)
	shortcut(fyne.KeyY, mod, redo)
	shortcut(fyne.KeyS, mod, save)
	shortcut(fyne.KeyE, mod, exportBoard)

	w.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File",
			fyne.NewMenuItem("New Board…", newBoard),
			fyne.NewMenuItem("Save", save),
			fyne.NewMenuItem("Export…", exportBoard),
		),
		fyne.NewMenu("Edit",
			fyne.NewMenuItem("Undo", undo),
			fyne.NewMenuItem("Redo", redo),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Prune Dangling Connections", func() {
				n, err := ws.PruneDanglingConnections()
				if err != nil {
					fail("prune", err)
					return
				}
				toast.show(fmt.Sprintf("removed %d dangling connections", n))
			}),
		),
	))

	split := container.NewHSplit(boardList, board)
	split.Offset = 0.18
	w.SetContent(container.NewBorder(toolbar, status, nil, nil, split))

	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})
	go func() {
		<-ctx.Done()
		fyne.Do(fyneApp.Quit)
	}()

	if ws.ActiveID() == "" && len(ws.Boards()) == 0 {
		if _, err := ws.CreateBoard(workspace.Blank, ""); err != nil {
			return err
		}
	}
	refresh()
	w.ShowAndRun()

	if o.Repo == nil {
		return nil
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return storage.SaveAll(saveCtx, o.Repo, ws.All())
}

// statusLine is the idle text: board name, element count, zoom and selection.
func statusLine(ws *workspace.Workspace, vp *wcanvas.Viewport) string {
	b, ok := ws.ActiveBoard()
	if !ok {
		return "no board"
	}
	s := fmt.Sprintf("%s · %d elements · %d%%", b.Name, b.Elements.Len(), int(vp.Zoom*100+0.5))
	if id := ws.SelectedID(); id != "" {
		s += " · selected " + id
	}
	return s
}

// toaster shows a transient message in the status label, falling back to
// the idle text once it expires.
type toaster struct {
	label *widget.Label

	mu    sync.Mutex
	timer *time.Timer
	msg   string
	base  string
}

func newToaster(l *widget.Label) *toaster { return &toaster{label: l} }

func (t *toaster) show(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msg = msg
	t.label.SetText(msg)
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(toastFor, func() {
		fyne.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.msg = ""
			t.label.SetText(t.base)
		})
	})
}

func (t *toaster) idle(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = s
	if t.msg == "" {
		t.label.SetText(s)
	}
}
