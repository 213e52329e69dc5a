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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gowhiteboard/internal/config"
	"gowhiteboard/internal/domain"
	applog "gowhiteboard/internal/log"
	"gowhiteboard/internal/shell"
	"gowhiteboard/internal/storage"
	"gowhiteboard/internal/tui"
	"gowhiteboard/internal/ui"
)

// storedBoards loads every board in storage, in List order.
func storedBoards(ctx context.Context, r storage.Repository) ([]domain.Board, error) {
	infos, err := r.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	boards := make([]domain.Board, 0, len(infos))
	for _, bi := range infos {
		b, err := r.Load(ctx, bi.ID)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", bi.ID, err)
		}
		boards = append(boards, b)
	}
	return boards, nil
}

// watchConfig re-applies the logging section when the config file changes
// while an interactive session runs. Canvas settings take effect on restart.
func (a *app) watchConfig(ctx context.Context) func() {
	if a.cfgPath == "" {
		return func() {}
	}
	w, err := config.Watch(ctx, a.cfgPath, func(cfg config.AppConfig, err error) {
		if err != nil {
			a.log.Warn("config reload failed", "err", err)
			return
		}
		a.initLogging(cfg)
		a.log.Info("config reloaded", "path", a.cfgPath)
	})
	if err != nil {
		a.log.Debug("config watch unavailable", "err", err)
		return func() {}
	}
	return func() { _ = w.Close() }
}

// session loads all stored boards for an interactive front end. When storage
// is empty a blank board is created so there is something to draw on.
func (a *app) session(ctx context.Context, boardID string) error {
	if err := a.loadAll(ctx); err != nil {
		return err
	}
	if boardID != "" {
		return a.ws.SelectBoard(boardID)
	}
	if a.ws.ActiveID() == "" {
		_, err := a.ws.CreateBoard("", "")
		return err
	}
	return nil
}

func shellCmd(a *app) *cobra.Command {
	var script string
	c := &cobra.Command{
		Use:   "shell [board-id]",
		Short: "Interactive command shell",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.session(ctx, firstArg(args)); err != nil {
				return err
			}
			o := shell.Options{
				Workspace: a.ws,
				Repo:      a.repo,
				Out:       cmd.OutOrStdout(),
				Limits:    a.cfg.Canvas.Limits(),
				Anchor:    a.cfg.Canvas.Anchor(),
				Logger:    applog.WithComponent("shell"),
			}
			if script != "" {
				f, err := os.Open(script)
				if err != nil {
					return err
				}
				defer f.Close()
				return shell.New(o).ExecScript(ctx, f)
			}
			defer a.watchConfig(ctx)()
			o.Out = nil
			return shell.Start(ctx, o, a.historyFile())
		},
	}
	c.Flags().StringVar(&script, "script", "", "run commands from a file instead of a prompt")
	return withStorage(c)
}

func tuiCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "tui [board-id]",
		Short: "Full-screen terminal whiteboard",
		Args:  cobra.MaximumNArgs(1),
		PreRun: func(*cobra.Command, []string) {
			// the log console would draw over the screen
			a.quietConsole = true
			a.initLogging(a.cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.session(ctx, firstArg(args)); err != nil {
				return err
			}
			defer a.watchConfig(ctx)()
			return tui.Run(ctx, tui.Options{
				Workspace: a.ws,
				Repo:      a.repo,
				Limits:    a.cfg.Canvas.Limits(),
				Anchor:    a.cfg.Canvas.Anchor(),
				Toast:     a.cfg.Canvas.Toast(),
				Logger:    applog.WithComponent("tui"),
			})
		},
	}
	return withStorage(c)
}

func uiCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "ui [board-id]",
		Short: "Desktop whiteboard (build with -tags fyne)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.session(ctx, firstArg(args)); err != nil {
				return err
			}
			defer a.watchConfig(ctx)()
			return ui.Run(ctx, ui.Options{
				Workspace: a.ws,
				Repo:      a.repo,
				Limits:    a.cfg.Canvas.Limits(),
				Anchor:    a.cfg.Canvas.Anchor(),
				Logger:    applog.WithComponent("ui"),
			})
		},
	}
	return withStorage(c)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
