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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gowhiteboard/internal/config"
	"gowhiteboard/internal/crash"
	"gowhiteboard/internal/domain"
	applog "gowhiteboard/internal/log"
	"gowhiteboard/internal/storage"
	"gowhiteboard/internal/telemetry"
	"gowhiteboard/internal/undo"
	"gowhiteboard/internal/workspace"
)

const telemetryFlush = 500 * time.Millisecond

// app holds what every subcommand shares. It is filled in by setup, which
// runs before any command that touches boards.
type app struct {
	out    io.Writer
	errOut io.Writer

	cfg        config.AppConfig
	cfgPath    string
	pgPassword string

	log   *slog.Logger
	repo  storage.Repository
	ws    *workspace.Workspace
	tel   *telemetry.Client
	unsub func()

	// quietConsole keeps log records off the terminal while a full-screen UI runs.
	quietConsole bool
}

// loadConfig reads the config file and initializes logging from it. A
// malformed file is reported and defaults plus env overrides are used.
func (a *app) loadConfig() {
	cfg, pw, err := config.Load()
	if err != nil {
		fmt.Fprintln(a.errOut, "warning:", err)
	}
	a.cfg, a.pgPassword = cfg, pw
	if p, perr := config.ConfigPath(); perr == nil {
		a.cfgPath = p
	}
	a.initLogging(cfg)
}

func (a *app) initLogging(cfg config.AppConfig) {
	opts := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Console:   a.errOut,
	}
	if a.quietConsole {
		opts.Console = io.Discard
	}
	applog.Init(opts)
	a.log = applog.WithComponent("cli")
}

// setup opens storage and builds the workspace.
func (a *app) setup(ctx context.Context) error {
	a.loadConfig()
	dsn := a.cfg.Storage.PostgresDSN
	if a.cfg.Storage.Driver == storage.DriverPostgres {
		var err error
		if dsn, err = config.PostgresURL(dsn, a.pgPassword); err != nil {
			return err
		}
	}
	repo, err := storage.Open(ctx, storage.Options{
		Driver:  a.cfg.Storage.Driver,
		Dir:     a.cfg.Storage.Dir,
		DSN:     dsn,
		Backups: a.cfg.Storage.Backups,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.repo = repo

	place, tb := a.cfg.Canvas.Placement(), a.cfg.Canvas.TextBox()
	a.ws = workspace.New(workspace.Options{
		History:   undo.NewManager(a.cfg.History.Undo()),
		Placement: &place,
		TextBox:   &tb,
		Logger:    applog.WithComponent("workspace"),
	})

	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || a.cfg.General.TelemetryOptIn
	a.tel = telemetry.New(tcfg)
	telemetry.SetDefault(a.tel)
	a.unsub = a.tel.Forward(a.ws.Bus())

	a.log.Debug("ready", "driver", a.cfg.Storage.Driver, "dir", a.cfg.Storage.Dir)
	return nil
}

// close releases everything setup acquired. It is safe to call on a partly
// initialized app.
func (a *app) close() {
	if a.unsub != nil {
		a.unsub()
		a.unsub = nil
	}
	if a.tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryFlush)
		a.tel.Flush(ctx)
		cancel()
		telemetry.SetDefault(nil)
		a.tel.Close()
		a.tel = nil
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil && a.log != nil {
			a.log.Warn("close storage", "err", err)
		}
		a.repo = nil
	}
	_ = applog.Close()
}

// loadBoard reads one board and makes it the active workspace board.
func (a *app) loadBoard(ctx context.Context, id string) (domain.Board, error) {
	b, err := a.repo.Load(ctx, id)
	if err != nil {
		return domain.Board{}, err
	}
	if err := a.ws.Open(b); err != nil {
		return domain.Board{}, err
	}
	return b, nil
}

// loadAll opens every stored board. Boards that fail to load are logged and
// skipped; the most recently modified board ends up active.
func (a *app) loadAll(ctx context.Context) error {
	infos, err := a.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list boards: %w", err)
	}
	var latest domain.BoardInfo
	for _, bi := range infos {
		if _, err := a.loadBoard(ctx, bi.ID); err != nil {
			a.log.Warn("skip board", "board", bi.ID, "err", err)
			continue
		}
		if bi.LastModified.After(latest.LastModified) || latest.ID == "" {
			latest = bi
		}
	}
	if latest.ID != "" {
		return a.ws.SelectBoard(latest.ID)
	}
	return nil
}

// crashTarget autosaves the open boards through the repository. The file
// backend writes side snapshots so a half-broken board never replaces the
// last good copy.
func (a *app) crashTarget() *crash.Target {
	return &crash.Target{
		Boards: func() []domain.Board {
			if a.ws == nil {
				return nil
			}
			return a.ws.All()
		},
		Autosave: func(b domain.Board) (string, error) {
			if a.repo == nil {
				return "", errors.New("no storage")
			}
			if fs, ok := a.repo.(*storage.FileStore); ok {
				return fs.CrashSnapshot(b)
			}
			if err := a.repo.Save(context.Background(), b); err != nil {
				return "", err
			}
			return a.cfg.Storage.Driver + ":" + b.ID, nil
		},
	}
}

// historyFile is where the shell keeps readline history; "" disables it.
func (a *app) historyFile() string {
	if a.cfgPath == "" {
		return ""
	}
	dir := filepath.Dir(a.cfgPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "shell_history")
}
