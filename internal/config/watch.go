/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "gowhiteboard/internal/log"
)

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	w        *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func(AppConfig, error)
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

// Watch starts watching path. The parent directory is watched rather than
// the file so editors that save by rename are picked up. onChange runs on the
// watcher goroutine with the reloaded config or the load error.
func Watch(ctx context.Context, path string, onChange func(AppConfig, error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	cw := &Watcher{
		w:        fw,
		path:     filepath.Clean(path),
		debounce: 150 * time.Millisecond,
		onChange: onChange,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go cw.run(ctx)
	return cw, nil
}

func (cw *Watcher) run(ctx context.Context) {
	defer close(cw.done)
	l := applog.WithComponent("config")
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Saves often arrive as several events; reload once they settle.
			timer.Reset(cw.debounce)
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			l.Warn("config watch error", "err", err)
		case <-timer.C:
			cfg, err := LoadFrom(cw.path)
			if err != nil {
				l.Warn("config reload failed", "path", cw.path, "err", err)
			} else {
				l.Info("config reloaded", "path", cw.path)
			}
			if cw.onChange != nil {
				cw.onChange(cfg, err)
			}
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (cw *Watcher) Close() error {
	var err error
	cw.once.Do(func() {
		cw.cancel()
		<-cw.done
		err = cw.w.Close()
	})
	return err
}
