/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-board undo/redo history as opaque snapshots of the
// state before each change.
package undo

import (
	"sync"
	"time"
)

// Snapshot is a serialized board state. Blob content is opaque to the manager;
// size is estimated as len(Blob). Label names the operation that was about to
// run when the snapshot was taken.
type Snapshot struct {
	Board string
	Label string
	Blob  []byte
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int `yaml:"maxBytes"`
	// MaxPerBoard limits the undo depth per board (0 means unlimited).
	MaxPerBoard int `yaml:"maxPerBoard"`
	// MinInterval merges snapshots with the same label taken within the
	// interval, so a drag made of many moves undoes in one step.
	MinInterval time.Duration `yaml:"minInterval"`
}

// Manager provides an in-memory undo/redo stack per board.
// It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-board stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting over both stacks
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// Push records the state before a change. If the previous snapshot for the
// board has the same label and is younger than MinInterval, the older blob is
// kept and only its timestamp advances. Any push clears the board's redo stack.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked(s.Board)
	stack := m.undo[s.Board]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 {
		last := &stack[n-1]
		if last.Label == s.Label && s.Label != "" && s.TS.Sub(last.TS) < m.cfg.MinInterval {
			last.TS = s.TS
			return
		}
	}
	m.undo[s.Board] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.Board)
}

// Undo pops the newest snapshot for board and saves current on the redo
// stack. The caller restores the returned state.
func (m *Manager) Undo(board string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[board]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[board] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[board] = append(m.redo[board], Snapshot{Board: board, Label: s.Label, Blob: current, TS: s.TS})
	m.totalBytes += len(current)
	return s, true
}

// Redo is the mirror of Undo.
func (m *Manager) Redo(board string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[board]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[board] = r[:len(r)-1]
	m.totalBytes -= len(s.Blob)
	m.undo[board] = append(m.undo[board], Snapshot{Board: board, Label: s.Label, Blob: current, TS: s.TS})
	m.totalBytes += len(current)
	m.enforceCapsLocked(board)
	return s, true
}

// CanUndo and CanRedo report whether history exists for board.
func (m *Manager) CanUndo(board string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[board]) > 0
}

func (m *Manager) CanRedo(board string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[board]) > 0
}

// Clear drops all history for a board, e.g. after it was deleted.
func (m *Manager) Clear(board string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[board] {
		m.totalBytes -= len(s.Blob)
	}
	m.dropRedoLocked(board)
	delete(m.undo, board)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, boards int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	boards = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, boards, totalSnapshots
}

func (m *Manager) dropRedoLocked(board string) {
	for _, s := range m.redo[board] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.redo, board)
}

func (m *Manager) enforceCapsLocked(board string) {
	if m.cfg.MaxPerBoard > 0 {
		stack := m.undo[board]
		if len(stack) > m.cfg.MaxPerBoard {
			toDrop := len(stack) - m.cfg.MaxPerBoard
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[board] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune the oldest undo entry across all boards.
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldest := ""
		found := false
		var oldestTS time.Time
		for b, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest, oldestTS, found = b, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldest]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldest] = stack[1:]
		if len(m.undo[oldest]) == 0 {
			delete(m.undo, oldest)
		}
	}
}
