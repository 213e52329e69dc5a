/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ui is the desktop whiteboard built on Fyne. The real window is only
// compiled with -tags fyne (and cgo); other builds get a stub Run that explains
// how to enable it, so headless builds and CI need no OpenGL.
package ui

import (
	"log/slog"

	"gowhiteboard/internal/canvas"
	"gowhiteboard/internal/storage"
	"gowhiteboard/internal/vector"
	"gowhiteboard/internal/workspace"
)

// Options wires the desktop window. Workspace is required; Repo enables the
// save and open actions.
type Options struct {
	Workspace *workspace.Workspace
	Repo      storage.Repository
	Limits    canvas.Limits
	Anchor    vector.Pt
	Logger    *slog.Logger
}
