/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Command gowhiteboard manages whiteboards: sticky notes, text boxes and
// mind-map nodes on a pannable, zoomable canvas. Boards are stored by the
// configured backend and can be edited in a shell, a terminal UI or, when
// built with -tags fyne, a desktop window.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gowhiteboard/internal/crash"
)

func main() {
	a := &app{out: os.Stdout, errOut: os.Stderr}
	defer crash.Recover(a.crashTarget())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
