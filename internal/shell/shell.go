/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package shell is a line-oriented REPL over the workspace. It exposes every
// board and element operation as a command so boards can be edited or
// scripted without a canvas.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gowhiteboard/internal/canvas"
	"gowhiteboard/internal/keys"
	applog "gowhiteboard/internal/log"
	"gowhiteboard/internal/storage"
	"gowhiteboard/internal/vector"
	"gowhiteboard/internal/workspace"

	"github.com/chzyer/readline"
)

// ErrExit is returned by Exec for the exit and quit commands.
var ErrExit = errors.New("exit requested")

// LineReader is the part of *readline.Instance the loop needs.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(string)
}

// Options wires a Shell. Workspace is required.
type Options struct {
	Workspace *workspace.Workspace
	Repo      storage.Repository
	Out       io.Writer
	Limits    canvas.Limits
	Anchor    vector.Pt
	Logger    *slog.Logger
}

// Shell executes commands against a workspace.
type Shell struct {
	ws     *workspace.Workspace
	repo   storage.Repository
	out    io.Writer
	vp     *canvas.Viewport
	disp   keys.Dispatcher
	anchor vector.Pt
	log    *slog.Logger
}

func New(o Options) *Shell {
	s := &Shell{ws: o.Workspace, repo: o.Repo, out: o.Out, anchor: o.Anchor, log: o.Logger}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.anchor == (vector.Pt{}) {
		s.anchor = canvas.DefaultAnchorOffset
	}
	if s.log == nil {
		s.log = applog.WithComponent("shell")
	}
	s.vp = canvas.NewViewport(o.Limits)
	s.disp = keys.Dispatcher{Workspace: s.ws, Viewport: s.vp, OnHelp: func() { s.printKeys() }}
	return s
}

// Prompt shows the active board name.
func (s *Shell) Prompt() string {
	if b, ok := s.ws.ActiveBoard(); ok {
		return fmt.Sprintf("%s> ", b.Name)
	}
	return "whiteboard> "
}

// Exec runs one command line. Blank lines and # comments do nothing.
func (s *Shell) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	args := ParseArgs(line)
	if len(args) == 0 {
		return nil
	}
	c, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s (try help)", args[0])
	}
	if len(args)-1 < c.minArgs {
		return fmt.Errorf("usage: %s", c.usage)
	}
	s.log.Debug("exec", slog.String("cmd", args[0]), slog.Int("args", len(args)-1))
	return c.run(ctx, s, args[1:])
}

// Run reads lines from rl until EOF or exit. Command errors are printed and
// the loop continues; an interrupt only prints a hint.
func (s *Shell) Run(ctx context.Context, rl LineReader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rl.SetPrompt(s.Prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			fmt.Fprintln(s.out, "Use 'exit' or 'quit' to leave the shell.")
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.Exec(ctx, line); err != nil {
			if errors.Is(err, ErrExit) {
				return nil
			}
			s.log.Debug("command failed", slog.Any("err", err))
			fmt.Fprintln(s.out, "error:", err)
		}
	}
}

// Start runs an interactive session on the terminal. historyFile may be empty.
func Start(ctx context.Context, o Options, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "whiteboard> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()
	if o.Out == nil {
		o.Out = rl.Stdout()
	}
	return New(o).Run(ctx, rl)
}

// ExecScript runs every line of r, stopping at the first failing command.
func (s *Shell) ExecScript(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	for i, line := range strings.Split(string(data), "\n") {
		if err := s.Exec(ctx, line); err != nil {
			if errors.Is(err, ErrExit) {
				return nil
			}
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}

// ParseArgs splits on spaces; double quotes group words.
func ParseArgs(input string) []string {
	var args []string
	var cur strings.Builder
	inQuotes, quoted := false, false
	flush := func() {
		if cur.Len() > 0 || quoted {
			args = append(args, cur.String())
		}
		cur.Reset()
		quoted = false
	}
	for _, r := range input {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			quoted = true
		case (r == ' ' || r == '\t') && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return args
}

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, name := range commandNames() {
		var sub []readline.PrefixCompleterInterface
		for _, a := range commands[name].complete {
			sub = append(sub, readline.PcItem(a))
		}
		items = append(items, readline.PcItem(name, sub...))
	}
	return readline.NewPrefixCompleter(items...)
}
