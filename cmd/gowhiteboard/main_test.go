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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"gowhiteboard/internal/config"
	"gowhiteboard/internal/ids"
	"gowhiteboard/internal/storage"
	"gowhiteboard/internal/workspace"
)

// testEnv points config and storage at a temp dir, switches to sequential
// ids and returns the storage dir.
func testEnv(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	prev := ids.SetDefault(ids.NewSequence("gwb-"))
	t.Cleanup(func() { ids.SetDefault(prev) })
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	t.Setenv(config.EnvStorageDriver, "file")
	t.Setenv(config.EnvStorageDir, filepath.Join(dir, "boards"))
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvTelemetryOptIn, "")
	return filepath.Join(dir, "boards")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &app{out: &out, errOut: &errOut}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	a.close()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, "gowhiteboard %s", strings.Join(args, " "))
	return out
}

// newBoard creates a board and returns its id.
func newBoard(t *testing.T, args ...string) string {
	t.Helper()
	out := mustRun(t, append([]string{"new"}, args...)...)
	id, _, ok := strings.Cut(strings.TrimSpace(out), "\t")
	require.True(t, ok, "unexpected output %q", out)
	return id
}

func TestVersion(t *testing.T) {
	testEnv(t)
	out := mustRun(t, "version")
	assert.Contains(t, out, "gowhiteboard ")
}

func TestNewListShow(t *testing.T) {
	testEnv(t)
	id := newBoard(t, "--template", "brainstorm", "Q3 ideas")
	assert.Equal(t, "gwb-1", id)

	out := mustRun(t, "list")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Q3 ideas")

	out = mustRun(t, "show", id)
	assert.Contains(t, out, "Idea 1")
	assert.Contains(t, out, "note")

	out = mustRun(t, "show", "--json", id)
	b, err := storage.DecodeBoard([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "Q3 ideas", b.Name)
	assert.Len(t, b.Elements.Notes, 4)
}

func TestListEmpty(t *testing.T) {
	testEnv(t)
	assert.Contains(t, mustRun(t, "list"), "no boards")
}

func TestNewUnknownTemplate(t *testing.T) {
	testEnv(t)
	_, err := runCLI(t, "new", "--template", "kanban", "x")
	assert.ErrorIs(t, err, workspace.ErrUnknownTemplate)
}

func TestRenameAndDelete(t *testing.T) {
	testEnv(t)
	id := newBoard(t, "Draft")
	mustRun(t, "rename", id, "Final")
	assert.Contains(t, mustRun(t, "list"), "Final")

	mustRun(t, "rm", id)
	_, err := runCLI(t, "show", id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSearch(t *testing.T) {
	testEnv(t)
	ideas := newBoard(t, "-t", "brainstorm", "Ideas")
	newBoard(t, "-t", "mindmap", "Map")

	out := mustRun(t, "search", "--board", ideas, "Idea")
	assert.Contains(t, out, "[Idea]")
	assert.NotContains(t, out, "Map")

	out = mustRun(t, "search", "--kind", "node", "Central")
	assert.Contains(t, out, "Central")

	assert.Contains(t, mustRun(t, "search", "zebra"), "no matches")

	_, err := runCLI(t, "search", "--kind", "sticker", "x")
	assert.Error(t, err)
}

func TestExportSingle(t *testing.T) {
	testEnv(t)
	id := newBoard(t, "-t", "mindmap", "Map")
	dir := t.TempDir()

	svg := filepath.Join(dir, "map.svg")
	mustRun(t, "export", id, "-o", svg)
	data, err := os.ReadFile(svg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")

	pdf := filepath.Join(dir, "map.out")
	mustRun(t, "export", id, "-o", pdf, "--format", "pdf")
	data, err = os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, err = runCLI(t, "export", id, "-o", filepath.Join(dir, "map.gif"))
	assert.Error(t, err)
}

func TestExportJSONAndImport(t *testing.T) {
	testEnv(t)
	id := newBoard(t, "-t", "brainstorm", "Portable")
	doc := filepath.Join(t.TempDir(), "portable.json")
	mustRun(t, "export", id, "-o", doc)

	// a second, empty store
	testEnv(t)
	out := mustRun(t, "import", doc)
	assert.Contains(t, out, "imported "+id)
	assert.Contains(t, mustRun(t, "show", id), "Idea 4")
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	testEnv(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"id": 7}`), 0o644))
	_, err := runCLI(t, "import", bad)
	assert.Error(t, err)
}

func TestExportAll(t *testing.T) {
	testEnv(t)
	a := newBoard(t, "A")
	b := newBoard(t, "-t", "mindmap", "B")
	out := t.TempDir()
	got := mustRun(t, "export", "--all", "--preset", "web", "-o", out)
	for _, id := range []string{a, b} {
		for _, f := range []string{"svg", "png"} {
			p := filepath.Join(out, f, id+"."+f)
			assert.Contains(t, got, p)
			assert.FileExists(t, p)
		}
	}

	_, err := runCLI(t, "export", "--all", a)
	assert.Error(t, err, "--all takes no board id")
}

func TestShellScript(t *testing.T) {
	testEnv(t)
	script := filepath.Join(t.TempDir(), "setup.wb")
	require.NoError(t, os.WriteFile(script, []byte("# build a map\nnew mindmap Roadmap\nadd node\nsave all\n"), 0o644))
	mustRun(t, "shell", "--script", script)

	out := mustRun(t, "list")
	assert.Contains(t, out, "Roadmap")
}

func TestShellScriptReportsLine(t *testing.T) {
	testEnv(t)
	script := filepath.Join(t.TempDir(), "bad.wb")
	require.NoError(t, os.WriteFile(script, []byte("boards\nfrobnicate\n"), 0o644))
	_, err := runCLI(t, "shell", "--script", script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestConfigShowAndInit(t *testing.T) {
	testEnv(t)
	out := mustRun(t, "config", "show")
	assert.Contains(t, out, "canvas:")
	assert.Contains(t, out, "# storage.dir overridden by "+config.EnvStorageDir)

	p := strings.TrimSpace(mustRun(t, "config", "path"))
	assert.Equal(t, os.Getenv(config.EnvConfigPath), p)

	mustRun(t, "config", "init")
	assert.FileExists(t, p)
	_, err := runCLI(t, "config", "init")
	assert.Error(t, err, "init must not overwrite")
}

func TestConfigPasswordRoundTrip(t *testing.T) {
	testEnv(t)
	var out bytes.Buffer
	a := &app{out: &out, errOut: &out}
	root := newRootCmd(a)
	root.SetIn(strings.NewReader("hunter2\n"))
	root.SetArgs([]string{"config", "set-password"})
	require.NoError(t, root.Execute())
	a.close()

	_, pw, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	mustRun(t, "config", "forget-password")
	_, pw, err = config.Load()
	require.NoError(t, err)
	assert.Empty(t, pw)
}

func TestUIWithoutFyneTag(t *testing.T) {
	testEnv(t)
	_, err := runCLI(t, "ui")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-tags fyne")
}

func TestCrashTargetUsesFileSnapshots(t *testing.T) {
	dir := testEnv(t)
	var out bytes.Buffer
	a := &app{out: &out, errOut: &out}
	require.NoError(t, a.setup(context.Background()))
	defer a.close()
	b, err := a.ws.CreateBoard(workspace.Brainstorm, "Unsaved")
	require.NoError(t, err)

	target := a.crashTarget()
	require.Len(t, target.Boards(), 1)
	path, err := target.Autosave(b)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir), "snapshot %s outside %s", path, dir)
	assert.FileExists(t, path)
}
