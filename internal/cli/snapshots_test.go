package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadout/internal/ir"
	"github.com/roach88/loadout/internal/store"
)

// saveSnapshot composes and saves a selection, returning the record.
func (e *testEnv) saveSnapshot(name string, args ...string) store.Record {
	e.t.Helper()
	resp, err := e.runJSON(append([]string{"compose", "--save", name}, args...)...)
	require.NoError(e.t, err)
	var result ComposeResult
	resp.decode(e.t, &result)
	require.NotNil(e.t, result.Snapshot)
	return *result.Snapshot
}

func TestSnapshotsList(t *testing.T) {
	env := newTestEnv(t)
	first := env.saveSnapshot("first")
	second := env.saveSnapshot("second", "--model", "debug")

	resp, err := env.runJSON("snapshots", "list")
	require.NoError(t, err)
	var list []snapshotSummary
	resp.decode(t, &list)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, []string{"orchestrator", "debug"}, list[0].Models)
	assert.Equal(t, first.ID, list[1].ID)

	resp, err = env.runJSON("snapshots", "list", "--by-creation")
	require.NoError(t, err)
	resp.decode(t, &list)
	assert.Equal(t, first.ID, list[0].ID)

	stdout, _, err := env.run("snapshots", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "first")
	assert.Contains(t, stdout, "second")
}

func TestSnapshotsList_Empty(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run("snapshots", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No snapshots.")
}

func TestSnapshotsShow(t *testing.T) {
	env := newTestEnv(t)
	rec := env.saveSnapshot("show me", "--role", "reviewer")

	stdout, _, err := env.run("snapshots", "show", rec.ID)
	require.NoError(t, err)
	doc, err := ir.DecodeDocument([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, rec.Checksum, ir.MustDocumentHash(doc))

	resp, err := env.runJSON("snapshots", "show", rec.ID)
	require.NoError(t, err)
	var got store.Record
	resp.decode(t, &got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "show me", got.Name)
}

func TestSnapshotsShow_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON("snapshots", "show", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, string(store.CodeNotFound), resp.Error.Code)
}

func TestSnapshotsRename(t *testing.T) {
	env := newTestEnv(t)
	rec := env.saveSnapshot("old")

	resp, err := env.runJSON("snapshots", "rename", rec.ID, "new")
	require.NoError(t, err)
	var got snapshotSummary
	resp.decode(t, &got)
	assert.Equal(t, "new", got.Name)

	resp, err = env.runJSON("snapshots", "rename", rec.ID, "   ")
	require.Error(t, err)
	assert.Equal(t, string(store.CodeInvalidArgument), resp.Error.Code)
}

func TestSnapshotsDeleteAndRestore(t *testing.T) {
	env := newTestEnv(t)
	rec := env.saveSnapshot("keep me")

	stdout, _, err := env.run("snapshots", "delete", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Deleted "+rec.ID)

	resp, err := env.runJSON("snapshots", "delete", rec.ID)
	require.NoError(t, err)
	var deleted map[string]any
	resp.decode(t, &deleted)
	assert.Equal(t, false, deleted["deleted"])

	resp, err = env.runJSON("snapshots", "restore")
	require.NoError(t, err)
	var stats store.Stats
	resp.decode(t, &stats)
	assert.Equal(t, 1, stats.TotalConfigs)

	resp, err = env.runJSON("snapshots", "show", rec.ID)
	require.NoError(t, err)
	var got store.Record
	resp.decode(t, &got)
	assert.Equal(t, "keep me", got.Name)
}

func TestSnapshotsRestore_NoBackup(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON("snapshots", "restore")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, string(store.CodeNoBackup), resp.Error.Code)
}

func TestSnapshotsExportImport(t *testing.T) {
	env := newTestEnv(t)
	rec := env.saveSnapshot("portable", "--model", "debug", "--rule", "debug:trace", "--command", "lint")
	dir := t.TempDir()

	resp, err := env.runJSON("snapshots", "export", rec.ID, "--dir", dir)
	require.NoError(t, err)
	var exported map[string]string
	resp.decode(t, &exported)
	path := exported["path"]
	assert.Equal(t, dir, filepath.Dir(path))

	resp, err = env.runJSON("snapshots", "import", path)
	require.NoError(t, err)
	var imported snapshotSummary
	resp.decode(t, &imported)
	assert.NotEqual(t, rec.ID, imported.ID)
	assert.Equal(t, store.ImportName(path), imported.Name)
	assert.Equal(t, []string{"orchestrator", "debug"}, imported.Models)

	resp, err = env.runJSON("snapshots", "show", imported.ID)
	require.NoError(t, err)
	var got store.Record
	resp.decode(t, &got)
	assert.Equal(t, rec.Checksum, got.Checksum)

	resp, err = env.runJSON("snapshots", "import", path, "--name", "renamed")
	require.NoError(t, err)
	resp.decode(t, &imported)
	assert.Equal(t, "renamed", imported.Name)
}

func TestSnapshotsImport_Invalid(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rules": {}}`), 0o644))

	resp, err := env.runJSON("snapshots", "import", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, string(store.CodeInvalidFormat), resp.Error.Code)
}

func TestSnapshotsImport_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON("snapshots", "import", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeInvalidInput, resp.Error.Code)
}

func TestSnapshotsStats(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON("snapshots", "stats")
	require.NoError(t, err)
	var stats store.Stats
	resp.decode(t, &stats)
	assert.Zero(t, stats.TotalConfigs)
	assert.Nil(t, stats.LastBackup)

	rec := env.saveSnapshot("sized")

	resp, err = env.runJSON("snapshots", "stats")
	require.NoError(t, err)
	resp.decode(t, &stats)
	assert.Equal(t, 1, stats.TotalConfigs)
	assert.Equal(t, rec.Size, stats.TotalSize)
	assert.NotNil(t, stats.LastBackup)

	stdout, _, err := env.run("snapshots", "stats")
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(stdout), "SNAPSHOTS")
}

func TestSnapshotsLoad(t *testing.T) {
	env := newTestEnv(t)
	rec := env.saveSnapshot("full",
		"--model", "debug",
		"--rule", "debug:trace",
		"--role", "architect",
		"--command", "lint",
	)

	resp, err := env.runJSON("snapshots", "load", rec.ID)
	require.NoError(t, err)
	var result LoadResult
	resp.decode(t, &result)
	assert.True(t, result.Missing.Empty())
	assert.Equal(t, rec.Checksum, ir.MustDocumentHash(result.Document))
}

func TestSnapshotsLoad_ReportsMissing(t *testing.T) {
	env := newTestEnv(t)
	rec := env.saveSnapshot("stale", "--model", "debug", "--rule", "debug:trace", "--command", "build")

	env.write("rules/debug.yaml", `
- id: bisect
  content: Bisect history.
`)
	env.write("commands.yaml", `
- id: lint
  content: Run the linter.
`)

	resp, err := env.runJSON("snapshots", "load", rec.ID)
	require.NoError(t, err)
	var result LoadResult
	resp.decode(t, &result)
	assert.Equal(t, []string{"debug/trace"}, result.Missing.Rules)
	assert.Equal(t, []string{"build"}, result.Missing.Commands)
	assert.Equal(t, []string{"orchestrator", "debug"}, result.Document.ModelIDs())
	assert.NotContains(t, result.Document.Rules, "debug")

	_, stderr, err := env.run("snapshots", "load", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, stderr, "rule debug/trace")
	assert.Contains(t, stderr, "command build")
}

func TestSnapshotsLoad_RuleFetchFailure(t *testing.T) {
	env := newTestEnv(t)
	rec := env.saveSnapshot("debugging", "--model", "debug", "--rule", "debug:trace")

	env.write("rules/debug.yaml", "not: [valid")

	resp, err := env.runJSON("snapshots", "load", rec.ID)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FETCH_FAILURE", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, `"debug"`)
}
