package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is a catalog directory plus a snapshot database for one test.
type testEnv struct {
	t          *testing.T
	catalogDir string
	dbPath     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		t:          t,
		catalogDir: filepath.Join(dir, "catalog"),
		dbPath:     filepath.Join(dir, "loadout.db"),
	}
	env.write("models.yaml", `
- id: orchestrator
  display_name: Orchestrator
- id: debug
  display_name: Debugger
- id: test
  display_name: Tester
`)
	env.write("rules/orchestrator.yaml", `
- id: plan
  content: Plan before acting.
- id: delegate
  content: Delegate to specialists.
`)
	env.write("rules/debug.yaml", `
- id: trace
  content: Trace the failure.
- id: bisect
  content: Bisect history.
`)
	env.write("rules/test.yaml", `
- id: unit
  content: Write unit tests.
`)
	env.write("roles.yaml", `
- id: architect
  display_name: Architect
  content: You design systems.
- id: reviewer
  content: You review code.
`)
	env.write("commands.yaml", `
- id: lint
  content: Run the linter.
- id: build
  content: Build it.
`)
	env.write("hooks.yaml", `
before:
  content: echo start
`)
	return env
}

func (e *testEnv) write(name, content string) {
	e.t.Helper()
	path := filepath.Join(e.catalogDir, name)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o644))
}

// run executes the root command with the environment's catalog and
// database flags prepended.
func (e *testEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	full := append([]string{"--catalog", e.catalogDir, "--db", e.dbPath}, args...)
	return runRoot(full...)
}

// runJSON runs with --format json and decodes the response envelope.
func (e *testEnv) runJSON(args ...string) (jsonResponse, error) {
	e.t.Helper()
	stdout, _, err := e.run(append([]string{"--format", "json"}, args...)...)
	return decodeResponse(e.t, stdout), err
}

func decodeResponse(t *testing.T, stdout string) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), "stdout: %s", stdout)
	return resp
}

func runRoot(args ...string) (string, string, error) {
	cmd := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// jsonResponse mirrors CLIResponse with the payload left undecoded.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func (r jsonResponse) decode(t *testing.T, out any) {
	t.Helper()
	require.Equal(t, "ok", r.Status, "error: %+v", r.Error)
	require.NoError(t, json.Unmarshal(r.Data, out))
}
