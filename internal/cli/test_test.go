package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeScenario(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

const passingScenario = `name: tiny
description: Smallest successful run
flow_token: flow-tiny
draft:
  project_name: Сайт
  client_name: Клиент
  start_date: "2024-01-01"
  end_date: "2024-01-31"
  manager_id: 1
  no_default_stage: true
expect:
  outcome: created
assertions:
  - type: request_count
    request: POST /api/projects
    count: 1
`

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := runTestCommand(t, "text", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ full_project")
	assert.Contains(t, out, "✓ partial_file_failure")
	assert.Contains(t, out, "4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", harnessScenarios, "--filter", "create_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "create_failure", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	writeScenario(t, scenarios, "tiny.yaml", passingScenario)

	out, err := runTestCommand(t, "text", scenarios, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ tiny (golden updated)")

	golden, err := os.ReadFile(filepath.Join(root, "golden", "tiny.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"flow_token": "flow-tiny"`)

	out, err = runTestCommand(t, "text", scenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ tiny\n")

	require.NoError(t, os.WriteFile(filepath.Join(root, "golden", "tiny.golden"), []byte("{}\n"), 0644))
	out, err = runTestCommand(t, "text", scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
}

func TestTestCommandFailingAssertion(t *testing.T) {
	scenarios := filepath.Join(t.TempDir(), "scenarios")
	writeScenario(t, scenarios, "tiny.yaml", passingScenario+`  - type: toast_count
    level: success
    count: 2
`)

	out, err := runTestCommand(t, "json", scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "2 success messages")
}

func TestTestCommandLoadError(t *testing.T) {
	scenarios := filepath.Join(t.TempDir(), "scenarios")
	writeScenario(t, scenarios, "broken.yaml", "name: broken\n")

	out, err := runTestCommand(t, "text", scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", "")
	writeScenario(t, dir, "b.yml", "")
	writeScenario(t, dir, "c.txt", "")
	writeScenario(t, filepath.Join(dir, "nested"), "d.yaml", "")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = findScenarioFiles(dir, "a*")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.yaml", filepath.Base(files[0]))

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
