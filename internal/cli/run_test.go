package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

const ageScenario = `
name: age
description: "A lower bound on a touched field"
tree:
  kind: form
  children:
    - kind: field
      name: age
      rules: "min(18)"
steps:
  - op: set
    path: age
    value: 16
  - op: emit
    path: age
    event: change
assertions:
  - type: state
    path: age
    expect: INVALID
`

const wrongScenario = `
name: wrong
description: "Expects the wrong state"
tree:
  kind: field
  rules: required
steps:
  - op: emit
    event: change
assertions:
  - type: state
    expect: VALID
`

func TestRunCommand_Directory(t *testing.T) {
	out, _, err := execute(t, "run", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ signup")
	assert.Contains(t, out, "✓ choices")
	assert.Contains(t, out, "✓ contacts")
	assert.Contains(t, out, "Run Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestRunCommand_Filter(t *testing.T) {
	out, _, err := execute(t, "run", scenariosDir, "--filter", "sign*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ signup")
	assert.NotContains(t, out, "choices")
	assert.Contains(t, out, "1 total")
}

func TestRunCommand_FilterMatchesNothing(t *testing.T) {
	_, _, err := execute(t, "run", scenariosDir, "--filter", "zzz*")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no scenarios found")
}

func TestRunCommand_MissingPath(t *testing.T) {
	_, _, err := execute(t, "run", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to find scenarios")
}

func TestRunCommand_Failure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "age.yaml", ageScenario)
	writeFile(t, dir, "wrong.yaml", wrongScenario)

	out, _, err := execute(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 scenario(s) failed")
	assert.Contains(t, out, "✓ age")
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, `Assertion failed: state at ""`)
	assert.Contains(t, out, "Run Summary: 1 passed, 1 failed, 2 total")
}

func TestRunCommand_InvalidScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, _, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, ErrCodeScenarioInvalid)
	assert.Contains(t, out, "description is required")
}

func TestRunCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "age.yaml", ageScenario)

	out, _, err := execute(t, "run", path, "--format", "json", "--snapshot")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)

	sr := resp.Data.Scenarios[0]
	assert.Equal(t, "age", sr.Name)
	assert.Equal(t, "age", sr.Session)
	assert.True(t, sr.Pass)
	require.NotNil(t, sr.Snapshot)
	age := sr.Snapshot.Find("age")
	require.NotNil(t, age)
	assert.Equal(t, "INVALID", string(age.State))
}

func TestRunCommand_SnapshotText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "age.yaml", ageScenario)

	out, _, err := execute(t, "run", path, "--snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, `  snapshot: {"children":[`)
	assert.Contains(t, out, `"state":"INVALID"`)
}

func TestRunCommand_Verbose(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "age.yaml", ageScenario)

	_, errOut, err := execute(t, "run", path, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, errOut, "running "+path)
	assert.Contains(t, errOut, "scenario finished")
}

func TestRunCommand_JournalOpenError(t *testing.T) {
	_, _, err := execute(t, "run", scenariosDir, "--journal", filepath.Join("/nonexistent", "dir", "j.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open journal")
}
