package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repp/internal/testutil"
)

// scenarioDir lays out a scenarios directory with one passing scenario and
// its rule file.
func scenarioDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	testutil.WriteRules(t, dir, "rules/split.rpp", `:\s+`, "!a\tb")
	testutil.WriteFile(t, dir, "split.yaml", `name: split
rules: rules/split.rpp
cases:
  - input: "a c"
    apply: "b c"
    tokens: ["b", "c"]
assertions:
  - type: tokenizer
    value: '\s+'
`)
	return dir
}

func TestTestCommand_Pass(t *testing.T) {
	dir := scenarioDir(t)

	stdout, _, err := executeCommand(t, "", "test", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ split")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommand_Fail(t *testing.T) {
	dir := scenarioDir(t)
	testutil.WriteFile(t, dir, "wrong.yaml", `name: wrong
rules: rules/split.rpp
cases:
  - input: "a"
    apply: "a"
`)

	stdout, _, err := executeCommand(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ wrong")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := scenarioDir(t)
	testutil.WriteFile(t, dir, "wrong.yaml", "name: wrong\n")

	stdout, _, err := executeCommand(t, "", "test", dir, "--filter", "sp*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 total")
}

func TestTestCommand_GoldenUpdateAndCompare(t *testing.T) {
	dir := scenarioDir(t)
	golden := filepath.Join(dir, "golden", "split.golden")

	stdout, _, err := executeCommand(t, "", "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ split (golden updated)")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"split","trace":[{"input":"a c","output":"b c","seq":1,"tokens":["b","c"]}]}`,
		string(data))

	_, _, err = executeCommand(t, "", "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"split","trace":[]}`), 0o644))
	stdout, _, err = executeCommand(t, "", "test", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "Golden file mismatch")
}

func TestTestCommand_JSON(t *testing.T) {
	dir := scenarioDir(t)

	stdout, _, err := executeCommand(t, "", "test", dir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "split", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "broken.yaml", "name: broken\nrules: missing.rpp\ncases: []\n")

	stdout, _, err := executeCommand(t, "", "test", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "✗ broken.yaml")
	assert.Contains(t, stdout, "Load error")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, _, err := executeCommand(t, "", "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_Empty(t *testing.T) {
	stdout, _, err := executeCommand(t, "", "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")
}
