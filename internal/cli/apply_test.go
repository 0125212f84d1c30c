package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repp/internal/testutil"
)

func TestApply_Text(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp", "!a\tb")

	stdout, _, err := executeCommand(t, "aaa\nxa\n", "apply", rules)
	require.NoError(t, err)
	assert.Equal(t, "bbb\nxb\n", stdout)
}

func TestApply_InputFile(t *testing.T) {
	dir := t.TempDir()
	rules := testutil.WriteRules(t, dir, "main.rpp", "!a\tb")
	input := testutil.WriteFile(t, dir, "input.txt", "banana\r\n")

	stdout, _, err := executeCommand(t, "", "apply", rules, "--input", input)
	require.NoError(t, err)
	assert.Equal(t, "bbnbnb\n", stdout)
}

func TestApply_JSON(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp", "!a\tb")

	stdout, _, err := executeCommand(t, "aa\n\n", "apply", rules, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   ApplyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"bb", ""}, resp.Data.Outputs)
}

func TestApply_CycleFails(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp",
		"#1",
		"!^(.)(.)$\t\\2\\1",
		"#",
		">1",
	)

	stdout, _, err := executeCommand(t, "ab\n", "apply", rules)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "CYCLE_DETECTED")
	assert.Contains(t, stdout, "line 1")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.True(t, exitErr.Reported)
}

func TestApply_NoRules(t *testing.T) {
	_, _, err := executeCommand(t, "a\n", "apply")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestApply_BadRulesFile(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp", ":a", ":b")

	stdout, _, err := executeCommand(t, "a\n", "apply", rules)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "E204")
}
