package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repp/internal/engine"
	"github.com/roach88/repp/internal/testutil"
)

func TestGroups_Text(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp", "@demo rules", ">german", ">dates", `:\s+`)

	stdout, _, err := executeCommand(t, "", "groups", rules, "--activate", "german")
	require.NoError(t, err)
	assert.Contains(t, stdout, "info:      demo rules")
	assert.Contains(t, stdout, `tokenizer: \s+`)
	assert.Contains(t, stdout, "  dates (inactive)")
	assert.Contains(t, stdout, "  german (active)")
}

func TestGroups_NoneDeclared(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp", "!a\tb")

	stdout, _, err := executeCommand(t, "", "groups", rules)
	require.NoError(t, err)
	assert.Contains(t, stdout, "info:      (none)")
	assert.Contains(t, stdout, "tokenizer: (none)")
	assert.Contains(t, stdout, "groups:\n  (none)\n")
}

func TestGroups_JSON(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp", ">b", ">a")

	stdout, _, err := executeCommand(t, "", "groups", rules, "--format", "json", "--activate", "b")
	require.NoError(t, err)

	var resp struct {
		Data GroupsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, []engine.GroupState{{Name: "a"}, {Name: "b", Active: true}}, resp.Data.Groups)
	assert.Equal(t, []string{rules}, resp.Data.Files)
}

func TestGroups_UnknownActivation(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp", ">german")

	_, _, err := executeCommand(t, "", "groups", rules, "--activate", "french")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
