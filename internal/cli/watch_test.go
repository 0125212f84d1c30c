package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repp/internal/engine"
	"github.com/roach88/repp/internal/testutil"
)

func TestWatch_TokenizesUntilEOF(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp", `:\s+`, "!a\tb")

	stdout, _, err := executeCommand(t, "a c\nx\n", "watch", rules, "--debounce", "10ms")
	require.NoError(t, err)
	assert.Equal(t, "[\"b\",\"c\"]\n[\"x\"]\n", stdout)
}

func TestWatch_BadLineDoesNotStop(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp",
		":,",
		"#1",
		"!^(.)(.)$\t\\2\\1",
		"#",
		">1",
	)

	stdout, stderr, err := executeCommand(t, "ab\nabc\n", "watch", rules)
	require.NoError(t, err)
	assert.Equal(t, "[\"abc\"]\n", stdout)
	assert.Contains(t, stderr, "line 1: CYCLE_DETECTED")
}

func TestReactivate(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp", ">german", ">dates")
	eng, err := engine.New(rules)
	require.NoError(t, err)

	reactivate(eng, []string{"german", "french"})

	active, err := eng.IsActive("german")
	require.NoError(t, err)
	assert.True(t, active)

	active, err = eng.IsActive("dates")
	require.NoError(t, err)
	assert.False(t, active)
}
