package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRules(t *testing.T) {
	dir := t.TempDir()
	path := WriteRules(t, dir, "sub/main.rpp", "!a\tb", ":b")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "!a\tb\n:b\n", string(data))
	assert.Equal(t, filepath.Join(dir, "sub", "main.rpp"), path)
}

func TestRulesDir(t *testing.T) {
	dir := RulesDir(t, map[string][]string{
		"main.rpp": {"<inc.rpp"},
		"inc.rpp":  {"!x\ty"},
	})

	assert.FileExists(t, filepath.Join(dir, "main.rpp"))
	assert.FileExists(t, filepath.Join(dir, "inc.rpp"))
}
