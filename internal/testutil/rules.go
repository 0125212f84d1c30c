package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile writes content to dir/name, creating parent directories, and
// returns the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteRules writes a rule file with one declaration per line.
//
//	path := testutil.WriteRules(t, dir, "main.rpp",
//		"!a\tb",
//		":[ ]+",
//	)
func WriteRules(t testing.TB, dir, name string, lines ...string) string {
	t.Helper()
	return WriteFile(t, dir, name, strings.Join(lines, "\n")+"\n")
}

// RulesDir creates a temp directory holding the given files (name → lines)
// and returns it.
func RulesDir(t testing.TB, files map[string][]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, lines := range files {
		WriteRules(t, dir, name, lines...)
	}
	return dir
}
