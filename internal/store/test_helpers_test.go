package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id string, seq int64, input string, tokens ...string) Run {
	if tokens == nil {
		tokens = []string{}
	}
	return Run{
		ID:            id,
		Seq:           seq,
		RuleSetHash:   "test-hash",
		RulesPath:     "rules.rpp",
		Input:         input,
		Output:        input,
		Tokens:        tokens,
		TokensHash:    "tokens-hash",
		EngineVersion: "0.1.0",
		IRVersion:     "1",
	}
}
