package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
	n, err := s.CountRuns(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpen_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	for i := range 3 {
		s, err := Open(path)
		require.NoError(t, err, "open #%d", i)
		require.NoError(t, s.WriteRun(t.Context(), createTestRun("run-1", 1, "a")))
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountRuns(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "runs.db"))
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	for name, want := range map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
	} {
		got, err := s.pragma(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestSchema_RunsTable(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t, []string{
		"id", "seq", "ruleset_hash", "rules_path", "input", "output",
		"tokens", "tokens_hash", "engine_version", "ir_version",
	}, queryNames(t, s.db, "SELECT name FROM pragma_table_info('runs') ORDER BY cid"))

	indexes := queryNames(t, s.db, "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'runs'")
	assert.Contains(t, indexes, "idx_runs_seq")
	assert.Contains(t, indexes, "idx_runs_ruleset_hash")
}

func TestMigrate_FreshDatabaseIsCurrent(t *testing.T) {
	s := createTestStore(t)

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
	assert.Equal(t, 1, schemaVersion())
}

func TestMigrate_UpgradesVersionZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	// A database created before any migration existed.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
	assert.Contains(t,
		queryNames(t, s.db, "SELECT name FROM sqlite_master WHERE type = 'index'"),
		"idx_runs_ruleset_hash")
}

func queryNames(t *testing.T, db *sql.DB, query string) []string {
	t.Helper()

	rows, err := db.Query(query)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
