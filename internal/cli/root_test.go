package cli

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repp/internal/testutil"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"apply", "tokenize", "validate", "groups", "replay", "test", "watch"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"verbose", "format", "config", "log-level", "log-file"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp", "!a\tb")

	_, _, err := executeCommand(t, "", "validate", rules, "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommand_ConfigFileSuppliesRules(t *testing.T) {
	dir := t.TempDir()
	rules := testutil.WriteRules(t, dir, "main.rpp", "!a\tb")
	cfg := testutil.WriteFile(t, dir, "repp.yaml", "rules: "+rules+"\n")

	stdout, _, err := executeCommand(t, "aaa\n", "apply", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "bbb\n", stdout)
}

func TestRootCommand_BadConfigFile(t *testing.T) {
	cfg := testutil.WriteFile(t, t.TempDir(), "repp.yaml", "jobz: 3\n")

	_, _, err := executeCommand(t, "", "validate", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	rules := testutil.WriteRules(t, t.TempDir(), "main.rpp", "!a\tb")

	_, _, err := executeCommand(t, "a\n", "apply", rules, "--log-level", "LOUD")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "LOUD")
}

func TestRootOptions_LogLevelPrecedence(t *testing.T) {
	dir := t.TempDir()
	debugCfg := testutil.WriteFile(t, dir, "debug.yaml", "log:\n  level: DEBUG\n")
	errorCfg := testutil.WriteFile(t, dir, "error.yaml", "log:\n  level: ERROR\n")

	tests := []struct {
		name     string
		opts     RootOptions
		expected string
	}{
		{"default", RootOptions{}, "WARN"},
		{"verbose raises default", RootOptions{Verbose: true}, "INFO"},
		{"verbose raises config", RootOptions{Verbose: true, ConfigPath: errorCfg}, "INFO"},
		{"verbose keeps config debug", RootOptions{Verbose: true, ConfigPath: debugCfg}, "DEBUG"},
		{"flag beats config", RootOptions{LogLevel: "ERROR", ConfigPath: debugCfg}, "ERROR"},
		{"flag beats verbose", RootOptions{Verbose: true, LogLevel: "ERROR"}, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			require.NoError(t, opts.setup(io.Discard))
			t.Cleanup(func() { _ = opts.teardown() })

			assert.Equal(t, tt.expected, opts.Config.Log.Level)
		})
	}
}

func TestRootCommand_LogFile(t *testing.T) {
	dir := t.TempDir()
	rules := testutil.WriteRules(t, dir, "main.rpp", "!a\tb")
	logFile := filepath.Join(dir, "logs", "repp.log")

	_, _, err := executeCommand(t, "a\n", "apply", rules, "--log-file", logFile, "--log-level", "INFO")
	require.NoError(t, err)

	matches, err := filepath.Glob(logFile + ".*")
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}
