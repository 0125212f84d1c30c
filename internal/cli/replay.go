package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/repp/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Rules    string
	Activate []string
	Hash     string
	Since    int64
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-tokenize recorded runs and report changes",
		Long: `Re-run every input recorded by "repp tokenize --db" and compare the tokens
with the recorded ones.

Without --rules the rule file recorded with the first selected run is used.
--hash and --since narrow the replay to runs recorded against one rule-set
hash or from one seq on.

Exit codes:
  0 - Every run reproduced its tokens
  1 - One or more runs differ
  2 - Command error (database not found, etc.)

Examples:
  repp replay --db ./runs.db
  repp replay --db ./runs.db --rules rules/v2.rpp --format json
  repp replay --db ./runs.db --hash 3f9a... --since 100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "rule file to replay against")
	cmd.Flags().StringArrayVar(&opts.Activate, "activate", nil, "activation group to turn on (repeatable)")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "only replay runs recorded against this rule-set hash")
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only replay runs with seq >= this value")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.settings().DB
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	// Opening would create a missing database.
	if _, err := os.Stat(dbPath); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	q := opts.query()
	runs, err := st.QueryRuns(ctx, q)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if len(runs) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, store.ReplayResult{Mismatches: []store.Mismatch{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	rules := opts.Rules
	if rules == "" {
		rules = runs[0].RulesPath
	}
	eng, err := openEngine(opts.RootOptions, rules, opts.Activate)
	if err != nil {
		return formatter.ReportError(ExitCommandError, err)
	}
	formatter.VerboseLog("Replaying %d run(s) against %s (hash %s)", len(runs), rules, eng.Hash())

	result, err := st.Replay(ctx, q, eng.Tokenize)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

// query builds the run selection from the filter flags.
func (o *ReplayOptions) query() store.Query {
	var preds []store.Predicate
	if o.Hash != "" {
		preds = append(preds, store.Equals{Column: "ruleset_hash", Value: o.Hash})
	}
	if o.Since > 0 {
		preds = append(preds, store.SeqAtLeast{Seq: o.Since})
	}
	if len(preds) == 0 {
		return store.Query{}
	}
	return store.Query{Filter: store.And{Predicates: preds}}
}

func outputReplayJSON(cmd *cobra.Command, result store.ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.OK() {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_REPLAY_MISMATCH",
			Message: fmt.Sprintf("%d of %d run(s) differ", len(result.Mismatches), result.Total),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.OK() {
		return &ExitError{Code: ExitFailure, Message: response.Error.Message, Reported: true}
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, result store.ReplayResult) error {
	w := cmd.OutOrStdout()

	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "✗ run %s (seq %d): %q\n", m.Run.ID, m.Run.Seq, m.Run.Input)
		want, _ := encodeTokens(m.Run.Tokens)
		fmt.Fprintf(w, "  recorded: %s\n", want)
		if m.Err != "" {
			fmt.Fprintf(w, "  error:    %s\n", m.Err)
		} else {
			got, _ := encodeTokens(m.Got)
			fmt.Fprintf(w, "  replayed: %s\n", got)
		}
	}

	fmt.Fprintf(w, "Replay Summary: %d matched, %d differ, %d total\n",
		result.Matched, len(result.Mismatches), result.Total)

	if !result.OK() {
		return &ExitError{
			Code:     ExitFailure,
			Message:  fmt.Sprintf("%d run(s) differ", len(result.Mismatches)),
			Reported: true,
		}
	}
	fmt.Fprintln(w, "✓ All runs reproduced")
	return nil
}
