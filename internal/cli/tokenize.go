package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/repp/internal/engine"
	"github.com/roach88/repp/internal/store"
)

// TokenizeOptions holds flags for the tokenize command.
type TokenizeOptions struct {
	*RootOptions
	Input    string
	Activate []string
	Jobs     int
	Database string
}

// TokenizeResult is the JSON payload of the tokenize command.
type TokenizeResult struct {
	Tokens   [][]string `json:"tokens"`
	Recorded int        `json:"recorded,omitempty"`
}

// lineResult is one processed input line.
type lineResult struct {
	output string
	tokens []string
}

// NewTokenizeCommand creates the tokenize command.
func NewTokenizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tokenize [rules.rpp]",
		Short: "Tokenize each input line",
		Long: `Apply the rules to each input line, split the result by the tokenization
pattern and print one JSON array of tokens per line.

Lines are processed by --jobs workers; output keeps input order. With --db
every line is recorded in a SQLite run log that "repp replay" can check
against later versions of the rules.

Exit codes:
  0 - All lines tokenized
  1 - A rule failed at runtime (cycle, quota, regex timeout)
  2 - Command error (rule file does not load, database error, etc.)

Examples:
  echo "a b" | repp tokenize rules.rpp
  repp tokenize rules.rpp --input corpus.txt --jobs 8 --db runs.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenize(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input file (default stdin)")
	cmd.Flags().StringArrayVar(&opts.Activate, "activate", nil, "activation group to turn on (repeatable)")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "parallel workers (default from config, 1)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs in this SQLite database")

	return cmd
}

func runTokenize(opts *TokenizeOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.settings()

	path, err := rulesPath(opts.RootOptions, args)
	if err != nil {
		return err
	}
	eng, err := openEngine(opts.RootOptions, path, opts.Activate)
	if err != nil {
		return formatter.ReportError(ExitCommandError, err)
	}

	in, closeIn, err := openInput(cmd, opts.Input)
	if err != nil {
		return err
	}
	defer closeIn()

	lines, err := readLines(in)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = cfg.Jobs
	}
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.DB
	}
	record := dbPath != ""

	formatter.VerboseLog("Tokenizing %d line(s) with %d worker(s)", len(lines), jobs)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results, err := tokenizeLines(ctx, eng, lines, jobs, record)
	if err != nil {
		return formatter.ReportError(ExitFailure, err)
	}

	recorded := 0
	if record {
		recorded, err = recordRuns(ctx, dbPath, eng, lines, results)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record runs", err)
		}
		formatter.VerboseLog("Recorded %d run(s) in %s", recorded, dbPath)
	}

	if opts.Format == "json" {
		all := make([][]string, len(results))
		for i, r := range results {
			all[i] = r.tokens
		}
		return formatter.Success(TokenizeResult{Tokens: all, Recorded: recorded})
	}

	w := cmd.OutOrStdout()
	for _, r := range results {
		encoded, err := encodeTokens(r.tokens)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, encoded)
	}
	return nil
}

// tokenizeLines processes lines on up to jobs goroutines. Results keep the
// input order; the first failure cancels the remaining work. With
// withOutput the processed string is kept for the run log.
func tokenizeLines(ctx context.Context, eng *engine.Engine, lines []string, jobs int, withOutput bool) ([]lineResult, error) {
	results := make([]lineResult, len(lines))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, line := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			tokens, err := eng.Tokenize(line)
			if err != nil {
				return &lineError{Line: i + 1, Err: err}
			}
			results[i].tokens = tokens

			if withOutput {
				out, err := eng.Apply(line)
				if err != nil {
					return &lineError{Line: i + 1, Err: err}
				}
				results[i].output = out
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// recordRuns writes one run per line, in input order, so seq follows the
// input.
func recordRuns(ctx context.Context, dbPath string, eng *engine.Engine, lines []string, results []lineResult) (int, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	rec, err := store.NewRecorder(ctx, st, nil)
	if err != nil {
		return 0, err
	}

	hash := eng.Hash()
	for i, line := range lines {
		run, err := rec.Record(ctx, store.Run{
			RuleSetHash: hash,
			RulesPath:   eng.Path(),
			Input:       line,
			Output:      results[i].output,
			Tokens:      results[i].tokens,
		})
		if err != nil {
			return i, err
		}
		logrus.WithFields(logrus.Fields{
			"id":  run.ID,
			"seq": run.Seq,
		}).Debug("run recorded")
	}
	return len(lines), nil
}
