package cli

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/repp/internal/engine"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Activate []string
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch [rules.rpp]",
		Short: "Tokenize stdin while reloading rules on change",
		Long: `Tokenize stdin line by line, printing one JSON array per line, and reload
the rules whenever one of the loaded rule files changes.

A reload that fails is logged and the previous rules stay in use. Activation
groups given with --activate are turned on again after every reload.

Examples:
  tail -f corpus.txt | repp watch rules.rpp -v`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Activate, "activate", nil, "activation group to turn on (repeatable)")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", engine.DefaultDebounce, "quiet period before a reload")

	return cmd
}

func runWatch(opts *WatchOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	path, err := rulesPath(opts.RootOptions, args)
	if err != nil {
		return err
	}
	eng, err := openEngine(opts.RootOptions, path, opts.Activate)
	if err != nil {
		return formatter.ReportError(ExitCommandError, err)
	}

	activate := append(append([]string{}, opts.settings().Activate...), opts.Activate...)
	w, err := engine.NewWatcher(eng,
		engine.WithDebounce(opts.Debounce),
		engine.WithOnReload(func(err error) {
			if err != nil {
				formatter.VerboseLog("Reload failed: %v", err)
				return
			}
			reactivate(eng, activate)
			formatter.VerboseLog("Rules reloaded (%s)", eng.Hash())
		}),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create watcher", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := w.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch rule files", err)
	}
	defer w.Stop()

	formatter.VerboseLog("Watching %v", w.WatchedDirs())

	out := cmd.OutOrStdout()
	sc := bufio.NewScanner(cmd.InOrStdin())
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for line := 1; sc.Scan(); line++ {
		if ctx.Err() != nil {
			return nil
		}

		tokens, err := eng.Tokenize(sc.Text())
		if err != nil {
			// A bad line does not end the session.
			logrus.WithError(err).WithField("line", line).Error("tokenize failed")
			fmt.Fprintln(cmd.ErrOrStderr(), (&lineError{Line: line, Err: err}).Error())
			continue
		}
		encoded, err := encodeTokens(tokens)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, encoded)
	}
	if err := sc.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}
	return nil
}

// reactivate turns activation groups back on after a reload reset them.
// Groups the new rules no longer declare are skipped.
func reactivate(eng *engine.Engine, names []string) {
	for _, name := range names {
		if err := eng.Activate(name); err != nil {
			logrus.WithError(err).WithField("group", name).Warn("group not declared after reload")
		}
	}
}
