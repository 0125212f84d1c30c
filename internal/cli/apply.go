package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Input    string
	Activate []string
}

// ApplyResult is the JSON payload of the apply command.
type ApplyResult struct {
	Outputs []string `json:"outputs"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply [rules.rpp]",
		Short: "Apply the rules to each input line",
		Long: `Apply every rule to each line of the input and print the processed lines.

Exit codes:
  0 - All lines processed
  1 - A rule failed at runtime (cycle, quota, regex timeout)
  2 - Command error (rule file does not load, input missing, etc.)

Examples:
  echo "aaa" | repp apply rules.rpp
  repp apply rules.rpp --input corpus.txt --activate german`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input file (default stdin)")
	cmd.Flags().StringArrayVar(&opts.Activate, "activate", nil, "activation group to turn on (repeatable)")

	return cmd
}

func runApply(opts *ApplyOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

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
	formatter.VerboseLog("Applying %s to %d line(s)", path, len(lines))

	outputs := make([]string, 0, len(lines))
	for i, line := range lines {
		out, err := eng.Apply(line)
		if err != nil {
			return formatter.ReportError(ExitFailure, &lineError{Line: i + 1, Err: err})
		}
		outputs = append(outputs, out)
	}

	if opts.Format == "json" {
		return formatter.Success(ApplyResult{Outputs: outputs})
	}
	w := cmd.OutOrStdout()
	for _, out := range outputs {
		fmt.Fprintln(w, out)
	}
	return nil
}
