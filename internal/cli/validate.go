package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/repp/internal/compiler"
	"github.com/roach88/repp/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool               `json:"valid"`
	Files    []string           `json:"files,omitempty"`
	Rules    int                `json:"rules"`
	Hash     string             `json:"hash,omitempty"`
	Warnings []compiler.Warning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [rules.rpp]",
		Short: "Check that a rule file loads",
		Long: `Load a rule file with all its includes and report the first error, or
"✓ rules valid" followed by any warnings.

Exit codes:
  0 - Rules are valid (warnings do not fail)
  1 - The rule file has an error
  2 - Command error`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	path, err := rulesPath(opts, args)
	if err != nil {
		return err
	}

	res, err := compiler.Compile(path, compiler.WithMatchTimeout(opts.settings().MatchTimeout()))
	if err != nil {
		return outputValidateError(formatter, err)
	}

	result := ValidationResult{
		Valid:    true,
		Files:    res.RuleSet.Files,
		Rules:    ir.CountRules(res.RuleSet.Root),
		Hash:     res.RuleSet.MustHash(),
		Warnings: res.Warnings,
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "✓ rules valid")
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	formatter.VerboseLog("%d file(s), %d rule(s), hash %s", len(result.Files), result.Rules, result.Hash)
	return nil
}

// outputValidateError reports a compile error with its location.
func outputValidateError(formatter *OutputFormatter, err error) error {
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		return formatter.ReportError(ExitFailure, err)
	}

	if formatter.Format == "json" {
		details := map[string]any{}
		if ce.File != "" {
			details["file"] = ce.File
		}
		if ce.Line > 0 {
			details["line"] = ce.Line
		}
		if werr := formatter.Error(ce.Code, ce.Message, details); werr != nil {
			return werr
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s\n", ce.Error())
	}
	return &ExitError{Code: ExitFailure, Message: "validation failed", Err: err, Reported: true}
}
