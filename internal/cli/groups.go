package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/repp/internal/engine"
)

// GroupsOptions holds flags for the groups command.
type GroupsOptions struct {
	*RootOptions
	Activate []string
}

// GroupsResult describes a loaded rule set.
type GroupsResult struct {
	Info      string              `json:"info"`
	Tokenizer string              `json:"tokenizer"`
	Files     []string            `json:"files"`
	Hash      string              `json:"hash"`
	Groups    []engine.GroupState `json:"groups"`
}

// NewGroupsCommand creates the groups command.
func NewGroupsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GroupsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "groups [rules.rpp]",
		Short: "Show a rule set's metadata and activation groups",
		Long: `Load a rule file and print its info string, tokenization pattern, the
files it loaded, its content hash and the declared activation groups.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroups(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Activate, "activate", nil, "activation group to turn on (repeatable)")

	return cmd
}

func runGroups(opts *GroupsOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	path, err := rulesPath(opts.RootOptions, args)
	if err != nil {
		return err
	}
	eng, err := openEngine(opts.RootOptions, path, opts.Activate)
	if err != nil {
		return formatter.ReportError(ExitCommandError, err)
	}

	result := GroupsResult{
		Info:      eng.Info(),
		Tokenizer: eng.TokenizerPattern(),
		Files:     eng.Files(),
		Hash:      eng.Hash(),
		Groups:    eng.Groups(),
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "info:      %s\n", orNone(result.Info))
	fmt.Fprintf(w, "tokenizer: %s\n", orNone(result.Tokenizer))
	fmt.Fprintf(w, "hash:      %s\n", result.Hash)
	fmt.Fprintln(w, "files:")
	for _, f := range result.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	fmt.Fprintln(w, "groups:")
	if len(result.Groups) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, g := range result.Groups {
		state := "inactive"
		if g.Active {
			state = "active"
		}
		fmt.Fprintf(w, "  %s (%s)\n", g.Name, state)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
