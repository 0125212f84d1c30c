package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/repp/internal/config"
	"github.com/roach88/repp/internal/ir"
	"github.com/roach88/repp/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	LogLevel   string
	LogFile    string

	// Config is loaded in PersistentPreRunE; flags override file values.
	Config *config.Config

	logCloser io.Closer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the repp CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "repp",
		Short:   "REPP - Regular Expression Pre-Processor",
		Version: ir.EngineVersion,
		Long: `Apply ordered regex rewrite rules to text and split the result into tokens.

Rules are read from .rpp files: substitutions, includes, iterative groups
that run to a fixpoint, activation groups and one tokenization pattern.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints errors the commands did not report

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.teardown()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (.yaml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (DEBUG|INFO|WARN|ERROR)")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "also write logs to this file (rotated hourly)")

	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewTokenizeCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewGroupsCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// setup loads the config file and configures logging.
func (o *RootOptions) setup(stderr io.Writer) error {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	switch {
	case o.LogLevel != "":
		cfg.Log.Level = o.LogLevel
	case o.Verbose && logging.ParseLevel(cfg.Log.Level) < logrus.InfoLevel:
		// -v raises quieter levels to INFO but never lowers DEBUG.
		cfg.Log.Level = "INFO"
	}
	if o.LogFile != "" {
		cfg.Log.Dir = filepath.Dir(o.LogFile)
		cfg.Log.Filename = filepath.Base(o.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}
	o.Config = cfg

	logOpts := cfg.LoggingOptions()
	logOpts.Output = stderr
	closer, err := logging.Init(logOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize logging", err)
	}
	o.logCloser = closer

	logrus.WithFields(logrus.Fields{
		"config": o.ConfigPath,
		"level":  cfg.Log.Level,
	}).Debug("cli configured")
	return nil
}

func (o *RootOptions) teardown() error {
	if o.logCloser == nil {
		return nil
	}
	err := o.logCloser.Close()
	o.logCloser = nil
	return err
}

// formatter builds an OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// settings returns the loaded config, or defaults when setup has not run
// (commands executed directly in tests).
func (o *RootOptions) settings() *config.Config {
	if o.Config == nil {
		return config.Default()
	}
	return o.Config
}
