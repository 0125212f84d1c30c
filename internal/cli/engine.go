package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/repp/internal/engine"
)

// maxLineSize bounds one input line.
const maxLineSize = 16 * 1024 * 1024

// rulesPath picks the rule file: the positional argument wins over the
// config file's rules setting.
func rulesPath(opts *RootOptions, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if p := opts.settings().Rules; p != "" {
		return p, nil
	}
	return "", NewExitError(ExitCommandError, "no rule file given (pass one or set rules in the config file)")
}

// openEngine loads the rule file and turns on the activation groups named
// in the config file and on the command line.
func openEngine(opts *RootOptions, path string, activate []string) (*engine.Engine, error) {
	cfg := opts.settings()

	eng, err := engine.New(path, cfg.EngineOptions()...)
	if err != nil {
		return nil, err
	}

	for _, name := range append(append([]string{}, cfg.Activate...), activate...) {
		if err := eng.Activate(name); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("cannot activate %q", name), err)
		}
	}
	return eng, nil
}

// openInput returns the input file, or stdin for "" and "-".
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open input", err)
	}
	return f, func() { f.Close() }, nil
}

// readLines reads every line of r. Line terminators (\n or \r\n) are
// dropped.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}

// encodeTokens renders tokens as a compact JSON array without HTML
// escaping.
func encodeTokens(tokens []string) (string, error) {
	if tokens == nil {
		tokens = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tokens); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// lineError attaches the 1-based input line number to a processing error.
type lineError struct {
	Line int
	Err  error
}

func (e *lineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *lineError) Unwrap() error {
	return e.Err
}
