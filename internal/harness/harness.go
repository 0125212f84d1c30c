package harness

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/roach88/repp/internal/compiler"
	"github.com/roach88/repp/internal/engine"
	"github.com/roach88/repp/internal/store"
)

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load the rule file (or check the expected compile error)
// 2. Turn on the scenario's activation groups
// 3. Run every case with a deterministic clock
// 4. Evaluate assertions
//
// An error is returned only when the scenario cannot run at all; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	result := NewResult()

	eng, err := engine.New(scenario.Rules, engine.WithMaxIterations(scenario.MaxIterations))
	if scenario.CompileError != "" {
		checkCompileError(scenario.CompileError, err, result)
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	if err := activate(eng, scenario.Activate); err != nil {
		return nil, err
	}
	result.Hash = eng.Hash()

	for _, ev := range runCases(eng, scenario.Cases) {
		result.AddTrace(ev)
	}
	for i, c := range scenario.Cases {
		for _, msg := range checkCase(i, c, result.Trace[i]) {
			result.AddError(msg)
		}
	}

	for _, msg := range EvaluateAssertions(eng, scenario, result) {
		result.AddError(msg)
	}

	logrus.WithFields(logrus.Fields{
		"scenario": scenario.Name,
		"cases":    len(scenario.Cases),
		"pass":     result.Pass,
	}).Debug("scenario finished")

	return result, nil
}

func checkCompileError(code string, err error, result *Result) {
	switch {
	case err == nil:
		result.AddError(fmt.Sprintf("expected compile error %s, rules loaded", code))
	case !compiler.HasCode(err, code):
		result.AddError(fmt.Sprintf("expected compile error %s, got: %v", code, err))
	}
}

func activate(eng *engine.Engine, names []string) error {
	for _, name := range names {
		if err := eng.Activate(name); err != nil {
			return fmt.Errorf("activate %s: %w", name, err)
		}
	}
	return nil
}

// runCases executes each case once, stamping events from a fresh logical
// clock so every run of a scenario numbers its events 1..n.
func runCases(eng *engine.Engine, cases []Case) []TraceEvent {
	clock := store.NewClock()
	events := make([]TraceEvent, 0, len(cases))
	for _, c := range cases {
		events = append(events, runCase(eng, c.Input, clock.Next()))
	}
	return events
}

func runCase(eng *engine.Engine, input string, seq int64) TraceEvent {
	ev := TraceEvent{Seq: seq, Input: input}

	out, err := eng.Apply(input)
	if err != nil {
		ev.Error = errorCode(err)
		return ev
	}
	ev.Output = out

	tokens, err := eng.Tokenize(input)
	if err != nil {
		ev.Error = errorCode(err)
		return ev
	}
	ev.Tokens = tokens
	return ev
}

// errorCode reduces runtime errors to their code so traces stay stable.
func errorCode(err error) string {
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return err.Error()
}

func checkCase(i int, c Case, ev TraceEvent) []string {
	var errs []string

	if c.Error != "" {
		if ev.Error != c.Error {
			errs = append(errs, fmt.Sprintf("cases[%d]: expected error %s, got %q", i, c.Error, ev.Error))
		}
		return errs
	}
	if ev.Error != "" {
		return append(errs, fmt.Sprintf("cases[%d]: unexpected error: %s", i, ev.Error))
	}

	if c.Apply != nil && *c.Apply != ev.Output {
		errs = append(errs, fmt.Sprintf("cases[%d]: apply(%q) = %q, want %q", i, c.Input, ev.Output, *c.Apply))
	}
	if c.Tokens != nil {
		if diff := cmp.Diff(*c.Tokens, ev.Tokens); diff != "" {
			errs = append(errs, fmt.Sprintf("cases[%d]: tokenize(%q) mismatch (-want +got):\n%s", i, c.Input, diff))
		}
	}
	return errs
}
