package harness

import (
	"fmt"
	"slices"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/repp/internal/engine"
)

// EvaluateAssertions checks every assertion against the loaded engine and
// returns one message per failure.
func EvaluateAssertions(eng *engine.Engine, scenario *Scenario, result *Result) []string {
	var errs []string
	for i, a := range scenario.Assertions {
		if msg := evaluateAssertion(eng, scenario, result, a); msg != "" {
			errs = append(errs, fmt.Sprintf("assertions[%d] (%s): %s", i, a.Type, msg))
		}
	}
	return errs
}

func evaluateAssertion(eng *engine.Engine, scenario *Scenario, result *Result, a Assertion) string {
	switch a.Type {
	case AssertInfo:
		if got := eng.Info(); got != a.Value {
			return fmt.Sprintf("info = %q, want %q", got, a.Value)
		}
	case AssertTokenizer:
		if got := eng.TokenizerPattern(); got != a.Value {
			return fmt.Sprintf("tokenizer = %q, want %q", got, a.Value)
		}
	case AssertGroups:
		var names []string
		for _, g := range eng.Groups() {
			names = append(names, g.Name)
		}
		want := slices.Clone(a.Names)
		slices.Sort(want)
		if !slices.Equal(names, want) {
			return fmt.Sprintf("groups = %v, want %v", names, want)
		}
	case AssertDeterministic:
		return checkDeterministic(eng, scenario, result)
	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
	return ""
}

// checkDeterministic reloads the rules and runs the cases again. The hash
// and every trace event must match the first run.
func checkDeterministic(eng *engine.Engine, scenario *Scenario, result *Result) string {
	if err := eng.Reload(); err != nil {
		return fmt.Sprintf("reload failed: %v", err)
	}
	if err := activate(eng, scenario.Activate); err != nil {
		return err.Error()
	}

	if got := eng.Hash(); got != result.Hash {
		return fmt.Sprintf("hash changed on reload: %s → %s", result.Hash, got)
	}
	if diff := cmp.Diff(result.Trace, runCases(eng, scenario.Cases)); diff != "" {
		return fmt.Sprintf("trace changed on reload (-first +second):\n%s", diff)
	}
	return ""
}
