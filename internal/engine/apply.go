package engine

import (
	"github.com/dlclark/regexp2"
	"github.com/sirupsen/logrus"

	"github.com/roach88/repp/internal/ir"
)

// applier runs one Apply call over an immutable rule set.
type applier struct {
	maxIterations int
}

// apply dispatches on the operation variant.
func (a *applier) apply(op ir.Operation, s string) (string, error) {
	switch op := op.(type) {
	case *ir.Rule:
		return a.rule(op, s)
	case *ir.Group:
		return a.group(op, s)
	case *ir.IterativeGroup:
		return a.iterate(op, s)
	default:
		return s, nil
	}
}

// rule replaces every non-overlapping match of the rule's pattern.
func (a *applier) rule(r *ir.Rule, s string) (string, error) {
	out, err := r.Regexp.Replace(s, r.Template, -1, -1)
	if err != nil {
		return "", NewRegexError(r.Pattern, r.Pos, s, err)
	}
	return out, nil
}

// group folds the group's operations over s in declaration order.
func (a *applier) group(g *ir.Group, s string) (string, error) {
	var err error
	for _, op := range g.Ops {
		s, err = a.apply(op, s)
		if err != nil {
			return "", err
		}
	}
	return s, nil
}

// iterate applies g until its output stops changing.
//
// The loop has three outcomes: converged (return the fixpoint), cycle
// detected (CYCLE_DETECTED) and, when a limit is set, quota exceeded.
func (a *applier) iterate(g *ir.IterativeGroup, s string) (string, error) {
	detector := NewCycleDetector(s)
	quota := NewQuotaEnforcer(a.maxIterations)

	for {
		if err := quota.Check(g); err != nil {
			return "", err
		}

		out, err := a.group(&g.Group, s)
		if err != nil {
			return "", err
		}

		switch detector.Observe(out) {
		case Converged:
			if logrus.IsLevelEnabled(logrus.DebugLevel) {
				logrus.WithFields(logrus.Fields{
					"group":      g.ID,
					"iterations": detector.Observed(),
				}).Debug("iterative group converged")
			}
			return out, nil
		case Cycle:
			return "", NewCycleError(g, out)
		}
		s = out
	}
}

// split divides s around matches of re with Python re.split semantics:
// text from capturing groups is included between the pieces (an unmatched
// group contributes ""), and empty matches split too.
//
// regexp2 reports match positions in runes, so slicing is done on runes.
func split(re *regexp2.Regexp, s string) ([]string, error) {
	runes := []rune(s)
	var tokens []string
	last := 0

	m, err := re.FindRunesMatch(runes)
	for ; m != nil && err == nil; m, err = re.FindNextMatch(m) {
		tokens = append(tokens, string(runes[last:m.Index]))
		for _, g := range m.Groups()[1:] {
			if len(g.Captures) == 0 {
				tokens = append(tokens, "")
				continue
			}
			tokens = append(tokens, g.String())
		}
		last = m.Index + m.Length
	}
	if err != nil {
		return nil, err
	}

	return append(tokens, string(runes[last:])), nil
}
