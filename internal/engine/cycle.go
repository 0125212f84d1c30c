package engine

// Verdict is the outcome of one iteration of an iterative group.
type Verdict int

const (
	// Continue means the output changed and no cycle was seen.
	Continue Verdict = iota

	// Converged means the output equals the previous result (fixpoint).
	Converged

	// Cycle means the output equals the result from two iterations ago
	// but not the previous one: the group oscillates with period 2.
	Cycle
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Converged:
		return "converged"
	case Cycle:
		return "cycle"
	default:
		return "unknown"
	}
}

// CycleDetector tracks the results of one iterative group application.
//
// The input string counts as iteration 0. Only the previous and the
// previous-previous results are kept, so only period-2 oscillation is
// detected:
//
//	"ab" → "ba" → "ab"   ← CYCLE DETECTED
//
// Longer cycles ("a" → "b" → "c" → "a") and strings that grow forever are
// not detected. Use WithMaxIterations to bound those.
//
// A CycleDetector is owned by a single Apply call and is not safe for
// concurrent use.
type CycleDetector struct {
	prev     string
	prev2    string
	hasPrev2 bool
	observed int
}

// NewCycleDetector creates a detector seeded with the group's input.
func NewCycleDetector(input string) *CycleDetector {
	return &CycleDetector{prev: input}
}

// Observe records the output of the next iteration and classifies it.
//
// After Converged or Cycle the detector should be discarded.
func (c *CycleDetector) Observe(out string) Verdict {
	c.observed++

	if out == c.prev {
		return Converged
	}
	if c.hasPrev2 && out == c.prev2 {
		return Cycle
	}

	c.prev2, c.prev, c.hasPrev2 = c.prev, out, true
	return Continue
}

// Observed returns the number of iterations recorded.
// Used for logging and testing.
func (c *CycleDetector) Observed() int {
	return c.observed
}
