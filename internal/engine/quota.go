package engine

import "github.com/roach88/repp/internal/ir"

// QuotaEnforcer counts iterations of one iterative group application and
// enforces an optional maximum.
//
// CRITICAL DISTINCTION from Cycle Detection:
//   - Cycle Detection: catches period-2 oscillation ("ab" → "ba" → "ab")
//   - Iteration Quota: catches everything else that never settles
//     (longer cycles, strings that grow on every pass)
//
// The quota is opt-in. With maxIterations == 0 only the cycle detector
// guards termination.
type QuotaEnforcer struct {
	maxIterations int
	current       int
}

// NewQuotaEnforcer creates a new quota enforcer. Zero or negative means
// unlimited.
func NewQuotaEnforcer(maxIterations int) *QuotaEnforcer {
	return &QuotaEnforcer{maxIterations: maxIterations}
}

// Check increments the iteration counter and validates it against the limit.
//
// Returns a QUOTA_EXCEEDED RuntimeError once the group has been applied
// maxIterations times and another iteration is requested.
func (q *QuotaEnforcer) Check(g *ir.IterativeGroup) error {
	q.current++
	if q.maxIterations > 0 && q.current > q.maxIterations {
		return NewQuotaError(g, q.current, q.maxIterations)
	}
	return nil
}

// Current returns the current iteration count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxIterations returns the limit; 0 means unlimited.
func (q *QuotaEnforcer) MaxIterations() int {
	return q.maxIterations
}
