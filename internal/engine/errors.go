package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/repp/internal/ir"
)

// ErrUnknownGroup is returned by Activate, Deactivate and IsActive for a name
// the loaded rule files never declared.
var ErrUnknownGroup = errors.New("unknown group")

// RuntimeError represents an error detected while applying rules.
//
// Runtime errors include:
//   - Cycle detection: an iterative group oscillates with period 2
//   - Quota exceeded: an iterative group ran more than the configured maximum
//   - Regex failure: a match timed out or the regex engine failed
//
// Any RuntimeError aborts the whole Apply or Tokenize call.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// GroupID identifies the iterative group (for cycle/quota errors).
	GroupID string

	// Pos locates the group definition or the failing rule.
	Pos ir.Pos

	// Current is the string being processed when the error was detected.
	Current string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeCycleDetected indicates an iterative group returned to the
	// string it produced two iterations earlier.
	ErrCodeCycleDetected RuntimeErrorCode = "CYCLE_DETECTED"

	// ErrCodeQuotaExceeded indicates an iterative group exceeded max iterations.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeRegexFailed indicates a regex match failed, usually a timeout.
	ErrCodeRegexFailed RuntimeErrorCode = "REGEX_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.GroupID != "" {
		return fmt.Sprintf("%s: %s (group=#%s)", e.Code, e.Message, e.GroupID)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsCycleError returns true if the error is a cycle detection error.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	return hasRuntimeCode(err, ErrCodeCycleDetected)
}

// IsQuotaError returns true if the error is a quota exceeded error.
func IsQuotaError(err error) bool {
	return hasRuntimeCode(err, ErrCodeQuotaExceeded)
}

// IsRegexError returns true if the error is a regex evaluation failure.
func IsRegexError(err error) bool {
	return hasRuntimeCode(err, ErrCodeRegexFailed)
}

func hasRuntimeCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewCycleError creates a RuntimeError for an oscillating iterative group.
func NewCycleError(g *ir.IterativeGroup, current string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCycleDetected,
		Message: fmt.Sprintf("infinite iteration detected on %q", current),
		GroupID: g.ID,
		Pos:     g.Pos,
		Current: current,
	}
}

// NewQuotaError creates a RuntimeError for an iterative group that ran
// past the iteration limit.
func NewQuotaError(g *ir.IterativeGroup, iterations, maxIterations int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("iterative group exceeded max iterations (%d > %d)", iterations, maxIterations),
		GroupID: g.ID,
		Pos:     g.Pos,
		Details: map[string]string{
			"iterations":     strconv.Itoa(iterations),
			"max_iterations": strconv.Itoa(maxIterations),
		},
	}
}

// NewRegexError creates a RuntimeError for a failed substitution or split.
func NewRegexError(pattern string, pos ir.Pos, current string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRegexFailed,
		Message: fmt.Sprintf("pattern %q failed: %v", pattern, err),
		Pos:     pos,
		Current: current,
		Details: map[string]string{"pattern": pattern},
		Err:     err,
	}
}
