package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repp/internal/ir"
)

// TestQuotaEnforcer_WithinLimit tests normal operation within quota.
func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(10)
	g := &ir.IterativeGroup{ID: "1"}

	for i := 0; i < 10; i++ {
		assert.NoError(t, q.Check(g), "iteration %d should be allowed", i+1)
	}

	assert.Equal(t, 10, q.Current())
	assert.Equal(t, 10, q.MaxIterations())
}

// TestQuotaEnforcer_ExceedsLimit tests quota exceeded error.
func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(5)
	g := &ir.IterativeGroup{ID: "4", Pos: ir.Pos{File: "r.rpp", Line: 9}}

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Check(g))
	}

	err := q.Check(g)
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "4", re.GroupID)
	assert.Equal(t, 9, re.Pos.Line)
	assert.Equal(t, "6", re.Details["iterations"])
	assert.Equal(t, "5", re.Details["max_iterations"])
}

// TestQuotaEnforcer_Unlimited tests that zero disables the quota.
func TestQuotaEnforcer_Unlimited(t *testing.T) {
	q := NewQuotaEnforcer(0)
	g := &ir.IterativeGroup{ID: "1"}

	for i := 0; i < 10000; i++ {
		require.NoError(t, q.Check(g))
	}
	assert.Equal(t, 10000, q.Current())
}

// TestIsQuotaError_Wrapped tests errors.As through wrapping.
func TestIsQuotaError_Wrapped(t *testing.T) {
	g := &ir.IterativeGroup{ID: "1"}
	err := fmt.Errorf("tokenize: %w", NewQuotaError(g, 11, 10))

	assert.True(t, IsQuotaError(err))
	assert.False(t, IsCycleError(err))
	assert.Contains(t, err.Error(), "QUOTA_EXCEEDED")
}
