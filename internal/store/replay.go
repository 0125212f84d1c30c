package store

import (
	"context"
	"fmt"
	"slices"
)

// TokenizeFunc re-tokenizes one recorded input.
type TokenizeFunc func(input string) ([]string, error)

// Mismatch is a recorded run whose tokens differ on replay.
type Mismatch struct {
	Run Run      `json:"run"`
	Got []string `json:"got,omitempty"`
	Err string   `json:"error,omitempty"`
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Total      int        `json:"total"`
	Matched    int        `json:"matched"`
	Mismatches []Mismatch `json:"mismatches"`
}

// OK reports whether every run reproduced its recorded tokens.
func (r ReplayResult) OK() bool {
	return len(r.Mismatches) == 0
}

// Replay re-tokenizes the inputs of the runs selected by q in seq order and
// compares the result with the recorded tokens. A tokenize error counts as
// a mismatch; only store and context errors are returned.
func (s *Store) Replay(ctx context.Context, q Query, tokenize TokenizeFunc) (ReplayResult, error) {
	runs, err := s.QueryRuns(ctx, q)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	result := ReplayResult{Mismatches: []Mismatch{}}
	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Total++

		got, err := tokenize(run.Input)
		switch {
		case err != nil:
			result.Mismatches = append(result.Mismatches, Mismatch{Run: run, Err: err.Error()})
		case !slices.Equal(got, run.Tokens):
			result.Mismatches = append(result.Mismatches, Mismatch{Run: run, Got: got})
		default:
			result.Matched++
		}
	}
	return result, nil
}
