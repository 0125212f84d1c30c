package store

import (
	"context"
	"fmt"

	"github.com/roach88/repp/internal/ir"
)

// Recorder stamps runs with an ID, a seq and version metadata and writes
// them to the store.
//
// Thread-safety: Record may be called from several goroutines. Seq values
// are unique; the store serializes the writes.
type Recorder struct {
	store *Store
	clock *Clock
	ids   IDGenerator
}

// NewRecorder creates a recorder whose clock resumes after the highest seq
// already in s. A nil ids uses UUIDv7Generator.
func NewRecorder(ctx context.Context, s *Store, ids IDGenerator) (*Recorder, error) {
	maxSeq, err := s.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("new recorder: %w", err)
	}
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Recorder{
		store: s,
		clock: NewClockAt(maxSeq),
		ids:   ids,
	}, nil
}

// Record fills in the run's ID, Seq, TokensHash and versions, writes it and
// returns the stored run. Fields the caller already set are kept.
func (r *Recorder) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = r.ids.Generate()
	}
	run.Seq = r.clock.Next()
	if run.Tokens == nil {
		run.Tokens = []string{}
	}

	hash, err := ir.TokensHash(run.Tokens)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	run.TokensHash = hash
	if run.EngineVersion == "" {
		run.EngineVersion = ir.EngineVersion
	}
	if run.IRVersion == "" {
		run.IRVersion = ir.IRVersion
	}

	if err := r.store.WriteRun(ctx, run); err != nil {
		return Run{}, err
	}
	return run, nil
}

// Clock returns the recorder's clock.
func (r *Recorder) Clock() *Clock {
	return r.clock
}
