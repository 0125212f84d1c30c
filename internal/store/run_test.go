package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repp/internal/ir"
	"github.com/roach88/repp/internal/testutil"
)

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1", 1, "a b", "a", "b")
	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestWriteRun_TokensStoredAsCanonicalJSON(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", 1, "x", "a\"b", "")))

	var raw string
	require.NoError(t, s.db.QueryRow("SELECT tokens FROM runs WHERE id = ?", "run-1").Scan(&raw))
	assert.Equal(t, `["a\"b",""]`, raw)
}

func TestWriteRun_TokensKeepNormalizationForm(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1", 1, "x", "e\u0301", "\u00e9")
	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"e\u0301", "\u00e9"}, got.Tokens)
}

func TestWriteRun_EmptyTokenList(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1", 1, "")
	run.Tokens = nil
	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Tokens)
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", 1, "first")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", 2, "second")))

	n, err := s.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Input)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestListRuns_DeterministicOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Insert out of order; ties on seq break by id.
	require.NoError(t, s.WriteRun(ctx, createTestRun("c", 3, "3")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("b", 1, "1b")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("a", 1, "1a")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("d", 2, "2")))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)

	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, ids)
}

func TestListRuns_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestListRunsByRuleSet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := createTestRun("r1", 1, "x")
	r2 := createTestRun("r2", 2, "y")
	r2.RuleSetHash = "other"
	require.NoError(t, s.WriteRun(ctx, r1))
	require.NoError(t, s.WriteRun(ctx, r2))

	runs, err := s.ListRunsByRuleSet(ctx, "other")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r2", runs[0].ID)
}

func TestMaxSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, s.WriteRun(ctx, createTestRun("r1", 7, "x")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("r2", 3, "y")))

	seq, err = s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestRecorder_StampsRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec, err := NewRecorder(ctx, s, testutil.NewSequentialIDGenerator("run"))
	require.NoError(t, err)

	run, err := rec.Record(ctx, Run{
		RuleSetHash: "h",
		RulesPath:   "r.rpp",
		Input:       "a b",
		Output:      "a b",
		Tokens:      []string{"a", "b"},
	})
	require.NoError(t, err)

	want, err := ir.TokensHash([]string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, "run-0001", run.ID)
	assert.Equal(t, int64(1), run.Seq)
	assert.Equal(t, want, run.TokensHash)
	assert.Equal(t, ir.EngineVersion, run.EngineVersion)
	assert.Equal(t, ir.IRVersion, run.IRVersion)

	stored, err := s.ReadRun(ctx, "run-0001")
	require.NoError(t, err)
	assert.Equal(t, run, stored)
}

func TestRecorder_ResumesSeqAfterReopen(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, createTestRun("old", 41, "x")))

	rec, err := NewRecorder(ctx, s, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(41), rec.Clock().Current())

	run, err := rec.Record(ctx, Run{Input: "y"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), run.Seq)
	assert.Len(t, run.ID, 36, "default IDs are UUIDv7")
}

func TestRecorder_ConcurrentSeqUnique(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec, err := NewRecorder(ctx, s, testutil.NewSequentialIDGenerator("run"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := rec.Record(ctx, Run{Input: fmt.Sprint(i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 20)
	for i, r := range runs {
		assert.Equal(t, int64(i+1), r.Seq)
	}
}

func TestReplay(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, createTestRun("r1", 1, "a b", "a", "b")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("r2", 2, "c d", "c", "d")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("r3", 3, "boom", "boom")))

	result, err := s.Replay(ctx, Query{}, func(input string) ([]string, error) {
		switch input {
		case "a b":
			return []string{"a", "b"}, nil
		case "c d":
			return []string{"c d"}, nil
		default:
			return nil, errors.New("CYCLE_DETECTED")
		}
	})
	require.NoError(t, err)

	assert.False(t, result.OK())
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Matched)
	require.Len(t, result.Mismatches, 2)
	assert.Equal(t, "r2", result.Mismatches[0].Run.ID)
	assert.Equal(t, []string{"c d"}, result.Mismatches[0].Got)
	assert.Equal(t, "r3", result.Mismatches[1].Run.ID)
	assert.Equal(t, "CYCLE_DETECTED", result.Mismatches[1].Err)
}

func TestReplay_Empty(t *testing.T) {
	s := createTestStore(t)

	result, err := s.Replay(context.Background(), Query{}, func(string) ([]string, error) {
		t.Fatal("tokenize should not be called")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, 0, result.Total)
}

func TestReplay_ContextCancelled(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.WriteRun(context.Background(), createTestRun("r1", 1, "x", "x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Replay(ctx, Query{}, func(s string) ([]string, error) { return []string{s}, nil })
	assert.Error(t, err)
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen.Generate()
		assert.Len(t, id, 36)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	c = NewClockAt(10)
	assert.Equal(t, int64(11), c.Next())
}
