package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
//
// Tokens are serialized to canonical JSON so replays compare TEXT directly.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	tokensJSON, err := marshalTokens(run.Tokens)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, ruleset_hash, rules_path, input, output, tokens, tokens_hash, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Seq,
		run.RuleSetHash,
		run.RulesPath,
		run.Input,
		run.Output,
		tokensJSON,
		run.TokensHash,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}
