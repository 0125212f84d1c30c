package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/repp/internal/ir"
)

// marshalTokens converts a token list to canonical JSON TEXT for storage.
// Tokens are stored exactly so replay compares what the engine produced.
func marshalTokens(tokens []string) (string, error) {
	data, err := ir.MarshalCanonical(ir.VerbatimList(tokens))
	if err != nil {
		return "", fmt.Errorf("marshal tokens: %w", err)
	}
	return string(data), nil
}

// unmarshalTokens parses canonical JSON TEXT back into a token list.
func unmarshalTokens(data string) ([]string, error) {
	tokens := []string{}
	if data == "" || data == "[]" {
		return tokens, nil
	}
	if err := json.Unmarshal([]byte(data), &tokens); err != nil {
		return nil, fmt.Errorf("unmarshal tokens: %w", err)
	}
	return tokens, nil
}
