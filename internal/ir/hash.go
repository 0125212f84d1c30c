package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRuleSet = "repp/ruleset/v1"
	DomainTokens  = "repp/tokens/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the content hash of a rule set.
//
// The hash covers the rewrite tree, tokenizer, info and the set of declared
// activation group names. Activation state and source positions are excluded,
// so toggling a group or moving a rule to another line of the same file does
// not change the hash. Loading the same files twice always yields the same hash.
// Regex text is hashed exactly as written, so rule sets that differ only in
// Unicode normalization get different hashes.
func (rs *RuleSet) Hash() (string, error) {
	canonical, err := MarshalCanonical(rs.canonicalMap())
	if err != nil {
		return "", fmt.Errorf("RuleSet.Hash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRuleSet, canonical), nil
}

// MustHash is like Hash but panics on error. Rule sets built by the
// compiler only contain strings, so marshaling cannot fail.
func (rs *RuleSet) MustHash() string {
	h, err := rs.Hash()
	if err != nil {
		panic(err)
	}
	return h
}

// TokensHash computes a content hash for a token list. Tokens are hashed
// exactly as produced.
func TokensHash(tokens []string) (string, error) {
	canonical, err := MarshalCanonical(VerbatimList(tokens))
	if err != nil {
		return "", fmt.Errorf("TokensHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTokens, canonical), nil
}

func (rs *RuleSet) canonicalMap() map[string]any {
	groups := make([]any, 0, len(rs.Active))
	for _, name := range rs.GroupNames() {
		groups = append(groups, name)
	}
	root := rs.Root
	if root == nil {
		root = &Group{}
	}
	return map[string]any{
		"root":      canonicalOps(root.Ops),
		"tokenizer": Verbatim(rs.Tokenizer),
		"info":      rs.Info,
		"groups":    groups,
	}
}

func canonicalOps(ops []Operation) []any {
	out := make([]any, 0, len(ops))
	for _, op := range ops {
		out = append(out, canonicalOp(op))
	}
	return out
}

func canonicalOp(op Operation) map[string]any {
	switch op := op.(type) {
	case *Rule:
		return map[string]any{
			"kind":        string(KindRule),
			"pattern":     Verbatim(op.Pattern),
			"replacement": Verbatim(op.Replacement),
		}
	case *Group:
		return map[string]any{
			"kind": string(KindGroup),
			"ops":  canonicalOps(op.Ops),
		}
	case *IterativeGroup:
		return map[string]any{
			"kind": string(KindIterative),
			"id":   op.ID,
			"ops":  canonicalOps(op.Ops),
		}
	default:
		return map[string]any{"kind": "unknown"}
	}
}
