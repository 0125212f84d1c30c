// Package ir provides the in-memory representation of a compiled REPP rule set.
//
// The compiler produces an *ir.RuleSet from rule files; the engine consumes it.
// This package imports nothing internal, which keeps it the foundational layer
// with no circular dependencies.
//
// Key design constraints:
//   - Operation is a closed sum type: *Rule, *Group, *IterativeGroup
//   - A RuleSet is never mutated after compilation; activation changes
//     produce a copy (see RuleSet.WithActivation)
//   - Canonical JSON (MarshalCanonical) is the only serialization used for
//     content hashing and golden snapshots
package ir
