// Package engine implements the REPP rewrite engine.
//
// The engine holds one compiled rule set and applies it to strings.
//
// ARCHITECTURE:
//
// Operations form a tree: the root group holds rules, plain groups and
// iterative groups. Apply walks the tree depth first in declaration order:
//
//  1. Rule: replace every non-overlapping match of the pattern
//  2. Group: fold the group's operations over the string
//  3. IterativeGroup: repeat the group until the output stops changing
//
// Tokenize runs Apply and splits the result by the tokenization pattern.
//
// TERMINATION:
//
// An iterative group that returns to the string it produced two iterations
// earlier fails with CYCLE_DETECTED. Longer cycles are only stopped by the
// optional iteration quota (WithMaxIterations), which fails with
// QUOTA_EXCEEDED. Either error aborts the whole call; there is no partial
// result.
//
// CONCURRENCY:
//
// The loaded rule set is immutable. Reload, Activate and Deactivate swap in
// a new one under a write lock, so Apply and Tokenize are safe to call from
// many goroutines while rules are being reloaded.
package engine
