// Package store provides a SQLite-backed run log for REPP tokenization.
//
// Every recorded run keeps the input line, the processed string, the token
// list and the hash of the rule set that produced them. A later replay
// re-tokenizes the recorded inputs and reports every run whose tokens
// changed, which makes rule edits reviewable against real traffic.
//
// # Patterns
//
// Logical time:
//   - Runs are ordered by seq INTEGER (logical clock), never timestamps
//   - A reopened log resumes from MAX(seq)
//
// Deterministic results:
//   - All queries use ORDER BY seq ASC, id ASC COLLATE BINARY
//   - Tokens are stored as canonical JSON so equal lists are equal TEXT
//
// Idempotent writes:
//   - INSERT ... ON CONFLICT(id) DO NOTHING
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
