package engine

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/repp/internal/compiler"
	"github.com/roach88/repp/internal/ir"
)

// Engine is the REPP facade: it owns the loaded rule set and exposes
// Apply and Tokenize.
//
// Thread-safety model:
//   - The rule set is an immutable *ir.RuleSet snapshot behind an RWMutex
//   - Apply/Tokenize take the snapshot under a read lock and run lock-free
//   - Reload/Activate/Deactivate build a new snapshot and swap it under the
//     write lock, so callers never observe a partially reloaded engine
//
// INVARIANTS:
//   - rs is never nil
//   - a failed Reload leaves the previous rule set installed
type Engine struct {
	path string

	mu       sync.RWMutex
	rs       *ir.RuleSet
	warnings []compiler.Warning

	maxIterations int
	matchTimeout  time.Duration
	normalize     bool
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithMaxIterations bounds how many times one iterative group may be applied
// within a single Apply call.
//
// Default: 0 (unlimited; only period-2 cycles are caught).
// Use WithMaxIterations(1000) to also stop longer cycles and strings that
// grow forever.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		e.maxIterations = n
	}
}

// WithMatchTimeout bounds each regex match. A match that runs out of time
// fails the Apply call with REGEX_FAILED.
func WithMatchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.matchTimeout = d
	}
}

// WithNormalize makes Apply and Tokenize convert their input to Unicode
// NFC before any rule runs.
func WithNormalize(on bool) Option {
	return func(e *Engine) {
		e.normalize = on
	}
}

// New creates an Engine for the rule file at path.
//
// An empty path gives an engine with an empty root group and no
// tokenization pattern: Apply returns its input and Tokenize returns it as
// a single token.
func New(path string, opts ...Option) (*Engine, error) {
	e := &Engine{
		path: path,
		rs:   ir.NewRuleSet(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Path returns the configured top-level rule file ("" for none).
func (e *Engine) Path() string {
	return e.path
}

// Reload discards all state and loads the rule files from scratch.
//
// The new rule set is built without holding the lock and swapped in at
// once: activation flags, info, tokenizer and rules are all reset. On error
// the previous rule set stays installed and the error is returned.
func (e *Engine) Reload() error {
	rs := ir.NewRuleSet()
	var warnings []compiler.Warning

	if e.path != "" {
		res, err := compiler.Compile(e.path, compiler.WithMatchTimeout(e.matchTimeout))
		if err != nil {
			return fmt.Errorf("load %s: %w", e.path, err)
		}
		rs = res.RuleSet
		warnings = res.Warnings
	}

	e.mu.Lock()
	e.rs = rs
	e.warnings = warnings
	e.mu.Unlock()

	for _, w := range warnings {
		logrus.WithFields(logrus.Fields{
			"code": w.Code,
			"file": w.File,
		}).Warn(w.Message)
	}
	if e.path != "" {
		logrus.WithFields(logrus.Fields{
			"path":  e.path,
			"files": len(rs.Files),
			"rules": ir.CountRules(rs.Root),
		}).Info("rules loaded")
	}
	return nil
}

// Activate marks a declared activation group active.
func (e *Engine) Activate(name string) error {
	return e.setActive(name, true)
}

// Deactivate marks a declared activation group inactive.
func (e *Engine) Deactivate(name string) error {
	return e.setActive(name, false)
}

// setActive swaps in a copy of the rule set with one flag changed.
// Activation flags are bookkeeping; Apply does not consult them.
func (e *Engine) setActive(name string, active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.rs.Active[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGroup, name)
	}
	e.rs = e.rs.WithActivation(name, active)
	return nil
}

// Apply runs every rule of the root group over s and returns the result.
func (e *Engine) Apply(s string) (string, error) {
	return e.apply(e.snapshot(), s)
}

// Tokenize applies the rules and splits the result by the tokenization
// pattern.
//
// Without a tokenization pattern the input is returned unprocessed as a
// single token.
func (e *Engine) Tokenize(s string) ([]string, error) {
	rs := e.snapshot()
	if !rs.HasTokenizer() {
		return []string{s}, nil
	}

	out, err := e.apply(rs, s)
	if err != nil {
		return nil, err
	}

	tokens, err := split(rs.TokenizerRegexp, out)
	if err != nil {
		return nil, NewRegexError(rs.Tokenizer, ir.Pos{}, out, err)
	}
	return tokens, nil
}

func (e *Engine) apply(rs *ir.RuleSet, s string) (string, error) {
	if e.normalize {
		s = norm.NFC.String(s)
	}
	if rs.Root == nil {
		return s, nil
	}
	a := &applier{maxIterations: e.maxIterations}
	return a.group(rs.Root, s)
}

func (e *Engine) snapshot() *ir.RuleSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rs
}

// RuleSet returns the current rule set. It must not be modified.
func (e *Engine) RuleSet() *ir.RuleSet {
	return e.snapshot()
}

// Info returns the "@" declaration, or "".
func (e *Engine) Info() string {
	return e.snapshot().Info
}

// TokenizerPattern returns the ":" declaration, or "" when none was declared.
func (e *Engine) TokenizerPattern() string {
	return e.snapshot().Tokenizer
}

// GroupState is one declared activation group.
type GroupState struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Groups returns the declared activation groups sorted by name.
func (e *Engine) Groups() []GroupState {
	rs := e.snapshot()
	names := rs.GroupNames()
	out := make([]GroupState, 0, len(names))
	for _, name := range names {
		out = append(out, GroupState{Name: name, Active: rs.Active[name]})
	}
	return out
}

// IsActive reports the activation flag of a declared group.
func (e *Engine) IsActive(name string) (bool, error) {
	active, ok := e.snapshot().Active[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
	}
	return active, nil
}

// Hash returns the content hash of the loaded rule set.
func (e *Engine) Hash() string {
	return e.snapshot().MustHash()
}

// Files returns every loaded rule file in load order.
func (e *Engine) Files() []string {
	return slices.Clone(e.snapshot().Files)
}

// Warnings returns the warnings from the last successful load.
func (e *Engine) Warnings() []compiler.Warning {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.warnings)
}
