package ir

import (
	"sort"

	"github.com/dlclark/regexp2"
)

// RuleSet is a fully compiled REPP configuration.
//
// The engine holds exactly one RuleSet at a time and replaces it wholesale on
// reload, so a RuleSet is treated as immutable once the compiler returns it.
type RuleSet struct {
	// Root is the top-level group. Never nil.
	Root *Group

	// Tokenizer is the split pattern source text; empty when none was declared.
	Tokenizer string

	// TokenizerRegexp is the compiled tokenizer; nil when Tokenizer is empty.
	TokenizerRegexp *regexp2.Regexp

	// Info is the free-text "@" declaration; empty when none was declared.
	Info string

	// Active maps each declared activation group to its state.
	Active map[string]bool

	// Groups indexes iterative groups by ID.
	Groups map[string]*IterativeGroup

	// Files lists every loaded file once, in first-load order.
	Files []string
}

// NewRuleSet returns an empty rule set: empty root group, no tokenizer.
func NewRuleSet() *RuleSet {
	return &RuleSet{
		Root:   &Group{Name: "root"},
		Active: make(map[string]bool),
		Groups: make(map[string]*IterativeGroup),
	}
}

// HasTokenizer reports whether a tokenization pattern was declared.
func (rs *RuleSet) HasTokenizer() bool {
	return rs.TokenizerRegexp != nil
}

// GroupNames returns the declared activation group names, sorted.
func (rs *RuleSet) GroupNames() []string {
	names := make([]string, 0, len(rs.Active))
	for name := range rs.Active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithActivation returns a shallow copy of rs with name set to active.
// The rewrite tree is shared; only the activation map is copied.
func (rs *RuleSet) WithActivation(name string, active bool) *RuleSet {
	clone := *rs
	clone.Active = make(map[string]bool, len(rs.Active))
	for k, v := range rs.Active {
		clone.Active[k] = v
	}
	clone.Active[name] = active
	return &clone
}
