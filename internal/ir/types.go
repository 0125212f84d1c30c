package ir

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// Operation is one step of a rule group: a rewrite rule, a nested group,
// or an iterative group.
//
// The set of implementations is closed. Callers dispatch with a type switch:
//
//	switch op := op.(type) {
//	case *ir.Rule:
//	case *ir.Group:
//	case *ir.IterativeGroup:
//	}
type Operation interface {
	// Kind returns the operation kind for diagnostics and hashing.
	Kind() OpKind

	operation()
}

// OpKind names the variant of an Operation.
type OpKind string

const (
	KindRule      OpKind = "rule"
	KindGroup     OpKind = "group"
	KindIterative OpKind = "iterative"
)

// Pos is the source location of a declaration.
type Pos struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// IsValid reports whether the position refers to a real source line.
func (p Pos) IsValid() bool {
	return p.File != "" && p.Line > 0
}

func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Rule is a single regex substitution.
//
// Pattern and Replacement hold the text as written in the rule file.
// Template is the replacement translated to regexp2 syntax and Regexp is the
// compiled pattern; both are filled in by the compiler.
type Rule struct {
	Pattern     string
	Replacement string
	Template    string
	Regexp      *regexp2.Regexp
	Pos         Pos
}

func (*Rule) Kind() OpKind { return KindRule }
func (*Rule) operation()   {}

// Group is an ordered list of operations applied once, in declaration order.
type Group struct {
	Name string
	Ops  []Operation
}

func (*Group) Kind() OpKind { return KindGroup }
func (*Group) operation()   {}

// Append adds operations to the end of the group.
func (g *Group) Append(ops ...Operation) {
	g.Ops = append(g.Ops, ops...)
}

// Len returns the number of direct operations in the group.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Ops)
}

// IterativeGroup is a group re-applied until its output stops changing.
//
// ID is the group number from the rule file (the n in "#n" and ">n").
// Pos points at the "#n" line that opened the definition.
type IterativeGroup struct {
	Group
	ID  string
	Pos Pos
}

func (*IterativeGroup) Kind() OpKind { return KindIterative }
func (*IterativeGroup) operation()   {}

// CountRules returns the number of rules reachable from op.
// Iterative groups called more than once are counted once per call site.
func CountRules(op Operation) int {
	switch op := op.(type) {
	case *Rule:
		return 1
	case *Group:
		n := 0
		for _, child := range op.Ops {
			n += CountRules(child)
		}
		return n
	case *IterativeGroup:
		return CountRules(&op.Group)
	default:
		return 0
	}
}
