package store

import (
	"context"
	"fmt"
	"strings"
)

// Predicate filters recorded runs.
//
// This is a sealed interface; only types in this package implement it, so
// compilePredicate can switch over every variant.
type Predicate interface {
	predicateNode()
}

// Equals matches runs whose column equals Value.
type Equals struct {
	Column string
	Value  any
}

func (Equals) predicateNode() {}

// SeqAtLeast matches runs with seq >= Seq.
type SeqAtLeast struct {
	Seq int64
}

func (SeqAtLeast) predicateNode() {}

// SeqAtMost matches runs with seq <= Seq.
type SeqAtMost struct {
	Seq int64
}

func (SeqAtMost) predicateNode() {}

// And matches runs that satisfy every predicate. Empty means always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Query selects recorded runs. The zero Query selects every run.
type Query struct {
	Filter Predicate // nil = no filter
	Limit  int       // 0 = no limit
}

// ByRuleSet returns a query for the runs recorded against one rule-set hash.
func ByRuleSet(hash string) Query {
	return Query{Filter: Equals{Column: "ruleset_hash", Value: hash}}
}

// filterColumns are the columns a predicate may name. Column names are
// spliced into SQL, so anything else is rejected.
var filterColumns = map[string]bool{
	"id":             true,
	"ruleset_hash":   true,
	"rules_path":     true,
	"input":          true,
	"tokens_hash":    true,
	"engine_version": true,
	"ir_version":     true,
}

// compile turns q into parameterized SQL.
//
// Every query ends in ORDER BY seq, id COLLATE BINARY so results are
// deterministic. Values are always bound as parameters.
func (q Query) compile() (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(selectRunColumns)

	var params []any
	if q.Filter != nil {
		where, p, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString("WHERE ")
		sb.WriteString(where)
		sb.WriteString("\n")
		params = p
	}

	sb.WriteString("ORDER BY seq ASC, id COLLATE BINARY ASC")

	if q.Limit < 0 {
		return "", nil, fmt.Errorf("negative limit %d", q.Limit)
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return sb.String(), params, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		if !filterColumns[pred.Column] {
			return "", nil, fmt.Errorf("cannot filter on column %q", pred.Column)
		}
		return pred.Column + " = ?", []any{pred.Value}, nil
	case SeqAtLeast:
		return "seq >= ?", []any{pred.Seq}, nil
	case SeqAtMost:
		return "seq <= ?", []any{pred.Seq}, nil
	case And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, p, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, p...)
		}
		return "(" + strings.Join(parts, " AND ") + ")", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// QueryRuns returns the runs selected by q in seq order.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) QueryRuns(ctx context.Context, q Query) ([]Run, error) {
	sql, params, err := q.compile()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return collectRuns(rows)
}
