package store

import "errors"

// ErrRunNotFound is returned by ReadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded tokenization request.
type Run struct {
	ID            string   `json:"id"`
	Seq           int64    `json:"seq"`
	RuleSetHash   string   `json:"ruleset_hash"`
	RulesPath     string   `json:"rules_path"`
	Input         string   `json:"input"`
	Output        string   `json:"output"`
	Tokens        []string `json:"tokens"`
	TokensHash    string   `json:"tokens_hash"`
	EngineVersion string   `json:"engine_version"`
	IRVersion     string   `json:"ir_version"`
}
