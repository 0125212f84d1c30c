package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/repp/internal/engine"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules is the top-level rule file. LoadScenario resolves it against
	// the scenario file's directory.
	Rules string `yaml:"rules"`

	// MaxIterations enables the iteration quota (0 = unlimited).
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// Activate lists activation groups to turn on before the cases run.
	Activate []string `yaml:"activate,omitempty"`

	// CompileError is the code the rule file is expected to fail with.
	CompileError string `yaml:"compile_error,omitempty"`

	// Cases are run in order against the loaded engine.
	Cases []Case `yaml:"cases"`

	// Assertions validate the loaded rule set.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Case is one input with its expected results.
//
// Apply and Tokens are pointers so that an expected empty string or empty
// token list can be told apart from "not checked".
type Case struct {
	Input  string    `yaml:"input"`
	Apply  *string   `yaml:"apply,omitempty"`
	Tokens *[]string `yaml:"tokens,omitempty"`

	// Error is the runtime error code the case must fail with.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the loaded rule set.
type Assertion struct {
	// Type specifies the assertion type:
	// - "info": Info() equals Value
	// - "tokenizer": TokenizerPattern() equals Value
	// - "groups": declared activation group names equal Names
	// - "deterministic": reload yields the same hash and case results
	Type string `yaml:"type"`

	Value string   `yaml:"value,omitempty"`
	Names []string `yaml:"names,omitempty"`
}

// Assertion type constants.
const (
	AssertInfo          = "info"
	AssertTokenizer     = "tokenizer"
	AssertGroups        = "groups"
	AssertDeterministic = "deterministic"
)

var runtimeCodes = map[string]bool{
	string(engine.ErrCodeCycleDetected): true,
	string(engine.ErrCodeQuotaExceeded): true,
	string(engine.ErrCodeRegexFailed):   true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "case:" vs "cases:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Rules != "" && !filepath.IsAbs(scenario.Rules) {
		scenario.Rules = filepath.Join(filepath.Dir(path), scenario.Rules)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Rules == "" {
		return fmt.Errorf("rules is required")
	}
	if _, err := os.Stat(s.Rules); os.IsNotExist(err) {
		return fmt.Errorf("rules file not found: %s", s.Rules)
	}

	if s.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be non-negative")
	}

	if s.CompileError != "" {
		if len(s.Cases) > 0 || len(s.Assertions) > 0 {
			return fmt.Errorf("compile_error scenarios cannot have cases or assertions")
		}
		return nil
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for i, c := range s.Cases {
		if c.Apply == nil && c.Tokens == nil && c.Error == "" {
			return fmt.Errorf("cases[%d]: one of apply, tokens or error is required", i)
		}
		if c.Error != "" {
			if !runtimeCodes[c.Error] {
				return fmt.Errorf("cases[%d]: unknown error code %q", i, c.Error)
			}
			if c.Apply != nil || c.Tokens != nil {
				return fmt.Errorf("cases[%d]: error cannot be combined with apply or tokens", i)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertInfo, AssertTokenizer, AssertDeterministic:
	case AssertGroups:
		if a.Names == nil {
			return fmt.Errorf("assertions[%d]: names is required for groups", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
