// Package harness provides conformance testing for REPP rule files.
//
// A scenario names a rule file, a list of cases and optional assertions.
// Each case feeds one input through Apply and Tokenize and checks the
// result. Scenarios can also expect the rule file to fail to load.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rules: rules/main.rpp        # relative to the scenario file
//	max_iterations: 100          # optional quota
//	activate: [german]           # optional activation groups
//	cases:
//	  - input: "aaa"
//	    apply: "bbb"
//	    tokens: ["bbb"]
//	  - input: "ab"
//	    error: CYCLE_DETECTED
//	assertions:
//	  - type: info
//	    value: "demo rules"
//	  - type: deterministic
//
// A scenario that expects a load failure sets compile_error (for example
// E204) and has no cases.
//
// # Assertion Types
//
//   - info: the "@" declaration equals value
//   - tokenizer: the ":" declaration equals value
//   - groups: the declared activation groups equal names
//   - deterministic: a reload gives the same hash and the same case results
//
// # Deterministic Testing
//
// Every case is stamped with a seq from a fresh store.Clock, so a
// scenario's trace is byte-identical across runs and can be compared with a
// golden snapshot (see RunWithGolden).
package harness
