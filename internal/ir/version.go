package ir

// Version constants for the rule-set representation and engine.
const (
	// IRVersion is the rule-set representation version. Bump it when the
	// canonical hash layout changes.
	IRVersion = "1"

	// EngineVersion is the REPP engine version.
	EngineVersion = "0.1.0"
)
