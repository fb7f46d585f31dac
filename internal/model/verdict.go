package model

// Verdict is the leveled, justified outcome of running one rule against
// one artifact. Exactly one Verdict exists per (artifact, rule) pair in a
// completed scan.
//
// Design decision: Verdicts are plain values returned by rules rather than
// emitted through a logging side channel. This keeps rules pure and
// independently testable; applying a reporter to the returned value is the
// driver's job.
type Verdict struct {
	// RuleID is the stable identifier of the rule that produced this
	// verdict (for example "BA2013").
	RuleID string `json:"rule_id"`

	// RuleName is the stable human-readable rule name
	// (for example "InitializeStackProtection").
	RuleName string `json:"rule_name"`

	// Artifact is the identity of the analyzed binary, typically its path.
	Artifact string `json:"artifact"`

	// Level is the outcome class.
	Level Level `json:"level"`

	// Message is the justification text, chosen from the rule's fixed
	// per-decision-path template catalog and parameterized only by the
	// artifact identity. Messages are never free-form so that output stays
	// machine-diffable across runs.
	Message string `json:"message"`
}

// RuleInfo describes a registered rule for listings and report footers.
type RuleInfo struct {
	// ID is the stable rule identifier.
	ID string `json:"id"`

	// Name is the stable rule name.
	Name string `json:"name"`

	// Summary is a one-line description of what the rule verifies.
	Summary string `json:"summary"`
}
