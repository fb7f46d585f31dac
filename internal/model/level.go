package model

// Level represents the outcome class of running one rule against one artifact.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
//
// The levels are deliberately a closed set: every decision path in a rule
// terminates in exactly one of them, and report writers and the history
// database rely on the set never growing silently.
type Level int

const (
	// LevelPass indicates the mitigation is correctly enabled, or is not
	// required for this artifact (for example, an image with no executable
	// code has nothing to protect).
	LevelPass Level = iota

	// LevelFail indicates the mitigation is missing, disabled, or
	// ineffective. This is the only level that causes a non-zero exit code.
	LevelFail

	// LevelError indicates the analysis could not be completed, most
	// commonly because required debug information was unavailable.
	// An Error is never a statement about the mitigation itself and must
	// never be conflated with LevelFail.
	LevelError

	// LevelNotApplicable indicates the rule is not meaningful for this
	// artifact, as decided by the applicability gate from header metadata
	// alone (for example, a managed IL-only image).
	LevelNotApplicable

	// LevelInformational indicates a neutral observation that carries no
	// pass/fail judgement.
	LevelInformational
)

// String returns a human-readable representation of the verdict level.
func (l Level) String() string {
	switch l {
	case LevelPass:
		return "PASS"
	case LevelFail:
		return "FAIL"
	case LevelError:
		return "ERROR"
	case LevelNotApplicable:
		return "NOT_APPLICABLE"
	case LevelInformational:
		return "INFO"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a stored string representation back into a Level.
// It is the inverse of String() and is used when loading verdicts from the
// history database. Unknown strings map to LevelError so that corrupted
// rows surface loudly rather than counting as passes.
func ParseLevel(s string) Level {
	switch s {
	case "PASS":
		return LevelPass
	case "FAIL":
		return LevelFail
	case "ERROR":
		return LevelError
	case "NOT_APPLICABLE":
		return LevelNotApplicable
	case "INFO":
		return LevelInformational
	default:
		return LevelError
	}
}

// MarshalText implements encoding.TextMarshaler so Levels serialize as
// their symbolic names in JSON output rather than opaque integers.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	*l = ParseLevel(string(text))
	return nil
}
