package config

import "path/filepath"

// RuleOverrides holds rule selection for a scan target.
// This allows silencing or restricting rules per binary.
type RuleOverrides struct {
	// DisabledRules are rule IDs that are skipped for this target.
	DisabledRules []string `yaml:"disabledRules,omitempty"`

	// EnabledRules, when non-empty, restricts the scan to these rule IDs.
	// DisabledRules still applies on top of this list.
	EnabledRules []string `yaml:"enabledRules,omitempty"`
}

// File represents the structure of the .binskim configuration file.
type File struct {
	// Artifacts maps path patterns to their rule overrides.
	// Keys are glob patterns matched against the scanned path
	// (e.g., "bin/*.dll" or an exact path).
	Artifacts map[string]RuleOverrides `yaml:"artifacts,omitempty"`

	// Defaults contains rule overrides applied to all targets
	// unless extended by a matching artifact pattern.
	Defaults RuleOverrides `yaml:"defaults,omitempty"`
}

// GetRuleOverrides returns the rule overrides for a scanned path.
// It merges pattern-matched overrides on top of the defaults.
func (cf *File) GetRuleOverrides(artifact string) RuleOverrides {
	result := RuleOverrides{
		DisabledRules: append([]string(nil), cf.Defaults.DisabledRules...),
		EnabledRules:  append([]string(nil), cf.Defaults.EnabledRules...),
	}

	for pattern, overrides := range cf.Artifacts {
		matched := pattern == artifact
		if !matched {
			if ok, err := filepath.Match(pattern, artifact); err == nil && ok {
				matched = true
			}
		}
		if !matched {
			continue
		}

		result.DisabledRules = append(result.DisabledRules, overrides.DisabledRules...)
		if len(overrides.EnabledRules) > 0 {
			result.EnabledRules = overrides.EnabledRules
		}
	}

	return result
}
