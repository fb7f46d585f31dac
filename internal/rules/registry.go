package rules

import (
	"sort"
	"strings"

	"github.com/xcbat/binskim/internal/model"
)

// Registry holds the constructed rule instances for one process.
//
// Design decision: We build an explicit registry at startup and pass it by
// reference to the driver instead of discovering rules through reflection
// or package init side effects. Construction is visible in one place,
// tests can build registries with fake rules, and the set of rules a scan
// ran with is always knowable.
type Registry struct {
	// rules maps upper-cased rule ID to the rule instance.
	rules map[string]Rule

	// disabled holds upper-cased rule IDs excluded from List.
	disabled map[string]bool
}

// NewRegistry creates a Registry with all built-in rules registered.
func NewRegistry() *Registry {
	r := &Registry{
		rules:    make(map[string]Rule),
		disabled: make(map[string]bool),
	}

	r.Register(NewStackProtectionInitRule())

	return r
}

// Register adds a rule to the registry. A rule with a duplicate ID
// replaces the earlier registration.
func (r *Registry) Register(rule Rule) {
	r.rules[strings.ToUpper(strings.TrimSpace(rule.ID()))] = rule
}

// Disable excludes the given rule IDs from List. Unknown IDs are ignored
// so configuration files stay forward compatible.
func (r *Registry) Disable(ids ...string) {
	for _, id := range ids {
		r.disabled[strings.ToUpper(strings.TrimSpace(id))] = true
	}
}

// Get returns the rule registered under id, if any.
func (r *Registry) Get(id string) (Rule, bool) {
	rule, ok := r.rules[strings.ToUpper(strings.TrimSpace(id))]
	return rule, ok
}

// List returns the enabled rules sorted by ID.
// Stable ordering keeps scan output reproducible across runs.
func (r *Registry) List() []Rule {
	out := make([]Rule, 0, len(r.rules))
	for id, rule := range r.rules {
		if r.disabled[id] {
			continue
		}
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Infos returns metadata for the enabled rules, sorted by ID.
// Used by the rules subcommand and report footers.
func (r *Registry) Infos() []model.RuleInfo {
	rs := r.List()
	infos := make([]model.RuleInfo, 0, len(rs))
	for _, rule := range rs {
		infos = append(infos, model.RuleInfo{
			ID:      rule.ID(),
			Name:    rule.Name(),
			Summary: rule.Summary(),
		})
	}
	return infos
}

// Count returns the number of enabled rules.
func (r *Registry) Count() int {
	return len(r.List())
}
