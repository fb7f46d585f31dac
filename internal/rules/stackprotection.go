package rules

import (
	"fmt"

	"github.com/xcbat/binskim/internal/model"
	"github.com/xcbat/binskim/internal/pefile"
	"github.com/xcbat/binskim/internal/symbols"
)

// Function names emitted by the MSVC stack-protection machinery.
//
// The check function is generated into every protected function's
// epilogue; the init candidates are the CRT entry points that seed the
// global cookie from a source of randomness at startup. The init list is
// ordered and iterated deterministically, short-circuiting on first hit.
const checkFunctionName = "__security_check_cookie"

var initFunctionNames = [...]string{
	"__security_init_cookie",
	"__scrt_initialize_default_local_stack_guard",
}

// Message template catalog for the stack-protection initialization rule.
// Every reachable decision path has exactly one template; templates are
// parameterized only by artifact identity so output stays diffable.
const (
	msgNoDebugInfo = "%s: this analysis requires debug information that could not be obtained. " +
		"The rule cannot determine whether stack protection was initialized."

	msgNoCode = "%s: the image contains no executable code, so stack protection is not required."

	msgNotUsed = "%s: the image does not use stack protection. No function carries a security " +
		"cookie check, so cookie initialization is not required."

	msgNotInitialized = "%s: the image uses stack protection but never initializes the security " +
		"cookie. An uninitialized cookie retains its well-known default value instead of being " +
		"seeded from a source of randomness at startup. An attacker who corrupts the stack can " +
		"therefore forge the expected cookie value, which defeats the mitigation entirely."

	msgInitialized = "%s: the image enables stack protection and correctly initializes the " +
		"security cookie at startup."
)

// StackProtectionInitRule verifies that images using compiler stack
// protection also initialize the security cookie.
//
// The pass/fail decision depends only on whether an initialization
// function is present; the presence of the check function is probed first
// solely to choose between the "not used" and "never initialized"
// justification templates.
type StackProtectionInitRule struct{}

// NewStackProtectionInitRule constructs the rule. The returned value is
// stateless and safe for concurrent use.
func NewStackProtectionInitRule() *StackProtectionInitRule {
	return &StackProtectionInitRule{}
}

// ID implements Rule.
func (r *StackProtectionInitRule) ID() string { return "BA2013" }

// Name implements Rule.
func (r *StackProtectionInitRule) Name() string { return "InitializeStackProtection" }

// Summary implements Rule.
func (r *StackProtectionInitRule) Summary() string {
	return "Binaries that use stack protection must initialize the security cookie."
}

// CanAnalyze implements Rule. The rule applies to native executable
// images only; the decision is made from header metadata alone.
func (r *StackProtectionInitRule) CanAnalyze(im *pefile.Image) (bool, string) {
	return gateNativeImage(im)
}

// Analyze implements Rule. The decision tree is ordered and
// short-circuiting; every terminal node returns exactly one verdict.
func (r *StackProtectionInitRule) Analyze(im *pefile.Image, idx symbols.Index) model.Verdict {
	// 1. Without a symbol index the analysis cannot be completed. This is
	// an ERROR outcome, distinct from a mitigation failure.
	if idx == nil {
		return r.verdict(im, model.LevelError, msgNoDebugInfo)
	}

	// 2. An image with neither a global function nor an executable-section
	// contribution has nothing to protect.
	if !idx.HasGlobalFunctions() && !idx.HasExecutableSectionContributions() {
		return r.verdict(im, model.LevelPass, msgNoCode)
	}

	// 3. Probe feature usage. The check lookup is exact and case
	// sensitive; the init probe walks the candidate list in order and
	// stops at the first hit.
	_, usesCheck := idx.FindGlobalFunction(checkFunctionName, true)

	usesInit := false
	for _, name := range initFunctionNames {
		if _, found := idx.FindGlobalFunction(name, true); found {
			usesInit = true
			break
		}
	}

	// 4. Verdict table. Only usesInit decides pass/fail; usesCheck
	// selects between the "not used" and "never initialized" messages.
	switch {
	case usesInit:
		return r.verdict(im, model.LevelPass, msgInitialized)
	case usesCheck:
		return r.verdict(im, model.LevelFail, msgNotInitialized)
	default:
		return r.verdict(im, model.LevelPass, msgNotUsed)
	}
}

// verdict builds a verdict for this rule against the given image.
func (r *StackProtectionInitRule) verdict(im *pefile.Image, level model.Level, template string) model.Verdict {
	return model.Verdict{
		RuleID:   r.ID(),
		RuleName: r.Name(),
		Artifact: im.Path,
		Level:    level,
		Message:  fmt.Sprintf(template, im.Path),
	}
}
