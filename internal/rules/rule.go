package rules

import (
	"github.com/xcbat/binskim/internal/model"
	"github.com/xcbat/binskim/internal/pefile"
	"github.com/xcbat/binskim/internal/symbols"
)

// Rule is the contract every hardening verification rule implements.
//
// Rules hold no mutable state between invocations, so a single instance
// may be used concurrently across distinct artifacts.
type Rule interface {
	// ID returns the stable rule identifier (for example "BA2013").
	ID() string

	// Name returns the stable human-readable rule name.
	Name() string

	// Summary returns a one-line description of what the rule verifies.
	Summary() string

	// CanAnalyze decides from header metadata alone whether the rule is
	// meaningful for the image. The returned reason explains a negative
	// decision; it is drawn from a fixed set of strings. CanAnalyze never
	// consults the symbol index and has no side effects.
	CanAnalyze(im *pefile.Image) (bool, string)

	// Analyze runs the rule's decision tree and returns its verdict.
	// Precondition: CanAnalyze returned true for this image. The index may
	// be nil, which every rule must handle as a distinct outcome rather
	// than a crash.
	Analyze(im *pefile.Image, idx symbols.Index) model.Verdict
}

// Applicability gate reasons. The driver records these verbatim in
// NOT_APPLICABLE verdicts, so they form part of the stable output surface.
const (
	// ReasonNotExecutableImage is returned for object files and other
	// inputs that are not linked executable images.
	ReasonNotExecutableImage = "image is not a linked executable image"

	// ReasonUnsupportedMachine is returned for machine types the rules
	// do not understand.
	ReasonUnsupportedMachine = "image targets an unsupported machine type"

	// ReasonManagedAssembly is returned for managed (IL-only capable)
	// assemblies, whose mitigations are the runtime's responsibility.
	ReasonManagedAssembly = "image is a managed assembly"
)

// gateNativeImage is the applicability check shared by rules that only
// apply to native executable images. It inspects header metadata only.
func gateNativeImage(im *pefile.Image) (bool, string) {
	if !im.IsExecutableImage() {
		return false, ReasonNotExecutableImage
	}
	if !im.IsSupportedMachine() {
		return false, ReasonUnsupportedMachine
	}
	if im.IsManaged() {
		return false, ReasonManagedAssembly
	}
	return true, ""
}
