package symbols

import "github.com/ianlancetaylor/demangle"

// Function is a global function symbol resolved from the index.
type Function struct {
	// Name is the raw, possibly mangled symbol name.
	Name string

	// SectionNumber is the 1-based number of the defining section.
	SectionNumber int16
}

// DisplayName returns a demangled form of the function name for reports.
// Names that do not demangle are returned unchanged.
func (f Function) DisplayName() string {
	return demangle.Filter(f.Name, demangle.NoClones)
}

// Index is the read-only query surface over an artifact's debug symbols.
// All operations are deterministic; the engine calls each at most once per
// analysis and assumes no ordering between repeated calls.
type Index interface {
	// HasGlobalFunctions reports whether any globally defined function
	// exists in the index.
	HasGlobalFunctions() bool

	// HasExecutableSectionContributions reports whether any defined symbol
	// contributes bytes to an executable section of the image.
	HasExecutableSectionContributions() bool

	// FindGlobalFunction looks up a global function by exact name.
	// When caseSensitive is false the comparison ignores case; the match
	// is always against the full name, never a substring.
	FindGlobalFunction(name string, caseSensitive bool) (Function, bool)

	// GlobalFunctions returns every global function in index order.
	// Reports use this to list the symbols a verdict was decided from.
	GlobalFunctions() []Function
}
