package symbols

import (
	"strings"

	"github.com/xcbat/binskim/internal/pefile"
)

// COFF symbol classification constants.
// See the PE/COFF specification, section "COFF Symbol Table".
const (
	// storageClassExternal marks a symbol visible across object files.
	storageClassExternal = 2

	// dtypeFunction in the upper nibble of the type word marks a function.
	dtypeFunction = 0x20
)

// CoffIndex is an Index backed by an image's COFF symbol table.
//
// The index is built once from the image snapshot; queries never touch the
// file again. Auxiliary records are already absent from the pefile view,
// so every entry is a primary symbol record.
type CoffIndex struct {
	// functions holds all globally defined function symbols.
	functions []Function

	// hasExecContribution caches whether any defined symbol lives in an
	// executable section.
	hasExecContribution bool
}

// FromImage builds a CoffIndex from the image's COFF symbol table.
// It returns nil when the image carries no COFF symbols at all, which
// callers must treat as "no debug information available".
func FromImage(im *pefile.Image) *CoffIndex {
	if im == nil || len(im.CoffSymbols) == 0 {
		return nil
	}

	idx := &CoffIndex{}
	for _, sym := range im.CoffSymbols {
		// Only symbols defined in a real section contribute to the image.
		if sym.SectionNumber <= 0 {
			continue
		}

		if !idx.hasExecContribution {
			if sec, ok := im.SectionByNumber(sym.SectionNumber); ok && sec.IsExecutable() {
				idx.hasExecContribution = true
			}
		}

		if sym.StorageClass == storageClassExternal && sym.Type&0xF0 == dtypeFunction {
			idx.functions = append(idx.functions, Function{
				Name:          sym.Name,
				SectionNumber: sym.SectionNumber,
			})
		}
	}
	return idx
}

// HasGlobalFunctions implements Index.
func (idx *CoffIndex) HasGlobalFunctions() bool {
	return len(idx.functions) > 0
}

// HasExecutableSectionContributions implements Index.
func (idx *CoffIndex) HasExecutableSectionContributions() bool {
	return idx.hasExecContribution
}

// FindGlobalFunction implements Index.
func (idx *CoffIndex) FindGlobalFunction(name string, caseSensitive bool) (Function, bool) {
	for _, fn := range idx.functions {
		if caseSensitive {
			if fn.Name == name {
				return fn, true
			}
			continue
		}
		if strings.EqualFold(fn.Name, name) {
			return fn, true
		}
	}
	return Function{}, false
}

// GlobalFunctions implements Index.
func (idx *CoffIndex) GlobalFunctions() []Function {
	return idx.functions
}

// GlobalFunctionCount returns the number of global functions in the index.
// Used for logging and report statistics.
func (idx *CoffIndex) GlobalFunctionCount() int {
	return len(idx.functions)
}
