package model

import (
	"time"

	"github.com/xcbat/binskim/internal/pefile"
	"github.com/xcbat/binskim/internal/symbols"
)

// BinaryScanReport is the main scan result structure for one artifact.
// It contains the artifact's header facts and the verdicts produced by
// every applicable rule.
//
// Design decision: We use a single struct per artifact rather than a flat
// verdict stream to simplify serialization and database storage. The
// ScanSummary sub-struct groups the severity counts for quick access.
type BinaryScanReport struct {
	// === Basic Information ===

	// Artifact is the path of the scanned binary.
	Artifact string `json:"artifact"`

	// Digest is the SHA-256 digest of the file contents, used as a stable
	// identity across renames and for history comparison.
	Digest string `json:"digest,omitempty"`

	// DateScanned is the timestamp when the scan was performed.
	DateScanned time.Time `json:"date_scanned"`

	// === Header Facts ===
	// Immutable facts read from the image header, recorded for reporting.

	// Machine is the human-readable machine type (for example "x86-64").
	Machine string `json:"machine,omitempty"`

	// Subsystem is the numeric PE subsystem value.
	Subsystem uint16 `json:"subsystem,omitempty"`

	// IsDLL is true if the image is a dynamic library.
	IsDLL bool `json:"is_dll"`

	// IsManaged is true if the image is a managed (IL-only) assembly.
	IsManaged bool `json:"is_managed"`

	// SectionCount is the number of sections in the image.
	SectionCount int `json:"section_count,omitempty"`

	// HasSymbolIndex is true if a debug-symbol index was available for
	// this artifact. When false, symbol-dependent rules report Error.
	HasSymbolIndex bool `json:"has_symbol_index"`

	// === Analysis State ===
	// In-memory handles shared between pipeline steps, never serialized.

	// Image is the opened header view of the artifact.
	Image *pefile.Image `json:"-"` // Excluded from JSON

	// Index is the debug-symbol index, nil when unavailable.
	Index symbols.Index `json:"-"` // Excluded from JSON

	// === Verdicts ===

	// Verdicts contains one entry per rule evaluated against this artifact,
	// including NotApplicable outcomes from the applicability gate.
	Verdicts []Verdict `json:"verdicts,omitempty"`

	// === Scan State ===

	// Summary contains the aggregated verdict counts.
	Summary *ScanSummary `json:"summary,omitempty"`

	// Error contains any error that occurred while loading the artifact.
	// Only set if the image could not be read; rules never run in that case.
	Error error `json:"-"` // Excluded from JSON

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewBinaryScanReport creates an empty report for the given artifact path.
func NewBinaryScanReport(artifact string) *BinaryScanReport {
	return &BinaryScanReport{
		Artifact:    artifact,
		DateScanned: time.Now().UTC(),
	}
}

// AddVerdict appends a verdict to the report.
func (r *BinaryScanReport) AddVerdict(v Verdict) {
	r.Verdicts = append(r.Verdicts, v)
}

// SetError records a loading error on the report.
func (r *BinaryScanReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// HasFailures reports whether any verdict is at LevelFail.
func (r *BinaryScanReport) HasFailures() bool {
	for _, v := range r.Verdicts {
		if v.Level == LevelFail {
			return true
		}
	}
	return false
}
