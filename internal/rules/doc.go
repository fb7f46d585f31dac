// Package rules provides hardening verification rules for PE images.
//
// # Purpose
//
// Each rule inspects an image header and its debug-symbol index to decide
// whether one compiler/linker security mitigation was correctly enabled,
// and returns exactly one leveled, justified verdict.
//
// # Design Philosophy
//
// Rules follow a common contract so the driver can treat them uniformly:
//  1. CanAnalyze is a pure function of header metadata; it never touches
//     the symbol index and decides applicability up front
//  2. Analyze is an ordered, short-circuiting decision tree in which every
//     terminal node produces a verdict; no input combination falls through
//  3. Justification messages come from a fixed per-rule template catalog,
//     parameterized only by artifact identity, so output is machine-diffable
//  4. Rules are stateless; the same rule value is safely used concurrently
//     across artifacts
//
// # Registration
//
// Rules are registered in an explicit Registry constructed once at startup
// and passed by reference to the driver. There is no runtime discovery.
//
// # Verdict levels
//
// A missing symbol index is reported as an ERROR verdict, never conflated
// with FAIL: it means the analysis could not be completed, not that the
// mitigation is absent.
package rules
