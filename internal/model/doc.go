// Package model defines the core data structures used throughout binskim.
//
// This package contains the following main types:
//   - Level: The verdict level assigned to a rule outcome
//   - Verdict: The leveled, justified outcome of one rule on one artifact
//   - BinaryScanReport: The main scan result structure for one artifact
//   - ScanSummary: A summarized, human-readable view of a scan
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (rules, pipeline, report, database) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
