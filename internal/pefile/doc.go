// Package pefile provides read-only access to PE image headers.
//
// It wraps the standard library's debug/pe parser behind a narrow Image
// type that exposes only what the analysis rules need: machine type,
// characteristics, subsystem, sections, CLR descriptor presence, and the
// raw COFF symbol records consumed by the symbols package.
//
// Design decision: Rules receive an Image rather than a *pe.File so that
// the analysis layer depends on a small, immutable view instead of the
// full parser surface. The underlying file handle is closed before Open
// returns; an Image is a value snapshot that is safe to share across
// goroutines for the duration of a scan.
package pefile
