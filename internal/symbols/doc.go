// Package symbols provides the debug-symbol index consumed by analysis rules.
//
// The Index interface is the narrow, read-only query surface the decision
// engine depends on: whether the artifact defines any global function,
// whether any symbol contributes bytes to an executable section, and exact
// lookup of a function by name. An index is scoped to one analysis and may
// be entirely absent (stripped binaries); the engine treats absence as a
// distinct, recoverable outcome rather than an error condition.
//
// Design decision: We use an interface rather than a concrete type because:
//  1. The backing store differs per artifact (COFF table today, PDB later)
//  2. Rules can be tested against trivial fake indexes
//  3. The engine is guaranteed to only ever use the three query operations
package symbols
