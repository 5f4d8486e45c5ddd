// Package registry holds the process-wide policy table: an ordered list of
// policies per entity, safe for concurrent lookup, with registration-order
// preservation and duplicate-name rejection.
//
// Registration happens at startup or schema setup; lookups are the
// steady-state hot path, so the table is guarded by a read/write mutex and
// lookups return snapshots. Suppression, which ignores a named policy for
// one unit of work, rides on context.Context, so it follows the caller's
// request or transaction and cannot leak into concurrent units of work.
package registry
