// Package trigger defines the core vocabulary of the mutation-interception
// engine: entities, row snapshots, mutations, policies, and the error
// taxonomy surfaced to callers.
//
// A Policy is a named, declarative rule attached to an entity. It reacts to
// insert, update, and delete mutations either before they commit (Protect,
// Transform, FSMGuard) or after (Audit). Policies are registered in a
// registry (package registry), evaluated by the interceptor (package engine),
// and their conditions are expression trees (package condition).
//
// This package is dependency-free so that every other package can import it
// without cycles.
package trigger
