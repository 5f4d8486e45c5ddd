// Package store is the reference host-side storage layer: a small row store
// whose every insert, update, and delete passes through the interceptor's
// before/after hooks. It exists so the engine can be exercised end to end
// (rejected mutations leave zero persisted effect, substituted deletes
// become updates) and as a template for wiring the hooks into a real
// storage layer.
//
// Two backends are provided: an in-memory map and a SQLite database.
package store
