// Package policies provides canned policy constructors for the common
// trigger shapes: protected operations, append-only and read-only models,
// soft delete, versioning, finite-state-machine fields, and history
// tracking. Each constructor returns ordinary trigger.Policy values ready
// for registration; nothing here is magic, just the spellings used over and
// over.
package policies
